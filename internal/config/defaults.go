package config

import "github.com/isseis/go-safe-pty-guard/internal/guard/environment"

// Default values
const (
	DefaultLogLevel     = "info"
	DefaultBridgeListen = "127.0.0.1:7681"
	DefaultPOSIXShell   = "/bin/sh"
	DefaultWindowsShell = "cmd.exe"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields of cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Bridge.Listen == "" {
		cfg.Bridge.Listen = DefaultBridgeListen
	}
	if cfg.Shell.Command == "" {
		cfg.Shell.Command = DefaultShell(cfg.Platform())
	}
}

// DefaultShell returns the shell used when none is configured.
func DefaultShell(platform environment.Platform) string {
	if platform == environment.PlatformWindows {
		return DefaultWindowsShell
	}
	return DefaultPOSIXShell
}
