package config

import (
	"github.com/isseis/go-safe-pty-guard/internal/guard/dispatch"
	"github.com/isseis/go-safe-pty-guard/internal/guard/environment"
	"github.com/isseis/go-safe-pty-guard/internal/guard/ratelimit"
)

// Config is the top-level configuration of the guard process.
type Config struct {
	Logging     LoggingConfig               `toml:"logging" yaml:"logging"`
	Environment EnvironmentConfig           `toml:"environment" yaml:"environment"`
	Shell       ShellConfig                 `toml:"shell" yaml:"shell"`
	RateLimits  map[string]ratelimit.Config `toml:"rate_limits" yaml:"rate_limits"`
	Bridge      BridgeConfig                `toml:"bridge" yaml:"bridge"`
}

// LoggingConfig controls log verbosity and the per-run log file.
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
	Dir   string `toml:"dir" yaml:"dir"`
}

// EnvironmentConfig holds the inputs for building child environments.
type EnvironmentConfig struct {
	// Platform is "posix", "windows" or empty for the host platform.
	Platform string `toml:"platform" yaml:"platform"`
	// OverrideFile is a dotenv file of user overrides, relative to the config file.
	OverrideFile string `toml:"override_file" yaml:"override_file"`
	// Overrides are applied after OverrideFile and win over it.
	Overrides map[string]string `toml:"overrides" yaml:"overrides"`
}

// ShellConfig names the process started for each PTY.
type ShellConfig struct {
	Command string   `toml:"command" yaml:"command"`
	Args    []string `toml:"args" yaml:"args"`
	Dir     string   `toml:"dir" yaml:"dir"`
}

// BridgeConfig configures the loopback HTTP bridge.
type BridgeConfig struct {
	Listen string `toml:"listen" yaml:"listen"`
}

// Platform returns the configured platform, falling back to the host platform.
func (c *Config) Platform() environment.Platform {
	p, err := environment.ParsePlatform(c.Environment.Platform)
	if err != nil {
		return environment.PlatformUnknown
	}
	if p == environment.PlatformUnknown {
		return environment.HostPlatform()
	}
	return p
}

// Profiles returns the configured rate limit profiles keyed by channel.
// Unknown channel names are dropped; Validate reports them.
func (c *Config) Profiles() map[dispatch.Channel]ratelimit.Config {
	result := make(map[dispatch.Channel]ratelimit.Config, len(c.RateLimits))
	for name, cfg := range c.RateLimits {
		ch, err := dispatch.ParseChannel(name)
		if err != nil {
			continue
		}
		result[ch] = cfg
	}
	return result
}
