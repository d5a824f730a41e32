// Package cli implements the ptyguard Cobra command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/isseis/go-safe-pty-guard/internal/config"
	"github.com/isseis/go-safe-pty-guard/internal/logging"
	"github.com/isseis/go-safe-pty-guard/internal/terminal"
	"github.com/spf13/cobra"
)

// Version, Commit, and Date are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logDir     string
}

// app holds the state shared by every command of one tree.
type app struct {
	flags   globalFlags
	environ func() []string
	getenv  func(string) string
}

func newApp() *app {
	return &app{
		environ: os.Environ,
		getenv:  os.Getenv,
	}
}

// NewRootCommand builds a fresh ptyguard command tree.
func NewRootCommand() *cobra.Command {
	return newApp().rootCommand()
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ptyguard",
		Short: "Guard for the privileged calls of an embedded terminal",
		Long: `ptyguard - guard for the privileged calls of an embedded terminal

The terminal UI asks the host to spawn shells, write to and resize PTYs and
open links. ptyguard rate limits every such call per channel, spawns shells
with an allowlisted environment only, and opens nothing but well-formed
http, https and mailto URLs.

Examples:
  # Check links before handing them to the desktop
  ptyguard check-url https://example.com javascript:alert(1)

  # Show the environment a spawned shell would receive
  ptyguard env --platform posix --set EDITOR=vim

  # Run the loopback bridge for the UI
  ptyguard serve --config guard.toml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(versionLine() + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "path to a TOML or YAML config file")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	pf.StringVar(&a.flags.logDir, "log-dir", "", "directory for the per-run JSON log; overrides the config")

	root.AddCommand(
		a.checkURLCommand(),
		a.envCommand(),
		a.serveCommand(),
		a.versionCommand(),
	)
	return root
}

// loadConfig loads --config, or returns the defaults when it is not set.
func (a *app) loadConfig() (*config.Config, error) {
	if a.flags.configPath == "" {
		return config.Default(), nil
	}
	return config.NewLoader().LoadConfigFile(a.flags.configPath)
}

// setupLogger builds the logger for cmd. Command line flags win over the config.
func (a *app) setupLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level := cfg.Logging.Level
	if a.flags.logLevel != "" {
		level = a.flags.logLevel
	}
	dir := cfg.Logging.Dir
	if a.flags.logDir != "" {
		dir = a.flags.logDir
	}

	detector := terminal.NewDetector(terminal.DetectorOptions{})
	logger, closer, err := logging.Setup(logging.Options{
		Level:       level,
		LogDir:      dir,
		RunID:       logging.GenerateRunID(),
		Console:     cmd.ErrOrStderr(),
		Interactive: detector.IsInteractive(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, closer, nil
}
