package cli

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/isseis/go-safe-pty-guard/internal/config"
	"github.com/isseis/go-safe-pty-guard/internal/guard/environment"
	"github.com/spf13/cobra"
)

// ErrInvalidSetFlag is returned for a --set value without "=".
var ErrInvalidSetFlag = errors.New("--set expects KEY=VALUE")

type envOptions struct {
	platform     string
	set          []string
	overrideFile string
}

func (a *app) envCommand() *cobra.Command {
	var opts envOptions
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the environment a spawned shell would receive",
		Long: `Print the environment a spawned shell would receive, one KEY=VALUE per line.

The current process environment is filtered through the platform allowlist,
then overrides are applied in this order: config, --override-file, --set.
TERM and COLORTERM are always forced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runEnv(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.platform, "platform", "", "allowlist to apply: posix or windows (default: config, then host)")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "override a variable as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&opts.overrideFile, "override-file", "", "dotenv file with additional overrides")
	return cmd
}

func (a *app) runEnv(cmd *cobra.Command, opts envOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	platform := cfg.Platform()
	if opts.platform != "" {
		platform, err = environment.ParsePlatform(opts.platform)
		if err != nil {
			return err
		}
	}

	overrides := make(map[string]string, len(cfg.Environment.Overrides))
	maps.Copy(overrides, cfg.Environment.Overrides)
	if opts.overrideFile != "" {
		fileEnv, err := config.LoadOverrideFile(opts.overrideFile)
		if err != nil {
			return err
		}
		maps.Copy(overrides, fileEnv)
	}
	for _, kv := range opts.set {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidSetFlag, kv)
		}
		overrides[name] = value
	}
	if err := environment.ValidateOverrides(overrides); err != nil {
		return err
	}

	hostEnv := environment.ParseEnviron(a.environ())
	safe := environment.BuildSafeEnvironment(hostEnv, platform, overrides)

	out := cmd.OutOrStdout()
	for _, entry := range environment.Environ(safe) {
		fmt.Fprintln(out, entry)
	}
	return nil
}
