package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/isseis/go-safe-pty-guard/internal/bridge"
	"github.com/isseis/go-safe-pty-guard/internal/config"
	"github.com/isseis/go-safe-pty-guard/internal/guard/dispatch"
	"github.com/isseis/go-safe-pty-guard/internal/guard/environment"
	"github.com/isseis/go-safe-pty-guard/internal/guard/ratelimit"
	"github.com/isseis/go-safe-pty-guard/internal/guard/urlcheck"
	"github.com/spf13/cobra"
)

// BridgeTokenEnvVar, when set, supplies the bridge token instead of a generated one.
const BridgeTokenEnvVar = "PTYGUARD_BRIDGE_TOKEN"

// readyLine is printed on stdout once the bridge accepts connections.
type readyLine struct {
	Listen string `json:"listen"`
	Token  string `json:"token"`
}

func (a *app) serveCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the loopback bridge for the terminal UI",
		Long: `Run the loopback HTTP bridge that admits or denies the UI's privileged calls.

Once listening, a single JSON line {"listen": ..., "token": ...} is printed on
stdout. Every /v1 request must send the token in the X-Guard-Token header.
The token is generated per run unless PTYGUARD_BRIDGE_TOKEN is set.

The bridge stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, cmd, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "loopback host:port to listen on (default: config)")
	return cmd
}

func (a *app) runServe(ctx context.Context, cmd *cobra.Command, listen string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		if err := config.ValidateListenAddress(listen); err != nil {
			return err
		}
		cfg.Bridge.Listen = listen
	}

	logger, closer, err := a.setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close log file: %v\n", err)
		}
	}()

	platform := cfg.Platform()
	d := dispatch.New(ratelimit.New(), dispatch.Options{
		Profiles:     cfg.Profiles(),
		HostEnv:      environment.ParseEnviron(a.environ()),
		Platform:     platform,
		EnvOverrides: cfg.Environment.Overrides,
		Shell:        cfg.Shell.Command,
		ShellArgs:    cfg.Shell.Args,
		DefaultDir:   cfg.Shell.Dir,
		Spawner:      dispatch.NewExecSpawner(logger),
		Launcher:     urlcheck.NewSystemLauncher(),
		Logger:       logger,
	})

	token := a.getenv(BridgeTokenEnvVar)
	if token == "" {
		token = uuid.NewString()
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Bridge.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Bridge.Listen, err)
	}

	logger.Info("Starting bridge",
		"platform", platform.String(),
		"shell", cfg.Shell.Command,
		"config", a.flags.configPath)

	if err := json.NewEncoder(cmd.OutOrStdout()).Encode(readyLine{
		Listen: ln.Addr().String(),
		Token:  token,
	}); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to announce bridge: %w", err)
	}

	return bridge.NewServer(d, token, logger).Serve(ctx, ln)
}
