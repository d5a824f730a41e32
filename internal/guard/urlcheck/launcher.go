package urlcheck

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// Error definitions
var (
	ErrUnsafeURL           = errors.New("url rejected: only http, https and mailto urls may be opened")
	ErrUnsupportedPlatform = errors.New("no external opener for this platform")
)

// Launcher hands a URL to the operating system's default-application launcher.
type Launcher interface {
	Open(ctx context.Context, rawURL string) error
}

// CommandStarter starts a process without waiting for it.
// It exists so tests can observe the launch without spawning a browser.
type CommandStarter func(ctx context.Context, name string, args ...string) error

// SystemLauncher opens URLs with xdg-open, open or rundll32 depending on the OS.
// It validates every URL itself, so a caller that forgot to check cannot open
// an unsafe one.
type SystemLauncher struct {
	goos  string
	start CommandStarter
}

// NewSystemLauncher creates a launcher for the running operating system.
func NewSystemLauncher() *SystemLauncher {
	return &SystemLauncher{
		goos:  runtime.GOOS,
		start: startDetached,
	}
}

// NewSystemLauncherWithStarter creates a launcher for goos that starts processes through start.
func NewSystemLauncherWithStarter(goos string, start CommandStarter) *SystemLauncher {
	return &SystemLauncher{
		goos:  goos,
		start: start,
	}
}

// Open validates rawURL and launches the platform opener for it.
// The opener process is started but not waited on.
func (l *SystemLauncher) Open(ctx context.Context, rawURL string) error {
	safe, ok := SanitizeExternalURL(rawURL)
	if !ok {
		return ErrUnsafeURL
	}

	name, args, err := openerCommand(l.goos, safe)
	if err != nil {
		return err
	}

	if err := l.start(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}
	return nil
}

// openerCommand returns the command line that opens url on goos.
// The URL is always passed as a single argument, never through a shell.
func openerCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "netbsd", "openbsd", "dragonfly", "solaris", "illumos":
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

func startDetached(ctx context.Context, name string, args ...string) error {
	// The opener outlives the request that triggered it.
	// #nosec G204 - name is one of a fixed set of openers and args carry a validated URL
	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
