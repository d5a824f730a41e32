// Package dispatch routes privileged calls from the terminal UI through the
// trust-boundary guards. Every call is rate limited per channel before any
// work happens; PTY creation receives an allowlisted environment and external
// opens receive only validated URLs.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"time"

	"github.com/isseis/go-safe-pty-guard/internal/guard/environment"
	"github.com/isseis/go-safe-pty-guard/internal/guard/ratelimit"
	"github.com/isseis/go-safe-pty-guard/internal/guard/urlcheck"
	"github.com/oklog/ulid/v2"
)

// Clock returns the current time. It allows tests to control the limiter's notion of now.
type Clock func() time.Time

// Options configures a Dispatcher.
type Options struct {
	// Profiles overrides the rate limit profile of individual channels.
	// Channels missing here use DefaultProfiles.
	Profiles map[Channel]ratelimit.Config
	// HostEnv is the environment of the host process.
	HostEnv map[string]string
	// Platform selects the environment allowlist for spawned processes.
	Platform environment.Platform
	// EnvOverrides is explicit user configuration applied on top of the allowlisted environment.
	EnvOverrides map[string]string
	// Shell and ShellArgs are the command started for every new PTY.
	Shell     string
	ShellArgs []string
	// DefaultDir is the working directory used when a request names none.
	DefaultDir string

	Spawner  Spawner
	Launcher urlcheck.Launcher
	Clock    Clock
	Logger   *slog.Logger
}

// Decision records the outcome of one privileged call.
type Decision struct {
	ID      string  `json:"id"`
	Channel Channel `json:"channel"`
	Allowed bool    `json:"allowed"`
	Reason  string  `json:"reason,omitempty"`
	PID     int     `json:"pid,omitempty"`
}

// CreatePTYRequest is the payload of the pty-create channel.
// The shell and its environment come from host configuration only.
type CreatePTYRequest struct {
	Cwd  string `json:"cwd,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// OpenExternalRequest is the payload of the open-external channel.
type OpenExternalRequest struct {
	URL string `json:"url"`
}

// Dispatcher applies the guards to privileged calls. It is safe for concurrent use.
type Dispatcher struct {
	limiter  *ratelimit.Limiter
	profiles map[Channel]ratelimit.Config
	opts     Options
	clock    Clock
	logger   *slog.Logger
}

// New creates a Dispatcher that records channel state in limiter.
// If limiter is nil a fresh one is created.
func New(limiter *ratelimit.Limiter, opts Options) *Dispatcher {
	if limiter == nil {
		limiter = ratelimit.New()
	}

	profiles := DefaultProfiles()
	for ch, cfg := range opts.Profiles {
		if _, err := ParseChannel(string(ch)); err != nil {
			continue
		}
		profiles[ch] = cfg
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts.HostEnv = maps.Clone(opts.HostEnv)
	opts.EnvOverrides = maps.Clone(opts.EnvOverrides)

	return &Dispatcher{
		limiter:  limiter,
		profiles: profiles,
		opts:     opts,
		clock:    clock,
		logger:   logger,
	}
}

// Profile returns the rate limit profile applied to ch.
func (d *Dispatcher) Profile(ch Channel) ratelimit.Config {
	return d.profiles[ch]
}

// Limits returns a snapshot of the limiter state.
func (d *Dispatcher) Limits() map[string]ratelimit.BucketState {
	return d.limiter.Snapshot()
}

// ResetLimits refills every channel.
func (d *Dispatcher) ResetLimits() {
	d.limiter.ResetAll()
	d.logger.Info("Rate limits reset")
}

// Dispatch rate limits the named channel, then decodes payload and runs the call.
// Malformed payloads consume a token like any other call.
// The returned Decision is never nil; err explains a denial.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, payload []byte) (*Decision, error) {
	ch, err := ParseChannel(name)
	if err != nil {
		decision := d.newDecision(Channel(name))
		return d.deny(decision, "unknown channel", err)
	}

	decision := d.newDecision(ch)
	if err := d.checkRate(ch); err != nil {
		return d.deny(decision, "rate limited", err)
	}

	switch ch {
	case ChannelPTYCreate:
		var req CreatePTYRequest
		if err := decodePayload(payload, &req); err != nil {
			return d.deny(decision, "invalid payload", err)
		}
		return d.createPTY(ctx, decision, req)
	case ChannelOpenExternal:
		var req OpenExternalRequest
		if err := decodePayload(payload, &req); err != nil {
			return d.deny(decision, "invalid payload", err)
		}
		return d.openExternal(ctx, decision, req.URL)
	default:
		return d.allow(decision), nil
	}
}

// CreatePTY starts the configured shell with an allowlisted environment.
func (d *Dispatcher) CreatePTY(ctx context.Context, req CreatePTYRequest) (*Decision, error) {
	decision := d.newDecision(ChannelPTYCreate)
	if err := d.checkRate(ChannelPTYCreate); err != nil {
		return d.deny(decision, "rate limited", err)
	}
	return d.createPTY(ctx, decision, req)
}

func (d *Dispatcher) createPTY(ctx context.Context, decision *Decision, req CreatePTYRequest) (*Decision, error) {
	if d.opts.Spawner == nil || d.opts.Shell == "" {
		return d.deny(decision, "spawner not configured", fmt.Errorf("%w: spawner", ErrNotConfigured))
	}

	dir := d.opts.DefaultDir
	if req.Cwd != "" {
		if !filepath.IsAbs(req.Cwd) {
			return d.deny(decision, "invalid payload", fmt.Errorf("%w: cwd must be absolute", ErrInvalidPayload))
		}
		dir = filepath.Clean(req.Cwd)
	}
	if req.Cols < 0 || req.Rows < 0 {
		return d.deny(decision, "invalid payload", fmt.Errorf("%w: negative terminal size", ErrInvalidPayload))
	}

	env := environment.BuildSafeEnvironment(d.opts.HostEnv, d.opts.Platform, d.opts.EnvOverrides)
	spec := SpawnSpec{
		Command: d.opts.Shell,
		Args:    d.opts.ShellArgs,
		Dir:     dir,
		Env:     environment.Environ(env),
		Cols:    req.Cols,
		Rows:    req.Rows,
	}

	proc, err := d.opts.Spawner.Spawn(ctx, spec)
	if err != nil {
		return d.deny(decision, "spawn failed", fmt.Errorf("%w: %w", ErrSpawnFailed, err))
	}

	decision.PID = proc.Pid()
	d.logger.Info("PTY process spawned",
		"decision_id", decision.ID,
		"pid", decision.PID,
		"shell", spec.Command,
		"platform", d.opts.Platform.String(),
		"environment_size", len(spec.Env))
	return d.allow(decision), nil
}

// OpenExternal hands rawURL to the launcher after validation.
// A rejected URL still consumes a token.
func (d *Dispatcher) OpenExternal(ctx context.Context, rawURL string) (*Decision, error) {
	decision := d.newDecision(ChannelOpenExternal)
	if err := d.checkRate(ChannelOpenExternal); err != nil {
		return d.deny(decision, "rate limited", err)
	}
	return d.openExternal(ctx, decision, rawURL)
}

func (d *Dispatcher) openExternal(ctx context.Context, decision *Decision, rawURL string) (*Decision, error) {
	safe, ok := urlcheck.SanitizeExternalURL(rawURL)
	if !ok {
		return d.deny(decision, "unsafe url", ErrUnsafeURL)
	}
	if d.opts.Launcher == nil {
		return d.deny(decision, "launcher not configured", fmt.Errorf("%w: launcher", ErrNotConfigured))
	}
	if err := d.opts.Launcher.Open(ctx, safe); err != nil {
		if errors.Is(err, urlcheck.ErrUnsafeURL) {
			return d.deny(decision, "unsafe url", ErrUnsafeURL)
		}
		return d.deny(decision, "launch failed", fmt.Errorf("%w: %w", ErrLaunchFailed, err))
	}

	d.logger.Info("URL opened externally",
		"decision_id", decision.ID,
		"url", safe)
	return d.allow(decision), nil
}

func (d *Dispatcher) checkRate(ch Channel) error {
	if !d.limiter.Allow(string(ch), d.profiles[ch], d.clock()) {
		return &RateLimitedError{Channel: ch}
	}
	return nil
}

func (d *Dispatcher) newDecision(ch Channel) *Decision {
	return &Decision{
		ID:      ulid.Make().String(),
		Channel: ch,
	}
}

func (d *Dispatcher) allow(decision *Decision) *Decision {
	decision.Allowed = true
	d.logger.Debug("Privileged call admitted",
		"decision_id", decision.ID,
		"channel", string(decision.Channel))
	return decision
}

func (d *Dispatcher) deny(decision *Decision, reason string, err error) (*Decision, error) {
	decision.Allowed = false
	decision.Reason = reason
	d.logger.Warn("Privileged call denied",
		"decision_id", decision.ID,
		"channel", string(decision.Channel),
		"reason", reason,
		"error", err)
	return decision, err
}

// decodePayload strictly decodes a JSON object. An empty payload decodes to the zero value.
func decodePayload(payload []byte, v any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrInvalidPayload)
	}
	return nil
}
