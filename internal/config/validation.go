package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/netip"
	"sort"

	"github.com/isseis/go-safe-pty-guard/internal/guard/dispatch"
	"github.com/isseis/go-safe-pty-guard/internal/guard/environment"
)

// Error definitions for configuration validation
var (
	ErrInvalidRateLimit    = errors.New("invalid rate limit")
	ErrInvalidOverride     = errors.New("invalid environment override")
	ErrNonLoopbackListen   = errors.New("bridge must listen on a loopback address")
	ErrInvalidListenAddr   = errors.New("invalid bridge listen address")
	ErrShellCommandMissing = errors.New("shell command is required")
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := environment.ParsePlatform(cfg.Environment.Platform); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, validateRateLimits(cfg)...)

	if err := environment.ValidateOverrides(cfg.Environment.Overrides); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidOverride, err))
	}

	if cfg.Shell.Command == "" {
		errs = append(errs, ErrShellCommandMissing)
	}

	if err := ValidateListenAddress(cfg.Bridge.Listen); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateRateLimits(cfg *Config) []error {
	names := make([]string, 0, len(cfg.RateLimits))
	for name := range cfg.RateLimits {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		limit := cfg.RateLimits[name]
		if _, err := dispatch.ParseChannel(name); err != nil {
			errs = append(errs, fmt.Errorf("rate_limits: %w", err))
			continue
		}
		if limit.MaxTokens < 1 {
			errs = append(errs, fmt.Errorf("%w: %s: max_tokens must be at least 1, got %d", ErrInvalidRateLimit, name, limit.MaxTokens))
		}
		if math.IsNaN(limit.RefillRate) || math.IsInf(limit.RefillRate, 0) || limit.RefillRate < 0 {
			errs = append(errs, fmt.Errorf("%w: %s: refill_rate must be a finite non-negative number, got %v", ErrInvalidRateLimit, name, limit.RefillRate))
		}
	}
	return errs
}

// ValidateListenAddress accepts host:port addresses whose host is a loopback IP or "localhost".
func ValidateListenAddress(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidListenAddr, addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || !ip.IsLoopback() {
		return fmt.Errorf("%w: %q", ErrNonLoopbackListen, addr)
	}
	return nil
}
