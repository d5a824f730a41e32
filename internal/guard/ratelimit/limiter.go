// Package ratelimit provides a token bucket limiter keyed by privileged channel name.
// Each channel owns one bucket that starts full and refills continuously at a
// configured rate. The caller supplies the current time on every call so that
// decisions are deterministic and independent of the wall clock.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Config describes the bucket shape applied to a channel.
type Config struct {
	// MaxTokens is the bucket capacity and therefore the largest admitted burst.
	MaxTokens int `toml:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	// RefillRate is the number of tokens added per second.
	RefillRate float64 `toml:"refill_rate" yaml:"refill_rate" json:"refill_rate"`
}

// Valid reports whether the config can admit anything at all.
func (c Config) Valid() bool {
	return c.MaxTokens >= 1
}

// refillRate returns a rate that is safe to use in arithmetic.
// Negative and NaN rates never refill.
func (c Config) refillRate() float64 {
	if math.IsNaN(c.RefillRate) || c.RefillRate < 0 {
		return 0
	}
	return c.RefillRate
}

// BucketState is a point-in-time copy of a channel bucket.
type BucketState struct {
	Tokens     float64   `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
	Config     Config    `json:"config"`
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
	config     Config
}

// Limiter is a registry of token buckets, one per channel.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates an empty Limiter.
func New() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether one more call on channel is admitted at time now.
//
// The first call for a channel creates a full bucket. Every later call refills
// the bucket for the time elapsed since the previous call, capped at
// cfg.MaxTokens, and then consumes one token if at least one is available.
// The bucket keeps the most recently supplied cfg.
//
// An empty channel name or a config with MaxTokens < 1 is always denied and
// leaves the registry untouched.
func (l *Limiter) Allow(channel string, cfg Config, now time.Time) bool {
	if channel == "" || !cfg.Valid() {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[channel]
	if !ok {
		b = &bucket{
			tokens:     float64(cfg.MaxTokens),
			lastRefill: now,
			config:     cfg,
		}
		l.buckets[channel] = b
	} else {
		b.config = cfg
		b.refill(now)
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// refill adds the tokens accumulated since lastRefill.
// A timestamp earlier than lastRefill adds nothing and does not move lastRefill back.
func (b *bucket) refill(now time.Time) {
	maxTokens := float64(b.config.MaxTokens)
	if now.After(b.lastRefill) {
		elapsed := now.Sub(b.lastRefill).Seconds()
		b.tokens += elapsed * b.config.refillRate()
		b.lastRefill = now
	}
	b.tokens = math.Min(maxTokens, b.tokens)
}

// ResetAll drops every bucket. The next call on any channel starts full again.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[string]*bucket)
}

// Snapshot returns a copy of every bucket currently in the registry.
func (l *Limiter) Snapshot() map[string]BucketState {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make(map[string]BucketState, len(l.buckets))
	for name, b := range l.buckets {
		result[name] = BucketState{
			Tokens:     b.tokens,
			LastRefill: b.lastRefill,
			Config:     b.config,
		}
	}
	return result
}

// Len returns the number of channels with a bucket.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
