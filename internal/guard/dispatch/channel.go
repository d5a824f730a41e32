package dispatch

import (
	"fmt"
	"slices"

	"github.com/isseis/go-safe-pty-guard/internal/guard/ratelimit"
)

// Channel names a class of privileged operation with its own rate limit.
type Channel string

// Privileged channels exposed to the UI. This set is fixed: callers can never
// mint new channel names, which keeps the limiter registry bounded.
const (
	ChannelPTYCreate    Channel = "pty-create"
	ChannelPTYWrite     Channel = "pty-write"
	ChannelPTYResize    Channel = "pty-resize"
	ChannelPTYKill      Channel = "pty-kill"
	ChannelOpenExternal Channel = "open-external"
)

var knownChannels = []Channel{
	ChannelPTYCreate,
	ChannelPTYWrite,
	ChannelPTYResize,
	ChannelPTYKill,
	ChannelOpenExternal,
}

// KnownChannels returns every privileged channel.
func KnownChannels() []Channel {
	return slices.Clone(knownChannels)
}

// ParseChannel returns the channel called name, or ErrUnknownChannel.
func ParseChannel(name string) (Channel, error) {
	ch := Channel(name)
	if !slices.Contains(knownChannels, ch) {
		return "", fmt.Errorf("%w: %q (known: %v)", ErrUnknownChannel, name, KnownChannels())
	}
	return ch, nil
}

// DefaultProfiles returns the built-in rate limit profile of every channel.
// Process creation and external opens are scarce; keystroke writes and resizes
// must tolerate fast typing and window drags.
func DefaultProfiles() map[Channel]ratelimit.Config {
	return map[Channel]ratelimit.Config{
		ChannelPTYCreate:    {MaxTokens: 5, RefillRate: 0.5},
		ChannelPTYWrite:     {MaxTokens: 1000, RefillRate: 500},
		ChannelPTYResize:    {MaxTokens: 50, RefillRate: 20},
		ChannelPTYKill:      {MaxTokens: 10, RefillRate: 2},
		ChannelOpenExternal: {MaxTokens: 5, RefillRate: 0.5},
	}
}
