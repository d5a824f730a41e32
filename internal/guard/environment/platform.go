package environment

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrUnknownPlatform is returned when a platform name cannot be parsed.
var ErrUnknownPlatform = errors.New("unknown platform")

// Platform identifies the operating system family a child process runs on.
// The zero value is PlatformUnknown, which selects an empty allowlist.
type Platform int

const (
	// PlatformUnknown is an unrecognized platform. No host variable passes for it.
	PlatformUnknown Platform = iota
	// PlatformPOSIX covers Linux, macOS and the BSDs.
	PlatformPOSIX
	// PlatformWindows covers Windows.
	PlatformWindows
)

// String returns the canonical platform name.
func (p Platform) String() string {
	switch p {
	case PlatformPOSIX:
		return "posix"
	case PlatformWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so platforms can be read from config files.
func (p *Platform) UnmarshalText(text []byte) error {
	parsed, err := ParsePlatform(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePlatform parses a platform name. Besides the canonical names it accepts
// GOOS values such as "linux" or "darwin". An empty string yields PlatformUnknown
// without error so callers can fall back to HostPlatform.
func ParsePlatform(name string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return PlatformUnknown, nil
	case "posix", "unix", "linux", "darwin", "freebsd", "netbsd", "openbsd", "dragonfly", "solaris", "illumos", "aix":
		return PlatformPOSIX, nil
	case "windows", "win32":
		return PlatformWindows, nil
	default:
		return PlatformUnknown, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
}

// HostPlatform returns the platform of the running process.
func HostPlatform() Platform {
	return platformForGOOS(runtime.GOOS)
}

func platformForGOOS(goos string) Platform {
	p, err := ParsePlatform(goos)
	if err != nil {
		return PlatformUnknown
	}
	return p
}
