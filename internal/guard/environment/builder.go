// Package environment builds the environment handed to spawned shell and PTY
// processes. It works strictly from a per-platform allowlist: a host variable
// reaches the child only if its name is listed or the caller supplies it as an
// explicit override, so secrets with unanticipated names never leak.
package environment

import (
	"maps"
	"slices"
	"strings"
)

// Terminal capability variables forced on every child environment.
const (
	TermName       = "TERM"
	TermValue      = "xterm-256color"
	ColorTermName  = "COLORTERM"
	ColorTermValue = "truecolor"
)

// BuildSafeEnvironment returns the environment for a child process.
//
// Allowlisted names present in hostEnv are copied verbatim; allowlisted names
// absent from hostEnv are omitted. Every entry of overrides is then applied
// unconditionally, which may add variables or replace allowlisted values.
// Finally TERM and COLORTERM are forced to xterm-256color and truecolor.
//
// On Windows names compare case-insensitively: the host spelling of an
// allowlisted name is kept, and an override replaces every case variant of its
// name. An unknown platform passes no host variables.
func BuildSafeEnvironment(hostEnv map[string]string, platform Platform, overrides map[string]string) map[string]string {
	result := make(map[string]string)

	for _, name := range allowlists[platform] {
		if hostName, value, ok := lookup(hostEnv, name, platform); ok {
			result[hostName] = value
		}
	}

	// Sorted so that case variants on Windows resolve deterministically.
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		set(result, name, overrides[name], platform)
	}

	set(result, TermName, TermValue, platform)
	set(result, ColorTermName, ColorTermValue, platform)

	return result
}

// lookup finds name in env. On Windows an exact match is preferred, then the
// lexically smallest case-insensitive match.
func lookup(env map[string]string, name string, platform Platform) (string, string, bool) {
	if value, ok := env[name]; ok {
		return name, value, true
	}
	if platform != PlatformWindows {
		return "", "", false
	}

	var found string
	for key := range env {
		if strings.EqualFold(key, name) && (found == "" || key < found) {
			found = key
		}
	}
	if found == "" {
		return "", "", false
	}
	return found, env[found], true
}

// set stores value under name, first removing any Windows case variant of name.
func set(env map[string]string, name, value string, platform Platform) {
	if platform == PlatformWindows {
		for key := range env {
			if key != name && strings.EqualFold(key, name) {
				delete(env, key)
			}
		}
	}
	env[name] = value
}
