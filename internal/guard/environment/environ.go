package environment

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// ParseEnviron converts "KEY=VALUE" entries, as returned by os.Environ, into a map.
// Entries without "=" or with an empty key are skipped. This drops the
// "=C:=C:\dir" drive entries Windows reports. Later duplicates win.
func ParseEnviron(entries []string) map[string]string {
	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := parseEnvVariable(entry)
		if !ok {
			continue
		}
		result[key] = value
	}
	return result
}

// parseEnvVariable splits "KEY=VALUE". "KEY=" is valid with an empty value.
func parseEnvVariable(entry string) (key, value string, ok bool) {
	key, value, found := strings.Cut(entry, "=")
	if !found || key == "" {
		return "", "", false
	}
	return key, value, true
}

// Environ converts env into a sorted "KEY=VALUE" slice suitable for exec.Cmd.Env.
// Entries that cannot be represented in a process environment block are
// dropped with a warning: names that are empty or contain '=' or NUL, and
// values that contain NUL.
func Environ(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for _, name := range slices.Sorted(maps.Keys(env)) {
		value := env[name]
		if err := ValidateEntry(name, value); err != nil {
			slog.Warn("Dropping environment entry",
				"variable", name,
				"error", err)
			continue
		}
		result = append(result, name+"="+value)
	}
	return result
}
