package logging

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/isseis/go-safe-pty-guard/internal/guard/environment"
)

// Placeholder replaces redacted values.
const Placeholder = "***"

// RedactionConfig contains configuration for redacting sensitive information
type RedactionConfig struct {
	// AllowedEnvKeys contains environment variable keys that are allowed in cleartext
	AllowedEnvKeys []string
	// CredentialPatterns match attribute keys and string values that must be redacted
	CredentialPatterns []*regexp.Regexp
	// URLKeys names attributes holding URLs whose embedded passwords are masked
	URLKeys []string
}

// DefaultRedactionConfig returns a configuration whose cleartext environment keys
// are exactly the child-process allowlists plus the forced terminal variables.
func DefaultRedactionConfig() *RedactionConfig {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)(password|passwd|token|secret|api[_-]?key|private[_-]?key|credential)`),
		regexp.MustCompile(`(?i)aws_(access_key_id|secret_access_key|session_token)`),
		regexp.MustCompile(`(?i)authorization`),
		regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`),
	}

	allowed := environment.Allowlist(environment.PlatformPOSIX)
	allowed = append(allowed, environment.Allowlist(environment.PlatformWindows)...)
	allowed = append(allowed, environment.TermName, environment.ColorTermName)
	slices.Sort(allowed)

	return &RedactionConfig{
		AllowedEnvKeys:     slices.Compact(allowed),
		CredentialPatterns: patterns,
		URLKeys:            []string{"url"},
	}
}

// RedactingHandler is a decorator that redacts sensitive information before forwarding to the underlying handler
type RedactingHandler struct {
	handler slog.Handler
	config  *RedactionConfig
	inEnv   bool
}

// NewRedactingHandler creates a new redacting handler that wraps the given handler
func NewRedactingHandler(handler slog.Handler, config *RedactionConfig) *RedactingHandler {
	if config == nil {
		config = DefaultRedactionConfig()
	}
	return &RedactingHandler{
		handler: handler,
		config:  config,
	}
}

// Enabled reports whether the handler handles records at the given level
func (r *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return r.handler.Enabled(ctx, level)
}

// Handle redacts the log record and forwards it to the underlying handler
func (r *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	newRecord := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		newRecord.AddAttrs(r.redactAttr(attr, r.inEnv))
		return true
	})
	return r.handler.Handle(ctx, newRecord)
}

// WithAttrs returns a new RedactingHandler with the given attributes
func (r *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		redacted = append(redacted, r.redactAttr(attr, r.inEnv))
	}
	return &RedactingHandler{
		handler: r.handler.WithAttrs(redacted),
		config:  r.config,
		inEnv:   r.inEnv,
	}
}

// WithGroup returns a new RedactingHandler with the given group name.
// Attributes inside a group named "env" are treated as environment variables.
func (r *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{
		handler: r.handler.WithGroup(name),
		config:  r.config,
		inEnv:   r.inEnv || name == "env",
	}
}

// redactAttr redacts sensitive information from a single attribute.
// inEnv is set while walking the members of an "env" group.
func (r *RedactingHandler) redactAttr(attr slog.Attr, inEnv bool) slog.Attr {
	key := attr.Key
	value := attr.Value.Resolve()

	if value.Kind() == slog.KindGroup {
		members := value.Group()
		redacted := make([]slog.Attr, 0, len(members))
		for _, member := range members {
			redacted = append(redacted, r.redactAttr(member, inEnv || key == "env"))
		}
		return slog.Attr{Key: key, Value: slog.GroupValue(redacted...)}
	}

	if inEnv && !r.isAllowedEnvKey(key) {
		return slog.String(key, Placeholder)
	}
	if envKey, ok := strings.CutPrefix(key, "env_"); ok && !r.isAllowedEnvKey(envKey) {
		return slog.String(key, Placeholder)
	}

	if r.matchesCredential(key) {
		return slog.String(key, Placeholder)
	}

	if value.Kind() == slog.KindString {
		s := value.String()
		if slices.Contains(r.config.URLKeys, key) {
			return slog.String(key, r.redactURL(s))
		}
		if r.matchesCredential(s) {
			return slog.String(key, Placeholder)
		}
	}

	return slog.Attr{Key: key, Value: value}
}

func (r *RedactingHandler) matchesCredential(s string) bool {
	for _, pattern := range r.config.CredentialPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// isAllowedEnvKey checks if an environment variable key is in the allowed list
func (r *RedactingHandler) isAllowedEnvKey(key string) bool {
	for _, allowedKey := range r.config.AllowedEnvKeys {
		if strings.EqualFold(key, allowedKey) {
			return true
		}
	}
	return false
}

// redactURL masks the password of a URL and every query or fragment parameter
// whose name or value matches a credential pattern. Values that do not parse,
// or whose path still matches a pattern, are masked entirely.
func (r *RedactingHandler) redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return Placeholder
	}
	if r.matchesCredential(u.Path) || r.matchesCredential(u.Opaque) {
		return Placeholder
	}

	fragment := u.EscapedFragment()
	u.RawQuery = r.redactParams(u.RawQuery)
	u.Fragment, u.RawFragment = "", ""

	redacted := u.Redacted()
	if fragment != "" {
		redacted += "#" + r.redactParams(fragment)
	}
	return redacted
}

// redactParams masks the values of "name=value" pairs separated by '&'.
// Pairs are matched in unescaped form and otherwise kept byte for byte.
func (r *RedactingHandler) redactParams(raw string) string {
	if raw == "" {
		return raw
	}
	params := strings.Split(raw, "&")
	for i, param := range params {
		name, value, _ := strings.Cut(param, "=")
		if r.matchesCredential(unescape(name)) || r.matchesCredential(unescape(value)) {
			params[i] = name + "=" + Placeholder
		}
	}
	return strings.Join(params, "&")
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
