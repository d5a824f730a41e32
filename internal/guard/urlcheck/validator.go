// Package urlcheck decides whether a URL coming from terminal output or the UI
// may be handed to the operating system's external-open facility.
//
// Only http, https and mailto URLs are accepted. Validation depends on the
// parsed scheme and on the URL being fully formed; host, path and query are
// never inspected beyond that. Invalid input is rejected, never rewritten.
package urlcheck

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// allowedSchemes holds the accepted schemes, lower-cased, including the trailing colon.
var allowedSchemes = map[string]struct{}{
	"http:":   {},
	"https:":  {},
	"mailto:": {},
}

// AllowedSchemes returns the accepted schemes in a stable order.
func AllowedSchemes() []string {
	schemes := make([]string, 0, len(allowedSchemes))
	for scheme := range allowedSchemes {
		schemes = append(schemes, scheme)
	}
	slices.Sort(schemes)
	return schemes
}

// IsValidExternalURL reports whether candidate is a fully formed URL with an allowed scheme.
//
// http and https URLs must carry an authority with a non-empty host and, if
// present, a port in 0-65535 ("https://host:443"). mailto URLs must
// carry an address. Bare host names, scheme-relative references and anything
// that fails to parse are invalid. Scheme comparison is case-insensitive.
func IsValidExternalURL(candidate string) bool {
	if candidate == "" {
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Scheme == "" {
		return false
	}

	scheme := strings.ToLower(u.Scheme) + ":"
	if _, ok := allowedSchemes[scheme]; !ok {
		return false
	}

	switch scheme {
	case "mailto:":
		return u.Opaque != ""
	default:
		return u.Opaque == "" && u.Hostname() != "" && validPort(u.Port())
	}
}

func validPort(port string) bool {
	if port == "" {
		return true
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

// SanitizeExternalURL returns candidate unchanged and true when it is valid,
// or "" and false otherwise.
func SanitizeExternalURL(candidate string) (string, bool) {
	if !IsValidExternalURL(candidate) {
		return "", false
	}
	return candidate, true
}
