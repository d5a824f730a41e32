// Package terminal decides whether the guard process talks to a person at a
// terminal or to a supervisor or CI system. The answer selects human-readable
// or JSON console logging.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ciEnvVars contains common CI environment variables
var ciEnvVars = []string{
	"CI",                     // Generic CI indicator
	"CONTINUOUS_INTEGRATION", // Generic CI indicator
	"GITHUB_ACTIONS",         // GitHub Actions
	"GITLAB_CI",              // GitLab CI
	"CIRCLECI",               // Circle CI
	"JENKINS_URL",            // Jenkins
	"BUILDKITE",              // Buildkite
	"TF_BUILD",               // Azure DevOps
}

// DetectorOptions contains options for controlling interactive detection
type DetectorOptions struct {
	ForceInteractive    bool
	ForceNonInteractive bool
}

// Detector reports whether the current process is interactive.
type Detector struct {
	options    DetectorOptions
	getenv     func(string) string
	isTerminal func(fd int) bool
	fd         int
}

// NewDetector creates a detector that inspects stderr and the process environment.
func NewDetector(options DetectorOptions) *Detector {
	return &Detector{
		options:    options,
		getenv:     os.Getenv,
		isTerminal: term.IsTerminal,
		fd:         int(os.Stderr.Fd()),
	}
}

// IsInteractive returns true if the current environment is interactive.
// Explicit options win, then CI detection, then the terminal check.
func (d *Detector) IsInteractive() bool {
	if d.options.ForceInteractive {
		return true
	}
	if d.options.ForceNonInteractive {
		return false
	}
	if d.IsCIEnvironment() {
		return false
	}
	return d.IsTerminal()
}

// IsTerminal checks whether stderr is connected to a terminal.
func (d *Detector) IsTerminal() bool {
	return d.isTerminal(d.fd)
}

// IsCIEnvironment checks if the current environment is a CI/CD system
func (d *Detector) IsCIEnvironment() bool {
	for _, name := range ciEnvVars {
		value := d.getenv(name)
		if value == "" {
			continue
		}
		if name == "CI" {
			return isCITruthy(value)
		}
		return true
	}
	return false
}

// isCITruthy checks if a CI environment variable value should be considered "true"
// CI=false or CI=0 should not be considered a CI environment
func isCITruthy(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return lower != "false" && lower != "0" && lower != "no"
}
