package environment

import (
	"errors"
	"fmt"
	"strings"
)

// Error definitions
var (
	ErrVariableNameEmpty   = errors.New("variable name cannot be empty")
	ErrInvalidVariableName = errors.New("invalid variable name")
	ErrInvalidValue        = errors.New("invalid variable value")
)

// ValidateEntry checks that name and value can be placed in a process environment block.
func ValidateEntry(name, value string) error {
	if name == "" {
		return ErrVariableNameEmpty
	}
	if strings.ContainsAny(name, "=\x00") {
		return fmt.Errorf("%w: %q (contains '=' or NUL)", ErrInvalidVariableName, name)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%w: %s (contains NUL)", ErrInvalidValue, name)
	}
	return nil
}

// ValidateOverrides checks every override entry and reports all failures at once.
// BuildSafeEnvironment itself accepts any override; callers that load overrides
// from configuration use this to reject them early.
func ValidateOverrides(overrides map[string]string) error {
	var errs []error
	for name, value := range overrides {
		if err := ValidateEntry(name, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
