// Package color wraps verdicts printed by the CLI in ANSI colors when the
// output is a terminal.
//
//nolint:revive // package name conflicts with standard library
package color

import (
	"io"
	"os"

	"golang.org/x/term"
)

const (
	resetCode = "\033[0m"
	greenCode = "\033[32m"
	redCode   = "\033[31m"
)

// Color wraps text with ANSI escape sequences.
type Color func(text string) string

// NewColor creates a color function with the specified ANSI code.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		return ansiCode + text + resetCode
	}
}

var (
	// Green marks accepted items
	Green = NewColor(greenCode)
	// Red marks rejected items
	Red = NewColor(redCode)
)

// Plain returns text unchanged.
func Plain(text string) string { return text }

// Palette holds the colors used for one output stream.
type Palette struct {
	Accept Color
	Reject Color
}

// PaletteFor returns a colored palette when w is a terminal and NO_COLOR is
// unset (https://no-color.org), and a plain one otherwise.
func PaletteFor(w io.Writer, getenv func(string) string) Palette {
	if Enabled(w, getenv) {
		return Palette{Accept: Green, Reject: Red}
	}
	return Palette{Accept: Plain, Reject: Plain}
}

// Enabled reports whether w should receive colored output.
func Enabled(w io.Writer, getenv func(string) string) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
