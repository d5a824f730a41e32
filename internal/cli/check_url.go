package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/isseis/go-safe-pty-guard/internal/color"
	"github.com/isseis/go-safe-pty-guard/internal/guard/urlcheck"
	"github.com/spf13/cobra"
)

// ErrInvalidURLs is returned by check-url when any argument is rejected.
var ErrInvalidURLs = errors.New("invalid urls")

func (a *app) checkURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-url <url>...",
		Short: "Check whether URLs may be opened externally",
		Long: fmt.Sprintf(`Check one or more URLs against the external-open policy.

Only fully formed URLs with one of these schemes pass: %s
Each argument is printed with its verdict; rejected arguments are quoted.

Exit code 0 if every URL is valid, 1 otherwise.`, strings.Join(urlcheck.AllowedSchemes(), " ")),
		Args: cobra.MinimumNArgs(1),
		RunE: a.runCheckURL,
	}
}

func (a *app) runCheckURL(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	palette := color.PaletteFor(out, a.getenv)
	invalid := 0
	for _, arg := range args {
		if urlcheck.IsValidExternalURL(arg) {
			fmt.Fprintf(out, "%s\t%s\n", palette.Accept("valid"), printable(arg))
			continue
		}
		invalid++
		// Rejected input may hold control characters; never echo it raw.
		fmt.Fprintf(out, "%s\t%q\n", palette.Reject("invalid"), arg)
	}
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d rejected", ErrInvalidURLs, invalid, len(args))
	}
	return nil
}

// printable returns s, or its quoted form when s holds non-printable runes
// such as C1 control characters, which the URL parser lets through.
func printable(s string) string {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return strconv.Quote(s)
		}
	}
	return s
}
