package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func versionLine() string {
	return fmt.Sprintf("ptyguard version %s (commit: %s, built: %s)", Version, Commit, Date)
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionLine())
		},
	}
}
