package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JIMMY-KSU/modelstore/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "modelstore %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
