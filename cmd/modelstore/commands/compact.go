package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCompactCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compact <file>...",
		Short: "Rewrite containers without dead space",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				reclaimed, err := a.store.Compact(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: reclaimed %s\n", path, humanize.IBytes(uint64(max(reclaimed, 0))))
			}
			return nil
		},
	}
}
