package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <file> [name]",
		Short:   "Remove a model and its chain",
		Aliases: []string{"delete"},
		Args:    usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, name := args[0], ""
			if len(args) == 2 {
				name = args[1]
			}
			if err := a.store.Delete(cmd.Context(), path, name); err != nil {
				return err
			}
			if name == "" {
				name = a.cfg.Store.DefaultName
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", name, path)
			return nil
		},
	}
}
