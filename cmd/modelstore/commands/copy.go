package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JIMMY-KSU/modelstore/internal/store"
)

func newCopyCommand(a *app) *cobra.Command {
	var opts store.CopyOptions

	cmd := &cobra.Command{
		Use:   "cp <src> <name> <dst>",
		Short: "Copy a model and its chain to another container",
		Long: `Copy a model, together with any stored upstream producers, into another
container. The destination is created if it does not exist. Without --as the
model keeps its name and its payload bytes.`,
		Args: usageArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, name, dst := args[0], args[1], args[2]
			if err := a.store.Copy(cmd.Context(), src, name, dst, opts); err != nil {
				return err
			}
			target := name
			if opts.NewName != "" {
				target = opts.NewName
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %s:%s to %s:%s\n", src, name, dst, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.NewName, "as", "", "name of the copy in the destination")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing model of the same name")
	return cmd
}
