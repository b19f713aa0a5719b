package commands

import (
	"github.com/spf13/cobra"

	"github.com/JIMMY-KSU/modelstore/internal/config"
	"github.com/JIMMY-KSU/modelstore/internal/store"
)

func newListCommand(a *app) *cobra.Command {
	var (
		recursive    bool
		includeChain bool
	)

	cmd := &cobra.Command{
		Use:   "list <file|dir|glob>...",
		Short: "List the models in one or more containers",
		Long: `List the models stored in container files without reading their payloads.

Each argument may name a file, a directory or a glob pattern. Directories are
scanned for files with the configured extension; files that are not containers
are skipped unless they were named explicitly.`,
		Aliases: []string{"ls"},
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := store.ListOptions{IncludeChain: includeChain}

			var listings []store.FileListing
			for _, pattern := range args {
				found, err := a.store.ListModelsGlob(cmd.Context(), pattern, recursive, opts)
				if err != nil {
					return err
				}
				listings = append(listings, found...)
			}

			w := cmd.OutOrStdout()
			if a.cfg.Output.Format != config.OutputTable {
				return writeStructured(w, a.cfg.Output.Format, newFileViews(listings))
			}
			renderListing(w, listings)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().BoolVar(&includeChain, "include-chain", false, "also list stored upstream producers")
	return cmd
}
