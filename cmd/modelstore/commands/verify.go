package commands

import (
	"github.com/spf13/cobra"

	"github.com/JIMMY-KSU/modelstore/internal/config"
)

func newVerifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Recompute digests and decode every payload header",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			views := make([]verifyView, 0, len(args))
			var failure error

			for _, path := range args {
				report, err := a.store.Verify(cmd.Context(), path)
				if err != nil {
					return err
				}
				if failed := report.Failed(); len(failed) > 0 && failure == nil {
					failure = &verifyFailedError{path: path, failed: len(failed), first: failed[0].Err}
				}
				if a.cfg.Output.Format == config.OutputTable {
					renderVerify(w, report)
					continue
				}
				views = append(views, newVerifyView(report))
			}

			if a.cfg.Output.Format != config.OutputTable {
				if err := writeStructured(w, a.cfg.Output.Format, views); err != nil {
					return err
				}
			}
			return failure
		},
	}
}
