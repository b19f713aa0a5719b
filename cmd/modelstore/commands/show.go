package commands

import (
	"github.com/spf13/cobra"

	"github.com/JIMMY-KSU/modelstore/internal/config"
	"github.com/JIMMY-KSU/modelstore/internal/container"
	"github.com/JIMMY-KSU/modelstore/internal/store"
)

// modelDetail is the machine-readable form of the show command.
type modelDetail struct {
	Path  string      `json:"path" yaml:"path"`
	Model modelView   `json:"model" yaml:"model"`
	Chain []modelView `json:"chain,omitempty" yaml:"chain,omitempty"`
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file> [name]",
		Short: "Show the metadata and producer chain of one model",
		Args:  usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, name := args[0], ""
			if len(args) == 2 {
				name = args[1]
			}
			if name == "" {
				name = a.cfg.Store.DefaultName
			}

			all, err := a.store.ListModels(cmd.Context(), path, store.ListOptions{IncludeChain: true})
			if err != nil {
				return err
			}
			byName := make(map[string]container.Metadata, len(all))
			for _, m := range all {
				byName[m.Name] = m
			}
			m, ok := byName[name]
			if !ok || m.IsChainMember() {
				return &container.NotFoundError{Path: path, Name: name}
			}

			var chain []container.Metadata
			for up := m.Upstream; up != "" && len(chain) < store.MaxChainLength; {
				c, ok := byName[up]
				if !ok {
					return &store.BrokenChainError{Path: path, Group: up, Referrer: name}
				}
				chain = append(chain, c)
				up = c.Upstream
			}

			w := cmd.OutOrStdout()
			if a.cfg.Output.Format != config.OutputTable {
				d := modelDetail{Path: path, Model: newModelView(m)}
				for _, c := range chain {
					d.Chain = append(d.Chain, newModelView(c))
				}
				return writeStructured(w, a.cfg.Output.Format, d)
			}
			renderModel(w, path, m, chain)
			return nil
		},
	}
}
