// Package commands implements the modelstore CLI commands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JIMMY-KSU/modelstore/internal/config"
	"github.com/JIMMY-KSU/modelstore/internal/observability"
	"github.com/JIMMY-KSU/modelstore/internal/store"
)

// app is the state shared by every command, built before a command runs.
type app struct {
	configPath string
	output     string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
}

// NewRootCommand builds the modelstore command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "modelstore",
		Short: "Inspect and maintain model container files",
		Long: `modelstore manages container files holding named, versioned models.

Commands:
  list      List the models in one or more containers
  show      Show the metadata and producer chain of one model
  verify    Recompute digests and decode every payload header
  cp        Copy a model and its chain to another container
  rm        Remove a model and its chain
  compact   Rewrite a container without dead space`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./modelstore.yaml or ~/.config/modelstore/modelstore.yaml)")
	flags.StringVarP(&a.output, "output", "o", "", "output format: table, json or yaml")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newListCommand(a),
		newShowCommand(a),
		newVerifyCommand(a),
		newCopyCommand(a),
		newRemoveCommand(a),
		newCompactCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return &usageError{err: err}
	}
	if a.output != "" {
		cfg.Output.Format = a.output
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	switch cfg.Output.Format {
	case config.OutputTable, config.OutputJSON, config.OutputYAML:
	default:
		return &usageError{err: fmt.Errorf("%w: %q", config.ErrInvalidOutputFormat, cfg.Output.Format)}
	}

	logger, err := observability.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return &usageError{err: err}
	}

	switch cfg.Output.Color {
	case config.ColorAlways:
		color.NoColor = false //nolint:reassign // explicit override of library global
	case config.ColorNever:
		color.NoColor = true //nolint:reassign // explicit override of library global
	}

	a.cfg = cfg
	a.logger = logger
	a.store = store.New(append(cfg.StoreOptions(), store.WithLogger(logger))...)
	return nil
}
