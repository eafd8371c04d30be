// Package cli implements the flightnn command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/viant/spatial-search/config"
	"github.com/viant/spatial-search/flight"
	"github.com/viant/spatial-search/logging"
)

type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the flightnn command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "flightnn",
		Short:         "Pair every flight with its nearest neighbour",
		Long:          `flightnn reads aircraft positions and reports, for each one, the closest other aircraft by great-circle distance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(newNearestCommand(a), newImportCommand(a), newStatsCommand(a))
	return root
}

// Execute runs the root command with process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With("command", cmd.Name())
	return nil
}

// override copies explicitly set flag values over the configuration.
func (a *app) override(cmd *cobra.Command, f *sourceFlags) {
	set := cmd.Flags().Changed
	if set("input") {
		a.cfg.Input = f.input
	}
	if set("db") {
		a.cfg.Database = f.database
	}
	if set("snapshot") {
		a.cfg.Snapshot = f.snapshot
	}
	if set("index") {
		a.cfg.Index = f.index
	}
	if set("leaf-capacity") {
		a.cfg.LeafCapacity = f.leafCapacity
	}
	if set("parallelism") {
		a.cfg.Parallelism = f.parallelism
	}
}

type sourceFlags struct {
	input        string
	database     string
	snapshot     string
	index        string
	leafCapacity int
	parallelism  int
}

func (f *sourceFlags) bindInput(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "flight CSV file (.gz, .zst and .lz4 are decompressed)")
}

func (f *sourceFlags) bindStore(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.database, "db", "", "SQLite database path")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "snapshot name inside the database")
}

func (a *app) readInput(ctx context.Context) ([]flight.Flight, error) {
	if a.cfg.Input == "" {
		return nil, fmt.Errorf("cli: no input file")
	}
	return flight.ReadFile(ctx, a.cfg.Input, a.logger)
}
