package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/spatial-search/engine"
	"github.com/viant/spatial-search/store"
)

func newImportCommand(a *app) *cobra.Command {
	f := &sourceFlags{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a flight file as a database snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.override(cmd, f)
			if a.cfg.Database == "" {
				return fmt.Errorf("cli: --db is required")
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			flights, err := a.readInput(ctx)
			if err != nil {
				return err
			}
			st, _, closeDB, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeDB()
			if err := st.Save(ctx, a.cfg.Snapshot, flights); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d flights into snapshot %q\n", len(flights), a.cfg.Snapshot)
			return err
		},
	}
	f.bindInput(cmd)
	f.bindStore(cmd)
	return cmd
}

func (a *app) openStore(ctx context.Context) (*store.SQLiteStore, *sql.DB, func(), error) {
	if a.cfg.Database == "" {
		return nil, nil, nil, fmt.Errorf("cli: no database configured")
	}
	db, err := engine.Open(a.cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cli: open %s: %w", a.cfg.Database, err)
	}
	st, err := store.NewSQLiteStore(ctx, db, a.logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return st, db, func() {
		if err := db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}, nil
}
