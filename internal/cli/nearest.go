package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/viant/spatial-search/flight"
	"github.com/viant/spatial-search/index"
	"github.com/viant/spatial-search/index/bruteforce"
	"github.com/viant/spatial-search/index/kd"
	"github.com/viant/spatial-search/nearest"
	"github.com/viant/spatial-search/solve"
	"github.com/viant/spatial-search/store"
)

const pairsTable = "flightnn_pairs"

func newNearestCommand(a *app) *cobra.Command {
	f := &sourceFlags{}
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "Print the nearest neighbour of every flight",
		Long: `Reads flights from --input, or from a stored snapshot when only --db is
given, and prints one line per flight: call sign, nearest call sign and the
great-circle distance in kilometres.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.override(cmd, f)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runNearest(cmd, cmd.Flags().Changed("input"))
		},
	}
	f.bindInput(cmd)
	f.bindStore(cmd)
	cmd.Flags().StringVar(&f.index, "index", "", "index kind: kd, brute, sql or vtab")
	cmd.Flags().IntVar(&f.leafCapacity, "leaf-capacity", 0, "kd-tree leaf capacity")
	cmd.Flags().IntVarP(&f.parallelism, "parallelism", "p", 0, "concurrent queries (0 means unbounded)")
	return cmd
}

func (a *app) runNearest(cmd *cobra.Command, explicitInput bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	kind, err := index.ParseKind(a.cfg.Index)
	if err != nil {
		return err
	}
	started := time.Now()
	var pairs []solve.Pair
	if kind.Stored() {
		pairs, err = a.nearestStored(ctx, kind, explicitInput)
	} else {
		pairs, err = a.nearestInMemory(ctx, kind, explicitInput)
	}
	if err != nil {
		return err
	}
	a.logger.Info("nearest neighbours computed", "index", kind, "pairs", len(pairs), "elapsed", time.Since(started))
	return solve.Write(cmd.OutOrStdout(), pairs)
}

func (a *app) nearestInMemory(ctx context.Context, kind index.Kind, explicitInput bool) ([]solve.Pair, error) {
	flights, err := a.loadFlights(ctx, explicitInput)
	if err != nil {
		return nil, err
	}
	idx, err := a.newIndex(kind)
	if err != nil {
		return nil, err
	}
	return solve.Solve(ctx, flights, idx, a.cfg.Parallelism)
}

// nearestStored answers from a database snapshot, importing --input first
// when it was given.
func (a *app) nearestStored(ctx context.Context, kind index.Kind, explicitInput bool) ([]solve.Pair, error) {
	st, db, closeDB, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeDB()
	snapshot := a.cfg.Snapshot
	if explicitInput {
		flights, err := a.readInput(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Save(ctx, snapshot, flights); err != nil {
			return nil, err
		}
	}
	flights, err := st.Load(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	if kind == index.KindVTab {
		return a.nearestVTab(ctx, db, st, flights)
	}
	return solve.Run(ctx, flights, a.cfg.Parallelism, func(ctx context.Context, f flight.Flight) (flight.Flight, bool, error) {
		return st.Nearest(ctx, snapshot, f)
	})
}

// nearestVTab queries a temporary flight_nearest table. Temporary tables live
// on one connection, so the statements share a dedicated one.
func (a *app) nearestVTab(ctx context.Context, db *sql.DB, st *store.SQLiteStore, flights []flight.Flight) ([]solve.Pair, error) {
	if err := nearest.Register(db, st, a.logger); err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	create := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS temp.%s USING flight_nearest(leaf_capacity=%d)", pairsTable, a.cfg.LeafCapacity)
	if _, err := conn.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("cli: create %s: %w", pairsTable, err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT flight_nearest_invalidate(?)", a.cfg.Snapshot); err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, "SELECT rowid, nearest_idx, distance_km FROM temp."+pairsTable+" WHERE snapshot = ? ORDER BY rowid", a.cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byIndex := make(map[uint64]flight.Flight, len(flights))
	for _, f := range flights {
		byIndex[f.Index] = f
	}
	var pairs []solve.Pair
	for rows.Next() {
		var idx, nearestIdx int64
		var distance float64
		if err := rows.Scan(&idx, &nearestIdx, &distance); err != nil {
			return nil, err
		}
		pairs = append(pairs, solve.Pair{
			Flight:     byIndex[uint64(idx)],
			Nearest:    byIndex[uint64(nearestIdx)],
			DistanceKm: distance,
		})
	}
	return pairs, rows.Err()
}

// loadFlights reads the input file unless only a database was configured.
func (a *app) loadFlights(ctx context.Context, explicitInput bool) ([]flight.Flight, error) {
	if a.cfg.Database == "" || explicitInput {
		return a.readInput(ctx)
	}
	st, _, closeDB, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeDB()
	return st.Load(ctx, a.cfg.Snapshot)
}

func (a *app) newIndex(kind index.Kind) (index.Index, error) {
	switch kind {
	case index.KindKD:
		return kd.New(3, kd.WithLeafCapacity(a.cfg.LeafCapacity), kd.WithLogger(a.logger))
	case index.KindBrute:
		return bruteforce.New(3)
	default:
		return nil, fmt.Errorf("cli: index %q is not an in-memory index", kind)
	}
}
