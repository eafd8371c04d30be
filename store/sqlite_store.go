package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/viant/spatial-search/flight"
	"github.com/viant/spatial-search/logging"
	"github.com/viant/spatial-search/vector"
)

// SQLiteStore implements Store on a SQLite database opened with
// engine.Open, which provides the vec_l2 function used by Nearest.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a SQLite-backed Store, ensuring the schema exists.
func NewSQLiteStore(ctx context.Context, db *sql.DB, logger *slog.Logger) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger.With("component", "store")}, nil
}

// Save replaces the snapshot content in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, snapshot string, flights []flight.Flight) error {
	if snapshot == "" {
		return fmt.Errorf("store: snapshot name is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM flights WHERE snapshot = ?`, snapshot); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO flights(snapshot, idx, call_sign, latitude, longitude, position) VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range flights {
		pos, err := vector.EncodePoint(f.Point())
		if err != nil {
			return fmt.Errorf("store: flight %s: %w", f.CallSign, err)
		}
		if _, err := stmt.ExecContext(ctx, snapshot, int64(f.Index), f.CallSign, f.LatitudeDeg(), f.LongitudeDeg(), pos); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("snapshot saved", "snapshot", snapshot, "count", len(flights))
	return nil
}

// Load returns the flights of snapshot ordered by index.
func (s *SQLiteStore) Load(ctx context.Context, snapshot string) ([]flight.Flight, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, call_sign, latitude, longitude FROM flights WHERE snapshot = ? ORDER BY idx`, snapshot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []flight.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshots lists snapshot names in lexical order.
func (s *SQLiteStore) Snapshots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT snapshot FROM flights ORDER BY snapshot`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Nearest orders the snapshot by vec_l2 distance to f's projected position.
// A snapshot holding fewer than two flights has no nearest pair. Positions
// are stored as float32, so near-ties may resolve differently from the
// float64 indexes.
func (s *SQLiteStore) Nearest(ctx context.Context, snapshot string, f flight.Flight) (flight.Flight, bool, error) {
	pos, err := vector.EncodePoint(f.Point())
	if err != nil {
		return flight.Flight{}, false, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT idx, call_sign, latitude, longitude FROM flights
WHERE snapshot = ? AND idx <> ?
  AND (SELECT COUNT(*) FROM flights WHERE snapshot = ?) >= 2
ORDER BY vec_l2(position, ?), idx
LIMIT 1`, snapshot, int64(f.Index), snapshot, pos)
	nearest, err := scanFlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return flight.Flight{}, false, nil
	}
	if err != nil {
		return flight.Flight{}, false, err
	}
	return nearest, true, nil
}

// Remove deletes every row of snapshot.
func (s *SQLiteStore) Remove(ctx context.Context, snapshot string) error {
	if snapshot == "" {
		return fmt.Errorf("store: Remove called with empty snapshot")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM flights WHERE snapshot = ?`, snapshot)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlight(row scanner) (flight.Flight, error) {
	var (
		idx      int64
		callSign string
		lat, lon float64
	)
	if err := row.Scan(&idx, &callSign, &lat, &lon); err != nil {
		return flight.Flight{}, err
	}
	return flight.New(uint64(idx), callSign, lat, lon), nil
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
