package store

import (
	"context"
	"database/sql"
)

const flightsSchema = `
CREATE TABLE IF NOT EXISTS flights (
    snapshot  TEXT NOT NULL,
    idx       INTEGER NOT NULL,
    call_sign TEXT NOT NULL,
    latitude  REAL NOT NULL,
    longitude REAL NOT NULL,
    position  BLOB,
    PRIMARY KEY(snapshot, idx)
);
`

// EnsureSchema creates the flights table if it does not already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, flightsSchema)
	return err
}
