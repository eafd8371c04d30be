package store

import (
	"context"

	"github.com/viant/spatial-search/flight"
)

// Store defines snapshot storage for flight positions.
type Store interface {
	// Save writes flights under snapshot, replacing any previous content.
	Save(ctx context.Context, snapshot string, flights []flight.Flight) error

	// Load returns the flights of a snapshot ordered by index.
	Load(ctx context.Context, snapshot string) ([]flight.Flight, error)

	// Snapshots lists stored snapshot names.
	Snapshots(ctx context.Context) ([]string, error)

	// Nearest returns the flight of snapshot closest to f, excluding f's index.
	Nearest(ctx context.Context, snapshot string, f flight.Flight) (flight.Flight, bool, error)

	// Remove deletes a snapshot.
	Remove(ctx context.Context, snapshot string) error
}
