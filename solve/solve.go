// Package solve pairs every flight with its nearest neighbour and renders
// the result.
package solve

import (
	"context"
	"fmt"
	"io"

	"github.com/viant/spatial-search/flight"
	"github.com/viant/spatial-search/index"
	"golang.org/x/sync/errgroup"
)

// Pair links a flight to its nearest neighbour.
type Pair struct {
	Flight     flight.Flight
	Nearest    flight.Flight
	DistanceKm float64
}

// NearestFunc finds the flight closest to f, excluding f itself.
type NearestFunc func(ctx context.Context, f flight.Flight) (flight.Flight, bool, error)

// Solve inserts every flight into idx and then queries the nearest
// neighbour of each one. Queries run concurrently, at most parallelism at a
// time (unbounded when parallelism <= 0). Flight indexes must be unique.
func Solve(ctx context.Context, flights []flight.Flight, idx index.Index, parallelism int) ([]Pair, error) {
	byIndex := make(map[uint64]int, len(flights))
	for i, f := range flights {
		if _, dup := byIndex[f.Index]; dup {
			return nil, fmt.Errorf("solve: duplicate flight index %d", f.Index)
		}
		byIndex[f.Index] = i
		if err := idx.Insert(f.Index, f.Point()); err != nil {
			return nil, fmt.Errorf("solve: insert %s: %w", f.CallSign, err)
		}
	}
	return Run(ctx, flights, parallelism, func(_ context.Context, f flight.Flight) (flight.Flight, bool, error) {
		n, ok, err := idx.Nearest(f.Index, f.Point())
		if err != nil || !ok {
			return flight.Flight{}, false, err
		}
		return flights[byIndex[n.ID]], true, nil
	})
}

// Run queries nearest for every flight and returns pairs in input order.
// Flights without a neighbour are omitted; fewer than two flights yield no
// pairs.
func Run(ctx context.Context, flights []flight.Flight, parallelism int, nearest NearestFunc) ([]Pair, error) {
	if len(flights) < 2 {
		return nil, nil
	}
	pairs := make([]Pair, len(flights))
	found := make([]bool, len(flights))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := range flights {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, ok, err := nearest(ctx, flights[i])
			if err != nil {
				return fmt.Errorf("solve: nearest for %s: %w", flights[i].CallSign, err)
			}
			if ok {
				pairs[i] = Pair{Flight: flights[i], Nearest: n, DistanceKm: flights[i].DistanceKm(n)}
				found[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := pairs[:0]
	for i, p := range pairs {
		if found[i] {
			out = append(out, p)
		}
	}
	return out, nil
}

// Write prints one line per pair: both call signs left-aligned in eight
// columns, then the great-circle distance in kilometres.
func Write(w io.Writer, pairs []Pair) error {
	for _, p := range pairs {
		if _, err := fmt.Fprintf(w, "%-8s %-8s %8.2f\n", p.Flight.CallSign, p.Nearest.CallSign, p.DistanceKm); err != nil {
			return err
		}
	}
	return nil
}
