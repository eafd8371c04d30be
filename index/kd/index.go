package kd

import (
	"fmt"
	"log/slog"

	"github.com/viant/spatial-search/index"
	"github.com/viant/spatial-search/internal/kd/tree"
	"github.com/viant/spatial-search/logging"
)

// Stats summarises the shape of the underlying tree.
type Stats = tree.Stats

var (
	// ErrDimensionMismatch reports coordinates whose length differs from the index dimensionality.
	ErrDimensionMismatch = tree.ErrDimensionMismatch
	// ErrInvalidCapacity reports an index constructed with fewer than one dimension or leaf slot.
	ErrInvalidCapacity = tree.ErrInvalidCapacity
	// ErrNonFiniteCoordinate reports a NaN or infinite coordinate.
	ErrNonFiniteCoordinate = tree.ErrNonFiniteCoordinate
)

// Index implements index.Index on top of an adaptive kd-tree.
type Index struct {
	tree    *tree.Tree
	logger  *slog.Logger
	metrics *metrics
}

// New constructs an empty index for dims-dimensional points.
func New(dims int, opts ...Option) (*Index, error) {
	o := options{leafCapacity: DefaultLeafCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	t, err := tree.New(dims, o.leafCapacity)
	if err != nil {
		return nil, fmt.Errorf("kd: %w", err)
	}
	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("kd: register metrics: %w", err)
	}
	logger := o.logger.With("component", "kd")
	logger.Debug("index created", "dimensions", dims, "leaf_capacity", o.leafCapacity)
	return &Index{tree: t, logger: logger, metrics: m}, nil
}

// Insert adds a point to the tree.
func (i *Index) Insert(id uint64, coords []float64) error {
	if err := i.tree.Insert(id, coords); err != nil {
		i.metrics.insertErrors.Inc()
		i.logger.Warn("insert rejected", "id", id, "error", err)
		return err
	}
	i.metrics.inserts.Inc()
	return nil
}

// Nearest returns the closest point whose id differs from id.
func (i *Index) Nearest(id uint64, coords []float64) (index.Neighbor, bool, error) {
	n, leaves, ok, err := i.tree.Search(id, coords)
	if err != nil {
		return index.Neighbor{}, false, err
	}
	i.metrics.queries.Inc()
	i.metrics.leavesVisited.Observe(float64(leaves))
	if !ok {
		return index.Neighbor{}, false, nil
	}
	return index.Neighbor{ID: n.ID, Distance: n.Distance}, true, nil
}

// Len returns the number of inserted points.
func (i *Index) Len() int { return i.tree.Size() }

// Stats reports the tree shape.
func (i *Index) Stats() Stats { return i.tree.Stats() }

var _ index.Index = (*Index)(nil)
