package bruteforce

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/viant/spatial-search/index"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrDimensionMismatch reports coordinates whose length differs from the index dimensionality.
	ErrDimensionMismatch = errors.New("bruteforce: dimension mismatch")
	// ErrNonFiniteCoordinate reports a NaN or infinite coordinate.
	ErrNonFiniteCoordinate = errors.New("bruteforce: non-finite coordinate")
)

// Index is a brute-force Euclidean nearest-neighbour index.
type Index struct {
	ids      []uint64
	vecs     [][]float64
	dim      int
	distinct bool // at least two different ids were inserted
	mu       sync.RWMutex
}

// New constructs an empty index for dim-dimensional points.
func New(dim int) (*Index, error) {
	if dim < 1 {
		return nil, fmt.Errorf("bruteforce: invalid dimension %d", dim)
	}
	return &Index{dim: dim}, nil
}

// Insert appends a point.
func (i *Index) Insert(id uint64, coords []float64) error {
	if err := i.check(coords); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.ids) > 0 && id != i.ids[0] {
		i.distinct = true
	}
	i.ids = append(i.ids, id)
	i.vecs = append(i.vecs, append([]float64(nil), coords...))
	return nil
}

// Nearest scans every point and returns the closest one with a different id.
// ok is false while fewer than two distinct ids are stored.
func (i *Index) Nearest(id uint64, coords []float64) (index.Neighbor, bool, error) {
	if err := i.check(coords); err != nil {
		return index.Neighbor{}, false, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	if !i.distinct {
		return index.Neighbor{}, false, nil
	}
	best := -1
	var bestDistance float64
	for j, vec := range i.vecs {
		if i.ids[j] == id {
			continue
		}
		d := floats.Distance(coords, vec, 2)
		if best < 0 || d < bestDistance {
			best, bestDistance = j, d
		}
	}
	if best < 0 {
		return index.Neighbor{}, false, nil
	}
	return index.Neighbor{ID: i.ids[best], Distance: bestDistance}, true, nil
}

// Len returns the number of stored points.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ids)
}

func (i *Index) check(coords []float64) error {
	if len(coords) != i.dim {
		return fmt.Errorf("%w: got %d coordinates, want %d", ErrDimensionMismatch, len(coords), i.dim)
	}
	for j, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: coordinate %d is %v", ErrNonFiniteCoordinate, j, c)
		}
	}
	return nil
}

var _ index.Index = (*Index)(nil)
