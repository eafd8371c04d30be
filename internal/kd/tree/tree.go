package tree

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	// ErrDimensionMismatch reports coordinates whose length differs from the tree dimensionality.
	ErrDimensionMismatch = errors.New("tree: dimension mismatch")
	// ErrInvalidCapacity reports a tree constructed with fewer than one dimension or leaf slot.
	ErrInvalidCapacity = errors.New("tree: invalid capacity")
	// ErrNonFiniteCoordinate reports a NaN or infinite coordinate.
	ErrNonFiniteCoordinate = errors.New("tree: non-finite coordinate")
)

// Tree is an adaptive kd-tree answering exact nearest-neighbor queries.
// Leaves split when they exceed their capacity; split dimensions rotate
// with depth. Insert takes an exclusive lock, queries share a read lock.
type Tree struct {
	root     *Node
	dims     int
	capacity int
	size     int
	firstID  uint64
	distinct bool // at least two different ids were inserted
	mu       sync.RWMutex
}

// Stats summarises the tree shape.
type Stats struct {
	Size             int
	Leaves           int
	Depth            int
	MaxLeafOccupancy int
}

// New constructs an empty tree for dims-dimensional points with the given
// leaf capacity.
func New(dims, leafCapacity int) (*Tree, error) {
	if dims < 1 {
		return nil, fmt.Errorf("%w: dimensions %d", ErrInvalidCapacity, dims)
	}
	if leafCapacity < 1 {
		return nil, fmt.Errorf("%w: leaf capacity %d", ErrInvalidCapacity, leafCapacity)
	}
	return &Tree{root: NewLeaf(leafCapacity), dims: dims, capacity: leafCapacity}, nil
}

// Dims returns the tree dimensionality.
func (t *Tree) Dims() int { return t.dims }

// LeafCapacity returns the configured leaf capacity.
func (t *Tree) LeafCapacity() int { return t.capacity }

// Insert adds a point to the tree. The tree is unchanged when the
// coordinates do not match its dimensionality.
func (t *Tree) Insert(id uint64, coords []float64) error {
	if err := t.check(coords); err != nil {
		return err
	}
	p := NewPoint(id, coords...)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.size == 0 {
		t.firstID = id
	} else if id != t.firstID {
		t.distinct = true
	}
	t.insert(p)
	t.size++
	return nil
}

func (t *Tree) insert(p *Point) {
	if t.root.kind == splitKind {
		t.root.add(p, t.dims)
		return
	}
	t.root.addPoint(p)
	if t.root.MustSplit() {
		t.root = t.root.promote(0, t.dims)
	}
}

// NearestNeighbor returns the point closest to coords whose id differs from
// id. ok is false when the tree holds fewer than two distinct ids or when
// every point shares the query id.
func (t *Tree) NearestNeighbor(id uint64, coords []float64) (Neighbor, bool, error) {
	n, _, ok, err := t.Search(id, coords)
	return n, ok, err
}

// Search behaves like NearestNeighbor and also reports how many leaves were
// scanned.
func (t *Tree) Search(id uint64, coords []float64) (neighbor Neighbor, leaves int, ok bool, err error) {
	if err = t.check(coords); err != nil {
		return Neighbor{}, 0, false, err
	}
	s := newSearch(&Point{id: id, coords: coords})
	t.mu.RLock()
	if !t.distinct {
		t.mu.RUnlock()
		return Neighbor{}, 0, false, nil
	}
	t.root.searchNearest(s)
	t.mu.RUnlock()
	neighbor, ok = s.result()
	return neighbor, s.leaves, ok, nil
}

// Size returns the number of points in the tree.
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.leafCount()
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.depth()
}

// MaxLeafOccupancy returns the largest number of points held by one leaf.
func (t *Tree) MaxLeafOccupancy() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.maxLeafOccupancy()
}

// Stats returns all shape diagnostics under a single lock.
func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{
		Size:             t.root.size(),
		Leaves:           t.root.leafCount(),
		Depth:            t.root.depth(),
		MaxLeafOccupancy: t.root.maxLeafOccupancy(),
	}
}

func (t *Tree) check(coords []float64) error {
	if len(coords) != t.dims {
		return fmt.Errorf("%w: got %d coordinates, want %d", ErrDimensionMismatch, len(coords), t.dims)
	}
	for i, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: coordinate %d is %v", ErrNonFiniteCoordinate, i, c)
		}
	}
	return nil
}
