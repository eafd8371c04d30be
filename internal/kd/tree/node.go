package tree

import (
	"cmp"
	"slices"
)

type kind uint8

const (
	leafKind kind = iota
	splitKind
)

// Node is a branch of the tree: either a leaf holding points or a split
// node routing points to one of two children by a single-dimension threshold.
type Node struct {
	kind kind

	// leaf
	capacity  int
	points    []*Point
	saturated bool

	// split
	dimension int
	threshold float64
	low       *Node
	high      *Node
}

// NewLeaf constructs an empty leaf holding up to capacity points.
func NewLeaf(capacity int) *Node {
	return &Node{kind: leafKind, capacity: capacity}
}

func newSplit(dimension int, threshold float64, low, high *Node) *Node {
	return &Node{kind: splitKind, dimension: dimension, threshold: threshold, low: low, high: high}
}

// IsLeaf reports whether the node holds points directly.
func (n *Node) IsLeaf() bool { return n.kind == leafKind }

// MustSplit reports whether a leaf exceeded its capacity. Split nodes and
// saturated leaves never need splitting.
func (n *Node) MustSplit() bool {
	return n.kind == leafKind && !n.saturated && len(n.points) > n.capacity
}

// slot returns the child slot a point routes to. Points on the threshold go
// high.
func (n *Node) slot(p *Point) **Node {
	if p.Coord(n.dimension) < n.threshold {
		return &n.low
	}
	return &n.high
}

// add deposits p below n, promoting an overflowing child leaf in place.
// n must be a split node; leaves are handled by the caller owning their slot.
func (n *Node) add(p *Point, dims int) {
	slot := n.slot(p)
	child := *slot
	if child.kind == splitKind {
		child.add(p, dims)
		return
	}
	child.addPoint(p)
	if child.MustSplit() {
		*slot = child.promote((n.dimension+1)%dims, dims)
	}
}

func (n *Node) addPoint(p *Point) {
	if n.saturated && !p.sameLocation(n.points[0]) {
		n.saturated = false
	}
	n.points = append(n.points, p)
}

// promote replaces an overflowing leaf with a split node owning the shrunk
// leaf and its new sibling. Dimensions are tried in rotation starting at
// dimension; constant dimensions are skipped. When every dimension is
// constant the leaf is marked saturated and returned unchanged.
//
// A leaf holding capacity+1 points always splits into halves within
// capacity. A leaf that was saturated can be far larger, so oversized
// halves are promoted again before the split node is published.
func (n *Node) promote(dimension, dims int) *Node {
	for i := 0; i < dims; i++ {
		d := (dimension + i) % dims
		value, sibling, ok := n.Split(d)
		if !ok {
			continue
		}
		next := (d + 1) % dims
		low, high := n, sibling
		if low.MustSplit() {
			low = low.promote(next, dims)
		}
		if high.MustSplit() {
			high = high.promote(next, dims)
		}
		return newSplit(d, value, low, high)
	}
	n.saturated = true
	return n
}

// Split sorts the leaf along dimension and moves the upper half into a new
// sibling leaf, returning the threshold separating them. The split point
// never cuts through a run of equal coordinates: it moves down to the start
// of the run, or past its end when the run starts at the first point. ok is
// false when all points share the same coordinate on dimension; the leaf is
// then left unchanged.
func (n *Node) Split(dimension int) (value float64, sibling *Node, ok bool) {
	size := len(n.points)
	if size < 2 {
		return 0, nil, false
	}
	slices.SortStableFunc(n.points, func(a, b *Point) int {
		return cmp.Compare(a.Coord(dimension), b.Coord(dimension))
	})
	mid := size / 2
	for mid > 0 && n.points[mid-1].Coord(dimension) == n.points[mid].Coord(dimension) {
		mid--
	}
	if mid == 0 {
		first := n.points[0].Coord(dimension)
		for mid < size && n.points[mid].Coord(dimension) == first {
			mid++
		}
		if mid == size {
			return 0, nil, false
		}
	}
	value = n.points[mid].Coord(dimension)
	sibling = NewLeaf(n.capacity)
	sibling.points = slices.Clone(n.points[mid:])
	clear(n.points[mid:])
	n.points = n.points[:mid]
	return value, sibling, true
}

func (n *Node) searchNearest(s *search) {
	if n.kind == leafKind {
		s.leaves++
		for _, p := range n.points {
			s.consider(p)
		}
		return
	}
	t := s.query.Coord(n.dimension)
	if t < n.threshold {
		n.low.searchNearest(s)
		if t+s.bound() >= n.threshold {
			n.high.searchNearest(s)
		}
		return
	}
	n.high.searchNearest(s)
	if t-s.bound() < n.threshold {
		n.low.searchNearest(s)
	}
}

func (n *Node) size() int {
	if n.kind == leafKind {
		return len(n.points)
	}
	return n.low.size() + n.high.size()
}

func (n *Node) leafCount() int {
	if n.kind == leafKind {
		return 1
	}
	return n.low.leafCount() + n.high.leafCount()
}

func (n *Node) depth() int {
	if n.kind == leafKind {
		return 1
	}
	return max(n.low.depth(), n.high.depth()) + 1
}

func (n *Node) maxLeafOccupancy() int {
	if n.kind == leafKind {
		return len(n.points)
	}
	return max(n.low.maxLeafOccupancy(), n.high.maxLeafOccupancy())
}
