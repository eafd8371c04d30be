package tree

// Point represents an identified location in the tree's coordinate space.
// Points are immutable once constructed.
type Point struct {
	id     uint64
	coords []float64
}

// NewPoint constructs a point for the given id and coordinates. The
// coordinates are copied.
func NewPoint(id uint64, coords ...float64) *Point {
	return &Point{id: id, coords: append([]float64(nil), coords...)}
}

// ID returns the caller-assigned identifier.
func (p *Point) ID() uint64 { return p.id }

// Dims returns the point dimensionality.
func (p *Point) Dims() int { return len(p.coords) }

// Coord returns the coordinate on the given dimension.
func (p *Point) Coord(dim int) float64 { return p.coords[dim] }

// Coords returns a copy of the coordinate vector.
func (p *Point) Coords() []float64 { return append([]float64(nil), p.coords...) }

// Distance returns the Euclidean distance to other. Both points must share
// the same dimensionality.
func (p *Point) Distance(other *Point) float64 {
	return EuclideanDistance(p, other)
}

func (p *Point) sameLocation(other *Point) bool {
	for i, c := range p.coords {
		if other.coords[i] != c {
			return false
		}
	}
	return true
}
