package index

import (
	"fmt"
	"strings"
)

// Index defines a nearest-neighbour strategy over identified points. Points
// are inserted one at a time; queries exclude candidates sharing the query id.
type Index interface {
	// Insert adds a point. coords must match the index dimensionality.
	Insert(id uint64, coords []float64) error

	// Nearest returns the closest point whose id differs from id. ok is false
	// when the index holds no such point.
	Nearest(id uint64, coords []float64) (neighbor Neighbor, ok bool, err error)

	// Len returns the number of inserted points.
	Len() int
}

// Neighbor is a nearest-neighbour match.
type Neighbor struct {
	ID       uint64
	Distance float64
}

// Kind names an Index implementation.
type Kind string

const (
	KindKD    Kind = "kd"
	KindBrute Kind = "brute"
	// KindSQL scans a stored snapshot with the vec_l2 SQL function.
	KindSQL Kind = "sql"
	// KindVTab serves a kd index over a stored snapshot through the
	// flight_nearest virtual table.
	KindVTab Kind = "vtab"
)

// Stored reports whether the kind reads flights from a database.
func (k Kind) Stored() bool { return k == KindSQL || k == KindVTab }

// ParseKind resolves a strategy name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case KindKD, KindBrute, KindSQL, KindVTab:
		return k, nil
	case "", "auto":
		return KindKD, nil
	default:
		return "", fmt.Errorf("index: unknown kind %q", name)
	}
}
