package tree

import "math"

// Neighbor describes the result of a nearest-neighbor search.
type Neighbor struct {
	ID       uint64
	Distance float64
}

// search accumulates the best candidate for a single query. It is created
// per query and never shared.
type search struct {
	query        *Point
	best         *Point
	bestDistance float64
	leaves       int
}

func newSearch(query *Point) *search {
	return &search{query: query, bestDistance: math.Inf(1)}
}

// bound returns the current best distance, or +Inf before any candidate.
func (s *search) bound() float64 {
	if s.best == nil {
		return math.Inf(1)
	}
	return s.bestDistance
}

// consider replaces the best candidate when p is strictly closer. Points
// sharing the query id are skipped.
func (s *search) consider(p *Point) {
	if p.id == s.query.id {
		return
	}
	d := s.query.Distance(p)
	if s.best == nil || d < s.bestDistance {
		s.best = p
		s.bestDistance = d
	}
}

func (s *search) result() (Neighbor, bool) {
	if s.best == nil {
		return Neighbor{}, false
	}
	return Neighbor{ID: s.best.id, Distance: s.bestDistance}, true
}
