package tree

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func mustTree(t *testing.T, dims, capacity int) *Tree {
	t.Helper()
	tr, err := New(dims, capacity)
	if err != nil {
		t.Fatalf("New(%d, %d) failed: %v", dims, capacity, err)
	}
	return tr
}

func mustInsert(t *testing.T, tr *Tree, id uint64, coords ...float64) {
	t.Helper()
	if err := tr.Insert(id, coords); err != nil {
		t.Fatalf("Insert(%d, %v) failed: %v", id, coords, err)
	}
}

// bruteNearest scans every point, excluding the query id.
func bruteNearest(points map[uint64][]float64, id uint64, coords []float64) (Neighbor, bool) {
	query := NewPoint(id, coords...)
	var best Neighbor
	found := false
	for pid, pc := range points {
		if pid == id {
			continue
		}
		d := query.Distance(NewPoint(pid, pc...))
		if !found || d < best.Distance {
			best = Neighbor{ID: pid, Distance: d}
			found = true
		}
	}
	return best, found
}

// walkLeaves visits every leaf with the split constraints on its path.
type constraint struct {
	dimension int
	threshold float64
	high      bool
}

func walkLeaves(n *Node, path []constraint, fn func(leaf *Node, path []constraint)) {
	if n.IsLeaf() {
		fn(n, path)
		return
	}
	walkLeaves(n.low, append(append([]constraint(nil), path...), constraint{n.dimension, n.threshold, false}), fn)
	walkLeaves(n.high, append(append([]constraint(nil), path...), constraint{n.dimension, n.threshold, true}), fn)
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, tc := range []struct{ dims, capacity int }{{0, 4}, {3, 0}, {-1, -1}} {
		if _, err := New(tc.dims, tc.capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("New(%d, %d) err = %v, want ErrInvalidCapacity", tc.dims, tc.capacity, err)
		}
	}
}

func TestInsert_DimensionMismatch(t *testing.T) {
	tr := mustTree(t, 3, 4)
	if err := tr.Insert(1, []float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Insert err = %v, want ErrDimensionMismatch", err)
	}
	if tr.Size() != 0 {
		t.Fatalf("Size after failed insert = %d, want 0", tr.Size())
	}
	if _, _, err := tr.NearestNeighbor(1, []float64{1, 2, 3, 4}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("NearestNeighbor err = %v, want ErrDimensionMismatch", err)
	}
}

func TestNearestNeighbor_Scenario(t *testing.T) {
	tr := mustTree(t, 2, 2)
	mustInsert(t, tr, 1, 0, 0)
	mustInsert(t, tr, 2, 10, 10)
	if tr.LeafCount() != 1 {
		t.Fatalf("LeafCount before overflow = %d, want 1", tr.LeafCount())
	}
	mustInsert(t, tr, 3, 0, 1)
	if tr.LeafCount() != 2 || tr.Depth() != 2 {
		t.Fatalf("after overflow leaves=%d depth=%d, want 2 and 2", tr.LeafCount(), tr.Depth())
	}
	got, ok, err := tr.NearestNeighbor(1, []float64{0, 0})
	if err != nil || !ok {
		t.Fatalf("NearestNeighbor = %v, %v, %v", got, ok, err)
	}
	if got.ID != 3 || got.Distance != 1 {
		t.Fatalf("NearestNeighbor = %+v, want {3 1}", got)
	}
}

func TestNearestNeighbor_EmptyAndSingle(t *testing.T) {
	tr := mustTree(t, 2, 2)
	if _, ok, err := tr.NearestNeighbor(1, []float64{0, 0}); err != nil || ok {
		t.Fatalf("empty tree: ok=%v err=%v, want none", ok, err)
	}
	mustInsert(t, tr, 1, 5, 5)
	if _, ok, err := tr.NearestNeighbor(1, []float64{5, 5}); err != nil || ok {
		t.Fatalf("single point queried by own id: ok=%v err=%v, want none", ok, err)
	}
	if got, ok, err := tr.NearestNeighbor(2, []float64{5, 8}); err != nil || ok {
		t.Fatalf("single point queried by foreign id = %+v, %v, %v; want none", got, ok, err)
	}
	mustInsert(t, tr, 2, 5, 8)
	got, ok, err := tr.NearestNeighbor(3, []float64{5, 9})
	if err != nil || !ok || got.ID != 2 || got.Distance != 1 {
		t.Fatalf("two points = %+v, %v, %v; want {2 1}", got, ok, err)
	}
}

func TestNearestNeighbor_SingleIDInsertedTwice(t *testing.T) {
	tr := mustTree(t, 2, 4)
	mustInsert(t, tr, 7, 1, 1)
	mustInsert(t, tr, 7, 1, 1)
	if got, ok, err := tr.NearestNeighbor(9, []float64{1, 1}); err != nil || ok {
		t.Fatalf("one distinct id = %+v, %v, %v; want none", got, ok, err)
	}
	mustInsert(t, tr, 8, 4, 5)
	got, ok, err := tr.NearestNeighbor(9, []float64{1, 1})
	if err != nil || !ok || got.ID != 7 || got.Distance != 0 {
		t.Fatalf("after second id = %+v, %v, %v; want {7 0}", got, ok, err)
	}
}

func TestInsert_NonFinite(t *testing.T) {
	tr := mustTree(t, 2, 2)
	for _, c := range [][]float64{{math.NaN(), 0}, {0, math.Inf(1)}, {math.Inf(-1), 1}} {
		if err := tr.Insert(1, c); !errors.Is(err, ErrNonFiniteCoordinate) {
			t.Fatalf("Insert(%v) err = %v, want ErrNonFiniteCoordinate", c, err)
		}
		if _, _, err := tr.NearestNeighbor(1, c); !errors.Is(err, ErrNonFiniteCoordinate) {
			t.Fatalf("NearestNeighbor(%v) err = %v, want ErrNonFiniteCoordinate", c, err)
		}
	}
	if tr.Size() != 0 {
		t.Fatalf("Size after rejected inserts = %d, want 0", tr.Size())
	}
}

func TestNearestNeighbor_SharedID(t *testing.T) {
	tr := mustTree(t, 1, 1)
	for i := 0; i < 5; i++ {
		mustInsert(t, tr, 7, float64(i))
	}
	if _, ok, _ := tr.NearestNeighbor(7, []float64{2}); ok {
		t.Fatalf("every candidate shares the query id, want none")
	}
}

func TestNearestNeighbor_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	for _, dims := range []int{1, 2, 3, 8} {
		for _, n := range []int{2, 17, 300, 1500} {
			for _, capacity := range []int{1, 4, 16} {
				tr := mustTree(t, dims, capacity)
				points := make(map[uint64][]float64, n)
				for id := uint64(0); id < uint64(n); id++ {
					c := make([]float64, dims)
					for d := range c {
						c[d] = rng.Float64()*200 - 100
					}
					points[id] = c
					mustInsert(t, tr, id, c...)
				}
				for id, c := range points {
					got, ok, err := tr.NearestNeighbor(id, c)
					if err != nil {
						t.Fatalf("dims=%d n=%d: %v", dims, n, err)
					}
					want, wantOK := bruteNearest(points, id, c)
					if ok != wantOK || got.ID != want.ID || got.Distance != want.Distance {
						t.Fatalf("dims=%d n=%d cap=%d id=%d: got %+v/%v, want %+v/%v", dims, n, capacity, id, got, ok, want, wantOK)
					}
				}
			}
		}
	}
}

func TestInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, dims := range []int{1, 2, 3, 8} {
		const capacity = 5
		tr := mustTree(t, dims, capacity)
		const n = 2000
		for id := uint64(0); id < n; id++ {
			c := make([]float64, dims)
			for d := range c {
				// coarse grid to force duplicate runs
				c[d] = math.Floor(rng.Float64() * 50)
			}
			mustInsert(t, tr, id, c...)
			if got := tr.Size(); got != int(id)+1 {
				t.Fatalf("Size = %d, want %d", got, id+1)
			}
		}
		stats := tr.Stats()
		if stats.Size != n {
			t.Fatalf("Stats.Size = %d, want %d", stats.Size, n)
		}
		seen := 0
		walkLeaves(tr.root, nil, func(leaf *Node, path []constraint) {
			if len(leaf.points) > capacity && !leaf.saturated {
				t.Fatalf("dims=%d: leaf holds %d points, capacity %d", dims, len(leaf.points), capacity)
			}
			for _, p := range leaf.points {
				seen++
				for _, c := range path {
					v := p.Coord(c.dimension)
					if c.high && v < c.threshold || !c.high && v >= c.threshold {
						t.Fatalf("dims=%d: point %v violates split dim=%d thr=%v high=%v", dims, p.coords, c.dimension, c.threshold, c.high)
					}
				}
			}
		})
		if seen != n {
			t.Fatalf("walk found %d points, want %d", seen, n)
		}
	}
}

func TestOccupancy_NeverExceedsCapacity(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	tr := mustTree(t, 3, 8)
	for id := uint64(0); id < 5000; id++ {
		mustInsert(t, tr, id, rng.Float64(), rng.Float64(), rng.Float64())
		if got := tr.MaxLeafOccupancy(); got > 8 {
			t.Fatalf("MaxLeafOccupancy = %d after %d inserts, want <= 8", got, id+1)
		}
	}
}

func TestNearestNeighbor_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	tr := mustTree(t, 3, 4)
	for id := uint64(0); id < 500; id++ {
		mustInsert(t, tr, id, rng.Float64(), rng.Float64(), rng.Float64())
	}
	before := tr.Stats()
	query := []float64{0.5, 0.5, 0.5}
	first, ok, err := tr.NearestNeighbor(1000, query)
	if err != nil || !ok {
		t.Fatalf("NearestNeighbor failed: %v %v", ok, err)
	}
	for i := 0; i < 10; i++ {
		got, _, _ := tr.NearestNeighbor(1000, query)
		if got != first {
			t.Fatalf("query %d = %+v, want %+v", i, got, first)
		}
	}
	if after := tr.Stats(); after != before {
		t.Fatalf("query mutated tree: %+v -> %+v", before, after)
	}
}

func TestBoundary_RoutesHigh(t *testing.T) {
	tr := mustTree(t, 1, 2)
	mustInsert(t, tr, 1, 1)
	mustInsert(t, tr, 2, 2)
	mustInsert(t, tr, 3, 3)
	root := tr.root
	if root.IsLeaf() || root.threshold != 2 {
		t.Fatalf("root threshold = %v, want 2", root.threshold)
	}
	mustInsert(t, tr, 4, 2)
	found := false
	walkLeaves(root.high, nil, func(leaf *Node, _ []constraint) {
		for _, p := range leaf.points {
			if p.ID() == 4 {
				found = true
			}
		}
	})
	if !found {
		t.Fatalf("point on threshold not routed to high side")
	}
	got, ok, _ := tr.NearestNeighbor(2, []float64{2})
	if !ok || got.ID != 4 || got.Distance != 0 {
		t.Fatalf("NearestNeighbor(2) = %+v, want {4 0}", got)
	}
}

func TestDuplicates_NoLoss(t *testing.T) {
	tr := mustTree(t, 2, 3)
	for id := uint64(1); id <= 4; id++ {
		mustInsert(t, tr, id, 5, float64(id))
	}
	for id := uint64(5); id <= 12; id++ {
		mustInsert(t, tr, id, 1, 1)
	}
	if tr.Size() != 12 || tr.Stats().Size != 12 {
		t.Fatalf("Size = %d/%d, want 12", tr.Size(), tr.Stats().Size)
	}
	got, ok, _ := tr.NearestNeighbor(5, []float64{1, 1})
	if !ok || got.Distance != 0 || got.ID == 5 {
		t.Fatalf("NearestNeighbor among duplicates = %+v, %v", got, ok)
	}
	mustInsert(t, tr, 13, 1, 1.5)
	got, ok, _ = tr.NearestNeighbor(13, []float64{1, 1.5})
	if !ok || got.Distance != 0.5 {
		t.Fatalf("NearestNeighbor(13) = %+v, want distance 0.5", got)
	}
}

func TestSearch_PrunesLeaves(t *testing.T) {
	tr := mustTree(t, 2, 4)
	id := uint64(0)
	for x := 0; x < 40; x++ {
		for y := 0; y < 40; y++ {
			mustInsert(t, tr, id, float64(x), float64(y))
			id++
		}
	}
	_, leaves, ok, err := tr.Search(id, []float64{20.2, 20.3})
	if err != nil || !ok {
		t.Fatalf("Search failed: %v %v", ok, err)
	}
	if total := tr.LeafCount(); leaves >= total/2 {
		t.Fatalf("search visited %d of %d leaves, expected pruning", leaves, total)
	}
}
