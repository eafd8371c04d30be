package nearest

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/viant/spatial-search/engine"
	"github.com/viant/spatial-search/flight"
	"github.com/viant/spatial-search/index/bruteforce"
	"github.com/viant/spatial-search/solve"
	"github.com/viant/spatial-search/store"
)

var sampleFlights = []flight.Flight{
	flight.New(0, "AAL100", 40.64, -73.78),
	flight.New(1, "BAW200", 51.47, -0.45),
	flight.New(2, "AFR300", 49.01, 2.55),
	flight.New(3, "UAL400", 37.62, -122.38),
	flight.New(4, "KLM500", 52.31, 4.76),
}

func openDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	db, err := engine.Open(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("engine.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	st, err := store.NewSQLiteStore(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := st.Save(context.Background(), "morning", sampleFlights); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := Register(db, st, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		t.Fatalf("PRAGMA setup failed: %v", err)
	}
	return db
}

func createTable(t *testing.T, db *sql.DB, stmt string) {
	t.Helper()
	if _, err := db.Exec(stmt); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			t.Skipf("skipping: flight_nearest vtab not available (%v)", err)
		}
		t.Fatalf("%s failed: %v", stmt, err)
	}
}

type pairRow struct {
	callSign string
	nearest  string
	distance float64
}

func queryPairs(t *testing.T, db *sql.DB, query string, args ...any) []pairRow {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			t.Skipf("skipping: flight_nearest query timed out (%v)", err)
		}
		t.Fatalf("query failed: %v", err)
	}
	defer rows.Close()
	var out []pairRow
	for rows.Next() {
		var r pairRow
		if err := rows.Scan(&r.callSign, &r.nearest, &r.distance); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return out
}

func TestFlightNearest(t *testing.T) {
	db := openDB(t, "pairs.sqlite")
	t.Run("matches solve", func(t *testing.T) { testMatchesSolve(t, db) })
	t.Run("invalidate and reindex", func(t *testing.T) { testInvalidateAndReindex(t, db) })
}

func testMatchesSolve(t *testing.T, db *sql.DB) {
	createTable(t, db, `CREATE VIRTUAL TABLE pairs USING flight_nearest(leaf_capacity=1)`)

	idx, err := bruteforce.New(3)
	if err != nil {
		t.Fatalf("bruteforce.New: %v", err)
	}
	want, err := solve.Solve(context.Background(), sampleFlights, idx, 1)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	got := queryPairs(t, db, `SELECT call_sign, nearest, distance_km FROM pairs WHERE snapshot = ? ORDER BY rowid`, "morning")
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.callSign != w.Flight.CallSign || g.nearest != w.Nearest.CallSign || math.Abs(g.distance-w.DistanceKm) > 1e-9 {
			t.Fatalf("row %d = %+v, want %s -> %s %.3f", i, g, w.Flight.CallSign, w.Nearest.CallSign, w.DistanceKm)
		}
	}

	one := queryPairs(t, db, `SELECT call_sign, nearest, distance_km FROM pairs WHERE snapshot = 'morning' AND call_sign = 'AAL100'`)
	if len(one) != 1 || one[0].nearest != "UAL400" {
		t.Fatalf("AAL100 pair = %+v, want UAL400", one)
	}
	if none := queryPairs(t, db, `SELECT call_sign, nearest, distance_km FROM pairs WHERE snapshot = 'evening'`); len(none) != 0 {
		t.Fatalf("unknown snapshot returned %d rows", len(none))
	}
}

func testInvalidateAndReindex(t *testing.T, db *sql.DB) {
	createTable(t, db, `CREATE VIRTUAL TABLE pairs2 USING flight_nearest`)
	createTable(t, db, `CREATE VIRTUAL TABLE pairs2_admin USING flight_nearest_admin(op)`)

	if got := queryPairs(t, db, `SELECT call_sign, nearest, distance_km FROM pairs2 WHERE snapshot = 'morning'`); len(got) != len(sampleFlights) {
		t.Fatalf("got %d rows, want %d", len(got), len(sampleFlights))
	}

	var op string
	if err := db.QueryRow(`SELECT op FROM pairs2_admin WHERE op MATCH 'morning'`).Scan(&op); err != nil {
		t.Fatalf("admin query: %v", err)
	}
	if op != "reindexed:5" {
		t.Fatalf("admin op = %q, want reindexed:5", op)
	}

	var cleared int64
	if err := db.QueryRow(`SELECT flight_nearest_invalidate('morning')`).Scan(&cleared); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if cleared < 1 {
		t.Fatalf("invalidate cleared %d entries, want at least 1", cleared)
	}
}

func TestParseOptions(t *testing.T) {
	if n, err := parseOptions(nil); err != nil || n != 10 {
		t.Fatalf("parseOptions(nil) = %d, %v", n, err)
	}
	if n, err := parseOptions([]string{" leaf_capacity = 4 "}); err != nil || n != 4 {
		t.Fatalf("parseOptions(leaf_capacity=4) = %d, %v", n, err)
	}
	for _, bad := range []string{"leaf_capacity=0", "leaf_capacity=x", "base=2", "plain"} {
		if _, err := parseOptions([]string{bad}); err == nil {
			t.Fatalf("parseOptions(%q) succeeded", bad)
		}
	}
}
