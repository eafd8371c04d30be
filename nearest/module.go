package nearest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/viant/spatial-search/flight"
	"github.com/viant/spatial-search/index/kd"
	"github.com/viant/spatial-search/logging"
	"github.com/viant/spatial-search/store"
	sqlite "modernc.org/sqlite"
	"modernc.org/sqlite/vtab"
)

const (
	idxSnapshotScan = iota + 1
	idxSnapshotCallSign
)

var registerInvalidateOnce sync.Once

// Module implements vtab.Module for the flight_nearest virtual table.
type Module struct {
	store    *store.SQLiteStore
	logger   *slog.Logger
	database string

	mu     sync.Mutex
	tables map[string]*Table
}

// Table is a single flight_nearest virtual table instance.
type Table struct {
	module       *Module
	tableName    string
	leafCapacity int
}

// Cursor iterates over the pairs selected by Filter.
type Cursor struct {
	table *Table
	rows  []row
	pos   int
}

type row struct {
	rowid      int64
	snapshot   string
	callSign   string
	nearest    string
	distanceKm float64
	nearestIdx int64
}

// Register registers the flight_nearest and flight_nearest_admin modules and
// the flight_nearest_invalidate function on db. Flights are read through st.
func Register(db *sql.DB, st *store.SQLiteStore, logger *slog.Logger) error {
	mod, err := newModule(context.Background(), db, st, logger)
	if err != nil {
		return err
	}
	if err := vtab.RegisterModule(db, "flight_nearest", mod); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	if err := vtab.RegisterModule(db, "flight_nearest_admin", &AdminModule{module: mod}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	registerInvalidateOnce.Do(func() {
		_ = sqlite.RegisterDeterministicScalarFunction("flight_nearest_invalidate", 1, invalidateFunc)
	})
	return nil
}

func newModule(ctx context.Context, db *sql.DB, st *store.SQLiteStore, logger *slog.Logger) (*Module, error) {
	if db == nil || st == nil {
		return nil, fmt.Errorf("flight_nearest: db and store are required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	database, err := databaseIdentity(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("flight_nearest: resolve database: %w", err)
	}
	return &Module{
		store:    st,
		logger:   logger.With("component", "flight_nearest"),
		database: database,
		tables:   make(map[string]*Table),
	}, nil
}

func invalidateFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("flight_nearest_invalidate: expected 1 argument, got %d", len(args))
	}
	snapshot := ""
	if args[0] != nil {
		s, err := asString(args[0])
		if err != nil {
			return nil, err
		}
		snapshot = s
	}
	return int64(InvalidateCache(snapshot)), nil
}

// Create declares the table schema. Optional arguments take the form
// leaf_capacity=N.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

// Connect attaches to an existing table.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

func (m *Module) connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("flight_nearest: expected at least 3 args, got %d", len(args))
	}
	if err := ctx.EnableConstraintSupport(); err != nil {
		return nil, fmt.Errorf("flight_nearest: EnableConstraintSupport failed: %w", err)
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(snapshot TEXT, call_sign TEXT, nearest TEXT, distance_km REAL, nearest_idx INTEGER)", args[2])); err != nil {
		return nil, err
	}
	capacity, err := parseOptions(args[3:])
	if err != nil {
		return nil, err
	}
	t := &Table{module: m, tableName: args[2], leafCapacity: capacity}
	m.mu.Lock()
	m.tables[t.tableName] = t
	m.mu.Unlock()
	return t, nil
}

func (m *Module) tableList() []*Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	tables := make([]*Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	return tables
}

func parseOptions(args []string) (int, error) {
	capacity := kd.DefaultLeafCapacity
	for _, arg := range args {
		key, value, ok := strings.Cut(strings.TrimSpace(arg), "=")
		if !ok {
			return 0, fmt.Errorf("flight_nearest: invalid option %q", arg)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "leaf_capacity":
			n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(value), `'"`))
			if err != nil || n < 1 {
				return 0, fmt.Errorf("flight_nearest: invalid leaf_capacity %q", value)
			}
			capacity = n
		default:
			return 0, fmt.Errorf("flight_nearest: unknown option %q", key)
		}
	}
	return capacity, nil
}

// BestIndex requires an equality constraint on snapshot and pushes down an
// optional equality on call_sign.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	var snapshot, callSign *vtab.Constraint
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable || c.Op != vtab.OpEQ {
			continue
		}
		switch c.Column {
		case 0:
			snapshot = c
		case 1:
			callSign = c
		}
	}
	if snapshot == nil {
		return fmt.Errorf("flight_nearest: snapshot constraint required")
	}
	snapshot.ArgIndex = 0
	snapshot.Omit = true
	info.IdxNum = idxSnapshotScan
	if callSign != nil {
		callSign.ArgIndex = 1
		callSign.Omit = true
		info.IdxNum = idxSnapshotCallSign
	}
	return nil
}

// Open allocates a new cursor.
func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }

// Disconnect releases nothing; cached indexes outlive connections.
func (t *Table) Disconnect() error { return nil }

// Destroy drops the cached indexes of this table.
func (t *Table) Destroy() error {
	t.module.mu.Lock()
	delete(t.module.tables, t.tableName)
	t.module.mu.Unlock()
	sharedCache.mu.Lock()
	defer sharedCache.mu.Unlock()
	for k := range sharedCache.byKey {
		if k.database == t.module.database && k.table == t.tableName {
			delete(sharedCache.byKey, k)
		}
	}
	return nil
}

// ensureIndex returns the cached index of snapshot, building it on first use.
func (t *Table) ensureIndex(ctx context.Context, snapshot string) (*snapshotIndex, error) {
	entry := getCacheEntry(t.key(snapshot))
	idx, generation, build := entry.acquire()
	if !build {
		return idx, nil
	}
	idx, err := t.build(ctx, snapshot)
	entry.finishBuild(idx, generation)
	return idx, err
}

func (t *Table) key(snapshot string) cacheKey {
	return cacheKey{database: t.module.database, table: t.tableName, snapshot: snapshot}
}

func (t *Table) build(ctx context.Context, snapshot string) (*snapshotIndex, error) {
	flights, err := t.module.store.Load(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	idx, err := kd.New(3, kd.WithLeafCapacity(t.leafCapacity), kd.WithLogger(t.module.logger))
	if err != nil {
		return nil, err
	}
	byIndex := make(map[uint64]int, len(flights))
	for i, f := range flights {
		byIndex[f.Index] = i
		if err := idx.Insert(f.Index, f.Point()); err != nil {
			return nil, err
		}
	}
	t.module.logger.Debug("snapshot indexed", "table", t.tableName, "snapshot", snapshot, "flights", len(flights))
	return &snapshotIndex{flights: flights, byIndex: byIndex, idx: idx}, nil
}

// Filter computes the pairs of the requested snapshot.
func (c *Cursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	c.rows = nil
	c.pos = 0
	if len(vals) == 0 || vals[0] == nil {
		return fmt.Errorf("flight_nearest: snapshot argument is required")
	}
	snapshot, err := asString(vals[0])
	if err != nil {
		return err
	}
	callSign := ""
	if idxNum == idxSnapshotCallSign {
		if len(vals) < 2 || vals[1] == nil {
			return nil
		}
		if callSign, err = asString(vals[1]); err != nil {
			return err
		}
	}
	si, err := c.table.ensureIndex(context.Background(), snapshot)
	if err != nil {
		return err
	}
	for _, f := range si.flights {
		if idxNum == idxSnapshotCallSign && f.CallSign != callSign {
			continue
		}
		nearest, ok, err := si.nearest(f)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		c.rows = append(c.rows, row{
			rowid:      int64(f.Index),
			snapshot:   snapshot,
			callSign:   f.CallSign,
			nearest:    nearest.CallSign,
			distanceKm: f.DistanceKm(nearest),
			nearestIdx: int64(nearest.Index),
		})
	}
	return nil
}

func (s *snapshotIndex) nearest(f flight.Flight) (flight.Flight, bool, error) {
	n, ok, err := s.idx.Nearest(f.Index, f.Point())
	if err != nil || !ok {
		return flight.Flight{}, false, err
	}
	return s.flights[s.byIndex[n.ID]], true, nil
}

// Next advances the cursor.
func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

// Eof reports end-of-rows.
func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

// Column returns the value of a column in the current row.
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("flight_nearest: Column out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	r := c.rows[c.pos]
	switch col {
	case 0:
		return r.snapshot, nil
	case 1:
		return r.callSign, nil
	case 2:
		return r.nearest, nil
	case 3:
		return r.distanceKm, nil
	case 4:
		return r.nearestIdx, nil
	}
	return nil, fmt.Errorf("flight_nearest: unsupported column %d", col)
}

// Rowid returns the flight index of the current row.
func (c *Cursor) Rowid() (int64, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return 0, fmt.Errorf("flight_nearest: Rowid out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	return c.rows[c.pos].rowid, nil
}

// Close releases resources.
func (c *Cursor) Close() error { c.rows = nil; c.pos = 0; return nil }

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("flight_nearest: expected TEXT, got %T", v)
	}
}
