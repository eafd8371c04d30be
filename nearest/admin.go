package nearest

import (
	"context"
	"fmt"

	"modernc.org/sqlite/vtab"
)

// AdminModule provides index maintenance through a virtual table:
//
//	CREATE VIRTUAL TABLE pairs_admin USING flight_nearest_admin(op);
//	SELECT op FROM pairs_admin WHERE op MATCH 'morning';
//
// The snapshot index of every flight_nearest table is rebuilt and a single
// row 'reindexed:<count>' is returned, count being the indexed flights.
type AdminModule struct{ module *Module }

// AdminTable is a flight_nearest_admin instance.
type AdminTable struct{ module *Module }

// AdminCursor yields the single result row.
type AdminCursor struct {
	table *AdminTable
	rows  []string
	pos   int
}

// Create declares the single op column.
func (m *AdminModule) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

// Connect declares the single op column.
func (m *AdminModule) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("flight_nearest_admin: need at least 3 args")
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(op)", args[2])); err != nil {
		return nil, err
	}
	return &AdminTable{module: m.module}, nil
}

func (t *AdminTable) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		if c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 0
			info.IdxNum = 1
			break
		}
	}
	return nil
}

func (t *AdminTable) Open() (vtab.Cursor, error) { return &AdminCursor{table: t}, nil }
func (t *AdminTable) Disconnect() error          { return nil }
func (t *AdminTable) Destroy() error             { return nil }

func (c *AdminCursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	c.rows = nil
	c.pos = 0
	if idxNum != 1 || len(vals) == 0 || vals[0] == nil {
		return nil
	}
	snapshot, err := asString(vals[0])
	if err != nil {
		return fmt.Errorf("flight_nearest_admin: MATCH expects a snapshot name: %w", err)
	}
	n, err := c.table.module.reindex(context.Background(), snapshot)
	if err != nil {
		return err
	}
	c.rows = []string{fmt.Sprintf("reindexed:%d", n)}
	return nil
}

func (c *AdminCursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}
func (c *AdminCursor) Eof() bool { return c.pos >= len(c.rows) }
func (c *AdminCursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("flight_nearest_admin: Column out of range")
	}
	if col == 0 {
		return c.rows[c.pos], nil
	}
	return nil, nil
}
func (c *AdminCursor) Rowid() (int64, error) { return int64(c.pos + 1), nil }
func (c *AdminCursor) Close() error          { c.rows = nil; c.pos = 0; return nil }

// reindex rebuilds the snapshot index of every flight_nearest table created
// through this module and returns the number of indexed flights. Without
// tables the flights are only counted.
func (m *Module) reindex(ctx context.Context, snapshot string) (int, error) {
	tables := m.tableList()
	if len(tables) == 0 {
		flights, err := m.store.Load(ctx, snapshot)
		if err != nil {
			return 0, err
		}
		return len(flights), nil
	}
	count := 0
	for _, t := range tables {
		getCacheEntry(t.key(snapshot)).invalidate()
		si, err := t.ensureIndex(ctx, snapshot)
		if err != nil {
			return 0, err
		}
		count = len(si.flights)
	}
	m.logger.Info("snapshot reindexed", "snapshot", snapshot, "tables", len(tables), "flights", count)
	return count, nil
}
