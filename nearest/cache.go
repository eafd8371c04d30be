package nearest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/viant/spatial-search/flight"
	"github.com/viant/spatial-search/index/kd"
)

// snapshotIndex is a kd index over one snapshot together with its flights.
type snapshotIndex struct {
	flights []flight.Flight
	byIndex map[uint64]int
	idx     *kd.Index
}

// cacheKey identifies a snapshot of one table in one database.
type cacheKey struct {
	database string
	table    string
	snapshot string
}

// Shared across connections.
var sharedCache = struct {
	mu    sync.RWMutex
	byKey map[cacheKey]*cacheEntry
}{byKey: make(map[cacheKey]*cacheEntry)}

var memoryDatabases atomic.Uint64

type cacheEntry struct {
	mu         sync.Mutex
	idx        *snapshotIndex
	building   bool
	generation uint64
	cond       *sync.Cond
}

func newCacheEntry() *cacheEntry {
	e := &cacheEntry{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// invalidate drops the cached index. A build in flight is discarded when it
// finishes.
func (e *cacheEntry) invalidate() {
	e.mu.Lock()
	e.idx = nil
	e.generation++
	e.mu.Unlock()
}

// acquire returns the cached index, or reports that the caller must build it
// together with the generation the build belongs to. Concurrent callers wait
// for an in-flight build.
func (e *cacheEntry) acquire() (idx *snapshotIndex, generation uint64, build bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.building {
		e.cond.Wait()
	}
	if e.idx != nil {
		return e.idx, e.generation, false
	}
	e.building = true
	return nil, e.generation, true
}

// finishBuild publishes idx unless the entry was invalidated since the build
// started.
func (e *cacheEntry) finishBuild(idx *snapshotIndex, generation uint64) {
	e.mu.Lock()
	if idx != nil && e.generation == generation {
		e.idx = idx
	}
	e.building = false
	e.cond.Broadcast()
	e.mu.Unlock()
}

func getCacheEntry(key cacheKey) *cacheEntry {
	sharedCache.mu.RLock()
	entry := sharedCache.byKey[key]
	sharedCache.mu.RUnlock()
	if entry != nil {
		return entry
	}
	sharedCache.mu.Lock()
	defer sharedCache.mu.Unlock()
	if entry = sharedCache.byKey[key]; entry == nil {
		entry = newCacheEntry()
		sharedCache.byKey[key] = entry
	}
	return entry
}

// InvalidateCache drops cached indexes for snapshot in every database and
// table, or for all snapshots when snapshot is empty. It returns the number
// of entries cleared.
func InvalidateCache(snapshot string) int {
	sharedCache.mu.RLock()
	defer sharedCache.mu.RUnlock()
	count := 0
	for k, entry := range sharedCache.byKey {
		if snapshot != "" && k.snapshot != snapshot {
			continue
		}
		entry.invalidate()
		count++
	}
	return count
}

// databaseIdentity names the main database file of db. In-memory databases
// have no file and get a process-unique name.
func databaseIdentity(ctx context.Context, db *sql.DB) (string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, file FROM pragma_database_list`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	file := ""
	for rows.Next() {
		var name string
		var path sql.NullString
		if err := rows.Scan(&name, &path); err != nil {
			return "", err
		}
		if name == "main" {
			file = path.String
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if file == "" {
		return fmt.Sprintf("memory:%d", memoryDatabases.Add(1)), nil
	}
	return file, nil
}
