// Package nearest exposes flight nearest-neighbour pairs as a SQLite virtual
// table.
//
//	CREATE VIRTUAL TABLE pairs USING flight_nearest(leaf_capacity=16);
//	SELECT rowid, call_sign, nearest, nearest_idx, distance_km FROM pairs WHERE snapshot = 'morning';
//	SELECT nearest FROM pairs WHERE snapshot = 'morning' AND call_sign = 'KLM1023';
//
// Each snapshot stored in the flights table is indexed once with an adaptive
// kd-tree and cached across connections. flight_nearest_invalidate(snapshot)
// drops cached indexes, and the flight_nearest_admin table rebuilds them:
//
//	CREATE VIRTUAL TABLE pairs_admin USING flight_nearest_admin(op);
//	SELECT op FROM pairs_admin WHERE op MATCH 'morning'; -- 'reindexed:<count>'
package nearest
