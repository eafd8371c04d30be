// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections and registering the SQL scalar
// functions used by the flight store (vec_l2, great_circle_km).
package engine
