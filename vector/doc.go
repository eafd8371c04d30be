// Package vector holds the float32 BLOB encoding used to store projected
// positions in SQLite, and the distance function evaluated over it.
package vector
