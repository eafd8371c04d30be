// Package store keeps flight position snapshots in SQLite so a dump can be
// imported once and re-read as a point source. Each row also carries the
// unit-sphere projection as a float32 BLOB, which lets SQLite answer a
// nearest-flight query with the vec_l2 function.
package store
