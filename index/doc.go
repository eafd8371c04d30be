// Package index defines a minimal abstraction for exact nearest-neighbour
// strategies over identified points. Implementations in this module include
// an adaptive kd-tree and a brute-force baseline.
package index
