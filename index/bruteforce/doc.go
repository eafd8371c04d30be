// Package bruteforce provides a simple nearest-neighbour index that answers
// queries by scanning every stored point. It serves as the exact baseline the
// tree-based index is checked against.
package bruteforce
