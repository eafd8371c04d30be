// Package kd provides an exact nearest-neighbour index backed by an adaptive
// kd-tree. Leaves split on overflow along rotating dimensions; queries prune
// subtrees whose splitting hyperplane lies beyond the best distance found.
package kd
