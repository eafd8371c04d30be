package tree

import "gonum.org/v1/gonum/floats"

// EuclideanDistance returns the Euclidean distance between two points.
// It panics when the dimensionalities differ.
func EuclideanDistance(p1, p2 *Point) float64 {
	return floats.Distance(p1.coords, p2.coords, 2)
}
