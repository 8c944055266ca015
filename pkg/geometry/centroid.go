package geometry

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Centroid returns the arithmetic mean of a set of points.
// Returns the zero vector for an empty set.
func Centroid(points []r3.Vector) r3.Vector {
	if len(points) == 0 {
		return r3.Vector{}
	}
	var sum r3.Vector
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// FormatVector formats a vector for display
func FormatVector(v r3.Vector) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
