package geometry

import "github.com/golang/geo/r3"

// Triangle represents a triangular facet in 3D space
type Triangle struct {
	V1, V2, V3 r3.Vector
}

// NewTriangle creates a new triangle
func NewTriangle(v1, v2, v3 r3.Vector) Triangle {
	return Triangle{V1: v1, V2: v2, V3: v3}
}

// Normal computes the unit normal implied by the winding order V1->V2->V3
func (t Triangle) Normal() r3.Vector {
	edge1 := t.V2.Sub(t.V1)
	edge2 := t.V3.Sub(t.V1)
	n := edge1.Cross(edge2)
	if n.Norm() == 0 {
		return r3.Vector{}
	}
	return n.Normalize()
}

// Area returns the surface area of the triangle
func (t Triangle) Area() float64 {
	edge1 := t.V2.Sub(t.V1)
	edge2 := t.V3.Sub(t.V1)
	return edge1.Cross(edge2).Norm() / 2.0
}

// Center returns the centroid of the triangle
func (t Triangle) Center() r3.Vector {
	return t.V1.Add(t.V2).Add(t.V3).Mul(1.0 / 3.0)
}

// IsDegenerate reports whether the triangle has (near) zero area
func (t Triangle) IsDegenerate(eps float64) bool {
	return t.Area() <= eps
}
