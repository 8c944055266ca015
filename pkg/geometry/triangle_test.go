package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func TestTriangleNormal(t *testing.T) {
	tri := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	normal := tri.Normal()

	expected := r3.Vector{X: 0, Y: 0, Z: 1}
	if normal.Sub(expected).Norm() > 1e-10 {
		t.Errorf("Normal failed: expected %v, got %v", expected, normal)
	}
}

func TestTriangleNormalReversedWinding(t *testing.T) {
	tri := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
	)
	normal := tri.Normal()

	expected := r3.Vector{X: 0, Y: 0, Z: -1}
	if normal.Sub(expected).Norm() > 1e-10 {
		t.Errorf("Normal failed: expected %v, got %v", expected, normal)
	}
}

func TestTriangleArea(t *testing.T) {
	tri := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 2, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 2, Z: 0},
	)
	area := tri.Area()

	expected := 2.0
	if math.Abs(area-expected) > 1e-10 {
		t.Errorf("Area failed: expected %v, got %v", expected, area)
	}
}

func TestTriangleCenter(t *testing.T) {
	tri := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 3, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 3, Z: 0},
	)
	center := tri.Center()

	expected := r3.Vector{X: 1, Y: 1, Z: 0}
	if center.Sub(expected).Norm() > 1e-10 {
		t.Errorf("Center failed: expected %v, got %v", expected, center)
	}
}

func TestTriangleIsDegenerate(t *testing.T) {
	degenerate := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 1, Z: 1},
		r3.Vector{X: 2, Y: 2, Z: 2},
	)
	if !degenerate.IsDegenerate(1e-12) {
		t.Error("expected collinear triangle to be degenerate")
	}

	valid := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	if valid.IsDegenerate(1e-12) {
		t.Error("expected valid triangle to not be degenerate")
	}
}
