package ply

import (
	"github.com/golang/geo/r3"

	"github.com/philipparndt/goply/pkg/geometry"
)

// Color is an RGB vertex color with channels normalized to [0,1]
type Color [3]float64

// Byte returns the color expanded to 0-255 integer channels
func (c Color) Byte() [3]uint8 {
	return [3]uint8{clampByte(c[0] * 255), clampByte(c[1] * 255), clampByte(c[2] * 255)}
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// PointCloud holds the contents of a parsed PLY file: vertex positions,
// optional per-vertex colors and normals, and an optional face list.
// Colors and normals, when present, are parallel to Points.
type PointCloud struct {
	Points  []r3.Vector
	Colors  []Color
	Normals []r3.Vector
	Faces   [][3]int
}

// IsPointCloud reports whether the input carried no face connectivity
func (pc *PointCloud) IsPointCloud() bool {
	return len(pc.Faces) == 0
}

// HasColors reports whether per-vertex colors are present
func (pc *PointCloud) HasColors() bool {
	return len(pc.Colors) == len(pc.Points) && len(pc.Colors) > 0
}

// Bounds returns the axis-aligned bounding box of the vertex positions
func (pc *PointCloud) Bounds() geometry.BoundingBox {
	return geometry.BoundsOf(pc.Points)
}

// normalizeColors rescales 0-255 channel values to [0,1]. A cloud whose
// channels already sit in [0,1] is left untouched.
func (pc *PointCloud) normalizeColors() {
	maxChannel := 0.0
	for _, c := range pc.Colors {
		for _, v := range c {
			if v > maxChannel {
				maxChannel = v
			}
		}
	}
	if maxChannel <= 1.0 {
		return
	}
	for i, c := range pc.Colors {
		pc.Colors[i] = Color{c[0] / 255.0, c[1] / 255.0, c[2] / 255.0}
	}
}
