// Package mesh provides an indexed triangle mesh and the operations the
// conversion pipeline needs: cleanup of degenerate geometry, winding
// unification, the outward-ratio orientation fix, Laplacian smoothing and
// convex hull construction.
package mesh

import (
	"github.com/golang/geo/r3"

	"github.com/philipparndt/goply/pkg/geometry"
	"github.com/philipparndt/goply/pkg/ply"
)

// Mesh is an indexed triangle mesh with optional per-vertex colors.
// Colors, when present, are parallel to Vertices.
type Mesh struct {
	Vertices []r3.Vector
	Faces    [][3]int
	Colors   []ply.Color
}

// New creates an empty mesh
func New() *Mesh {
	return &Mesh{}
}

// FromPointCloud builds a mesh from parsed PLY data, copying the vertex,
// face and color slices so the mesh owns its geometry.
func FromPointCloud(pc *ply.PointCloud) *Mesh {
	m := &Mesh{
		Vertices: append([]r3.Vector(nil), pc.Points...),
		Faces:    make([][3]int, len(pc.Faces)),
	}
	copy(m.Faces, pc.Faces)
	if pc.HasColors() {
		m.Colors = append([]ply.Color(nil), pc.Colors...)
	}
	return m
}

// Clone returns a deep copy of the mesh
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: append([]r3.Vector(nil), m.Vertices...),
		Faces:    make([][3]int, len(m.Faces)),
	}
	copy(c.Faces, m.Faces)
	if m.HasColors() {
		c.Colors = append([]ply.Color(nil), m.Colors...)
	}
	return c
}

// VertexCount returns the number of vertices
func (m *Mesh) VertexCount() int { return len(m.Vertices) }

// FaceCount returns the number of faces
func (m *Mesh) FaceCount() int { return len(m.Faces) }

// HasColors reports whether per-vertex colors are present
func (m *Mesh) HasColors() bool {
	return len(m.Colors) == len(m.Vertices) && len(m.Colors) > 0
}

// Centroid returns the mean of all vertex positions
func (m *Mesh) Centroid() r3.Vector {
	return geometry.Centroid(m.Vertices)
}

// Bounds returns the axis-aligned bounding box of the mesh
func (m *Mesh) Bounds() geometry.BoundingBox {
	return geometry.BoundsOf(m.Vertices)
}

// Triangle returns face i as a geometric triangle
func (m *Mesh) Triangle(i int) geometry.Triangle {
	f := m.Faces[i]
	return geometry.NewTriangle(m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]])
}

// FaceNormal returns the unit normal of face i implied by its winding
func (m *Mesh) FaceNormal(i int) r3.Vector {
	return m.Triangle(i).Normal()
}

// SurfaceArea returns the total area of all faces
func (m *Mesh) SurfaceArea() float64 {
	total := 0.0
	for i := range m.Faces {
		total += m.Triangle(i).Area()
	}
	return total
}

// SignedVolume returns the volume enclosed by the mesh, negative when the
// winding points inward. Only meaningful for closed surfaces.
func (m *Mesh) SignedVolume() float64 {
	total := 0.0
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		total += a.Dot(b.Cross(c)) / 6.0
	}
	return total
}
