package mesh

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/philipparndt/goply/pkg/ply"
)

// degenerateAreaEps is the area below which a face counts as degenerate
const degenerateAreaEps = 1e-12

// Cleanup removes degenerate faces, duplicate faces and unreferenced
// vertices. This is the standard post-processing applied after orientation
// fixing and before export.
func (m *Mesh) Cleanup() {
	m.RemoveDegenerateFaces()
	m.RemoveDuplicateFaces()
	m.RemoveUnreferencedVertices()
}

// RemoveDegenerateFaces drops faces with repeated vertex indices or
// (near) zero area
func (m *Mesh) RemoveDegenerateFaces() {
	kept := m.Faces[:0]
	for i, f := range m.Faces {
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		if m.Triangle(i).IsDegenerate(degenerateAreaEps) {
			continue
		}
		kept = append(kept, f)
	}
	m.Faces = kept
}

// RemoveDuplicateFaces drops repeated faces. Comparison is cyclic but
// winding-sensitive: [a,b,c] and [b,c,a] are duplicates, [a,c,b] is not.
// Winding sensitivity keeps the reversed twins of a double-sided mesh intact.
func (m *Mesh) RemoveDuplicateFaces() {
	seen := make(map[[3]int]struct{}, len(m.Faces))
	kept := m.Faces[:0]
	for _, f := range m.Faces {
		key := canonicalFace(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, f)
	}
	m.Faces = kept
}

// canonicalFace rotates the face so the smallest index comes first while
// preserving the cyclic vertex order
func canonicalFace(f [3]int) [3]int {
	if f[1] < f[0] && f[1] <= f[2] {
		return [3]int{f[1], f[2], f[0]}
	}
	if f[2] < f[0] && f[2] < f[1] {
		return [3]int{f[2], f[0], f[1]}
	}
	return f
}

// RemoveUnreferencedVertices drops vertices no face points at and remaps
// the face indices
func (m *Mesh) RemoveUnreferencedVertices() {
	if len(m.Faces) == 0 {
		return
	}
	referenced := make([]bool, len(m.Vertices))
	for _, f := range m.Faces {
		referenced[f[0]] = true
		referenced[f[1]] = true
		referenced[f[2]] = true
	}

	remap := make([]int, len(m.Vertices))
	hasColors := m.HasColors()
	next := 0
	for i, used := range referenced {
		if !used {
			remap[i] = -1
			continue
		}
		remap[i] = next
		m.Vertices[next] = m.Vertices[i]
		if hasColors {
			m.Colors[next] = m.Colors[i]
		}
		next++
	}
	m.Vertices = m.Vertices[:next]
	if hasColors {
		m.Colors = m.Colors[:next]
	}

	for i, f := range m.Faces {
		m.Faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
}

// WeldVertices merges vertices closer than eps and remaps faces onto the
// surviving vertex. The first vertex of each weld group keeps its color.
func (m *Mesh) WeldVertices(eps float64) {
	if eps <= 0 || len(m.Vertices) == 0 {
		return
	}
	type cell [3]int64
	quantize := func(v r3.Vector) cell {
		return cell{int64(v.X / eps), int64(v.Y / eps), int64(v.Z / eps)}
	}

	hasColors := m.HasColors()
	groups := make(map[cell]int, len(m.Vertices))
	remap := make([]int, len(m.Vertices))
	var vertices []r3.Vector
	var colors []ply.Color

	for i, v := range m.Vertices {
		key := quantize(v)
		if j, ok := groups[key]; ok {
			remap[i] = j
			continue
		}
		groups[key] = len(vertices)
		remap[i] = len(vertices)
		vertices = append(vertices, v)
		if hasColors {
			colors = append(colors, m.Colors[i])
		}
	}

	m.Vertices = vertices
	if hasColors {
		m.Colors = colors
	}
	for i, f := range m.Faces {
		m.Faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
}

// Validate checks the mesh invariants: face indices in bounds, color slice
// parallel to vertices
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d references vertex %d, vertex count is %d", i, idx, n)
			}
		}
	}
	if len(m.Colors) > 0 && len(m.Colors) != n {
		return fmt.Errorf("color count %d does not match vertex count %d", len(m.Colors), n)
	}
	return nil
}
