package mesh

import (
	"errors"
)

// DefaultOutwardRatioThreshold is the outward-facing ratio below which a
// mesh is judged to have unreliable orientation. The value is empirical;
// see OrientationFixer.
const DefaultOutwardRatioThreshold = 0.6

// OrientationResult summarizes what the orientation fix did to a mesh
type OrientationResult struct {
	OutwardRatio float64
	Doubled      bool
	UnifyErr     error
}

// OrientationFixer makes a mesh visible from every viewing direction.
// When the share of outward-facing faces drops below Threshold the mesh
// is rebuilt double-sided; otherwise only standard cleanup runs.
type OrientationFixer struct {
	Threshold float64
}

// NewOrientationFixer returns a fixer with the default threshold
func NewOrientationFixer() *OrientationFixer {
	return &OrientationFixer{Threshold: DefaultOutwardRatioThreshold}
}

// Fix normalizes winding, measures the outward-facing ratio and doubles the
// mesh when the ratio falls below the threshold. Winding unification is best
// effort: its failure is reported in the result, never as a fatal error.
func (o *OrientationFixer) Fix(m *Mesh) OrientationResult {
	result := OrientationResult{}

	// best effort; a non-manifold mesh keeps its original winding
	result.UnifyErr = m.UnifyWinding()

	result.OutwardRatio = m.OutwardRatio()
	if result.OutwardRatio < o.Threshold {
		m.DoubleSided()
		result.Doubled = true
	}
	m.Cleanup()
	return result
}

// OutwardRatio returns the fraction of faces whose normal points away from
// the mesh centroid. A ratio near 1 means consistently outward winding.
func (m *Mesh) OutwardRatio() float64 {
	if len(m.Faces) == 0 {
		return 0
	}
	center := m.Centroid()
	outward := 0
	for i := range m.Faces {
		tri := m.Triangle(i)
		toFace := tri.Center().Sub(center)
		norm := toFace.Norm()
		if norm > 0 {
			toFace = toFace.Mul(1.0 / norm)
		}
		if tri.Normal().Dot(toFace) > 0 {
			outward++
		}
	}
	return float64(outward) / float64(len(m.Faces))
}

// DoubleSided appends a reverse-winding twin of every face, leaving the
// original faces untouched. Vertex colors are preserved as-is since no
// vertices are added.
func (m *Mesh) DoubleSided() {
	doubled := make([][3]int, 0, 2*len(m.Faces))
	doubled = append(doubled, m.Faces...)
	for _, f := range m.Faces {
		doubled = append(doubled, [3]int{f[0], f[2], f[1]})
	}
	m.Faces = doubled
}

// FlipFaces reverses the winding of every face
func (m *Mesh) FlipFaces() {
	for i, f := range m.Faces {
		m.Faces[i] = [3]int{f[0], f[2], f[1]}
	}
}

// UnifyWinding makes the winding direction consistent across connected
// faces by flood-filling the edge-adjacency graph, then flips the whole
// mesh if its signed volume came out negative. Returns an error for meshes
// whose adjacency is too broken to unify (conflicting constraints on a
// non-manifold edge fan).
func (m *Mesh) UnifyWinding() error {
	if len(m.Faces) == 0 {
		return nil
	}

	type edgeRef struct {
		face    int
		forward bool // true when the edge appears as (min,max) order in the face loop
	}
	edges := make(map[[2]int][]edgeRef, 3*len(m.Faces))
	addEdge := func(face, a, b int) {
		key := [2]int{a, b}
		forward := true
		if a > b {
			key = [2]int{b, a}
			forward = false
		}
		edges[key] = append(edges[key], edgeRef{face: face, forward: forward})
	}
	for i, f := range m.Faces {
		addEdge(i, f[0], f[1])
		addEdge(i, f[1], f[2])
		addEdge(i, f[2], f[0])
	}

	// flipped[i] == true means face i must be reversed for consistency
	state := make([]int8, len(m.Faces)) // 0 unvisited, 1 keep, -1 flip
	conflict := false

	for seed := range m.Faces {
		if state[seed] != 0 {
			continue
		}
		state[seed] = 1
		queue := []int{seed}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			f := m.Faces[cur]
			for e := 0; e < 3; e++ {
				a, b := f[e], f[(e+1)%3]
				key := [2]int{a, b}
				curForward := true
				if a > b {
					key = [2]int{b, a}
					curForward = false
				}
				for _, ref := range edges[key] {
					if ref.face == cur {
						continue
					}
					// Two consistently wound neighbors traverse a shared
					// edge in opposite directions.
					want := state[cur]
					if ref.forward == curForward {
						want = -want
					}
					if state[ref.face] == 0 {
						state[ref.face] = want
						queue = append(queue, ref.face)
					} else if state[ref.face] != want {
						conflict = true
					}
				}
			}
		}
	}

	for i, s := range state {
		if s == -1 {
			f := m.Faces[i]
			m.Faces[i] = [3]int{f[0], f[2], f[1]}
		}
	}

	// Prefer outward winding for closed surfaces
	if m.SignedVolume() < 0 {
		m.FlipFaces()
	}

	if conflict {
		return errors.New("non-manifold edges prevent full winding unification")
	}
	return nil
}
