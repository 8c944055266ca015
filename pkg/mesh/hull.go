package mesh

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"

	"github.com/philipparndt/goply/pkg/geometry"
)

// ErrDegenerateHull is returned when the input points do not span three
// dimensions and no hull volume exists
var ErrDegenerateHull = errors.New("points are degenerate, convex hull has no volume")

// ConvexHull builds the convex hull of a point set using an incremental
// algorithm. The resulting mesh contains only the hull vertices, wound
// consistently outward. Fails with ErrDegenerateHull for fewer than four
// points or (near) coplanar input.
func ConvexHull(points []r3.Vector) (*Mesh, error) {
	if len(points) < 4 {
		return nil, ErrDegenerateHull
	}

	scale := geometry.BoundsOf(points).Diagonal()
	if scale == 0 {
		return nil, ErrDegenerateHull
	}
	eps := scale * 1e-10

	faces, err := initialTetrahedron(points, eps)
	if err != nil {
		return nil, err
	}

	inHull := make(map[int]struct{}, 4)
	for _, f := range faces {
		inHull[f[0]] = struct{}{}
		inHull[f[1]] = struct{}{}
		inHull[f[2]] = struct{}{}
	}

	for p := range points {
		if _, ok := inHull[p]; ok {
			continue
		}
		faces = addPoint(points, faces, p, eps)
	}

	return hullMesh(points, faces), nil
}

// addPoint extends the hull with point p: faces visible from p are removed
// and the resulting horizon is fanned to p
func addPoint(points []r3.Vector, faces [][3]int, p int, eps float64) [][3]int {
	visible := make([]bool, len(faces))
	any := false
	for i, f := range faces {
		n := geometry.NewTriangle(points[f[0]], points[f[1]], points[f[2]]).Normal()
		if n.Dot(points[p].Sub(points[f[0]])) > eps {
			visible[i] = true
			any = true
		}
	}
	if !any {
		// p lies inside the current hull
		return faces
	}

	// Directed edges of the visible region; an edge whose reverse is not
	// also visible lies on the horizon.
	visibleEdges := make(map[[2]int]struct{})
	for i, f := range faces {
		if !visible[i] {
			continue
		}
		visibleEdges[[2]int{f[0], f[1]}] = struct{}{}
		visibleEdges[[2]int{f[1], f[2]}] = struct{}{}
		visibleEdges[[2]int{f[2], f[0]}] = struct{}{}
	}

	next := faces[:0]
	for i, f := range faces {
		if !visible[i] {
			next = append(next, f)
		}
	}
	for edge := range visibleEdges {
		if _, ok := visibleEdges[[2]int{edge[1], edge[0]}]; ok {
			continue
		}
		next = append(next, [3]int{edge[0], edge[1], p})
	}
	return next
}

// initialTetrahedron picks four affinely independent points and returns its
// four outward-wound faces
func initialTetrahedron(points []r3.Vector, eps float64) ([][3]int, error) {
	// two extreme points along the largest spread
	i0, i1 := 0, 0
	maxDist := 0.0
	extremes := extremeCandidates(points)
	for i := range points {
		for _, j := range extremes {
			if d := points[i].Sub(points[j]).Norm(); d > maxDist {
				maxDist = d
				i0, i1 = i, j
			}
		}
	}
	if maxDist <= eps {
		return nil, ErrDegenerateHull
	}

	// third point farthest from the line i0-i1
	dir := points[i1].Sub(points[i0]).Normalize()
	i2, best := -1, eps
	for i, p := range points {
		rel := p.Sub(points[i0])
		d := rel.Sub(dir.Mul(rel.Dot(dir))).Norm()
		if d > best {
			best = d
			i2 = i
		}
	}
	if i2 < 0 {
		return nil, ErrDegenerateHull
	}

	// fourth point farthest from the plane i0-i1-i2
	n := geometry.NewTriangle(points[i0], points[i1], points[i2]).Normal()
	i3, best := -1, eps
	signed := 0.0
	for i, p := range points {
		d := n.Dot(p.Sub(points[i0]))
		if math.Abs(d) > best {
			best = math.Abs(d)
			signed = d
			i3 = i
		}
	}
	if i3 < 0 {
		return nil, ErrDegenerateHull
	}

	// orient the base away from the apex
	a, b, c := i0, i1, i2
	if signed > 0 {
		b, c = c, b
	}
	return [][3]int{
		{a, b, c},
		{a, c, i3},
		{c, b, i3},
		{b, a, i3},
	}, nil
}

// extremeCandidates returns the axis-extreme point indices, a small seed set
// for the diameter scan
func extremeCandidates(points []r3.Vector) []int {
	idx := [6]int{}
	for i, p := range points {
		if p.X < points[idx[0]].X {
			idx[0] = i
		}
		if p.X > points[idx[1]].X {
			idx[1] = i
		}
		if p.Y < points[idx[2]].Y {
			idx[2] = i
		}
		if p.Y > points[idx[3]].Y {
			idx[3] = i
		}
		if p.Z < points[idx[4]].Z {
			idx[4] = i
		}
		if p.Z > points[idx[5]].Z {
			idx[5] = i
		}
	}
	return idx[:]
}

// hullMesh compacts the hull faces into a mesh containing only referenced
// vertices
func hullMesh(points []r3.Vector, faces [][3]int) *Mesh {
	remap := make(map[int]int)
	m := New()
	for _, f := range faces {
		var nf [3]int
		for k, idx := range f {
			j, ok := remap[idx]
			if !ok {
				j = len(m.Vertices)
				remap[idx] = j
				m.Vertices = append(m.Vertices, points[idx])
			}
			nf[k] = j
		}
		m.Faces = append(m.Faces, nf)
	}
	return m
}

// UnitCube returns the placeholder mesh emitted when every reconstruction
// strategy fails: an origin-centered cube with unit extents.
func UnitCube() *Mesh {
	h := 0.5
	return &Mesh{
		Vertices: []r3.Vector{
			{X: -h, Y: -h, Z: -h},
			{X: h, Y: -h, Z: -h},
			{X: h, Y: h, Z: -h},
			{X: -h, Y: h, Z: -h},
			{X: -h, Y: -h, Z: h},
			{X: h, Y: -h, Z: h},
			{X: h, Y: h, Z: h},
			{X: -h, Y: h, Z: h},
		},
		Faces: [][3]int{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4}, // front
			{3, 7, 6}, {3, 6, 2}, // back
			{0, 4, 7}, {0, 7, 3}, // left
			{1, 2, 6}, {1, 6, 5}, // right
		},
	}
}
