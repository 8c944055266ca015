package reconstruct

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/unixpickle/model3d/model3d"

	"github.com/philipparndt/goply/pkg/geometry"
	"github.com/philipparndt/goply/pkg/mesh"
	"github.com/philipparndt/goply/pkg/spatial"
)

// Depth controls the resolution of the dense reconstruction grid
type Depth int

// DepthForLevel maps a smoothing level to a reconstruction depth. Higher
// levels spend more grid cells on the surface.
func DepthForLevel(level mesh.SmoothingLevel) Depth {
	switch level {
	case mesh.SmoothingLight:
		return 8
	case mesh.SmoothingMedium:
		return 9
	case mesh.SmoothingHigh:
		return 10
	case mesh.SmoothingUltra:
		return 11
	default:
		return 9
	}
}

// resolution converts the depth into cells per bounding box axis
func (d Depth) resolution() int {
	if d < 8 {
		d = 8
	}
	if d > 11 {
		d = 11
	}
	return 1 << (uint(d) - 3)
}

// ErrNoSurface is returned by a provider that produced no triangles
var ErrNoSurface = errors.New("reconstruction produced no surface")

// SurfaceProvider reconstructs a watertight mesh from an oriented point
// cloud. The returned densities hold, per output vertex, the number of
// input points supporting it; the caller uses them for outlier pruning.
type SurfaceProvider interface {
	Name() string
	Reconstruct(points []r3.Vector, normals []r3.Vector, depth Depth) (*mesh.Mesh, []float64, error)
}

// MarchingCubesProvider extracts an implicit surface around the cloud:
// the union of balls centered on the input points, polygonized with
// marching cubes. The ball radius tracks the neighborhood search radius
// but never drops below what the grid step can resolve.
type MarchingCubesProvider struct{}

func (MarchingCubesProvider) Name() string { return "marching-cubes" }

func (MarchingCubesProvider) Reconstruct(points []r3.Vector, normals []r3.Vector, depth Depth) (*mesh.Mesh, []float64, error) {
	if len(points) < 4 {
		return nil, nil, fmt.Errorf("need at least 4 points, got %d", len(points))
	}

	bounds := geometry.BoundsOf(points)
	diag := bounds.Diagonal()
	if diag == 0 {
		return nil, nil, errors.New("degenerate point cloud extent")
	}

	delta := diag / float64(depth.resolution())
	radius := EstimateRadius(points)
	if radius < 1.5*delta {
		radius = 1.5 * delta
	}

	index := spatial.NewIndex(points)
	r2 := radius * radius
	solid := model3d.CheckedFuncSolid(
		model3d.XYZ(bounds.Min.X-radius, bounds.Min.Y-radius, bounds.Min.Z-radius),
		model3d.XYZ(bounds.Max.X+radius, bounds.Max.Y+radius, bounds.Max.Z+radius),
		func(c model3d.Coord3D) bool {
			i, _ := index.Nearest(r3.Vector{X: c.X, Y: c.Y, Z: c.Z})
			if i < 0 {
				return false
			}
			d := points[i].Sub(r3.Vector{X: c.X, Y: c.Y, Z: c.Z})
			return d.Dot(d) <= r2
		},
	)

	surface := model3d.MarchingCubesSearch(solid, delta, 8)

	out, err := fromModel3D(surface)
	if err != nil {
		return nil, nil, err
	}

	densities := make([]float64, out.VertexCount())
	for i, v := range out.Vertices {
		densities[i] = float64(len(index.Neighborhood(v, radius, 0)))
	}
	return out, densities, nil
}

// fromModel3D welds the triangle soup into an indexed mesh
func fromModel3D(m *model3d.Mesh) (*mesh.Mesh, error) {
	out := mesh.New()
	seen := make(map[model3d.Coord3D]int)

	lookup := func(c model3d.Coord3D) int {
		if idx, ok := seen[c]; ok {
			return idx
		}
		idx := len(out.Vertices)
		seen[c] = idx
		out.Vertices = append(out.Vertices, r3.Vector{X: c.X, Y: c.Y, Z: c.Z})
		return idx
	}

	m.Iterate(func(t *model3d.Triangle) {
		out.Faces = append(out.Faces, [3]int{lookup(t[0]), lookup(t[1]), lookup(t[2])})
	})

	if out.FaceCount() == 0 {
		return nil, ErrNoSurface
	}
	return out, nil
}
