package reconstruct

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/philipparndt/goply/pkg/mesh"
	"github.com/philipparndt/goply/pkg/ply"
	"github.com/philipparndt/goply/pkg/spatial"
)

// Strategy names, reported in the reconstruction result
const (
	StrategyDense       = "dense"
	StrategyConvexHull  = "convex-hull"
	StrategyPlaceholder = "placeholder-cube"
)

// extra post-reconstruction smoothing passes per level
var extraSmoothingIterations = map[mesh.SmoothingLevel]int{
	mesh.SmoothingHigh:  1,
	mesh.SmoothingUltra: 2,
}

const reconstructionSmoothingLambda = 0.2

// Result describes a finished reconstruction
type Result struct {
	Mesh     *mesh.Mesh
	Strategy string
	Pruned   int
}

// Reconstructor builds surfaces from point clouds, trying a dense provider
// first and degrading gracefully to the convex hull and finally to a
// placeholder cube. Reconstruct never fails.
type Reconstructor struct {
	Provider      SurfaceProvider
	DensityCutoff float64

	logger *zap.Logger
}

// New returns a Reconstructor with the marching-cubes provider and the
// default density cutoff
func New(logger *zap.Logger) *Reconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{
		Provider:      MarchingCubesProvider{},
		DensityCutoff: DefaultDensityStdDevCutoff,
		logger:        logger,
	}
}

// Reconstruct converts the point cloud into a mesh using the first
// strategy that succeeds
func (r *Reconstructor) Reconstruct(cloud *ply.PointCloud, level mesh.SmoothingLevel) *Result {
	strategies := []struct {
		name string
		run  func() (*mesh.Mesh, int, error)
	}{
		{StrategyDense, func() (*mesh.Mesh, int, error) { return r.dense(cloud, level) }},
		{StrategyConvexHull, func() (*mesh.Mesh, int, error) { return r.hull(cloud) }},
	}

	for _, s := range strategies {
		m, pruned, err := s.run()
		if err != nil {
			r.logger.Warn("reconstruction strategy failed",
				zap.String("strategy", s.name),
				zap.Error(err))
			continue
		}
		r.logger.Info("reconstruction succeeded",
			zap.String("strategy", s.name),
			zap.Int("vertices", m.VertexCount()),
			zap.Int("faces", m.FaceCount()))
		return &Result{Mesh: m, Strategy: s.name, Pruned: pruned}
	}

	r.logger.Warn("all reconstruction strategies failed, emitting placeholder cube")
	return &Result{Mesh: mesh.UnitCube(), Strategy: StrategyPlaceholder}
}

func (r *Reconstructor) dense(cloud *ply.PointCloud, level mesh.SmoothingLevel) (*mesh.Mesh, int, error) {
	if r.Provider == nil {
		return nil, 0, errors.New("no dense surface provider configured")
	}
	if len(cloud.Points) < 4 {
		return nil, 0, fmt.Errorf("too few points for dense reconstruction: %d", len(cloud.Points))
	}

	index := spatial.NewIndex(cloud.Points)
	radius := EstimateRadius(cloud.Points)

	normals := cloud.Normals
	if len(normals) != len(cloud.Points) {
		normals = EstimateNormals(cloud.Points, index, radius)
		if err := OrientNormalsConsistently(cloud.Points, normals, index, radius); err != nil {
			r.logger.Debug("consistent normal orientation failed, aligning to +Z",
				zap.Error(err))
			OrientNormalsToDirection(normals, r3.Vector{X: 0, Y: 0, Z: 1})
		}
	}

	m, densities, err := r.Provider.Reconstruct(cloud.Points, normals, DepthForLevel(level))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", r.Provider.Name(), err)
	}

	pruned := FilterByDensity(m, densities, r.DensityCutoff)
	m.Cleanup()
	if m.FaceCount() == 0 {
		return nil, 0, ErrNoSurface
	}

	if iters := extraSmoothingIterations[level]; iters > 0 {
		m.Smooth(iters, reconstructionSmoothingLambda)
	}

	if cloud.HasColors() {
		TransferColors(m, cloud.Points, cloud.Colors)
	}
	return m, pruned, nil
}

func (r *Reconstructor) hull(cloud *ply.PointCloud) (*mesh.Mesh, int, error) {
	m, err := mesh.ConvexHull(cloud.Points)
	if err != nil {
		return nil, 0, err
	}
	if cloud.HasColors() {
		TransferColors(m, cloud.Points, cloud.Colors)
	}
	return m, 0, nil
}

// TransferColors assigns each mesh vertex the color of its nearest input
// point
func TransferColors(m *mesh.Mesh, points []r3.Vector, colors []ply.Color) {
	if len(points) == 0 || len(colors) != len(points) {
		return
	}
	index := spatial.NewIndex(points)
	m.Colors = make([]ply.Color, m.VertexCount())
	for i, v := range m.Vertices {
		if nearest, _ := index.Nearest(v); nearest >= 0 {
			m.Colors[i] = colors[nearest]
		}
	}
}
