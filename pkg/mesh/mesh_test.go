package mesh

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/goply/pkg/ply"
)

func TestFromPointCloudCopies(t *testing.T) {
	pc := &ply.PointCloud{
		Points: []r3.Vector{{X: 0}, {X: 1}, {Y: 1}},
		Faces:  [][3]int{{0, 1, 2}},
		Colors: []ply.Color{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}
	m := FromPointCloud(pc)

	require.Equal(t, 3, m.VertexCount())
	require.Equal(t, 1, m.FaceCount())
	require.True(t, m.HasColors())

	// the mesh owns its geometry
	pc.Points[0].X = 99
	assert.Equal(t, 0.0, m.Vertices[0].X)
}

func TestSignedVolumeCube(t *testing.T) {
	cube := UnitCube()
	assert.InDelta(t, 1.0, cube.SignedVolume(), 1e-9)

	cube.FlipFaces()
	assert.InDelta(t, -1.0, cube.SignedVolume(), 1e-9)
}

func TestUnitCubeIsValid(t *testing.T) {
	cube := UnitCube()
	require.NoError(t, cube.Validate())
	assert.Equal(t, 8, cube.VertexCount())
	assert.Equal(t, 12, cube.FaceCount())
	assert.InDelta(t, 6.0, cube.SurfaceArea(), 1e-9)
}

func TestOutwardRatioConsistentCube(t *testing.T) {
	cube := UnitCube()
	assert.InDelta(t, 1.0, cube.OutwardRatio(), 1e-9)

	cube.FlipFaces()
	assert.InDelta(t, 0.0, cube.OutwardRatio(), 1e-9)
}
