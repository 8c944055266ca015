package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSmoothingLevel(t *testing.T) {
	for _, valid := range []string{"light", "medium", "high", "ultra"} {
		level, err := ParseSmoothingLevel(valid)
		require.NoError(t, err)
		assert.Equal(t, SmoothingLevel(valid), level)
	}

	level, err := ParseSmoothingLevel("")
	require.NoError(t, err)
	assert.Equal(t, SmoothingMedium, level)

	_, err = ParseSmoothingLevel("extreme")
	assert.Error(t, err)
}

func TestSmoothingIterations(t *testing.T) {
	assert.Equal(t, 1, SmoothingLight.Iterations())
	assert.Equal(t, 2, SmoothingMedium.Iterations())
	assert.Equal(t, 3, SmoothingHigh.Iterations())
	assert.Equal(t, 5, SmoothingUltra.Iterations())
}

func TestSmoothShrinksTowardNeighbors(t *testing.T) {
	cube := UnitCube()
	before := cube.SurfaceArea()

	cube.Smooth(2, 0.5)

	// Laplacian smoothing contracts a closed convex surface
	assert.Less(t, cube.SurfaceArea(), before)
	assert.Equal(t, 12, cube.FaceCount())
}

func TestSmoothZeroIterationsIsNoOp(t *testing.T) {
	cube := UnitCube()
	original := cube.Clone()

	cube.Smooth(0, 0.5)

	assert.Equal(t, original.Vertices, cube.Vertices)
}
