package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/philipparndt/goply/pkg/export"
	"github.com/philipparndt/goply/pkg/mesh"
)

const tetrahedronPLY = `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 4
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
0 0 1
3 0 2 1
3 0 1 3
3 0 3 2
3 1 2 3
`

const trianglePLY = `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
3 0 1 2
`

// two triangles of a quad, with the shared edge vertices listed twice
const splitQuadPLY = `ply
format ascii 1.0
element vertex 6
property float x
property float y
property float z
element face 2
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 0 0
1 1 0
0 1 0
3 0 1 2
3 3 4 5
`

const cubeCloudPLY = `ply
format ascii 1.0
element vertex 8
property float x
property float y
property float z
end_header
0 0 0
1 0 0
1 1 0
0 1 0
0 0 1
1 0 1
1 1 1
0 1 1
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.ply")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConvertMesh(t *testing.T) {
	outDir := t.TempDir()

	var stages []int
	outcome, err := New(zap.NewNop()).Convert(Request{
		InputPath: writeFixture(t, tetrahedronPLY),
		OutputDir: outDir,
		JobID:     "job42",
		Formats:   []export.Format{export.FormatSTL, export.FormatOBJ},
		Smoothing: mesh.SmoothingMedium,
		Progress:  func(p int, _ string) { stages = append(stages, p) },
	})
	require.NoError(t, err)

	assert.Equal(t, SourceMesh, outcome.Source)
	assert.Empty(t, outcome.Strategy)
	assert.Empty(t, outcome.Failed)
	require.Len(t, outcome.Outputs, 2)

	stl := outcome.Outputs[export.FormatSTL]
	assert.Equal(t, filepath.Join(outDir, "job42_smooth.stl"), stl)
	info, err := os.Stat(stl)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	require.NotEmpty(t, stages)
	for i := 1; i < len(stages); i++ {
		assert.GreaterOrEqual(t, stages[i], stages[i-1], "progress must not move backwards")
	}
	assert.Equal(t, 100, stages[len(stages)-1])
}

func TestConvertPointCloud(t *testing.T) {
	outcome, err := New(zap.NewNop()).Convert(Request{
		InputPath: writeFixture(t, cubeCloudPLY),
		OutputDir: t.TempDir(),
		JobID:     "cloud1",
		Formats:   []export.Format{export.FormatSTL},
		Smoothing: mesh.SmoothingMedium,
	})
	require.NoError(t, err)

	assert.Equal(t, SourcePointCloud, outcome.Source)
	assert.NotEmpty(t, outcome.Strategy)
	assert.Positive(t, outcome.Faces)
	assert.Contains(t, outcome.Outputs, export.FormatSTL)
}

func TestConvertPartialExportFailure(t *testing.T) {
	outcome, err := New(zap.NewNop()).Convert(Request{
		InputPath: writeFixture(t, tetrahedronPLY),
		OutputDir: t.TempDir(),
		JobID:     "partial",
		Formats:   []export.Format{export.FormatSTL, export.Format("badfmt")},
		Smoothing: mesh.SmoothingMedium,
	})
	require.NoError(t, err, "one good format must carry the conversion")

	assert.Contains(t, outcome.Outputs, export.FormatSTL)
	assert.Contains(t, outcome.Failed, export.Format("badfmt"))
}

func TestConvertAllExportsFailed(t *testing.T) {
	_, err := New(zap.NewNop()).Convert(Request{
		InputPath: writeFixture(t, tetrahedronPLY),
		OutputDir: t.TempDir(),
		JobID:     "doomed",
		Formats:   []export.Format{export.Format("nope"), export.Format("nah")},
		Smoothing: mesh.SmoothingMedium,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllExportsFailed)
}

func TestConvertNoFormats(t *testing.T) {
	_, err := New(zap.NewNop()).Convert(Request{
		InputPath: writeFixture(t, tetrahedronPLY),
		OutputDir: t.TempDir(),
	})
	assert.ErrorIs(t, err, ErrNoFormats)
}

func TestConvertMissingInput(t *testing.T) {
	_, err := New(zap.NewNop()).Convert(Request{
		InputPath: filepath.Join(t.TempDir(), "missing.ply"),
		OutputDir: t.TempDir(),
		Formats:   []export.Format{export.FormatSTL},
	})
	require.Error(t, err)
	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestNewWithOptionsAppliesTuning(t *testing.T) {
	c := NewWithOptions(Options{
		OutwardRatioThreshold: 0.9,
		DensityStdDevCutoff:   1.5,
	}, zap.NewNop())
	assert.Equal(t, 0.9, c.fixer.Threshold)
	assert.Equal(t, 1.5, c.reconstructor.DensityCutoff)

	def := New(zap.NewNop())
	assert.Equal(t, 0.6, def.fixer.Threshold)
	assert.Equal(t, 2.0, def.reconstructor.DensityCutoff)
}

func TestOutwardThresholdControlsDoubling(t *testing.T) {
	// a lone triangle has outward ratio 0: doubled under the default
	// threshold, left single-sided when the threshold is lowered to 0
	outcome, err := New(zap.NewNop()).Convert(Request{
		InputPath: writeFixture(t, trianglePLY),
		OutputDir: t.TempDir(),
		JobID:     "default",
		Formats:   []export.Format{export.FormatSTL},
		Smoothing: mesh.SmoothingMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Faces)

	tuned := NewWithOptions(Options{OutwardRatioThreshold: 0, DensityStdDevCutoff: 2}, zap.NewNop())
	outcome, err = tuned.Convert(Request{
		InputPath: writeFixture(t, trianglePLY),
		OutputDir: t.TempDir(),
		JobID:     "tuned",
		Formats:   []export.Format{export.FormatSTL},
		Smoothing: mesh.SmoothingMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Faces)
}

func TestFailedConversionNeverReports100(t *testing.T) {
	type call struct {
		percent int
		stage   string
	}
	var calls []call
	_, err := New(zap.NewNop()).Convert(Request{
		InputPath: writeFixture(t, tetrahedronPLY),
		OutputDir: t.TempDir(),
		JobID:     "doomed",
		Formats:   []export.Format{export.Format("nope"), export.Format("nah")},
		Smoothing: mesh.SmoothingMedium,
		Progress: func(p int, stage string) {
			calls = append(calls, call{p, stage})
		},
	})
	require.ErrorIs(t, err, ErrAllExportsFailed)

	require.NotEmpty(t, calls)
	for _, c := range calls {
		assert.Less(t, c.percent, 100, "stage %q", c.stage)
	}
	last := calls[len(calls)-1]
	assert.Contains(t, last.stage, "exporting", "milestones are reported before the attempt")
}

func TestConvertWeldsSharedVertices(t *testing.T) {
	outcome, err := New(zap.NewNop()).Convert(Request{
		InputPath: writeFixture(t, splitQuadPLY),
		OutputDir: t.TempDir(),
		JobID:     "quad",
		Formats:   []export.Format{export.FormatSTL},
		Smoothing: mesh.SmoothingLight,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, outcome.Vertices, "repeated shared vertices must be merged")
}

func TestConvertDefaultsJobIDFromInputName(t *testing.T) {
	outDir := t.TempDir()
	outcome, err := New(zap.NewNop()).Convert(Request{
		InputPath: writeFixture(t, tetrahedronPLY),
		OutputDir: outDir,
		Formats:   []export.Format{export.FormatOBJ},
		Smoothing: mesh.SmoothingLight,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "input_smooth.obj"), outcome.Outputs[export.FormatOBJ])
}
