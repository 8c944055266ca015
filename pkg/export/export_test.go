package export

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/goply/pkg/mesh"
	"github.com/philipparndt/goply/pkg/ply"
)

func coloredCube() *mesh.Mesh {
	cube := mesh.UnitCube()
	cube.Colors = make([]ply.Color, cube.VertexCount())
	for i := range cube.Colors {
		cube.Colors[i] = ply.Color{float64(i) / 7.0, 0.5, 1.0 - float64(i)/7.0}
	}
	return cube
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"stl", "obj", "glb", "3mf", "dxf", "STL", ".obj"} {
		f, err := ParseFormat(s)
		require.NoError(t, err, s)
		assert.NotEmpty(t, f)
	}

	_, err := ParseFormat("badfmt")
	assert.Error(t, err)
}

func TestSTLRoundTrip(t *testing.T) {
	cube := mesh.UnitCube()
	path := filepath.Join(t.TempDir(), "cube.stl")

	require.NoError(t, Write(cube, path, FormatSTL))

	got, err := ReadSTL(path)
	require.NoError(t, err)

	assert.Equal(t, cube.FaceCount(), got.FaceCount())
	assert.Equal(t, cube.VertexCount(), got.VertexCount())
}

func TestOBJRoundTrip(t *testing.T) {
	cube := coloredCube()
	path := filepath.Join(t.TempDir(), "cube.obj")

	require.NoError(t, Write(cube, path, FormatOBJ))

	got, err := ReadOBJ(path)
	require.NoError(t, err)

	assert.Equal(t, cube.FaceCount(), got.FaceCount())
	assert.Equal(t, cube.VertexCount(), got.VertexCount())
	require.True(t, got.HasColors())
	assert.InDelta(t, 0.5, got.Colors[0][1], 1e-9)
}

func TestGLBHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.glb")
	require.NoError(t, Write(coloredCube(), path, FormatGLB))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, glbHeaderValid(data))
	assert.Contains(t, string(data), `"COLOR_0"`)
	// chunk alignment
	assert.Zero(t, len(data)%4)
}

func TestThreeMFStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.3mf")
	require.NoError(t, Write(mesh.UnitCube(), path, FormatThreeMF))

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	assert.True(t, names["[Content_Types].xml"])
	assert.True(t, names["_rels/.rels"])
	assert.True(t, names["3D/3dmodel.model"])
}

func TestDXFContainsFaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.dxf")
	require.NoError(t, Write(mesh.UnitCube(), path, FormatDXF))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Equal(t, 12, strings.Count(text, "3DFACE"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(text), "EOF"))
}

func TestWriteRejectsEmptyMesh(t *testing.T) {
	empty := mesh.New()
	err := Write(empty, filepath.Join(t.TempDir(), "empty.stl"), FormatSTL)
	assert.Error(t, err)
}

func TestWriteAllFormats(t *testing.T) {
	dir := t.TempDir()
	for _, f := range Formats {
		path := filepath.Join(dir, "out."+string(f))
		require.NoError(t, Write(coloredCube(), path, f), f)

		info, err := os.Stat(path)
		require.NoError(t, err, f)
		assert.Greater(t, info.Size(), int64(0), f)
	}
}
