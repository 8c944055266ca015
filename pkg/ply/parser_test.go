package ply

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asciiCloud = `ply
format ascii 1.0
comment generated for tests
element vertex 4
property float x
property float y
property float z
property uchar red
property uchar green
property uchar blue
end_header
0 0 0 255 0 0
1 0 0 0 255 0
0 1 0 0 0 255
0 0 1 128 128 128
`

const asciiMesh = `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 2
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
0 0 1
3 0 1 2
3 0 2 3
`

func TestParseASCIIPointCloud(t *testing.T) {
	pc, err := Parse(bytes.NewReader([]byte(asciiCloud)))
	require.NoError(t, err)

	assert.Len(t, pc.Points, 4)
	assert.True(t, pc.IsPointCloud())
	require.True(t, pc.HasColors())

	// 0-255 channels are normalized to [0,1] on ingest
	assert.InDelta(t, 1.0, pc.Colors[0][0], 1e-9)
	assert.InDelta(t, 0.0, pc.Colors[0][1], 1e-9)
	assert.InDelta(t, 128.0/255.0, pc.Colors[3][0], 1e-9)
}

func TestParseASCIIMesh(t *testing.T) {
	pc, err := Parse(bytes.NewReader([]byte(asciiMesh)))
	require.NoError(t, err)

	assert.Len(t, pc.Points, 4)
	assert.Len(t, pc.Faces, 2)
	assert.False(t, pc.IsPointCloud())
	assert.Equal(t, [3]int{0, 1, 2}, pc.Faces[0])
}

func TestParseQuadFanTriangulation(t *testing.T) {
	src := `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`
	pc, err := Parse(bytes.NewReader([]byte(src)))
	require.NoError(t, err)

	require.Len(t, pc.Faces, 2)
	assert.Equal(t, [3]int{0, 1, 2}, pc.Faces[0])
	assert.Equal(t, [3]int{0, 2, 3}, pc.Faces[1])
}

func TestParseBinaryLittleEndian(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\n")
	buf.WriteString("format binary_little_endian 1.0\n")
	buf.WriteString("element vertex 3\n")
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	buf.WriteString("element face 1\n")
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")

	verts := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	for _, v := range verts {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	buf.WriteByte(3)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, [3]int32{0, 1, 2}))

	pc, err := Parse(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Len(t, pc.Points, 3)
	require.Len(t, pc.Faces, 1)
	assert.Equal(t, [3]int{0, 1, 2}, pc.Faces[0])
	assert.InDelta(t, 1.0, pc.Points[1].X, 1e-9)
}

func TestParseRejectsOutOfRangeIndex(t *testing.T) {
	src := `ply
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
3 0 1 9
`
	_, err := Parse(bytes.NewReader([]byte(src)))
	assert.Error(t, err)
}

func TestParseRejectsNotPLY(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte("solid something\n")))
	assert.Error(t, err)
}

func TestLoadBytesFallsBackToLenient(t *testing.T) {
	// Unknown header keyword makes the strict parser bail; the lenient
	// parser should still salvage the vertex data.
	src := `ply
format ascii 1.0
vendor_extension foo bar
element vertex 3
property float x
property float y
property float z
end_header
0 0 0
1 0 0
0 1 0
`
	pc, err := LoadBytes([]byte(src))
	require.NoError(t, err)

	assert.Len(t, pc.Points, 3)
	assert.True(t, pc.IsPointCloud())
}

func TestLoadBytesBothStrategiesFail(t *testing.T) {
	_, err := LoadBytes([]byte("this is not a mesh at all"))
	assert.Error(t, err)
}

func TestLenientSkipsMalformedRows(t *testing.T) {
	src := `ply
format ascii 1.0
vendor_extension 1
element vertex 2
property float x
property float y
property float z
end_header
garbage row here
0 0 0
1 2 3
`
	pc, err := LoadBytes([]byte(src))
	require.NoError(t, err)

	require.Len(t, pc.Points, 2)
	assert.InDelta(t, 3.0, pc.Points[1].Z, 1e-9)
}

func TestColorByteExpansion(t *testing.T) {
	c := Color{1.0, 0.5, 0.0}
	b := c.Byte()
	assert.Equal(t, uint8(255), b[0])
	assert.Equal(t, uint8(128), b[1])
	assert.Equal(t, uint8(0), b[2])
}

func TestFloatColorsStayNormalized(t *testing.T) {
	src := `ply
format ascii 1.0
element vertex 1
property float x
property float y
property float z
property float red
property float green
property float blue
end_header
0 0 0 0.25 0.5 0.75
`
	pc, err := Parse(bytes.NewReader([]byte(src)))
	require.NoError(t, err)
	require.True(t, pc.HasColors())
	assert.InDelta(t, 0.25, pc.Colors[0][0], 1e-9)
}

func TestBoundsDiagonal(t *testing.T) {
	pc, err := Parse(bytes.NewReader([]byte(asciiMesh)))
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(3), pc.Bounds().Diagonal(), 1e-9)
}
