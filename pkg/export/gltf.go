package export

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"

	"github.com/philipparndt/goply/pkg/mesh"
)

// glTF 2.0 constants used by the GLB writer
const (
	glbMagic        = 0x46546C67 // "glTF"
	glbVersion      = 2
	chunkTypeJSON   = 0x4E4F534A // "JSON"
	chunkTypeBinary = 0x004E4942 // "BIN"

	componentFloat32 = 5126
	componentUint32  = 5125

	targetArrayBuffer        = 34962
	targetElementArrayBuffer = 34963

	primitiveModeTriangles = 4
)

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
}

type gltfBuffer struct {
	ByteLength int `json:"byteLength"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target,omitempty"`
}

type gltfAccessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float64 `json:"min,omitempty"`
	Max           []float64 `json:"max,omitempty"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
	Mode       int            `json:"mode"`
}

type gltfMesh struct {
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfNode struct {
	Mesh int `json:"mesh"`
}

type gltfScene struct {
	Nodes []int `json:"nodes"`
}

type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Buffers     []gltfBuffer     `json:"buffers"`
	BufferViews []gltfBufferView `json:"bufferViews"`
	Accessors   []gltfAccessor   `json:"accessors"`
	Meshes      []gltfMesh       `json:"meshes"`
	Nodes       []gltfNode       `json:"nodes"`
	Scenes      []gltfScene      `json:"scenes"`
	Scene       int              `json:"scene"`
}

// WriteGLB serializes the mesh as a binary glTF 2.0 container with one
// triangle primitive. Vertex colors are emitted as a COLOR_0 attribute.
func WriteGLB(m *mesh.Mesh, path string) error {
	var bin bytes.Buffer
	doc := gltfDocument{
		Asset: gltfAsset{Version: "2.0", Generator: "goply"},
		Scene: 0,
	}

	// positions
	bounds := m.Bounds()
	positions := make([]float32, 0, 3*len(m.Vertices))
	for _, v := range m.Vertices {
		positions = append(positions, float32(v.X), float32(v.Y), float32(v.Z))
	}
	posView := appendBufferView(&doc, &bin, positions, targetArrayBuffer)
	doc.Accessors = append(doc.Accessors, gltfAccessor{
		BufferView:    posView,
		ComponentType: componentFloat32,
		Count:         len(m.Vertices),
		Type:          "VEC3",
		Min:           []float64{f32(bounds.Min.X), f32(bounds.Min.Y), f32(bounds.Min.Z)},
		Max:           []float64{f32(bounds.Max.X), f32(bounds.Max.Y), f32(bounds.Max.Z)},
	})
	posAccessor := len(doc.Accessors) - 1

	attributes := map[string]int{"POSITION": posAccessor}

	// optional vertex colors
	if m.HasColors() {
		colors := make([]float32, 0, 3*len(m.Colors))
		for _, c := range m.Colors {
			colors = append(colors, float32(c[0]), float32(c[1]), float32(c[2]))
		}
		colorView := appendBufferView(&doc, &bin, colors, targetArrayBuffer)
		doc.Accessors = append(doc.Accessors, gltfAccessor{
			BufferView:    colorView,
			ComponentType: componentFloat32,
			Count:         len(m.Colors),
			Type:          "VEC3",
		})
		attributes["COLOR_0"] = len(doc.Accessors) - 1
	}

	// triangle indices
	indices := make([]uint32, 0, 3*len(m.Faces))
	for _, f := range m.Faces {
		indices = append(indices, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	indexView := appendBufferView(&doc, &bin, indices, targetElementArrayBuffer)
	doc.Accessors = append(doc.Accessors, gltfAccessor{
		BufferView:    indexView,
		ComponentType: componentUint32,
		Count:         len(indices),
		Type:          "SCALAR",
	})
	indexAccessor := len(doc.Accessors) - 1

	doc.Meshes = []gltfMesh{{Primitives: []gltfPrimitive{{
		Attributes: attributes,
		Indices:    indexAccessor,
		Mode:       primitiveModeTriangles,
	}}}}
	doc.Nodes = []gltfNode{{Mesh: 0}}
	doc.Scenes = []gltfScene{{Nodes: []int{0}}}
	doc.Buffers = []gltfBuffer{{ByteLength: bin.Len()}}

	jsonChunk, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	// chunks are padded to 4-byte alignment: JSON with spaces, BIN with zeros
	jsonChunk = pad(jsonChunk, ' ')
	binChunk := pad(bin.Bytes(), 0)

	var out bytes.Buffer
	total := 12 + 8 + len(jsonChunk) + 8 + len(binChunk)
	writeUint32(&out, glbMagic)
	writeUint32(&out, glbVersion)
	writeUint32(&out, uint32(total))
	writeUint32(&out, uint32(len(jsonChunk)))
	writeUint32(&out, chunkTypeJSON)
	out.Write(jsonChunk)
	writeUint32(&out, uint32(len(binChunk)))
	writeUint32(&out, chunkTypeBinary)
	out.Write(binChunk)

	return os.WriteFile(path, out.Bytes(), 0o644)
}

// appendBufferView writes data into the binary buffer at 4-byte alignment
// and records the corresponding buffer view, returning its index
func appendBufferView[T uint32 | float32](doc *gltfDocument, bin *bytes.Buffer, data []T, target int) int {
	for bin.Len()%4 != 0 {
		bin.WriteByte(0)
	}
	offset := bin.Len()
	_ = binary.Write(bin, binary.LittleEndian, data)
	doc.BufferViews = append(doc.BufferViews, gltfBufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: bin.Len() - offset,
		Target:     target,
	})
	return len(doc.BufferViews) - 1
}

// f32 rounds through float32 so accessor min/max match the stored data
func f32(v float64) float64 {
	return float64(float32(v))
}

func pad(data []byte, filler byte) []byte {
	for len(data)%4 != 0 {
		data = append(data, filler)
	}
	return data
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// glbHeaderValid does a cheap sanity check on an exported GLB file, used by
// tests and output verification
func glbHeaderValid(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return binary.LittleEndian.Uint32(data[0:4]) == glbMagic &&
		binary.LittleEndian.Uint32(data[4:8]) == glbVersion &&
		binary.LittleEndian.Uint32(data[8:12]) == uint32(len(data))
}
