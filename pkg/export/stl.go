package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r3"

	"github.com/philipparndt/goply/pkg/mesh"
)

// WriteSTL serializes the mesh as binary STL. STL carries no color data,
// so vertex colors are dropped.
func WriteSTL(m *mesh.Mesh, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	header := make([]byte, 80)
	copy(header, "goply binary STL")
	if _, err := w.Write(header); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.FaceCount())); err != nil {
		return err
	}

	for i := range m.Faces {
		tri := m.Triangle(i)
		record := [12]float32{}
		putVector(record[0:3], tri.Normal())
		putVector(record[3:6], tri.V1)
		putVector(record[6:9], tri.V2)
		putVector(record[9:12], tri.V3)
		if err := binary.Write(w, binary.LittleEndian, record); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
			return err
		}
	}

	return w.Flush()
}

func putVector(dst []float32, v r3.Vector) {
	dst[0] = float32(v.X)
	dst[1] = float32(v.Y)
	dst[2] = float32(v.Z)
}

// ReadSTL parses a binary STL file back into an indexed mesh, welding
// identical vertices. Used to verify exports round-trip.
func ReadSTL(path string) (*mesh.Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	header := make([]byte, 80)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("failed to read STL header: %w", err)
	}

	var triangleCount uint32
	if err := binary.Read(reader, binary.LittleEndian, &triangleCount); err != nil {
		return nil, fmt.Errorf("failed to read triangle count: %w", err)
	}

	m := mesh.New()
	vertexIndex := make(map[[3]float32]int)
	intern := func(v [3]float32) int {
		if idx, ok := vertexIndex[v]; ok {
			return idx
		}
		idx := len(m.Vertices)
		vertexIndex[v] = idx
		m.Vertices = append(m.Vertices, r3.Vector{
			X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2]),
		})
		return idx
	}

	for i := uint32(0); i < triangleCount; i++ {
		var record [12]float32
		var attribute uint16
		if err := binary.Read(reader, binary.LittleEndian, &record); err != nil {
			return nil, fmt.Errorf("failed to read triangle %d: %w", i, err)
		}
		if err := binary.Read(reader, binary.LittleEndian, &attribute); err != nil {
			return nil, fmt.Errorf("failed to read attribute for triangle %d: %w", i, err)
		}

		// the stored normal is ignored; winding defines orientation
		a := intern([3]float32{record[3], record[4], record[5]})
		b := intern([3]float32{record[6], record[7], record[8]})
		c := intern([3]float32{record[9], record[10], record[11]})
		m.Faces = append(m.Faces, [3]int{a, b, c})
	}

	return m, nil
}
