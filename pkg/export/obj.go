package export

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/philipparndt/goply/pkg/mesh"
	"github.com/philipparndt/goply/pkg/ply"
)

// WriteOBJ serializes the mesh as Wavefront OBJ. Vertex colors, when
// present, are written using the common "v x y z r g b" extension.
func WriteOBJ(m *mesh.Mesh, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	fmt.Fprintf(w, "# exported by goply\n")
	hasColors := m.HasColors()
	for i, v := range m.Vertices {
		if hasColors {
			c := m.Colors[i]
			fmt.Fprintf(w, "v %g %g %g %g %g %g\n", v.X, v.Y, v.Z, c[0], c[1], c[2])
		} else {
			fmt.Fprintf(w, "v %g %g %g\n", v.X, v.Y, v.Z)
		}
	}
	for _, f := range m.Faces {
		// OBJ indices are 1-based
		fmt.Fprintf(w, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}

	return w.Flush()
}

// ReadOBJ parses an OBJ file back into a mesh. Only vertex and triangular
// face statements are interpreted; everything else is skipped.
func ReadOBJ(path string) (*mesh.Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m := mesh.New()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("malformed vertex line: %q", scanner.Text())
			}
			x, err1 := strconv.ParseFloat(fields[1], 64)
			y, err2 := strconv.ParseFloat(fields[2], 64)
			z, err3 := strconv.ParseFloat(fields[3], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fmt.Errorf("malformed vertex line: %q", scanner.Text())
			}
			m.Vertices = append(m.Vertices, r3.Vector{X: x, Y: y, Z: z})
			if len(fields) >= 7 {
				r, errR := strconv.ParseFloat(fields[4], 64)
				g, errG := strconv.ParseFloat(fields[5], 64)
				b, errB := strconv.ParseFloat(fields[6], 64)
				if errR == nil && errG == nil && errB == nil {
					m.Colors = append(m.Colors, ply.Color{r, g, b})
				}
			}
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("malformed face line: %q", scanner.Text())
			}
			indices := make([]int, 0, len(fields)-1)
			for _, fieldRaw := range fields[1:] {
				// strip texture/normal references: "1/2/3" -> "1"
				field, _, _ := strings.Cut(fieldRaw, "/")
				idx, err := strconv.Atoi(field)
				if err != nil {
					return nil, fmt.Errorf("malformed face index %q", fieldRaw)
				}
				if idx < 0 {
					idx = len(m.Vertices) + idx + 1
				}
				indices = append(indices, idx-1)
			}
			for i := 1; i+1 < len(indices); i++ {
				m.Faces = append(m.Faces, [3]int{indices[0], indices[i], indices[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
