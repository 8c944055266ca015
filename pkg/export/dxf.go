package export

import (
	"bufio"
	"fmt"
	"os"

	"github.com/philipparndt/goply/pkg/mesh"
)

// WriteDXF serializes the mesh as an ASCII DXF with one 3DFACE entity per
// triangle (fourth corner repeats the third, the DXF triangle convention).
func WriteDXF(m *mesh.Mesh, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	fmt.Fprintf(w, "0\nSECTION\n2\nENTITIES\n")
	for i := range m.Faces {
		tri := m.Triangle(i)
		fmt.Fprintf(w, "0\n3DFACE\n8\n0\n")
		corners := [4][3]float64{
			{tri.V1.X, tri.V1.Y, tri.V1.Z},
			{tri.V2.X, tri.V2.Y, tri.V2.Z},
			{tri.V3.X, tri.V3.Y, tri.V3.Z},
			{tri.V3.X, tri.V3.Y, tri.V3.Z},
		}
		for c, corner := range corners {
			fmt.Fprintf(w, "%d\n%g\n%d\n%g\n%d\n%g\n", 10+c, corner[0], 20+c, corner[1], 30+c, corner[2])
		}
	}
	fmt.Fprintf(w, "0\nENDSEC\n0\nEOF\n")

	return w.Flush()
}
