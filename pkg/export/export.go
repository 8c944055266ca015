// Package export serializes meshes to the supported interchange formats.
// STL and OBJ also have readers, used to verify exports round-trip.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/philipparndt/goply/pkg/mesh"
)

// Format is an output file format
type Format string

const (
	FormatSTL     Format = "stl"
	FormatOBJ     Format = "obj"
	FormatGLB     Format = "glb"
	FormatThreeMF Format = "3mf"
	FormatDXF     Format = "dxf"
)

// Formats lists every supported output format
var Formats = []Format{FormatSTL, FormatOBJ, FormatGLB, FormatThreeMF, FormatDXF}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Write serializes the mesh to path in the given format and verifies the
// file exists afterwards
func Write(m *mesh.Mesh, path string, format Format) error {
	if m.FaceCount() == 0 {
		return fmt.Errorf("refusing to export mesh with no faces")
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid mesh: %w", err)
	}

	var err error
	switch format {
	case FormatSTL:
		err = WriteSTL(m, path)
	case FormatOBJ:
		err = WriteOBJ(m, path)
	case FormatGLB:
		err = WriteGLB(m, path)
	case FormatThreeMF:
		err = WriteThreeMF(m, path)
	case FormatDXF:
		err = WriteDXF(m, path)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("export %s: output file missing after write: %w", format, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("export %s: output file is empty", format)
	}
	return nil
}
