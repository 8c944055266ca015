package export

import (
	"archive/zip"
	"bufio"
	"fmt"
	"os"

	"github.com/philipparndt/goply/pkg/mesh"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>
</Types>
`

const relsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rel0" Target="/3D/3dmodel.model" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/>
</Relationships>
`

// WriteThreeMF serializes the mesh as a 3MF package: a zip archive holding
// the OPC bookkeeping parts and a single 3D model document.
func WriteThreeMF(m *mesh.Mesh, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	archive := zip.NewWriter(file)

	if err := writeZipEntry(archive, "[Content_Types].xml", contentTypesXML); err != nil {
		return err
	}
	if err := writeZipEntry(archive, "_rels/.rels", relsXML); err != nil {
		return err
	}

	model, err := archive.Create("3D/3dmodel.model")
	if err != nil {
		return err
	}
	w := bufio.NewWriter(model)

	fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(w, "<model unit=\"millimeter\" xml:lang=\"en-US\" xmlns=\"http://schemas.microsoft.com/3dmanufacturing/core/2015/02\">\n")
	fmt.Fprintf(w, "  <resources>\n")
	fmt.Fprintf(w, "    <object id=\"1\" type=\"model\">\n")
	fmt.Fprintf(w, "      <mesh>\n")
	fmt.Fprintf(w, "        <vertices>\n")
	for _, v := range m.Vertices {
		fmt.Fprintf(w, "          <vertex x=\"%g\" y=\"%g\" z=\"%g\"/>\n", v.X, v.Y, v.Z)
	}
	fmt.Fprintf(w, "        </vertices>\n")
	fmt.Fprintf(w, "        <triangles>\n")
	for _, f := range m.Faces {
		fmt.Fprintf(w, "          <triangle v1=\"%d\" v2=\"%d\" v3=\"%d\"/>\n", f[0], f[1], f[2])
	}
	fmt.Fprintf(w, "        </triangles>\n")
	fmt.Fprintf(w, "      </mesh>\n")
	fmt.Fprintf(w, "    </object>\n")
	fmt.Fprintf(w, "  </resources>\n")
	fmt.Fprintf(w, "  <build>\n")
	fmt.Fprintf(w, "    <item objectid=\"1\"/>\n")
	fmt.Fprintf(w, "  </build>\n")
	fmt.Fprintf(w, "</model>\n")
	if err := w.Flush(); err != nil {
		return err
	}

	return archive.Close()
}

func writeZipEntry(archive *zip.Writer, name, content string) error {
	w, err := archive.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(content))
	return err
}
