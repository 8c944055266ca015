package ply

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

// Load reads a PLY file from disk. It first attempts the strict parser and
// falls back to the lenient parser for files with malformed or non-standard
// headers. An error is returned only when both strategies fail.
func Load(path string) (*PointCloud, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses PLY data already held in memory
func LoadBytes(data []byte) (*PointCloud, error) {
	pc, strictErr := Parse(bytes.NewReader(data))
	if strictErr == nil {
		return pc, nil
	}

	pc, lenientErr := parseLenient(data)
	if lenientErr != nil {
		return nil, fmt.Errorf("strict parser: %v; lenient parser: %w", strictErr, lenientErr)
	}
	return pc, nil
}

type plyFormat int

const (
	formatASCII plyFormat = iota
	formatBinaryLittle
	formatBinaryBig
)

type propType int

const (
	typeInt8 propType = iota
	typeUint8
	typeInt16
	typeUint16
	typeInt32
	typeUint32
	typeFloat32
	typeFloat64
)

var propTypeNames = map[string]propType{
	"char": typeInt8, "int8": typeInt8,
	"uchar": typeUint8, "uint8": typeUint8,
	"short": typeInt16, "int16": typeInt16,
	"ushort": typeUint16, "uint16": typeUint16,
	"int": typeInt32, "int32": typeInt32,
	"uint": typeUint32, "uint32": typeUint32,
	"float": typeFloat32, "float32": typeFloat32,
	"double": typeFloat64, "float64": typeFloat64,
}

func (t propType) isInteger() bool {
	return t != typeFloat32 && t != typeFloat64
}

type property struct {
	name      string
	typ       propType
	isList    bool
	countType propType
}

type element struct {
	name  string
	count int
	props []property
}

type header struct {
	format   plyFormat
	elements []element
}

// Parse reads a PLY stream with strict header and data validation.
// ASCII, binary little-endian and binary big-endian formats are supported.
func Parse(r io.Reader) (*PointCloud, error) {
	reader := bufio.NewReader(r)

	hdr, err := parseHeader(reader)
	if err != nil {
		return nil, err
	}

	pc := &PointCloud{}
	for _, elem := range hdr.elements {
		switch hdr.format {
		case formatASCII:
			err = readElementASCII(reader, hdr, elem, pc)
		case formatBinaryLittle:
			err = readElementBinary(reader, binary.LittleEndian, elem, pc)
		case formatBinaryBig:
			err = readElementBinary(reader, binary.BigEndian, elem, pc)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(pc.Points) == 0 {
		return nil, fmt.Errorf("PLY file contains no vertices")
	}
	if err := validateFaces(pc); err != nil {
		return nil, err
	}
	pc.normalizeColors()
	return pc, nil
}

func parseHeader(reader *bufio.Reader) (*header, error) {
	magic, err := readHeaderLine(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read magic line: %w", err)
	}
	if magic != "ply" {
		return nil, fmt.Errorf("not a PLY file: expected magic %q, got %q", "ply", magic)
	}

	hdr := &header{}
	haveFormat := false
	var current *element

	for {
		line, err := readHeaderLine(reader)
		if err != nil {
			return nil, fmt.Errorf("unexpected end of header: %w", err)
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "comment", "obj_info":
			// ignored

		case "format":
			if len(fields) != 3 {
				return nil, fmt.Errorf("malformed format line: %q", line)
			}
			switch fields[1] {
			case "ascii":
				hdr.format = formatASCII
			case "binary_little_endian":
				hdr.format = formatBinaryLittle
			case "binary_big_endian":
				hdr.format = formatBinaryBig
			default:
				return nil, fmt.Errorf("unsupported PLY format %q", fields[1])
			}
			haveFormat = true

		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("malformed element line: %q", line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count in %q", line)
			}
			hdr.elements = append(hdr.elements, element{name: fields[1], count: count})
			current = &hdr.elements[len(hdr.elements)-1]

		case "property":
			if current == nil {
				return nil, fmt.Errorf("property before any element: %q", line)
			}
			prop, err := parseProperty(fields)
			if err != nil {
				return nil, err
			}
			current.props = append(current.props, prop)

		case "end_header":
			if !haveFormat {
				return nil, fmt.Errorf("header is missing a format line")
			}
			return hdr, nil

		default:
			return nil, fmt.Errorf("unknown header keyword %q", fields[0])
		}
	}
}

func parseProperty(fields []string) (property, error) {
	if len(fields) >= 5 && fields[1] == "list" {
		countType, ok := propTypeNames[fields[2]]
		if !ok {
			return property{}, fmt.Errorf("unknown list count type %q", fields[2])
		}
		elemType, ok := propTypeNames[fields[3]]
		if !ok {
			return property{}, fmt.Errorf("unknown list element type %q", fields[3])
		}
		if !countType.isInteger() || !elemType.isInteger() {
			return property{}, fmt.Errorf("list property %q must use integer types", fields[4])
		}
		return property{name: fields[4], typ: elemType, isList: true, countType: countType}, nil
	}
	if len(fields) == 3 {
		typ, ok := propTypeNames[fields[1]]
		if !ok {
			return property{}, fmt.Errorf("unknown property type %q", fields[1])
		}
		return property{name: fields[2], typ: typ}, nil
	}
	return property{}, fmt.Errorf("malformed property line: %q", strings.Join(fields, " "))
}

func readHeaderLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func storeVertex(pc *PointCloud, row map[string]float64) {
	pc.Points = append(pc.Points, r3.Vector{X: row["x"], Y: row["y"], Z: row["z"]})
	if _, ok := row["red"]; ok {
		pc.Colors = append(pc.Colors, Color{row["red"], row["green"], row["blue"]})
	}
	if _, ok := row["nx"]; ok {
		pc.Normals = append(pc.Normals, r3.Vector{X: row["nx"], Y: row["ny"], Z: row["nz"]})
	}
}

func storeFace(pc *PointCloud, indices []int) error {
	if len(indices) < 3 {
		return fmt.Errorf("face with %d vertices", len(indices))
	}
	// Fan-triangulate polygons with more than three vertices
	for i := 1; i+1 < len(indices); i++ {
		pc.Faces = append(pc.Faces, [3]int{indices[0], indices[i], indices[i+1]})
	}
	return nil
}

func isFaceList(elemName, propName string) bool {
	return elemName == "face" && (propName == "vertex_indices" || propName == "vertex_index")
}

func readElementASCII(reader *bufio.Reader, hdr *header, elem element, pc *PointCloud) error {
	for i := 0; i < elem.count; i++ {
		line, err := readDataLine(reader)
		if err != nil {
			return fmt.Errorf("element %s row %d: %w", elem.name, i, err)
		}
		tokens := strings.Fields(line)
		pos := 0

		row := make(map[string]float64, len(elem.props))
		for _, prop := range elem.props {
			if prop.isList {
				if pos >= len(tokens) {
					return fmt.Errorf("element %s row %d: truncated list", elem.name, i)
				}
				count, err := strconv.Atoi(tokens[pos])
				if err != nil || count < 0 {
					return fmt.Errorf("element %s row %d: bad list count %q", elem.name, i, tokens[pos])
				}
				pos++
				if pos+count > len(tokens) {
					return fmt.Errorf("element %s row %d: truncated list values", elem.name, i)
				}
				if isFaceList(elem.name, prop.name) {
					indices := make([]int, count)
					for j := 0; j < count; j++ {
						idx, err := strconv.Atoi(tokens[pos+j])
						if err != nil {
							return fmt.Errorf("element %s row %d: bad index %q", elem.name, i, tokens[pos+j])
						}
						indices[j] = idx
					}
					if err := storeFace(pc, indices); err != nil {
						return fmt.Errorf("element %s row %d: %w", elem.name, i, err)
					}
				}
				pos += count
				continue
			}

			if pos >= len(tokens) {
				return fmt.Errorf("element %s row %d: expected %d values, got %d", elem.name, i, len(elem.props), len(tokens))
			}
			v, err := strconv.ParseFloat(tokens[pos], 64)
			if err != nil {
				return fmt.Errorf("element %s row %d: bad value %q", elem.name, i, tokens[pos])
			}
			row[prop.name] = v
			pos++
		}

		if elem.name == "vertex" {
			storeVertex(pc, row)
		}
	}
	return nil
}

// readDataLine skips blank lines between data rows
func readDataLine(reader *bufio.Reader) (string, error) {
	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed, nil
		}
		if err != nil {
			return "", io.ErrUnexpectedEOF
		}
	}
}

func readElementBinary(reader *bufio.Reader, order binary.ByteOrder, elem element, pc *PointCloud) error {
	buf := make([]byte, 8)
	for i := 0; i < elem.count; i++ {
		row := make(map[string]float64, len(elem.props))
		for _, prop := range elem.props {
			if prop.isList {
				countF, err := readValue(reader, order, prop.countType, buf)
				if err != nil {
					return fmt.Errorf("element %s row %d: %w", elem.name, i, err)
				}
				count := int(countF)
				if count < 0 {
					return fmt.Errorf("element %s row %d: negative list count", elem.name, i)
				}
				indices := make([]int, 0, count)
				for j := 0; j < count; j++ {
					v, err := readValue(reader, order, prop.typ, buf)
					if err != nil {
						return fmt.Errorf("element %s row %d: %w", elem.name, i, err)
					}
					indices = append(indices, int(v))
				}
				if isFaceList(elem.name, prop.name) {
					if err := storeFace(pc, indices); err != nil {
						return fmt.Errorf("element %s row %d: %w", elem.name, i, err)
					}
				}
				continue
			}

			v, err := readValue(reader, order, prop.typ, buf)
			if err != nil {
				return fmt.Errorf("element %s row %d: %w", elem.name, i, err)
			}
			row[prop.name] = v
		}

		if elem.name == "vertex" {
			storeVertex(pc, row)
		}
	}
	return nil
}

func readValue(reader *bufio.Reader, order binary.ByteOrder, typ propType, buf []byte) (float64, error) {
	size := typeSize(typ)
	if _, err := io.ReadFull(reader, buf[:size]); err != nil {
		return 0, err
	}
	switch typ {
	case typeInt8:
		return float64(int8(buf[0])), nil
	case typeUint8:
		return float64(buf[0]), nil
	case typeInt16:
		return float64(int16(order.Uint16(buf))), nil
	case typeUint16:
		return float64(order.Uint16(buf)), nil
	case typeInt32:
		return float64(int32(order.Uint32(buf))), nil
	case typeUint32:
		return float64(order.Uint32(buf)), nil
	case typeFloat32:
		return float64(math.Float32frombits(order.Uint32(buf))), nil
	case typeFloat64:
		return math.Float64frombits(order.Uint64(buf)), nil
	}
	return 0, fmt.Errorf("unhandled property type %d", typ)
}

func typeSize(typ propType) int {
	switch typ {
	case typeInt8, typeUint8:
		return 1
	case typeInt16, typeUint16:
		return 2
	case typeInt32, typeUint32, typeFloat32:
		return 4
	default:
		return 8
	}
}

func validateFaces(pc *PointCloud) error {
	n := len(pc.Points)
	for _, f := range pc.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face index %d out of range (vertex count %d)", idx, n)
			}
		}
	}
	return nil
}
