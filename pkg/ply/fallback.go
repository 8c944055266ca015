package ply

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

// parseLenient is the fallback parse strategy for ASCII files the strict
// parser rejects. It tolerates unknown header keywords, stray blank lines and
// malformed data rows, salvaging whatever vertices and faces it can. Rows it
// cannot understand are skipped instead of failing the whole file.
func parseLenient(data []byte) (*PointCloud, error) {
	text := string(data)
	if idx := strings.Index(text, "ply"); idx < 0 {
		return nil, fmt.Errorf("no PLY signature found")
	}

	headerEnd := strings.Index(text, "end_header")
	if headerEnd < 0 {
		return nil, fmt.Errorf("no end_header marker found")
	}

	headerText := text[:headerEnd]
	if strings.Contains(headerText, "binary_little_endian") || strings.Contains(headerText, "binary_big_endian") {
		// The lenient path is line-oriented and cannot recover binary payloads
		return nil, fmt.Errorf("binary PLY cannot be recovered leniently")
	}

	vertexCount, faceCount, vertexProps := scanHeaderLenient(headerText)
	if vertexCount <= 0 {
		return nil, fmt.Errorf("no vertex element found in header")
	}

	body := text[headerEnd:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}

	pc := &PointCloud{}
	lines := strings.Split(body, "\n")
	lineNo := 0

	// Vertex rows: take the first vertexCount parseable numeric rows
	for lineNo < len(lines) && len(pc.Points) < vertexCount {
		fields := strings.Fields(lines[lineNo])
		lineNo++
		if len(fields) < 3 {
			continue
		}
		values := make([]float64, 0, len(fields))
		ok := true
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				ok = false
				break
			}
			values = append(values, v)
		}
		if !ok {
			continue
		}
		pc.Points = append(pc.Points, r3.Vector{X: values[0], Y: values[1], Z: values[2]})
		if vertexProps.colorOffset >= 0 && len(values) >= vertexProps.colorOffset+3 {
			pc.Colors = append(pc.Colors, Color{
				values[vertexProps.colorOffset],
				values[vertexProps.colorOffset+1],
				values[vertexProps.colorOffset+2],
			})
		}
	}

	if len(pc.Points) == 0 {
		return nil, fmt.Errorf("no parseable vertex rows found")
	}
	if len(pc.Colors) > 0 && len(pc.Colors) != len(pc.Points) {
		pc.Colors = nil
	}

	// Face rows: "<n> i0 i1 ... in-1"; skip anything malformed or out of range
	for ; lineNo < len(lines) && faceCount > 0; lineNo++ {
		fields := strings.Fields(lines[lineNo])
		if len(fields) < 4 {
			continue
		}
		count, err := strconv.Atoi(fields[0])
		if err != nil || count < 3 || len(fields) < count+1 {
			continue
		}
		indices := make([]int, 0, count)
		valid := true
		for j := 1; j <= count; j++ {
			idx, err := strconv.Atoi(fields[j])
			if err != nil || idx < 0 || idx >= len(pc.Points) {
				valid = false
				break
			}
			indices = append(indices, idx)
		}
		if !valid {
			continue
		}
		_ = storeFace(pc, indices)
	}

	pc.normalizeColors()
	return pc, nil
}

type lenientVertexProps struct {
	colorOffset int
}

// scanHeaderLenient extracts the vertex/face element counts and the position
// of the red/green/blue properties within a vertex row
func scanHeaderLenient(headerText string) (vertexCount, faceCount int, props lenientVertexProps) {
	props.colorOffset = -1
	inVertex := false
	propIndex := 0

	for _, line := range strings.Split(headerText, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "element":
			if len(fields) < 3 {
				continue
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil {
				continue
			}
			switch fields[1] {
			case "vertex":
				vertexCount = count
				inVertex = true
				propIndex = 0
			case "face":
				faceCount = count
				inVertex = false
			default:
				inVertex = false
			}
		case "property":
			if !inVertex || len(fields) < 3 {
				continue
			}
			if fields[len(fields)-1] == "red" {
				props.colorOffset = propIndex
			}
			propIndex++
		}
	}
	return vertexCount, faceCount, props
}
