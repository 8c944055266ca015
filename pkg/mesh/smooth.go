package mesh

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// SmoothingLevel selects how aggressively geometry is smoothed. It also
// drives the reconstruction resolution for point-cloud inputs.
type SmoothingLevel string

const (
	SmoothingLight  SmoothingLevel = "light"
	SmoothingMedium SmoothingLevel = "medium"
	SmoothingHigh   SmoothingLevel = "high"
	SmoothingUltra  SmoothingLevel = "ultra"
)

// DefaultSmoothingLevel is used when no level is requested
const DefaultSmoothingLevel = SmoothingMedium

// ParseSmoothingLevel validates a level string, returning the default for
// an empty input
func ParseSmoothingLevel(s string) (SmoothingLevel, error) {
	switch SmoothingLevel(s) {
	case "":
		return DefaultSmoothingLevel, nil
	case SmoothingLight, SmoothingMedium, SmoothingHigh, SmoothingUltra:
		return SmoothingLevel(s), nil
	}
	return "", fmt.Errorf("unknown smoothing level %q (expected light, medium, high or ultra)", s)
}

// Iterations returns the number of smoothing passes applied to original
// (non-reconstructed) meshes
func (l SmoothingLevel) Iterations() int {
	switch l {
	case SmoothingLight:
		return 1
	case SmoothingHigh:
		return 3
	case SmoothingUltra:
		return 5
	default:
		return 2
	}
}

// defaultSmoothingLambda is the per-pass blend factor toward the
// neighborhood average
const defaultSmoothingLambda = 0.5

// Smooth applies iterative Laplacian smoothing in place. Each pass moves
// every vertex toward the average of its edge-connected neighbors by
// lambda. Vertices without neighbors stay put.
func (m *Mesh) Smooth(iterations int, lambda float64) {
	if iterations <= 0 || len(m.Faces) == 0 {
		return
	}

	neighbors := m.vertexNeighbors()
	for it := 0; it < iterations; it++ {
		smoothed := make([]r3.Vector, len(m.Vertices))
		for i, v := range m.Vertices {
			ns := neighbors[i]
			if len(ns) == 0 {
				smoothed[i] = v
				continue
			}
			var avg r3.Vector
			for _, n := range ns {
				avg = avg.Add(m.Vertices[n])
			}
			avg = avg.Mul(1.0 / float64(len(ns)))
			smoothed[i] = v.Add(avg.Sub(v).Mul(lambda))
		}
		m.Vertices = smoothed
	}
}

// SmoothByLevel runs the level's iteration count with the default lambda
func (m *Mesh) SmoothByLevel(level SmoothingLevel) {
	m.Smooth(level.Iterations(), defaultSmoothingLambda)
}

// vertexNeighbors builds the edge-adjacency lists of every vertex
func (m *Mesh) vertexNeighbors() [][]int {
	seen := make(map[[2]int]struct{}, 3*len(m.Faces))
	neighbors := make([][]int, len(m.Vertices))
	link := func(a, b int) {
		key := [2]int{a, b}
		if a > b {
			key = [2]int{b, a}
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		neighbors[a] = append(neighbors[a], b)
		neighbors[b] = append(neighbors[b], a)
	}
	for _, f := range m.Faces {
		link(f[0], f[1])
		link(f[1], f[2])
		link(f[2], f[0])
	}
	return neighbors
}
