package reconstruct

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/philipparndt/goply/pkg/mesh"
)

// DefaultDensityStdDevCutoff is the number of standard deviations below
// the mean density at which reconstructed vertices are pruned
const DefaultDensityStdDevCutoff = 2.0

// DensityThreshold computes the pruning threshold for vertex support
// densities: cutoff standard deviations below the mean, but never below
// 110% of the weakest vertex so a uniform surface is left intact.
func DensityThreshold(densities []float64, cutoff float64) float64 {
	if len(densities) == 0 {
		return 0
	}
	mean := stat.Mean(densities, nil)
	sd := stat.StdDev(densities, nil)
	if math.IsNaN(sd) {
		sd = 0
	}
	return math.Max(mean-cutoff*sd, floats.Min(densities)*1.1)
}

// FilterByDensity removes vertices whose support density falls below the
// threshold, along with every face touching them, and compacts the mesh.
// Returns the number of vertices removed. Densities must be parallel to
// m.Vertices.
func FilterByDensity(m *mesh.Mesh, densities []float64, cutoff float64) int {
	if len(densities) != m.VertexCount() || m.VertexCount() == 0 {
		return 0
	}

	threshold := DensityThreshold(densities, cutoff)
	keep := make([]bool, m.VertexCount())
	removed := 0
	for i, d := range densities {
		keep[i] = d >= threshold
		if !keep[i] {
			removed++
		}
	}
	if removed == 0 || removed == m.VertexCount() {
		return 0
	}

	faces := m.Faces[:0]
	for _, f := range m.Faces {
		if keep[f[0]] && keep[f[1]] && keep[f[2]] {
			faces = append(faces, f)
		}
	}
	m.Faces = faces
	m.RemoveUnreferencedVertices()
	return removed
}
