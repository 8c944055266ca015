// Package reconstruct turns unstructured point clouds into triangle meshes.
//
// The primary strategy estimates oriented per-point normals and hands the
// cloud to a dense surface provider, then prunes weakly supported vertices
// with a statistical density filter. When the provider is unavailable or
// yields nothing, the package falls back to the convex hull of the points,
// and as a last resort to a placeholder cube, so a conversion job always
// receives some geometry.
package reconstruct

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/philipparndt/goply/pkg/geometry"
	"github.com/philipparndt/goply/pkg/spatial"
)

const (
	// search radius as a fraction of the bounding box diagonal
	radiusDiagonalFraction = 0.02
	// lower bound keeps the radius usable for tiny or flat clouds
	radiusFloor = 0.001
	// neighbor cap for normal estimation
	maxNormalNeighbors = 30
	// k-NN graph degree for orientation propagation
	orientationNeighbors = 10
)

// EstimateRadius derives the neighborhood search radius from the cloud's
// bounding box diagonal
func EstimateRadius(points []r3.Vector) float64 {
	diag := geometry.BoundsOf(points).Diagonal()
	return math.Max(diag*radiusDiagonalFraction, radiusFloor)
}

// EstimateNormals computes a unit normal per point by fitting a tangent
// plane (PCA) to the neighborhood within radius, capped at 30 neighbors.
// Points with too few neighbors receive an arbitrary unit normal.
func EstimateNormals(points []r3.Vector, index spatial.Index, radius float64) []r3.Vector {
	normals := make([]r3.Vector, len(points))
	for i, p := range points {
		neighbors := index.Neighborhood(p, radius, maxNormalNeighbors)
		normals[i] = pcaNormal(points, neighbors)
	}
	return normals
}

// pcaNormal returns the eigenvector of the neighborhood covariance matrix
// with the smallest eigenvalue, the fitted plane's normal
func pcaNormal(points []r3.Vector, neighbors []int) r3.Vector {
	up := r3.Vector{X: 0, Y: 0, Z: 1}
	if len(neighbors) < 3 {
		return up
	}

	var mean r3.Vector
	for _, idx := range neighbors {
		mean = mean.Add(points[idx])
	}
	mean = mean.Mul(1.0 / float64(len(neighbors)))

	var xx, xy, xz, yy, yz, zz float64
	for _, idx := range neighbors {
		d := points[idx].Sub(mean)
		xx += d.X * d.X
		xy += d.X * d.Y
		xz += d.X * d.Z
		yy += d.Y * d.Y
		yz += d.Y * d.Z
		zz += d.Z * d.Z
	}

	cov := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return up
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// eigenvalues are ascending, column 0 is the plane normal
	n := r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	if n.Norm() == 0 {
		return up
	}
	return n.Normalize()
}

// errDisconnected signals that the propagation graph does not reach all
// points, so consistent orientation cannot be guaranteed
var errDisconnected = errors.New("point cloud k-NN graph is disconnected")

// OrientNormalsConsistently flips normals so neighboring tangent planes
// agree, propagating orientation through the k-NN graph from the topmost
// point (whose normal is forced upward). Fails when the graph is
// disconnected; callers then fall back to OrientNormalsToDirection.
func OrientNormalsConsistently(points []r3.Vector, normals []r3.Vector, index spatial.Index, radius float64) error {
	if len(points) == 0 {
		return nil
	}

	// seed at the topmost point, facing up
	seed := 0
	for i, p := range points {
		if p.Z > points[seed].Z {
			seed = i
		}
	}
	if normals[seed].Z < 0 {
		normals[seed] = normals[seed].Mul(-1)
	}

	visited := make([]bool, len(points))
	visited[seed] = true
	queue := []int{seed}
	reached := 1

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range index.Neighborhood(points[cur], radius*2, orientationNeighbors) {
			if nb == cur || visited[nb] {
				continue
			}
			if normals[nb].Dot(normals[cur]) < 0 {
				normals[nb] = normals[nb].Mul(-1)
			}
			visited[nb] = true
			reached++
			queue = append(queue, nb)
		}
	}

	if reached < len(points) {
		return errDisconnected
	}
	return nil
}

// OrientNormalsToDirection flips every normal into the hemisphere of the
// given direction, the weaker fallback heuristic
func OrientNormalsToDirection(normals []r3.Vector, direction r3.Vector) {
	for i, n := range normals {
		if n.Dot(direction) < 0 {
			normals[i] = n.Mul(-1)
		}
	}
}
