// Package spatial provides nearest-neighbor search over point sets.
//
// Two implementations are available: an exact kd-tree built on
// gonum/spatial/kdtree and a brute-force scan. NewIndex picks the kd-tree for
// anything beyond trivially small inputs; the brute-force scan exists as the
// guaranteed fallback so callers never depend on the kd-tree being usable.
package spatial

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Index answers nearest-neighbor queries against a fixed point set
type Index interface {
	// Nearest returns the index of the closest point to q and its distance
	Nearest(q r3.Vector) (int, float64)
	// Neighborhood returns the indices of all points within radius of q,
	// capped at maxCount (0 means no cap)
	Neighborhood(q r3.Vector, radius float64, maxCount int) []int
	// Len returns the number of indexed points
	Len() int
}

// bruteCutoff is the point count below which a linear scan beats tree setup
const bruteCutoff = 32

// NewIndex builds an index over points. The slice must not be mutated while
// the index is in use.
func NewIndex(points []r3.Vector) Index {
	if len(points) < bruteCutoff {
		return NewBruteForce(points)
	}
	return NewKDTree(points)
}

// BruteForce is a linear-scan index, the fallback when no tree is warranted
type BruteForce struct {
	points []r3.Vector
}

// NewBruteForce creates a brute-force index over points
func NewBruteForce(points []r3.Vector) *BruteForce {
	return &BruteForce{points: points}
}

func (b *BruteForce) Len() int { return len(b.points) }

func (b *BruteForce) Nearest(q r3.Vector) (int, float64) {
	best := -1
	bestDist := 0.0
	for i, p := range b.points {
		d := p.Sub(q).Norm()
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

func (b *BruteForce) Neighborhood(q r3.Vector, radius float64, maxCount int) []int {
	var hits []neighbor
	for i, p := range b.points {
		if d := p.Sub(q).Norm(); d <= radius {
			hits = append(hits, neighbor{index: i, dist: d})
		}
	}
	return capNearest(hits, maxCount)
}

// KDTree is an exact spatial index backed by gonum's kd-tree
type KDTree struct {
	tree   *kdtree.Tree
	points []r3.Vector
}

// NewKDTree builds a kd-tree over points
func NewKDTree(points []r3.Vector) *KDTree {
	entries := make(indexedPoints, len(points))
	for i, p := range points {
		entries[i] = indexedPoint{pos: p, index: i}
	}
	return &KDTree{
		tree:   kdtree.New(entries, false),
		points: points,
	}
}

func (k *KDTree) Len() int { return len(k.points) }

func (k *KDTree) Nearest(q r3.Vector) (int, float64) {
	if len(k.points) == 0 {
		return -1, 0
	}
	got, dist := k.tree.Nearest(indexedPoint{pos: q, index: -1})
	// the tree reports squared distances
	return got.(indexedPoint).index, math.Sqrt(dist)
}

func (k *KDTree) Neighborhood(q r3.Vector, radius float64, maxCount int) []int {
	keeper := kdtree.NewDistKeeper(radius * radius)
	k.tree.NearestSet(keeper, indexedPoint{pos: q, index: -1})

	var hits []neighbor
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		hits = append(hits, neighbor{index: cd.Comparable.(indexedPoint).index, dist: cd.Dist})
	}
	return capNearest(hits, maxCount)
}

type neighbor struct {
	index int
	dist  float64
}

// capNearest orders hits by distance and keeps the closest maxCount.
// The heap the kd-tree reports is not distance-sorted, so truncating it
// directly would keep arbitrary in-radius points.
func capNearest(hits []neighbor, maxCount int) []int {
	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if maxCount > 0 && len(hits) > maxCount {
		hits = hits[:maxCount]
	}
	result := make([]int, len(hits))
	for i, h := range hits {
		result[i] = h.index
	}
	return result
}

// indexedPoint implements kdtree.Comparable while remembering the position of
// the point in the original slice
type indexedPoint struct {
	pos   r3.Vector
	index int
}

func (p indexedPoint) coord(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return p.pos.X
	case 1:
		return p.pos.Y
	default:
		return p.pos.Z
	}
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.coord(d) - q.coord(d)
}

func (p indexedPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance, as the kdtree package expects
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	diff := p.pos.Sub(q.pos)
	return diff.Dot(diff)
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }

func (p indexedPoints) Len() int { return len(p) }

func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return plane{indexedPoints: p, Dim: d}.Pivot()
}

func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	indexedPoints
}

func (p plane) Less(i, j int) bool {
	return p.indexedPoints[i].coord(p.Dim) < p.indexedPoints[j].coord(p.Dim)
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.indexedPoints = p.indexedPoints[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}
