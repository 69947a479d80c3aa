package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree is a static spatial index over a set of positions, built once and queried many times.
type KDTree struct {
	tree *kdtree.Tree
	size int
}

func toKDPoint(v r3.Vector) kdtree.Point {
	return kdtree.Point{v.X, v.Y, v.Z}
}

func fromKDPoint(p kdtree.Point) r3.Vector {
	return r3.Vector{X: p[0], Y: p[1], Z: p[2]}
}

// NewKDTree builds a tree over the given positions. The input slice is not modified.
func NewKDTree(points []r3.Vector) *KDTree {
	if len(points) == 0 {
		return &KDTree{}
	}
	pts := make(kdtree.Points, 0, len(points))
	for _, p := range points {
		pts = append(pts, toKDPoint(p))
	}
	return &KDTree{tree: kdtree.New(pts, false), size: len(points)}
}

// Size returns the number of indexed points.
func (kd *KDTree) Size() int {
	return kd.size
}

// KNearest returns up to k indexed points nearest to q, nearest first, with their Euclidean
// distances. A query point that is itself indexed is returned at distance 0.
func (kd *KDTree) KNearest(q r3.Vector, k int) ([]r3.Vector, []float64) {
	if k <= 0 || kd.size == 0 {
		return nil, nil
	}
	keep := kdtree.NewNKeeper(k)
	kd.tree.NearestSet(keep, toKDPoint(q))

	found := make([]kdtree.ComparableDist, 0, keep.Len())
	for _, cd := range keep.Heap {
		if cd.Comparable == nil {
			continue
		}
		found = append(found, cd)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Dist < found[j].Dist })

	points := make([]r3.Vector, 0, len(found))
	dists := make([]float64, 0, len(found))
	for _, cd := range found {
		points = append(points, fromKDPoint(cd.Comparable.(kdtree.Point)))
		// kdtree.Point distances are squared Euclidean.
		dists = append(dists, math.Sqrt(cd.Dist))
	}
	return points, dists
}

// RadiusCount returns how many indexed points lie within radius of q, q itself included when
// indexed, counting no further than limit. A limit <= 0 counts every neighbor.
func (kd *KDTree) RadiusCount(q r3.Vector, radius float64, limit int) int {
	if kd.size == 0 || radius < 0 {
		return 0
	}
	r2 := radius * radius
	if limit <= 0 {
		keep := kdtree.NewDistKeeper(r2)
		kd.tree.NearestSet(keep, toKDPoint(q))
		n := 0
		for _, cd := range keep.Heap {
			if cd.Comparable != nil && cd.Dist <= r2 {
				n++
			}
		}
		return n
	}

	keep := kdtree.NewNKeeper(limit)
	kd.tree.NearestSet(keep, toKDPoint(q))
	n := 0
	for _, cd := range keep.Heap {
		if cd.Comparable != nil && cd.Dist <= r2 {
			n++
		}
	}
	return n
}
