// Package pointcloud defines the point clouds fed to the superquadric pipeline, a k-d tree
// spatial index over them, the spatial density filter and OFF file support.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
)

// Cloud is an ordered sequence of points. Order carries no adjacency.
type Cloud []Point

// FromVectors builds an uncolored cloud.
func FromVectors(vs []r3.Vector) Cloud {
	return lo.Map(vs, func(v r3.Vector, _ int) Point {
		return Point{Position: v}
	})
}

// Vectors returns the positions of the cloud.
func (c Cloud) Vectors() []r3.Vector {
	return lo.Map(c, func(p Point, _ int) r3.Vector {
		return p.Position
	})
}

// Size returns the number of points in the cloud.
func (c Cloud) Size() int {
	return len(c)
}

// Clone returns a copy that shares no storage with c. A nil cloud clones to an empty one.
func (c Cloud) Clone() Cloud {
	out := make(Cloud, len(c))
	copy(out, c)
	return out
}

// Centroid returns the mean position, or the zero vector for an empty cloud.
func (c Cloud) Centroid() r3.Vector {
	if len(c) == 0 {
		return r3.Vector{}
	}
	var sum r3.Vector
	for _, p := range c {
		sum = sum.Add(p.Position)
	}
	return sum.Mul(1 / float64(len(c)))
}

// Subsample returns at most n points chosen with a uniform stride over the cloud, keeping input
// order. The choice is deterministic.
func (c Cloud) Subsample(n int) Cloud {
	if n <= 0 || len(c) <= n {
		return c.Clone()
	}
	out := make(Cloud, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c[i*len(c)/n])
	}
	return out
}

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasColor bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData creates a new MetaData ready to be merged into.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the bounds and color flag with one more point.
func (meta *MetaData) Merge(p Point) {
	if p.HasColor {
		meta.HasColor = true
	}
	v := p.Position
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
}

// Min returns the lower corner of the bounding box.
func (meta MetaData) Min() r3.Vector {
	return r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}
}

// Max returns the upper corner of the bounding box.
func (meta MetaData) Max() r3.Vector {
	return r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ}
}

// MetaData computes the bounding box of the cloud.
func (c Cloud) MetaData() MetaData {
	meta := NewMetaData()
	for _, p := range c {
		meta.Merge(p)
	}
	return meta
}
