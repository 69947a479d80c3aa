package superquadric

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/viam-labs/superquadric-model/pointcloud"
)

const (
	minSize     = 0.001
	minExponent = 0.1
	maxExponent = 1.0
	// centerSlack widens the center box so flat clouds still leave the solver room.
	centerSlack = 0.01
)

// AutomaticBounds derives the search box from the cloud's bounding box: semi-axes up to the
// largest extent, exponents in [0.1, 1], the center inside the (slightly widened) box and
// unrestricted angles.
func AutomaticBounds(cloud pointcloud.Cloud) (lower, upper Params) {
	meta := cloud.MetaData()
	lo, hi := meta.Min(), meta.Max()
	extent := hi.Sub(lo)
	maxSize := math.Max(math.Max(extent.X, extent.Y), math.Max(extent.Z, 2*minSize))

	for _, i := range []int{SizeX, SizeY, SizeZ} {
		lower[i], upper[i] = minSize, maxSize
	}
	lower[Eps1], upper[Eps1] = minExponent, maxExponent
	lower[Eps2], upper[Eps2] = minExponent, maxExponent

	lower.SetCenter(lo.Sub(r3Splat(centerSlack)))
	upper.SetCenter(hi.Add(r3Splat(centerSlack)))

	lower[Roll], upper[Roll] = 0, 2*math.Pi
	lower[Pitch], upper[Pitch] = 0, math.Pi
	lower[Yaw], upper[Yaw] = 0, 2*math.Pi
	return lower, upper
}

// InitialGuess seeds the solver at an axis-aligned ellipsoid spanning the cloud, centered on the
// centroid and clamped into the bounds.
func InitialGuess(cloud pointcloud.Cloud, lower, upper Params) Params {
	meta := cloud.MetaData()
	half := meta.Max().Sub(meta.Min()).Mul(0.5)

	var x Params
	x[SizeX], x[SizeY], x[SizeZ] = half.X, half.Y, half.Z
	x[Eps1], x[Eps2] = 1, 1
	x.SetCenter(cloud.Centroid())
	return Clamp(x, lower, upper)
}

// Clamp returns x with every element forced into [lower, upper].
func Clamp(x, lower, upper Params) Params {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], lower[i]), upper[i])
	}
	return x
}

func r3Splat(v float64) r3.Vector {
	return r3.Vector{X: v, Y: v, Z: v}
}
