package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
)

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// Point is a single observed point. Color is only meaningful when HasColor is set.
type Point struct {
	Position r3.Vector
	Color    color.NRGBA
	HasColor bool
}

// NewPoint returns an uncolored point.
func NewPoint(x, y, z float64) Point {
	return Point{Position: NewVector(x, y, z)}
}

// NewColoredPoint returns a point carrying an RGB color.
func NewColoredPoint(v r3.Vector, c color.NRGBA) Point {
	return Point{Position: v, Color: c, HasColor: true}
}

// RGB255 returns, if colored, the RGB components of the color.
func (p Point) RGB255() (uint8, uint8, uint8) {
	return p.Color.R, p.Color.G, p.Color.B
}
