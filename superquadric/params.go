// Package superquadric fits a superquadric to a point cloud by handing a bounded least-squares
// problem to a nonlinear solver and classifying how the solver stopped.
package superquadric

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// NumParams is the length of a superquadric parameter vector.
const NumParams = 11

// Indexes into Params.
const (
	SizeX = iota
	SizeY
	SizeZ
	Eps1
	Eps2
	CenterX
	CenterY
	CenterZ
	Roll
	Pitch
	Yaw
)

// ParamNames names each index of Params.
var ParamNames = [NumParams]string{
	"size_x", "size_y", "size_z", "eps1", "eps2",
	"center_x", "center_y", "center_z", "roll", "pitch", "yaw",
}

// Params is a superquadric laid out as
// [size_x, size_y, size_z, eps1, eps2, center_x, center_y, center_z, roll, pitch, yaw].
// The zero value means there is no valid fit.
type Params [NumParams]float64

// ParamsFromSlice copies an 11-element slice.
func ParamsFromSlice(s []float64) (Params, error) {
	var p Params
	if len(s) != NumParams {
		return p, errors.Errorf("superquadric needs %d parameters, got %d", NumParams, len(s))
	}
	copy(p[:], s)
	return p, nil
}

// Slice returns a copy of the parameters as a slice.
func (p Params) Slice() []float64 {
	out := make([]float64, NumParams)
	copy(out, p[:])
	return out
}

// IsZero reports whether p is the no-fit sentinel.
func (p Params) IsZero() bool {
	return p == Params{}
}

// IsFinite reports whether every element is a real number.
func (p Params) IsFinite() bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Size returns the three semi-axes.
func (p Params) Size() r3.Vector {
	return r3.Vector{X: p[SizeX], Y: p[SizeY], Z: p[SizeZ]}
}

// Exponents returns the two shape exponents.
func (p Params) Exponents() (eps1, eps2 float64) {
	return p[Eps1], p[Eps2]
}

// Center returns the position sub-vector, elements 5 to 7.
func (p Params) Center() r3.Vector {
	return r3.Vector{X: p[CenterX], Y: p[CenterY], Z: p[CenterZ]}
}

// Orientation returns roll, pitch and yaw in radians.
func (p Params) Orientation() r3.Vector {
	return r3.Vector{X: p[Roll], Y: p[Pitch], Z: p[Yaw]}
}

// SetCenter overwrites the position sub-vector.
func (p *Params) SetCenter(c r3.Vector) {
	p[CenterX], p[CenterY], p[CenterZ] = c.X, c.Y, c.Z
}

// Distance is the Euclidean norm of p - q over all elements.
func (p Params) Distance(q Params) float64 {
	var sum float64
	for i := range p {
		d := p[i] - q[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func (p Params) String() string {
	parts := make([]string, NumParams)
	for i, v := range p {
		parts[i] = fmt.Sprintf("%.3f", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
