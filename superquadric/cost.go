package superquadric

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// RotationMatrix returns R = Rz(yaw) * Ry(pitch) * Rx(roll), mapping the superquadric frame into
// the world frame.
func RotationMatrix(roll, pitch, yaw float64) *mat.Dense {
	cr, sr := math.Cos(roll), math.Sin(roll)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, cr, -sr,
		0, sr, cr,
	})
	ry := mat.NewDense(3, 3, []float64{
		cp, 0, sp,
		0, 1, 0,
		-sp, 0, cp,
	})
	rz := mat.NewDense(3, 3, []float64{
		cy, -sy, 0,
		sy, cy, 0,
		0, 0, 1,
	})
	var r mat.Dense
	r.Mul(rz, ry)
	r.Mul(&r, rx)
	return &r
}

// frame maps world points into a superquadric's local frame.
type frame struct {
	center r3.Vector
	rt     mat.Dense
	in     *mat.VecDense
	out    *mat.VecDense
}

func newFrame(p Params) *frame {
	f := &frame{
		center: p.Center(),
		in:     mat.NewVecDense(3, nil),
		out:    mat.NewVecDense(3, nil),
	}
	f.rt.CloneFrom(RotationMatrix(p[Roll], p[Pitch], p[Yaw]).T())
	return f
}

func (f *frame) toLocal(v r3.Vector) r3.Vector {
	d := v.Sub(f.center)
	f.in.SetVec(0, d.X)
	f.in.SetVec(1, d.Y)
	f.in.SetVec(2, d.Z)
	f.out.MulVec(&f.rt, f.in)
	return r3.Vector{X: f.out.AtVec(0), Y: f.out.AtVec(1), Z: f.out.AtVec(2)}
}

// insideOutside evaluates the superquadric implicit function at a local-frame point. It is 1 on
// the surface, below 1 inside and above 1 outside.
func insideOutside(p Params, local r3.Vector) float64 {
	e1, e2 := p.Exponents()
	x := math.Pow(math.Abs(local.X/p[SizeX]), 2/e2)
	y := math.Pow(math.Abs(local.Y/p[SizeY]), 2/e2)
	z := math.Pow(math.Abs(local.Z/p[SizeZ]), 2/e1)
	return math.Pow(x+y, e2/e1) + z
}

// InsideOutside evaluates the implicit function of p at a world-frame point.
func InsideOutside(p Params, v r3.Vector) float64 {
	return insideOutside(p, newFrame(p).toLocal(v))
}

// Cost is the fitting objective: the sum over points of a1*a2*a3*(F^eps1 - 1)^2, where F is the
// inside-outside function. The volume factor pushes towards the smallest shape that fits.
func Cost(p Params, points []r3.Vector) float64 {
	f := newFrame(p)
	volume := p[SizeX] * p[SizeY] * p[SizeZ]
	var sum float64
	for _, v := range points {
		r := math.Pow(insideOutside(p, f.toLocal(v)), p[Eps1]) - 1
		sum += volume * r * r
	}
	return sum
}
