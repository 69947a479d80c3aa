package pointcloud

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
)

// MakeTestSphere returns n points spread evenly over a sphere surface on a Fibonacci lattice, each
// displaced radially by uniform noise in [-noise, noise]. The same seed gives the same cloud.
func MakeTestSphere(n int, center r3.Vector, radius, noise float64, seed int64) Cloud {
	//nolint:gosec
	rnd := rand.New(rand.NewSource(seed))
	golden := math.Pi * (3 - math.Sqrt(5))
	cloud := make(Cloud, 0, n)
	for i := 0; i < n; i++ {
		y := 1 - 2*(float64(i)+0.5)/float64(n)
		ring := math.Sqrt(1 - y*y)
		theta := golden * float64(i)
		dir := r3.Vector{X: math.Cos(theta) * ring, Y: y, Z: math.Sin(theta) * ring}
		r := radius + (2*rnd.Float64()-1)*noise
		cloud = append(cloud, Point{Position: center.Add(dir.Mul(r))})
	}
	return cloud
}

// MakeTestOutliers returns n isolated points on a coarse grid with the given spacing, starting at
// origin. No two of them are closer than spacing.
func MakeTestOutliers(n int, origin r3.Vector, spacing float64) Cloud {
	side := int(math.Ceil(math.Cbrt(float64(n))))
	cloud := make(Cloud, 0, n)
	for i := 0; len(cloud) < n; i++ {
		x, y, z := i%side, (i/side)%side, i/(side*side)
		cloud = append(cloud, Point{Position: origin.Add(r3.Vector{
			X: float64(x) * spacing,
			Y: float64(y) * spacing,
			Z: float64(z) * spacing,
		})})
	}
	return cloud
}
