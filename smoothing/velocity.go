package smoothing

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// VelocityEstimator turns a stream of timestamped positions into a velocity estimate. It keeps
// state across calls.
type VelocityEstimator interface {
	Estimate(sample r3.Vector, ts time.Time) r3.Vector
}

type timedSample struct {
	pos r3.Vector
	ts  time.Time
}

// AdaptiveLinearEstimator fits a line through the longest recent run of samples that a line
// explains to within a tolerance, and returns its slope. Fast changes shrink the window and
// steady motion grows it, up to a maximum length.
type AdaptiveLinearEstimator struct {
	maxWindow int
	threshold float64
	samples   []timedSample
}

// NewAdaptiveLinearEstimator keeps at most maxWindow samples and accepts a window while every
// sample lies within threshold of the fitted line.
func NewAdaptiveLinearEstimator(maxWindow int, threshold float64) *AdaptiveLinearEstimator {
	if maxWindow < 2 {
		maxWindow = 2
	}
	return &AdaptiveLinearEstimator{
		maxWindow: maxWindow,
		threshold: threshold,
		samples:   make([]timedSample, 0, maxWindow),
	}
}

// Estimate records the sample and returns the velocity in units per second. The first sample
// yields zero.
func (e *AdaptiveLinearEstimator) Estimate(sample r3.Vector, ts time.Time) r3.Vector {
	if len(e.samples) == e.maxWindow {
		copy(e.samples, e.samples[1:])
		e.samples = e.samples[:e.maxWindow-1]
	}
	e.samples = append(e.samples, timedSample{pos: sample, ts: ts})

	var vel r3.Vector
	for n := 2; n <= len(e.samples); n++ {
		slope, ok := e.fit(e.samples[len(e.samples)-n:])
		if !ok {
			break
		}
		vel = slope
	}
	return vel
}

// fit regresses each coordinate on time and reports whether all residuals are within threshold.
func (e *AdaptiveLinearEstimator) fit(window []timedSample) (r3.Vector, bool) {
	newest := window[len(window)-1].ts
	ts := make([]float64, len(window))
	xs := make([]float64, len(window))
	ys := make([]float64, len(window))
	zs := make([]float64, len(window))
	for i, s := range window {
		ts[i] = s.ts.Sub(newest).Seconds()
		xs[i], ys[i], zs[i] = s.pos.X, s.pos.Y, s.pos.Z
	}
	if ts[0] == 0 {
		// All samples share a timestamp, so there is no slope to speak of.
		return r3.Vector{}, true
	}

	var slope [3]float64
	for axis, vals := range [][]float64{xs, ys, zs} {
		alpha, beta := stat.LinearRegression(ts, vals, nil, false)
		for i, t := range ts {
			if math.Abs(vals[i]-(alpha+beta*t)) > e.threshold {
				return r3.Vector{}, false
			}
		}
		slope[axis] = beta
	}
	return r3.Vector{X: slope[0], Y: slope[1], Z: slope[2]}, true
}
