package smoothing

import (
	"github.com/montanaflynn/stats"

	"github.com/viam-labs/superquadric-model/superquadric"
)

// MedianFilter is an element-wise running median over the last Order samples.
type MedianFilter interface {
	// SetOrder resizes the window and clears the history.
	SetOrder(n int)
	Order() int
	// Filter adds x to the history and returns the median of the history.
	Filter(x superquadric.Params) superquadric.Params
}

type medianFilter struct {
	order   int
	history []superquadric.Params
}

// NewMedianFilter returns a median filter of the given order. Orders below 1 are treated as 1.
func NewMedianFilter(order int) MedianFilter {
	f := &medianFilter{}
	f.SetOrder(order)
	return f
}

func (f *medianFilter) SetOrder(n int) {
	if n < 1 {
		n = 1
	}
	f.order = n
	f.history = make([]superquadric.Params, 0, n)
}

func (f *medianFilter) Order() int {
	return f.order
}

func (f *medianFilter) Filter(x superquadric.Params) superquadric.Params {
	if len(f.history) == f.order {
		copy(f.history, f.history[1:])
		f.history = f.history[:f.order-1]
	}
	f.history = append(f.history, x)

	var out superquadric.Params
	column := make(stats.Float64Data, len(f.history))
	for i := range out {
		for j, h := range f.history {
			column[j] = h[i]
		}
		m, err := column.Median()
		if err != nil {
			m = x[i]
		}
		out[i] = m
	}
	return out
}
