package smoothing

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/superquadric"
)

// EstimatorFactory builds the velocity estimator for a given window length and fit tolerance.
type EstimatorFactory func(maxWindow int, threshold float64) VelocityEstimator

// DefaultEstimatorFactory builds an AdaptiveLinearEstimator.
func DefaultEstimatorFactory(maxWindow int, threshold float64) VelocityEstimator {
	return NewAdaptiveLinearEstimator(maxWindow, threshold)
}

// Smoother median-filters accepted fits. It is not safe for concurrent use.
type Smoother struct {
	params       Params
	filter       MedianFilter
	estimator    VelocityEstimator
	newEstimator EstimatorFactory
	logger       logging.Logger

	// target is the adaptive window order, tracked separately from the filter's order.
	target   int
	velocity r3.Vector
}

// NewSmoother returns a smoother using the default median filter and velocity estimator.
func NewSmoother(params Params, logger logging.Logger) *Smoother {
	return NewSmootherWith(params, NewMedianFilter(params.MedianOrder), DefaultEstimatorFactory, logger)
}

// NewSmootherWith returns a smoother over the given filter. newEstimator is called again
// whenever MaxMedianOrder or ThresholdMedian change.
func NewSmootherWith(params Params, filter MedianFilter, newEstimator EstimatorFactory, logger logging.Logger) *Smoother {
	s := &Smoother{
		params:       params,
		filter:       filter,
		newEstimator: newEstimator,
		logger:       logger,
		target:       params.MinMedianOrder,
	}
	s.estimator = newEstimator(params.MaxMedianOrder, params.ThresholdMedian)
	if params.FixedWindow && filter.Order() != params.MedianOrder {
		filter.SetOrder(params.MedianOrder)
	}
	return s
}

// Params returns the current configuration.
func (s *Smoother) Params() Params {
	return s.params
}

// SetParams applies a new configuration. Window changes take effect on the next Smooth.
func (s *Smoother) SetParams(params Params) {
	if params.MaxMedianOrder != s.params.MaxMedianOrder || params.ThresholdMedian != s.params.ThresholdMedian {
		s.estimator = s.newEstimator(params.MaxMedianOrder, params.ThresholdMedian)
	}
	s.params = params
	if s.target > params.MaxMedianOrder {
		s.target = params.MaxMedianOrder
	}
	if s.target < params.MinMedianOrder {
		s.target = params.MinMedianOrder
	}
}

// Order returns the current window order.
func (s *Smoother) Order() int {
	return s.filter.Order()
}

// Velocity returns the last center velocity estimate. It stays zero in fixed mode.
func (s *Smoother) Velocity() r3.Vector {
	return s.velocity
}

// Smooth feeds an accepted fit observed at ts through the filter and returns the smoothed fit.
// In adaptive mode the window snaps to MinMedianOrder when the center moves at MinNormVel or
// faster, and otherwise grows by one up to MaxMedianOrder. Every change of window clears the
// filter history.
func (s *Smoother) Smooth(x superquadric.Params, ts time.Time) superquadric.Params {
	order := s.params.MedianOrder
	if !s.params.FixedWindow {
		order = s.adapt(x.Center(), ts)
	}
	if order != s.filter.Order() {
		s.logger.Debugw("median order changed", "old", s.filter.Order(), "new", order)
		s.filter.SetOrder(order)
	}
	return s.filter.Filter(x)
}

func (s *Smoother) adapt(center r3.Vector, ts time.Time) int {
	s.velocity = s.estimator.Estimate(center, ts)
	if s.velocity.Norm() >= s.params.MinNormVel {
		s.target = s.params.MinMedianOrder
	} else if s.target < s.params.MaxMedianOrder {
		s.target++
	}
	s.target = min(s.target, s.params.MaxMedianOrder)
	return s.target
}
