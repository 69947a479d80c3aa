// Package smoothing runs a median filter over successive superquadric fits, with a window that is
// either fixed or adapted to how fast the fitted center moves.
package smoothing

import (
	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/utils"
)

// Smoothing defaults, used when a configured value is out of range.
const (
	DefaultFixedWindow     = false
	DefaultMedianOrder     = 3
	DefaultMinMedianOrder  = 1
	DefaultMaxMedianOrder  = 30
	DefaultThresholdMedian = 0.1
	DefaultMinNormVel      = 0.01
)

var (
	medianOrderRange     = utils.Range{Min: 1, Max: 50}
	minMedianOrderRange  = utils.Range{Min: 1, Max: 50}
	maxMedianOrderRange  = utils.Range{Min: 1, Max: 50, MinOpen: true}
	thresholdMedianRange = utils.Range{Min: 0.005, Max: 2, MinOpen: true}
	minNormVelRange      = utils.Range{Min: 0.005, Max: 0.1, MinOpen: true}
)

// Params configure a Smoother.
type Params struct {
	// FixedWindow pins the window to MedianOrder instead of adapting it.
	FixedWindow bool `json:"fixed_window" yaml:"fixed_window" mapstructure:"fixed_window"`
	MedianOrder int  `json:"median_order" yaml:"median_order" mapstructure:"median_order"`
	// MinMedianOrder is the window used as soon as motion is detected.
	MinMedianOrder int `json:"min_median_order" yaml:"min_median_order" mapstructure:"min_median_order"`
	// MaxMedianOrder caps the window while stationary. It is also the velocity estimator's window.
	MaxMedianOrder int `json:"max_median_order" yaml:"max_median_order" mapstructure:"max_median_order"`
	// ThresholdMedian is the velocity estimator's fit tolerance in meters.
	ThresholdMedian float64 `json:"threshold_median" yaml:"threshold_median" mapstructure:"threshold_median"`
	// MinNormVel is the center speed, in m/s, at or above which the object counts as moving.
	MinNormVel float64 `json:"min_norm_vel" yaml:"min_norm_vel" mapstructure:"min_norm_vel"`
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		FixedWindow:     DefaultFixedWindow,
		MedianOrder:     DefaultMedianOrder,
		MinMedianOrder:  DefaultMinMedianOrder,
		MaxMedianOrder:  DefaultMaxMedianOrder,
		ThresholdMedian: DefaultThresholdMedian,
		MinNormVel:      DefaultMinNormVel,
	}
}

// Validate checks every field against its range, and that MinMedianOrder does not exceed
// MaxMedianOrder.
func (p Params) Validate(policy utils.ValidationPolicy, logger logging.Logger) (Params, error) {
	c := utils.NewParamChecker("smoothing", policy, logger)
	out := Params{
		FixedWindow:     p.FixedWindow,
		MedianOrder:     c.Int("median_order", p.MedianOrder, medianOrderRange, DefaultMedianOrder),
		MinMedianOrder:  c.Int("min_median_order", p.MinMedianOrder, minMedianOrderRange, DefaultMinMedianOrder),
		MaxMedianOrder:  c.Int("max_median_order", p.MaxMedianOrder, maxMedianOrderRange, DefaultMaxMedianOrder),
		ThresholdMedian: c.Float("threshold_median", p.ThresholdMedian, thresholdMedianRange, DefaultThresholdMedian),
		MinNormVel:      c.Float("min_norm_vel", p.MinNormVel, minNormVelRange, DefaultMinNormVel),
	}
	out.MinMedianOrder, out.MaxMedianOrder = c.OrderedInts("min_median_order", "max_median_order",
		out.MinMedianOrder, out.MaxMedianOrder, DefaultMinMedianOrder, DefaultMaxMedianOrder)
	if err := c.Err(); err != nil {
		return p, err
	}
	return out, nil
}
