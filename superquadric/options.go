package superquadric

import (
	"time"

	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/utils"
)

// Barrier update strategies.
const (
	MuStrategyMonotone = "monotone"
	MuStrategyAdaptive = "adaptive"
)

// Objective scaling methods.
const (
	ScalingNone          = "none"
	ScalingGradientBased = "gradient-based"
)

// Solver option defaults, used when a configured value is out of range.
const (
	DefaultOptimizerPoints  = 50
	DefaultMaxCPUTime       = 5.0
	DefaultTol              = 1e-5
	DefaultAcceptableIter   = 0
	DefaultMaxIter          = 100
	DefaultMuStrategy       = MuStrategyMonotone
	DefaultNLPScalingMethod = ScalingGradientBased
)

var (
	optimizerPointsRange = utils.Range{Min: 1, Max: 300}
	maxCPUTimeRange      = utils.Range{Min: 0.01, Max: 10}
	tolRange             = utils.Range{Min: 1e-8, Max: 0.01, MinOpen: true}
	acceptableIterRange  = utils.Range{Min: 0, Max: 100}
	maxIterRange         = utils.Range{Min: 1, MinOpen: true, NoUpper: true}

	muStrategies   = []string{MuStrategyAdaptive, MuStrategyMonotone}
	scalingMethods = []string{ScalingNone, ScalingGradientBased}
)

// Options are forwarded to the solver on every fit.
type Options struct {
	// OptimizerPoints caps how many points the solver sees.
	OptimizerPoints int `json:"optimizer_points" yaml:"optimizer_points" mapstructure:"optimizer_points"`
	// MaxCPUTime is the solver time budget in seconds.
	MaxCPUTime       float64 `json:"max_cpu_time" yaml:"max_cpu_time" mapstructure:"max_cpu_time"`
	Tol              float64 `json:"tol" yaml:"tol" mapstructure:"tol"`
	AcceptableIter   int     `json:"acceptable_iter" yaml:"acceptable_iter" mapstructure:"acceptable_iter"`
	MaxIter          int     `json:"max_iter" yaml:"max_iter" mapstructure:"max_iter"`
	MuStrategy       string  `json:"mu_strategy" yaml:"mu_strategy" mapstructure:"mu_strategy"`
	NLPScalingMethod string  `json:"nlp_scaling_method" yaml:"nlp_scaling_method" mapstructure:"nlp_scaling_method"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		OptimizerPoints:  DefaultOptimizerPoints,
		MaxCPUTime:       DefaultMaxCPUTime,
		Tol:              DefaultTol,
		AcceptableIter:   DefaultAcceptableIter,
		MaxIter:          DefaultMaxIter,
		MuStrategy:       DefaultMuStrategy,
		NLPScalingMethod: DefaultNLPScalingMethod,
	}
}

// MaxTime returns MaxCPUTime as a duration.
func (o Options) MaxTime() time.Duration {
	return time.Duration(o.MaxCPUTime * float64(time.Second))
}

// Validate checks every option. See pointcloud.DensityFilterParams.Validate for how the policy
// applies.
func (o Options) Validate(policy utils.ValidationPolicy, logger logging.Logger) (Options, error) {
	c := utils.NewParamChecker("solver", policy, logger)
	out := Options{
		OptimizerPoints:  c.Int("optimizer_points", o.OptimizerPoints, optimizerPointsRange, DefaultOptimizerPoints),
		MaxCPUTime:       c.Float("max_cpu_time", o.MaxCPUTime, maxCPUTimeRange, DefaultMaxCPUTime),
		Tol:              c.Float("tol", o.Tol, tolRange, DefaultTol),
		AcceptableIter:   c.Int("acceptable_iter", o.AcceptableIter, acceptableIterRange, DefaultAcceptableIter),
		MaxIter:          c.Int("max_iter", o.MaxIter, maxIterRange, DefaultMaxIter),
		MuStrategy:       c.Choice("mu_strategy", o.MuStrategy, muStrategies, DefaultMuStrategy),
		NLPScalingMethod: c.Choice("nlp_scaling_method", o.NLPScalingMethod, scalingMethods, DefaultNLPScalingMethod),
	}
	if err := c.Err(); err != nil {
		return o, err
	}
	return out, nil
}
