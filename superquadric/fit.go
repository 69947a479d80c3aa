package superquadric

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/pointcloud"
)

// Outcome is how a fit attempt is reported to the pipeline.
type Outcome int

const (
	// OutcomeSkipped means there were no points. The previous fit stands.
	OutcomeSkipped Outcome = iota
	// OutcomeSuccess means the solver converged and its result is the new fit.
	OutcomeSuccess
	// OutcomeDegraded means the solver ran out of time. Its best result is still the new fit.
	OutcomeDegraded
	// OutcomeFailed means no usable result. The fit becomes the zero sentinel.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSuccess:
		return "success"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Accepted reports whether the outcome produced a new, non-sentinel fit.
func (o Outcome) Accepted() bool {
	return o == OutcomeSuccess || o == OutcomeDegraded
}

// FitResult is the classified result of one fit attempt.
type FitResult struct {
	Outcome Outcome
	// Params is the new fit. It is meaningless when Outcome is OutcomeSkipped.
	Params  Params
	Status  Status
	Points  int
	Cost    float64
	Elapsed time.Duration
}

// FitStage runs a Solver over a filtered cloud once per call.
type FitStage struct {
	solver Solver
	logger logging.Logger
}

// NewFitStage returns a fit stage backed by solver.
func NewFitStage(solver Solver, logger logging.Logger) *FitStage {
	return &FitStage{solver: solver, logger: logger}
}

// Fit subsamples cloud to opts.OptimizerPoints with a uniform stride, bounds the problem from the
// cloud and calls the solver exactly once. A returned error means the solver could not run, and
// the caller should keep its previous state.
func (fs *FitStage) Fit(ctx context.Context, cloud pointcloud.Cloud, opts Options) (FitResult, error) {
	if len(cloud) == 0 {
		return FitResult{Outcome: OutcomeSkipped}, nil
	}

	sub := cloud.Subsample(opts.OptimizerPoints)
	lower, upper := AutomaticBounds(sub)
	problem := &Problem{
		Points:  sub.Vectors(),
		Lower:   lower,
		Upper:   upper,
		Initial: InitialGuess(sub, lower, upper),
		Options: opts,
	}

	fs.logger.CDebugw(ctx, "starting superquadric fit", "points", len(cloud), "optimizer_points", len(sub))
	res, err := fs.solver.Solve(ctx, problem)
	if err != nil {
		return FitResult{}, errors.Wrap(err, "superquadric solver")
	}

	out := FitResult{
		Status:  res.Status,
		Points:  len(sub),
		Cost:    res.Cost,
		Elapsed: res.Elapsed,
	}
	if !res.Params.IsFinite() {
		out.Status = StatusFailed
	}
	switch out.Status {
	case StatusConverged:
		out.Outcome = OutcomeSuccess
		out.Params = res.Params
		fs.logger.CInfow(ctx, "superquadric fit", "solution", res.Params.String(), "elapsed", res.Elapsed.String(), "iterations", res.Iterations)
	case StatusTimeLimited:
		out.Outcome = OutcomeDegraded
		out.Params = res.Params
		fs.logger.CWarnw(ctx, "superquadric fit stopped at time limit", "solution", res.Params.String(), "elapsed", res.Elapsed.String())
	case StatusFailed, StatusIterationLimit:
		fallthrough
	default:
		out.Outcome = OutcomeFailed
		out.Params = Params{}
		fs.logger.CErrorw(ctx, "no suitable superquadric found", "status", out.Status.String(), "points", len(sub))
	}
	return out, nil
}
