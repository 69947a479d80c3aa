package superquadric

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/geo/r3"
)

// Status is how a solver run ended.
type Status int

const (
	// StatusFailed covers every ending that produced no usable result.
	StatusFailed Status = iota
	// StatusConverged means the tolerance was met.
	StatusConverged
	// StatusTimeLimited means the time budget ran out. The best point found so far is returned.
	StatusTimeLimited
	// StatusIterationLimit means max_iter was reached without convergence.
	StatusIterationLimit
)

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusConverged:
		return "converged"
	case StatusTimeLimited:
		return "time_limited"
	case StatusIterationLimit:
		return "iteration_limit"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Problem is one bounded fit handed to a Solver.
type Problem struct {
	Points  []r3.Vector
	Lower   Params
	Upper   Params
	Initial Params
	Options Options
}

// Result is what a Solver returns when it ran to a terminal status.
type Result struct {
	Status     Status
	Params     Params
	Cost       float64
	Iterations int
	Elapsed    time.Duration
}

// A Solver minimizes Cost over a Problem's box. Solve returns an error only when the solver could
// not be set up or run at all. A run that ended badly is a Result with StatusFailed.
type Solver interface {
	Solve(ctx context.Context, problem *Problem) (Result, error)
}
