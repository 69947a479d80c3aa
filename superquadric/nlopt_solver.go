//go:build !no_cgo

package superquadric

import (
	"context"
	"math"
	"time"

	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/viam-labs/superquadric-model/logging"
)

const (
	// acceptableTolFactor relates the acceptable tolerance to the convergence tolerance.
	acceptableTolFactor = 100
	defaultJump         = 1e-7
)

// NloptSolver solves fit problems with nlopt. The monotone strategy uses SLSQP on finite
// difference gradients, the adaptive strategy uses derivative-free BOBYQA.
type NloptSolver struct {
	logger logging.Logger
}

// NewNloptSolver returns a solver that allocates one nlopt instance per Solve call.
func NewNloptSolver(logger logging.Logger) (*NloptSolver, error) {
	return &NloptSolver{logger: logger}, nil
}

type optimizeReturn struct {
	solution []float64
	score    float64
	err      error
}

func algorithmFor(opts Options) (int, bool) {
	if opts.MuStrategy == MuStrategyAdaptive {
		return nlopt.LN_BOBYQA, false
	}
	return nlopt.LD_SLSQP, true
}

// Solve runs one bounded minimization of Cost.
func (s *NloptSolver) Solve(ctx context.Context, problem *Problem) (Result, error) {
	if len(problem.Points) == 0 {
		return Result{}, errors.New("no points to fit")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	opts := problem.Options
	algorithm, useGradient := algorithmFor(opts)

	opt, err := nlopt.NewNLopt(algorithm, NumParams)
	if err != nil {
		return Result{}, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	scale := 1.0
	if opts.NLPScalingMethod == ScalingGradientBased {
		scale = 1 / float64(len(problem.Points))
	}
	objective := func(x []float64) float64 {
		var p Params
		copy(p[:], x)
		c := Cost(p, problem.Points) * scale
		if math.IsNaN(c) {
			return math.MaxFloat64
		}
		return c
	}

	maxEval := opts.MaxIter
	if !useGradient {
		// Derivative-free methods spend one evaluation per direction.
		maxEval = opts.MaxIter * (NumParams + 1)
	}
	acceptableTol := opts.Tol * acceptableTolFactor

	var (
		evals        int
		best         = problem.Initial
		bestCost     = math.Inf(1)
		acceptable   int
		acceptedStop bool
	)
	minFunc := func(x, gradient []float64) float64 {
		evals++
		f := objective(x)

		if f < bestCost {
			if opts.AcceptableIter > 0 && bestCost-f <= acceptableTol*math.Abs(f) {
				acceptable++
			} else {
				acceptable = 0
			}
			bestCost = f
			copy(best[:], x)
		} else if opts.AcceptableIter > 0 {
			acceptable++
		}
		if opts.AcceptableIter > 0 && acceptable >= opts.AcceptableIter {
			acceptedStop = true
			if err := opt.ForceStop(); err != nil {
				s.logger.Errorw("forcestop error", "error", err)
			}
		}

		for i := range gradient {
			jump := defaultJump * math.Max(1, math.Abs(x[i]))
			flip := false
			orig := x[i]
			x[i] += jump
			if x[i] > problem.Upper[i] {
				flip = true
				x[i] = orig - jump
			}
			gradient[i] = (objective(x) - f) / jump
			if flip {
				gradient[i] *= -1
			}
			x[i] = orig
		}
		return f
	}

	err = multierr.Combine(
		opt.SetLowerBounds(problem.Lower.Slice()),
		opt.SetUpperBounds(problem.Upper.Slice()),
		opt.SetFtolRel(opts.Tol),
		opt.SetXtolRel(opts.Tol),
		opt.SetMaxEval(maxEval),
		opt.SetMaxTime(opts.MaxCPUTime),
		opt.SetMinObjective(minFunc),
	)
	if err != nil {
		return Result{}, errors.Wrap(err, "nlopt configuration error")
	}

	start := time.Now()
	solveChan := make(chan *optimizeReturn, 1)
	utils.PanicCapturingGo(func() {
		solution, score, err := opt.Optimize(Clamp(problem.Initial, problem.Lower, problem.Upper).Slice())
		solveChan <- &optimizeReturn{solution, score, err}
	})
	var ret *optimizeReturn
	select {
	case <-ctx.Done():
		stopErr := opt.ForceStop()
		<-solveChan
		return Result{}, multierr.Combine(ctx.Err(), stopErr)
	case ret = <-solveChan:
	}
	elapsed := time.Since(start)

	res := Result{
		Params:     Clamp(best, problem.Lower, problem.Upper),
		Cost:       bestCost,
		Iterations: evals,
		Elapsed:    elapsed,
	}
	switch {
	case acceptedStop:
		res.Status = StatusConverged
	case ret.err != nil:
		s.logger.Debugw("nlopt stopped with error", "error", ret.err)
		res.Status = StatusFailed
	case opt.LastStatus() == "MAXTIME_REACHED":
		res.Status = StatusTimeLimited
	case opt.LastStatus() == "MAXEVAL_REACHED":
		res.Status = StatusIterationLimit
	default:
		res.Status = StatusConverged
	}
	return res, nil
}
