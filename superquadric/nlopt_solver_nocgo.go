//go:build no_cgo

package superquadric

import (
	"context"

	"github.com/pkg/errors"

	"github.com/viam-labs/superquadric-model/logging"
)

// NewNloptSolver is not supported on no_cgo builds.
func NewNloptSolver(logger logging.Logger) (*NloptSolver, error) {
	return nil, errors.New("nlopt is not supported on this build")
}

// NloptSolver mimics the type in the cgo compiled code.
type NloptSolver struct{}

// Solve refuses to solve problems without cgo.
func (s *NloptSolver) Solve(ctx context.Context, problem *Problem) (Result, error) {
	return Result{}, errors.New("cannot solve without cgo")
}
