package engine

import (
	"context"
	"strings"
	"time"

	"github.com/nextmv-io/sdk/mip"

	appErrors "github.com/noah-isme/sma-scheduling-engine/pkg/errors"
)

// solveResult wraps the solver's outcome together with the bookkeeping
// the rest of the run needs: whether the time budget was exhausted
// before optimality was proven, and how long the call actually took.
type solveResult struct {
	solution    mip.Solution
	timeLimited bool
	duration    time.Duration
}

// solve invokes the external MILP solver with a bounded wall-clock
// budget. It never returns an error for suboptimal termination — the
// best incumbent is always usable, since the all-zeros assignment is
// trivially feasible (spec §4.3). It errors if the run context is
// already cancelled, if the solver cannot be launched, configured, or
// invoked, or if the solver reports infeasible/unbounded; the last case
// spec §4.3 says cannot happen given this model and is therefore treated
// as a programming error.
func solve(ctx context.Context, built *builtModel, opts Options) (solveResult, error) {
	if err := ctx.Err(); err != nil {
		return solveResult{}, appErrors.Wrap(err, appErrors.ErrPreconditionViolation.Code, appErrors.ErrPreconditionViolation.Status, "run context already cancelled")
	}

	backend := mip.Highs
	switch strings.ToLower(opts.SolverBackend) {
	case "", "highs":
		backend = mip.Highs
	default:
		// Unknown backend identifiers fall back to the default rather
		// than fail the run; the caller-visible contract is "a solver
		// ran within budget", not which one.
		backend = mip.Highs
	}

	solver, err := mip.NewSolver(backend, built.m)
	if err != nil {
		return solveResult{}, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "failed to launch MILP solver")
	}

	solveOptions := mip.NewSolveOptions()
	if err := solveOptions.SetMaximumDuration(opts.SolverTimeLimit); err != nil {
		return solveResult{}, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "failed to configure solver time limit")
	}

	start := time.Now()
	solution, err := solver.Solve(solveOptions)
	duration := time.Since(start)
	if err != nil {
		return solveResult{}, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "MILP solver invocation failed")
	}
	if solution == nil || (!solution.IsOptimal() && !solution.IsSubOptimal()) {
		return solveResult{}, appErrors.New(appErrors.ErrSolverInfeasibleOrUnbounded.Code, appErrors.ErrSolverInfeasibleOrUnbounded.Status, "solver reported infeasible or unbounded, which should not be reachable for this model")
	}

	return solveResult{
		solution:    solution,
		timeLimited: !solution.IsOptimal(),
		duration:    duration,
	}, nil
}
