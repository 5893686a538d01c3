// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"math"

	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gosl/io"
)

// Mode defines the direction of derivative propagation
type Mode = comp.Mode

// modes
const (
	Fwd  = comp.Fwd
	Rev  = comp.Rev
	Auto = comp.Auto
)

// Status defines the state of a solver
type Status int

const (
	NotConverged Status = iota // not run yet or still iterating
	Converged                  // tolerances satisfied
	Failed                     // maximum number of iterations reached
	Diverged                   // residual norm is NaN or Inf
)

// String returns the name of the status
func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	case Diverged:
		return "diverged"
	}
	return "not converged"
}

// SolverInfo holds the results of one solve
type SolverInfo struct {
	Status     Status  // final state
	Iterations int     // number of iterations
	Norm0      float64 // initial residual norm
	Norm       float64 // final residual norm
}

// NonlinearSolver drives the residuals of a group to zero
type NonlinearSolver interface {
	Name() string                // kind of solver; e.g. "newton"
	Solve() (*SolverInfo, error) // solves the group; failures to converge are reported in info
	setup(g *Group) error        // binds solver to group
}

// LinearSolver solves the linear system of a group. Fwd: J⋅dout = dres; Rev: Jᵀ⋅dres = dout
type LinearSolver interface {
	Name() string                         // kind of solver; e.g. "direct"
	Solve(mode Mode) (*SolverInfo, error) // solves the group; failures to converge are reported in info
	Assembled() bool                      // uses the assembled Jacobian
	setup(g *Group) error                 // binds solver to group
}

// nlAllocators holds all available nonlinear solvers
var nlAllocators = make(map[string]func(opts map[string]interface{}) (NonlinearSolver, error))

// lnAllocators holds all available linear solvers
var lnAllocators = make(map[string]func(opts map[string]interface{}) (LinearSolver, error))

// NewNonlinearSolver returns a new nonlinear solver. kind is "newton", "nlbgs" or "runonce".
// Options not recognized by the solver cause UnrecognizedOption
func NewNonlinearSolver(kind string, opts map[string]interface{}) (NonlinearSolver, error) {
	allocator, ok := nlAllocators[kind]
	if !ok {
		return nil, errs.New(errs.ConfigurationError, "cannot find nonlinear solver named %q", kind)
	}
	return allocator(opts)
}

// NewLinearSolver returns a new linear solver. kind is "direct", "lbgs", "krylov" or "runonce".
// Options not recognized by the solver cause UnrecognizedOption
func NewLinearSolver(kind string, opts map[string]interface{}) (LinearSolver, error) {
	allocator, ok := lnAllocators[kind]
	if !ok {
		return nil, errs.New(errs.ConfigurationError, "cannot find linear solver named %q", kind)
	}
	return allocator(opts)
}

// monitor checks convergence of iterative solvers and prints messages
type monitor struct {
	name    string  // solver and group names; for messages
	maxiter int     // maximum number of iterations
	atol    float64 // absolute tolerance
	rtol    float64 // relative tolerance
	iprint  int     // 0: silent, 1: summary, 2: all iterations
	errOn   bool    // failure to converge is an error
	info    *SolverInfo
}

// start initializes info with the initial norm. It returns true if already converged
func (o *monitor) start(norm0 float64) (done bool) {
	o.info = &SolverInfo{Status: NotConverged, Norm0: norm0, Norm: norm0}
	if o.iprint > 1 {
		io.Pf("%s: %4d |R| = %23.15e\n", o.name, 0, norm0)
	}
	return o.check()
}

// update records the norm after one iteration. It returns true if the loop must stop
func (o *monitor) update(norm float64) (done bool) {
	o.info.Iterations++
	o.info.Norm = norm
	if o.iprint > 1 {
		io.Pf("%s: %4d |R| = %23.15e |R|/|R0| = %23.15e\n", o.name, o.info.Iterations, norm, o.ratio())
	}
	if o.check() {
		return true
	}
	if o.info.Iterations >= o.maxiter {
		o.info.Status = Failed
		return true
	}
	return false
}

// check sets the status given the current norm
func (o *monitor) check() bool {
	norm := o.info.Norm
	if math.IsNaN(norm) || math.IsInf(norm, 0) {
		o.info.Status = Diverged
		return true
	}
	if norm < o.atol || o.ratio() < o.rtol {
		o.info.Status = Converged
		return true
	}
	return false
}

// ratio returns the norm relative to the initial norm
func (o *monitor) ratio() float64 {
	if o.info.Norm0 == 0 {
		return o.info.Norm
	}
	return o.info.Norm / o.info.Norm0
}

// finish prints summary and converts failures into errors if requested
func (o *monitor) finish() (info *SolverInfo, err error) {
	info = o.info
	if info.Status == NotConverged {
		info.Status = Failed
	}
	if o.iprint > 0 {
		switch info.Status {
		case Converged:
			io.Pfgreen("%s: converged in %d iterations. |R| = %g\n", o.name, info.Iterations, info.Norm)
		default:
			io.PfRed("%s: %s after %d iterations. |R| = %g\n", o.name, info.Status, info.Iterations, info.Norm)
		}
	}
	if o.errOn && info.Status != Converged {
		err = errs.New(errs.ConvergenceFailure, "%s %s after %d iterations. |R| = %g, |R0| = %g", o.name, info.Status, info.Iterations, info.Norm, info.Norm0)
	}
	return
}
