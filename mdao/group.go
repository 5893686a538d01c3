// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/jac"
	"github.com/cpmech/gomdao/vec"
	"github.com/cpmech/gosl/la"
)

// system defines the contract shared by components and groups after setup
type system interface {
	base() *sysBase                // name, path and ranges
	solveNonlinear() error         // converges the outputs of system
	applyNonlinear() error         // computes the residuals of system
	linearize() error              // computes the partials of all components in system
	solveLinear(mode Mode) error   // solves the diagonal block of system
	leaves(list []*leaf) []*leaf   // appends all components in depth-first order
	groups(list []*Group) []*Group // appends all groups in depth-first order
}

// sysBase holds data common to components and groups
type sysBase struct {
	name     string    // name within parent
	path     string    // absolute name; e.g. "cycle.first"
	promotes []string  // promoted names or patterns
	rng      jac.Range // range of outputs (and residuals) in the global vectors
	prob     *Problem  // problem owning this system
}

func (o *sysBase) base() *sysBase { return o }

// Path returns the absolute name of system
func (o *sysBase) Path() string { return o.path }

// Group holds a tree of components and groups sharing a nonlinear and a linear solver
type Group struct {
	sysBase
	NlSolver  NonlinearSolver // nonlinear solver; default is "runonce"
	LinSolver LinearSolver    // linear solver; default is "runonce"
	NlInfo    *SolverInfo     // results of the last nonlinear solve
	LinInfo   *SolverInfo     // results of the last linear solve

	subs   []system    // children in declaration order
	conns  [][2]string // explicit connections (source, target) by promoted names
	errors []error     // errors found while building

	// promoted names relative to this group
	outNames map[string][]*vec.Var
	inNames  map[string][]*vec.Var
}

// NewGroup returns a new group
func NewGroup() *Group {
	return new(Group)
}

// AddSubsystem adds a component (comp.Component) or a group (*Group). promotes holds the names of
// variables (or patterns such as "*" and "y_*") seen by this group without the prefix "name."
func (o *Group) AddSubsystem(name string, sys interface{}, promotes ...string) *Group {
	var s system
	switch v := sys.(type) {
	case *Group:
		s = v
	case comp.Component:
		s = &leaf{comp: v}
	default:
		o.errors = append(o.errors, errs.New(errs.ConfigurationError, "subsystem %q must be a component or a group; got %T", name, sys))
		return o
	}
	for _, sub := range o.subs {
		if sub.base().name == name {
			o.errors = append(o.errors, errs.New(errs.ConfigurationError, "subsystem %q exists already", name))
			return o
		}
	}
	if name == "" || containsDot(name) {
		o.errors = append(o.errors, errs.New(errs.ConfigurationError, "name of subsystem %q must be non-empty and without dots", name))
		return o
	}
	b := s.base()
	b.name = name
	b.promotes = promotes
	o.subs = append(o.subs, s)
	return o
}

// Connect connects source output src to target input tgt. Names are promoted names relative to this group
func (o *Group) Connect(src, tgt string) *Group {
	o.conns = append(o.conns, [2]string{src, tgt})
	return o
}

// Subsystems returns the names of children
func (o *Group) Subsystems() (names []string) {
	for _, s := range o.subs {
		names = append(names, s.base().name)
	}
	return
}

// Range returns the range of outputs of this group in the global vectors
func (o *Group) Range() jac.Range { return o.rng }

// SolveNonlinear converges the outputs of this group with its nonlinear solver
func (o *Group) SolveNonlinear() (err error) {
	defer errs.Recover(&err, errs.ConfigurationError)
	return o.solveNonlinear()
}

// ApplyNonlinear computes the residuals of this group
func (o *Group) ApplyNonlinear() (err error) {
	defer errs.Recover(&err, errs.ConfigurationError)
	return o.applyNonlinear()
}

// Linearize computes the partials of all components in this group and updates the assembled Jacobian
func (o *Group) Linearize() (err error) {
	defer errs.Recover(&err, errs.ConfigurationError)
	if err = o.linearize(); err != nil {
		return
	}
	o.prob.Jac.Update()
	return
}

// SolveLinear solves the linear system of this group with its linear solver
func (o *Group) SolveLinear(mode Mode) (err error) {
	defer errs.Recover(&err, errs.ConfigurationError)
	return o.solveLinear(mode)
}

// system ///////////////////////////////////////////////////////////////////////////////////////

func (o *Group) solveNonlinear() (err error) {
	o.NlInfo, err = o.NlSolver.Solve()
	return
}

func (o *Group) applyNonlinear() (err error) {
	for _, s := range o.subs {
		if err = s.applyNonlinear(); err != nil {
			return
		}
	}
	return
}

func (o *Group) linearize() (err error) {
	for _, s := range o.subs {
		if err = s.linearize(); err != nil {
			return
		}
	}
	return
}

func (o *Group) solveLinear(mode Mode) (err error) {
	o.LinInfo, err = o.LinSolver.Solve(mode)
	return
}

func (o *Group) leaves(list []*leaf) []*leaf {
	for _, s := range o.subs {
		list = s.leaves(list)
	}
	return list
}

func (o *Group) groups(list []*Group) []*Group {
	list = append(list, o)
	for _, s := range o.subs {
		list = s.groups(list)
	}
	return list
}

// leaf /////////////////////////////////////////////////////////////////////////////////////////

// transfer copies the value of a source output into a target input: tgt = factor⋅src + shift
type transfer struct {
	src, tgt       *vec.Var
	factor, shift  float64
	srcVal, tgtVal la.Vector // views of global vectors
}

// leaf holds a component after setup
type leaf struct {
	sysBase
	comp     comp.Component
	explicit bool           // explicit component
	decl     *comp.Decl     // declarations
	partials *comp.Partials // partials; values set by linearize
	ins      []*vec.Var     // inputs
	outs     []*vec.Var     // outputs
	xfers    []*transfer    // one per input

	// local views
	in, out, res    *vec.Vector
	din, dout, dres *vec.Vector
	tmp             *vec.Vector // scratch outputs of explicit components
	identity        bool        // diagonal block is the identity
	inv             *la.Matrix  // inverse of diagonal block
	invGen          int         // Jacobian generation of inv
	approx          *approximator
}

// transfer sets all inputs from their sources
func (o *leaf) transfer() {
	for _, t := range o.xfers {
		for i, v := range t.srcVal {
			t.tgtVal[i] = t.factor*v + t.shift
		}
	}
}

func (o *leaf) solveNonlinear() (err error) {
	o.transfer()
	if o.explicit {
		return o.comp.(comp.Explicit).Compute(o.in, o.out)
	}
	if s, ok := o.comp.(comp.NonlinearSolver); ok {
		return s.SolveNonlinear(o.in, o.out)
	}
	return
}

func (o *leaf) applyNonlinear() (err error) {
	o.transfer()
	if o.explicit {
		copy(o.tmp.Data, o.out.Data)
		if err = o.comp.(comp.Explicit).Compute(o.in, o.tmp); err != nil {
			return
		}
		for i, y := range o.out.Data {
			o.res.Data[i] = y - o.tmp.Data[i]
		}
		return
	}
	return o.comp.(comp.Implicit).ApplyNonlinear(o.in, o.out, o.res)
}

func (o *leaf) linearize() (err error) {
	o.transfer()
	if o.decl.Method != "" {
		return o.approx.run(o.partials)
	}
	if o.explicit {
		if pc, ok := o.comp.(comp.PartialsComputer); ok {
			return pc.ComputePartials(o.in, o.partials)
		}
		return
	}
	return o.comp.(comp.Implicit).Linearize(o.in, o.out, o.partials)
}

// solveLinear solves the diagonal block of this component. Fwd: dres → dout; Rev: dout → dres
func (o *leaf) solveLinear(mode Mode) (err error) {
	x, b := o.dout.Data, o.dres.Data
	if mode == Rev {
		x, b = b, x
	}
	if o.identity {
		copy(x, b)
		return
	}
	if s, ok := o.comp.(comp.LinearSolver); ok {
		return s.SolveLinear(o.dout, o.dres, mode)
	}
	asm := o.prob.Jac
	if o.inv == nil || o.invGen != asm.Gen {
		a := asm.Free.ToDense(o.rng)
		o.inv = la.NewMatrix(a.M, a.N)
		if err = inverse(o.inv, a, o.path); err != nil {
			o.inv = nil
			return
		}
		o.invGen = asm.Gen
	}
	bb := la.Vector(b).GetCopy()
	if mode == Rev {
		la.MatTrVecMul(x, 1, o.inv, bb)
	} else {
		la.MatVecMul(x, 1, o.inv, bb)
	}
	return
}

func (o *leaf) leaves(list []*leaf) []*leaf { return append(list, o) }

func (o *leaf) groups(list []*Group) []*Group { return list }

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// inverse computes ai = a⁻¹; singular matrices cause ConvergenceFailure
func inverse(ai, a *la.Matrix, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.ConvergenceFailure, "cannot invert diagonal block of %s: %v", name, r)
		}
	}()
	la.MatInv(ai, a, false)
	return
}

// containsDot tells whether name has a dot
func containsDot(name string) bool {
	for _, c := range name {
		if c == '.' {
			return true
		}
	}
	return false
}
