// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"math"

	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// add solvers to factory
func init() {
	nlAllocators["runonce"] = func(opts map[string]interface{}) (NonlinearSolver, error) {
		o := NewNonlinearRunOnce()
		return o, inp.Decode(opts, &o.RunOnceData, "nonlinear solver runonce")
	}
	nlAllocators["nlbgs"] = func(opts map[string]interface{}) (NonlinearSolver, error) {
		o := NewNlbgs()
		return o, inp.Decode(opts, &o.NlbgsData, "nonlinear solver nlbgs")
	}
	nlAllocators["newton"] = func(opts map[string]interface{}) (NonlinearSolver, error) {
		o := NewNewton()
		return o, inp.Decode(opts, &o.NewtonData, "nonlinear solver newton")
	}
}

// NonlinearRunOnce runs the nonlinear solvers of all children once, in order
type NonlinearRunOnce struct {
	inp.RunOnceData
	g *Group
}

// NewNonlinearRunOnce returns a new solver
func NewNonlinearRunOnce() (o *NonlinearRunOnce) {
	o = new(NonlinearRunOnce)
	o.SetDefault()
	return
}

// Name returns the kind of solver
func (o *NonlinearRunOnce) Name() string { return "runonce" }

// Solve runs all children once
func (o *NonlinearRunOnce) Solve() (info *SolverInfo, err error) {
	if err = runChildren(o.g); err != nil {
		return
	}
	if o.Iprint > 0 {
		io.Pf("%s: done\n", label(o, o.g))
	}
	return &SolverInfo{Status: Converged, Iterations: 1}, nil
}

func (o *NonlinearRunOnce) setup(g *Group) error {
	o.g = g
	return nil
}

// Nlbgs implements the nonlinear block Gauss-Seidel solver with optional Aitken relaxation
type Nlbgs struct {
	inp.NlbgsData
	g                 *Group
	prev, delta, last la.Vector // outputs before the sweep; change in sweep; change in previous sweep
}

// NewNlbgs returns a new solver
func NewNlbgs() (o *Nlbgs) {
	o = new(Nlbgs)
	o.SetDefault()
	return
}

// Name returns the kind of solver
func (o *Nlbgs) Name() string { return "nlbgs" }

// Solve runs sweeps over the children until the residuals of the group converge
func (o *Nlbgs) Solve() (info *SolverInfo, err error) {
	mon := newNlMonitor(label(o, o.g), &o.NlData)
	if err = o.g.applyNonlinear(); err != nil {
		return
	}
	if mon.start(o.g.resNorm()) {
		return mon.finish()
	}
	out := o.g.outputs()
	theta := o.AitkenInitialFactor
	for it := 0; ; it++ {
		copy(o.prev, out)
		if err = runChildren(o.g); err != nil {
			return
		}
		if o.UseAitken {
			for i := range out {
				o.delta[i] = out[i] - o.prev[i]
			}
			if it > 0 {
				theta = o.aitken(theta)
			}
			for i := range out {
				out[i] = o.prev[i] + theta*o.delta[i]
			}
			copy(o.last, o.delta)
		}
		if err = o.g.applyNonlinear(); err != nil {
			return
		}
		if mon.update(o.g.resNorm()) {
			break
		}
	}
	return mon.finish()
}

// aitken returns the new relaxation factor
func (o *Nlbgs) aitken(theta float64) float64 {
	var num, den float64
	for i, d := range o.delta {
		t := d - o.last[i]
		num += t * d
		den += t * t
	}
	if den == 0 {
		return theta
	}
	theta *= 1 - num/den
	return math.Max(o.AitkenMinFactor, math.Min(o.AitkenMaxFactor, theta))
}

func (o *Nlbgs) setup(g *Group) error {
	o.g = g
	n := g.rng.Len()
	o.prev, o.delta, o.last = la.NewVector(n), la.NewVector(n), la.NewVector(n)
	return nil
}

// Newton implements Newton's method using the linear solver of the group for each step
type Newton struct {
	inp.NewtonData
	g *Group
}

// NewNewton returns a new solver
func NewNewton() (o *Newton) {
	o = new(Newton)
	o.SetDefault()
	return
}

// Name returns the kind of solver
func (o *Newton) Name() string { return "newton" }

// Solve runs Newton steps until the residuals of the group converge
func (o *Newton) Solve() (info *SolverInfo, err error) {
	g := o.g
	prob := g.prob
	mon := newNlMonitor(label(o, g), &o.NlData)
	if o.SolveSubsystems && o.MaxSubSolves > 0 {
		if err = runChildren(g); err != nil {
			return
		}
	}
	if err = g.applyNonlinear(); err != nil {
		return
	}
	if mon.start(g.resNorm()) {
		return mon.finish()
	}
	r := g.rng
	out := g.outputs()
	res := prob.Res.Data[r.Lo:r.Hi]
	dout := prob.Dout.Data[r.Lo:r.Hi]
	dres := prob.Dres.Data[r.Lo:r.Hi]
	defer func() {
		dout.Fill(0)
		dres.Fill(0)
	}()
	for it := 1; ; it++ {

		// step: J⋅Δy = -R
		if err = g.linearize(); err != nil {
			return
		}
		prob.Jac.Update()
		for i, v := range res {
			dres[i] = -v
		}
		dout.Fill(0)
		if g.LinInfo, err = g.LinSolver.Solve(Fwd); err != nil {
			return
		}
		for i, v := range dout {
			out[i] += v
		}
		if o.EnforceBounds {
			o.clip()
		}

		// update residuals
		if o.SolveSubsystems && it < o.MaxSubSolves {
			if err = runChildren(g); err != nil {
				return
			}
		}
		if err = g.applyNonlinear(); err != nil {
			return
		}
		if mon.update(g.resNorm()) {
			break
		}
	}
	return mon.finish()
}

// clip moves outputs of the group into their bounds
func (o *Newton) clip() {
	prob := o.g.prob
	for _, v := range prob.outputs {
		if !o.g.rng.Has(v.Offset) {
			continue
		}
		vals := prob.Out.Data[v.Offset : v.Offset+v.Size]
		for i, x := range vals {
			vals[i] = math.Max(v.Lower, math.Min(v.Upper, x))
		}
	}
}

func (o *Newton) setup(g *Group) error {
	o.g = g
	return nil
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// runChildren runs the nonlinear solvers of all children of g once, in order
func runChildren(g *Group) (err error) {
	for _, s := range g.subs {
		if err = s.solveNonlinear(); err != nil {
			return
		}
	}
	return
}

// newNlMonitor returns a monitor for nonlinear solvers
func newNlMonitor(name string, d *inp.NlData) *monitor {
	return &monitor{name: name, maxiter: d.Maxiter, atol: d.Atol, rtol: d.Rtol, iprint: d.Iprint, errOn: d.ErrOnNonConverge}
}

// label returns the name of solver and group for messages; e.g. "newton(cycle)"
func label(s interface{ Name() string }, g *Group) string {
	return io.Sf("%s(%s)", s.Name(), groupName(g))
}

// outputs returns the view of the outputs of g
func (o *Group) outputs() la.Vector {
	return o.prob.Out.Data[o.rng.Lo:o.rng.Hi]
}

// resNorm returns the norm of the residuals of g
func (o *Group) resNorm() float64 {
	return o.prob.Res.Data[o.rng.Lo:o.rng.Hi].Norm()
}
