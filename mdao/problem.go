// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package mdao implements groups of components, nonlinear and linear solvers and the computation
// of total derivatives
package mdao

import (
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/jac"
	"github.com/cpmech/gomdao/vec"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// Problem holds a model and the global vectors
type Problem struct {
	Model   *Group // root group
	JacType string // kind of assembled Jacobian: "dict", "dense", "coo" or "csr"
	Verbose bool   // print setup messages

	// vectors; available after Setup
	In, Out, Res    *vec.Vector // nonlinear vectors
	Din, Dout, Dres *vec.Vector // linear vectors

	// derived
	Jac    *jac.Assembler // global Jacobian; rows are residuals and columns are outputs
	Leaves []*leaf        // all components in depth-first order
	Groups []*Group       // all groups in depth-first order

	// auxiliary
	inputs  []*vec.Var             // all inputs
	outputs []*vec.Var             // all outputs
	sources map[*vec.Var]*transfer // maps input to its transfer
	isSetup bool                   // Setup has been called
	ran     bool                   // RunModel has been called after the last SetVal
}

// NewProblem returns a new problem. A nil model means a new empty group
func NewProblem(model *Group) *Problem {
	if model == nil {
		model = NewGroup()
	}
	return &Problem{Model: model, JacType: "csr"}
}

// RunModel runs the nonlinear solver of the model
func (o *Problem) RunModel() (err error) {
	if err = o.checkSetup(); err != nil {
		return
	}
	defer errs.Recover(&err, errs.ConfigurationError)
	if err = o.Model.solveNonlinear(); err != nil {
		return
	}
	o.ran = true
	if o.Verbose && o.Model.NlInfo != nil {
		io.Pf("model: %s in %d iterations\n", o.Model.NlInfo.Status, o.Model.NlInfo.Iterations)
	}
	return
}

// RunApply computes the residuals of the whole model
func (o *Problem) RunApply() (err error) {
	if err = o.checkSetup(); err != nil {
		return
	}
	defer errs.Recover(&err, errs.ConfigurationError)
	return o.Model.applyNonlinear()
}

// RunLinearize computes the partials of all components and updates the Jacobian
func (o *Problem) RunLinearize() (err error) {
	if err = o.checkSetup(); err != nil {
		return
	}
	return o.Model.Linearize()
}

// RunSolveLinear solves the linear system of the model using the current linear vectors.
// Fwd: given Dres, finds Dout; Rev: given Dout, finds Dres
func (o *Problem) RunSolveLinear(mode Mode) (info *SolverInfo, err error) {
	if err = o.checkSetup(); err != nil {
		return
	}
	err = o.Model.SolveLinear(mode)
	return o.Model.LinInfo, err
}

// LinearContext calls fcn with zeroed linear vectors and zeroes them again on exit, even if fcn
// returns an error or panics
func (o *Problem) LinearContext(fcn func(din, dout, dres *vec.Vector) error) (err error) {
	if err = o.checkSetup(); err != nil {
		return
	}
	o.zeroLinear()
	defer o.zeroLinear()
	return fcn(o.Din, o.Dout, o.Dres)
}

// Jacobian returns the global Jacobian as a dense matrix
func (o *Problem) Jacobian() *la.Matrix {
	return o.Jac.Dense()
}

// Get returns a view of the values of a variable. Inputs are found by absolute or promoted name;
// outputs by absolute or promoted name. It panics with NameNotFound if the name is unknown
func (o *Problem) Get(name string) la.Vector {
	val, err := o.GetVal(name)
	if err != nil {
		panic(err)
	}
	return val
}

// GetVal returns a view of the values of a variable. Outputs are searched first
func (o *Problem) GetVal(name string) (val la.Vector, err error) {
	if err = o.checkSetup(); err != nil {
		return
	}
	if o.Out.Has(name) {
		return o.Out.Lookup(name)
	}
	if o.In.Has(name) {
		return o.In.Lookup(name)
	}
	return nil, errs.New(errs.NameNotFound, "cannot find variable named %q", name)
}

// SetVal sets the values of a variable. Setting an input sets its source output, converting units.
// The model is run again by the next ComputeTotals
func (o *Problem) SetVal(name string, vals []float64) (err error) {
	if err = o.checkSetup(); err != nil {
		return
	}
	o.ran = false
	if o.Out.Has(name) {
		return o.Out.Set(name, vals)
	}
	v, err := o.In.Var(name)
	if err != nil {
		return errs.New(errs.NameNotFound, "cannot find variable named %q", name)
	}
	t := o.sources[v]
	if len(vals) != 1 && len(vals) != v.Size {
		return errs.New(errs.ShapeMismatch, "cannot set input %q with %d values; size is %d", name, len(vals), v.Size)
	}
	for i := range t.srcVal {
		x := vals[0]
		if len(vals) > 1 {
			x = vals[i]
		}
		t.srcVal[i] = (x - t.shift) / t.factor
	}
	o.In.Set(name, vals)
	return
}

// Source returns the absolute name of the output feeding a variable. Outputs are their own source
func (o *Problem) Source(name string) (src string, err error) {
	v, err := o.source(name)
	if err != nil {
		return
	}
	return v.Name, nil
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// source returns the output feeding variable name
func (o *Problem) source(name string) (*vec.Var, error) {
	if o.Out.Has(name) {
		return o.Out.Var(name)
	}
	v, err := o.In.Var(name)
	if err != nil {
		return nil, errs.New(errs.NameNotFound, "cannot find variable named %q", name)
	}
	return o.sources[v].src, nil
}

// checkSetup returns an error if Setup has not been called successfully
func (o *Problem) checkSetup() error {
	if !o.isSetup {
		return errs.New(errs.ConfigurationError, "problem has not been set up")
	}
	return nil
}

// zeroLinear zeroes all linear vectors
func (o *Problem) zeroLinear() {
	o.Din.SetConst(0)
	o.Dout.SetConst(0)
	o.Dres.SetConst(0)
}
