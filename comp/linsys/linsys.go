// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package linsys implements an implicit component solving a dense linear system
package linsys

import (
	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/vec"
	"github.com/cpmech/gosl/la"
)

// Comp implements the residual R = A⋅y - x with constant A
type Comp struct {
	A     [][]float64 `json:"a"`     // coefficients
	Units string      `json:"units"` // units of x and y

	// derived
	a, ai *la.Matrix // A and its inverse
}

// add component to factory
func init() {
	comp.SetAllocator("linsys", func(prms map[string]interface{}) (comp.Component, error) {
		o := new(Comp)
		return o, inp.Decode(prms, o, "linsys")
	})
}

// New returns a new component
func New(a [][]float64) *Comp {
	return &Comp{A: a}
}

// Setup declares x, y and the constant partials
func (o *Comp) Setup(d *comp.Decl) (err error) {
	n := len(o.A)
	if n == 0 {
		return errs.New(errs.ConfigurationError, "linsys: matrix A is empty")
	}
	for _, row := range o.A {
		if len(row) != n {
			return errs.New(errs.ShapeMismatch, "linsys: matrix A must be square; got a row with %d columns and %d rows", len(row), n)
		}
	}
	o.a = la.NewMatrixDeep2(o.A)
	o.ai = la.NewMatrix(n, n)
	if err = invert(o.ai, o.a); err != nil {
		return
	}
	d.AddInput("x", []float64{1}, n).Units = o.Units
	d.AddOutput("y", []float64{1}, n).Units = o.Units
	d.DeclareDense("y", "y", o.A)
	diag := make([]int, n)
	for i := range diag {
		diag[i] = i
	}
	d.DeclarePartials("y", "x", diag, diag, -1)
	return
}

// ApplyNonlinear computes R = A⋅y - x
func (o *Comp) ApplyNonlinear(in, out, res *vec.Vector) error {
	x, y, r := in.Get("x"), out.Get("y"), res.Get("y")
	for i := range r {
		r[i] = -x[i]
	}
	la.MatVecMulAdd(r, 1, o.a, y)
	return nil
}

// SolveNonlinear computes y = A⁻¹⋅x
func (o *Comp) SolveNonlinear(in, out *vec.Vector) error {
	la.MatVecMul(out.Get("y"), 1, o.ai, in.Get("x"))
	return nil
}

// Linearize does nothing; partials are constant
func (o *Comp) Linearize(in, out *vec.Vector, p *comp.Partials) error {
	return nil
}

// SolveLinear solves A⋅dy = dr (Fwd) or Aᵀ⋅dr = dy (Rev)
func (o *Comp) SolveLinear(dout, dres *vec.Vector, mode comp.Mode) error {
	if mode == comp.Rev {
		la.MatTrVecMul(dres.Get("y"), 1, o.ai, dout.Get("y").GetCopy())
		return nil
	}
	la.MatVecMul(dout.Get("y"), 1, o.ai, dres.Get("y").GetCopy())
	return nil
}

// invert computes ai = a⁻¹
func invert(ai, a *la.Matrix) (err error) {
	defer errs.Recover(&err, errs.ConfigurationError)
	det := la.MatInv(ai, a, true)
	if det == 0 {
		return errs.New(errs.ConfigurationError, "linsys: matrix A is singular")
	}
	return
}
