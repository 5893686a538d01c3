// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package indep implements components holding independent variables
package indep

import (
	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/vec"
)

// Var holds the declaration of one independent variable
type Var struct {
	Name  string    `json:"name"`  // local name
	Val   []float64 `json:"val"`   // initial value; one value is broadcast
	Shape []int     `json:"shape"` // shape; empty means [len(Val)]
	Units string    `json:"units"` // units
	Lower *float64  `json:"lower"` // lower bound; nil means none
	Upper *float64  `json:"upper"` // upper bound; nil means none
}

// Comp holds outputs set by the user; i.e. the residuals are always zero
type Comp struct {
	Vars []*Var `json:"vars"`
}

// add component to factory
func init() {
	comp.SetAllocator("indep", func(prms map[string]interface{}) (comp.Component, error) {
		o := new(Comp)
		return o, inp.Decode(prms, o, "indep")
	})
}

// New returns a new component with one variable
func New(name string, val []float64, shape ...int) *Comp {
	return &Comp{Vars: []*Var{{Name: name, Val: val, Shape: shape}}}
}

// Add adds a variable
func (o *Comp) Add(name string, val []float64, units string, shape ...int) *Comp {
	o.Vars = append(o.Vars, &Var{Name: name, Val: val, Shape: shape, Units: units})
	return o
}

// Setup declares the outputs
func (o *Comp) Setup(d *comp.Decl) error {
	for _, v := range o.Vars {
		m := d.AddOutput(v.Name, v.Val, v.Shape...)
		m.Units = v.Units
		if v.Lower != nil {
			m.Lower = *v.Lower
		}
		if v.Upper != nil {
			m.Upper = *v.Upper
		}
	}
	return nil
}

// Compute does nothing; outputs keep the values set by the user
func (o *Comp) Compute(in, out *vec.Vector) error {
	return nil
}

// ComputePartials does nothing; there are no inputs
func (o *Comp) ComputePartials(in *vec.Vector, p *comp.Partials) error {
	return nil
}

// ComputeComplex does nothing; outputs are not perturbed
func (o *Comp) ComputeComplex(in, out comp.CVars) error {
	return nil
}
