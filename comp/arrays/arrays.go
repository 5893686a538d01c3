// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package arrays implements an explicit component with array variables: areas = lengths⋅widths
// and total_volume = Σareas⋅thickness
package arrays

import (
	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/jac"
	"github.com/cpmech/gomdao/vec"
)

// Comp computes areas and total volume; partials are approximated
type Comp struct {
	Thickness float64 `json:"thickness"` // multiplies the sum of areas
	Method    string  `json:"method"`    // approximation method; "fd" or "cs". Empty means exact if available
}

// Dense computes dense partials
type Dense struct{ Comp }

// Sparse computes partials given as triplets
type Sparse struct{ Comp }

// Spmtx computes partials given as compressed-row matrices
type Spmtx struct{ Comp }

// prms holds the parameters read from problem files
type prms struct {
	Comp     `json:",squash"`
	Partials string `json:"partials"` // "dense", "sparse", "spmtx" or empty (approximated)
}

// add component to factory
func init() {
	comp.SetAllocator("arrays", func(p map[string]interface{}) (comp.Component, error) {
		d := prms{Comp: Comp{Thickness: 1}}
		if err := inp.Decode(p, &d, "arrays"); err != nil {
			return nil, err
		}
		switch d.Partials {
		case "":
			return &d.Comp, nil
		case "dense":
			return &Dense{d.Comp}, nil
		case "sparse":
			return &Sparse{d.Comp}, nil
		case "spmtx":
			return &Spmtx{d.Comp}, nil
		}
		return nil, errs.New(errs.ConfigurationError, "arrays: partials %q is not available", d.Partials)
	})
}

// indices of the 2×2 arrays, flattened
var (
	diag  = []int{0, 1, 2, 3}
	zeros = []int{0, 0, 0, 0}
	wrts  = []string{"lengths", "widths"}
)

// Setup declares 2×2 lengths and widths, 2×2 areas and the scalar total volume
func (o *Comp) Setup(d *comp.Decl) error {
	d.AddInput("lengths", []float64{1}, 2, 2)
	d.AddInput("widths", []float64{1}, 2, 2)
	d.AddOutput("areas", []float64{1}, 2, 2)
	d.AddOutput("total_volume", []float64{1})
	if o.Method != "" {
		d.ApproxPartials(o.Method, 0)
	}
	return nil
}

// Compute computes areas and total volume
func (o *Comp) Compute(in, out *vec.Vector) error {
	l, w := in.Get("lengths"), in.Get("widths")
	a, v := out.Get("areas"), out.Get("total_volume")
	v[0] = 0
	for i := range a {
		a[i] = l[i] * w[i]
		v[0] += a[i]
	}
	v[0] *= o.Thickness
	return nil
}

// ComputeComplex computes areas and total volume with complex values
func (o *Comp) ComputeComplex(in, out comp.CVars) error {
	l, w := in["lengths"], in["widths"]
	a, v := out["areas"], out["total_volume"]
	v[0] = 0
	for i := range a {
		a[i] = l[i] * w[i]
		v[0] += a[i]
	}
	v[0] *= complex(o.Thickness, 0)
	return nil
}

// Setup declares dense partials
func (o *Dense) Setup(d *comp.Decl) error {
	o.Comp.Setup(d)
	for _, wrt := range wrts {
		d.DeclarePartials("*", wrt, nil, nil)
	}
	return nil
}

// ComputePartials sets diagonal and dense blocks
func (o *Dense) ComputePartials(in *vec.Vector, p *comp.Partials) error {
	l, w := in.Get("lengths"), in.Get("widths")
	p.SetDiag("areas", "lengths", w)
	p.SetDiag("areas", "widths", l)
	p.SetDense("total_volume", "lengths", [][]float64{o.scaled(w)})
	p.SetDense("total_volume", "widths", [][]float64{o.scaled(l)})
	return nil
}

// Setup declares partials as triplets
func (o *Sparse) Setup(d *comp.Decl) error {
	o.Comp.Setup(d)
	for _, wrt := range wrts {
		d.DeclarePartials("areas", wrt, diag, diag)
		d.DeclarePartials("total_volume", wrt, zeros, diag)
	}
	return nil
}

// ComputePartials sets triplets
func (o *Sparse) ComputePartials(in *vec.Vector, p *comp.Partials) error {
	l, w := in.Get("lengths"), in.Get("widths")
	p.SetTriplet("areas", "lengths", w, diag, diag)
	p.SetTriplet("areas", "widths", l, diag, diag)
	p.SetTriplet("total_volume", "lengths", o.scaled(w), zeros, diag)
	p.SetTriplet("total_volume", "widths", o.scaled(l), zeros, diag)
	return nil
}

// Setup declares compressed-row partials
func (o *Spmtx) Setup(d *comp.Decl) error {
	o.Comp.Setup(d)
	for _, wrt := range wrts {
		d.DeclareCSR("areas", wrt, diag, diag)
		d.DeclareCSR("total_volume", wrt, zeros, diag)
	}
	return nil
}

// ComputePartials sets compressed-row matrices
func (o *Spmtx) ComputePartials(in *vec.Vector, p *comp.Partials) (err error) {
	l, w := in.Get("lengths"), in.Get("widths")
	set := func(of, wrt string, m int, rows []int, vals []float64) {
		if err != nil {
			return
		}
		var a *jac.CSR
		if a, err = jac.NewCSR(m, 4, rows, diag, vals); err == nil {
			p.SetCSR(of, wrt, a)
		}
	}
	set("areas", "lengths", 4, diag, w)
	set("areas", "widths", 4, diag, l)
	set("total_volume", "lengths", 1, zeros, o.scaled(w))
	set("total_volume", "widths", 1, zeros, o.scaled(l))
	return
}

// scaled returns thickness⋅v
func (o *Comp) scaled(v []float64) (res []float64) {
	res = make([]float64, len(v))
	for i, x := range v {
		res[i] = o.Thickness * x
	}
	return
}
