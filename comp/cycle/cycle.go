// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package cycle implements the components of a parametric cycle: a first component generating
// vectors rotated by an angle θ, middle components rotating them again and a last component
// computing half of the squared norm. θ is fed back from the last to the first component:
//
//	first:  y_j = ψ⋅A(θ)⋅1   θ_out = (θ + ψ) / 2
//	middle: y_j = A(θ)⋅x_j   θ_out = θ
//	last:   x_norm2 = ½ Σ x_j⋅x_j   θ_out = θ / 2
//
// A(θ) is block diagonal with 2×2 rotations; an odd size ends with 1. The converged cycle gives
// θ = ψ/3 at the last component and x_norm2 = ½ψ²N, where N is the total size of all x_j
package cycle

import (
	"math"
	"math/cmplx"

	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/jac"
	"github.com/cpmech/gomdao/vec"
	"github.com/cpmech/gosl/io"
)

// Params holds the parameters shared by all cycle components
type Params struct {
	NumVar        int    `json:"num_var"`        // number of x_j (or y_j) variables
	VarShape      []int  `json:"var_shape"`      // shape of each variable
	PartialType   string `json:"partial_type"`   // storage of ∂y/∂x: "array", "sparse" or "csr"
	PartialMethod string `json:"partial_method"` // "exact", "fd" or "cs"

	// names of variables; x and y are prefixes: variables are named prefix_j
	XName    string `json:"x_name"`
	YName    string `json:"y_name"`
	ThetaIn  string `json:"theta_in"`
	ThetaOut string `json:"theta_out"`

	// derived
	size   int      // size of each variable
	xs, ys []string // names of x_j and y_j
	rows   []int    // sparsity of A(θ)
	cols   []int    // sparsity of A(θ)
}

// First generates the vectors
type First struct{ Params }

// Middle rotates the vectors
type Middle struct{ Params }

// Last computes the squared norm
type Last struct{ Params }

// add components to factory
func init() {
	alloc := func(name string, fcn func(p Params) comp.Component) {
		comp.SetAllocator(name, func(prms map[string]interface{}) (comp.Component, error) {
			var p Params
			if err := inp.Decode(prms, &p, name); err != nil {
				return nil, err
			}
			return fcn(p), nil
		})
	}
	alloc("cycle.first", func(p Params) comp.Component { return &First{p} })
	alloc("cycle.middle", func(p Params) comp.Component { return &Middle{p} })
	alloc("cycle.last", func(p Params) comp.Component { return &Last{p} })
}

// SetDefault sets default values
func (o *Params) SetDefault() {
	if o.NumVar == 0 {
		o.NumVar = 1
	}
	if len(o.VarShape) == 0 {
		o.VarShape = []int{1}
	}
	if o.PartialType == "" {
		o.PartialType = "array"
	}
	if o.PartialMethod == "" {
		o.PartialMethod = "exact"
	}
	if o.XName == "" {
		o.XName = "x"
	}
	if o.YName == "" {
		o.YName = "y"
	}
	if o.ThetaIn == "" {
		o.ThetaIn = "theta"
	}
	if o.ThetaOut == "" {
		o.ThetaOut = "theta_out"
	}
}

// Setup declares the variables of the first component
func (o *First) Setup(d *comp.Decl) error {
	if err := o.init(); err != nil {
		return err
	}
	d.AddInput("psi", []float64{1})
	d.AddInput(o.ThetaIn, []float64{1})
	o.addVars(d, false)
	d.AddOutput(o.ThetaOut, []float64{1})
	d.DeclarePartials(o.ThetaOut, o.ThetaIn, nil, nil, 0.5)
	d.DeclarePartials(o.ThetaOut, "psi", nil, nil, 0.5)
	for _, y := range o.ys {
		d.DeclarePartials(y, o.ThetaIn, nil, nil)
		d.DeclarePartials(y, "psi", nil, nil)
	}
	o.approx(d)
	return nil
}

// Compute computes y_j = ψ⋅A(θ)⋅1 and θ_out
func (o *First) Compute(in, out *vec.Vector) error {
	psi, θ := in.Get("psi")[0], in.Get(o.ThetaIn)[0]
	ones := o.ones()
	for _, y := range o.ys {
		v := out.Get(y)
		rotate(v, ones, θ)
		for i := range v {
			v[i] *= psi
		}
	}
	out.Get(o.ThetaOut)[0] = (θ + psi) / 2
	return nil
}

// ComputePartials computes ∂y/∂θ = ψ⋅dA/dθ⋅1 and ∂y/∂ψ = A⋅1
func (o *First) ComputePartials(in *vec.Vector, p *comp.Partials) error {
	psi, θ := in.Get("psi")[0], in.Get(o.ThetaIn)[0]
	ones := o.ones()
	a := make([]float64, o.size)
	da := make([]float64, o.size)
	rotate(a, ones, θ)
	drotate(da, ones, θ)
	for i := range da {
		da[i] *= psi
	}
	for _, y := range o.ys {
		p.SetDense(y, o.ThetaIn, column(da))
		p.SetDense(y, "psi", column(a))
	}
	return nil
}

// ComputeComplex computes the outputs with complex values
func (o *First) ComputeComplex(in, out comp.CVars) error {
	psi, θ := in["psi"][0], in[o.ThetaIn][0]
	ones := make([]complex128, o.size)
	for i := range ones {
		ones[i] = 1
	}
	for _, y := range o.ys {
		v := out[y]
		crotate(v, ones, θ)
		for i := range v {
			v[i] *= psi
		}
	}
	out[o.ThetaOut][0] = (θ + psi) / 2
	return nil
}

// Setup declares the variables of a middle component
func (o *Middle) Setup(d *comp.Decl) error {
	if err := o.init(); err != nil {
		return err
	}
	d.AddInput(o.ThetaIn, []float64{1})
	o.addVars(d, true)
	d.AddOutput(o.ThetaOut, []float64{1})
	d.DeclarePartials(o.ThetaOut, o.ThetaIn, nil, nil, 1)
	for j, y := range o.ys {
		o.declareRotation(d, y, o.xs[j])
		d.DeclarePartials(y, o.ThetaIn, nil, nil)
	}
	o.approx(d)
	return nil
}

// Compute computes y_j = A(θ)⋅x_j and θ_out = θ
func (o *Middle) Compute(in, out *vec.Vector) error {
	θ := in.Get(o.ThetaIn)[0]
	for j, y := range o.ys {
		rotate(out.Get(y), in.Get(o.xs[j]), θ)
	}
	out.Get(o.ThetaOut)[0] = θ
	return nil
}

// ComputePartials computes ∂y_j/∂x_j = A(θ) and ∂y_j/∂θ = dA/dθ⋅x_j
func (o *Middle) ComputePartials(in *vec.Vector, p *comp.Partials) (err error) {
	θ := in.Get(o.ThetaIn)[0]
	vals := rotation(θ, o.size)
	da := make([]float64, o.size)
	for j, y := range o.ys {
		if err = o.setRotation(p, y, o.xs[j], vals); err != nil {
			return
		}
		drotate(da, in.Get(o.xs[j]), θ)
		p.SetDense(y, o.ThetaIn, column(da))
	}
	return
}

// ComputeComplex computes the outputs with complex values
func (o *Middle) ComputeComplex(in, out comp.CVars) error {
	θ := in[o.ThetaIn][0]
	for j, y := range o.ys {
		crotate(out[y], in[o.xs[j]], θ)
	}
	out[o.ThetaOut][0] = θ
	return nil
}

// Setup declares the variables of the last component
func (o *Last) Setup(d *comp.Decl) error {
	if err := o.init(); err != nil {
		return err
	}
	d.AddInput(o.ThetaIn, []float64{1})
	for _, x := range o.xs {
		d.AddInput(x, nil, o.VarShape...)
	}
	d.AddOutput("x_norm2", []float64{1})
	d.AddOutput(o.ThetaOut, []float64{1})
	d.DeclarePartials(o.ThetaOut, o.ThetaIn, nil, nil, 0.5)
	for _, x := range o.xs {
		d.DeclarePartials("x_norm2", x, nil, nil)
	}
	o.approx(d)
	return nil
}

// Compute computes x_norm2 = ½ Σ x_j⋅x_j and θ_out = θ/2
func (o *Last) Compute(in, out *vec.Vector) error {
	var sum float64
	for _, x := range o.xs {
		for _, v := range in.Get(x) {
			sum += v * v
		}
	}
	out.Get("x_norm2")[0] = sum / 2
	out.Get(o.ThetaOut)[0] = in.Get(o.ThetaIn)[0] / 2
	return nil
}

// ComputePartials computes ∂x_norm2/∂x_j = x_jᵀ
func (o *Last) ComputePartials(in *vec.Vector, p *comp.Partials) error {
	for _, x := range o.xs {
		p.SetDense("x_norm2", x, [][]float64{in.Get(x)})
	}
	return nil
}

// ComputeComplex computes the outputs with complex values
func (o *Last) ComputeComplex(in, out comp.CVars) error {
	var sum complex128
	for _, x := range o.xs {
		for _, v := range in[x] {
			sum += v * v
		}
	}
	out["x_norm2"][0] = sum / 2
	out[o.ThetaOut][0] = in[o.ThetaIn][0] / 2
	return nil
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// init sets defaults and derived values
func (o *Params) init() error {
	o.SetDefault()
	switch o.PartialType {
	case "array", "sparse", "csr":
	default:
		return errs.New(errs.ConfigurationError, "cycle: partial_type %q is not available. Use array, sparse or csr", o.PartialType)
	}
	switch o.PartialMethod {
	case "exact", "fd", "cs":
	default:
		return errs.New(errs.ConfigurationError, "cycle: partial_method %q is not available. Use exact, fd or cs", o.PartialMethod)
	}
	o.size = 1
	for _, n := range o.VarShape {
		if n < 1 {
			return errs.New(errs.ShapeMismatch, "cycle: invalid var_shape %v", o.VarShape)
		}
		o.size *= n
	}
	o.xs = make([]string, o.NumVar)
	o.ys = make([]string, o.NumVar)
	for j := 0; j < o.NumVar; j++ {
		o.xs[j] = io.Sf("%s_%d", o.XName, j)
		o.ys[j] = io.Sf("%s_%d", o.YName, j)
	}
	o.rows, o.cols = o.rows[:0], o.cols[:0]
	for i := 0; i+1 < o.size; i += 2 {
		o.rows = append(o.rows, i, i, i+1, i+1)
		o.cols = append(o.cols, i, i+1, i, i+1)
	}
	if o.size%2 == 1 {
		o.rows = append(o.rows, o.size-1)
		o.cols = append(o.cols, o.size-1)
	}
	return nil
}

// addVars adds x_j (if withX) and y_j
func (o *Params) addVars(d *comp.Decl, withX bool) {
	for j := 0; j < o.NumVar; j++ {
		if withX {
			d.AddInput(o.xs[j], nil, o.VarShape...)
		}
		d.AddOutput(o.ys[j], nil, o.VarShape...)
	}
}

// approx selects the approximation of partials
func (o *Params) approx(d *comp.Decl) {
	if o.PartialMethod != "exact" {
		d.ApproxPartials(o.PartialMethod, 0)
	}
}

// declareRotation declares ∂y/∂x according to the partial type
func (o *Params) declareRotation(d *comp.Decl, y, x string) {
	switch o.PartialType {
	case "sparse":
		d.DeclarePartials(y, x, o.rows, o.cols)
	case "csr":
		d.DeclareCSR(y, x, o.rows, o.cols)
	default:
		d.DeclarePartials(y, x, nil, nil)
	}
}

// setRotation sets ∂y/∂x = A(θ) given the values of A at the sparsity pattern
func (o *Params) setRotation(p *comp.Partials, y, x string, vals []float64) error {
	switch o.PartialType {
	case "sparse":
		p.SetTriplet(y, x, vals, o.rows, o.cols)
	case "csr":
		a, err := jac.NewCSR(o.size, o.size, o.rows, o.cols, vals)
		if err != nil {
			return err
		}
		p.SetCSR(y, x, a)
	default:
		p.SetTriplet(y, x, vals, o.rows, o.cols)
	}
	return nil
}

// ones returns a vector of ones
func (o *Params) ones() []float64 {
	v := make([]float64, o.size)
	for i := range v {
		v[i] = 1
	}
	return v
}

// rotation returns the values of A(θ) at the sparsity pattern
func rotation(θ float64, n int) (vals []float64) {
	c, s := math.Cos(θ), math.Sin(θ)
	for i := 0; i+1 < n; i += 2 {
		vals = append(vals, c, -s, s, c)
	}
	if n%2 == 1 {
		vals = append(vals, 1)
	}
	return
}

// rotate computes y = A(θ)⋅x
func rotate(y, x []float64, θ float64) {
	c, s := math.Cos(θ), math.Sin(θ)
	n := len(x)
	for i := 0; i+1 < n; i += 2 {
		y[i] = c*x[i] - s*x[i+1]
		y[i+1] = s*x[i] + c*x[i+1]
	}
	if n%2 == 1 {
		y[n-1] = x[n-1]
	}
}

// drotate computes y = dA/dθ⋅x
func drotate(y, x []float64, θ float64) {
	c, s := math.Cos(θ), math.Sin(θ)
	n := len(x)
	for i := 0; i+1 < n; i += 2 {
		y[i] = -s*x[i] - c*x[i+1]
		y[i+1] = c*x[i] - s*x[i+1]
	}
	if n%2 == 1 {
		y[n-1] = 0
	}
}

// crotate computes y = A(θ)⋅x with complex values
func crotate(y, x []complex128, θ complex128) {
	c, s := cmplx.Cos(θ), cmplx.Sin(θ)
	n := len(x)
	for i := 0; i+1 < n; i += 2 {
		y[i] = c*x[i] - s*x[i+1]
		y[i+1] = s*x[i] + c*x[i+1]
	}
	if n%2 == 1 {
		y[n-1] = x[n-1]
	}
}

// column returns v as a column matrix
func column(v []float64) (a [][]float64) {
	a = make([][]float64, len(v))
	for i, x := range v {
		a[i] = []float64{x}
	}
	return
}
