// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/vec"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// default steps
const (
	fdStep = 1e-6
	csStep = 1e-40
)

// approximator computes the partials of one component by finite differences or complex step
type approximator struct {
	l      *leaf
	method string  // "fd" or "cs"
	form   string  // "forward", "backward" or "central"
	step   float64 // perturbation

	// scratch
	in, out           *vec.Vector // copies of inputs and outputs; perturbed
	base, plus, minus *vec.Vector // function values: outputs (explicit) or residuals (implicit)
	wrts              []string    // perturbed variables in declaration order
	keys              map[string][]comp.Key
	vals              map[comp.Key][][]float64
}

// newApproximator returns a new approximator for component l using its declared method
func newApproximator(l *leaf) *approximator {
	return newApproximatorWith(l, l.decl.Method, l.decl.Form, l.decl.Step)
}

// newApproximatorWith returns a new approximator for component l
func newApproximatorWith(l *leaf, method, form string, step float64) (o *approximator) {
	o = &approximator{l: l, method: method, form: form, step: step}
	if o.form == "" {
		o.form = "forward"
	}
	if o.step <= 0 {
		o.step = fdStep
		if o.method == "cs" {
			o.step = csStep
		}
	}
	o.in = l.in.Clone()
	o.out = l.out.Clone()
	o.base = l.res.Clone()
	o.plus = l.res.Clone()
	o.minus = l.res.Clone()
	o.keys = make(map[string][]comp.Key)
	o.vals = make(map[comp.Key][][]float64)
	for _, key := range l.partials.Keys {
		if _, ok := o.keys[key.Wrt]; !ok {
			o.wrts = append(o.wrts, key.Wrt)
		}
		o.keys[key.Wrt] = append(o.keys[key.Wrt], key)
		o.vals[key] = utl.Alloc(l.partials.Sizes[key.Of], l.partials.Sizes[key.Wrt])
	}
	return
}

// run computes all declared partials and stores them in p
func (o *approximator) run(p *comp.Partials) (err error) {
	if err = o.compute(); err != nil {
		return
	}
	for _, key := range p.Keys {
		d := o.vals[key]
		p.SetFunc(key.Of, key.Wrt, func(i, j int) float64 { return d[i][j] })
	}
	return
}

// compute computes all declared partials at the current point and keeps them in vals
func (o *approximator) compute() error {
	copy(o.in.Data, o.l.in.Data)
	copy(o.out.Data, o.l.out.Data)
	if o.method == "cs" {
		return o.complexStep()
	}
	return o.finiteDifference()
}

// finiteDifference computes the partials by finite differences
func (o *approximator) finiteDifference() (err error) {
	if o.form != "central" {
		if err = o.eval(o.base); err != nil {
			return
		}
	}
	h := o.step
	for _, wrt := range o.wrts {
		x := o.perturbed(wrt)
		for j := range x {
			x0 := x[j]
			switch o.form {
			case "backward":
				x[j] = x0 - h
				err = o.eval(o.minus)
			case "central":
				x[j] = x0 + h
				if err = o.eval(o.plus); err == nil {
					x[j] = x0 - h
					err = o.eval(o.minus)
				}
			default:
				x[j] = x0 + h
				err = o.eval(o.plus)
			}
			x[j] = x0
			if err != nil {
				return
			}
			for _, key := range o.keys[wrt] {
				d := o.vals[key]
				base, plus, minus := o.base.Get(key.Of), o.plus.Get(key.Of), o.minus.Get(key.Of)
				for i := range d {
					switch o.form {
					case "backward":
						d[i][j] = (base[i] - minus[i]) / h
					case "central":
						d[i][j] = (plus[i] - minus[i]) / (2 * h)
					default:
						d[i][j] = (plus[i] - base[i]) / h
					}
				}
			}
		}
	}
	return
}

// complexStep computes the partials of an explicit component by complex step: ∂f/∂x ≈ Im(f(x+ih))/h
func (o *approximator) complexStep() (err error) {
	cc, ok := o.l.comp.(comp.ComplexComputer)
	if !ok {
		return errs.New(errs.ConfigurationError, "complex step of %s requires ComputeComplex", o.l.path)
	}
	cin, cout := make(comp.CVars), make(comp.CVars)
	for _, v := range o.l.ins {
		z := make([]complex128, v.Size)
		for i, x := range o.in.Get(v.Local) {
			z[i] = complex(x, 0)
		}
		cin[v.Local] = z
	}
	for _, v := range o.l.outs {
		cout[v.Local] = make([]complex128, v.Size)
	}
	h := o.step
	for _, wrt := range o.wrts {
		z, ok := cin[wrt]
		if !ok {
			return errs.New(errs.ConfigurationError, "complex step of %s cannot perturb output %q", o.l.path, wrt)
		}
		for j := range z {
			z0 := z[j]
			z[j] = complex(real(z0), h)
			err = cc.ComputeComplex(cin, cout)
			z[j] = z0
			if err != nil {
				return
			}
			for _, key := range o.keys[wrt] {
				d := o.vals[key]
				f := cout[key.Of]
				for i := range d {
					d[i][j] = imag(f[i]) / h
				}
			}
		}
	}
	return
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// perturbed returns the view of the scratch variable named wrt
func (o *approximator) perturbed(wrt string) la.Vector {
	if o.in.Has(wrt) {
		return o.in.Get(wrt)
	}
	return o.out.Get(wrt)
}

// eval computes outputs (explicit) or residuals (implicit) at the scratch point
func (o *approximator) eval(f *vec.Vector) error {
	if o.l.explicit {
		copy(f.Data, o.out.Data)
		return o.l.comp.(comp.Explicit).Compute(o.in, f)
	}
	return o.l.comp.(comp.Implicit).ApplyNonlinear(o.in, o.out, f)
}
