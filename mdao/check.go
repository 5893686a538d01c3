// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"math"

	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/comp/indep"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/jac"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
)

// Check holds the comparison of computed and approximated derivatives
type Check struct {
	Comp    string      // absolute name of component; empty for totals
	Of, Wrt string      // names of variables
	Calc    [][]float64 // computed values
	Approx  [][]float64 // approximated values
	AbsErr  float64     // Frobenius norm of difference
	RelErr  float64     // AbsErr divided by the Frobenius norm of Approx; AbsErr if Approx is zero
}

// CheckPartials compares the partials computed by components with their approximation. method is
// "fd", "fd-central" or "cs". Components whose partials are already approximated are skipped
func (o *Problem) CheckPartials(method string) (res []*Check, err error) {
	if err = o.checkSetup(); err != nil {
		return
	}
	defer errs.Recover(&err, errs.ConfigurationError)
	meth, form, err := checkMethod(method)
	if err != nil {
		return
	}
	for _, l := range o.Leaves {
		if l.decl.Method != "" || l.name == autoIvcName {
			continue
		}
		if meth == "cs" {
			if _, ok := l.comp.(comp.ComplexComputer); !ok || !l.explicit {
				continue
			}
		}
		if err = l.linearize(); err != nil {
			return
		}
		a := newApproximatorWith(l, meth, form, 0)
		if err = a.compute(); err != nil {
			return
		}
		for _, key := range l.partials.Keys {
			c := &Check{Comp: l.path, Of: key.Of, Wrt: key.Wrt, Approx: a.vals[key]}
			c.Calc = blockDense(l.partials.Blocks[key])
			c.errors()
			res = append(res, c)
		}
	}
	o.Jac.Update()
	return
}

// CheckTotals compares the total derivatives with finite differences obtained by running the
// model. method is "fd" or "fd-central". Variables wrt must be fed by independent variables
func (o *Problem) CheckTotals(of, wrt []string, method string) (res []*Check, err error) {
	tot, err := o.ComputeTotals(of, wrt, Auto)
	if err != nil {
		return
	}
	defer errs.Recover(&err, errs.ConfigurationError)
	meth, form, err := checkMethod(method)
	if err != nil {
		return
	}
	if meth != "fd" {
		return nil, errs.New(errs.ConfigurationError, "method %q is not available for total derivatives. Use \"fd\" or \"fd-central\"", method)
	}
	ofs, _, err := o.resolve(of)
	if err != nil {
		return
	}
	wrts, _, err := o.resolve(wrt)
	if err != nil {
		return
	}
	for _, b := range wrts {
		if !o.isIndep(b.Name) {
			return nil, errs.New(errs.ConfigurationError, "cannot perturb %s: it is not an independent variable", b.Name)
		}
	}
	approx := make(Totals)
	for i, a := range ofs {
		for j, b := range wrts {
			approx[TotalKey{of[i], wrt[j]}] = utl.Alloc(a.Size, b.Size)
		}
	}
	eval := func(j, jj int, x float64) (vals [][]float64, err error) {
		o.Out.Data[wrts[j].Offset+jj] = x
		if err = o.RunModel(); err != nil {
			return
		}
		for _, a := range ofs {
			vals = append(vals, o.Out.Data[a.Offset:a.Offset+a.Size].GetCopy())
		}
		return
	}
	h := fdStep
	for j, b := range wrts {
		for jj := 0; jj < b.Size; jj++ {
			x0 := o.Out.Data[b.Offset+jj]
			var plus, minus [][]float64
			if plus, err = eval(j, jj, x0+h); err != nil {
				return
			}
			den := h
			if form == "central" {
				if minus, err = eval(j, jj, x0-h); err != nil {
					return
				}
				den = 2 * h
			} else {
				if minus, err = eval(j, jj, x0); err != nil {
					return
				}
			}
			o.Out.Data[b.Offset+jj] = x0
			for i := range ofs {
				d := approx[TotalKey{of[i], wrt[j]}]
				for ii := range d {
					d[ii][jj] = (plus[i][ii] - minus[i][ii]) / den
				}
			}
		}
	}
	if err = o.RunModel(); err != nil {
		return
	}
	for i := range of {
		for j := range wrt {
			key := TotalKey{of[i], wrt[j]}
			c := &Check{Of: key.Of, Wrt: key.Wrt, Calc: tot[key], Approx: approx[key]}
			c.errors()
			res = append(res, c)
		}
	}
	return
}

// Ok tells whether the absolute or the relative error is within tol
func (o *Check) Ok(tol float64) bool {
	return o.AbsErr <= tol || o.RelErr <= tol
}

// FailedChecks returns the number of checks that are not Ok
func FailedChecks(res []*Check, tol float64) (n int) {
	for _, c := range res {
		if !c.Ok(tol) {
			n++
		}
	}
	return
}

// PrintChecks prints the results of CheckPartials or CheckTotals
func PrintChecks(res []*Check, tol float64) {
	io.Pf("%-30s %-20s %-20s %13s %13s\n", "component", "of", "wrt", "abs error", "rel error")
	for _, c := range res {
		if !c.Ok(tol) {
			io.PfRed("%-30s %-20s %-20s %13.6e %13.6e\n", c.Comp, c.Of, c.Wrt, c.AbsErr, c.RelErr)
			continue
		}
		io.Pf("%-30s %-20s %-20s %13.6e %13.6e\n", c.Comp, c.Of, c.Wrt, c.AbsErr, c.RelErr)
	}
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// errors computes the absolute and relative errors
func (o *Check) errors() {
	var sum, ref float64
	for i, row := range o.Approx {
		for j, v := range row {
			d := o.Calc[i][j] - v
			sum += d * d
			ref += v * v
		}
	}
	o.AbsErr = math.Sqrt(sum)
	o.RelErr = o.AbsErr
	if ref > 0 {
		o.RelErr = o.AbsErr / math.Sqrt(ref)
	}
}

// isIndep tells whether output name belongs to an independent variable component
func (o *Problem) isIndep(name string) bool {
	for _, l := range o.Leaves {
		if _, ok := l.comp.(*indep.Comp); !ok {
			continue
		}
		for _, v := range l.outs {
			if v.Name == name {
				return true
			}
		}
	}
	return false
}

// checkMethod splits method into approximation method and form
func checkMethod(method string) (meth, form string, err error) {
	switch method {
	case "fd":
		return "fd", "forward", nil
	case "fd-central":
		return "fd", "central", nil
	case "cs":
		return "cs", "", nil
	}
	return "", "", errs.New(errs.ConfigurationError, "check method %q is not available. Use \"fd\", \"fd-central\" or \"cs\"", method)
}

// blockDense returns the values of a block as a dense array
func blockDense(b jac.Block) (a [][]float64) {
	m, n := b.Shape()
	a = utl.Alloc(m, n)
	b.Each(func(i, j int, x float64) { a[i][j] += x })
	return
}
