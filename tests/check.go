// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package tests implements structures and functions to test models and solvers
package tests

import (
	"math"
	"testing"

	"github.com/cpmech/gomdao/mdao"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// ValuesTol is the tolerance used when comparing converged values
const ValuesTol = 1e-8

// CheckInstance runs the model and compares values and forward and reverse totals with the known
// solution. errBound is the tolerance of totals
func CheckInstance(tst *testing.T, o *Instance, errBound float64) {

	// run
	if err := o.Run(); err != nil {
		tst.Errorf("%s: RunModel failed:\n%v\n", o.Case.Name, err)
		return
	}
	if info := o.Problem.Model.NlInfo; info != nil && info.Status != mdao.Converged {
		tst.Errorf("%s: nonlinear solver did not converge: %s after %d iterations\n", o.Case.Name, info.Status, info.Iterations)
		return
	}

	// values
	for _, name := range o.Of {
		val, err := o.Problem.GetVal(name)
		if err != nil {
			tst.Errorf("%s: %v\n", o.Case.Name, err)
			return
		}
		chk.Array(tst, name, ValuesTol, val, o.ExpectedValues[name])
	}

	// totals
	for _, mode := range []mdao.Mode{mdao.Fwd, mdao.Rev} {
		if chk.Verbose {
			io.Pfgreen(". . . checking %s totals . . .\n", mode)
		}
		tot, err := o.ComputeTotals(mode)
		if err != nil {
			tst.Errorf("%s: ComputeTotals(%s) failed:\n%v\n", o.Case.Name, mode, err)
			return
		}
		for key, correct := range o.ExpectedTotals {
			chk.Deep2(tst, io.Sf("%s d%s/d%s", mode, key.Of, key.Wrt), errBound, tot[key], correct)
		}
	}
}

// ValuesErr returns the largest difference between converged and known values
func (o *Instance) ValuesErr() (e float64) {
	for name, correct := range o.ExpectedValues {
		e = math.Max(e, maxDiff(o.Problem.Get(name), correct))
	}
	return
}

// TotalsErr returns the largest difference between tot and the known totals. Missing blocks give
// +Inf
func (o *Instance) TotalsErr(tot mdao.Totals) (e float64) {
	for key, correct := range o.ExpectedTotals {
		if len(tot[key]) != len(correct) {
			return math.Inf(1)
		}
		for i, row := range correct {
			e = math.Max(e, maxDiff(tot[key][i], row))
		}
	}
	return
}

// maxDiff returns max |a[i] - b[i]|; mismatched lengths give +Inf
func maxDiff(a, b []float64) (res float64) {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	for i := range a {
		res = math.Max(res, math.Abs(a[i]-b[i]))
	}
	return
}
