// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tests

import (
	"testing"

	"github.com/cpmech/gomdao/mdao"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Jac helps on checking the global Jacobian using finite differences of residuals
type Jac struct {

	// input (must)
	Tst    *testing.T // testing structure
	Tol    float64    // tolerance to compare entries
	Step   float64    // step for finite differences
	Verb   bool       // verbose: show results
	Ni, Nj int        // number of rows and columns to be tested; -1 means all

	// derived
	outBkp []float64 // backup of outputs
	resP   []float64 // residuals at x + h
	resM   []float64 // residuals at x - h
}

// Check linearizes p and compares ∂R/∂y with central differences of the residuals. The outputs
// are restored on exit
func (o *Jac) Check(p *mdao.Problem) {
	if err := p.RunLinearize(); err != nil {
		o.Tst.Errorf("Jac: RunLinearize failed:\n%v\n", err)
		return
	}
	J := p.Jacobian()

	// backup and restore upon exit
	o.aux_backup(p)
	defer func() { o.aux_restore(p) }()

	if o.Step < 1e-14 {
		o.Step = 1e-6
	}
	ni, nj := J.M, J.N
	if o.Ni >= 0 && o.Ni < ni {
		ni = o.Ni
	}
	if o.Nj >= 0 && o.Nj < nj {
		nj = o.Nj
	}
	y := p.Out.Data
	for j := 0; j < nj; j++ {
		y[j] = o.outBkp[j] + o.Step
		o.residuals(p, o.resP)
		y[j] = o.outBkp[j] - o.Step
		o.residuals(p, o.resM)
		y[j] = o.outBkp[j]
		for i := 0; i < ni; i++ {
			dnum := (o.resP[i] - o.resM[i]) / (2 * o.Step)
			chk.AnaNum(o.Tst, io.Sf("J%4d%4d", i, j), o.Tol, J.Get(i, j), dnum, o.Verb)
		}
	}
}

// residuals computes the residuals at the current outputs
func (o *Jac) residuals(p *mdao.Problem, res []float64) {
	if err := p.RunApply(); err != nil {
		chk.Panic("Jac: cannot compute residuals:\n%v", err)
	}
	copy(res, p.Res.Data)
}

// aux_backup saves the outputs
func (o *Jac) aux_backup(p *mdao.Problem) {
	n := len(p.Out.Data)
	o.outBkp = make([]float64, n)
	o.resP = make([]float64, n)
	o.resM = make([]float64, n)
	copy(o.outBkp, p.Out.Data)
}

// aux_restore restores the outputs and the residuals
func (o *Jac) aux_restore(p *mdao.Problem) {
	copy(p.Out.Data, o.outBkp)
	p.RunApply()
}
