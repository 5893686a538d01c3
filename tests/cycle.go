// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tests

import (
	"github.com/cpmech/gomdao/comp/cycle"
	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/mdao"
	"github.com/cpmech/gosl/io"
)

// Psi is the value of ψ set in all cycle problems
var Psi = 1.2

// Instance holds a cycle problem and its known solution
type Instance struct {
	Case    *inp.CaseData // parameters
	Problem *mdao.Problem // problem ready to run

	// names of responses (of) and design variables (wrt)
	Of, Wrt []string

	// known solution
	ExpectedValues map[string][]float64 // converged values by name
	ExpectedTotals mdao.Totals          // totals d(of)/d(wrt)
}

// BuildCycle builds and sets up the cycle problem described by c
func BuildCycle(c *inp.CaseData) (o *Instance, err error) {
	if err = c.PostProcess(); err != nil {
		return
	}
	o = &Instance{Case: c}

	// components
	n := c.NumComp
	prms := cycle.Params{
		NumVar:        c.NumVar,
		VarShape:      c.VarShape,
		PartialType:   c.PartialType,
		PartialMethod: c.PartialMethod,
	}
	model := mdao.NewGroup()
	implicit := c.ConnType == "implicit"
	for k := 0; k < n; k++ {
		p := prms
		if implicit {
			p.XName, p.YName = io.Sf("x%d", k), io.Sf("x%d", k+1)
			p.ThetaIn, p.ThetaOut = io.Sf("theta%d", k), io.Sf("theta%d", k+1)
			if k == 0 {
				p.ThetaIn = io.Sf("theta%d", n)
			}
		}
		var promotes []string
		if implicit {
			promotes = []string{"*"}
		}
		switch k {
		case 0:
			model.AddSubsystem("first", &cycle.First{Params: p}, promotes...)
		case n - 1:
			model.AddSubsystem("last", &cycle.Last{Params: p}, promotes...)
		default:
			model.AddSubsystem(middle(k), &cycle.Middle{Params: p}, promotes...)
		}
	}

	// connections
	psi, norm2, theta := "psi", "x_norm2", io.Sf("theta%d", n)
	if !implicit {
		psi, norm2, theta = "first.psi", "last.x_norm2", "last.theta_out"
		for k := 0; k < n-1; k++ {
			src, tgt := middle(k), middle(k+1)
			if k == 0 {
				src = "first"
			}
			if k+1 == n-1 {
				tgt = "last"
			}
			for j := 0; j < c.NumVar; j++ {
				model.Connect(io.Sf("%s.y_%d", src, j), io.Sf("%s.x_%d", tgt, j))
			}
			model.Connect(src+".theta_out", tgt+".theta")
		}
		model.Connect("last.theta_out", "first.theta")
	}

	// solvers
	if model.NlSolver, err = mdao.NewNonlinearSolver(c.Nonlinear, c.NonlinearOpts); err != nil {
		return nil, err
	}
	lopts := make(map[string]interface{}, len(c.LinearOpts)+1)
	for key, val := range c.LinearOpts {
		lopts[key] = val
	}
	if _, ok := lopts["assemble_jac"]; !ok && c.Linear != "runonce" {
		lopts["assemble_jac"] = c.Assembled
	}
	if model.LinSolver, err = mdao.NewLinearSolver(c.Linear, lopts); err != nil {
		return nil, err
	}

	// problem
	o.Problem = mdao.NewProblem(model)
	o.Problem.JacType = c.JacType
	if err = o.Problem.Setup(); err != nil {
		return nil, err
	}
	if err = o.Problem.SetVal(psi, []float64{Psi}); err != nil {
		return nil, err
	}

	// known solution
	size := 1
	for _, m := range c.VarShape {
		size *= m
	}
	ntot := float64(c.NumVar * size)
	o.Of, o.Wrt = []string{norm2, theta}, []string{psi}
	o.ExpectedValues = map[string][]float64{
		norm2: {0.5 * Psi * Psi * ntot},
		theta: {Psi / 3},
	}
	o.ExpectedTotals = mdao.Totals{
		{Of: norm2, Wrt: psi}: {{Psi * ntot}},
		{Of: theta, Wrt: psi}: {{1.0 / 3.0}},
	}
	return
}

// Run runs the model
func (o *Instance) Run() error {
	return o.Problem.RunModel()
}

// ComputeTotals computes the totals of responses with respect to ψ
func (o *Instance) ComputeTotals(mode mdao.Mode) (mdao.Totals, error) {
	return o.Problem.ComputeTotals(o.Of, o.Wrt, mode)
}

// middle returns the name of middle component k
func middle(k int) string {
	return io.Sf("middle_%d", k)
}
