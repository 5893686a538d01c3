// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cycle

import (
	"math"
	"testing"

	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/mdao"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// chain returns a problem with first, one middle and last connected explicitly
func chain(tst *testing.T, p Params) *mdao.Problem {
	model := mdao.NewGroup()
	model.AddSubsystem("first", &First{p})
	model.AddSubsystem("middle", &Middle{p})
	model.AddSubsystem("last", &Last{p})
	for j := 0; j < p.NumVar; j++ {
		model.Connect(io.Sf("first.y_%d", j), io.Sf("middle.x_%d", j))
		model.Connect(io.Sf("middle.y_%d", j), io.Sf("last.x_%d", j))
	}
	model.Connect("first.theta_out", "middle.theta")
	model.Connect("middle.theta_out", "last.theta")
	model.Connect("last.theta_out", "first.theta")
	var err error
	if model.NlSolver, err = mdao.NewNonlinearSolver("newton", map[string]interface{}{"maxiter": 20, "atol": 1e-12, "rtol": 1e-12}); err != nil {
		tst.Errorf("cannot allocate solver: %v\n", err)
		return nil
	}
	if model.LinSolver, err = mdao.NewLinearSolver("direct", map[string]interface{}{"assemble_jac": true}); err != nil {
		tst.Errorf("cannot allocate solver: %v\n", err)
		return nil
	}
	prob := mdao.NewProblem(model)
	prob.JacType = "dense"
	if err = prob.Setup(); err != nil {
		tst.Errorf("setup failed: %v\n", err)
		return nil
	}
	return prob
}

func Test_cycle01(tst *testing.T) {

	chk.PrintTitle("cycle01. converged values and totals")

	psi := 1.5
	for _, ptype := range []string{"array", "sparse", "csr"} {
		for _, method := range []string{"exact", "fd", "cs"} {
			io.Pf("\n%s partials computed by %s\n", ptype, method)
			prob := chain(tst, Params{NumVar: 2, VarShape: []int{3}, PartialType: ptype, PartialMethod: method})
			if prob == nil {
				return
			}
			prob.SetVal("first.psi", []float64{psi})
			if err := prob.RunModel(); err != nil {
				tst.Errorf("RunModel failed: %v\n", err)
				return
			}
			chk.Float64(tst, "θ", 1e-10, prob.Get("last.theta_out")[0], psi/3)
			chk.Float64(tst, "x_norm2", 1e-10, prob.Get("last.x_norm2")[0], 0.5*psi*psi*6)

			tol := 1e-9
			if method == "fd" {
				tol = 1e-5
			}
			for _, mode := range []mdao.Mode{mdao.Fwd, mdao.Rev} {
				tot, err := prob.ComputeTotals([]string{"last.x_norm2", "last.theta_out"}, []string{"first.psi"}, mode)
				if err != nil {
					tst.Errorf("ComputeTotals failed: %v\n", err)
					return
				}
				chk.Deep2(tst, "dx_norm2/dψ", tol, tot[mdao.TotalKey{Of: "last.x_norm2", Wrt: "first.psi"}], [][]float64{{psi * 6}})
				chk.Deep2(tst, "dθ/dψ", tol, tot[mdao.TotalKey{Of: "last.theta_out", Wrt: "first.psi"}], [][]float64{{1.0 / 3.0}})
			}
		}
	}
}

func Test_cycle02(tst *testing.T) {

	chk.PrintTitle("cycle02. exact partials against complex step")

	for _, ptype := range []string{"array", "sparse", "csr"} {
		prob := chain(tst, Params{NumVar: 3, VarShape: []int{2, 2}, PartialType: ptype})
		if prob == nil {
			return
		}
		prob.SetVal("first.psi", []float64{0.7})
		prob.RunModel()
		res, err := prob.CheckPartials("cs")
		if err != nil {
			tst.Errorf("CheckPartials failed: %v\n", err)
			return
		}
		if len(res) == 0 {
			tst.Errorf("checks expected\n")
			return
		}
		for _, r := range res {
			if r.AbsErr > 1e-12 {
				tst.Errorf("%s: (%s, %s) error %g is too large\n", r.Comp, r.Of, r.Wrt, r.AbsErr)
			}
		}
	}
}

func Test_cycle03(tst *testing.T) {

	chk.PrintTitle("cycle03. rotations and parameters")

	x := []float64{1, 2, 3}
	y := make([]float64, 3)
	θ := math.Pi / 2
	rotate(y, x, θ)
	chk.Array(tst, "A⋅x", 1e-15, y, []float64{-2, 1, 3})
	drotate(y, x, θ)
	chk.Array(tst, "dA⋅x", 1e-15, y, []float64{-1, -2, 0})
	chk.Array(tst, "A", 1e-15, rotation(0, 3), []float64{1, 0, 0, 1, 1})

	c, err := comp.New("cycle.middle", map[string]interface{}{"num_var": 2, "var_shape": []int{4}, "partial_type": "csr"})
	if err != nil {
		tst.Errorf("allocator failed: %v\n", err)
		return
	}
	m := c.(*Middle)
	d := comp.NewDecl("middle")
	if err = m.Setup(d); err != nil {
		tst.Errorf("setup failed: %v\n", err)
		return
	}
	chk.Int(tst, "inputs", len(d.Inputs), 3)
	chk.Int(tst, "outputs", len(d.Outputs), 3)
	chk.Ints(tst, "rows", m.rows, []int{0, 0, 1, 1, 2, 2, 3, 3})
	chk.Ints(tst, "cols", m.cols, []int{0, 1, 0, 1, 2, 3, 2, 3})

	m.PartialType = "banded"
	if err = m.Setup(comp.NewDecl("middle")); err == nil {
		tst.Errorf("unknown partial type must fail\n")
	}
}
