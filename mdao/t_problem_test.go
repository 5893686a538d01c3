// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"errors"
	"testing"

	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/comp/linsys"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/vec"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// linsysProblem returns a problem with A⋅y = x where A = [[3,4],[2,3]] and x = [1,1]
func linsysProblem(tst *testing.T, jacType, solver string) *Problem {
	model := NewGroup().AddSubsystem("lin", linsys.New([][]float64{{3, 4}, {2, 3}}), "*")
	var err error
	opts := map[string]interface{}{"assemble_jac": true}
	if solver == "lbgs" || solver == "krylov" {
		opts["atol"] = 1e-14
		opts["rtol"] = 1e-14
	}
	if model.LinSolver, err = NewLinearSolver(solver, opts); err != nil {
		tst.Errorf("cannot allocate solver: %v\n", err)
		return nil
	}
	p := NewProblem(model)
	p.JacType = jacType
	if err = p.Setup(); err != nil {
		tst.Errorf("setup failed: %v\n", err)
		return nil
	}
	if err = p.SetVal("x", []float64{1, 1}); err != nil {
		tst.Errorf("SetVal failed: %v\n", err)
		return nil
	}
	return p
}

func Test_linsys01(tst *testing.T) {

	chk.PrintTitle("linsys01. linear solvers and Jacobian stores")

	for _, jacType := range []string{"dict", "coo", "csr", "dense"} {
		for _, solver := range []string{"direct", "lbgs", "krylov"} {
			io.Pf("\n%s with %s\n", solver, jacType)
			p := linsysProblem(tst, jacType, solver)
			if p == nil {
				return
			}
			if err := p.RunModel(); err != nil {
				tst.Errorf("RunModel failed: %v\n", err)
				return
			}
			chk.Array(tst, "y", 1e-14, p.Get("y"), []float64{-1, 1})
			if err := p.RunLinearize(); err != nil {
				tst.Errorf("RunLinearize failed: %v\n", err)
				return
			}

			// forward
			err := p.LinearContext(func(din, dout, dres *vec.Vector) error {
				dres.Set("y", []float64{2, 2})
				if _, e := p.RunSolveLinear(Fwd); e != nil {
					return e
				}
				chk.Array(tst, "fwd: dout", 1e-12, dout.Get("y"), []float64{-2, 2})
				return nil
			})
			if err != nil {
				tst.Errorf("fwd failed: %v\n", err)
				return
			}

			// reverse
			err = p.LinearContext(func(din, dout, dres *vec.Vector) error {
				dout.Set("y", []float64{2, 2})
				if _, e := p.RunSolveLinear(Rev); e != nil {
					return e
				}
				chk.Array(tst, "rev: dres", 1e-12, dres.Get("y"), []float64{2, -2})
				return nil
			})
			if err != nil {
				tst.Errorf("rev failed: %v\n", err)
				return
			}
			chk.Array(tst, "zeroed dres", 1e-17, p.Dres.Data, make([]float64, 4))
		}
	}
}

func Test_linsys02(tst *testing.T) {

	chk.PrintTitle("linsys02. totals in all modes")

	p := linsysProblem(tst, "csr", "direct")
	if p == nil {
		return
	}
	for _, mode := range []Mode{Fwd, Rev, Auto} {
		tot, err := p.ComputeTotals([]string{"y"}, []string{"x"}, mode)
		if err != nil {
			tst.Errorf("ComputeTotals failed: %v\n", err)
			return
		}
		chk.Deep2(tst, "dy/dx "+mode.String(), 1e-12, tot[TotalKey{"y", "x"}], [][]float64{{3, -4}, {-2, 3}})
	}

	// absolute names give the same results
	tot, err := p.ComputeTotals([]string{"lin.y"}, []string{"lin.x"}, Rev)
	if err != nil {
		tst.Errorf("ComputeTotals failed: %v\n", err)
		return
	}
	chk.Deep2(tst, "dy/dx absolute", 1e-12, tot[TotalKey{"lin.y", "lin.x"}], [][]float64{{3, -4}, {-2, 3}})

	// the global Jacobian
	J := p.Jacobian().GetDeep2()
	chk.Deep2(tst, "J", 1e-15, J, [][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{-1, 0, 3, 4},
		{0, -1, 2, 3},
	})
}

func Test_linsys03(tst *testing.T) {

	chk.PrintTitle("linsys03. adjoint identity")

	p := linsysProblem(tst, "coo", "lbgs")
	if p == nil {
		return
	}
	p.RunModel()
	p.RunLinearize()
	b := []float64{0, 0, 0.3, -1.2}
	c := []float64{0, 0, 2.5, 0.7}
	var u, v []float64
	p.LinearContext(func(din, dout, dres *vec.Vector) error {
		dres.SetData(b)
		p.RunSolveLinear(Fwd)
		u = dout.GetData()
		return nil
	})
	p.LinearContext(func(din, dout, dres *vec.Vector) error {
		dout.SetData(c)
		p.RunSolveLinear(Rev)
		v = dres.GetData()
		return nil
	})
	var cu, vb float64
	for i := range b {
		cu += c[i] * u[i]
		vb += v[i] * b[i]
	}
	chk.Float64(tst, "cᵀ⋅u = vᵀ⋅b", 1e-12, cu, vb)
}

func Test_linsys04(tst *testing.T) {

	chk.PrintTitle("linsys04. direct solver without assembled Jacobian")

	model := NewGroup().AddSubsystem("lin", linsys.New([][]float64{{3, 4}, {2, 3}}), "*")
	var err error
	if model.LinSolver, err = NewLinearSolver("direct", map[string]interface{}{"assemble_jac": false}); err != nil {
		tst.Errorf("cannot allocate solver: %v\n", err)
		return
	}
	p := NewProblem(model)
	if err = p.Setup(); err != nil {
		tst.Errorf("setup failed: %v\n", err)
		return
	}
	_, err = p.ComputeTotals([]string{"y"}, []string{"x"}, Fwd)
	if !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("ConfigurationError expected; got %v\n", err)
		return
	}
	io.Pforan("%v\n", err)
}

func Test_linsys05(tst *testing.T) {

	chk.PrintTitle("linsys05. Newton with direct solver")

	for _, jacType := range []string{"dense", "coo", "csr"} {
		model := NewGroup().AddSubsystem("lin", linsys.New([][]float64{{3, 4}, {2, 3}}), "*")
		var err error
		if model.NlSolver, err = NewNonlinearSolver("newton", map[string]interface{}{"solve_subsystems": false, "atol": 1e-12}); err != nil {
			tst.Errorf("cannot allocate nonlinear solver: %v\n", err)
			return
		}
		if model.LinSolver, err = NewLinearSolver("direct", nil); err != nil {
			tst.Errorf("cannot allocate linear solver: %v\n", err)
			return
		}
		p := NewProblem(model)
		p.JacType = jacType
		if err = p.Setup(); err != nil {
			tst.Errorf("setup failed: %v\n", err)
			return
		}
		p.SetVal("x", []float64{1, 1})
		if err = p.RunModel(); err != nil {
			tst.Errorf("RunModel failed: %v\n", err)
			return
		}
		io.Pf("%s: %s after %d iterations\n", jacType, model.NlInfo.Status, model.NlInfo.Iterations)
		if model.NlInfo.Status != Converged {
			tst.Errorf("Newton should converge\n")
			return
		}
		if model.NlInfo.Iterations > 2 {
			tst.Errorf("Newton should converge in one step on a linear system; iterations = %d\n", model.NlInfo.Iterations)
		}
		chk.Array(tst, "y", 1e-12, p.Get("y"), []float64{-1, 1})
		tot, err := p.ComputeTotals([]string{"y"}, []string{"x"}, Rev)
		if err != nil {
			tst.Errorf("ComputeTotals failed: %v\n", err)
			return
		}
		chk.Deep2(tst, "dy/dx", 1e-12, tot[TotalKey{"y", "x"}], [][]float64{{3, -4}, {-2, 3}})
	}
}

// square computes b = a²
type square struct{}

func (o *square) Setup(d *comp.Decl) error {
	d.AddInput("a", []float64{1})
	d.AddOutput("b", []float64{1})
	d.DeclarePartials("b", "a", nil, nil)
	return nil
}

func (o *square) Compute(in, out *vec.Vector) error {
	a := in.Get("a")[0]
	out.Get("b")[0] = a * a
	return nil
}

func (o *square) ComputePartials(in *vec.Vector, p *comp.Partials) error {
	p.SetScalar("b", "a", 2*in.Get("a")[0])
	return nil
}

func Test_linearize01(tst *testing.T) {

	chk.PrintTitle("linearize01. linearize twice gives the same Jacobian")

	for _, jacType := range []string{"dict", "dense", "coo", "csr"} {
		model := NewGroup().
			AddSubsystem("lin", linsys.New([][]float64{{3, 4}, {2, 3}})).
			AddSubsystem("par", &exactParaboloid{}).
			AddSubsystem("s", &scale{k: 1.5, n: 3}).
			AddSubsystem("q", &square{}).
			Connect("par.f", "q.a")
		p := NewProblem(model)
		p.JacType = jacType
		if err := p.Setup(); err != nil {
			tst.Errorf("setup failed: %v\n", err)
			return
		}
		p.SetVal("lin.x", []float64{0.3, -0.7})
		p.SetVal("par.x", []float64{1.1})
		p.SetVal("par.y", []float64{-2.3})
		p.SetVal("s.x", []float64{1, 2, 3})
		if err := p.RunModel(); err != nil {
			tst.Errorf("RunModel failed: %v\n", err)
			return
		}
		if err := p.RunLinearize(); err != nil {
			tst.Errorf("RunLinearize failed: %v\n", err)
			return
		}
		first := p.Jacobian().GetCopy()
		if err := p.RunLinearize(); err != nil {
			tst.Errorf("RunLinearize failed: %v\n", err)
			return
		}
		second := p.Jacobian()
		io.Pf("%s: %d×%d\n", jacType, second.M, second.N)
		for k, x := range first.Data {
			if second.Data[k] != x {
				tst.Errorf("%s: entry %d changed from %v to %v\n", jacType, k, x, second.Data[k])
				return
			}
		}
	}
}

func Test_problem03(tst *testing.T) {

	chk.PrintTitle("problem03. totals after changing values")

	model := NewGroup().
		AddSubsystem("s", &scale{k: 2, n: 1}).
		AddSubsystem("q", &square{}).
		Connect("s.y", "q.a")
	p := NewProblem(model)
	if err := p.Setup(); err != nil {
		tst.Errorf("setup failed: %v\n", err)
		return
	}

	// b = (2x)²; db/dx = 8x
	for _, x := range []float64{1, 3} {
		p.SetVal("s.x", []float64{x})
		tot, err := p.ComputeTotals([]string{"q.b"}, []string{"s.x"}, Fwd)
		if err != nil {
			tst.Errorf("ComputeTotals failed: %v\n", err)
			return
		}
		chk.Float64(tst, io.Sf("b(%g)", x), 1e-14, p.Get("q.b")[0], 4*x*x)
		chk.Deep2(tst, io.Sf("db/dx(%g)", x), 1e-14, tot[TotalKey{"q.b", "s.x"}], [][]float64{{8 * x}})
	}
}

func Test_problem01(tst *testing.T) {

	chk.PrintTitle("problem01. setup and queries")

	p := NewProblem(nil)
	if err := p.RunModel(); !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("RunModel before Setup must fail\n")
		return
	}
	p.Model.AddSubsystem("lin", linsys.New([][]float64{{3, 4}, {2, 3}}))
	if err := p.Setup(); err != nil {
		tst.Errorf("setup failed: %v\n", err)
		return
	}
	if err := p.Setup(); !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("second Setup must fail\n")
		return
	}
	chk.Strings(tst, "subsystems", p.Model.Subsystems(), []string{"_auto_ivc", "lin"})
	src, err := p.Source("lin.x")
	if err != nil {
		tst.Errorf("Source failed: %v\n", err)
		return
	}
	chk.String(tst, src, "_auto_ivc.v0")
	_, err = p.GetVal("nope")
	if !errors.Is(err, errs.NameNotFound) {
		tst.Errorf("NameNotFound expected\n")
		return
	}
	chk.String(tst, err.Error(), `cannot find variable named "nope"`)
	defer func() {
		if r := recover(); r == nil {
			tst.Errorf("Get must panic\n")
		}
	}()
	p.Get("nope")
}

func Test_problem02(tst *testing.T) {

	chk.PrintTitle("problem02. linear context is reset on panic")

	p := linsysProblem(tst, "dense", "direct")
	if p == nil {
		return
	}
	func() {
		defer func() { recover() }()
		p.LinearContext(func(din, dout, dres *vec.Vector) error {
			dres.SetConst(123)
			dout.SetConst(456)
			panic("stop")
		})
	}()
	chk.Array(tst, "dout", 1e-17, p.Dout.Data, make([]float64, 4))
	chk.Array(tst, "dres", 1e-17, p.Dres.Data, make([]float64, 4))
}

func Test_options01(tst *testing.T) {

	chk.PrintTitle("options01. solver options")

	_, err := NewNonlinearSolver("newton", map[string]interface{}{"maxiter": 5, "foo": 1, "bar": 2})
	if !errors.Is(err, errs.UnrecognizedOption) {
		tst.Errorf("UnrecognizedOption expected; got %v\n", err)
		return
	}
	chk.String(tst, err.Error(), "nonlinear solver newton does not recognize option(s): bar, foo")

	_, err = NewLinearSolver("cholesky", nil)
	if !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("ConfigurationError expected; got %v\n", err)
		return
	}

	s, err := NewNonlinearSolver("nlbgs", map[string]interface{}{"maxiter": 5, "use_aitken": true})
	if err != nil {
		tst.Errorf("NewNonlinearSolver failed: %v\n", err)
		return
	}
	nlbgs := s.(*Nlbgs)
	chk.Int(tst, "maxiter", nlbgs.Maxiter, 5)
	chk.Float64(tst, "rtol", 1e-17, nlbgs.Rtol, 1e-10)
	chk.Float64(tst, "aitken max", 1e-17, nlbgs.AitkenMaxFactor, 1.5)
	if !nlbgs.UseAitken {
		tst.Errorf("use_aitken must be true\n")
	}

	l, err := NewLinearSolver("krylov", map[string]interface{}{"precon": "lbgs", "precon_options": map[string]interface{}{"maxiter": 2}})
	if err != nil {
		tst.Errorf("NewLinearSolver failed: %v\n", err)
		return
	}
	k := l.(*Krylov)
	chk.Int(tst, "restart", k.Restart, 20)
	chk.Int(tst, "precon maxiter", k.Pc.(*Lbgs).Maxiter, 2)
}

func Test_build01(tst *testing.T) {

	chk.PrintTitle("build01. problem from file")

	d, err := inp.ReadProblem("../inp/data/linsys.yaml")
	if err != nil {
		tst.Errorf("cannot read problem: %v\n", err)
		return
	}
	p, err := Build(d)
	if err != nil {
		tst.Errorf("Build failed: %v\n", err)
		return
	}
	if err = p.RunModel(); err != nil {
		tst.Errorf("RunModel failed: %v\n", err)
		return
	}
	chk.Array(tst, "y", 1e-14, p.Get("y"), []float64{-1, 1})
	mode, err := ParseMode(d.Totals.Mode)
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	tot, err := p.ComputeTotals(d.Totals.Of, d.Totals.Wrt, mode)
	if err != nil {
		tst.Errorf("ComputeTotals failed: %v\n", err)
		return
	}
	chk.Deep2(tst, "dy/dx", 1e-12, tot[TotalKey{"y", "x"}], [][]float64{{3, -4}, {-2, 3}})

	// unknown component
	d.Model.Subsystems[0].Comp = "nope"
	if _, err = Build(d); !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("ConfigurationError expected; got %v\n", err)
	}
	if len(comp.Names()) < 1 {
		tst.Errorf("components must be registered\n")
	}
}
