// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"errors"
	"testing"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func Test_opts01(tst *testing.T) {

	chk.PrintTitle("opts01. decoding solver options")

	var newton NewtonData
	newton.SetDefault()
	err := Decode(map[string]interface{}{
		"maxiter":          20,
		"atol":             1e-8,
		"solve_subsystems": true,
	}, &newton, "newton")
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.Int(tst, "maxiter", newton.Maxiter, 20)
	chk.Float64(tst, "atol", 1e-17, newton.Atol, 1e-8)
	chk.Float64(tst, "rtol", 1e-17, newton.Rtol, 1e-10)
	chk.Int(tst, "max_sub_solves", newton.MaxSubSolves, 10)
	if !newton.SolveSubsystems {
		tst.Errorf("solve_subsystems should be true\n")
	}

	// Newton-only option given to block Gauss-Seidel
	var nlbgs NlbgsData
	nlbgs.SetDefault()
	err = Decode(map[string]interface{}{"solve_subsystems": true, "bogus": 1}, &nlbgs, "nlbgs")
	if !errors.Is(err, errs.UnrecognizedOption) {
		tst.Errorf("unknown keys should fail with UnrecognizedOption. err = %v\n", err)
		return
	}
	chk.String(tst, err.Error(), "nlbgs does not recognize option(s): bogus, solve_subsystems")

	// wrong type
	var lin LinearData
	err = Decode(map[string]interface{}{"maxiter": "many"}, &lin, "lbgs")
	if !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("wrong types should fail with ConfigurationError. err = %v\n", err)
	}

	// nested options
	var kry KrylovData
	kry.SetDefault()
	err = Decode(map[string]interface{}{
		"restart":        5,
		"precon":         "lbgs",
		"precon_options": map[string]interface{}{"maxiter": 2},
	}, &kry, "krylov")
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.Int(tst, "restart", kry.Restart, 5)
	chk.Int(tst, "maxiter", kry.Maxiter, 1000)
	chk.String(tst, kry.Precon, "lbgs")
	chk.Int(tst, "precon maxiter", kry.PreconOptions["maxiter"].(int), 2)
}

func Test_sweep01(tst *testing.T) {

	chk.PrintTitle("sweep01. reading and expanding sweep file")

	sweep, err := ReadSweep("data/cycle.yaml")
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.Int(tst, "workers", sweep.Workers, 2)
	chk.Ints(tst, "var_shape", sweep.Base.VarShape, []int{3})
	chk.Float64(tst, "err_bound (default)", 1e-17, sweep.Base.ErrBound, 1e-7)

	cases, err := sweep.Expand()
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.Int(tst, "number of cases", len(cases), 5)
	names := make([]string, len(cases))
	for i, c := range cases {
		names[i] = c.Name
		io.Pforan("%s\n", c.Name)
	}
	chk.Strings(tst, "names", names, []string{
		"newton-lbgs-c5-v2-array-exact-dense",
		"newton-lbgs-c5-v2-sparse-exact-dense",
		"newton-lbgs-c5-v2-array-exact-csr",
		"newton-lbgs-c5-v2-sparse-exact-csr",
		"nlbgs-lbgs-c5-v2-array-exact-csr",
	})
	chk.Int(tst, "nlbgs maxiter", cases[4].NonlinearOpts["maxiter"].(int), 100)
	chk.Int(tst, "newton maxiter", cases[0].NonlinearOpts["maxiter"].(int), 20)

	// base is not modified by cases
	chk.String(tst, sweep.Base.JacType, "csr")
	chk.String(tst, sweep.Base.Nonlinear, "newton")
}

func Test_sweep02(tst *testing.T) {

	chk.PrintTitle("sweep02. wrong sweep data")

	_, err := ReadSweep("data/bad.yaml")
	if !errors.Is(err, errs.UnrecognizedOption) {
		tst.Errorf("unknown field should fail with UnrecognizedOption. err = %v\n", err)
	}

	_, err = ReadSweep("data/nonexistent.yaml")
	if !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("missing file should fail with ConfigurationError. err = %v\n", err)
	}

	sweep, err := DecodeSweep([]byte("grid:\n  partial_type: [array, diagonal]\n"), "inline")
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	_, err = sweep.Expand()
	if !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("wrong partial type should fail with ConfigurationError. err = %v\n", err)
	}

	sweep, err = DecodeSweep([]byte("grid:\n  num_comps: [2, 3]\n"), "inline")
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	_, err = sweep.Expand()
	if !errors.Is(err, errs.UnrecognizedOption) {
		tst.Errorf("unknown grid key should fail with UnrecognizedOption. err = %v\n", err)
	}
}

func Test_problem01(tst *testing.T) {

	chk.PrintTitle("problem01. reading problem file")

	prob, err := ReadProblem("data/linsys.yaml")
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.String(tst, prob.Key, "linsys")
	chk.String(tst, prob.JacType, "csr")
	chk.Array(tst, "x", 1e-17, prob.Values["x"], []float64{1, 1})
	if !prob.Model.IsGroup() {
		tst.Errorf("model must be a group\n")
		return
	}
	chk.String(tst, prob.Model.Linear.Kind, "direct")
	chk.Int(tst, "number of subsystems", len(prob.Model.Subsystems), 1)
	lin := prob.Model.Subsystems[0]
	chk.String(tst, lin.Comp, "linsys")
	chk.Strings(tst, "promotes", lin.Promotes, []string{"*"})
	chk.String(tst, prob.Totals.Mode, "rev")
	chk.Strings(tst, "of", prob.Totals.Of, []string{"y"})

	// gosl panics on missing files; the panic becomes an error
	_, err = ReadProblem("data/nonexistent.yaml")
	if !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("missing file should fail with ConfigurationError. err = %v\n", err)
	}
}
