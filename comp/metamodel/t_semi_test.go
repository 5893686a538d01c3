// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metamodel

import (
	"errors"
	"math"
	"testing"

	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/mdao"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// semi-structured training data: for each x, the list of y values
var (
	gridX = []float64{1.0, 1.3, 1.6, 2.1, 2.5, 2.9, 3.2, 3.6, 4.3, 4.6, 4.9}
	gridY = [][]float64{
		{1.0, 1.5, 1.6, 1.7, 1.9},
		{1.0, 1.5, 1.6, 1.7, 1.9},
		{1.0, 1.5, 1.6, 1.7, 1.9},
		{1.0, 1.6, 1.7, 1.9, 2.4},
		{1.3, 1.7, 1.9, 2.4, 2.6, 2.9},
		{1.9, 2.1, 2.3, 2.5, 3.1},
		{2.3, 2.5, 3.1, 3.7},
		{2.3, 3.1, 3.3, 3.7, 4.1, 4.2},
		{3.3, 3.6, 4.0, 4.5},
		{3.9, 4.2, 4.4, 4.5, 4.6, 4.7},
		{4.4, 4.5, 4.6, 4.7, 4.9},
	}
)

// trainingData returns the flat table with f = 3 + sin(0.2x)⋅cos(0.3y)
func trainingData() (x, y, f []float64) {
	for i, a := range gridX {
		for _, b := range gridY[i] {
			x = append(x, a)
			y = append(y, b)
			f = append(f, 3.0+math.Sin(a*0.2)*math.Cos(b*0.3))
		}
	}
	return
}

// setup returns a problem with the metamodel named "interp"
func setup(tst *testing.T, mm *SemiStructured) *mdao.Problem {
	p := mdao.NewProblem(mdao.NewGroup().AddSubsystem("interp", mm))
	if err := p.Setup(); err != nil {
		tst.Errorf("setup failed: %v\n", err)
		return nil
	}
	return p
}

func Test_semi01(tst *testing.T) {

	chk.PrintTitle("semi01. linear interpolation of a small table")

	mm := NewSemiStructured("slinear")
	mm.TrainingDataGradients = true
	mm.AddInput("x", []float64{1, 1, 2, 2, 2})
	mm.AddInput("y", []float64{1, 2, 1, 2, 3})
	mm.AddOutput("f", []float64{1, 2.5, 1.5, 4, 4.5})
	p := setup(tst, mm)
	if p == nil {
		return
	}
	p.SetVal("interp.x", []float64{1.5})
	p.SetVal("interp.y", []float64{1.5})
	if err := p.RunModel(); err != nil {
		tst.Errorf("RunModel failed: %v\n", err)
		return
	}
	chk.Float64(tst, "f", 1e-15, p.Get("interp.f")[0], 2.25)
}

func Test_semi02(tst *testing.T) {

	chk.PrintTitle("semi02. quadratic interpolation with many outputs")

	x, y, f := trainingData()
	g := make([]float64, len(f))
	for i, v := range f {
		g[i] = 2 * v
	}
	mm := NewSemiStructured("lagrange2").AddInput("x", x).AddInput("y", y).AddOutput("f", f).AddOutput("g", g)
	mm.TrainingDataGradients = true
	p := setup(tst, mm)
	if p == nil {
		return
	}
	p.SetVal("interp.x", []float64{3.1})
	p.SetVal("interp.y", []float64{2.75})
	if err := p.RunModel(); err != nil {
		tst.Errorf("RunModel failed: %v\n", err)
		return
	}
	chk.Float64(tst, "f", 1e-8, p.Get("interp.f")[0], 3.39415716)
	chk.Float64(tst, "g", 1e-8, p.Get("interp.g")[0], 2*3.39415716)
}

func Test_semi03(tst *testing.T) {

	chk.PrintTitle("semi03. training values as inputs")

	x, y, f := trainingData()
	mm := NewSemiStructured("lagrange2").AddInput("x", x).AddInput("y", y).AddOutput("f", make([]float64, len(x)))
	mm.TrainingDataGradients = true
	p := setup(tst, mm)
	if p == nil {
		return
	}
	p.SetVal("interp.x", []float64{3.1})
	p.SetVal("interp.y", []float64{2.75})
	p.SetVal("interp.f_train", f)
	if err := p.RunModel(); err != nil {
		tst.Errorf("RunModel failed: %v\n", err)
		return
	}
	chk.Float64(tst, "f", 1e-8, p.Get("interp.f")[0], 3.39415716)
}

func Test_semi04(tst *testing.T) {

	chk.PrintTitle("semi04. size mismatch and extrapolation")

	mm := NewSemiStructured("akima")
	mm.AddInput("x", []float64{1, 1, 2, 2})
	mm.AddInput("y", []float64{1, 2, 1, 2})
	mm.AddOutput("f", []float64{1, 2, 3})
	err := mm.Setup(comp.NewDecl("comp"))
	if !errors.Is(err, errs.ShapeMismatch) {
		tst.Errorf("ShapeMismatch expected; got %v\n", err)
		return
	}
	chk.String(tst, err.Error(), "Size mismatch: training data for 'f' is length 3, but data for 'x' is length 4.")

	p := mdao.NewProblem(mdao.NewGroup().AddSubsystem("comp", mm))
	if err = p.Setup(); !errors.Is(err, errs.ShapeMismatch) {
		tst.Errorf("ShapeMismatch expected; got %v\n", err)
		return
	}

	mm = NewSemiStructured("slinear")
	mm.AddInput("x", []float64{1, 1, 2, 2})
	mm.AddInput("y", []float64{1, 2, 1, 2})
	mm.AddOutput("f", []float64{1, 2, 3, 4})
	p = setup(tst, mm)
	if p == nil {
		return
	}
	p.SetVal("interp.x", []float64{2.5})
	err = p.RunModel()
	if !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("extrapolation must fail; got %v\n", err)
		return
	}
	io.Pforan("%v\n", err)
}

func Test_semi05(tst *testing.T) {

	chk.PrintTitle("semi05. vectorized partials")

	x, y, f := trainingData()
	expected := map[string]float64{
		"slinear":   3.3925753514041146,
		"lagrange2": 3.394157156669961,
		"lagrange3": 3.394262551582958,
		"akima":     3.3940276299874843,
	}
	for _, method := range []string{"slinear", "lagrange2", "lagrange3", "akima"} {
		io.Pf("\n%s\n", method)
		c, err := comp.New("metamodel.semi", map[string]interface{}{
			"method":                  method,
			"extrapolate":             true,
			"training_data_gradients": true,
			"vec_size":                3,
			"inputs": []interface{}{
				map[string]interface{}{"name": "x", "data": x},
				map[string]interface{}{"name": "y", "data": y},
			},
			"outputs": []interface{}{
				map[string]interface{}{"name": "f", "data": f},
			},
		})
		if err != nil {
			tst.Errorf("allocator failed: %v\n", err)
			return
		}
		p := mdao.NewProblem(mdao.NewGroup().AddSubsystem("interp", c, "*"))
		if err = p.Setup(); err != nil {
			tst.Errorf("setup failed: %v\n", err)
			return
		}
		p.SetVal("x", []float64{3.1, 1.45, 4.95})
		p.SetVal("y", []float64{2.75, 1.55, 4.8})
		if err = p.RunModel(); err != nil {
			tst.Errorf("RunModel failed: %v\n", err)
			return
		}
		chk.Float64(tst, "f[0]", 1e-12, p.Get("f")[0], expected[method])
		res, err := p.CheckPartials("fd-central")
		if err != nil {
			tst.Errorf("CheckPartials failed: %v\n", err)
			return
		}
		chk.Int(tst, "number of checks", len(res), 3)
		for _, r := range res {
			if !r.Ok(1e-6) {
				tst.Errorf("(%s, %s): relative error %g is too large\n", r.Of, r.Wrt, r.RelErr)
			}
		}
	}
}

func Test_semi06(tst *testing.T) {

	chk.PrintTitle("semi06. cubic and Akima interpolation of one input")

	x := []float64{0, 1, 2, 3.5, 5}
	cubic := make([]float64, len(x))
	for i, a := range x {
		cubic[i] = a*a*a - 2*a + 1
	}
	run := func(method string, f []float64, at []float64) []float64 {
		mm := NewSemiStructured(method).AddInput("x", x).AddOutput("f", f)
		mm.Extrapolate = true
		mm.VecSize = len(at)
		p := setup(tst, mm)
		if p == nil {
			tst.FailNow()
		}
		p.SetVal("interp.x", at)
		if err := p.RunModel(); err != nil {
			tst.Errorf("RunModel failed: %v\n", err)
			tst.FailNow()
		}
		res, err := p.CheckPartials("fd-central")
		if err != nil {
			tst.Errorf("CheckPartials failed: %v\n", err)
			tst.FailNow()
		}
		for _, r := range res {
			if !r.Ok(1e-6) {
				tst.Errorf("%s: (%s, %s): relative error %g is too large\n", method, r.Of, r.Wrt, r.RelErr)
			}
		}
		return p.Get("interp.f")
	}

	io.Pforan("cubic polynomials are reproduced by lagrange3\n")
	chk.Array(tst, "lagrange3", 1e-10, run("lagrange3", cubic, []float64{2.7, 0.4, 5.5}), []float64{15.283, 0.264, 156.375})

	io.Pforan("linear functions are reproduced by akima\n")
	line := make([]float64, len(x))
	for i, a := range x {
		line[i] = 2*a + 1
	}
	chk.Array(tst, "akima linear", 1e-12, run("akima", line, []float64{3.3, 0.4, 4.6}), []float64{7.6, 1.8, 10.2})

	io.Pforan("akima passes through the training points\n")
	f := []float64{1, 3, 2, 4, 0}
	chk.Array(tst, "akima points", 1e-14, run("akima", f, []float64{0, 2, 5}), []float64{1, 2, 0})
	chk.Array(tst, "akima", 1e-11, run("akima", f, []float64{2.7, 0.4, 4.6}), []float64{2.9246003898635484, 2.1780000000000004, 1.69450292397661})
}

func Test_semi07(tst *testing.T) {

	chk.PrintTitle("semi07. small grids use lower orders")

	for _, method := range []string{"lagrange3", "akima"} {
		mm := NewSemiStructured(method).AddInput("x", []float64{0, 1}).AddOutput("f", []float64{1, 3})
		p := setup(tst, mm)
		if p == nil {
			return
		}
		p.SetVal("interp.x", []float64{0.25})
		if err := p.RunModel(); err != nil {
			tst.Errorf("RunModel failed: %v\n", err)
			return
		}
		chk.Float64(tst, method, 1e-15, p.Get("interp.f")[0], 1.5)
	}

	mm := NewSemiStructured("lagrange3").AddInput("x", []float64{0, 1, 2}).AddOutput("f", []float64{0, 1, 4})
	p := setup(tst, mm)
	if p == nil {
		return
	}
	p.SetVal("interp.x", []float64{1.5})
	if err := p.RunModel(); err != nil {
		tst.Errorf("RunModel failed: %v\n", err)
		return
	}
	chk.Float64(tst, "lagrange3 on three points", 1e-14, p.Get("interp.f")[0], 2.25)

	mm = NewSemiStructured("cubic")
	mm.AddInput("x", []float64{0, 1}).AddOutput("f", []float64{1, 3})
	if err := mm.Setup(comp.NewDecl("comp")); !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("unknown method must fail; got %v\n", err)
	}
}
