// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package bench runs sweeps of cycle problems in parallel; one problem per goroutine
package bench

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/mdao"
	"github.com/cpmech/gomdao/tests"
	"github.com/cpmech/gosl/io"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of one case
type Result struct {
	Name       string        // name of case
	Status     string        // status of the nonlinear solver
	Iterations int           // iterations of the nonlinear solver
	ValuesErr  float64       // largest difference between converged and known values
	FwdErr     float64       // largest difference between forward and known totals
	RevErr     float64       // largest difference between reverse and known totals
	ErrBound   float64       // tolerance of totals
	Elapsed    time.Duration // wall time
	Err        error         // failure; nil if the case ran
}

// Ok tells whether the case ran and its values and totals are within tolerance
func (o *Result) Ok() bool {
	return o.Err == nil && o.ValuesErr <= tests.ValuesTol && o.FwdErr <= o.ErrBound && o.RevErr <= o.ErrBound
}

// RunCase builds, runs and checks one case
func RunCase(c *inp.CaseData) (res *Result) {
	start := time.Now()
	res = &Result{Name: c.Name, ErrBound: c.ErrBound}
	defer func() { res.Elapsed = time.Since(start) }()
	inst, err := tests.BuildCycle(c)
	if err != nil {
		res.Err = err
		return
	}
	res.Name = c.Name
	if res.Err = inst.Run(); res.Err != nil {
		return
	}
	if info := inst.Problem.Model.NlInfo; info != nil {
		res.Status, res.Iterations = info.Status.String(), info.Iterations
	}
	res.ValuesErr = inst.ValuesErr()
	for _, mode := range []mdao.Mode{mdao.Fwd, mdao.Rev} {
		var tot mdao.Totals
		if tot, res.Err = inst.ComputeTotals(mode); res.Err != nil {
			return
		}
		e := inst.TotalsErr(tot)
		if mode == mdao.Fwd {
			res.FwdErr = e
		} else {
			res.RevErr = e
		}
	}
	return
}

// Run runs all cases with at most workers cases at the same time; workers ≤ 0 means the number of
// CPUs. Failures of cases are reported in the results; the error is only set if ctx is cancelled.
// Results follow the order of cases
func Run(ctx context.Context, cases []*inp.CaseData, workers int, log *zap.Logger) (results []*Result, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results = make([]*Result, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range cases {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := RunCase(c)
			results[i] = r
			fields := []zap.Field{
				zap.String("case", r.Name),
				zap.String("status", r.Status),
				zap.Int("iterations", r.Iterations),
				zap.Float64("fwd_err", r.FwdErr),
				zap.Float64("rev_err", r.RevErr),
				zap.Duration("elapsed", r.Elapsed),
			}
			switch {
			case r.Err != nil:
				log.Error("case failed", append(fields, zap.Error(r.Err))...)
			case !r.Ok():
				log.Warn("case out of tolerance", fields...)
			default:
				log.Info("case finished", fields...)
			}
			return nil
		})
	}
	err = g.Wait()
	return
}

// Sweep expands d into cases and runs them
func Sweep(ctx context.Context, d *inp.SweepData, log *zap.Logger) ([]*Result, error) {
	cases, err := d.Expand()
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("sweep started", zap.String("desc", d.Desc), zap.Int("cases", len(cases)), zap.Int("workers", d.Workers))
	}
	return Run(ctx, cases, d.Workers, log)
}

// Print prints a table with all results
func Print(results []*Result) {
	l := io.Sf("%-48s %-14s %5s %10s %10s %10s %12s\n", "case", "status", "iter", "values", "fwd", "rev", "elapsed")
	n := len(l) - 1
	io.Pf("%s\n", strings.Repeat("=", n))
	io.Pf("%s", l)
	io.Pf("%s\n", strings.Repeat("-", n))
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Err != nil {
			io.PfRed("%-48s %v\n", r.Name, r.Err)
			continue
		}
		l = io.Sf("%-48s %-14s %5d %10.2e %10.2e %10.2e %12v\n", r.Name, r.Status, r.Iterations, r.ValuesErr, r.FwdErr, r.RevErr, r.Elapsed.Round(time.Microsecond))
		if r.Ok() {
			io.Pf("%s", l)
		} else {
			io.Pforan("%s", l)
		}
	}
	io.Pf("%s\n", strings.Repeat("=", n))
}

// Failed returns the number of results that are not Ok
func Failed(results []*Result) (n int) {
	for _, r := range results {
		if r == nil || !r.Ok() {
			n++
		}
	}
	return
}
