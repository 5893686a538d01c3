// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/mdao"
	"github.com/cpmech/gosl/io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var check string
	var tol float64
	cmd := &cobra.Command{
		Use:   "run <problem.yaml>",
		Short: "Run the model of a problem file and compute its totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProblem(args[0], check, tol)
		},
	}
	cmd.Flags().StringVar(&check, "check", "", `also check partials by "fd", "fd-central" or "cs"`)
	cmd.Flags().Float64Var(&tol, "check-tol", 1e-6, "tolerance of absolute or relative errors of checked partials")
	return cmd
}

// runProblem reads, runs and prints the results of a problem file. Partials are checked if check
// is not empty; checks with errors larger than tol make it fail
func runProblem(filename, check string, tol float64) (err error) {

	// read and build
	d, err := inp.ReadProblem(filename)
	if err != nil {
		return
	}
	log := logger.With(zap.String("problem", d.Key))
	start := time.Now()
	p, err := mdao.Build(d)
	if err != nil {
		return
	}
	p.Verbose = verbose
	log.Debug("problem set up", zap.Int("outputs", len(p.Out.Data)), zap.Duration("elapsed", time.Since(start)))

	// run
	if err = p.RunModel(); err != nil {
		return
	}
	if info := p.Model.NlInfo; info != nil {
		log.Info("model run", zap.String("status", info.Status.String()), zap.Int("iterations", info.Iterations))
		if info.Status != mdao.Converged {
			err = errs.New(errs.ConvergenceFailure, "nonlinear solver of %q did not converge: %s", d.Key, info.Status)
			return
		}
	}
	io.Pf("\n%s\n", d.Desc)

	// partials
	if check != "" {
		var checks []*mdao.Check
		if checks, err = p.CheckPartials(check); err != nil {
			return
		}
		mdao.PrintChecks(checks, tol)
		if n := mdao.FailedChecks(checks, tol); n > 0 {
			return errs.New(errs.ConvergenceFailure, "%d of %d checked partials of %q have errors larger than %g", n, len(checks), d.Key, tol)
		}
	}

	// totals
	if d.Totals == nil {
		return
	}
	mode, err := mdao.ParseMode(d.Totals.Mode)
	if err != nil {
		return
	}
	tot, err := p.ComputeTotals(d.Totals.Of, d.Totals.Wrt, mode)
	if err != nil {
		return
	}
	for _, of := range d.Totals.Of {
		io.Pf("%s = %v\n", of, p.Get(of))
	}
	for _, of := range d.Totals.Of {
		for _, wrt := range d.Totals.Wrt {
			io.Pforan("d%s/d%s =\n", of, wrt)
			for _, row := range tot[mdao.TotalKey{Of: of, Wrt: wrt}] {
				io.Pf("  %v\n", row)
			}
		}
	}
	log.Info("totals computed", zap.String("mode", d.Totals.Mode), zap.Int("pairs", len(tot)))
	return
}
