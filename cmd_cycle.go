// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/cpmech/gomdao/bench"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCycleCmd() *cobra.Command {
	c := new(inp.CaseData)
	c.SetDefault()
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one cycle problem and compare totals with the known solution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(c)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&c.NumComp, "num-comp", "n", c.NumComp, "number of components in cycle")
	f.IntVar(&c.NumVar, "num-var", c.NumVar, "number of variables per component")
	f.IntSliceVar(&c.VarShape, "var-shape", c.VarShape, "shape of each variable")
	f.StringVar(&c.PartialType, "partial-type", c.PartialType, "array, sparse or csr")
	f.StringVar(&c.PartialMethod, "partial-method", c.PartialMethod, "exact, fd or cs")
	f.StringVar(&c.JacType, "jac-type", c.JacType, "dict, dense, coo or csr")
	f.BoolVar(&c.Assembled, "assembled", c.Assembled, "linear solver uses the assembled Jacobian")
	f.StringVar(&c.ConnType, "conn-type", c.ConnType, "explicit or implicit")
	f.StringVar(&c.Nonlinear, "nonlinear", c.Nonlinear, "nonlinear solver: runonce, nlbgs or newton")
	f.StringVar(&c.Linear, "linear", c.Linear, "linear solver: runonce, lbgs, direct or krylov")
	f.Float64Var(&c.ErrBound, "err-bound", c.ErrBound, "tolerance when checking totals")
	return cmd
}

// runCycle runs one case and prints its result
func runCycle(c *inp.CaseData) error {
	res := bench.RunCase(c)
	bench.Print([]*bench.Result{res})
	if res.Err != nil {
		return res.Err
	}
	logger.Info("cycle finished", zap.String("case", res.Name), zap.String("status", res.Status), zap.Duration("elapsed", res.Elapsed))
	if !res.Ok() {
		return errs.New(errs.ConvergenceFailure, "case %q is out of tolerance", res.Name)
	}
	return nil
}
