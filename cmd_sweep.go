// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cpmech/gomdao/bench"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "sweep <sweep.yaml>",
		Short: "Run a sweep of cycle problems and compare totals with the known solution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := inp.ReadSweep(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				d.Workers = workers
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runSweep(ctx, d)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of cases running at the same time; 0 means the number of CPUs")
	return cmd
}

// runSweep runs all cases in d and prints the table of results
func runSweep(ctx context.Context, d *inp.SweepData) (err error) {
	results, err := bench.Sweep(ctx, d, logger)
	if err != nil {
		return
	}
	bench.Print(results)
	if n := bench.Failed(results); n > 0 {
		return errs.New(errs.ConvergenceFailure, "%d of %d cases failed", n, len(results))
	}
	return
}
