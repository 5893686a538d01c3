// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// components available to problem files
	_ "github.com/cpmech/gomdao/comp/arrays"
	_ "github.com/cpmech/gomdao/comp/cycle"
	_ "github.com/cpmech/gomdao/comp/indep"
	_ "github.com/cpmech/gomdao/comp/linsys"
	_ "github.com/cpmech/gomdao/comp/metamodel"
)

var (
	verbose bool        // print problem messages and debug logs
	devLog  bool        // human readable logs
	logger  *zap.Logger // set by PersistentPreRunE
)

// newRootCmd returns the root command with all subcommands
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gomdao",
		Short:         "Total derivatives of coupled models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			config := zap.NewProductionConfig()
			if devLog {
				config = zap.NewDevelopmentConfig()
			}
			if verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			config.OutputPaths = []string{"stderr"}
			if logger, err = config.Build(); err != nil {
				return chk.Err("cannot initialise logger:\n%v", err)
			}
			io.Verbose = true
			return
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show solver messages and debug logs")
	root.PersistentFlags().BoolVar(&devLog, "dev", false, "human readable logs")
	root.AddCommand(newRunCmd(), newSweepCmd(), newCycleCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		io.Verbose = true
		io.PfRed("\nERROR: %v\n", err)
		os.Exit(1)
	}
}
