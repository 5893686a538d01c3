// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gosl/chk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// execute runs the root command with args
func execute(args ...string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func Test_main01(tst *testing.T) {

	chk.PrintTitle("main01. run problem files")
	defer goleak.VerifyNone(tst)

	require.NoError(tst, execute("run", "inp/data/linsys.yaml"))
	require.NoError(tst, execute("run", "--check", "fd-central", "inp/data/arrays.yaml"))

	// forward differences cannot match the partials to 1e-14
	err := execute("run", "--check", "fd", "--check-tol", "1e-14", "inp/data/arrays.yaml")
	assert.ErrorIs(tst, err, errs.ConvergenceFailure)

	err = execute("run", "inp/data/missing.yaml")
	assert.Error(tst, err)

	err = execute("run", "inp/data/cycle.yaml")
	assert.Error(tst, err, "sweep file is not a problem file")

	err = execute("run")
	assert.Error(tst, err, "file name is required")
}

func Test_main02(tst *testing.T) {

	chk.PrintTitle("main02. sweep and single cycle")
	defer goleak.VerifyNone(tst)

	require.NoError(tst, execute("sweep", "--workers", "2", "inp/data/cycle.yaml"))
	assert.Error(tst, execute("sweep", "inp/data/bad.yaml"))

	require.NoError(tst, execute("cycle", "-n", "4", "--num-var", "2", "--var-shape", "2,3",
		"--nonlinear", "newton", "--linear", "direct", "--assembled", "--jac-type", "dense"))

	// direct solver needs the assembled Jacobian
	err := execute("cycle", "--linear", "direct", "--assembled=false")
	assert.ErrorIs(tst, err, errs.ConfigurationError)
}
