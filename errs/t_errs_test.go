// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errs

import (
	"errors"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_errs01(tst *testing.T) {

	chk.PrintTitle("errs01. kinds and messages")

	err := New(ShapeMismatch, "%s partial shape mismatch between '%s' (%d) and '%s' (%d)", "dense", "y", 3, "x", 4)
	if !errors.Is(err, ShapeMismatch) {
		tst.Errorf("kind should be ShapeMismatch")
	}
	if errors.Is(err, ConnectionError) {
		tst.Errorf("kind should not be ConnectionError")
	}
	chk.String(tst, err.Error(), "dense partial shape mismatch between 'y' (3) and 'x' (4)")

	joined := Join(ConnectionError, []error{
		New(ConnectionError, "cannot connect 'a' to 'b'"),
		New(ConnectionError, "cannot connect 'c' to 'd'"),
	})
	if !errors.Is(joined, ConnectionError) {
		tst.Errorf("kind should be ConnectionError")
	}
	chk.String(tst, joined.Error(), "cannot connect 'a' to 'b'\ncannot connect 'c' to 'd'")
	if Join(ConnectionError, nil) != nil {
		tst.Errorf("empty list should give nil")
	}
}

func Test_errs02(tst *testing.T) {

	chk.PrintTitle("errs02. recover panics")

	run := func(fcn func()) (err error) {
		defer Recover(&err, ConfigurationError)
		fcn()
		return
	}

	err := run(func() { panic(New(NameNotFound, "cannot find %q", "x")) })
	if !errors.Is(err, NameNotFound) {
		tst.Errorf("kind should be kept: %v", err)
	}
	err = run(func() { panic("boom") })
	if !errors.Is(err, ConfigurationError) {
		tst.Errorf("kind should be ConfigurationError: %v", err)
	}
	chk.String(tst, err.Error(), "boom")
	err = run(func() {})
	if err != nil {
		tst.Errorf("err should be nil")
	}
}
