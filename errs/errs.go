// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package errs implements the error kinds reported by setup, solvers and queries
package errs

import (
	"errors"

	"github.com/cpmech/gosl/io"
)

// kinds of errors. Use errors.Is(err, errs.ShapeMismatch) to check
var (
	NameNotFound       = errors.New("name not found")
	ShapeMismatch      = errors.New("shape mismatch")
	ConnectionError    = errors.New("connection error")
	UnrecognizedOption = errors.New("unrecognized option")
	ConvergenceFailure = errors.New("convergence failure")
	ConfigurationError = errors.New("configuration error")
)

// Error holds the kind of error and a message naming the offending variables
type Error struct {
	Kind error  // one of the kinds above
	Msg  string // message
}

// New returns a new Error of the given kind
func New(kind error, msg string, prm ...interface{}) *Error {
	return &Error{Kind: kind, Msg: io.Sf(msg, prm...)}
}

// Error returns the message
func (o *Error) Error() string {
	return o.Msg
}

// Unwrap returns the kind
func (o *Error) Unwrap() error {
	return o.Kind
}

// Join collects many errors of the same kind into one; e.g. all bad connections found during setup
func Join(kind error, list []error) error {
	if len(list) == 0 {
		return nil
	}
	if len(list) == 1 {
		if e, ok := list[0].(*Error); ok && e.Kind == kind {
			return e
		}
	}
	msg := ""
	for i, e := range list {
		if i > 0 {
			msg += "\n"
		}
		msg += e.Error()
	}
	return &Error{Kind: kind, Msg: msg}
}

// Recover converts a panic into an error of the given kind. Errors of this package keep their kind.
// Use it as:
//
//	defer errs.Recover(&err, errs.ConfigurationError)
func Recover(err *error, kind error) {
	if r := recover(); r != nil {
		switch v := r.(type) {
		case *Error:
			*err = v
		case error:
			*err = &Error{Kind: kind, Msg: v.Error()}
		default:
			*err = &Error{Kind: kind, Msg: io.Sf("%v", v)}
		}
	}
}
