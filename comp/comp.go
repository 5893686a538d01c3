// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package comp defines the contract of components: declaration of variables and partials,
// evaluation of outputs or residuals and computation of partial derivatives
package comp

import (
	"sort"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/vec"
)

// Mode defines the direction of derivative propagation
type Mode int

const (
	Fwd  Mode = iota // forward: given d_residuals, find d_outputs
	Rev              // reverse (adjoint): given d_outputs, find d_residuals
	Auto             // pick the direction requiring fewer linear solves
)

// String returns the name of the mode
func (m Mode) String() string {
	switch m {
	case Fwd:
		return "fwd"
	case Rev:
		return "rev"
	}
	return "auto"
}

// Component defines the declaration step shared by all components
type Component interface {
	Setup(d *Decl) error // declares variables and partials
}

// Explicit defines components computing outputs directly from inputs; i.e. R = y - f(x)
type Explicit interface {
	Component
	Compute(in, out *vec.Vector) error // computes outputs from inputs
}

// PartialsComputer defines explicit components providing exact partials ∂f/∂x. Explicit
// components without it have their partials approximated
type PartialsComputer interface {
	ComputePartials(in *vec.Vector, p *Partials) error
}

// Implicit defines components computing residuals from inputs and outputs
type Implicit interface {
	Component
	ApplyNonlinear(in, out, res *vec.Vector) error    // computes residuals
	Linearize(in, out *vec.Vector, p *Partials) error // computes ∂R/∂x and ∂R/∂y
}

// NonlinearSolver defines implicit components able to converge their own residuals
type NonlinearSolver interface {
	SolveNonlinear(in, out *vec.Vector) error
}

// LinearSolver defines implicit components able to solve their own linear system.
// Fwd: solves ∂R/∂y⋅dout = dres; Rev: solves ∂R/∂yᵀ⋅dres = dout
type LinearSolver interface {
	SolveLinear(dout, dres *vec.Vector, mode Mode) error
}

// CVars holds complex values of variables by local name
type CVars map[string][]complex128

// ComplexComputer defines explicit components that can be evaluated with complex inputs.
// Required by the complex-step approximation
type ComplexComputer interface {
	ComputeComplex(in, out CVars) error
}

// Allocator creates a component from a map of parameters; e.g. read from a problem file
type Allocator func(prms map[string]interface{}) (Component, error)

// allocators holds all available components
var allocators = make(map[string]Allocator)

// SetAllocator sets a new component allocator
func SetAllocator(name string, fcn Allocator) {
	if _, ok := allocators[name]; ok {
		panic(errs.New(errs.ConfigurationError, "component allocator named %q exists already", name))
	}
	allocators[name] = fcn
}

// New returns a new component
func New(name string, prms map[string]interface{}) (Component, error) {
	allocator, ok := allocators[name]
	if !ok {
		return nil, errs.New(errs.ConfigurationError, "cannot find component named %q", name)
	}
	return allocator(prms)
}

// Names returns the sorted names of all available components
func Names() (names []string) {
	for name := range allocators {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}
