// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jac

import (
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// Assembler collects the slots of all components and provides matrix-free products through a
// Dict and, if requested, an assembled store
type Assembler struct {
	N     int     // number of rows (and columns); i.e. total size of outputs
	Slots []*Slot // all slots, in setup order
	Kind  string  // kind of assembled store
	Free  *Dict   // matrix-free view
	Store Matrix  // assembled store; nil if no solver uses it
	Gen   int     // generation; incremented by each Update
}

// NewAssembler returns a new assembler. kind is the kind of the assembled store created by Assemble
func NewAssembler(n int, slots []*Slot, kind string) (o *Assembler) {
	o = new(Assembler)
	o.N = n
	o.Slots = slots
	o.Kind = kind
	o.Free = new(Dict)
	o.Free.Build(n, slots)
	return
}

// Assemble allocates the assembled store
func (o *Assembler) Assemble() (err error) {
	if o.Store != nil {
		return
	}
	o.Store, err = New(o.Kind)
	if err != nil {
		return
	}
	o.Store.Build(o.N, o.Slots)
	return
}

// Update copies the current block values into the assembled store (if any)
func (o *Assembler) Update() {
	if o.Store != nil {
		o.Store.Update()
	}
	o.Gen++
}

// Matrix returns the assembled store if assembled is true and it exists; otherwise the matrix-free view
func (o *Assembler) Matrix(assembled bool) Matrix {
	if assembled && o.Store != nil {
		return o.Store
	}
	return o.Free
}

// MatVec computes y += J⋅x or y += Jᵀ⋅x over the filtered entries
func (o *Assembler) MatVec(y, x []float64, f *Filter, transp, assembled bool) {
	o.Matrix(assembled).MatVec(y, x, f, transp)
}

// Dense returns the full matrix as dense; for debugging and tests
func (o *Assembler) Dense() *la.Matrix {
	return o.Matrix(true).ToDense(Range{0, o.N})
}

// Print prints all slots
func (o *Assembler) Print() {
	io.Pf("%-30s %-30s %6s %6s %4s %4s %8s\n", "of", "wrt", "row", "col", "m", "n", "factor")
	for _, s := range o.Slots {
		io.Pf("%-30s %-30s %6d %6d %4d %4d %8g\n", s.Of, s.Wrt, s.Row, s.Col, s.M, s.N, s.Factor)
	}
}
