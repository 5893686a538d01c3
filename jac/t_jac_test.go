// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jac

import (
	"errors"
	"testing"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// slots4 returns the slots of a 4×4 matrix with all block kinds and one repeated block:
//
//	[ 1   0    0   1 ]
//	[ 0   1 -0.5   0 ]
//	[ 0  -2    5   0 ]
//	[-3  -3    0   7 ]
func slots4(tst *testing.T) []*Slot {
	dense := &Dense{la.NewMatrixDeep2([][]float64{{1, 2}, {3, 4}})}
	trip, err := NewTriplet(2, 2, []int{0, 1, 1}, []int{0, 1, 1}, []float64{5, 6, 1})
	if err != nil {
		tst.Fatalf("%v", err)
	}
	csr, err := NewCSR(2, 2, []int{1, 0}, []int{0, 1}, []float64{-1, 2})
	if err != nil {
		tst.Fatalf("%v", err)
	}
	eye := &Dense{la.NewMatrixDeep2([][]float64{{1, 0}, {0, 1}})}
	return []*Slot{
		NewSlot("a", "a", 0, 0, 2, 2, 1, &Identity{2}),
		NewSlot("b", "a", 2, 0, 2, 2, -1, dense),
		NewSlot("b", "b", 2, 2, 2, 2, 1, trip),
		NewSlot("a", "b", 0, 2, 2, 2, 0.5, csr),
		NewSlot("b", "a", 2, 0, 2, 2, 1, eye),
	}
}

var dense4 = [][]float64{
	{1, 0, 0, 1},
	{0, 1, -0.5, 0},
	{0, -2, 5, 0},
	{-3, -3, 0, 7},
}

func Test_blocks01(tst *testing.T) {

	chk.PrintTitle("blocks01. csr block from triplets")

	csr, err := NewCSR(3, 3, []int{2, 0, 2, 0}, []int{1, 2, 1, 0}, []float64{1, 2, 3, 4})
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.Ints(tst, "indptr", csr.Indptr, []int{0, 2, 2, 3})
	chk.Ints(tst, "indices", csr.Indices, []int{0, 2, 1})
	chk.Array(tst, "data", 1e-17, csr.Data, []float64{4, 2, 4})

	y := []float64{0, 0, 0}
	csr.MulAdd(y, 2, []float64{1, 1, 1}, false)
	chk.Array(tst, "y", 1e-17, y, []float64{12, 0, 8})
	y = []float64{0, 0, 0}
	csr.MulAdd(y, 1, []float64{1, 2, 3}, true)
	chk.Array(tst, "yt", 1e-17, y, []float64{4, 12, 2})

	_, err = NewTriplet(2, 2, []int{0, 2}, []int{0, 0}, nil)
	if !errors.Is(err, errs.ShapeMismatch) {
		tst.Errorf("out-of-range triplet should fail with ShapeMismatch. err = %v\n", err)
	}
	_, err = NewTriplet(2, 2, []int{0, 1}, []int{0}, nil)
	if !errors.Is(err, errs.ShapeMismatch) {
		tst.Errorf("triplet with wrong number of indices should fail. err = %v\n", err)
	}
}

func Test_stores01(tst *testing.T) {

	chk.PrintTitle("stores01. all stores give the same matrix and products")

	x := []float64{1, 2, 3, 4}
	for _, kind := range []string{"dict", "dense", "coo", "csr"} {
		slots := slots4(tst)
		mat, err := New(kind)
		if err != nil {
			tst.Errorf("%v\n", err)
			return
		}
		mat.Build(4, slots)
		mat.Update()

		// matrix
		chk.Deep2(tst, kind+": J", 1e-15, mat.ToDense(Range{0, 4}).GetDeep2(), dense4)
		chk.Deep2(tst, kind+": J22", 1e-15, mat.ToDense(Range{2, 4}).GetDeep2(), [][]float64{{5, 0}, {0, 7}})
		chk.Deep2(tst, kind+": T22", 1e-15, mat.ToTriplet(Range{0, 2}, true).ToDense().GetDeep2(), [][]float64{{1, 0}, {0, 1}})
		chk.Deep2(tst, kind+": T", 1e-15, mat.ToTriplet(Range{0, 4}, true).ToDense().GetDeep2(), [][]float64{
			{1, 0, 0, -3},
			{0, 1, -2, -3},
			{0, -0.5, 5, 0},
			{1, 0, 0, 7},
		})

		// products
		y := make([]float64, 4)
		mat.MatVec(y, x, All(4), false)
		chk.Array(tst, kind+": J⋅x", 1e-15, y, []float64{5, 0.5, 11, 19})
		y = make([]float64, 4)
		mat.MatVec(y, x, All(4), true)
		chk.Array(tst, kind+": Jᵀ⋅x", 1e-15, y, []float64{-11, -16, 14, 29})

		// filtered product
		y = make([]float64, 4)
		f := &Filter{Rows: Range{2, 4}, Cols: Range{0, 4}, SkipCols: Range{2, 4}}
		mat.MatVec(y, x, f, false)
		chk.Array(tst, kind+": J[b,a]⋅x", 1e-15, y, []float64{0, 0, -4, -9})

		// values are refreshed
		slots[2].Blk.(*Triplet).Vals[0] = 1
		mat.Update()
		chk.Float64(tst, kind+": J22 after update", 1e-15, mat.ToDense(Range{0, 4}).Get(2, 2), 1)
	}

	_, err := New("banded")
	if !errors.Is(err, errs.ConfigurationError) {
		tst.Errorf("unknown store should fail with ConfigurationError. err = %v\n", err)
	}
}

func Test_assembler01(tst *testing.T) {

	chk.PrintTitle("assembler01. matrix-free and assembled products")

	slots := slots4(tst)
	asm := NewAssembler(4, slots, "csr")
	if asm.Matrix(true) != Matrix(asm.Free) {
		tst.Errorf("assembled matrix must fall back to matrix-free before Assemble\n")
	}
	err := asm.Assemble()
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	asm.Update()
	chk.Int(tst, "gen", asm.Gen, 1)
	chk.Deep2(tst, "J", 1e-15, asm.Dense().GetDeep2(), dense4)

	x := []float64{4, 3, 2, 1}
	y1, y2 := make([]float64, 4), make([]float64, 4)
	asm.MatVec(y1, x, All(4), false, true)
	asm.MatVec(y2, x, All(4), false, false)
	chk.Array(tst, "assembled vs free", 1e-15, y1, y2)

	// idempotence
	before := asm.Dense().GetDeep2()
	asm.Update()
	chk.Deep2(tst, "J again", 0, asm.Dense().GetDeep2(), before)
}

func Test_slot01(tst *testing.T) {

	chk.PrintTitle("slot01. slot shape mismatch")

	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok || !errors.Is(err, errs.ShapeMismatch) {
				tst.Errorf("panic should carry ShapeMismatch. got %v\n", r)
			}
			return
		}
		tst.Errorf("NewSlot should have panicked\n")
	}()
	NewSlot("y", "x", 0, 0, 3, 4, 1, NewDense(3, 3))
}
