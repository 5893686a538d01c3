// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jac

import (
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gosl/la"
)

// Range holds a half-open range [Lo,Hi) of global indices
type Range struct {
	Lo, Hi int
}

// Len returns the number of indices in range
func (r Range) Len() int { return r.Hi - r.Lo }

// Has tells whether i is in range
func (r Range) Has(i int) bool { return i >= r.Lo && i < r.Hi }

// covers tells whether [lo,hi) is inside range
func (r Range) covers(lo, hi int) bool { return lo >= r.Lo && hi <= r.Hi }

// overlaps tells whether [lo,hi) intersects range
func (r Range) overlaps(lo, hi int) bool { return lo < r.Hi && hi > r.Lo }

// Filter selects the entries (i,j) of the Jacobian taking part in a product.
// An empty Skip range skips nothing
type Filter struct {
	Rows     Range // rows to include
	Cols     Range // columns to include
	SkipRows Range // rows to exclude
	SkipCols Range // columns to exclude
}

// All returns a filter including all entries of an n×n matrix
func All(n int) *Filter {
	return &Filter{Rows: Range{0, n}, Cols: Range{0, n}}
}

// Sub returns a filter including the entries of the diagonal block r
func Sub(r Range) *Filter {
	return &Filter{Rows: r, Cols: r}
}

// Entry tells whether (i,j) passes the filter
func (o *Filter) Entry(i, j int) bool {
	return o.Rows.Has(i) && o.Cols.Has(j) && !o.SkipRows.Has(i) && !o.SkipCols.Has(j)
}

// slot tells whether the whole block of slot passes the filter. Blocks span whole variables and
// ranges are aligned with variables, thus blocks are either fully in or fully out
func (o *Filter) slot(s *Slot) bool {
	if !o.Rows.covers(s.Row, s.Row+s.M) || !o.Cols.covers(s.Col, s.Col+s.N) {
		return false
	}
	return !o.SkipRows.overlaps(s.Row, s.Row+s.M) && !o.SkipCols.overlaps(s.Col, s.Col+s.N)
}

// Slot places a block of partial derivatives into the global matrix
type Slot struct {
	Of, Wrt string  // absolute names of row and column variables
	Row     int     // global row of block entry (0,0)
	Col     int     // global column of block entry (0,0)
	M, N    int     // shape of block
	Factor  float64 // multiplies all block values; e.g. -1 for explicit components
	Blk     Block   // values; owned by the component partials
}

// NewSlot returns a new slot. It panics if the block shape differs from (m,n)
func NewSlot(of, wrt string, row, col, m, n int, factor float64, blk Block) *Slot {
	bm, bn := blk.Shape()
	if bm != m || bn != n {
		panic(errs.New(errs.ShapeMismatch, "slot (%s,%s) of shape (%d,%d) cannot hold block of shape (%d,%d)", of, wrt, m, n, bm, bn))
	}
	return &Slot{Of: of, Wrt: wrt, Row: row, Col: col, M: m, N: n, Factor: factor, Blk: blk}
}

// Matrix defines the backing store of the global Jacobian. Entries not covered by any slot are
// zero; slots overlapping the same entries accumulate
type Matrix interface {
	Build(n int, slots []*Slot)                    // allocates the structure
	Update()                                       // copies values from the slots
	MatVec(y, x []float64, f *Filter, transp bool) // y += J⋅x or y += Jᵀ⋅x over filtered entries
	Each(f *Filter, fcn func(i, j int, x float64)) // visits filtered entries; entries may repeat
	ToDense(r Range) *la.Matrix                    // returns the diagonal block r
	ToTriplet(r Range, transp bool) *la.Triplet    // returns the diagonal block r (or its transpose)
}

// allocators holds all available stores
var allocators = make(map[string]func() Matrix)

// New returns a new store. Available kinds are "dict", "dense", "coo" and "csr"
func New(kind string) (Matrix, error) {
	allocator, ok := allocators[kind]
	if !ok {
		return nil, errs.New(errs.ConfigurationError, "cannot find Jacobian store named %q", kind)
	}
	return allocator(), nil
}

// toDense implements ToDense for any store
func toDense(o Matrix, r Range) (a *la.Matrix) {
	a = la.NewMatrix(r.Len(), r.Len())
	o.Each(Sub(r), func(i, j int, x float64) {
		a.Add(i-r.Lo, j-r.Lo, x)
	})
	return
}

// toTriplet implements ToTriplet for any store
func toTriplet(o Matrix, r Range, transp bool) (t *la.Triplet) {
	nnz := 0
	o.Each(Sub(r), func(i, j int, x float64) { nnz++ })
	t = new(la.Triplet)
	t.Init(r.Len(), r.Len(), nnz)
	o.Each(Sub(r), func(i, j int, x float64) {
		if transp {
			t.Put(j-r.Lo, i-r.Lo, x)
		} else {
			t.Put(i-r.Lo, j-r.Lo, x)
		}
	})
	return
}

// Dict ///////////////////////////////////////////////////////////////////////////////////////////

// Dict keeps the blocks in their slots; i.e. the matrix is never materialized
type Dict struct {
	Slots []*Slot
}

func init() {
	allocators["dict"] = func() Matrix { return new(Dict) }
}

// Build keeps the slots
func (o *Dict) Build(n int, slots []*Slot) { o.Slots = slots }

// Update does nothing; blocks are read directly
func (o *Dict) Update() {}

// MatVec computes y += J⋅x or y += Jᵀ⋅x block by block
func (o *Dict) MatVec(y, x []float64, f *Filter, transp bool) {
	for _, s := range o.Slots {
		if !f.slot(s) {
			continue
		}
		if transp {
			s.Blk.MulAdd(y[s.Col:s.Col+s.N], s.Factor, x[s.Row:s.Row+s.M], true)
		} else {
			s.Blk.MulAdd(y[s.Row:s.Row+s.M], s.Factor, x[s.Col:s.Col+s.N], false)
		}
	}
}

// Each visits the entries of all filtered blocks
func (o *Dict) Each(f *Filter, fcn func(i, j int, x float64)) {
	for _, s := range o.Slots {
		if !f.slot(s) {
			continue
		}
		s.Blk.Each(func(i, j int, x float64) {
			fcn(s.Row+i, s.Col+j, s.Factor*x)
		})
	}
}

// ToDense returns the diagonal block r
func (o *Dict) ToDense(r Range) *la.Matrix { return toDense(o, r) }

// ToTriplet returns the diagonal block r
func (o *Dict) ToTriplet(r Range, transp bool) *la.Triplet { return toTriplet(o, r, transp) }

// DenseMatrix ////////////////////////////////////////////////////////////////////////////////////

// DenseMatrix stores the whole n×n matrix
type DenseMatrix struct {
	Mat   *la.Matrix
	slots []*Slot
}

func init() {
	allocators["dense"] = func() Matrix { return new(DenseMatrix) }
}

// Build allocates the matrix
func (o *DenseMatrix) Build(n int, slots []*Slot) {
	o.Mat = la.NewMatrix(n, n)
	o.slots = slots
}

// Update zeroes the matrix and adds all blocks
func (o *DenseMatrix) Update() {
	o.Mat.Fill(0)
	for _, s := range o.slots {
		s.Blk.Each(func(i, j int, x float64) {
			o.Mat.Add(s.Row+i, s.Col+j, s.Factor*x)
		})
	}
}

// MatVec computes y += J⋅x or y += Jᵀ⋅x
func (o *DenseMatrix) MatVec(y, x []float64, f *Filter, transp bool) {
	o.Each(f, func(i, j int, a float64) {
		if transp {
			y[j] += a * x[i]
		} else {
			y[i] += a * x[j]
		}
	})
}

// Each visits filtered entries, including zeros
func (o *DenseMatrix) Each(f *Filter, fcn func(i, j int, x float64)) {
	for i := f.Rows.Lo; i < f.Rows.Hi; i++ {
		if f.SkipRows.Has(i) {
			continue
		}
		for j := f.Cols.Lo; j < f.Cols.Hi; j++ {
			if f.SkipCols.Has(j) {
				continue
			}
			fcn(i, j, o.Mat.Get(i, j))
		}
	}
}

// ToDense returns the diagonal block r
func (o *DenseMatrix) ToDense(r Range) (a *la.Matrix) {
	a = la.NewMatrix(r.Len(), r.Len())
	for i := r.Lo; i < r.Hi; i++ {
		for j := r.Lo; j < r.Hi; j++ {
			a.Set(i-r.Lo, j-r.Lo, o.Mat.Get(i, j))
		}
	}
	return
}

// ToTriplet returns the diagonal block r
func (o *DenseMatrix) ToTriplet(r Range, transp bool) *la.Triplet { return toTriplet(o, r, transp) }

// COO ////////////////////////////////////////////////////////////////////////////////////////////

// COO stores the matrix in coordinate format. Entries of all blocks are kept; repeated pairs
// accumulate on conversion
type COO struct {
	I, J  []int     // row and column indices
	X     []float64 // values
	slots []*Slot
	start []int // start of each slot in I, J and X
}

func init() {
	allocators["coo"] = func() Matrix { return new(COO) }
}

// Build sets the structure from the block patterns
func (o *COO) Build(n int, slots []*Slot) {
	o.slots = slots
	o.start = make([]int, len(slots)+1)
	for k, s := range slots {
		o.start[k+1] = o.start[k] + s.Blk.Nnz()
	}
	nnz := o.start[len(slots)]
	o.I = make([]int, 0, nnz)
	o.J = make([]int, 0, nnz)
	o.X = make([]float64, nnz)
	for _, s := range slots {
		s.Blk.Pattern(func(i, j int) {
			o.I = append(o.I, s.Row+i)
			o.J = append(o.J, s.Col+j)
		})
	}
}

// Update copies the block values
func (o *COO) Update() {
	for k, s := range o.slots {
		p := o.start[k]
		s.Blk.Each(func(i, j int, x float64) {
			o.X[p] = s.Factor * x
			p++
		})
	}
}

// MatVec computes y += J⋅x or y += Jᵀ⋅x
func (o *COO) MatVec(y, x []float64, f *Filter, transp bool) {
	for p, a := range o.X {
		i, j := o.I[p], o.J[p]
		if !f.Entry(i, j) {
			continue
		}
		if transp {
			y[j] += a * x[i]
		} else {
			y[i] += a * x[j]
		}
	}
}

// Each visits filtered entries
func (o *COO) Each(f *Filter, fcn func(i, j int, x float64)) {
	for p, a := range o.X {
		if f.Entry(o.I[p], o.J[p]) {
			fcn(o.I[p], o.J[p], a)
		}
	}
}

// ToDense returns the diagonal block r
func (o *COO) ToDense(r Range) *la.Matrix { return toDense(o, r) }

// ToTriplet returns the diagonal block r
func (o *COO) ToTriplet(r Range, transp bool) *la.Triplet { return toTriplet(o, r, transp) }

// CSRMatrix //////////////////////////////////////////////////////////////////////////////////////

// CSRMatrix stores the matrix in compressed-row format; repeated pairs are merged at Build
type CSRMatrix struct {
	CSR
	slots []*Slot
	pos   []int // position in Data of each block entry, in slot order
}

func init() {
	allocators["csr"] = func() Matrix { return new(CSRMatrix) }
}

// Build merges the block patterns into one compressed-row structure
func (o *CSRMatrix) Build(n int, slots []*Slot) {
	o.M, o.N = n, n
	o.slots = slots
	nnz := 0
	for _, s := range slots {
		nnz += s.Blk.Nnz()
	}
	o.pos = o.structure(nnz, func(fcn func(i, j int)) {
		for _, s := range slots {
			s.Blk.Pattern(func(i, j int) {
				fcn(s.Row+i, s.Col+j)
			})
		}
	})
}

// Update zeroes all values and adds the block values
func (o *CSRMatrix) Update() {
	o.Zero()
	k := 0
	for _, s := range o.slots {
		s.Blk.Each(func(i, j int, x float64) {
			o.Data[o.pos[k]] += s.Factor * x
			k++
		})
	}
}

// MatVec computes y += J⋅x or y += Jᵀ⋅x
func (o *CSRMatrix) MatVec(y, x []float64, f *Filter, transp bool) {
	for i := f.Rows.Lo; i < f.Rows.Hi; i++ {
		if f.SkipRows.Has(i) {
			continue
		}
		for p := o.Indptr[i]; p < o.Indptr[i+1]; p++ {
			j := o.Indices[p]
			if !f.Cols.Has(j) || f.SkipCols.Has(j) {
				continue
			}
			if transp {
				y[j] += o.Data[p] * x[i]
			} else {
				y[i] += o.Data[p] * x[j]
			}
		}
	}
}

// Each visits filtered entries
func (o *CSRMatrix) Each(f *Filter, fcn func(i, j int, x float64)) {
	for i := f.Rows.Lo; i < f.Rows.Hi; i++ {
		if f.SkipRows.Has(i) {
			continue
		}
		for p := o.Indptr[i]; p < o.Indptr[i+1]; p++ {
			if f.Entry(i, o.Indices[p]) {
				fcn(i, o.Indices[p], o.Data[p])
			}
		}
	}
}

// ToDense returns the diagonal block r
func (o *CSRMatrix) ToDense(r Range) *la.Matrix { return toDense(o, r) }

// ToTriplet returns the diagonal block r
func (o *CSRMatrix) ToTriplet(r Range, transp bool) *la.Triplet { return toTriplet(o, r, transp) }
