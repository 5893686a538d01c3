// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package jac implements partial derivative blocks and the global Jacobian matrix
package jac

import (
	"sort"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gosl/la"
)

// Block defines a block of partial derivatives with a fixed sparsity pattern.
// Each and Pattern visit entries in the same order
type Block interface {
	Shape() (m, n int)                                   // number of rows and columns
	Nnz() int                                            // number of stored entries
	Pattern(fcn func(i, j int))                          // visits the structure
	Each(fcn func(i, j int, x float64))                  // visits stored entries
	MulAdd(y []float64, α float64, x []float64, tr bool) // y += α⋅B⋅x or y += α⋅Bᵀ⋅x
	Zero()                                               // sets all stored values to zero
	Add(i, j int, x float64) bool                        // adds x to (i,j); false if (i,j) is not stored
}

// Dense //////////////////////////////////////////////////////////////////////////////////////////

// Dense holds a dense block
type Dense struct {
	Mat *la.Matrix
}

// NewDense returns a new zeroed dense block
func NewDense(m, n int) *Dense {
	return &Dense{la.NewMatrix(m, n)}
}

// Shape returns the number of rows and columns
func (o *Dense) Shape() (m, n int) { return o.Mat.M, o.Mat.N }

// Nnz returns m⋅n
func (o *Dense) Nnz() int { return o.Mat.M * o.Mat.N }

// Pattern visits all entries row by row
func (o *Dense) Pattern(fcn func(i, j int)) {
	for i := 0; i < o.Mat.M; i++ {
		for j := 0; j < o.Mat.N; j++ {
			fcn(i, j)
		}
	}
}

// Each visits all entries row by row
func (o *Dense) Each(fcn func(i, j int, x float64)) {
	for i := 0; i < o.Mat.M; i++ {
		for j := 0; j < o.Mat.N; j++ {
			fcn(i, j, o.Mat.Get(i, j))
		}
	}
}

// MulAdd computes y += α⋅B⋅x or y += α⋅Bᵀ⋅x
func (o *Dense) MulAdd(y []float64, α float64, x []float64, tr bool) {
	for i := 0; i < o.Mat.M; i++ {
		for j := 0; j < o.Mat.N; j++ {
			if tr {
				y[j] += α * o.Mat.Get(i, j) * x[i]
			} else {
				y[i] += α * o.Mat.Get(i, j) * x[j]
			}
		}
	}
}

// Zero sets all values to zero
func (o *Dense) Zero() { o.Mat.Fill(0) }

// Add adds x to (i,j)
func (o *Dense) Add(i, j int, x float64) bool {
	if i < 0 || i >= o.Mat.M || j < 0 || j >= o.Mat.N {
		return false
	}
	o.Mat.Add(i, j, x)
	return true
}

// Triplet ////////////////////////////////////////////////////////////////////////////////////////

// Triplet holds a sparse block in coordinate format. Repeated (i,j) pairs are summed
type Triplet struct {
	M, N int       // shape
	Rows []int     // row indices
	Cols []int     // column indices
	Vals []float64 // values

	index map[int]int // maps i⋅N+j to the first position of (i,j); built on demand
}

// NewTriplet returns a new triplet block. vals may be nil (zero values)
func NewTriplet(m, n int, rows, cols []int, vals []float64) (o *Triplet, err error) {
	if len(rows) != len(cols) {
		return nil, errs.New(errs.ShapeMismatch, "triplet has %d row indices but %d column indices", len(rows), len(cols))
	}
	if vals != nil && len(vals) != len(rows) {
		return nil, errs.New(errs.ShapeMismatch, "triplet has %d values but %d indices", len(vals), len(rows))
	}
	for k := range rows {
		if rows[k] < 0 || rows[k] >= m || cols[k] < 0 || cols[k] >= n {
			return nil, errs.New(errs.ShapeMismatch, "triplet entry (%d,%d) is outside block of shape (%d,%d)", rows[k], cols[k], m, n)
		}
	}
	o = &Triplet{M: m, N: n, Rows: rows, Cols: cols, Vals: make([]float64, len(rows))}
	copy(o.Vals, vals)
	return
}

// Shape returns the number of rows and columns
func (o *Triplet) Shape() (m, n int) { return o.M, o.N }

// Nnz returns the number of stored entries
func (o *Triplet) Nnz() int { return len(o.Vals) }

// Pattern visits entries in stored order
func (o *Triplet) Pattern(fcn func(i, j int)) {
	for k := range o.Rows {
		fcn(o.Rows[k], o.Cols[k])
	}
}

// Each visits entries in stored order
func (o *Triplet) Each(fcn func(i, j int, x float64)) {
	for k := range o.Rows {
		fcn(o.Rows[k], o.Cols[k], o.Vals[k])
	}
}

// MulAdd computes y += α⋅B⋅x or y += α⋅Bᵀ⋅x
func (o *Triplet) MulAdd(y []float64, α float64, x []float64, tr bool) {
	for k, v := range o.Vals {
		if tr {
			y[o.Cols[k]] += α * v * x[o.Rows[k]]
		} else {
			y[o.Rows[k]] += α * v * x[o.Cols[k]]
		}
	}
}

// Zero sets all values to zero
func (o *Triplet) Zero() {
	for k := range o.Vals {
		o.Vals[k] = 0
	}
}

// Add adds x to the first stored (i,j)
func (o *Triplet) Add(i, j int, x float64) bool {
	if o.index == nil {
		o.index = make(map[int]int, len(o.Rows))
		for k := len(o.Rows) - 1; k >= 0; k-- {
			o.index[o.Rows[k]*o.N+o.Cols[k]] = k
		}
	}
	k, ok := o.index[i*o.N+j]
	if !ok || i < 0 || j < 0 || i >= o.M || j >= o.N {
		return false
	}
	o.Vals[k] += x
	return true
}

// CSR ////////////////////////////////////////////////////////////////////////////////////////////

// CSR holds a sparse block in compressed-row format
type CSR struct {
	M, N    int       // shape
	Indptr  []int     // [M+1] start of each row in Indices and Data
	Indices []int     // column indices
	Data    []float64 // values
}

// NewCSR builds a compressed-row block from triplets. Repeated entries are summed and columns
// are sorted within each row
func NewCSR(m, n int, rows, cols []int, vals []float64) (o *CSR, err error) {
	t, err := NewTriplet(m, n, rows, cols, vals)
	if err != nil {
		return
	}
	o = &CSR{M: m, N: n}
	pos := o.structure(len(rows), func(fcn func(i, j int)) { t.Pattern(fcn) })
	for k, v := range t.Vals {
		o.Data[pos[k]] += v
	}
	return
}

// structure sets Indptr and Indices from the entries visited by pattern and allocates Data.
// It returns the position in Data of each visited entry
func (o *CSR) structure(nnz int, pattern func(fcn func(i, j int))) (pos []int) {
	type entry struct{ i, j, k int }
	entries := make([]entry, 0, nnz)
	k := 0
	pattern(func(i, j int) {
		entries = append(entries, entry{i, j, k})
		k++
	})
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].i == entries[b].i {
			return entries[a].j < entries[b].j
		}
		return entries[a].i < entries[b].i
	})
	o.Indptr = make([]int, o.M+1)
	o.Indices = make([]int, 0, len(entries))
	pos = make([]int, len(entries))
	for idx, e := range entries {
		if idx == 0 || e.i != entries[idx-1].i || e.j != entries[idx-1].j {
			o.Indices = append(o.Indices, e.j)
			o.Indptr[e.i+1]++
		}
		pos[e.k] = len(o.Indices) - 1
	}
	for i := 0; i < o.M; i++ {
		o.Indptr[i+1] += o.Indptr[i]
	}
	o.Data = make([]float64, len(o.Indices))
	return
}

// Shape returns the number of rows and columns
func (o *CSR) Shape() (m, n int) { return o.M, o.N }

// Nnz returns the number of stored entries
func (o *CSR) Nnz() int { return len(o.Data) }

// Pattern visits entries row by row
func (o *CSR) Pattern(fcn func(i, j int)) {
	for i := 0; i < o.M; i++ {
		for p := o.Indptr[i]; p < o.Indptr[i+1]; p++ {
			fcn(i, o.Indices[p])
		}
	}
}

// Each visits entries row by row
func (o *CSR) Each(fcn func(i, j int, x float64)) {
	for i := 0; i < o.M; i++ {
		for p := o.Indptr[i]; p < o.Indptr[i+1]; p++ {
			fcn(i, o.Indices[p], o.Data[p])
		}
	}
}

// MulAdd computes y += α⋅B⋅x or y += α⋅Bᵀ⋅x
func (o *CSR) MulAdd(y []float64, α float64, x []float64, tr bool) {
	for i := 0; i < o.M; i++ {
		for p := o.Indptr[i]; p < o.Indptr[i+1]; p++ {
			if tr {
				y[o.Indices[p]] += α * o.Data[p] * x[i]
			} else {
				y[i] += α * o.Data[p] * x[o.Indices[p]]
			}
		}
	}
}

// Zero sets all values to zero
func (o *CSR) Zero() {
	for p := range o.Data {
		o.Data[p] = 0
	}
}

// Add adds x to (i,j)
func (o *CSR) Add(i, j int, x float64) bool {
	if i < 0 || i >= o.M {
		return false
	}
	lo, hi := o.Indptr[i], o.Indptr[i+1]
	p := lo + sort.SearchInts(o.Indices[lo:hi], j)
	if p == hi || o.Indices[p] != j {
		return false
	}
	o.Data[p] += x
	return true
}

// Identity ///////////////////////////////////////////////////////////////////////////////////////

// Identity is the n×n identity block; e.g. ∂R/∂y of explicit components where R = y - f(x)
type Identity struct {
	N int
}

// Shape returns n, n
func (o *Identity) Shape() (m, n int) { return o.N, o.N }

// Nnz returns n
func (o *Identity) Nnz() int { return o.N }

// Pattern visits the diagonal
func (o *Identity) Pattern(fcn func(i, j int)) {
	for i := 0; i < o.N; i++ {
		fcn(i, i)
	}
}

// Each visits the diagonal
func (o *Identity) Each(fcn func(i, j int, x float64)) {
	for i := 0; i < o.N; i++ {
		fcn(i, i, 1)
	}
}

// MulAdd computes y += α⋅x
func (o *Identity) MulAdd(y []float64, α float64, x []float64, tr bool) {
	for i := 0; i < o.N; i++ {
		y[i] += α * x[i]
	}
}

// Zero does nothing; the identity is constant
func (o *Identity) Zero() {}

// Add does nothing and returns false; the identity is constant
func (o *Identity) Add(i, j int, x float64) bool { return false }
