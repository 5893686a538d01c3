// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comp

import (
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/jac"
)

// Key identifies a block of partials by local names
type Key struct {
	Of, Wrt string
}

// Partials holds the blocks of partials of one component. The structure of blocks is fixed by the
// declarations; setters only change values
type Partials struct {
	Name   string            // absolute name of component; for messages
	Keys   []Key             // blocks in declaration order
	Blocks map[Key]jac.Block // all blocks
	Sizes  map[string]int    // sizes of variables by local name
}

// NewPartials allocates the blocks declared in d
func NewPartials(d *Decl) (o *Partials, err error) {
	o = &Partials{
		Name:   d.Name,
		Blocks: make(map[Key]jac.Block),
		Sizes:  make(map[string]int),
	}
	for _, v := range d.vars {
		o.Sizes[v.Local] = v.Size
	}
	for _, p := range d.Partials {
		key := Key{p.Of, p.Wrt}
		m, n := o.Sizes[p.Of], o.Sizes[p.Wrt]
		var blk jac.Block
		switch p.Kind {
		case "dense":
			dense := jac.NewDense(m, n)
			if p.Val != nil {
				for i := 0; i < m; i++ {
					for j := 0; j < n; j++ {
						dense.Mat.Set(i, j, p.Val[i*n+j])
					}
				}
			}
			blk = dense
		case "triplet":
			blk, err = jac.NewTriplet(m, n, p.Rows, p.Cols, p.Val)
		case "csr":
			blk, err = jac.NewCSR(m, n, p.Rows, p.Cols, nil)
		default:
			err = errs.New(errs.ConfigurationError, "kind of partial %q is not available", p.Kind)
		}
		if err != nil {
			return
		}
		o.Keys = append(o.Keys, key)
		o.Blocks[key] = blk
	}
	return
}

// Has tells whether partial (of,wrt) has been declared
func (o *Partials) Has(of, wrt string) bool {
	_, ok := o.Blocks[Key{of, wrt}]
	return ok
}

// Get returns the block of partial (of,wrt). It panics if the partial has not been declared
func (o *Partials) Get(of, wrt string) jac.Block {
	blk, ok := o.Blocks[Key{of, wrt}]
	if !ok {
		panic(errs.New(errs.NameNotFound, "partial (%q, %q) of %s has not been declared", of, wrt, o.Name))
	}
	return blk
}

// SetDense sets the values of partial (of,wrt) from a dense matrix
func (o *Partials) SetDense(of, wrt string, val [][]float64) {
	blk := o.Get(of, wrt)
	m, n := blk.Shape()
	if len(val) != m {
		panic(o.mismatch("dense", of, wrt))
	}
	for _, row := range val {
		if len(row) != n {
			panic(o.mismatch("dense", of, wrt))
		}
	}
	if dense, ok := blk.(*jac.Dense); ok {
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				dense.Mat.Set(i, j, val[i][j])
			}
		}
		return
	}
	o.fill(blk, of, wrt, func(fcn func(i, j int, x float64)) {
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				fcn(i, j, val[i][j])
			}
		}
	})
}

// SetDiag sets the diagonal of partial (of,wrt); other entries are zero
func (o *Partials) SetDiag(of, wrt string, diag []float64) {
	blk := o.Get(of, wrt)
	m, n := blk.Shape()
	if m != n || len(diag) != m {
		panic(o.mismatch("diagonal", of, wrt))
	}
	o.fill(blk, of, wrt, func(fcn func(i, j int, x float64)) {
		for i, x := range diag {
			fcn(i, i, x)
		}
	})
}

// SetTriplet sets the values of partial (of,wrt) from triplets; repeated entries are summed
func (o *Partials) SetTriplet(of, wrt string, vals []float64, rows, cols []int) {
	blk := o.Get(of, wrt)
	if len(vals) != len(rows) || len(rows) != len(cols) {
		panic(o.mismatch("triplet", of, wrt))
	}
	if t, ok := blk.(*jac.Triplet); ok && sameIndices(t.Rows, rows) && sameIndices(t.Cols, cols) {
		copy(t.Vals, vals)
		return
	}
	m, n := blk.Shape()
	for k := range rows {
		if rows[k] < 0 || rows[k] >= m || cols[k] < 0 || cols[k] >= n {
			panic(o.mismatch("triplet", of, wrt))
		}
	}
	o.fill(blk, of, wrt, func(fcn func(i, j int, x float64)) {
		for k, x := range vals {
			fcn(rows[k], cols[k], x)
		}
	})
}

// SetCSR sets the values of partial (of,wrt) from a compressed-row matrix
func (o *Partials) SetCSR(of, wrt string, a *jac.CSR) {
	blk := o.Get(of, wrt)
	m, n := blk.Shape()
	if a.M != m || a.N != n {
		panic(o.mismatch("csr", of, wrt))
	}
	if c, ok := blk.(*jac.CSR); ok && sameIndices(c.Indptr, a.Indptr) && sameIndices(c.Indices, a.Indices) {
		copy(c.Data, a.Data)
		return
	}
	o.fill(blk, of, wrt, a.Each)
}

// SetScalar sets all stored entries of partial (of,wrt) to v
func (o *Partials) SetScalar(of, wrt string, v float64) {
	o.SetFunc(of, wrt, func(i, j int) float64 { return v })
}

// SetFunc sets all stored entries (i,j) of partial (of,wrt) to fcn(i,j)
func (o *Partials) SetFunc(of, wrt string, fcn func(i, j int) float64) {
	blk := o.Get(of, wrt)
	pattern := make([][2]int, 0, blk.Nnz())
	blk.Pattern(func(i, j int) { pattern = append(pattern, [2]int{i, j}) })
	blk.Zero()
	seen := make(map[[2]int]bool, len(pattern))
	for _, ij := range pattern {
		if seen[ij] {
			continue
		}
		seen[ij] = true
		blk.Add(ij[0], ij[1], fcn(ij[0], ij[1]))
	}
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// fill zeroes blk and adds all entries visited by each. Non-zero entries outside the declared
// sparsity cause a panic
func (o *Partials) fill(blk jac.Block, of, wrt string, each func(fcn func(i, j int, x float64))) {
	blk.Zero()
	each(func(i, j int, x float64) {
		if !blk.Add(i, j, x) && x != 0 {
			panic(errs.New(errs.ShapeMismatch, "entry (%d,%d) of partial (%q, %q) of %s is outside the declared sparsity", i, j, of, wrt, o.Name))
		}
	})
}

// mismatch returns the error for values whose shape does not fit the block
func (o *Partials) mismatch(kind, of, wrt string) error {
	return errs.New(errs.ShapeMismatch, "%s partial shape mismatch between '%s' (%d) and '%s' (%d)", kind, of, o.Sizes[of], wrt, o.Sizes[wrt])
}

// sameIndices tells whether a and b are equal
func sameIndices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
