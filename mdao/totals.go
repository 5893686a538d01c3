// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/vec"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
)

// TotalKey identifies a block of total derivatives by the names given to ComputeTotals
type TotalKey struct {
	Of, Wrt string
}

// Totals holds blocks of total derivatives d(of)/d(wrt) with shape [size of][size wrt]
type Totals map[TotalKey][][]float64

// ComputeTotals computes the total derivatives of outputs of with respect to variables wrt. Names
// are promoted or absolute; inputs are replaced by their source outputs. Auto selects Fwd if the
// total size of wrt is not larger than the total size of of. The model is run first if needed
func (o *Problem) ComputeTotals(of, wrt []string, mode Mode) (tot Totals, err error) {
	if err = o.checkSetup(); err != nil {
		return
	}
	defer errs.Recover(&err, errs.ConfigurationError)

	// variables
	ofs, nof, err := o.resolve(of)
	if err != nil {
		return
	}
	wrts, nwrt, err := o.resolve(wrt)
	if err != nil {
		return
	}
	if mode == Auto {
		mode = Rev
		if nwrt <= nof {
			mode = Fwd
		}
	}

	// linearization
	if !o.ran {
		if err = o.RunModel(); err != nil {
			return
		}
	}
	if err = o.Model.Linearize(); err != nil {
		return
	}

	// results
	tot = make(Totals)
	for i, a := range ofs {
		for j, b := range wrts {
			tot[TotalKey{of[i], wrt[j]}] = utl.Alloc(a.Size, b.Size)
		}
	}

	// one linear solve per seed
	if mode == Fwd {
		for j, b := range wrts {
			for jj := 0; jj < b.Size; jj++ {
				err = o.LinearContext(func(din, dout, dres *vec.Vector) error {
					dres.Data[b.Offset+jj] = 1
					if e := o.Model.solveLinear(Fwd); e != nil {
						return e
					}
					for i, a := range ofs {
						d := tot[TotalKey{of[i], wrt[j]}]
						for ii := 0; ii < a.Size; ii++ {
							d[ii][jj] = dout.Data[a.Offset+ii]
						}
					}
					return nil
				})
				if err != nil {
					return
				}
			}
		}
	} else {
		for i, a := range ofs {
			for ii := 0; ii < a.Size; ii++ {
				err = o.LinearContext(func(din, dout, dres *vec.Vector) error {
					dout.Data[a.Offset+ii] = 1
					if e := o.Model.solveLinear(Rev); e != nil {
						return e
					}
					for j, b := range wrts {
						d := tot[TotalKey{of[i], wrt[j]}]
						for jj := 0; jj < b.Size; jj++ {
							d[ii][jj] = dres.Data[b.Offset+jj]
						}
					}
					return nil
				})
				if err != nil {
					return
				}
			}
		}
	}
	if o.Verbose && o.Model.LinInfo != nil {
		io.Pf("totals: %d of, %d wrt, mode %s, last linear solve %s\n", len(of), len(wrt), mode, o.Model.LinInfo.Status)
	}
	return
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// resolve returns the source outputs of names and their total size
func (o *Problem) resolve(names []string) (vars []*vec.Var, size int, err error) {
	vars = make([]*vec.Var, len(names))
	for i, name := range names {
		if vars[i], err = o.source(name); err != nil {
			return
		}
		size += vars[i].Size
	}
	return
}
