// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package metamodel implements interpolation of training data as components
package metamodel

import (
	"math"
	"sort"

	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/vec"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/utl"
)

// Table holds the training data of one variable
type Table struct {
	Name  string    `json:"name"`  // name of variable
	Data  []float64 `json:"data"`  // one value per training point
	Units string    `json:"units"` // units of variable
}

// SemiStructured interpolates training data given on a semi-structured grid: points are sorted
// lexicographically and, for each value of one input, the values of the next input may differ
type SemiStructured struct {
	Method                string   `json:"method"`                  // "slinear" (default), "lagrange2", "lagrange3" or "akima"
	Extrapolate           bool     `json:"extrapolate"`             // allow points outside the grid
	TrainingDataGradients bool     `json:"training_data_gradients"` // training values are inputs named <out>_train
	VecSize               int      `json:"vec_size"`                // number of points evaluated at once
	Inputs                []*Table `json:"inputs"`                  // training points
	Outputs               []*Table `json:"outputs"`                 // training values

	// derived
	name string // absolute name; for messages
	root *node  // grid of first input
	npts int    // number of training points
}

// value holds an interpolated value and its derivatives
type value struct {
	f  float64
	dx []float64       // derivatives with respect to each input
	dt map[int]float64 // derivatives with respect to the training values; by training point
}

// node holds the grid of one input for fixed values of the previous inputs
type node struct {
	grid []float64 // sorted unique values
	subs []*node   // grids of the next input; nil at the last input
	idx  []int     // last input: indices of training points
}

// add component to factory
func init() {
	comp.SetAllocator("metamodel.semi", func(prms map[string]interface{}) (comp.Component, error) {
		o := new(SemiStructured)
		return o, inp.Decode(prms, o, "metamodel.semi")
	})
}

// NewSemiStructured returns a new component; method is "slinear", "lagrange2", "lagrange3" or "akima"
func NewSemiStructured(method string) *SemiStructured {
	return &SemiStructured{Method: method}
}

// AddInput adds an input with its values at the training points
func (o *SemiStructured) AddInput(name string, data []float64) *SemiStructured {
	o.Inputs = append(o.Inputs, &Table{Name: name, Data: data})
	return o
}

// AddOutput adds an output with its training values
func (o *SemiStructured) AddOutput(name string, data []float64) *SemiStructured {
	o.Outputs = append(o.Outputs, &Table{Name: name, Data: data})
	return o
}

// Setup checks the training data, builds the grids and declares the variables
func (o *SemiStructured) Setup(d *comp.Decl) (err error) {
	o.name = d.Name
	if o.Method == "" {
		o.Method = "slinear"
	}
	switch o.Method {
	case "slinear", "lagrange2", "lagrange3", "akima":
	default:
		return errs.New(errs.ConfigurationError, "%s: method %q is not available. Use slinear, lagrange2, lagrange3 or akima", o.name, o.Method)
	}
	if o.VecSize < 1 {
		o.VecSize = 1
	}
	if len(o.Inputs) == 0 || len(o.Outputs) == 0 {
		return errs.New(errs.ConfigurationError, "%s: at least one input and one output are required", o.name)
	}
	first := o.Inputs[0]
	o.npts = len(first.Data)
	others := append(append([]*Table{}, o.Inputs[1:]...), o.Outputs...)
	for _, t := range others {
		if len(t.Data) != o.npts {
			return errs.New(errs.ShapeMismatch, "Size mismatch: training data for '%s' is length %d, but data for '%s' is length %d.", t.Name, len(t.Data), first.Name, o.npts)
		}
	}
	if o.npts == 0 {
		return errs.New(errs.ConfigurationError, "%s: training data is empty", o.name)
	}
	if o.root, err = o.build(o.sorted(), 0); err != nil {
		return
	}

	// variables
	diag := make([]int, o.VecSize)
	for k := range diag {
		diag[k] = k
	}
	for _, t := range o.Inputs {
		val := make([]float64, o.VecSize)
		for k := range val {
			val[k] = t.Data[0]
		}
		d.AddInput(t.Name, val, o.VecSize).Units = t.Units
	}
	for _, t := range o.Outputs {
		d.AddOutput(t.Name, make([]float64, o.VecSize), o.VecSize).Units = t.Units
		for _, x := range o.Inputs {
			d.DeclarePartials(t.Name, x.Name, diag, diag)
		}
		if o.TrainingDataGradients {
			d.AddInput(t.Name+"_train", append([]float64{}, t.Data...), o.npts)
			d.DeclarePartials(t.Name, t.Name+"_train", nil, nil)
		}
	}
	return
}

// Compute interpolates all outputs
func (o *SemiStructured) Compute(in, out *vec.Vector) error {
	x := make([]float64, len(o.Inputs))
	for _, t := range o.Outputs {
		vals := o.values(in, t)
		for k := 0; k < o.VecSize; k++ {
			o.point(in, k, x)
			r, err := o.root.eval(x, vals, o, 0)
			if err != nil {
				return err
			}
			out.Get(t.Name)[k] = r.f
		}
	}
	return nil
}

// ComputePartials computes the derivatives of all outputs with respect to the inputs and, if
// requested, the training values
func (o *SemiStructured) ComputePartials(in *vec.Vector, p *comp.Partials) error {
	x := make([]float64, len(o.Inputs))
	dfdx := utl.Alloc(len(o.Inputs), o.VecSize)
	for _, t := range o.Outputs {
		vals := o.values(in, t)
		var dfdt [][]float64
		if o.TrainingDataGradients {
			dfdt = utl.Alloc(o.VecSize, o.npts)
		}
		for k := 0; k < o.VecSize; k++ {
			o.point(in, k, x)
			r, err := o.root.eval(x, vals, o, 0)
			if err != nil {
				return err
			}
			for i := range dfdx {
				dfdx[i][k] = r.dx[i]
			}
			if dfdt != nil {
				for idx, w := range r.dt {
					dfdt[k][idx] = w
				}
			}
		}
		for i, s := range o.Inputs {
			p.SetDiag(t.Name, s.Name, dfdx[i])
		}
		if dfdt != nil {
			p.SetDense(t.Name, t.Name+"_train", dfdt)
		}
	}
	return nil
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// values returns the training values of output t
func (o *SemiStructured) values(in *vec.Vector, t *Table) []float64 {
	if o.TrainingDataGradients {
		return in.Get(t.Name + "_train")
	}
	return t.Data
}

// point sets x with the inputs of point k
func (o *SemiStructured) point(in *vec.Vector, k int, x []float64) {
	for i, t := range o.Inputs {
		x[i] = in.Get(t.Name)[k]
	}
}

// sorted returns the indices of training points sorted lexicographically
func (o *SemiStructured) sorted() (perm []int) {
	perm = make([]int, o.npts)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		for _, t := range o.Inputs {
			if t.Data[perm[a]] != t.Data[perm[b]] {
				return t.Data[perm[a]] < t.Data[perm[b]]
			}
		}
		return false
	})
	return
}

// build builds the grid of input dim for the sorted points in perm
func (o *SemiStructured) build(perm []int, dim int) (n *node, err error) {
	n = new(node)
	data := o.Inputs[dim].Data
	last := dim == len(o.Inputs)-1
	for lo := 0; lo < len(perm); {
		hi := lo + 1
		for hi < len(perm) && data[perm[hi]] == data[perm[lo]] {
			hi++
		}
		n.grid = append(n.grid, data[perm[lo]])
		if last {
			if hi-lo > 1 {
				return nil, errs.New(errs.ConfigurationError, "%s: training point %d is repeated", o.name, perm[lo])
			}
			n.idx = append(n.idx, perm[lo])
		} else {
			var sub *node
			if sub, err = o.build(perm[lo:hi], dim+1); err != nil {
				return
			}
			n.subs = append(n.subs, sub)
		}
		lo = hi
	}
	return
}

// eval returns the value interpolated at x[dim:] and its derivatives; vals are the training values
func (n *node) eval(x, vals []float64, o *SemiStructured, dim int) (r *value, err error) {
	g := n.grid
	m := len(g)
	if !o.Extrapolate && (x[dim] < g[0] || x[dim] > g[m-1]) {
		err = errs.New(errs.ConfigurationError, "%s: extrapolation while evaluating dimension %d of %d ('%s'): %g is outside [%g, %g]",
			o.name, dim+1, len(o.Inputs), o.Inputs[dim].Name, x[dim], g[0], g[m-1])
		return
	}

	// values at the grid points of the stencil
	method := degrade(o.Method, m)
	i, lo, hi := stencil(g, x[dim], method)
	subs := make([]*value, hi-lo)
	v := make([]float64, hi-lo)
	for k := lo; k < hi; k++ {
		if n.subs == nil {
			idx := n.idx[k]
			subs[k-lo] = &value{f: vals[idx], dx: make([]float64, len(x)), dt: map[int]float64{idx: 1}}
		} else if subs[k-lo], err = n.subs[k].eval(x, vals, o, dim+1); err != nil {
			return
		}
		v[k-lo] = subs[k-lo].f
	}

	// chain rule
	f, dfdx, dfdv := interp(g, x[dim], method, i, lo, v)
	r = &value{f: f, dx: make([]float64, len(x)), dt: make(map[int]float64)}
	r.dx[dim] = dfdx
	for k, s := range subs {
		for d := dim + 1; d < len(x); d++ {
			r.dx[d] += dfdv[k] * s.dx[d]
		}
		for idx, w := range s.dt {
			r.dt[idx] += dfdv[k] * w
		}
	}
	return
}

// degrade returns the method used on a grid with m points. Grids too small for method use a lower
// order
func degrade(method string, m int) string {
	switch {
	case m < 3:
		return "slinear"
	case m < 4 && method == "lagrange3":
		return "lagrange2"
	}
	return method
}

// stencil returns the interval i containing x and the range [lo, hi) of grid points used by method
func stencil(g []float64, x float64, method string) (i, lo, hi int) {
	m := len(g)
	if m == 1 {
		return 0, 0, 1
	}
	i = clamp(sort.Search(m, func(k int) bool { return g[k] > x })-1, 0, m-2)
	switch method {
	case "lagrange2":
		lo = clamp(i, 0, m-3)
		return i, lo, lo + 3
	case "lagrange3":
		lo = clamp(i-1, 0, m-4)
		return i, lo, lo + 4
	case "akima":
		return i, utl.Imax(0, i-2), utl.Imin(m, i+4)
	}
	return i, i, i + 2
}

// interp interpolates the values v given at g[lo:] and returns the derivatives with respect to x
// and v. i is the interval containing x
func interp(g []float64, x float64, method string, i, lo int, v []float64) (f, dfdx float64, dfdv []float64) {
	if len(v) == 1 {
		return v[0], 0, []float64{1}
	}
	if method == "akima" {
		return akima(g, x, i, lo, v)
	}
	c, dc := lagrange(g[lo:lo+len(v)], x)
	for k := range v {
		f += c[k] * v[k]
		dfdx += dc[k] * v[k]
	}
	return f, dfdx, c
}

// lagrange returns the Lagrange polynomials through points p evaluated at x and their derivatives
func lagrange(p []float64, x float64) (c, dc []float64) {
	n := len(p)
	c = make([]float64, n)
	dc = make([]float64, n)
	for k := 0; k < n; k++ {
		c[k] = 1
		for l := 0; l < n; l++ {
			if l == k {
				continue
			}
			c[k] *= (x - p[l]) / (p[k] - p[l])
			d := 1 / (p[k] - p[l])
			for q := 0; q < n; q++ {
				if q != k && q != l {
					d *= (x - p[q]) / (p[k] - p[q])
				}
			}
			dc[k] += d
		}
	}
	return
}

// akima evaluates the Akima spline through the grid g on interval i. v holds the values at
// g[lo:]; it must cover the segments i-2 to i+2 or, near the ends, three end points. Segments
// beyond the ends have linearly extrapolated slopes
func akima(g []float64, x float64, i, lo int, v []float64) (f, dfdx float64, dfdv []float64) {
	m, nv := len(g), len(v)

	// seg adds α times the slope of segment j to ds and returns it
	seg := func(j int, α float64, ds []float64) float64 {
		h := g[j+1] - g[j]
		ds[j+1-lo] += α / h
		ds[j-lo] -= α / h
		return α * (v[j+1-lo] - v[j-lo]) / h
	}

	// slope returns the slope of segment j and its derivatives with respect to v
	slope := func(j int) (s float64, ds []float64) {
		ds = make([]float64, nv)
		switch {
		case j < 0:
			s = seg(0, float64(1-j), ds) + seg(1, float64(j), ds)
		case j > m-2:
			e := float64(j - m + 2)
			s = seg(m-2, 1+e, ds) + seg(m-3, -e, ds)
		default:
			s = seg(j, 1, ds)
		}
		return
	}

	// tangent returns the derivative of the spline at point p and its derivatives with respect to v
	tangent := func(p int) (t float64, dt []float64) {
		m1, d1 := slope(p - 2)
		m2, d2 := slope(p - 1)
		m3, d3 := slope(p)
		m4, d4 := slope(p + 1)
		w1, w2 := math.Abs(m4-m3), math.Abs(m2-m1)
		dt = make([]float64, nv)
		if w1+w2 == 0 {
			t = (m2 + m3) / 2
			for k := range dt {
				dt[k] = (d2[k] + d3[k]) / 2
			}
			return
		}
		s1, s2 := fun.Sign(m4-m3), fun.Sign(m2-m1)
		t = (w1*m2 + w2*m3) / (w1 + w2)
		for k := range dt {
			dw1, dw2 := s1*(d4[k]-d3[k]), s2*(d2[k]-d1[k])
			dt[k] = (dw1*m2 + w1*d2[k] + dw2*m3 + w2*d3[k] - t*(dw1+dw2)) / (w1 + w2)
		}
		return
	}

	// cubic Hermite polynomial on interval i
	t0, dt0 := tangent(i)
	t1, dt1 := tangent(i + 1)
	h := g[i+1] - g[i]
	s := (x - g[i]) / h
	s2, s3 := s*s, s*s*s
	h00, h10, h01, h11 := 2*s3-3*s2+1, s3-2*s2+s, 3*s2-2*s3, s3-s2
	v0, v1 := v[i-lo], v[i+1-lo]
	f = h00*v0 + h10*h*t0 + h01*v1 + h11*h*t1
	dfdx = ((6*s2-6*s)*v0 + (3*s2-4*s+1)*h*t0 + (6*s-6*s2)*v1 + (3*s2-2*s)*h*t1) / h
	dfdv = make([]float64, nv)
	for k := range dfdv {
		dfdv[k] = h10*h*dt0[k] + h11*h*dt1[k]
	}
	dfdv[i-lo] += h00
	dfdv[i+1-lo] += h01
	return
}

// clamp returns i limited to [lo, hi]
func clamp(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}
