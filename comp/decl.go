// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comp

import (
	"path"
	"strings"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/vec"
)

// VarMeta holds a variable being declared. Units and bounds may be set after AddInput/AddOutput
type VarMeta struct {
	*vec.Var
	Desc   string // description
	Output bool   // is output
}

// PartialDecl holds the declaration of one block of partials
type PartialDecl struct {
	Of, Wrt string    // local names of row (output/residual) and column (input/output) variables
	Kind    string    // "dense", "triplet" or "csr"
	Rows    []int     // row indices of sparse kinds
	Cols    []int     // column indices of sparse kinds
	Val     []float64 // constant values; row-major for dense. nil means computed
}

// Decl collects the declarations of a component during setup
type Decl struct {
	Name     string         // absolute name of component; for messages
	Inputs   []*VarMeta     // inputs in declaration order
	Outputs  []*VarMeta     // outputs in declaration order
	Partials []*PartialDecl // partials in declaration order
	Method   string         // approximation method: "fd", "cs" or "" (exact)
	Step     float64        // approximation step
	Form     string         // finite difference form: "forward", "backward" or "central"
	Explicit bool           // wrt patterns match inputs only

	vars   map[string]*VarMeta // all variables by local name
	errors []error             // errors found while declaring
}

// NewDecl returns a new declaration collector for component named name
func NewDecl(name string) *Decl {
	return &Decl{Name: name, vars: make(map[string]*VarMeta)}
}

// AddInput declares an input. Without shape, the shape is [len(val)]; an empty val means ones
func (o *Decl) AddInput(name string, val []float64, shape ...int) *VarMeta {
	return o.add(name, val, shape, false)
}

// AddOutput declares an output. Without shape, the shape is [len(val)]; an empty val means ones
func (o *Decl) AddOutput(name string, val []float64, shape ...int) *VarMeta {
	return o.add(name, val, shape, true)
}

// DeclarePartials declares the partials of the outputs matching of with respect to the variables
// matching wrt. Patterns are names, "*" or globs. nil rows and cols mean a dense block. Optional
// val sets constant values: one value for all entries or one per entry
func (o *Decl) DeclarePartials(of, wrt string, rows, cols []int, val ...float64) {
	kind := "dense"
	if rows != nil || cols != nil {
		kind = "triplet"
	}
	o.declare(of, wrt, kind, rows, cols, val)
}

// DeclareCSR declares sparse partials stored in compressed-row format
func (o *Decl) DeclareCSR(of, wrt string, rows, cols []int) {
	o.declare(of, wrt, "csr", rows, cols, nil)
}

// DeclareDense declares constant dense partials
func (o *Decl) DeclareDense(of, wrt string, val [][]float64) {
	a, b := o.vars[of], o.vars[wrt]
	if a == nil || b == nil || !a.Output {
		o.errors = append(o.errors, errs.New(errs.NameNotFound, "cannot declare partial (%q, %q) of %s", of, wrt, o.Name))
		return
	}
	if len(val) != a.Size {
		o.errors = append(o.errors, mismatch("dense", a, b))
		return
	}
	flat := make([]float64, 0, a.Size*b.Size)
	for _, row := range val {
		if len(row) != b.Size {
			o.errors = append(o.errors, mismatch("dense", a, b))
			return
		}
		flat = append(flat, row...)
	}
	o.put(&PartialDecl{Of: of, Wrt: wrt, Kind: "dense", Val: flat})
}

// DeclareAll declares dense partials of all outputs with respect to all inputs and, if withOutputs,
// all outputs. Pairs already declared are kept
func (o *Decl) DeclareAll(withOutputs bool) {
	wrts := o.Inputs
	if withOutputs {
		wrts = append(append([]*VarMeta{}, o.Inputs...), o.Outputs...)
	}
	for _, a := range o.Outputs {
		for _, b := range wrts {
			if o.Find(a.Local, b.Local) == nil {
				o.put(&PartialDecl{Of: a.Local, Wrt: b.Local, Kind: "dense"})
			}
		}
	}
}

// ApproxPartials sets the partials to be approximated. method is "fd" or "cs"; step ≤ 0 means the
// default step; form (fd only) is "forward" (default), "backward" or "central"
func (o *Decl) ApproxPartials(method string, step float64, form ...string) {
	switch method {
	case "fd", "cs":
	default:
		o.errors = append(o.errors, errs.New(errs.ConfigurationError, "approximation method %q of %s is not available. Use \"fd\" or \"cs\"", method, o.Name))
		return
	}
	o.Method = method
	o.Step = step
	o.Form = "forward"
	if len(form) > 0 {
		switch form[0] {
		case "forward", "backward", "central":
			o.Form = form[0]
		default:
			o.errors = append(o.errors, errs.New(errs.ConfigurationError, "finite difference form %q of %s is not available", form[0], o.Name))
		}
	}
}

// Find returns the declaration of partial (of,wrt) or nil
func (o *Decl) Find(of, wrt string) *PartialDecl {
	for _, p := range o.Partials {
		if p.Of == of && p.Wrt == wrt {
			return p
		}
	}
	return nil
}

// Var returns a declared variable or nil
func (o *Decl) Var(name string) *VarMeta {
	return o.vars[name]
}

// Err returns all errors found while declaring
func (o *Decl) Err() error {
	if len(o.errors) == 0 {
		return nil
	}
	kind := errs.ConfigurationError
	if e, ok := o.errors[0].(*errs.Error); ok {
		kind = e.Kind
	}
	return errs.Join(kind, o.errors)
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// add adds a variable
func (o *Decl) add(name string, val []float64, shape []int, output bool) (meta *VarMeta) {
	if len(shape) == 0 && len(val) > 1 {
		shape = []int{len(val)}
	}
	meta = &VarMeta{Var: vec.NewVar(name, shape, val), Output: output}
	if len(val) > 1 && len(val) != meta.Size {
		o.errors = append(o.errors, errs.New(errs.ShapeMismatch, "value of %q in %s has length %d but shape %v has size %d", name, o.Name, len(val), shape, meta.Size))
	}
	if _, ok := o.vars[name]; ok {
		o.errors = append(o.errors, errs.New(errs.ConfigurationError, "variable %q of %s is declared twice", name, o.Name))
		return
	}
	o.vars[name] = meta
	if output {
		o.Outputs = append(o.Outputs, meta)
	} else {
		o.Inputs = append(o.Inputs, meta)
	}
	return
}

// declare declares partials for all pairs matching of and wrt
func (o *Decl) declare(of, wrt, kind string, rows, cols []int, val []float64) {
	ofs := match(o.Outputs, of)
	cands := append([]*VarMeta{}, o.Inputs...)
	if !o.Explicit || !strings.ContainsAny(wrt, "*?[") {
		cands = append(cands, o.Outputs...)
	}
	wrts := match(cands, wrt)
	if len(ofs) == 0 || len(wrts) == 0 {
		o.errors = append(o.errors, errs.New(errs.NameNotFound, "cannot declare partial (%q, %q) of %s: no matching variables", of, wrt, o.Name))
		return
	}
	for _, a := range ofs {
		for _, b := range wrts {
			if kind != "dense" {
				if len(rows) != len(cols) {
					o.errors = append(o.errors, mismatch(kind, a, b))
					continue
				}
				bad := false
				for k := range rows {
					if rows[k] < 0 || rows[k] >= a.Size || cols[k] < 0 || cols[k] >= b.Size {
						bad = true
						break
					}
				}
				if bad {
					o.errors = append(o.errors, mismatch(kind, a, b))
					continue
				}
			}
			nnz := a.Size * b.Size
			if kind != "dense" {
				nnz = len(rows)
			}
			var v []float64
			switch len(val) {
			case 0:
			case 1:
				v = make([]float64, nnz)
				for k := range v {
					v[k] = val[0]
				}
			case nnz:
				v = append([]float64{}, val...)
			default:
				o.errors = append(o.errors, mismatch(kind, a, b))
				continue
			}
			o.put(&PartialDecl{Of: a.Local, Wrt: b.Local, Kind: kind, Rows: rows, Cols: cols, Val: v})
		}
	}
}

// put adds or replaces a declaration
func (o *Decl) put(p *PartialDecl) {
	for i, q := range o.Partials {
		if q.Of == p.Of && q.Wrt == p.Wrt {
			o.Partials[i] = p
			return
		}
	}
	o.Partials = append(o.Partials, p)
}

// match returns the variables whose local names match pattern
func match(vars []*VarMeta, pattern string) (res []*VarMeta) {
	for _, v := range vars {
		if pattern == "*" || pattern == v.Local {
			res = append(res, v)
			continue
		}
		if ok, err := path.Match(pattern, v.Local); err == nil && ok {
			res = append(res, v)
		}
	}
	return
}

// mismatch returns the error for partials whose shape does not fit the variables
func mismatch(kind string, a, b *VarMeta) error {
	return errs.New(errs.ShapeMismatch, "%s partial shape mismatch between '%s' (%d) and '%s' (%d)", kind, a.Local, a.Size, b.Local, b.Size)
}
