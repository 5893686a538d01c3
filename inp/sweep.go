// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"sort"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gosl/io"
)

// CaseData holds the parameters of one cycle problem
type CaseData struct {
	Name          string                 `json:"name" yaml:"name"`                     // name of case; generated if empty
	NumComp       int                    `json:"num_comp" yaml:"num_comp"`             // number of components in cycle
	NumVar        int                    `json:"num_var" yaml:"num_var"`               // number of variables per component
	VarShape      []int                  `json:"var_shape" yaml:"var_shape"`           // shape of each variable
	PartialType   string                 `json:"partial_type" yaml:"partial_type"`     // "array", "sparse" or "csr"
	PartialMethod string                 `json:"partial_method" yaml:"partial_method"` // "exact", "fd" or "cs"
	JacType       string                 `json:"jac_type" yaml:"jac_type"`             // assembled store: "dict", "dense", "coo" or "csr"
	Assembled     bool                   `json:"assembled" yaml:"assembled"`           // linear solver uses the assembled Jacobian
	ConnType      string                 `json:"conn_type" yaml:"conn_type"`           // "explicit" (connect) or "implicit" (promotion)
	Nonlinear     string                 `json:"nonlinear" yaml:"nonlinear"`           // nonlinear solver of cycle group
	Linear        string                 `json:"linear" yaml:"linear"`                 // linear solver of cycle group
	NonlinearOpts map[string]interface{} `json:"nonlinear_opts" yaml:"nonlinear_opts"` // options of nonlinear solver
	LinearOpts    map[string]interface{} `json:"linear_opts" yaml:"linear_opts"`       // options of linear solver
	ErrBound      float64                `json:"err_bound" yaml:"err_bound"`           // tolerance when checking totals
}

// SetDefault sets default values
func (o *CaseData) SetDefault() {
	o.NumComp = 2
	o.NumVar = 1
	o.VarShape = []int{1}
	o.PartialType = "array"
	o.PartialMethod = "exact"
	o.JacType = "csr"
	o.ConnType = "explicit"
	o.Nonlinear = "nlbgs"
	o.Linear = "lbgs"
	o.ErrBound = 1e-7
}

// PostProcess checks data and sets the name if empty
func (o *CaseData) PostProcess() (err error) {
	if o.NumComp < 2 {
		return errs.New(errs.ConfigurationError, "cycle needs at least 2 components; num_comp = %d", o.NumComp)
	}
	if o.NumVar < 1 {
		return errs.New(errs.ConfigurationError, "cycle needs at least 1 variable; num_var = %d", o.NumVar)
	}
	if len(o.VarShape) == 0 {
		o.VarShape = []int{1}
	}
	for _, n := range o.VarShape {
		if n < 1 {
			return errs.New(errs.ConfigurationError, "var_shape must have positive entries; var_shape = %v", o.VarShape)
		}
	}
	if !oneOf(o.PartialType, "array", "sparse", "csr") {
		return errs.New(errs.ConfigurationError, "partial_type %q is not available. Use array, sparse or csr", o.PartialType)
	}
	if !oneOf(o.PartialMethod, "exact", "fd", "cs") {
		return errs.New(errs.ConfigurationError, "partial_method %q is not available. Use exact, fd or cs", o.PartialMethod)
	}
	if !oneOf(o.JacType, "dict", "dense", "coo", "csr") {
		return errs.New(errs.ConfigurationError, "jac_type %q is not available. Use dict, dense, coo or csr", o.JacType)
	}
	if !oneOf(o.ConnType, "explicit", "implicit") {
		return errs.New(errs.ConfigurationError, "conn_type %q is not available. Use explicit or implicit", o.ConnType)
	}
	if o.Name == "" {
		o.Name = io.Sf("%s-%s-c%d-v%d-%s-%s-%s", o.Nonlinear, o.Linear, o.NumComp, o.NumVar, o.PartialType, o.PartialMethod, o.JacType)
		if o.Assembled {
			o.Name += "-asm"
		}
	}
	return
}

// clone returns a copy of case data not sharing maps or slices
func (o *CaseData) clone() (c *CaseData) {
	c = new(CaseData)
	*c = *o
	c.VarShape = append([]int{}, o.VarShape...)
	c.NonlinearOpts = cloneMap(o.NonlinearOpts)
	c.LinearOpts = cloneMap(o.LinearOpts)
	return
}

// SweepData holds a grid of cycle problems
type SweepData struct {
	Desc    string                   `json:"desc" yaml:"desc"`       // description
	Workers int                      `json:"workers" yaml:"workers"` // number of cases running at the same time; 0 means number of CPUs
	Base    CaseData                 `json:"base" yaml:"base"`       // data shared by all cases
	Grid    map[string][]interface{} `json:"grid" yaml:"grid"`       // values of case data fields to sweep
	Cases   []map[string]interface{} `json:"cases" yaml:"cases"`     // extra cases; values replace those of Base
}

// SetDefault sets default values
func (o *SweepData) SetDefault() {
	o.Base.SetDefault()
}

// Expand returns all cases: the cartesian product of grid values applied to Base followed by the
// extra cases applied to Base. Grid keys are applied in alphabetical order
func (o *SweepData) Expand() (cases []*CaseData, err error) {
	keys := make([]string, 0, len(o.Grid))
	for key, vals := range o.Grid {
		if len(vals) == 0 {
			return nil, errs.New(errs.ConfigurationError, "grid %q has no values", key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	index := make([]int, len(keys))
	for len(keys) > 0 || len(o.Cases) == 0 {
		c := o.Base.clone()
		c.Name = ""
		opts := make(map[string]interface{}, len(keys))
		for i, key := range keys {
			opts[key] = o.Grid[key][index[i]]
		}
		if err = Decode(opts, c, "sweep grid"); err != nil {
			return nil, err
		}
		if err = c.PostProcess(); err != nil {
			return nil, err
		}
		cases = append(cases, c)

		// next combination
		k := len(keys) - 1
		for ; k >= 0; k-- {
			index[k]++
			if index[k] < len(o.Grid[keys[k]]) {
				break
			}
			index[k] = 0
		}
		if k < 0 {
			break
		}
	}
	for i, extra := range o.Cases {
		c := o.Base.clone()
		c.Name = ""
		if err = Decode(extra, c, io.Sf("sweep case %d", i)); err != nil {
			return nil, err
		}
		if err = c.PostProcess(); err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return
}

// ReadSweep reads a sweep file
func ReadSweep(filename string) (o *SweepData, err error) {
	b, err := readFile(filename)
	if err != nil {
		return
	}
	return DecodeSweep(b, filename)
}

// DecodeSweep decodes sweep data in YAML format
func DecodeSweep(b []byte, what string) (o *SweepData, err error) {
	o = new(SweepData)
	o.SetDefault()
	if err = decodeYaml(b, o, what); err != nil {
		return nil, err
	}
	return
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// oneOf tells whether s is one of the options
func oneOf(s string, options ...string) bool {
	for _, opt := range options {
		if s == opt {
			return true
		}
	}
	return false
}

// cloneMap returns a shallow copy of m
func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
