// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input data read from (YAML) files and option maps
package inp

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gosl/io"
	"gopkg.in/yaml.v3"
)

// SolverData holds the kind and options of a solver
type SolverData struct {
	Kind    string                 `json:"kind" yaml:"kind"`       // e.g. "newton", "nlbgs", "direct", "lbgs", "krylov"
	Options map[string]interface{} `json:"options" yaml:"options"` // options; see NewtonData, LinearData, etc.
}

// ConnData holds a connection between a source output and a target input
type ConnData struct {
	Src string `json:"src" yaml:"src"` // promoted name of output
	Tgt string `json:"tgt" yaml:"tgt"` // promoted name of input
}

// SystemData holds a component or a group. Systems without Comp are groups
type SystemData struct {
	Name        string                 `json:"name" yaml:"name"`               // name within parent group
	Comp        string                 `json:"comp" yaml:"comp"`               // name of component allocator; e.g. "linsys"
	Params      map[string]interface{} `json:"params" yaml:"params"`           // parameters of component
	Promotes    []string               `json:"promotes" yaml:"promotes"`       // promoted names or patterns
	Nonlinear   *SolverData            `json:"nonlinear" yaml:"nonlinear"`     // nonlinear solver of group
	Linear      *SolverData            `json:"linear" yaml:"linear"`           // linear solver of group
	Subsystems  []*SystemData          `json:"subsystems" yaml:"subsystems"`   // children of group
	Connections []*ConnData            `json:"connections" yaml:"connections"` // connections within group
}

// IsGroup tells whether this system is a group
func (o *SystemData) IsGroup() bool {
	return o.Comp == ""
}

// TotalsData holds a request of total derivatives
type TotalsData struct {
	Of   []string `json:"of" yaml:"of"`     // responses
	Wrt  []string `json:"wrt" yaml:"wrt"`   // design variables
	Mode string   `json:"mode" yaml:"mode"` // "fwd", "rev" or "auto"
}

// ProblemData holds a whole problem read from file
type ProblemData struct {
	Desc    string               `json:"desc" yaml:"desc"`         // description
	JacType string               `json:"jac_type" yaml:"jac_type"` // assembled store: "dict", "dense", "coo" or "csr"
	Values  map[string][]float64 `json:"values" yaml:"values"`     // initial values set before running
	Model   SystemData           `json:"model" yaml:"model"`       // root group
	Totals  *TotalsData          `json:"totals" yaml:"totals"`     // totals to compute; may be nil

	// derived
	Key string `json:"-" yaml:"-"` // filename key; e.g. "sellar" for "sellar.yaml"
}

// SetDefault sets default values
func (o *ProblemData) SetDefault() {
	o.JacType = "csr"
}

// PostProcess checks data and sets derived values
func (o *ProblemData) PostProcess() (err error) {
	switch o.JacType {
	case "dict", "dense", "coo", "csr":
	default:
		return errs.New(errs.ConfigurationError, "jac_type %q is not available. Use dict, dense, coo or csr", o.JacType)
	}
	if !o.Model.IsGroup() {
		return errs.New(errs.ConfigurationError, "model must be a group")
	}
	if o.Totals != nil && o.Totals.Mode == "" {
		o.Totals.Mode = "auto"
	}
	return
}

// ReadProblem reads a problem file
func ReadProblem(filename string) (o *ProblemData, err error) {
	o = new(ProblemData)
	o.SetDefault()
	if err = readYaml(filename, o); err != nil {
		return nil, err
	}
	o.Key = io.FnKey(filepath.Base(filename))
	if err = o.PostProcess(); err != nil {
		return nil, err
	}
	return
}

// readYaml decodes a YAML file into out. Unknown fields cause UnrecognizedOption
func readYaml(filename string, out interface{}) (err error) {
	b, err := readFile(filename)
	if err != nil {
		return
	}
	return decodeYaml(b, out, filename)
}

// readFile reads a file. gosl panics if the file cannot be read
func readFile(filename string) (b []byte, err error) {
	defer errs.Recover(&err, errs.ConfigurationError)
	return io.ReadFile(filename), nil
}

// decodeYaml decodes YAML data into out
func decodeYaml(b []byte, out interface{}, what string) (err error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	err = dec.Decode(out)
	if err != nil {
		if strings.Contains(err.Error(), "not found in type") {
			return errs.New(errs.UnrecognizedOption, "%s: %v", what, err)
		}
		return errs.New(errs.ConfigurationError, "cannot decode %s: %v", what, err)
	}
	return
}
