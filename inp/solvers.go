// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"sort"
	"strings"

	"github.com/cpmech/gomdao/errs"
	"github.com/go-viper/mapstructure/v2"
)

// NlData holds the options shared by iterative nonlinear solvers
type NlData struct {
	Maxiter          int     `json:"maxiter" yaml:"maxiter"`                         // maximum number of iterations
	Atol             float64 `json:"atol" yaml:"atol"`                               // absolute tolerance on the residual norm
	Rtol             float64 `json:"rtol" yaml:"rtol"`                               // tolerance on the residual norm relative to the initial norm
	Iprint           int     `json:"iprint" yaml:"iprint"`                           // 0: silent, 1: summary, 2: all iterations
	ErrOnNonConverge bool    `json:"err_on_non_converge" yaml:"err_on_non_converge"` // return ConvergenceFailure if not converged
}

// SetDefault sets default values
func (o *NlData) SetDefault() {
	o.Maxiter = 10
	o.Atol = 1e-10
	o.Rtol = 1e-10
}

// NewtonData holds the options of the Newton solver
type NewtonData struct {
	NlData          `yaml:",inline"`
	SolveSubsystems bool `json:"solve_subsystems" yaml:"solve_subsystems"` // run the children solvers before each step
	MaxSubSolves    int  `json:"max_sub_solves" yaml:"max_sub_solves"`     // number of iterations running the children solvers
	EnforceBounds   bool `json:"enforce_bounds" yaml:"enforce_bounds"`     // clip outputs to their bounds after each step
}

// SetDefault sets default values
func (o *NewtonData) SetDefault() {
	o.NlData.SetDefault()
	o.MaxSubSolves = 10
}

// NlbgsData holds the options of the nonlinear block Gauss-Seidel solver
type NlbgsData struct {
	NlData              `yaml:",inline"`
	UseAitken           bool    `json:"use_aitken" yaml:"use_aitken"`                       // use Aitken relaxation
	AitkenMinFactor     float64 `json:"aitken_min_factor" yaml:"aitken_min_factor"`         // lower bound of the relaxation factor
	AitkenMaxFactor     float64 `json:"aitken_max_factor" yaml:"aitken_max_factor"`         // upper bound of the relaxation factor
	AitkenInitialFactor float64 `json:"aitken_initial_factor" yaml:"aitken_initial_factor"` // relaxation factor of the first iteration
}

// SetDefault sets default values
func (o *NlbgsData) SetDefault() {
	o.NlData.SetDefault()
	o.AitkenMinFactor = 0.1
	o.AitkenMaxFactor = 1.5
	o.AitkenInitialFactor = 1.0
}

// RunOnceData holds the options of solvers running children once
type RunOnceData struct {
	Iprint int `json:"iprint" yaml:"iprint"` // 0: silent, 1: summary
}

// SetDefault sets default values
func (o *RunOnceData) SetDefault() {}

// LinearData holds the options of iterative linear solvers
type LinearData struct {
	Maxiter          int     `json:"maxiter" yaml:"maxiter"`                         // maximum number of iterations
	Atol             float64 `json:"atol" yaml:"atol"`                               // absolute tolerance on the residual norm
	Rtol             float64 `json:"rtol" yaml:"rtol"`                               // tolerance on the residual norm relative to the initial norm
	Iprint           int     `json:"iprint" yaml:"iprint"`                           // 0: silent, 1: summary, 2: all iterations
	ErrOnNonConverge bool    `json:"err_on_non_converge" yaml:"err_on_non_converge"` // return ConvergenceFailure if not converged
	AssembleJac      bool    `json:"assemble_jac" yaml:"assemble_jac"`               // use the assembled Jacobian instead of matrix-free products
}

// SetDefault sets default values
func (o *LinearData) SetDefault() {
	o.Maxiter = 10
	o.Atol = 1e-10
	o.Rtol = 1e-10
}

// DirectData holds the options of the direct linear solver
type DirectData struct {
	Iprint      int  `json:"iprint" yaml:"iprint"`             // 0: silent, 1: factorizations
	AssembleJac bool `json:"assemble_jac" yaml:"assemble_jac"` // must be true
}

// SetDefault sets default values
func (o *DirectData) SetDefault() {
	o.AssembleJac = true
}

// KrylovData holds the options of the restarted GMRES solver
type KrylovData struct {
	LinearData    `yaml:",inline"`
	Restart       int                    `json:"restart" yaml:"restart"`               // number of iterations between restarts
	Precon        string                 `json:"precon" yaml:"precon"`                 // kind of linear solver used as right preconditioner; empty means none
	PreconOptions map[string]interface{} `json:"precon_options" yaml:"precon_options"` // options of preconditioner
}

// SetDefault sets default values
func (o *KrylovData) SetDefault() {
	o.LinearData.SetDefault()
	o.Maxiter = 1000
	o.Atol = 1e-12
	o.Rtol = 1e-10
	o.Restart = 20
}

// Decode copies the values in opts into the fields of out (a pointer to struct). Keys are the
// json names of fields; embedded structs are squashed and fields given in opts are replaced, not
// merged. Keys without field cause UnrecognizedOption
func Decode(opts map[string]interface{}, out interface{}, what string) (err error) {
	if len(opts) == 0 {
		return
	}
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Squash:     true,
		ZeroFields: true,
		Metadata:   &md,
		Result:     out,
	})
	if err != nil {
		return errs.New(errs.ConfigurationError, "cannot create decoder for %s: %v", what, err)
	}
	if err = dec.Decode(opts); err != nil {
		return errs.New(errs.ConfigurationError, "cannot decode options of %s: %v", what, err)
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return errs.New(errs.UnrecognizedOption, "%s does not recognize option(s): %s", what, strings.Join(md.Unused, ", "))
	}
	return
}
