// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"sort"

	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
)

// Build allocates the model described by d, sets it up and sets the initial values
func Build(d *inp.ProblemData) (o *Problem, err error) {
	model, err := BuildGroup(&d.Model)
	if err != nil {
		return
	}
	o = NewProblem(model)
	o.JacType = d.JacType
	if err = o.Setup(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(d.Values))
	for name := range d.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err = o.SetVal(name, d.Values[name]); err != nil {
			return nil, err
		}
	}
	return
}

// BuildGroup allocates the group described by d and all its children
func BuildGroup(d *inp.SystemData) (g *Group, err error) {
	if !d.IsGroup() {
		return nil, errs.New(errs.ConfigurationError, "system %q is a component, not a group", d.Name)
	}
	g = NewGroup()
	if d.Nonlinear != nil {
		if g.NlSolver, err = NewNonlinearSolver(d.Nonlinear.Kind, d.Nonlinear.Options); err != nil {
			return
		}
	}
	if d.Linear != nil {
		if g.LinSolver, err = NewLinearSolver(d.Linear.Kind, d.Linear.Options); err != nil {
			return
		}
	}
	for _, s := range d.Subsystems {
		var sys interface{}
		if s.IsGroup() {
			if sys, err = BuildGroup(s); err != nil {
				return
			}
		} else {
			if s.Nonlinear != nil || s.Linear != nil || len(s.Subsystems) > 0 {
				return nil, errs.New(errs.ConfigurationError, "component %q cannot have solvers or subsystems", s.Name)
			}
			if sys, err = comp.New(s.Comp, s.Params); err != nil {
				return
			}
		}
		g.AddSubsystem(s.Name, sys, s.Promotes...)
	}
	for _, c := range d.Connections {
		g.Connect(c.Src, c.Tgt)
	}
	return
}

// ParseMode returns the mode named "fwd", "rev" or "auto"
func ParseMode(name string) (Mode, error) {
	switch name {
	case "fwd":
		return Fwd, nil
	case "rev":
		return Rev, nil
	case "auto", "":
		return Auto, nil
	}
	return Auto, errs.New(errs.ConfigurationError, "mode %q is not available. Use fwd, rev or auto", name)
}
