// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"path"
	"sort"
	"strings"

	"github.com/cpmech/gomdao/comp"
	"github.com/cpmech/gomdao/comp/indep"
	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/jac"
	"github.com/cpmech/gomdao/vec"
	"github.com/cpmech/gosl/io"
)

// autoIvcName is the name of the component feeding all unconnected inputs
const autoIvcName = "_auto_ivc"

// Setup declares all variables and partials, resolves promotions and connections, allocates the
// vectors and the Jacobian and binds the solvers. Structural errors are all reported here
func (o *Problem) Setup() (err error) {
	if o.isSetup {
		return errs.New(errs.ConfigurationError, "problem has been set up already")
	}
	defer errs.Recover(&err, errs.ConfigurationError)

	// components
	root := o.Model
	root.prob = o
	root.path = ""
	var list []error
	o.setupTree(root, &list)
	if len(list) > 0 {
		return joinAny(list)
	}
	o.Groups = root.groups(nil)

	// promoted names
	o.promote(root, &list)
	if len(list) > 0 {
		return errs.Join(errs.ConnectionError, list)
	}

	// connections
	srcs := make(map[*vec.Var]*vec.Var)
	for _, g := range o.Groups {
		o.connect(g, srcs, &list)
	}
	if len(list) > 0 {
		return errs.Join(errs.ConnectionError, list)
	}

	// unconnected inputs
	o.setPromoted(root)
	if err = o.autoIvc(srcs); err != nil {
		return
	}

	// layout
	o.Leaves = root.leaves(nil)
	off := 0
	o.layout(root, &off)
	off = 0
	for _, l := range o.Leaves {
		for _, v := range l.ins {
			v.Offset = off
			off += v.Size
			o.inputs = append(o.inputs, v)
		}
	}

	// vectors
	o.In = vec.New(vec.Input, o.inputs)
	o.Out = vec.New(vec.Output, o.outputs)
	o.Res = vec.New(vec.Residual, o.outputs)
	o.Din = vec.New(vec.Input, o.inputs)
	o.Dout = vec.New(vec.Output, o.outputs)
	o.Dres = vec.New(vec.Residual, o.outputs)
	o.In.SetDefaults()
	o.Out.SetDefaults()
	for _, l := range o.Leaves {
		l.in = o.In.Sub(l.ins, true)
		l.out = o.Out.Sub(l.outs, true)
		l.res = o.Res.Sub(l.outs, true)
		l.din = o.Din.Sub(l.ins, true)
		l.dout = o.Dout.Sub(l.outs, true)
		l.dres = o.Dres.Sub(l.outs, true)
		l.tmp = l.out.Clone()
	}

	// transfers
	o.sources = make(map[*vec.Var]*transfer)
	for _, l := range o.Leaves {
		l.xfers = nil
		for _, v := range l.ins {
			src := srcs[v]
			t := &transfer{src: src, tgt: v}
			t.factor, t.shift, _ = convert(src.Units, v.Units)
			t.srcVal = o.Out.Get(src.Name)
			t.tgtVal = o.In.Get(v.Name)
			o.sources[v] = t
			l.xfers = append(l.xfers, t)
		}
	}

	// Jacobian
	var slots []*jac.Slot
	for _, l := range o.Leaves {
		slots = append(slots, o.leafSlots(l)...)
		if l.decl.Method != "" {
			l.approx = newApproximator(l)
		}
	}
	o.Jac = jac.NewAssembler(len(o.Out.Data), slots, o.JacType)

	// solvers
	assembled := false
	for _, g := range o.Groups {
		if g.NlSolver == nil {
			g.NlSolver = NewNonlinearRunOnce()
		}
		if g.LinSolver == nil {
			g.LinSolver = NewLinearRunOnce()
		}
		if err = g.NlSolver.setup(g); err != nil {
			return
		}
		if err = g.LinSolver.setup(g); err != nil {
			return
		}
		assembled = assembled || g.LinSolver.Assembled()
	}
	if assembled {
		if err = o.Jac.Assemble(); err != nil {
			return
		}
	}
	o.isSetup = true

	// message
	if o.Verbose {
		io.Pf("setup: %d components, %d groups, %d inputs (%d values), %d outputs (%d values), %d partial blocks\n",
			len(o.Leaves), len(o.Groups), len(o.inputs), len(o.In.Data), len(o.outputs), len(o.Out.Data), len(slots))
	}
	return
}

// setupTree declares the variables and partials of all components below g
func (o *Problem) setupTree(g *Group, list *[]error) {
	*list = append(*list, g.errors...)
	for _, s := range g.subs {
		b := s.base()
		b.prob = o
		b.path = join(g.path, b.name)
		switch v := s.(type) {
		case *Group:
			o.setupTree(v, list)
		case *leaf:
			if err := o.setupLeaf(v); err != nil {
				*list = append(*list, err)
			}
		}
	}
}

// setupLeaf declares the variables and partials of one component
func (o *Problem) setupLeaf(l *leaf) (err error) {
	_, explicit := l.comp.(comp.Explicit)
	_, implicit := l.comp.(comp.Implicit)
	if !explicit && !implicit {
		return errs.New(errs.ConfigurationError, "component %s (%T) must be explicit (Compute) or implicit (ApplyNonlinear and Linearize)", l.path, l.comp)
	}
	l.explicit = explicit
	l.decl = comp.NewDecl(l.path)
	l.decl.Explicit = explicit
	if err = l.comp.Setup(l.decl); err != nil {
		return
	}
	if explicit && l.decl.Method == "" {
		if _, ok := l.comp.(comp.PartialsComputer); !ok {
			l.decl.ApproxPartials("fd", 0)
		}
	}
	if l.decl.Method != "" && len(l.decl.Partials) == 0 {
		l.decl.DeclareAll(!explicit)
	}
	if err = l.decl.Err(); err != nil {
		return
	}
	if l.decl.Method == "cs" {
		if _, ok := l.comp.(comp.ComplexComputer); !ok || !explicit {
			return errs.New(errs.ConfigurationError, "complex step of %s requires an explicit component with ComputeComplex", l.path)
		}
	}
	if explicit {
		for _, p := range l.decl.Partials {
			if v := l.decl.Var(p.Wrt); v.Output {
				return errs.New(errs.ConfigurationError, "explicit component %s cannot declare partial (%q, %q) with respect to an output", l.path, p.Of, p.Wrt)
			}
		}
	}
	if l.partials, err = comp.NewPartials(l.decl); err != nil {
		return
	}
	l.ins, l.outs = nil, nil
	for _, m := range l.decl.Inputs {
		m.Name = join(l.path, m.Local)
		l.ins = append(l.ins, m.Var)
	}
	for _, m := range l.decl.Outputs {
		m.Name = join(l.path, m.Local)
		l.outs = append(l.outs, m.Var)
	}
	return
}

// promote sets the promoted names relative to g of all variables below g
func (o *Problem) promote(g *Group, list *[]error) {
	for _, s := range g.subs {
		if h, ok := s.(*Group); ok {
			o.promote(h, list)
		}
	}
	if len(*list) > 0 {
		return
	}
	g.outNames = make(map[string][]*vec.Var)
	g.inNames = make(map[string][]*vec.Var)
	for _, s := range g.subs {
		b := s.base()
		used := make([]bool, len(b.promotes))
		add := func(name string, v *vec.Var, output bool) {
			rel := b.name + "." + name
			for i, pattern := range b.promotes {
				if matches(pattern, name) {
					rel = name
					used[i] = true
					break
				}
			}
			if output {
				g.outNames[rel] = append(g.outNames[rel], v)
			} else {
				g.inNames[rel] = append(g.inNames[rel], v)
			}
		}
		switch v := s.(type) {
		case *leaf:
			for _, x := range v.ins {
				add(x.Local, x, false)
			}
			for _, y := range v.outs {
				add(y.Local, y, true)
			}
		case *Group:
			for _, name := range sortedKeys(v.inNames) {
				for _, x := range v.inNames[name] {
					add(name, x, false)
				}
			}
			for _, name := range sortedKeys(v.outNames) {
				for _, y := range v.outNames[name] {
					add(name, y, true)
				}
			}
		}
		for i, ok := range used {
			if !ok {
				*list = append(*list, errs.New(errs.ConnectionError, "%s: promotes pattern %q does not match any variable", b.path, b.promotes[i]))
			}
		}
	}
	for _, name := range sortedKeys(g.outNames) {
		if vars := g.outNames[name]; len(vars) > 1 {
			abs := make([]string, len(vars))
			for i, v := range vars {
				abs[i] = v.Name
			}
			*list = append(*list, errs.New(errs.ConnectionError, "%s: outputs %s are all promoted to %q", groupName(g), strings.Join(abs, ", "), name))
		}
	}
}

// connect resolves the explicit and implicit connections of g
func (o *Problem) connect(g *Group, srcs map[*vec.Var]*vec.Var, list *[]error) {
	link := func(src, tgt *vec.Var) {
		if prev, ok := srcs[tgt]; ok {
			if prev != src {
				*list = append(*list, errs.New(errs.ConnectionError, "input %s has two sources: %s and %s", tgt.Name, prev.Name, src.Name))
			}
			return
		}
		if src.Size != tgt.Size {
			*list = append(*list, errs.New(errs.ConnectionError, "size mismatch: %s (%d) -> %s (%d)", src.Name, src.Size, tgt.Name, tgt.Size))
			return
		}
		if _, _, err := convert(src.Units, tgt.Units); err != nil {
			*list = append(*list, errs.New(errs.ConnectionError, "cannot connect %s to %s: %v", src.Name, tgt.Name, err))
			return
		}
		srcs[tgt] = src
	}
	for _, c := range g.conns {
		src, tgt := c[0], c[1]
		outs, ok := g.outNames[src]
		if !ok {
			*list = append(*list, errs.New(errs.ConnectionError, "%s: cannot connect %q to %q: output %q not found", groupName(g), src, tgt, src))
			continue
		}
		ins, ok := g.inNames[tgt]
		if !ok {
			*list = append(*list, errs.New(errs.ConnectionError, "%s: cannot connect %q to %q: input %q not found", groupName(g), src, tgt, tgt))
			continue
		}
		for _, x := range ins {
			link(outs[0], x)
		}
	}
	for _, name := range sortedKeys(g.inNames) {
		if outs, ok := g.outNames[name]; ok {
			for _, x := range g.inNames[name] {
				link(outs[0], x)
			}
		}
	}
}

// autoIvc adds a component with one output for each set of unconnected inputs sharing a promoted name
func (o *Problem) autoIvc(srcs map[*vec.Var]*vec.Var) (err error) {
	var ivc indep.Comp
	var groups [][]*vec.Var
	index := make(map[string]int)
	for _, l := range o.Model.leaves(nil) {
		for _, x := range l.ins {
			if _, ok := srcs[x]; ok {
				continue
			}
			prom := x.Prom
			k, ok := index[prom]
			if !ok {
				k = len(groups)
				index[prom] = k
				groups = append(groups, nil)
				ivc.Vars = append(ivc.Vars, &indep.Var{Name: io.Sf("v%d", k), Val: x.Default, Shape: x.Shape, Units: x.Units})
			}
			groups[k] = append(groups[k], x)
		}
	}
	if len(groups) == 0 {
		return
	}
	auto := &leaf{comp: &ivc}
	auto.name = autoIvcName
	auto.path = autoIvcName
	auto.prob = o
	if err = o.setupLeaf(auto); err != nil {
		return
	}
	var list []error
	for k, xs := range groups {
		y := auto.outs[k]
		for _, x := range xs {
			if x.Size != y.Size {
				list = append(list, errs.New(errs.ConnectionError, "size mismatch: inputs promoted to %q have sizes %d (%s) and %d (%s)", x.Prom, y.Size, xs[0].Name, x.Size, x.Name))
				continue
			}
			srcs[x] = y
		}
		y.Prom = xs[0].Prom
	}
	if len(list) > 0 {
		return errs.Join(errs.ConnectionError, list)
	}
	o.Model.subs = append([]system{auto}, o.Model.subs...)
	return
}

// setPromoted sets the promoted names at the root of all variables
func (o *Problem) setPromoted(root *Group) {
	for name, vars := range root.outNames {
		for _, v := range vars {
			v.Prom = name
		}
	}
	for name, vars := range root.inNames {
		for _, v := range vars {
			v.Prom = name
		}
	}
}

// layout sets the offsets of all outputs and the ranges of all systems in depth-first order
func (o *Problem) layout(s system, off *int) {
	b := s.base()
	b.rng.Lo = *off
	switch v := s.(type) {
	case *leaf:
		for _, y := range v.outs {
			y.Offset = *off
			*off += y.Size
			o.outputs = append(o.outputs, y)
		}
	case *Group:
		for _, sub := range v.subs {
			o.layout(sub, off)
		}
	}
	b.rng.Hi = *off
}

// leafSlots returns the slots of the partials of one component
func (o *Problem) leafSlots(l *leaf) (slots []*jac.Slot) {
	outs := make(map[string]*vec.Var)
	for _, y := range l.outs {
		outs[y.Local] = y
		if l.explicit {
			slots = append(slots, jac.NewSlot(y.Name, y.Name, y.Offset, y.Offset, y.Size, y.Size, 1, &jac.Identity{N: y.Size}))
		}
	}
	ins := make(map[string]*vec.Var)
	for _, x := range l.ins {
		ins[x.Local] = x
	}
	l.identity = l.explicit
	for _, key := range l.partials.Keys {
		of := outs[key.Of]
		blk := l.partials.Blocks[key]
		var s *jac.Slot
		if x, ok := ins[key.Wrt]; ok {
			t := o.sources[x]
			factor := t.factor
			if l.explicit {
				factor = -factor
			}
			s = jac.NewSlot(of.Name, x.Name, of.Offset, t.src.Offset, of.Size, x.Size, factor, blk)
		} else {
			y := outs[key.Wrt]
			s = jac.NewSlot(of.Name, y.Name, of.Offset, y.Offset, of.Size, y.Size, 1, blk)
		}
		if s.Col < l.rng.Hi && s.Col+s.N > l.rng.Lo {
			l.identity = false
		}
		slots = append(slots, s)
	}
	return
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// matches tells whether name matches pattern: a name, "*" or a glob
func matches(pattern, name string) bool {
	if pattern == "*" || pattern == name {
		return true
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// join joins a path and a name with a dot
func join(p, name string) string {
	if p == "" {
		return name
	}
	return p + "." + name
}

// groupName returns the path of group or "model" for the root group
func groupName(g *Group) string {
	if g.path == "" {
		return "model"
	}
	return g.path
}

// sortedKeys returns the keys of m in increasing order
func sortedKeys(m map[string][]*vec.Var) (keys []string) {
	keys = make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

// joinAny joins errors using the kind of the first one
func joinAny(list []error) error {
	kind := errs.ConfigurationError
	if e, ok := list[0].(*errs.Error); ok {
		kind = e.Kind
	}
	return errs.Join(kind, list)
}
