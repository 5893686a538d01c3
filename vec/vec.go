// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package vec implements named vectors of variables (inputs, outputs and residuals) backed by a
// flat array. Views returned by Get alias the backing store
package vec

import (
	"math"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gosl/la"
)

// Kind defines the role of variables in a vector
type Kind int

const (
	Input    Kind = iota // inputs
	Output               // outputs
	Residual             // residuals; same layout as outputs
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return "residual"
}

// Var holds the metadata of one variable
type Var struct {
	Name    string    // absolute name; e.g. "cycle.first.y_0"
	Prom    string    // promoted name at the model level; e.g. "y_0" when promoted
	Local   string    // name as declared by the component; e.g. "y_0"
	Shape   []int     // shape; e.g. [2, 3]
	Size    int       // flattened size
	Offset  int       // offset in the vectors of the whole model
	Units   string    // units; e.g. "m"
	Default []float64 // initial value [Size]
	Lower   float64   // lower bound (outputs only); -Inf means none
	Upper   float64   // upper bound (outputs only); +Inf means none
}

// NewVar returns a new variable. Size is computed from shape; empty shape means scalar
func NewVar(local string, shape []int, val []float64) (o *Var) {
	o = new(Var)
	o.Local = local
	o.Name = local
	o.Prom = local
	o.Shape = shape
	o.Size = 1
	for _, n := range shape {
		o.Size *= n
	}
	if len(shape) == 0 {
		o.Shape = []int{1}
	}
	o.Default = make([]float64, o.Size)
	switch len(val) {
	case 0:
		for i := range o.Default {
			o.Default[i] = 1
		}
	case 1:
		for i := range o.Default {
			o.Default[i] = val[0]
		}
	default:
		copy(o.Default, val)
	}
	o.Lower = math.Inf(-1)
	o.Upper = math.Inf(+1)
	return
}

// Vector holds a set of variables and their values in a flat array
type Vector struct {
	Kind  Kind            // role of variables
	Data  la.Vector       // values; possibly a slice of a larger vector
	Vars  []*Var          // variables in this vector, in storage order
	Start int             // offset of Data[0] in the vector of the whole model
	local bool            // lookup by names declared by components
	names map[string]*Var // maps lookup names to variables
}

// New allocates a vector for the given variables. The vector covers all offsets of vars;
// i.e. variables must be contiguous. Lookup names are the absolute and promoted names
func New(kind Kind, vars []*Var) (o *Vector) {
	o = new(Vector)
	o.Kind = kind
	o.Vars = vars
	size := 0
	if len(vars) > 0 {
		o.Start = vars[0].Offset
		last := vars[len(vars)-1]
		size = last.Offset + last.Size - o.Start
	}
	o.Data = la.NewVector(size)
	o.names = make(map[string]*Var, 2*len(vars))
	for _, v := range vars {
		o.names[v.Prom] = v
		o.names[v.Name] = v
	}
	return
}

// Sub returns a view over a contiguous subset of variables sharing the same storage. If local is
// true, lookup names are the names declared by the component; e.g. "x" instead of "comp.x"
func (o *Vector) Sub(vars []*Var, local bool) (view *Vector) {
	view = new(Vector)
	view.Kind = o.Kind
	view.Vars = vars
	view.local = local
	view.names = make(map[string]*Var, len(vars))
	if len(vars) == 0 {
		view.Start = o.Start
		view.Data = o.Data[:0]
		return
	}
	view.Start = vars[0].Offset
	last := vars[len(vars)-1]
	view.Data = o.Data[view.Start-o.Start : last.Offset+last.Size-o.Start]
	for _, v := range vars {
		if local {
			view.names[v.Local] = v
		} else {
			view.names[v.Prom] = v
			view.names[v.Name] = v
		}
	}
	return
}

// Clone returns a vector with the same variables and a copy of the values
func (o *Vector) Clone() (c *Vector) {
	c = new(Vector)
	c.Kind = o.Kind
	c.Vars = o.Vars
	c.Start = o.Start
	c.Data = o.Data.GetCopy()
	c.local = o.local
	c.names = o.names
	return
}

// Len returns the length of the flat array
func (o *Vector) Len() int {
	return len(o.Data)
}

// Has tells whether a variable named name exists in this vector
func (o *Vector) Has(name string) bool {
	_, ok := o.names[name]
	return ok
}

// Var returns the metadata of a variable
func (o *Vector) Var(name string) (v *Var, err error) {
	v, ok := o.names[name]
	if !ok {
		return nil, errs.New(errs.NameNotFound, "cannot find %s named %q", o.Kind, name)
	}
	return
}

// Lookup returns a view of the values of a variable
func (o *Vector) Lookup(name string) (view la.Vector, err error) {
	v, err := o.Var(name)
	if err != nil {
		return
	}
	i := v.Offset - o.Start
	return o.Data[i : i+v.Size], nil
}

// Get returns a view of the values of a variable. Modifying the view modifies the vector.
// It panics with a NameNotFound error if the variable does not exist
func (o *Vector) Get(name string) la.Vector {
	view, err := o.Lookup(name)
	if err != nil {
		panic(err)
	}
	return view
}

// Set copies values into variable. A single value is broadcast to all entries
func (o *Vector) Set(name string, vals []float64) (err error) {
	view, err := o.Lookup(name)
	if err != nil {
		return
	}
	switch len(vals) {
	case 1:
		view.Fill(vals[0])
	case len(view):
		copy(view, vals)
	default:
		return errs.New(errs.ShapeMismatch, "cannot set %s %q with %d values; size is %d", o.Kind, name, len(vals), len(view))
	}
	return
}

// SetConst sets all values to val
func (o *Vector) SetConst(val float64) {
	o.Data.Fill(val)
}

// GetData returns a copy of all values
func (o *Vector) GetData() la.Vector {
	return o.Data.GetCopy()
}

// SetData copies all values from data
func (o *Vector) SetData(data []float64) {
	copy(o.Data, data)
}

// Norm returns the Euclidean norm of all values
func (o *Vector) Norm() float64 {
	return o.Data.Norm()
}

// Names returns the lookup names of all variables, in storage order. Local views return local names
func (o *Vector) Names() (names []string) {
	names = make([]string, len(o.Vars))
	for i, v := range o.Vars {
		if o.local {
			names[i] = v.Local
		} else {
			names[i] = v.Name
		}
	}
	return
}

// SetDefaults sets the values of all variables to their defaults
func (o *Vector) SetDefaults() {
	for _, v := range o.Vars {
		i := v.Offset - o.Start
		copy(o.Data[i:i+v.Size], v.Default)
	}
}
