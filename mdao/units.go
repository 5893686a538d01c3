// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"math"

	"github.com/cpmech/gomdao/errs"
)

// unit holds the conversion of a unit to the base unit of its dimension: base = (value + offset)⋅scale
type unit struct {
	dim    string
	scale  float64
	offset float64
}

// units holds all known units
var units = map[string]unit{

	// length
	"m":    {"length", 1, 0},
	"cm":   {"length", 1e-2, 0},
	"mm":   {"length", 1e-3, 0},
	"km":   {"length", 1e3, 0},
	"inch": {"length", 0.0254, 0},
	"ft":   {"length", 0.3048, 0},
	"mi":   {"length", 1609.344, 0},
	"nmi":  {"length", 1852, 0},

	// area and volume
	"m**2":  {"area", 1, 0},
	"cm**2": {"area", 1e-4, 0},
	"ft**2": {"area", 0.09290304, 0},
	"m**3":  {"volume", 1, 0},
	"L":     {"volume", 1e-3, 0},
	"ft**3": {"volume", 0.028316846592, 0},

	// mass
	"kg":  {"mass", 1, 0},
	"g":   {"mass", 1e-3, 0},
	"t":   {"mass", 1e3, 0},
	"lbm": {"mass", 0.45359237, 0},

	// time
	"s":   {"time", 1, 0},
	"ms":  {"time", 1e-3, 0},
	"min": {"time", 60, 0},
	"h":   {"time", 3600, 0},

	// force
	"N":   {"force", 1, 0},
	"kN":  {"force", 1e3, 0},
	"lbf": {"force", 4.4482216152605, 0},

	// pressure
	"Pa":  {"pressure", 1, 0},
	"kPa": {"pressure", 1e3, 0},
	"MPa": {"pressure", 1e6, 0},
	"bar": {"pressure", 1e5, 0},
	"psi": {"pressure", 6894.757293168361, 0},

	// temperature
	"K":    {"temperature", 1, 0},
	"degC": {"temperature", 1, 273.15},
	"degF": {"temperature", 5.0 / 9.0, 459.67},
	"degR": {"temperature", 5.0 / 9.0, 0},

	// angle
	"rad": {"angle", 1, 0},
	"deg": {"angle", math.Pi / 180, 0},

	// speed
	"m/s":  {"speed", 1, 0},
	"km/h": {"speed", 1.0 / 3.6, 0},
	"ft/s": {"speed", 0.3048, 0},
	"kn":   {"speed", 1852.0 / 3600.0, 0},
}

// convert returns the coefficients converting a value in units from to units to:
// to = factor⋅from + shift. Empty units are compatible with any unit and are not converted
func convert(from, to string) (factor, shift float64, err error) {
	if from == "" || to == "" || from == to {
		return 1, 0, nil
	}
	a, ok := units[from]
	if !ok {
		return 0, 0, errs.New(errs.ConnectionError, "unit %q is not available", from)
	}
	b, ok := units[to]
	if !ok {
		return 0, 0, errs.New(errs.ConnectionError, "unit %q is not available", to)
	}
	if a.dim != b.dim {
		return 0, 0, errs.New(errs.ConnectionError, "units %q (%s) and %q (%s) are incompatible", from, a.dim, to, b.dim)
	}
	factor = a.scale / b.scale
	shift = a.offset*a.scale/b.scale - b.offset
	return
}
