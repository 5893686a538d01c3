// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"math"

	"github.com/cpmech/gomdao/errs"
	"github.com/cpmech/gomdao/inp"
	"github.com/cpmech/gomdao/jac"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// add solvers to factory
func init() {
	lnAllocators["runonce"] = func(opts map[string]interface{}) (LinearSolver, error) {
		o := NewLinearRunOnce()
		return o, inp.Decode(opts, &o.RunOnceData, "linear solver runonce")
	}
	lnAllocators["lbgs"] = func(opts map[string]interface{}) (LinearSolver, error) {
		o := NewLbgs()
		return o, inp.Decode(opts, &o.LinearData, "linear solver lbgs")
	}
	lnAllocators["direct"] = func(opts map[string]interface{}) (LinearSolver, error) {
		o := NewDirect()
		return o, inp.Decode(opts, &o.DirectData, "linear solver direct")
	}
	lnAllocators["krylov"] = func(opts map[string]interface{}) (LinearSolver, error) {
		o := NewKrylov()
		if err := inp.Decode(opts, &o.KrylovData, "linear solver krylov"); err != nil {
			return nil, err
		}
		if o.Precon != "" {
			var err error
			if o.Pc, err = NewLinearSolver(o.Precon, o.PreconOptions); err != nil {
				return nil, err
			}
		}
		return o, nil
	}
}

// vectors returns the solution and right-hand side views of the linear vectors over range r.
// Fwd: J⋅dout = dres; Rev: Jᵀ⋅dres = dout
func vectors(prob *Problem, r jac.Range, mode Mode) (x, b la.Vector) {
	x, b = prob.Dout.Data[r.Lo:r.Hi], prob.Dres.Data[r.Lo:r.Hi]
	if mode == Rev {
		x, b = b, x
	}
	return
}

// blockGS implements block Gauss-Seidel sweeps over the children of a group
type blockGS struct {
	g         *Group
	assembled bool      // use the assembled Jacobian for off-diagonal products
	b0        la.Vector // right-hand side of group
	tmp       la.Vector // products; global size
}

// init allocates scratch vectors
func (o *blockGS) init(g *Group) {
	o.g = g
	o.b0 = la.NewVector(g.rng.Len())
	o.tmp = la.NewVector(g.prob.Jac.N)
}

// sweep solves each child once, subtracting the contribution of all siblings from its
// right-hand side. Children run in order for Fwd and in reverse order for Rev
func (o *blockGS) sweep(mode Mode) (err error) {
	prob := o.g.prob
	G := o.g.rng
	subs := o.g.subs
	x, b := prob.Dout.Data, prob.Dres.Data
	if mode == Rev {
		x, b = b, x
	}
	for k := range subs {
		s := subs[k]
		if mode == Rev {
			s = subs[len(subs)-1-k]
		}
		rk := s.base().rng
		if rk.Len() == 0 {
			continue
		}
		for i := rk.Lo; i < rk.Hi; i++ {
			o.tmp[i] = 0
		}
		if mode == Rev {
			prob.Jac.MatVec(o.tmp, x, &jac.Filter{Rows: G, SkipRows: rk, Cols: rk}, true, o.assembled)
		} else {
			prob.Jac.MatVec(o.tmp, x, &jac.Filter{Rows: rk, Cols: G, SkipCols: rk}, false, o.assembled)
		}
		for i := rk.Lo; i < rk.Hi; i++ {
			b[i] = o.b0[i-G.Lo] - o.tmp[i]
		}
		if err = s.solveLinear(mode); err != nil {
			return
		}
	}
	return
}

// residual returns |b0 - J⋅x| over the group
func (o *blockGS) residual(mode Mode) float64 {
	prob := o.g.prob
	G := o.g.rng
	x := prob.Dout.Data
	if mode == Rev {
		x = prob.Dres.Data
	}
	for i := G.Lo; i < G.Hi; i++ {
		o.tmp[i] = 0
	}
	prob.Jac.MatVec(o.tmp, x, jac.Sub(G), mode == Rev, o.assembled)
	var sum float64
	for i := G.Lo; i < G.Hi; i++ {
		d := o.b0[i-G.Lo] - o.tmp[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// LinearRunOnce runs one block Gauss-Seidel sweep; exact for feed-forward groups
type LinearRunOnce struct {
	inp.RunOnceData
	blockGS
}

// NewLinearRunOnce returns a new solver
func NewLinearRunOnce() (o *LinearRunOnce) {
	o = new(LinearRunOnce)
	o.SetDefault()
	return
}

// Name returns the kind of solver
func (o *LinearRunOnce) Name() string { return "runonce" }

// Assembled tells whether the solver uses the assembled Jacobian
func (o *LinearRunOnce) Assembled() bool { return false }

// Solve runs one sweep
func (o *LinearRunOnce) Solve(mode Mode) (info *SolverInfo, err error) {
	_, b := vectors(o.g.prob, o.g.rng, mode)
	copy(o.b0, b)
	defer copy(b, o.b0)
	if err = o.sweep(mode); err != nil {
		return
	}
	if o.Iprint > 0 {
		io.Pf("%s: done (%s)\n", label(o, o.g), mode)
	}
	return &SolverInfo{Status: Converged, Iterations: 1}, nil
}

func (o *LinearRunOnce) setup(g *Group) error {
	o.init(g)
	return nil
}

// Lbgs implements the linear block Gauss-Seidel solver
type Lbgs struct {
	inp.LinearData
	blockGS
}

// NewLbgs returns a new solver
func NewLbgs() (o *Lbgs) {
	o = new(Lbgs)
	o.SetDefault()
	return
}

// Name returns the kind of solver
func (o *Lbgs) Name() string { return "lbgs" }

// Assembled tells whether the solver uses the assembled Jacobian
func (o *Lbgs) Assembled() bool { return o.AssembleJac }

// Solve runs sweeps until the residual of the group converges
func (o *Lbgs) Solve(mode Mode) (info *SolverInfo, err error) {
	_, b := vectors(o.g.prob, o.g.rng, mode)
	copy(o.b0, b)
	defer copy(b, o.b0)
	mon := newLnMonitor(label(o, o.g), &o.LinearData)
	if mon.start(o.residual(mode)) {
		return mon.finish()
	}
	for {
		if err = o.sweep(mode); err != nil {
			return
		}
		if mon.update(o.residual(mode)) {
			break
		}
	}
	return mon.finish()
}

func (o *Lbgs) setup(g *Group) error {
	o.init(g)
	o.assembled = o.AssembleJac
	return nil
}

// Direct solves the linear system of a group by factorizing the assembled diagonal block.
// Dense stores ("dict" and "dense") are inverted; sparse stores ("coo" and "csr") are factorized
// by UMFPACK
type Direct struct {
	inp.DirectData
	g          *Group
	gen        int             // Jacobian generation of factors
	factorized bool            // factors are available
	inv        *la.Matrix      // inverse of dense block
	fwd, rev   la.SparseSolver // sparse factors of block and its transpose
	b          la.Vector       // copy of right-hand side
}

// NewDirect returns a new solver
func NewDirect() (o *Direct) {
	o = new(Direct)
	o.SetDefault()
	return
}

// Name returns the kind of solver
func (o *Direct) Name() string { return "direct" }

// Assembled tells whether the solver uses the assembled Jacobian
func (o *Direct) Assembled() bool { return o.AssembleJac }

// Solve solves the system of the group. Factors are recomputed after each update of the Jacobian
func (o *Direct) Solve(mode Mode) (info *SolverInfo, err error) {
	if !o.AssembleJac {
		return nil, errs.New(errs.ConfigurationError, "%s requires assemble_jac", label(o, o.g))
	}
	defer errs.Recover(&err, errs.ConvergenceFailure)
	prob := o.g.prob
	if !o.factorized || o.gen != prob.Jac.Gen {
		o.factorize()
	}
	x, b := vectors(prob, o.g.rng, mode)
	copy(o.b, b)
	if o.inv != nil {
		if mode == Rev {
			la.MatTrVecMul(x, 1, o.inv, o.b)
		} else {
			la.MatVecMul(x, 1, o.inv, o.b)
		}
	} else {
		if mode == Rev {
			o.solveSparse(&o.rev, x, true)
		} else {
			o.solveSparse(&o.fwd, x, false)
		}
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errs.New(errs.ConvergenceFailure, "%s: singular matrix", label(o, o.g))
		}
	}
	return &SolverInfo{Status: Converged, Iterations: 1}, nil
}

// factorize computes the inverse of dense blocks. Sparse factors are computed when needed
func (o *Direct) factorize() {
	prob := o.g.prob
	o.free()
	store := prob.Jac.Matrix(true)
	switch store.(type) {
	case *jac.Dict, *jac.DenseMatrix:
		a := store.ToDense(o.g.rng)
		o.inv = la.NewMatrix(a.M, a.N)
		if err := inverse(o.inv, a, groupName(o.g)); err != nil {
			o.inv = nil
			panic(err)
		}
	}
	o.gen = prob.Jac.Gen
	o.factorized = true
	if o.Iprint > 0 {
		io.Pf("%s: factorized block with %d rows\n", label(o, o.g), o.g.rng.Len())
	}
}

// solveSparse solves with the sparse factors in *s, computing them if needed. gosl panics if the
// triplet is empty or the factorization fails; Solve recovers it
func (o *Direct) solveSparse(s *la.SparseSolver, x la.Vector, transp bool) {
	if *s == nil {
		t := o.g.prob.Jac.Matrix(true).ToTriplet(o.g.rng, transp)
		*s = la.NewSparseSolver("umfpack")
		(*s).Init(t, &la.SpArgs{})
		(*s).Fact()
	}
	(*s).Solve(x, o.b, false)
}

// free releases all factors
func (o *Direct) free() {
	o.inv = nil
	if o.fwd != nil {
		o.fwd.Free()
		o.fwd = nil
	}
	if o.rev != nil {
		o.rev.Free()
		o.rev = nil
	}
}

func (o *Direct) setup(g *Group) error {
	o.g = g
	o.b = la.NewVector(g.rng.Len())
	return nil
}

// Krylov implements the restarted GMRES method with optional right preconditioning by another
// linear solver of the same group
type Krylov struct {
	inp.KrylovData
	Pc LinearSolver // preconditioner; nil means none
	g  *Group

	// scratch
	b, x   la.Vector // right-hand side and solution of group
	r, w   la.Vector // residual and Arnoldi vector
	gx, gy la.Vector // products; global size
}

// NewKrylov returns a new solver
func NewKrylov() (o *Krylov) {
	o = new(Krylov)
	o.SetDefault()
	return
}

// Name returns the kind of solver
func (o *Krylov) Name() string { return "krylov" }

// Assembled tells whether the solver (or its preconditioner) uses the assembled Jacobian
func (o *Krylov) Assembled() bool {
	return o.AssembleJac || (o.Pc != nil && o.Pc.Assembled())
}

// Solve runs GMRES iterations until the residual of the group converges. Each inner iteration
// counts as one iteration
func (o *Krylov) Solve(mode Mode) (info *SolverInfo, err error) {
	xg, bg := vectors(o.g.prob, o.g.rng, mode)
	copy(o.b, bg)
	copy(o.x, xg)
	defer func() {
		copy(xg, o.x)
		copy(bg, o.b)
	}()

	// initial residual
	n := len(o.b)
	mon := newLnMonitor(label(o, o.g), &o.LinearData)
	beta := o.residual(mode)
	if mon.start(beta) {
		return mon.finish()
	}

	// restarts
	m := utl.Imin(o.Restart, n)
	if m < 1 {
		m = 1
	}
	V := utl.Alloc(m+1, n)
	Z := utl.Alloc(m, n)
	H := utl.Alloc(m+1, m)
	cs, sn, g := make([]float64, m), make([]float64, m), make([]float64, m+1)
	for done := false; !done; {
		for i := range V[0] {
			V[0][i] = o.r[i] / beta
		}
		for i := range g {
			g[i] = 0
		}
		g[0] = beta
		k := 0
		for j := 0; j < m; j++ {
			k = j + 1

			// Arnoldi step with modified Gram-Schmidt
			if err = o.precon(Z[j], V[j], mode); err != nil {
				return
			}
			o.matvec(o.w, Z[j], mode)
			for i := 0; i <= j; i++ {
				H[i][j] = la.VecDot(o.w, V[i])
				la.VecAdd(o.w, 1, o.w, -H[i][j], V[i])
			}
			H[j+1][j] = o.w.Norm()
			if H[j+1][j] != 0 {
				for i := range o.w {
					V[j+1][i] = o.w[i] / H[j+1][j]
				}
			}

			// Givens rotations
			for i := 0; i < j; i++ {
				a, b := H[i][j], H[i+1][j]
				H[i][j] = cs[i]*a + sn[i]*b
				H[i+1][j] = -sn[i]*a + cs[i]*b
			}
			den := math.Hypot(H[j][j], H[j+1][j])
			if den == 0 {
				cs[j], sn[j] = 1, 0
			} else {
				cs[j], sn[j] = H[j][j]/den, H[j+1][j]/den
			}
			H[j][j] = den
			H[j+1][j] = 0
			g[j+1] = -sn[j] * g[j]
			g[j] = cs[j] * g[j]
			if mon.update(math.Abs(g[j+1])) {
				done = true
				break
			}
			if den == 0 || math.Abs(g[j+1]) == 0 {
				break
			}
		}

		// update solution: x += Z⋅y with H⋅y = g
		y := make([]float64, k)
		for i := k - 1; i >= 0; i-- {
			s := g[i]
			for l := i + 1; l < k; l++ {
				s -= H[i][l] * y[l]
			}
			if H[i][i] != 0 {
				y[i] = s / H[i][i]
			}
		}
		for i := 0; i < k; i++ {
			la.VecAdd(o.x, 1, o.x, y[i], Z[i])
		}
		if done {
			break
		}
		beta = o.residual(mode)
		if beta == 0 {
			mon.info.Norm = 0
			mon.check()
			break
		}
	}
	return mon.finish()
}

// residual computes r = b - A⋅x and returns its norm
func (o *Krylov) residual(mode Mode) float64 {
	o.matvec(o.r, o.x, mode)
	for i := range o.r {
		o.r[i] = o.b[i] - o.r[i]
	}
	return o.r.Norm()
}

// matvec computes y = A⋅v where A is the diagonal block of the group (or its transpose)
func (o *Krylov) matvec(y, v la.Vector, mode Mode) {
	G := o.g.rng
	copy(o.gx[G.Lo:G.Hi], v)
	o.gy.Fill(0)
	o.g.prob.Jac.MatVec(o.gy, o.gx, jac.Sub(G), mode == Rev, o.AssembleJac)
	copy(y, o.gy[G.Lo:G.Hi])
}

// precon computes z = M⁻¹⋅v using the preconditioner (if any)
func (o *Krylov) precon(z, v la.Vector, mode Mode) (err error) {
	if o.Pc == nil {
		copy(z, v)
		return
	}
	xg, bg := vectors(o.g.prob, o.g.rng, mode)
	copy(bg, v)
	xg.Fill(0)
	if _, err = o.Pc.Solve(mode); err != nil {
		return
	}
	copy(z, xg)
	return
}

func (o *Krylov) setup(g *Group) error {
	o.g = g
	n := g.rng.Len()
	o.b, o.x, o.r, o.w = la.NewVector(n), la.NewVector(n), la.NewVector(n), la.NewVector(n)
	o.gx, o.gy = la.NewVector(g.prob.Jac.N), la.NewVector(g.prob.Jac.N)
	if o.Pc != nil {
		return o.Pc.setup(g)
	}
	return nil
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////

// newLnMonitor returns a monitor for linear solvers
func newLnMonitor(name string, d *inp.LinearData) *monitor {
	return &monitor{name: name, maxiter: d.Maxiter, atol: d.Atol, rtol: d.Rtol, iprint: d.Iprint, errOn: d.ErrOnNonConverge}
}
