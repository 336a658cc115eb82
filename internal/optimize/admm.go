package optimize

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
)

// ADMM solves
//
//	argmin_x f(x) + Σ_i g_i(C_i x)
//
// by the alternating direction method of multipliers with one splitting
// variable z_i and scaled dual variable u_i per term:
//
//	x   ← argmin_x f(x) + Σ_i (ρ_i/2)‖C_i x − z_i + u_i‖²
//	z_i ← prox_{g_i}(C_i x + u_i, 1/ρ_i)
//	u_i ← u_i + C_i x − z_i
//
// The x-update is delegated to a SubproblemSolver.
type ADMM struct {
	iterative[*ADMM]

	f   functional.Functional
	g   []functional.Functional
	c   []linop.Linear
	rho []float64

	x          array.Value
	z, zOld, u []array.Value
	sub        SubproblemSolver
	subproblem *Subproblem
	evaluable  bool
}

// ADMMConfig holds the optional settings of NewADMM.
type ADMMConfig struct {
	Options[*ADMM]

	Z0, U0           []array.Value    // Initial z_i (default C_i x0) and u_i (default 0)
	SubproblemSolver SubproblemSolver // Default: GenericSubproblemSolver
}

// NewADMM creates an ADMM solver. f may be nil (no data term); x0 may be
// nil, in which case x starts at zero in the domain of C_0. The lists g, c
// and rho must have equal, non-zero length, and every ρ_i must be positive.
func NewADMM(f functional.Functional, g []functional.Functional, c []linop.Linear, rho []float64, x0 array.Value, cfg ADMMConfig) (*ADMM, error) {
	if len(g) == 0 || len(g) != len(c) || len(g) != len(rho) {
		return nil, configError("ADMM: g, C and rho lists have lengths %d, %d, %d", len(g), len(c), len(rho))
	}
	for i, r := range rho {
		if !(r > 0) {
			return nil, configError("ADMM: rho[%d] must be positive, got %g", i, r)
		}
	}
	if f == nil {
		f = functional.Zero{}
	}
	if x0 == nil {
		x0 = c[0].InputSpace().Zeros()
	}

	s := &ADMM{
		f:    f,
		g:    g,
		c:    c,
		rho:  append([]float64(nil), rho...),
		x:    array.Clone(x0),
		z:    make([]array.Value, len(g)),
		zOld: make([]array.Value, len(g)),
		u:    make([]array.Value, len(g)),
	}
	if err := s.initVariables(cfg.Z0, cfg.U0); err != nil {
		return nil, err
	}

	s.evaluable = functional.Has(f, functional.CanEval)
	for i, gi := range g {
		if err := requireTerm(fmt.Sprintf("g[%d]", i), gi, functional.CanProx); err != nil {
			return nil, errors.Wrap(err, "ADMM")
		}
		s.evaluable = s.evaluable && functional.Has(gi, functional.CanEval)
	}

	s.sub = cfg.SubproblemSolver
	if s.sub == nil {
		s.sub = &GenericSubproblemSolver{}
	}
	s.subproblem = &Subproblem{F: f, Space: array.SpaceOf(x0), Penalties: make([]Penalty, len(c))}
	for i := range c {
		s.subproblem.Penalties[i] = Penalty{Op: c[i], Weight: rho[i]}
	}
	if err := s.sub.Setup(s.subproblem); err != nil {
		return nil, errors.Wrap(err, "ADMM: subproblem solver")
	}

	if err := s.init("ADMM", s, s.step, cfg.Options, s.columns()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ADMM) initVariables(z0, u0 []array.Value) (err error) {
	defer array.Recover(&err)
	if z0 != nil && len(z0) != len(s.g) {
		return configError("ADMM: %d initial z values for %d terms", len(z0), len(s.g))
	}
	if u0 != nil && len(u0) != len(s.g) {
		return configError("ADMM: %d initial u values for %d terms", len(u0), len(s.g))
	}
	for i, ci := range s.c {
		if !ci.InputSpace().Contains(s.x) {
			return errors.Wrapf(ErrShapeMismatch, "ADMM: C[%d] domain is %s, x0 is %s", i, ci.InputSpace(), s.x)
		}
		out := ci.OutputSpace()
		if z0 != nil && z0[i] != nil {
			if !out.Contains(z0[i]) {
				return errors.Wrapf(ErrShapeMismatch, "ADMM: z0[%d] is %s, want %s", i, z0[i], out)
			}
			s.z[i] = array.Clone(z0[i])
		} else {
			cx, err := ci.Apply(s.x)
			if err != nil {
				return err
			}
			s.z[i] = cx
		}
		if u0 != nil && u0[i] != nil {
			if !out.Contains(u0[i]) {
				return errors.Wrapf(ErrShapeMismatch, "ADMM: u0[%d] is %s, want %s", i, u0[i], out)
			}
			s.u[i] = array.Clone(u0[i])
		} else {
			s.u[i] = array.ZerosLike(s.z[i])
		}
		s.zOld[i] = s.z[i]
	}
	return nil
}

func (s *ADMM) columns() []column[*ADMM] {
	cols := []column[*ADMM]{
		newColumn("Iter", "%d", func(s *ADMM) any { return s.Iteration() }),
		newColumn("Time", "%8.2e", func(s *ADMM) any { return s.Elapsed().Seconds() }),
	}
	if s.evaluable {
		cols = append(cols, newColumn("Objective", "%9.3e", func(s *ADMM) any {
			v, err := s.Objective()
			if err != nil {
				return math.NaN()
			}
			return v
		}))
	}
	cols = append(cols,
		newColumn("Prml Rsdl", "%9.3e", func(s *ADMM) any { return s.PrimalResidual() }),
		newColumn("Dual Rsdl", "%9.3e", func(s *ADMM) any { return s.DualResidual() }),
	)
	if cg, ok := s.sub.(*LinearSubproblemSolver); ok {
		cols = append(cols,
			newColumn("CG It", "%5d", func(*ADMM) any { return cg.LastIterations() }),
			newColumn("CG Res", "%9.3e", func(*ADMM) any { return cg.LastResidual() }),
		)
	}
	return cols
}

func (s *ADMM) step() (err error) {
	defer array.Recover(&err)

	for i := range s.subproblem.Penalties {
		s.subproblem.Penalties[i].Target = array.Sub(s.z[i], s.u[i])
	}
	x, err := s.sub.Solve(s.subproblem, s.x)
	if err != nil {
		return errors.Wrap(err, "x update")
	}
	s.x = array.Conform(x, s.x)
	if in, ok := s.sub.(InnerStats); ok {
		s.log.WithFields(logrus.Fields{
			"inner_iterations": in.LastIterations(),
			"inner_residual":   in.LastResidual(),
		}).Trace("x update")
	}

	for i, gi := range s.g {
		cx, err := s.c[i].Apply(s.x)
		if err != nil {
			return err
		}
		v := array.Add(cx, s.u[i])
		z, err := functional.Prox(gi, v, 1/s.rho[i])
		if err != nil {
			return errors.Wrapf(err, "z[%d] update", i)
		}
		s.zOld[i] = s.z[i]
		s.z[i] = array.Conform(z, s.z[i])
		s.u[i] = array.Conform(array.Sub(v, s.z[i]), s.u[i])
	}
	return nil
}

// Solve runs up to MaxIter iterations, calling callback after each, and
// returns the current x. A later call continues from the current state.
func (s *ADMM) Solve(ctx context.Context, callback func(*ADMM)) (array.Value, error) {
	err := s.run(ctx, callback)
	return s.x, err
}

// X returns the current primary variable.
func (s *ADMM) X() array.Value { return s.x }

// Z returns the current splitting variable of term i.
func (s *ADMM) Z(i int) array.Value { return s.z[i] }

// U returns the current scaled dual variable of term i.
func (s *ADMM) U(i int) array.Value { return s.u[i] }

// Rho returns the penalty parameter of term i.
func (s *ADMM) Rho(i int) float64 { return s.rho[i] }

// NumTerms returns the number of g_i terms.
func (s *ADMM) NumTerms() int { return len(s.g) }

// Objective returns f(x) + Σ g_i(z_i) at the current iterate.
func (s *ADMM) Objective() (float64, error) {
	return s.ObjectiveAt(s.x, s.z)
}

// ObjectiveAt returns f(x) + Σ g_i(z_i) for the given values.
func (s *ADMM) ObjectiveAt(x array.Value, z []array.Value) (float64, error) {
	if len(z) != len(s.g) {
		return 0, configError("ADMM: objective needs %d z values, got %d", len(s.g), len(z))
	}
	out, err := functional.Eval(s.f, x)
	if err != nil {
		return 0, errors.Wrap(err, "f")
	}
	for i, gi := range s.g {
		v, err := functional.Eval(gi, z[i])
		if err != nil {
			return 0, errors.Wrapf(err, "g[%d]", i)
		}
		out += v
	}
	return out, nil
}

// PrimalResidual returns sqrt(Σ_i ‖C_i x − z_i‖²).
func (s *ADMM) PrimalResidual() float64 {
	var sum float64
	for i, ci := range s.c {
		cx, err := ci.Apply(s.x)
		if err != nil {
			return math.NaN()
		}
		r := array.Norm(array.Sub(cx, s.z[i]))
		sum += r * r
	}
	return math.Sqrt(sum)
}

// DualResidual returns sqrt(Σ_i ‖ρ_i C_iᴴ(z_i − z_i,prev)‖²).
func (s *ADMM) DualResidual() float64 {
	var sum float64
	for i, ci := range s.c {
		d, err := ci.Adjoint(array.Sub(s.z[i], s.zOld[i]))
		if err != nil {
			return math.NaN()
		}
		r := s.rho[i] * array.Norm(d)
		sum += r * r
	}
	return math.Sqrt(sum)
}
