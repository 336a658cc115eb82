package optimize

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
)

// NonLinearPADMM solves
//
//	argmin_{x,z} f(x) + g(z)   subject to   H(x, z) = 0
//
// by a proximal linearized ADMM. Each iteration linearizes the augmented
// term around the current point and takes proximal steps:
//
//	x ← prox_f(x − μ⁻¹ J_xᴴ(H(x, z) + u), 1/(ρμ))
//	z ← prox_g(z − ν⁻¹ J_zᴴ(H(x, z) + u), 1/(ρν))
//	u ← u + H(x, z)
//
// The z-update uses the new x. For H(x, z) = C x − z, convergence needs
// μ ≥ ‖C‖²; ν = 1 makes the z-step an exact ADMM step.
//
// Jacobian products come from the coupling when it implements CouplingVJP,
// and from central differences otherwise.
type NonLinearPADMM struct {
	iterative[*NonLinearPADMM]

	f, g         functional.Functional
	h            Coupling
	rho, mu, nu  float64
	x, z, u      array.Value
	hxz, hxzPrev array.Value // H(x, z) and H(x, z_prev) at the current x
	xGrad        array.Value // J_xᴴ(H(x, z) + u) at the current iterate, or nil
	dual         float64
	dualAt       int // Iteration of the cached dual residual, -1 if none
	proxF        func(v array.Value, step float64) (array.Value, error)
	sub          SubproblemSolver
	evaluable    bool
}

// NonLinearPADMMConfig holds the optional settings of NewNonLinearPADMM.
type NonLinearPADMMConfig struct {
	Options[*NonLinearPADMM]

	// SubproblemSolver computes the x-step when set, or when f has no
	// proximal operator (default: GenericSubproblemSolver).
	SubproblemSolver SubproblemSolver
}

// NewNonLinearPADMM creates the solver. f may be nil (no x term); u0 may be
// nil, in which case u starts at zero. rho, mu and nu must be positive.
func NewNonLinearPADMM(f, g functional.Functional, h Coupling, rho, mu, nu float64, x0, z0, u0 array.Value, cfg NonLinearPADMMConfig) (*NonLinearPADMM, error) {
	if h == nil {
		return nil, configError("NonLinearPADMM: nil coupling")
	}
	if x0 == nil || z0 == nil {
		return nil, configError("NonLinearPADMM: x0 and z0 are required")
	}
	for _, p := range []struct {
		name string
		v    float64
	}{{"rho", rho}, {"mu", mu}, {"nu", nu}} {
		if !(p.v > 0) {
			return nil, configError("NonLinearPADMM: %s must be positive, got %g", p.name, p.v)
		}
	}
	if f == nil {
		f = functional.Zero{}
	}
	if err := requireTerm("g", g, functional.CanProx); err != nil {
		return nil, errors.Wrap(err, "NonLinearPADMM")
	}

	s := &NonLinearPADMM{
		f:         f,
		g:         g,
		h:         h,
		rho:       rho,
		mu:        mu,
		nu:        nu,
		x:         array.Clone(x0),
		z:         array.Clone(z0),
		evaluable: functional.Has(f, functional.CanEval) && functional.Has(g, functional.CanEval),
		dualAt:    -1,
	}
	if err := s.initDual(u0); err != nil {
		return nil, err
	}
	if err := s.initXStep(cfg.SubproblemSolver); err != nil {
		return nil, err
	}
	if err := s.init("NonLinearPADMM", s, s.step, cfg.Options, s.columns()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *NonLinearPADMM) initDual(u0 array.Value) (err error) {
	defer array.Recover(&err)
	hxz, err := s.h.Eval(s.x, s.z)
	if err != nil {
		return errors.Wrap(err, "NonLinearPADMM: H(x0, z0)")
	}
	if u0 == nil {
		s.u = array.ZerosLike(hxz)
	} else {
		if err := array.CheckStructure("NonLinearPADMM: u0", u0, hxz); err != nil {
			return err
		}
		s.u = array.Clone(u0)
	}
	s.hxz, s.hxzPrev = hxz, hxz
	return nil
}

func (s *NonLinearPADMM) initXStep(sub SubproblemSolver) error {
	if sub == nil && functional.Has(s.f, functional.CanProx) {
		s.proxF = func(v array.Value, step float64) (array.Value, error) {
			return functional.Prox(s.f, v, step)
		}
		return nil
	}
	if sub == nil {
		sub = &GenericSubproblemSolver{}
	}
	space := array.SpaceOf(s.x)
	p := &Subproblem{
		F:         s.f,
		Space:     space,
		Penalties: []Penalty{{Op: linop.NewIdentity(space), Weight: s.rho * s.mu}},
	}
	if err := sub.Setup(p); err != nil {
		return errors.Wrap(err, "NonLinearPADMM: x-step needs a proximable f or a usable subproblem solver")
	}
	s.sub = sub
	s.proxF = func(v array.Value, _ float64) (array.Value, error) {
		p.Penalties[0].Target = v
		return sub.Solve(p, v)
	}
	return nil
}

func (s *NonLinearPADMM) columns() []column[*NonLinearPADMM] {
	cols := []column[*NonLinearPADMM]{
		newColumn("Iter", "%d", func(s *NonLinearPADMM) any { return s.Iteration() }),
		newColumn("Time", "%8.2e", func(s *NonLinearPADMM) any { return s.Elapsed().Seconds() }),
	}
	if s.evaluable {
		cols = append(cols, newColumn("Objective", "%9.3e", func(s *NonLinearPADMM) any {
			v, err := s.Objective()
			if err != nil {
				return math.NaN()
			}
			return v
		}))
	}
	cols = append(cols,
		newColumn("Prml Rsdl", "%9.3e", func(s *NonLinearPADMM) any { return s.PrimalResidual() }),
		newColumn("Dual Rsdl", "%9.3e", func(s *NonLinearPADMM) any { return s.DualResidual() }),
	)
	if cg, ok := s.sub.(*LinearSubproblemSolver); ok {
		cols = append(cols,
			newColumn("CG It", "%5d", func(*NonLinearPADMM) any { return cg.LastIterations() }),
			newColumn("CG Res", "%9.3e", func(*NonLinearPADMM) any { return cg.LastResidual() }),
		)
	}
	return cols
}

func (s *NonLinearPADMM) step() (err error) {
	defer array.Recover(&err)

	gx := s.xGrad
	if gx == nil {
		if gx, err = vjpX(s.h, s.x, s.z, array.Add(s.hxz, s.u)); err != nil {
			return errors.Wrap(err, "x update: VJP")
		}
	}
	x, err := s.proxF(array.AXPY(complex(-1/s.mu, 0), gx, s.x), 1/(s.rho*s.mu))
	if err != nil {
		return errors.Wrap(err, "x update")
	}
	x = array.Conform(x, s.x)

	hx, err := s.h.Eval(x, s.z)
	if err != nil {
		return errors.Wrap(err, "z update: H")
	}
	gz, err := vjpZ(s.h, x, s.z, array.Add(hx, s.u))
	if err != nil {
		return errors.Wrap(err, "z update: VJP")
	}
	z, err := functional.Prox(s.g, array.AXPY(complex(-1/s.nu, 0), gz, s.z), 1/(s.rho*s.nu))
	if err != nil {
		return errors.Wrap(err, "z update")
	}
	z = array.Conform(z, s.z)

	hxz, err := s.h.Eval(x, z)
	if err != nil {
		return errors.Wrap(err, "u update: H")
	}
	s.x, s.z = x, z
	s.hxz, s.hxzPrev = hxz, hx
	s.u = array.Conform(array.Add(s.u, hxz), s.u)
	s.resetCache()
	return nil
}

// resetCache drops values derived from the previous iterate.
func (s *NonLinearPADMM) resetCache() {
	s.xGrad = nil
	s.dualAt = -1
}

// Solve runs up to MaxIter iterations, calling callback after each, and
// returns the current x. A later call continues from the current state.
func (s *NonLinearPADMM) Solve(ctx context.Context, callback func(*NonLinearPADMM)) (array.Value, error) {
	err := s.run(ctx, callback)
	return s.x, err
}

// X returns the current x.
func (s *NonLinearPADMM) X() array.Value { return s.x }

// Z returns the current z.
func (s *NonLinearPADMM) Z() array.Value { return s.z }

// U returns the current scaled dual variable.
func (s *NonLinearPADMM) U() array.Value { return s.u }

// Params returns ρ, μ and ν.
func (s *NonLinearPADMM) Params() (rho, mu, nu float64) { return s.rho, s.mu, s.nu }

// Objective returns f(x) + g(z) at the current iterate.
func (s *NonLinearPADMM) Objective() (float64, error) {
	return s.ObjectiveAt(s.x, s.z)
}

// ObjectiveAt returns f(x) + g(z).
func (s *NonLinearPADMM) ObjectiveAt(x, z array.Value) (float64, error) {
	fx, err := functional.Eval(s.f, x)
	if err != nil {
		return 0, errors.Wrap(err, "f")
	}
	gz, err := functional.Eval(s.g, z)
	if err != nil {
		return 0, errors.Wrap(err, "g")
	}
	return fx + gz, nil
}

// PrimalResidual returns ‖H(x, z)‖.
func (s *NonLinearPADMM) PrimalResidual() float64 {
	return array.Norm(s.hxz)
}

// DualResidual returns ρ‖J_x H(x, z)ᴴ (H(x, z) − H(x, z_prev))‖, zero
// before the first iteration. The Jacobian product is computed together
// with the one the next x-update needs, so recording this column costs one
// extra sweep per Solve rather than one per iteration.
func (s *NonLinearPADMM) DualResidual() float64 {
	if s.Iteration() == 0 {
		return 0
	}
	if s.dualAt == s.Iteration() {
		return s.dual
	}
	p, err := vjpXs(s.h, s.x, s.z, array.Sub(s.hxz, s.hxzPrev), array.Add(s.hxz, s.u))
	if err != nil {
		return math.NaN()
	}
	s.xGrad = p[1]
	s.dual, s.dualAt = s.rho*array.Norm(p[0]), s.Iteration()
	return s.dual
}
