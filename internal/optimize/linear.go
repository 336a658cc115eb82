package optimize

import (
	"math"

	"github.com/born-ml/padmm/internal/array"
)

// LinearSubproblemSolver solves quadratic subproblems by conjugate gradient
// on the normal equations
//
//	(2s AᴴA + Σ w_i C_iᴴC_i) x = 2s Aᴴy + Σ w_i C_iᴴ t_i
//
// where f = s·‖A x − y‖² (or f = 0). The operators are applied matrix-free,
// so any linop.Linear works.
type LinearSubproblemSolver struct {
	Tolerance float64 // Relative residual tolerance (default: 1e-4)
	MaxIter   int     // CG iteration limit per solve (default: 100)

	eq        normalEquations
	lastIters int
	lastRes   float64
}

// Setup checks that f is zero or a least-squares loss on the space of x.
func (s *LinearSubproblemSolver) Setup(p *Subproblem) error {
	if s.Tolerance == 0 {
		s.Tolerance = 1e-4
	}
	if s.MaxIter == 0 {
		s.MaxIter = 100
	}
	if s.Tolerance < 0 || s.MaxIter < 0 {
		return configError("cg: tolerance and iteration limit must be positive")
	}
	if err := checkPenalties(p); err != nil {
		return err
	}
	ls, err := leastSquaresOf(p.F)
	if err != nil {
		return err
	}
	if ls != nil && !ls.Operator().InputSpace().SameStructure(p.Space) {
		return configError("cg: loss domain %s, x is %s", ls.Operator().InputSpace(), p.Space)
	}
	s.eq = normalEquations{ls: ls}
	return nil
}

// Solve runs CG from x0.
func (s *LinearSubproblemSolver) Solve(p *Subproblem, x0 array.Value) (x array.Value, err error) {
	defer array.Recover(&err)
	s.eq.penalties = p.Penalties

	b, err := s.eq.rhs(p.Space)
	if err != nil {
		return nil, err
	}
	x, s.lastIters, s.lastRes, err = conjugateGradient(s.eq.apply, b, x0, s.Tolerance, s.MaxIter)
	return x, err
}

// LastIterations returns the CG iteration count of the last solve.
func (s *LinearSubproblemSolver) LastIterations() int { return s.lastIters }

// LastResidual returns the relative residual ‖b − M x‖/‖b‖ of the last solve.
func (s *LinearSubproblemSolver) LastResidual() float64 { return s.lastRes }

// conjugateGradient solves M x = b for Hermitian positive definite M.
// It returns the solution, the iteration count and the relative residual.
func conjugateGradient(apply func(array.Value) (array.Value, error), b, x0 array.Value, tol float64, maxIter int) (array.Value, int, float64, error) {
	bnorm := array.Norm(b)
	if bnorm == 0 {
		return array.ZerosLike(x0), 0, 0, nil
	}

	x := array.AsDouble(x0)
	ax, err := apply(x)
	if err != nil {
		return nil, 0, 0, err
	}
	r := array.Sub(b, ax)
	p := r
	rho := real(array.Vdot(r, r))
	res := math.Sqrt(rho) / bnorm

	iters := 0
	for iters < maxIter && res > tol {
		ap, err := apply(p)
		if err != nil {
			return nil, iters, res, err
		}
		alpha := rho / real(array.Vdot(p, ap))
		x = array.AXPY(complex(alpha, 0), p, x)
		r = array.AXPY(complex(-alpha, 0), ap, r)

		rhoNext := real(array.Vdot(r, r))
		p = array.AXPY(complex(rhoNext/rho, 0), p, r)
		rho = rhoNext
		res = math.Sqrt(rho) / bnorm
		iters++
	}
	return x, iters, res, nil
}
