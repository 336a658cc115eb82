package optimize

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/optim"
)

// InnerMethod selects the update rule of GenericSubproblemSolver.
type InnerMethod int

// Inner update rules.
const (
	// Backtracking is gradient descent with an Armijo line search.
	Backtracking InnerMethod = iota
	// Momentum is gradient descent with heavy-ball momentum and a fixed LR.
	Momentum
	// Adam is the Adam update with a fixed LR.
	Adam
)

func (m InnerMethod) String() string {
	switch m {
	case Backtracking:
		return "backtracking"
	case Momentum:
		return "momentum"
	case Adam:
		return "adam"
	default:
		return "unknown"
	}
}

// GenericSubproblemSolver minimizes any subproblem whose f is
// differentiable, using first-order inner iterations.
type GenericSubproblemSolver struct {
	Method    InnerMethod
	MaxIter   int     // Inner iteration limit (default: 100)
	Tolerance float64 // Stop when ‖∇‖ ≤ Tolerance·max(1, ‖∇₀‖) (default: 1e-6)
	LR        float64 // Initial step for Backtracking, fixed LR otherwise
	Momentum  float64 // Momentum factor (default: 0.9)

	opt       optim.Optimizer
	lastIters int
	lastRes   float64
}

// Setup checks that f is differentiable and creates the update rule.
func (s *GenericSubproblemSolver) Setup(p *Subproblem) error {
	if err := checkPenalties(p); err != nil {
		return err
	}
	want := functional.CanGrad
	if s.Method == Backtracking {
		want |= functional.CanEval
	}
	if err := requireTerm("f", p.F, want); err != nil {
		return errors.Wrap(err, "generic subproblem solver")
	}
	if s.MaxIter == 0 {
		s.MaxIter = 100
	}
	if s.Tolerance == 0 {
		s.Tolerance = 1e-6
	}
	if s.MaxIter < 0 || s.Tolerance < 0 || s.LR < 0 {
		return configError("generic subproblem solver: negative setting")
	}
	switch s.Method {
	case Backtracking:
		if s.LR == 0 {
			s.LR = 1
		}
		s.opt = optim.NewSGD(optim.SGDConfig{LR: s.LR})
	case Momentum:
		if s.Momentum == 0 {
			s.Momentum = 0.9
		}
		s.opt = optim.NewSGD(optim.SGDConfig{LR: s.LR, Momentum: s.Momentum})
	case Adam:
		s.opt = optim.NewAdam(optim.AdamConfig{LR: s.LR})
	default:
		return configError("unknown inner method %d", s.Method)
	}
	return nil
}

// Solve runs the inner iterations from x0.
func (s *GenericSubproblemSolver) Solve(p *Subproblem, x0 array.Value) (x array.Value, err error) {
	defer array.Recover(&err)
	s.opt.Reset()

	x = array.AsDouble(x0)
	g, err := p.gradient(x)
	if err != nil {
		return nil, err
	}
	stop := s.Tolerance * math.Max(1, array.Norm(g))

	var k int
	for k = 0; k < s.MaxIter && array.Norm(g) > stop; k++ {
		if s.Method == Backtracking {
			var moved bool
			if x, moved, err = s.lineSearch(p, x, g); err != nil {
				return nil, err
			}
			if !moved {
				break
			}
		} else {
			x = s.opt.Step(x, g)
		}
		if g, err = p.gradient(x); err != nil {
			return nil, err
		}
	}
	s.lastIters = k
	s.lastRes = array.Norm(g)
	return x, nil
}

// lineSearch takes one Armijo step along −g. The accepted step is doubled
// as the first trial of the next call. It reports false when no step
// decreases the objective, which happens once x is optimal to rounding.
func (s *GenericSubproblemSolver) lineSearch(p *Subproblem, x, g array.Value) (array.Value, bool, error) {
	const (
		armijo = 1e-4
		shrink = 0.5
	)
	f0, err := p.objective(x)
	if err != nil {
		return nil, false, err
	}
	gg := real(array.Vdot(g, g))
	lr := s.opt.GetLR()
	for i := 0; i < 60; i++ {
		next := s.opt.Step(x, g)
		fn, err := p.objective(next)
		if err != nil {
			return nil, false, err
		}
		if fn <= f0-armijo*lr*gg {
			s.opt.SetLR(lr * 2)
			return next, true, nil
		}
		lr *= shrink
		s.opt.SetLR(lr)
	}
	s.opt.SetLR(s.LR)
	return x, false, nil
}

// LastIterations returns the inner iteration count of the last solve.
func (s *GenericSubproblemSolver) LastIterations() int { return s.lastIters }

// LastResidual returns the gradient norm at the end of the last solve.
func (s *GenericSubproblemSolver) LastResidual() float64 { return s.lastRes }
