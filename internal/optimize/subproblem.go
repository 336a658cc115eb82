package optimize

import (
	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
	"github.com/born-ml/padmm/internal/loss"
)

// Penalty is the quadratic term (Weight/2)·‖Op x − Target‖².
type Penalty struct {
	Op     linop.Linear
	Weight float64
	Target array.Value
}

// Subproblem is the x-minimization
//
//	argmin_x F(x) + Σ_i (w_i/2)·‖C_i x − t_i‖²
//
// Operators and weights are fixed for the lifetime of a solver; targets
// change every outer iteration.
type Subproblem struct {
	F         functional.Functional
	Penalties []Penalty
	Space     array.Space // Space of x
}

// gradient returns ∇F(x) + Σ w_i C_iᴴ(C_i x − t_i).
func (p *Subproblem) gradient(x array.Value) (array.Value, error) {
	g, err := functional.Grad(p.F, x)
	if err != nil {
		return nil, err
	}
	for _, t := range p.Penalties {
		cx, err := t.Op.Apply(x)
		if err != nil {
			return nil, err
		}
		adj, err := t.Op.Adjoint(array.Sub(cx, t.Target))
		if err != nil {
			return nil, err
		}
		g = array.AXPY(complex(t.Weight, 0), adj, g)
	}
	return g, nil
}

// objective returns F(x) + Σ (w_i/2)‖C_i x − t_i‖².
func (p *Subproblem) objective(x array.Value) (float64, error) {
	v, err := functional.Eval(p.F, x)
	if err != nil {
		return 0, err
	}
	for _, t := range p.Penalties {
		cx, err := t.Op.Apply(x)
		if err != nil {
			return 0, err
		}
		r := array.Norm(array.Sub(cx, t.Target))
		v += t.Weight / 2 * r * r
	}
	return v, nil
}

// SubproblemSolver minimizes a Subproblem.
type SubproblemSolver interface {
	// Setup checks that the solver can handle p and performs any one-off
	// work such as factorization. Targets are not set yet.
	Setup(p *Subproblem) error
	// Solve returns the minimizer, starting from x0.
	Solve(p *Subproblem, x0 array.Value) (array.Value, error)
}

// InnerStats is implemented by subproblem solvers that report the work done
// by their last Solve.
type InnerStats interface {
	LastIterations() int
	LastResidual() float64
}

// leastSquaresOf returns the quadratic data term of f: nil for Zero, the
// loss itself for a LeastSquares term.
func leastSquaresOf(f functional.Functional) (loss.LeastSquares, error) {
	switch t := f.(type) {
	case functional.Zero, *functional.Zero:
		return nil, nil
	case loss.LeastSquares:
		return t, nil
	}
	return nil, errors.Wrapf(ErrMissingCapability, "f must be a least-squares loss, got %T", f)
}

// normalEquations holds the map x ↦ 2s AᴴA x + Σ w_i C_iᴴC_i x and the
// right-hand side 2s Aᴴy + Σ w_i C_iᴴ t_i of a quadratic Subproblem.
type normalEquations struct {
	ls        loss.LeastSquares
	penalties []Penalty
}

func (n normalEquations) apply(x array.Value) (array.Value, error) {
	out := array.ZerosLike(x)
	if n.ls != nil {
		g, err := linop.Gram(n.ls.Operator()).Apply(x)
		if err != nil {
			return nil, err
		}
		out = array.AXPY(complex(2*n.ls.Scale(), 0), g, out)
	}
	for _, t := range n.penalties {
		g, err := linop.Gram(t.Op).Apply(x)
		if err != nil {
			return nil, err
		}
		out = array.AXPY(complex(t.Weight, 0), g, out)
	}
	return out, nil
}

func (n normalEquations) rhs(space array.Space) (array.Value, error) {
	out := array.AsDouble(space.Zeros())
	if n.ls != nil {
		aty, err := n.ls.Operator().Adjoint(n.ls.Target())
		if err != nil {
			return nil, err
		}
		out = array.AXPY(complex(2*n.ls.Scale(), 0), aty, out)
	}
	for _, t := range n.penalties {
		ct, err := t.Op.Adjoint(t.Target)
		if err != nil {
			return nil, err
		}
		out = array.AXPY(complex(t.Weight, 0), ct, out)
	}
	return out, nil
}

func checkPenalties(p *Subproblem) error {
	if len(p.Penalties) == 0 && p.F == nil {
		return configError("empty subproblem")
	}
	for i, t := range p.Penalties {
		if t.Weight <= 0 {
			return configError("penalty %d: weight must be positive, got %g", i, t.Weight)
		}
		if !t.Op.InputSpace().SameStructure(p.Space) {
			return errors.Wrapf(ErrShapeMismatch, "penalty %d: operator domain %s, x is %s", i, t.Op.InputSpace(), p.Space)
		}
	}
	return nil
}
