// Package loss implements data-fidelity terms.
package loss

import (
	"math/cmplx"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
)

// LeastSquares is implemented by losses of the form scale·‖A x − y‖².
// Linear subproblem solvers use it to form the normal equations.
type LeastSquares interface {
	functional.Differentiable
	Operator() linop.Linear
	Target() array.Value
	Scale() float64
}

// SquaredL2Loss is scale·‖A x − y‖₂².
//
// Gradient:
//
//	∇f(x) = 2·scale·Aᴴ(A x − y)
//
// The proximal operator has a closed form when A is the identity or a
// diagonal operator; otherwise the loss is evaluable and differentiable only.
type SquaredL2Loss struct {
	y     array.Value
	a     linop.Linear
	scale float64
}

// NewSquaredL2Loss creates the loss scale·‖A x − y‖². A nil A is the identity
// on the space of y; a zero scale defaults to 1/2.
func NewSquaredL2Loss(y array.Value, a linop.Linear, scale float64) (*SquaredL2Loss, error) {
	if y == nil {
		return nil, errors.New("SquaredL2Loss: nil target")
	}
	if a == nil {
		a = linop.NewIdentity(array.SpaceOf(y))
	}
	if !a.OutputSpace().Contains(y) {
		return nil, errors.Wrapf(linop.ErrDomain, "SquaredL2Loss: operator range %s does not contain target %s", a.OutputSpace(), y)
	}
	if scale == 0 {
		scale = 0.5
	}
	if scale < 0 {
		return nil, errors.Errorf("SquaredL2Loss: scale must be positive, got %g", scale)
	}
	return &SquaredL2Loss{y: y, a: a, scale: scale}, nil
}

// Operator returns A.
func (l *SquaredL2Loss) Operator() linop.Linear { return l.a }

// Target returns y.
func (l *SquaredL2Loss) Target() array.Value { return l.y }

// Scale returns the scalar weight.
func (l *SquaredL2Loss) Scale() float64 { return l.scale }

// Capabilities returns eval|grad, plus prox for identity or diagonal A.
func (l *SquaredL2Loss) Capabilities() functional.Capability {
	c := functional.CanEval | functional.CanGrad
	switch l.a.(type) {
	case *linop.Identity, *linop.Diagonal:
		c |= functional.CanProx
	}
	return c
}

func (l *SquaredL2Loss) residual(x array.Value) (array.Value, error) {
	ax, err := l.a.Apply(x)
	if err != nil {
		return nil, err
	}
	return array.Sub(ax, l.y), nil
}

// Eval returns scale·‖A x − y‖².
func (l *SquaredL2Loss) Eval(x array.Value) (v float64, err error) {
	defer array.Recover(&err)
	r, err := l.residual(x)
	if err != nil {
		return 0, err
	}
	return l.scale * real(array.Vdot(r, r)), nil
}

// Grad returns 2·scale·Aᴴ(A x − y).
func (l *SquaredL2Loss) Grad(x array.Value) (g array.Value, err error) {
	defer array.Recover(&err)
	r, err := l.residual(x)
	if err != nil {
		return nil, err
	}
	ahr, err := l.a.Adjoint(r)
	if err != nil {
		return nil, err
	}
	return array.Scale(complex(2*l.scale, 0), ahr), nil
}

// Prox solves (I + 2·scale·step·AᴴA) x = v + 2·scale·step·Aᴴy for identity
// or diagonal A.
func (l *SquaredL2Loss) Prox(v array.Value, step float64) (p array.Value, err error) {
	defer array.Recover(&err)
	c := complex(2*l.scale*step, 0)
	switch a := l.a.(type) {
	case *linop.Identity:
		num := array.AXPY(c, l.y, v)
		return array.Scale(1/(1+c), num), nil
	case *linop.Diagonal:
		d := a.Diag()
		dhy := array.Mul(array.Conj(d), l.y)
		num := array.AXPY(c, dhy, v)
		return array.Zip(num, d, func(n, di complex128) complex128 {
			m := cmplx.Abs(di)
			return n / (1 + c*complex(m*m, 0))
		}), nil
	}
	return nil, errors.Wrapf(functional.ErrUnsupported, "SquaredL2Loss prox with operator %T", l.a)
}
