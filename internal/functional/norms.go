package functional

import (
	"math"
	"math/cmplx"

	"github.com/born-ml/padmm/internal/array"
)

// Zero is the constant zero functional.
type Zero struct{}

// Capabilities returns eval|grad|prox.
func (Zero) Capabilities() Capability { return CanEval | CanGrad | CanProx }

// Eval returns 0.
func (Zero) Eval(array.Value) (float64, error) { return 0, nil }

// Grad returns zeros.
func (Zero) Grad(x array.Value) (array.Value, error) { return array.ZerosLike(x), nil }

// Prox returns a copy of v.
func (Zero) Prox(v array.Value, _ float64) (array.Value, error) { return array.Clone(v), nil }

// L1Norm is ‖x‖₁ = Σ|x_i|.
type L1Norm struct{}

// Capabilities returns eval|prox.
func (L1Norm) Capabilities() Capability { return CanEval | CanProx }

// Eval returns Σ|x_i|.
func (L1Norm) Eval(x array.Value) (float64, error) {
	var s float64
	for _, d := range array.Components(x) {
		for _, v := range d.Data() {
			s += cmplx.Abs(v)
		}
	}
	return s, nil
}

// Prox applies soft thresholding; complex entries shrink in magnitude and
// keep their phase.
func (L1Norm) Prox(v array.Value, step float64) (array.Value, error) {
	return array.Map(v, func(x complex128) complex128 {
		a := cmplx.Abs(x)
		if a <= step {
			return 0
		}
		return x * complex(1-step/a, 0)
	}), nil
}

// L2Norm is ‖x‖₂ (not squared).
type L2Norm struct{}

// Capabilities returns eval|prox.
func (L2Norm) Capabilities() Capability { return CanEval | CanProx }

// Eval returns ‖x‖₂.
func (L2Norm) Eval(x array.Value) (float64, error) { return array.Norm(x), nil }

// Prox applies block soft thresholding to the whole value.
func (L2Norm) Prox(v array.Value, step float64) (array.Value, error) {
	n := array.Norm(v)
	if n <= step {
		return array.ZerosLike(v), nil
	}
	return array.Scale(complex(1-step/n, 0), v), nil
}

// SquaredL2Norm is ‖x‖₂².
type SquaredL2Norm struct{}

// Capabilities returns eval|grad|prox.
func (SquaredL2Norm) Capabilities() Capability { return CanEval | CanGrad | CanProx }

// Eval returns ‖x‖₂².
func (SquaredL2Norm) Eval(x array.Value) (float64, error) {
	return real(array.Vdot(x, x)), nil
}

// Grad returns 2x.
func (SquaredL2Norm) Grad(x array.Value) (array.Value, error) {
	return array.Scale(2, x), nil
}

// Prox returns v / (1 + 2·step).
func (SquaredL2Norm) Prox(v array.Value, step float64) (array.Value, error) {
	return array.Scale(complex(1/(1+2*step), 0), v), nil
}

// NonNegativeIndicator is 0 on the real non-negative orthant and +∞ elsewhere.
type NonNegativeIndicator struct{}

// Capabilities returns eval|prox.
func (NonNegativeIndicator) Capabilities() Capability { return CanEval | CanProx }

// Eval returns 0 or +Inf.
func (NonNegativeIndicator) Eval(x array.Value) (float64, error) {
	for _, d := range array.Components(x) {
		for _, v := range d.Data() {
			if real(v) < 0 || imag(v) != 0 {
				return math.Inf(1), nil
			}
		}
	}
	return 0, nil
}

// Prox projects onto the non-negative orthant.
func (NonNegativeIndicator) Prox(v array.Value, _ float64) (array.Value, error) {
	return array.Map(v, func(x complex128) complex128 {
		return complex(math.Max(real(x), 0), 0)
	}), nil
}

// L2BallIndicator is 0 inside the ball ‖x‖₂ ≤ Radius and +∞ outside.
type L2BallIndicator struct {
	Radius float64
}

// Capabilities returns eval|prox.
func (L2BallIndicator) Capabilities() Capability { return CanEval | CanProx }

// Eval returns 0 or +Inf.
func (b L2BallIndicator) Eval(x array.Value) (float64, error) {
	if array.Norm(x) <= b.Radius {
		return 0, nil
	}
	return math.Inf(1), nil
}

// Prox projects onto the ball.
func (b L2BallIndicator) Prox(v array.Value, _ float64) (array.Value, error) {
	n := array.Norm(v)
	if n <= b.Radius {
		return array.Clone(v), nil
	}
	return array.Scale(complex(b.Radius/n, 0), v), nil
}
