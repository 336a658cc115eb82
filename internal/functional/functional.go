// Package functional implements objective terms: scalar-valued functions of
// a value that may be evaluable, differentiable, proximable, or any
// combination. Each term declares its capability set explicitly; solvers
// check the set at construction instead of probing methods at call time.
package functional

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
)

// ErrUnsupported is returned when a term is asked for a capability it does
// not declare.
var ErrUnsupported = errors.New("capability not supported")

// Capability is a bit set of what a term can do.
type Capability uint8

// Capabilities of objective terms.
const (
	CanEval Capability = 1 << iota
	CanGrad
	CanProx
)

// Has reports whether c includes every capability in want.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

func (c Capability) String() string {
	var parts []string
	if c.Has(CanEval) {
		parts = append(parts, "eval")
	}
	if c.Has(CanGrad) {
		parts = append(parts, "grad")
	}
	if c.Has(CanProx) {
		parts = append(parts, "prox")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Functional is any objective term.
type Functional interface {
	Capabilities() Capability
}

// Evaluable terms return their value at x.
type Evaluable interface {
	Functional
	Eval(x array.Value) (float64, error)
}

// Differentiable terms return their value and gradient at x. For complex
// inputs the gradient is taken with respect to the conjugate variable, so a
// gradient step x − t·∇f(x) is a descent step.
type Differentiable interface {
	Evaluable
	Grad(x array.Value) (array.Value, error)
}

// Proximable terms evaluate the proximal operator
//
//	prox(v, step) = argmin_x f(x) + ‖x − v‖² / (2·step),  step > 0.
type Proximable interface {
	Functional
	Prox(v array.Value, step float64) (array.Value, error)
}

// Has reports whether f declares every capability in want and implements
// the matching interfaces.
func Has(f Functional, want Capability) bool {
	if f == nil || !f.Capabilities().Has(want) {
		return false
	}
	if want.Has(CanEval) {
		if _, ok := f.(Evaluable); !ok {
			return false
		}
	}
	if want.Has(CanGrad) {
		if _, ok := f.(Differentiable); !ok {
			return false
		}
	}
	if want.Has(CanProx) {
		if _, ok := f.(Proximable); !ok {
			return false
		}
	}
	return true
}

// Require returns an error naming role when f lacks a capability.
func Require(role string, f Functional, want Capability) error {
	if f == nil {
		return errors.Wrapf(ErrUnsupported, "%s is nil", role)
	}
	if !Has(f, want) {
		return errors.Wrapf(ErrUnsupported, "%s has capabilities %s, needs %s", role, f.Capabilities(), want)
	}
	return nil
}

// Eval evaluates f when it is evaluable.
func Eval(f Functional, x array.Value) (float64, error) {
	if !Has(f, CanEval) {
		return 0, errors.Wrap(ErrUnsupported, "eval")
	}
	return f.(Evaluable).Eval(x)
}

// Grad evaluates the gradient of f when it is differentiable.
func Grad(f Functional, x array.Value) (array.Value, error) {
	if !Has(f, CanGrad) {
		return nil, errors.Wrap(ErrUnsupported, "grad")
	}
	return f.(Differentiable).Grad(x)
}

// Prox evaluates the proximal operator of f when it is proximable.
func Prox(f Functional, v array.Value, step float64) (array.Value, error) {
	if !Has(f, CanProx) {
		return nil, errors.Wrap(ErrUnsupported, "prox")
	}
	if step <= 0 {
		return nil, errors.Errorf("prox: step must be positive, got %g", step)
	}
	return f.(Proximable).Prox(v, step)
}
