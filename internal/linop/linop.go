// Package linop implements the operators consumed by the solvers: a general
// Operator mapping a primal value into a constraint space, and Linear
// operators that also expose an adjoint.
package linop

import (
	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
)

// ErrDomain is returned when an operator is applied to a value outside its
// input (or, for adjoints, output) space.
var ErrDomain = errors.Wrap(array.ErrShapeMismatch, "operator domain")

// Operator maps values of InputSpace to values of OutputSpace.
type Operator interface {
	InputSpace() array.Space
	OutputSpace() array.Space
	Apply(x array.Value) (array.Value, error)
}

// Linear is an Operator with an adjoint. For complex spaces the adjoint is
// the conjugate transpose.
type Linear interface {
	Operator
	Adjoint(y array.Value) (array.Value, error)
}

func checkInput(op string, space array.Space, x array.Value) error {
	if !space.Contains(x) {
		return errors.Wrapf(ErrDomain, "%s: expected %s, got %s", op, space, x)
	}
	return nil
}

// Identity is the identity operator on a space.
type Identity struct {
	space array.Space
}

// NewIdentity creates the identity operator on space.
func NewIdentity(space array.Space) *Identity {
	return &Identity{space: space}
}

// InputSpace returns the operator's domain.
func (op *Identity) InputSpace() array.Space { return op.space }

// OutputSpace returns the operator's range.
func (op *Identity) OutputSpace() array.Space { return op.space }

// Apply returns a copy of x.
func (op *Identity) Apply(x array.Value) (array.Value, error) {
	if err := checkInput("Identity", op.space, x); err != nil {
		return nil, err
	}
	return array.Clone(x), nil
}

// Adjoint returns a copy of y.
func (op *Identity) Adjoint(y array.Value) (array.Value, error) {
	return op.Apply(y)
}

// Diagonal multiplies elementwise by a fixed value.
type Diagonal struct {
	diag array.Value
}

// NewDiagonal creates the operator x ↦ diag ⊙ x.
func NewDiagonal(diag array.Value) *Diagonal {
	return &Diagonal{diag: diag}
}

// Diag returns the diagonal.
func (op *Diagonal) Diag() array.Value { return op.diag }

// InputSpace returns the operator's domain.
func (op *Diagonal) InputSpace() array.Space { return array.SpaceOf(op.diag) }

// OutputSpace returns the operator's range.
func (op *Diagonal) OutputSpace() array.Space { return array.SpaceOf(op.diag) }

// Apply returns diag ⊙ x.
func (op *Diagonal) Apply(x array.Value) (array.Value, error) {
	if err := checkInput("Diagonal", op.InputSpace(), x); err != nil {
		return nil, err
	}
	return array.Mul(op.diag, x), nil
}

// Adjoint returns conj(diag) ⊙ y.
func (op *Diagonal) Adjoint(y array.Value) (array.Value, error) {
	if err := checkInput("Diagonal.Adjoint", op.OutputSpace(), y); err != nil {
		return nil, err
	}
	return array.Mul(array.Conj(op.diag), y), nil
}

// Scaled is alpha·A.
type Scaled struct {
	alpha complex128
	op    Linear
}

// NewScaled creates the operator alpha·op.
func NewScaled(alpha complex128, op Linear) *Scaled {
	return &Scaled{alpha: alpha, op: op}
}

// InputSpace returns the operator's domain.
func (s *Scaled) InputSpace() array.Space { return s.op.InputSpace() }

// OutputSpace returns the operator's range.
func (s *Scaled) OutputSpace() array.Space { return s.op.OutputSpace() }

// Apply returns alpha·A x.
func (s *Scaled) Apply(x array.Value) (array.Value, error) {
	y, err := s.op.Apply(x)
	if err != nil {
		return nil, err
	}
	return array.Scale(s.alpha, y), nil
}

// Adjoint returns conj(alpha)·Aᴴ y.
func (s *Scaled) Adjoint(y array.Value) (array.Value, error) {
	x, err := s.op.Adjoint(y)
	if err != nil {
		return nil, err
	}
	return array.Scale(complex(real(s.alpha), -imag(s.alpha)), x), nil
}

// Sum is A + B for operators sharing domain and range.
type Sum struct {
	a, b Linear
}

// NewSum creates A + B. It fails if the spaces differ.
func NewSum(a, b Linear) (*Sum, error) {
	if !a.InputSpace().SameStructure(b.InputSpace()) || !a.OutputSpace().SameStructure(b.OutputSpace()) {
		return nil, errors.Wrapf(ErrDomain, "Sum: %s→%s vs %s→%s",
			a.InputSpace(), a.OutputSpace(), b.InputSpace(), b.OutputSpace())
	}
	return &Sum{a: a, b: b}, nil
}

// InputSpace returns the operator's domain.
func (s *Sum) InputSpace() array.Space { return s.a.InputSpace() }

// OutputSpace returns the operator's range.
func (s *Sum) OutputSpace() array.Space { return s.a.OutputSpace() }

// Apply returns A x + B x.
func (s *Sum) Apply(x array.Value) (array.Value, error) {
	ax, err := s.a.Apply(x)
	if err != nil {
		return nil, err
	}
	bx, err := s.b.Apply(x)
	if err != nil {
		return nil, err
	}
	return array.Add(ax, bx), nil
}

// Adjoint returns Aᴴ y + Bᴴ y.
func (s *Sum) Adjoint(y array.Value) (array.Value, error) {
	ay, err := s.a.Adjoint(y)
	if err != nil {
		return nil, err
	}
	by, err := s.b.Adjoint(y)
	if err != nil {
		return nil, err
	}
	return array.Add(ay, by), nil
}

// Compose is Outer ∘ Inner.
type Compose struct {
	outer, inner Linear
}

// NewCompose creates outer ∘ inner. It fails if inner's range is not
// outer's domain.
func NewCompose(outer, inner Linear) (*Compose, error) {
	if !outer.InputSpace().SameStructure(inner.OutputSpace()) {
		return nil, errors.Wrapf(ErrDomain, "Compose: inner range %s, outer domain %s",
			inner.OutputSpace(), outer.InputSpace())
	}
	return &Compose{outer: outer, inner: inner}, nil
}

// InputSpace returns the operator's domain.
func (c *Compose) InputSpace() array.Space { return c.inner.InputSpace() }

// OutputSpace returns the operator's range.
func (c *Compose) OutputSpace() array.Space { return c.outer.OutputSpace() }

// Apply returns Outer(Inner x).
func (c *Compose) Apply(x array.Value) (array.Value, error) {
	y, err := c.inner.Apply(x)
	if err != nil {
		return nil, err
	}
	return c.outer.Apply(y)
}

// Adjoint returns Innerᴴ(Outerᴴ y).
func (c *Compose) Adjoint(y array.Value) (array.Value, error) {
	x, err := c.outer.Adjoint(y)
	if err != nil {
		return nil, err
	}
	return c.inner.Adjoint(x)
}

// adjointOp swaps the roles of Apply and Adjoint.
type adjointOp struct {
	op Linear
}

// Adjoint returns the operator Aᴴ.
func Adjoint(op Linear) Linear {
	if a, ok := op.(*adjointOp); ok {
		return a.op
	}
	return &adjointOp{op: op}
}

func (a *adjointOp) InputSpace() array.Space  { return a.op.OutputSpace() }
func (a *adjointOp) OutputSpace() array.Space { return a.op.InputSpace() }

func (a *adjointOp) Apply(x array.Value) (array.Value, error)   { return a.op.Adjoint(x) }
func (a *adjointOp) Adjoint(y array.Value) (array.Value, error) { return a.op.Apply(y) }

// Gram returns AᴴA.
func Gram(op Linear) Linear {
	return &Compose{outer: Adjoint(op), inner: op}
}
