// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package linop provides linear operators between array spaces together
// with their adjoints.
package linop

import (
	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/linop"
)

// ErrDomain is returned when an operator is applied outside its domain.
var ErrDomain = linop.ErrDomain

// Operator maps values of an input space to an output space.
type Operator = linop.Operator

// Linear is an operator with an adjoint.
type Linear = linop.Linear

// Built-in operators.
type (
	Identity         = linop.Identity
	Diagonal         = linop.Diagonal
	Matrix           = linop.Matrix
	FiniteDifference = linop.FiniteDifference
	Scaled           = linop.Scaled
	Sum              = linop.Sum
	Compose          = linop.Compose
	Materialized     = linop.Materialized
)

// NewIdentity returns the identity on space.
func NewIdentity(space array.Space) *Identity { return linop.NewIdentity(space) }

// NewDiagonal returns x ↦ diag ⊙ x.
func NewDiagonal(diag array.Value) *Diagonal { return linop.NewDiagonal(diag) }

// NewMatrix wraps a two-dimensional array.
func NewMatrix(m *array.Dense) (*Matrix, error) { return linop.NewMatrix(m) }

// NewFiniteDifference returns the forward difference along axis.
func NewFiniteDifference(shape array.Shape, dtype array.DType, axis int, circular bool) (*FiniteDifference, error) {
	return linop.NewFiniteDifference(shape, dtype, axis, circular)
}

// NewScaled returns alpha·op.
func NewScaled(alpha complex128, op Linear) *Scaled { return linop.NewScaled(alpha, op) }

// NewSum returns a + b.
func NewSum(a, b Linear) (*Sum, error) { return linop.NewSum(a, b) }

// NewCompose returns outer ∘ inner.
func NewCompose(outer, inner Linear) (*Compose, error) { return linop.NewCompose(outer, inner) }

// Adjoint returns opᴴ.
func Adjoint(op Linear) Linear { return linop.Adjoint(op) }

// Gram returns opᴴ op.
func Gram(op Linear) Linear { return linop.Gram(op) }

// Materialize builds the dense matrix of op.
func Materialize(op Linear) (*Materialized, error) { return linop.Materialize(op) }
