// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package functional provides objective terms. Each term declares what it
// can do (evaluate, differentiate, apply its proximal operator) and solvers
// check those capabilities when they are constructed.
package functional

import (
	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
)

// ErrUnsupported is returned when a term lacks a requested capability.
var ErrUnsupported = functional.ErrUnsupported

// Capability is a bit set of what a term can do.
type Capability = functional.Capability

// Capabilities of objective terms.
const (
	CanEval = functional.CanEval
	CanGrad = functional.CanGrad
	CanProx = functional.CanProx
)

// Functional is any objective term.
type Functional = functional.Functional

// Evaluable terms return their value.
type Evaluable = functional.Evaluable

// Differentiable terms return their gradient with respect to the conjugate
// variable.
type Differentiable = functional.Differentiable

// Proximable terms evaluate their proximal operator.
type Proximable = functional.Proximable

// Built-in terms.
type (
	Zero                 = functional.Zero
	L1Norm               = functional.L1Norm
	L2Norm               = functional.L2Norm
	SquaredL2Norm        = functional.SquaredL2Norm
	NonNegativeIndicator = functional.NonNegativeIndicator
	L2BallIndicator      = functional.L2BallIndicator
	Scaled               = functional.Scaled
	Sum                  = functional.Sum
	Separable            = functional.Separable
	Denoiser             = functional.Denoiser
	DenoiseFunc          = functional.DenoiseFunc
)

// NewScaled returns weight·f.
func NewScaled(weight float64, f Functional) *Scaled { return functional.NewScaled(weight, f) }

// NewSum returns the sum of terms.
func NewSum(terms ...Functional) *Sum { return functional.NewSum(terms...) }

// NewSeparable applies one term per block component.
func NewSeparable(terms ...Functional) *Separable { return functional.NewSeparable(terms...) }

// NewDenoiser wraps a denoiser as a prox-only term.
func NewDenoiser(fn DenoiseFunc) *Denoiser { return functional.NewDenoiser(fn) }

// Has reports whether f supports every capability in want.
func Has(f Functional, want Capability) bool { return functional.Has(f, want) }

// Eval evaluates f at x.
func Eval(f Functional, x array.Value) (float64, error) { return functional.Eval(f, x) }

// Grad returns the gradient of f at x.
func Grad(f Functional, x array.Value) (array.Value, error) { return functional.Grad(f, x) }

// Prox evaluates the proximal operator of f at v.
func Prox(f Functional, v array.Value, step float64) (array.Value, error) {
	return functional.Prox(f, v, step)
}
