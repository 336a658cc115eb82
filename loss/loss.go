// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loss provides data fidelity terms.
package loss

import (
	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/linop"
	"github.com/born-ml/padmm/internal/loss"
)

// LeastSquares is a loss of the form scale·‖A x − y‖².
type LeastSquares = loss.LeastSquares

// SquaredL2Loss is scale·‖A x − y‖².
type SquaredL2Loss = loss.SquaredL2Loss

// NewSquaredL2Loss creates scale·‖A x − y‖². A nil operator is the identity.
func NewSquaredL2Loss(y array.Value, a linop.Linear, scale float64) (*SquaredL2Loss, error) {
	return loss.NewSquaredL2Loss(y, a, scale)
}
