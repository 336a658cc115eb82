// Package optim implements first-order update rules used by iterative inner
// solvers.
//
// This package provides:
//   - Optimizer interface: Base interface for all update rules
//   - SGD: Gradient descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers are stateful: they keep per-element moment buffers between
// steps, so a fresh optimizer (or Reset) is needed for every new problem.
//
// Values may be real or complex. For complex values the gradient is taken
// with respect to the conjugate variable, and second moments use |g|².
//
// Example usage:
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: 0.01})
//	for k := 0; k < iters; k++ {
//	    g, _ := functional.Grad(f, x)
//	    x = opt.Step(x, g)
//	}
package optim

import (
	"github.com/born-ml/padmm/internal/array"
)

// Optimizer is the base interface for all update rules.
type Optimizer interface {
	// Step returns the updated point given the current point and the
	// gradient at it. Neither argument is modified.
	Step(x, grad array.Value) array.Value

	// Reset clears the optimizer state (moments, velocity, timestep).
	Reset()

	// GetLR returns the current learning rate.
	GetLR() float64

	// SetLR updates the learning rate.
	SetLR(lr float64)
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}
