// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optimize provides proximal splitting solvers.
//
// NonLinearPADMM solves
//
//	argmin_{x,z} f(x) + g(z)  subject to  H(x, z) = 0
//
// by linearized proximal steps on x and z followed by a dual ascent step.
// ADMM solves argmin_x f(x) + Σ g_i(C_i x) for linear C_i.
//
// Basic usage:
//
//	h, _ := optimize.NewAffineCoupling(B, negI, nil)
//	s, err := optimize.NewNonLinearPADMM(f, g, h, rho, mu, nu, x0, z0, nil,
//	    optimize.NonLinearPADMMConfig{
//	        Options: optimize.Options[*optimize.NonLinearPADMM]{MaxIter: 200},
//	    })
//	if err != nil {
//	    return err
//	}
//	x, err := s.Solve(ctx, nil)
package optimize

import (
	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
	"github.com/born-ml/padmm/internal/optimize"
)

// Error kinds; test with errors.Is.
var (
	ErrConfig            = optimize.ErrConfig
	ErrMissingCapability = optimize.ErrMissingCapability
	ErrShapeMismatch     = optimize.ErrShapeMismatch
)

// Options are the settings shared by every iterative solver.
type Options[S any] = optimize.Options[S]

// ItStatOptions configure iteration statistics.
type ItStatOptions[S any] = optimize.ItStatOptions[S]

// Coupling is the constraint function H(x, z).
type Coupling = optimize.Coupling

// CouplingFunc adapts a function to Coupling.
type CouplingFunc = optimize.CouplingFunc

// CouplingVJP is a Coupling with analytic vector-Jacobian products.
type CouplingVJP = optimize.CouplingVJP

// AffineCoupling is H(x, z) = A x + B z − c.
type AffineCoupling = optimize.AffineCoupling

// NewAffineCoupling creates A x + B z − c; c may be nil.
func NewAffineCoupling(a, b linop.Linear, c array.Value) (*AffineCoupling, error) {
	return optimize.NewAffineCoupling(a, b, c)
}

// NonLinearPADMM is the nonlinear proximal ADMM solver.
type NonLinearPADMM = optimize.NonLinearPADMM

// NonLinearPADMMConfig holds the optional settings of NewNonLinearPADMM.
type NonLinearPADMMConfig = optimize.NonLinearPADMMConfig

// NewNonLinearPADMM creates the solver.
func NewNonLinearPADMM(f, g functional.Functional, h Coupling, rho, mu, nu float64, x0, z0, u0 array.Value, cfg NonLinearPADMMConfig) (*NonLinearPADMM, error) {
	return optimize.NewNonLinearPADMM(f, g, h, rho, mu, nu, x0, z0, u0, cfg)
}

// ADMM is the linearly constrained ADMM solver.
type ADMM = optimize.ADMM

// ADMMConfig holds the optional settings of NewADMM.
type ADMMConfig = optimize.ADMMConfig

// NewADMM creates the solver.
func NewADMM(f functional.Functional, g []functional.Functional, c []linop.Linear, rho []float64, x0 array.Value, cfg ADMMConfig) (*ADMM, error) {
	return optimize.NewADMM(f, g, c, rho, x0, cfg)
}

// Subproblem solvers for the x-step.
type (
	Subproblem              = optimize.Subproblem
	Penalty                 = optimize.Penalty
	SubproblemSolver        = optimize.SubproblemSolver
	InnerStats              = optimize.InnerStats
	LinearSubproblemSolver  = optimize.LinearSubproblemSolver
	MatrixSubproblemSolver  = optimize.MatrixSubproblemSolver
	GenericSubproblemSolver = optimize.GenericSubproblemSolver
	InnerMethod             = optimize.InnerMethod
)

// Inner update rules of GenericSubproblemSolver.
const (
	Backtracking = optimize.Backtracking
	Momentum     = optimize.Momentum
	Adam         = optimize.Adam
)
