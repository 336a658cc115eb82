// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimize_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/padmm/array"
	"github.com/born-ml/padmm/checkpoint"
	"github.com/born-ml/padmm/diagnostics"
	"github.com/born-ml/padmm/functional"
	"github.com/born-ml/padmm/linop"
	"github.com/born-ml/padmm/loss"
	"github.com/born-ml/padmm/optimize"
)

// TestADMM_SoftThreshold solves argmin_x ½‖x − y‖² + ‖x‖₁, whose solution
// is y soft-thresholded at 1.
func TestADMM_SoftThreshold(t *testing.T) {
	y, err := array.FromSlice([]float64{3, -0.5, 1.5, -2, 0.2}, array.Shape{5}, array.Float64)
	require.NoError(t, err)
	f, err := loss.NewSquaredL2Loss(y, nil, 0.5)
	require.NoError(t, err)

	s, err := optimize.NewADMM(f,
		[]functional.Functional{functional.L1Norm{}},
		[]linop.Linear{linop.NewIdentity(array.SpaceOf(y))},
		[]float64{1},
		nil,
		optimize.ADMMConfig{
			Options: optimize.Options[*optimize.ADMM]{
				MaxIter: 200,
				ItStat: optimize.ItStatOptions[*optimize.ADMM]{
					Fields: []diagnostics.Field{{Name: "Iter"}, {Name: "Prml Rsdl", Format: "%.2e"}},
				},
			},
			SubproblemSolver: &optimize.LinearSubproblemSolver{Tolerance: 1e-12},
		})
	require.NoError(t, err)

	x, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Iter", "Prml Rsdl"}, s.Stats().FieldNames())
	assert.Equal(t, 200, s.Stats().Len())

	var buf bytes.Buffer
	require.NoError(t, checkpoint.Write(&buf, s.Checkpoint()))
	st, err := checkpoint.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, st.Iteration)

	want := []float64{2, 0, 0.5, -1, 0}
	got := x.(*array.Dense).Real()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "component %d", i)
	}
}

// TestNonLinearPADMM_MissingProx checks that g must be proximable.
func TestNonLinearPADMM_MissingProx(t *testing.T) {
	space := array.DenseSpace(array.Shape{3}, array.Float32)
	h, err := optimize.NewAffineCoupling(linop.NewIdentity(space), linop.NewScaled(-1, linop.NewIdentity(space)), nil)
	require.NoError(t, err)

	m, err := linop.NewMatrix(array.Full(array.Shape{3, 3}, array.Float32, 1))
	require.NoError(t, err)
	grad, err := loss.NewSquaredL2Loss(space.Zeros(), m, 0.5)
	require.NoError(t, err)
	require.False(t, functional.Has(grad, functional.CanProx))

	_, err = optimize.NewNonLinearPADMM(nil, grad, h, 1, 1.1, 1.1, space.Zeros(), space.Zeros(), nil,
		optimize.NonLinearPADMMConfig{Options: optimize.Options[*optimize.NonLinearPADMM]{MaxIter: 10}})
	assert.ErrorIs(t, err, optimize.ErrMissingCapability)
}
