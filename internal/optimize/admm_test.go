package optimize_test

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/diagnostics"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
	"github.com/born-ml/padmm/internal/loss"
	"github.com/born-ml/padmm/internal/optimize"
)

func admmConfig(maxIter int, sub optimize.SubproblemSolver) optimize.ADMMConfig {
	return optimize.ADMMConfig{
		Options:          optimize.Options[*optimize.ADMM]{MaxIter: maxIter},
		SubproblemSolver: sub,
	}
}

func TestADMM_RidgeConvergence(t *testing.T) {
	for _, dtype := range []array.DType{array.Float32, array.Complex64} {
		r := newRidge(t, dtype, 2024)
		for name, sub := range map[string]optimize.SubproblemSolver{
			"linear":  &optimize.LinearSubproblemSolver{Tolerance: 1e-10},
			"matrix":  &optimize.MatrixSubproblemSolver{},
			"generic": &optimize.GenericSubproblemSolver{MaxIter: 500, Tolerance: 1e-10},
		} {
			t.Run(dtype.String()+"/"+name, func(t *testing.T) {
				x0 := array.Zeros(array.Shape{r.n}, dtype)
				s, err := optimize.NewADMM(r.matrixLoss(t), []functional.Functional{r.regularizer()},
					[]linop.Linear{r.b}, []float64{1}, x0, admmConfig(200, sub))
				require.NoError(t, err)

				x, err := s.Solve(context.Background(), nil)
				require.NoError(t, err)
				assert.Equal(t, dtype, x.DType())
				assert.Less(t, r.residual(t, x), 1e-4)
				assert.Less(t, s.PrimalResidual(), 1e-4)
				assert.Less(t, s.DualResidual(), 1e-4)
			})
		}
	}
}

func TestADMM_MultipleTerms(t *testing.T) {
	// argmin_x (1/2)‖x − y‖² + ι₊(x) = max(y, 0), split over two terms.
	y := vector(t, array.Float64, 1.5, -2, 0.25, -0.5, 3)
	space := array.SpaceOf(y)
	fit, err := loss.NewSquaredL2Loss(y, nil, 0.5)
	require.NoError(t, err)

	s, err := optimize.NewADMM(nil,
		[]functional.Functional{fit, functional.NonNegativeIndicator{}},
		[]linop.Linear{linop.NewIdentity(space), linop.NewIdentity(space)},
		[]float64{1, 1}, nil, admmConfig(300, &optimize.LinearSubproblemSolver{Tolerance: 1e-12}))
	require.NoError(t, err)
	require.Equal(t, 2, s.NumTerms())

	x, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)

	want := vector(t, array.Float64, 1.5, 0, 0.25, 0, 3)
	assert.Less(t, maxAbsDiff(x, want), 1e-5)
	assert.Less(t, maxAbsDiff(s.Z(1), want), 1e-5)

	obj, err := s.Objective()
	require.NoError(t, err)
	assert.InDelta(t, 0.5*(4+0.25), obj, 1e-4)
}

func TestADMM_DefaultItStat(t *testing.T) {
	r := newRidge(t, array.Float64, 5)
	x0 := array.Zeros(array.Shape{r.n}, array.Float64)
	g := []functional.Functional{r.regularizer()}
	c := []linop.Linear{r.b}

	s, err := optimize.NewADMM(r.matrixLoss(t), g, c, []float64{1}, x0, admmConfig(3, &optimize.LinearSubproblemSolver{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Iter", "Time", "Objective", "Prml Rsdl", "Dual Rsdl", "CG It", "CG Res"},
		s.Stats().FieldNames())

	s, err = optimize.NewADMM(r.matrixLoss(t), g, c, []float64{1}, x0, admmConfig(3, &optimize.MatrixSubproblemSolver{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Iter", "Time", "Objective", "Prml Rsdl", "Dual Rsdl"}, s.Stats().FieldNames())

	denoiser := functional.NewDenoiser(func(v array.Value) (array.Value, error) { return v, nil })
	s, err = optimize.NewADMM(r.matrixLoss(t), []functional.Functional{denoiser}, c, []float64{1}, x0,
		admmConfig(3, &optimize.MatrixSubproblemSolver{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Iter", "Time", "Prml Rsdl", "Dual Rsdl"}, s.Stats().FieldNames())

	_, err = s.Solve(context.Background(), nil)
	require.NoError(t, err)
	iters, err := s.Stats().Column("Iter")
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, iters)
}

func TestADMM_ItStatReadsSolver(t *testing.T) {
	r := newRidge(t, array.Float64, 5)
	x0 := array.Zeros(array.Shape{r.n}, array.Float64)

	cfg := admmConfig(2, &optimize.MatrixSubproblemSolver{})
	cfg.ItStat = optimize.ItStatOptions[*optimize.ADMM]{
		Fields: []diagnostics.Field{{Name: "Rows", Format: "%d"}, {Name: "Fields", Format: "%d"}},
		Func: func(s *optimize.ADMM) []any {
			return []any{s.Stats().Len(), len(s.Stats().Fields())}
		},
	}
	s, err := optimize.NewADMM(r.matrixLoss(t), []functional.Functional{r.regularizer()}, []linop.Linear{r.b},
		[]float64{1}, x0, cfg)
	require.NoError(t, err)

	_, err = s.Solve(context.Background(), nil)
	require.NoError(t, err)
	rows, err := s.Stats().Column("Rows")
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1}, rows)
}

func TestADMM_InitialValues(t *testing.T) {
	y := vector(t, array.Float64, 1, 2, 3)
	space := array.SpaceOf(y)
	id := linop.NewIdentity(space)
	g := []functional.Functional{functional.L1Norm{}}
	c := []linop.Linear{id}

	s, err := optimize.NewADMM(nil, g, c, []float64{1}, y, admmConfig(1, nil))
	require.NoError(t, err)
	assert.Equal(t, array.Flatten(y), array.Flatten(s.Z(0)), "z defaults to C x0")
	assert.Equal(t, 0.0, array.Norm(s.U(0)))
	assert.Equal(t, 0.0, s.DualResidual())
	assert.Equal(t, 1.0, s.Rho(0))

	cfg := admmConfig(1, nil)
	cfg.Z0 = []array.Value{vector(t, array.Float64, 0, 0, 0)}
	cfg.U0 = []array.Value{vector(t, array.Float64, 1, 1, 1)}
	s, err = optimize.NewADMM(nil, g, c, []float64{1}, y, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.0, array.Norm(s.Z(0)))
	assert.InDelta(t, math.Sqrt(3), array.Norm(s.U(0)), 1e-12)
	assert.InDelta(t, math.Sqrt(14), s.PrimalResidual(), 1e-12)
}

func TestADMM_ConfigErrors(t *testing.T) {
	y := vector(t, array.Float64, 1, 2, 3)
	space := array.SpaceOf(y)
	id := linop.NewIdentity(space)
	g := []functional.Functional{functional.L1Norm{}}
	c := []linop.Linear{id}

	_, err := optimize.NewADMM(nil, g, []linop.Linear{id, id}, []float64{1}, y, admmConfig(10, nil))
	assert.True(t, errors.Is(err, optimize.ErrConfig), "list lengths")
	_, err = optimize.NewADMM(nil, nil, nil, nil, y, admmConfig(10, nil))
	assert.True(t, errors.Is(err, optimize.ErrConfig), "empty lists")
	_, err = optimize.NewADMM(nil, g, c, []float64{0}, y, admmConfig(10, nil))
	assert.True(t, errors.Is(err, optimize.ErrConfig), "rho")
	_, err = optimize.NewADMM(nil, g, c, []float64{math.NaN()}, y, admmConfig(10, nil))
	assert.True(t, errors.Is(err, optimize.ErrConfig), "NaN rho")
	_, err = optimize.NewADMM(nil, g, c, []float64{1}, y, admmConfig(0, nil))
	assert.True(t, errors.Is(err, optimize.ErrConfig), "maxiter")

	cfg := admmConfig(10, nil)
	cfg.Z0 = []array.Value{y, y}
	_, err = optimize.NewADMM(nil, g, c, []float64{1}, y, cfg)
	assert.True(t, errors.Is(err, optimize.ErrConfig), "z0 length")

	_, err = optimize.NewADMM(nil, g, c, []float64{1}, vector(t, array.Float64, 1, 2), admmConfig(10, nil))
	assert.True(t, errors.Is(err, optimize.ErrShapeMismatch), "x0 outside the domain of C")

	cfg = admmConfig(10, nil)
	cfg.U0 = []array.Value{vector(t, array.Float64, 1)}
	_, err = optimize.NewADMM(nil, g, c, []float64{1}, y, cfg)
	assert.True(t, errors.Is(err, optimize.ErrShapeMismatch), "u0 shape")

	// g terms must be proximable.
	m, err := linop.NewMatrix(array.Full(array.Shape{3, 3}, array.Float64, 1))
	require.NoError(t, err)
	notProx, err := loss.NewSquaredL2Loss(y, m, 0.5)
	require.NoError(t, err)
	_, err = optimize.NewADMM(nil, []functional.Functional{notProx}, c, []float64{1}, y, admmConfig(10, nil))
	assert.True(t, errors.Is(err, optimize.ErrMissingCapability))

	// The generic subproblem solver needs a differentiable f.
	_, err = optimize.NewADMM(functional.L1Norm{}, g, c, []float64{1}, y, admmConfig(10, nil))
	assert.True(t, errors.Is(err, optimize.ErrMissingCapability))
}

func TestADMM_ProxShapeErrorAtFirstUse(t *testing.T) {
	y := vector(t, array.Float64, 1, 2, 3)
	id := linop.NewIdentity(array.SpaceOf(y))
	bad := functional.NewDenoiser(func(v array.Value) (array.Value, error) {
		return array.Zeros(array.Shape{2}, array.Float64), nil
	})

	s, err := optimize.NewADMM(nil, []functional.Functional{bad}, []linop.Linear{id}, []float64{1}, y,
		admmConfig(5, &optimize.LinearSubproblemSolver{}))
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), nil)
	assert.True(t, errors.Is(err, optimize.ErrShapeMismatch))
	assert.Equal(t, 0, s.Iteration())
}
