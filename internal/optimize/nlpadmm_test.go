package optimize_test

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
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

func nlpadmmConfig(maxIter int) optimize.NonLinearPADMMConfig {
	return optimize.NonLinearPADMMConfig{
		Options: optimize.Options[*optimize.NonLinearPADMM]{MaxIter: maxIter},
	}
}

func TestNonLinearPADMM_RealConvergence(t *testing.T) {
	r := newRidge(t, array.Float32, 12345)
	mu := 1.1 * r.opNormSquared(t)

	x0 := array.Zeros(array.Shape{r.n}, array.Float32)
	z0 := array.Zeros(array.Shape{r.m}, array.Float32)
	u0 := array.Zeros(array.Shape{r.m}, array.Float32)
	s, err := optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), optimize.CouplingFunc(r.coupling(t)),
		1, mu, 1, x0, z0, u0, nlpadmmConfig(200))
	require.NoError(t, err)

	x, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, array.Float32, x.DType())
	assert.Equal(t, array.Shape{r.n}, x.(*array.Dense).Shape())
	assert.Less(t, r.residual(t, x), 1e-4)
	assert.Equal(t, 200, s.Iteration())
}

func TestNonLinearPADMM_ComplexConvergence(t *testing.T) {
	r := newRidge(t, array.Complex64, 12345)
	mu := 1.1 * r.opNormSquared(t)

	zspace := array.DenseSpace(array.Shape{r.m}, array.Complex64)
	h, err := optimize.NewAffineCoupling(r.b, linop.NewScaled(-1, linop.NewIdentity(zspace)), nil)
	require.NoError(t, err)

	x0 := array.Zeros(array.Shape{r.n}, array.Complex64)
	z0 := zspace.Zeros()
	s, err := optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), h, 1, mu, 1, x0, z0, nil, nlpadmmConfig(300))
	require.NoError(t, err)

	x, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, array.Complex64, x.DType())
	assert.Less(t, r.residual(t, x), 1e-4)
}

func TestNonLinearPADMM_ComplexNumericJacobian(t *testing.T) {
	r := newRidge(t, array.Complex64, 7)
	mu := 1.1 * r.opNormSquared(t)

	x0 := array.Zeros(array.Shape{r.n}, array.Complex64)
	z0 := array.Zeros(array.Shape{r.m}, array.Complex64)
	s, err := optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), optimize.CouplingFunc(r.coupling(t)),
		1, mu, 1, x0, z0, nil, nlpadmmConfig(300))
	require.NoError(t, err)

	x, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Less(t, r.residual(t, x), 1e-4)
}

func TestNonLinearPADMM_SubproblemXStep(t *testing.T) {
	r := newRidge(t, array.Float64, 99)
	mu := 1.1 * r.opNormSquared(t)
	f := r.matrixLoss(t)
	require.False(t, functional.Has(f, functional.CanProx))

	for name, sub := range map[string]optimize.SubproblemSolver{
		"matrix":  &optimize.MatrixSubproblemSolver{},
		"linear":  &optimize.LinearSubproblemSolver{Tolerance: 1e-12},
		"generic": &optimize.GenericSubproblemSolver{MaxIter: 500, Tolerance: 1e-10},
	} {
		t.Run(name, func(t *testing.T) {
			x0 := array.Zeros(array.Shape{r.n}, array.Float64)
			z0 := array.Zeros(array.Shape{r.m}, array.Float64)
			cfg := nlpadmmConfig(200)
			cfg.SubproblemSolver = sub
			s, err := optimize.NewNonLinearPADMM(f, r.regularizer(), optimize.CouplingFunc(r.coupling(t)),
				1, mu, 1, x0, z0, nil, cfg)
			require.NoError(t, err)

			x, err := s.Solve(context.Background(), nil)
			require.NoError(t, err)
			assert.Less(t, r.residual(t, x), 1e-4)
		})
	}
}

func TestNonLinearPADMM_DefaultItStat(t *testing.T) {
	r := newRidge(t, array.Float32, 1)
	denoiser := functional.NewDenoiser(func(v array.Value) (array.Value, error) {
		return array.Scale(0.9, v), nil
	})
	x0 := array.Zeros(array.Shape{r.n}, array.Float32)
	z0 := array.Zeros(array.Shape{r.m}, array.Float32)

	s, err := optimize.NewNonLinearPADMM(r.loss(t), denoiser, optimize.CouplingFunc(r.coupling(t)),
		1, 2, 1, x0, z0, nil, nlpadmmConfig(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"Iter", "Time", "Prml Rsdl", "Dual Rsdl"}, s.Stats().FieldNames())

	_, err = s.Solve(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, s.Stats().Len())
	assert.Len(t, s.Stats().History()[1].Values, 4)

	// With an evaluable g the objective is recorded as well.
	s, err = optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), optimize.CouplingFunc(r.coupling(t)),
		1, 2, 1, x0, z0, nil, nlpadmmConfig(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"Iter", "Time", "Objective", "Prml Rsdl", "Dual Rsdl"}, s.Stats().FieldNames())
}

// Dense Gaussian B with a fixed μ, as opposed to the near-identity B above
// where μ follows ‖B‖².
func TestNonLinearPADMM_GaussianRealConvergence(t *testing.T) {
	r := newGaussianRidge(t, array.Float32, 358)
	x0 := array.Zeros(array.Shape{r.n}, array.Float32)
	z0 := array.Zeros(array.Shape{r.m}, array.Float32)
	u0 := array.Zeros(array.Shape{r.m}, array.Float32)
	s, err := optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), optimize.CouplingFunc(r.coupling(t)),
		1, 50, 1, x0, z0, u0, nlpadmmConfig(200))
	require.NoError(t, err)

	x, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, array.Float32, x.DType())
	assert.Less(t, r.residual(t, x), 1e-4)
}

func TestNonLinearPADMM_GaussianComplexConvergence(t *testing.T) {
	r := newGaussianRidge(t, array.Complex64, 358)
	zspace := array.DenseSpace(array.Shape{r.m}, array.Complex64)
	h, err := optimize.NewAffineCoupling(r.b, linop.NewScaled(-1, linop.NewIdentity(zspace)), nil)
	require.NoError(t, err)

	x0 := array.Zeros(array.Shape{r.n}, array.Complex64)
	s, err := optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), h, 1, 30, 1, x0, zspace.Zeros(), zspace.Zeros(),
		nlpadmmConfig(300))
	require.NoError(t, err)

	x, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, array.Complex64, x.DType())
	assert.Less(t, r.residual(t, x), 1e-4)
}

func TestNonLinearPADMM_CustomItStat(t *testing.T) {
	r := newRidge(t, array.Float32, 1)
	x0 := array.Zeros(array.Shape{r.n}, array.Float32)
	z0 := array.Zeros(array.Shape{r.m}, array.Float32)
	h := optimize.CouplingFunc(r.coupling(t))

	var buf bytes.Buffer
	cfg := nlpadmmConfig(3)
	cfg.ItStat = optimize.ItStatOptions[*optimize.NonLinearPADMM]{
		Fields: []diagnostics.Field{{Name: "Iter", Format: "%d"}, {Name: "Time", Format: "%8.1e"}},
		Func: func(s *optimize.NonLinearPADMM) []any {
			return []any{s.Iteration(), s.Elapsed().Seconds()}
		},
		Display: true,
		Writer:  &buf,
	}
	s, err := optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), h, 1, 2, 1, x0, z0, nil, cfg)
	require.NoError(t, err)
	assert.Len(t, s.Stats().Fields(), 2)

	_, err = s.Solve(context.Background(), nil)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "Iter"))

	// Arity mismatch between fields and function.
	cfg.ItStat.Func = func(s *optimize.NonLinearPADMM) []any { return []any{s.Iteration()} }
	_, err = optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), h, 1, 2, 1, x0, z0, nil, cfg)
	assert.True(t, errors.Is(err, optimize.ErrConfig))

	// Fields without a function select known columns.
	cfg.ItStat = optimize.ItStatOptions[*optimize.NonLinearPADMM]{
		Fields: []diagnostics.Field{{Name: "Iter"}, {Name: "Prml Rsdl", Format: "%.2e"}},
	}
	s, err = optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), h, 1, 2, 1, x0, z0, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"Iter", "Prml Rsdl"}, s.Stats().FieldNames())

	cfg.ItStat.Fields = []diagnostics.Field{{Name: "Nonsense"}}
	_, err = optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), h, 1, 2, 1, x0, z0, nil, cfg)
	assert.True(t, errors.Is(err, optimize.ErrConfig))
}

// A statistics function may read any solver state, including its own
// recorder, from the first call on.
func TestNonLinearPADMM_ItStatReadsSolver(t *testing.T) {
	r := newRidge(t, array.Float64, 1)
	x0 := array.Zeros(array.Shape{r.n}, array.Float64)
	z0 := array.Zeros(array.Shape{r.m}, array.Float64)
	h := optimize.CouplingFunc(r.coupling(t))

	cfg := nlpadmmConfig(3)
	cfg.ItStat = optimize.ItStatOptions[*optimize.NonLinearPADMM]{
		Fields: []diagnostics.Field{{Name: "Rows", Format: "%d"}, {Name: "Norm x", Format: "%9.3e"}},
		Func: func(s *optimize.NonLinearPADMM) []any {
			return []any{s.Stats().Len(), array.Norm(s.X())}
		},
	}
	s, err := optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), h, 1, 2, 1, x0, z0, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Stats().Len())

	_, err = s.Solve(context.Background(), nil)
	require.NoError(t, err)
	rows, err := s.Stats().Column("Rows")
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1, 2}, rows)

	cfg.ItStat.Func = func(s *optimize.NonLinearPADMM) []any {
		var missing *diagnostics.Recorder
		return []any{missing.Len(), 0.0}
	}
	_, err = optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), h, 1, 2, 1, x0, z0, nil, cfg)
	assert.True(t, errors.Is(err, optimize.ErrConfig))
}

// Recording the dual residual shares its finite-difference sweep with the
// next x-update. An iteration evaluates H 2n_x + 2n_z + 2 times either way;
// the sweep made for the last row is the only extra one.
func TestNonLinearPADMM_DualResidualSharesSweep(t *testing.T) {
	m, err := array.FromSlice([]float64{1, 0.5, -0.25, 0, 2, 1}, array.Shape{2, 3}, array.Float64)
	require.NoError(t, err)
	op, err := linop.NewMatrix(m)
	require.NoError(t, err)

	run := func(fields []diagnostics.Field) (array.Value, int) {
		var evals int
		h := optimize.CouplingFunc(func(x, z array.Value) (out array.Value, err error) {
			defer array.Recover(&err)
			evals++
			mx, err := op.Apply(x)
			if err != nil {
				return nil, err
			}
			return array.Sub(mx, z), nil
		})
		cfg := nlpadmmConfig(5)
		cfg.ItStat.Fields = fields
		x0 := vector(t, array.Float64, 1, -1, 2)
		z0 := vector(t, array.Float64, 0, 0)
		s, err := optimize.NewNonLinearPADMM(functional.SquaredL2Norm{}, functional.L1Norm{}, h,
			1, 10, 1, x0, z0, nil, cfg)
		require.NoError(t, err)
		x, err := s.Solve(context.Background(), nil)
		require.NoError(t, err)
		return x, evals
	}

	withDual, n := run(nil)
	assert.Equal(t, 1+5*(2*3+2*2+2)+2*3, n)
	withoutDual, n := run([]diagnostics.Field{{Name: "Iter"}, {Name: "Prml Rsdl"}})
	assert.Equal(t, 1+5*(2*3+2*2+2), n)
	assert.Equal(t, array.Flatten(withoutDual), array.Flatten(withDual))
}

func TestNonLinearPADMM_CallbackAndStop(t *testing.T) {
	r := newRidge(t, array.Float32, 1)
	x0 := array.Zeros(array.Shape{r.n}, array.Float32)
	z0 := array.Zeros(array.Shape{r.m}, array.Float32)
	s, err := optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), optimize.CouplingFunc(r.coupling(t)),
		1, 2, 1, x0, z0, nil, nlpadmmConfig(10))
	require.NoError(t, err)

	var seen []int
	_, err = s.Solve(context.Background(), func(s *optimize.NonLinearPADMM) {
		seen = append(seen, s.Iteration())
		if s.Iteration() == 3 {
			s.Stop()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.True(t, s.Stopped())
	assert.Equal(t, 3, s.Iteration())

	// A second solve resumes and runs a full budget.
	s.SetMaxIter(2)
	_, err = s.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, s.Stopped())
	assert.Equal(t, 5, s.Iteration())
	assert.Equal(t, 5, s.Stats().Len())
}

func TestNonLinearPADMM_ContextCanceled(t *testing.T) {
	r := newRidge(t, array.Float32, 1)
	x0 := array.Zeros(array.Shape{r.n}, array.Float32)
	z0 := array.Zeros(array.Shape{r.m}, array.Float32)
	s, err := optimize.NewNonLinearPADMM(r.loss(t), r.regularizer(), optimize.CouplingFunc(r.coupling(t)),
		1, 2, 1, x0, z0, nil, nlpadmmConfig(10))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = s.Solve(ctx, func(s *optimize.NonLinearPADMM) {
		if s.Iteration() == 2 {
			cancel()
		}
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, s.Iteration())
}

func TestNonLinearPADMM_BlockArray(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	shape := array.BlockShape{{32, 33}, {17}}
	x0 := array.BlockZeros(shape, array.Float32)
	y := array.NewBlock(array.RandN(rng, shape[0], array.Float32), array.RandN(rng, shape[1], array.Float32))

	f, err := loss.NewSquaredL2Loss(y, nil, 0.5)
	require.NoError(t, err)
	g := functional.NewScaled(0.5, functional.L2Norm{})
	h := optimize.CouplingFunc(func(x, z array.Value) (out array.Value, err error) {
		defer array.Recover(&err)
		return array.Sub(x, z), nil
	})

	s, err := optimize.NewNonLinearPADMM(f, g, h, 1, 1, 1, x0, array.BlockZeros(shape, array.Float32),
		array.BlockZeros(shape, array.Float32), nlpadmmConfig(1))
	require.NoError(t, err)
	x, err := s.Solve(context.Background(), nil)
	require.NoError(t, err)

	require.True(t, x.IsBlock())
	assert.True(t, x.(array.Block).Shape().Equal(shape))
	assert.Equal(t, array.Float32, x.DType())
}

func TestNonLinearPADMM_ConfigErrors(t *testing.T) {
	r := newRidge(t, array.Float64, 1)
	x0 := array.Zeros(array.Shape{r.n}, array.Float64)
	z0 := array.Zeros(array.Shape{r.m}, array.Float64)
	h := optimize.CouplingFunc(r.coupling(t))
	f, g := r.loss(t), r.regularizer()

	_, err := optimize.NewNonLinearPADMM(f, g, h, 0, 1, 1, x0, z0, nil, nlpadmmConfig(10))
	assert.True(t, errors.Is(err, optimize.ErrConfig), "rho")
	_, err = optimize.NewNonLinearPADMM(f, g, h, 1, -1, 1, x0, z0, nil, nlpadmmConfig(10))
	assert.True(t, errors.Is(err, optimize.ErrConfig), "mu")
	_, err = optimize.NewNonLinearPADMM(f, g, h, 1, 1, 1, x0, z0, nil, nlpadmmConfig(0))
	assert.True(t, errors.Is(err, optimize.ErrConfig), "maxiter")
	_, err = optimize.NewNonLinearPADMM(f, g, nil, 1, 1, 1, x0, z0, nil, nlpadmmConfig(10))
	assert.True(t, errors.Is(err, optimize.ErrConfig), "coupling")

	// g needs a proximal operator.
	_, err = optimize.NewNonLinearPADMM(f, r.matrixLoss(t), h, 1, 1, 1, x0, z0, nil, nlpadmmConfig(10))
	assert.True(t, errors.Is(err, optimize.ErrMissingCapability))

	// The linear subproblem solver needs a least-squares f.
	cfg := nlpadmmConfig(10)
	cfg.SubproblemSolver = &optimize.LinearSubproblemSolver{}
	_, err = optimize.NewNonLinearPADMM(functional.L1Norm{}, g, h, 1, 1, 1, x0, z0, nil, cfg)
	assert.True(t, errors.Is(err, optimize.ErrMissingCapability))

	// u0 must match the structure of H(x, z).
	_, err = optimize.NewNonLinearPADMM(f, g, h, 1, 1, 1, x0, z0, array.Zeros(array.Shape{3}, array.Float64), nlpadmmConfig(10))
	assert.True(t, errors.Is(err, optimize.ErrShapeMismatch))

	// z0 of the wrong shape fails when H is first evaluated.
	_, err = optimize.NewNonLinearPADMM(f, g, h, 1, 1, 1, x0, array.Zeros(array.Shape{4}, array.Float64), nil, nlpadmmConfig(10))
	assert.True(t, errors.Is(err, optimize.ErrShapeMismatch))
}
