package functional_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
)

func vec(t *testing.T, vals ...float64) *array.Dense {
	t.Helper()
	d, err := array.FromSlice(vals, array.Shape{len(vals)}, array.Float64)
	require.NoError(t, err)
	return d
}

func TestCapabilities(t *testing.T) {
	assert.True(t, functional.Has(functional.SquaredL2Norm{}, functional.CanEval|functional.CanGrad|functional.CanProx))
	assert.False(t, functional.Has(functional.L1Norm{}, functional.CanGrad))
	assert.True(t, functional.Has(functional.NewDenoiser(nil), functional.CanProx))
	assert.False(t, functional.Has(functional.NewDenoiser(nil), functional.CanEval))
	assert.False(t, functional.Has(nil, functional.CanEval))

	assert.Equal(t, "eval|prox", functional.L1Norm{}.Capabilities().String())
	assert.Equal(t, "none", functional.Capability(0).String())

	sum := functional.NewSum(functional.SquaredL2Norm{}, functional.L1Norm{})
	assert.Equal(t, functional.CanEval, sum.Capabilities())

	err := functional.Require("g", functional.NewDenoiser(nil), functional.CanEval)
	require.Error(t, err)
	assert.True(t, errors.Is(err, functional.ErrUnsupported))
}

func TestL1Norm(t *testing.T) {
	x := vec(t, -3, 0.5, 2)

	v, err := functional.L1Norm{}.Eval(x)
	require.NoError(t, err)
	assert.Equal(t, 5.5, v)

	p, err := functional.Prox(functional.L1Norm{}, x, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-2, 0, 1}, p.(*array.Dense).Real(), 1e-12)
}

func TestL1Norm_ComplexKeepsPhase(t *testing.T) {
	x, err := array.FromComplex([]complex128{complex(3, 4)}, array.Shape{1}, array.Complex128)
	require.NoError(t, err)

	p, err := functional.Prox(functional.L1Norm{}, x, 1)
	require.NoError(t, err)
	got := p.(*array.Dense).AtFlat(0)
	assert.InDelta(t, 2.4, real(got), 1e-12)
	assert.InDelta(t, 3.2, imag(got), 1e-12)
}

func TestSquaredL2Norm_ProxOptimality(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	v := array.RandN(rng, array.Shape{6}, array.Float64)
	step := 0.7
	f := functional.SquaredL2Norm{}

	p, err := f.Prox(v, step)
	require.NoError(t, err)

	obj := func(x array.Value) float64 {
		fx, _ := f.Eval(x)
		d := array.Norm(array.Sub(x, v))
		return fx + d*d/(2*step)
	}
	best := obj(p)
	for i := 0; i < 20; i++ {
		pert := array.Add(p, array.Scale(1e-3, array.RandN(rng, array.Shape{6}, array.Float64)))
		assert.GreaterOrEqual(t, obj(pert), best)
	}

	g, err := f.Grad(v)
	require.NoError(t, err)
	assert.InDelta(t, 2*array.Norm(v), array.Norm(g), 1e-12)
}

func TestL2Norm_Prox(t *testing.T) {
	x := vec(t, 3, 4)

	p, err := functional.L2Norm{}.Prox(x, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.4, 3.2}, p.(*array.Dense).Real(), 1e-12)

	p, err = functional.L2Norm{}.Prox(x, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.0, array.Norm(p))
}

func TestIndicators(t *testing.T) {
	x := vec(t, -1, 2)

	v, _ := functional.NonNegativeIndicator{}.Eval(x)
	assert.True(t, math.IsInf(v, 1))
	p, _ := functional.NonNegativeIndicator{}.Prox(x, 1)
	assert.Equal(t, []float64{0, 2}, p.(*array.Dense).Real())

	ball := functional.L2BallIndicator{Radius: 1}
	p, _ = ball.Prox(vec(t, 3, 4), 1)
	assert.InDelta(t, 1.0, array.Norm(p), 1e-12)
	v, _ = ball.Eval(p)
	assert.Equal(t, 0.0, v)
}

func TestScaled(t *testing.T) {
	x := vec(t, 1, -2)
	half := functional.NewScaled(0.5, functional.SquaredL2Norm{})

	v, err := half.Eval(x)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	// prox of (1/2)‖·‖² at step 1 is v/2.
	p, err := half.Prox(x, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1}, p.(*array.Dense).Real())

	nested := functional.NewScaled(4, half)
	assert.Equal(t, 2.0, nested.Weight())

	_, err = functional.NewScaled(-1, functional.L1Norm{}).Prox(x, 1)
	assert.Error(t, err)

	_, err = functional.NewScaled(2, functional.L1Norm{}).Grad(x)
	assert.True(t, errors.Is(err, functional.ErrUnsupported))

	_, err = functional.Prox(half, x, 0)
	assert.Error(t, err)
}

func TestSeparable_Block(t *testing.T) {
	b := array.NewBlock(vec(t, 3, 4), vec(t, -2))
	sep := functional.NewSeparable(functional.L2Norm{}, functional.L1Norm{})

	v, err := sep.Eval(b)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	p, err := sep.Prox(b, 1)
	require.NoError(t, err)
	require.True(t, p.IsBlock())
	assert.Equal(t, []float64{-1}, p.(array.Block)[1].Real())

	_, err = sep.Eval(vec(t, 1))
	assert.True(t, errors.Is(err, array.ErrShapeMismatch))
}

func TestDenoiser(t *testing.T) {
	d := functional.NewDenoiser(func(v array.Value) (array.Value, error) {
		return array.Scale(0.5, v), nil
	})
	p, err := functional.Prox(d, vec(t, 2), 123)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, p.(*array.Dense).Real())

	bad := functional.NewDenoiser(func(array.Value) (array.Value, error) {
		return array.Zeros(array.Shape{3}, array.Float64), nil
	})
	_, err = bad.Prox(vec(t, 2), 1)
	assert.True(t, errors.Is(err, array.ErrShapeMismatch))
}
