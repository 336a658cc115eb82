package optimize_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
	"github.com/born-ml/padmm/internal/loss"
)

// ridge is the problem
//
//	argmin_x (1/2)‖A x − y‖² + (λ/2)‖B x‖²
//
// with A diagonal and B a small perturbation of [I; 0].
type ridge struct {
	n, m   int
	dtype  array.DType
	a      *linop.Diagonal
	b      *linop.Matrix
	y      *array.Dense
	lambda float64
}

func newRidge(t *testing.T, dtype array.DType, seed int64) *ridge {
	t.Helper()
	const n, m = 8, 10
	rng := rand.New(rand.NewSource(seed))

	diag := array.Zeros(array.Shape{n}, dtype)
	for i := 0; i < n; i++ {
		diag.SetFlat(i, complex(0.5+rng.Float64(), 0))
	}
	b := array.RandN(rng, array.Shape{m, n}, dtype)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := 0.05 * b.At(i, j)
			if i == j {
				v++
			}
			b.Set(v, i, j)
		}
	}
	bop, err := linop.NewMatrix(b)
	require.NoError(t, err)

	return &ridge{
		n:      n,
		m:      m,
		dtype:  dtype,
		a:      linop.NewDiagonal(diag),
		b:      bop,
		y:      array.RandN(rng, array.Shape{n}, dtype),
		lambda: 1,
	}
}

// newGaussianRidge draws A = diag(a), B and y with standard normal entries,
// in that order. B is dense and A may be badly conditioned.
func newGaussianRidge(t *testing.T, dtype array.DType, seed int64) *ridge {
	t.Helper()
	const n, m = 8, 10
	rng := rand.New(rand.NewSource(seed))

	diag := array.RandN(rng, array.Shape{n}, dtype)
	bop, err := linop.NewMatrix(array.RandN(rng, array.Shape{m, n}, dtype))
	require.NoError(t, err)

	return &ridge{
		n:      n,
		m:      m,
		dtype:  dtype,
		a:      linop.NewDiagonal(diag),
		b:      bop,
		y:      array.RandN(rng, array.Shape{n}, dtype),
		lambda: 1,
	}
}

func (r *ridge) loss(t *testing.T) *loss.SquaredL2Loss {
	t.Helper()
	f, err := loss.NewSquaredL2Loss(r.y, r.a, 0.5)
	require.NoError(t, err)
	return f
}

func (r *ridge) matrixLoss(t *testing.T) *loss.SquaredL2Loss {
	t.Helper()
	data := array.Zeros(array.Shape{r.n, r.n}, r.dtype)
	diag := r.a.Diag().(*array.Dense)
	for i := 0; i < r.n; i++ {
		data.Set(diag.AtFlat(i), i, i)
	}
	op, err := linop.NewMatrix(data)
	require.NoError(t, err)
	f, err := loss.NewSquaredL2Loss(r.y, op, 0.5)
	require.NoError(t, err)
	return f
}

func (r *ridge) regularizer() functional.Functional {
	return functional.NewScaled(r.lambda/2, functional.SquaredL2Norm{})
}

// residual returns ‖(AᴴA + λBᴴB) x − Aᴴy‖ / ‖Aᴴy‖, computed in double
// precision.
func (r *ridge) residual(t *testing.T, x array.Value) float64 {
	t.Helper()
	xd := array.AsDouble(x)
	ata, err := linop.Gram(r.a).Apply(xd)
	require.NoError(t, err)
	btb, err := linop.Gram(r.b).Apply(xd)
	require.NoError(t, err)
	aty, err := r.a.Adjoint(array.AsDouble(r.y))
	require.NoError(t, err)
	lhs := array.AXPY(complex(r.lambda, 0), btb, ata)
	return array.Norm(array.Sub(lhs, aty)) / array.Norm(aty)
}

// opNormSquared estimates ‖B‖² by power iteration on BᴴB.
func (r *ridge) opNormSquared(t *testing.T) float64 {
	t.Helper()
	gram := linop.Gram(r.b)
	var v array.Value = array.Full(array.Shape{r.n}, array.Complex128, 1)
	var lam float64
	for k := 0; k < 200; k++ {
		w, err := gram.Apply(v)
		require.NoError(t, err)
		lam = array.Norm(w)
		v = array.Scale(complex(1/lam, 0), w)
	}
	return lam
}

func (r *ridge) coupling(t *testing.T) func(x, z array.Value) (array.Value, error) {
	t.Helper()
	return func(x, z array.Value) (out array.Value, err error) {
		defer array.Recover(&err)
		bx, err := r.b.Apply(x)
		if err != nil {
			return nil, err
		}
		return array.Sub(bx, z), nil
	}
}

func vector(t *testing.T, dtype array.DType, vals ...float64) *array.Dense {
	t.Helper()
	x, err := array.FromSlice(vals, array.Shape{len(vals)}, dtype)
	require.NoError(t, err)
	return x
}

func maxAbsDiff(a, b array.Value) float64 {
	var m float64
	fa, fb := array.Flatten(a), array.Flatten(b)
	for i := range fa {
		d := fa[i] - fb[i]
		m = math.Max(m, math.Hypot(real(d), imag(d)))
	}
	return m
}
