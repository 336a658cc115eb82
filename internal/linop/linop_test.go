package linop_test

import (
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/linop"
)

// adjointGap returns |<A x, y> - <x, Aᴴ y>|.
func adjointGap(t *testing.T, op linop.Linear, rng *rand.Rand) float64 {
	t.Helper()
	in, out := op.InputSpace(), op.OutputSpace()
	x := array.RandN(rng, in.Shape, in.DType)
	y := array.RandN(rng, out.Shape, out.DType)

	ax, err := op.Apply(x)
	require.NoError(t, err)
	ahy, err := op.Adjoint(y)
	require.NoError(t, err)

	return cmplx.Abs(array.Vdot(ax, y) - array.Vdot(x, ahy))
}

func TestAdjointConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(12345))

	m, err := linop.NewMatrix(array.RandN(rng, array.Shape{5, 3}, array.Complex128))
	require.NoError(t, err)
	diag := linop.NewDiagonal(array.RandN(rng, array.Shape{3}, array.Complex128))
	fd, err := linop.NewFiniteDifference(array.Shape{4, 6}, array.Float64, 1, false)
	require.NoError(t, err)
	fdc, err := linop.NewFiniteDifference(array.Shape{4, 6}, array.Float64, 0, true)
	require.NoError(t, err)
	comp, err := linop.NewCompose(m, diag)
	require.NoError(t, err)
	sum, err := linop.NewSum(diag, linop.NewIdentity(diag.InputSpace()))
	require.NoError(t, err)

	cases := map[string]linop.Linear{
		"matrix":          m,
		"diagonal":        diag,
		"difference":      fd,
		"circular":        fdc,
		"compose":         comp,
		"sum":             sum,
		"scaled":          linop.NewScaled(complex(2, -1), m),
		"adjoint":         linop.Adjoint(m),
		"gram":            linop.Gram(m),
		"identity":        linop.NewIdentity(array.DenseSpace(array.Shape{2, 2}, array.Float32)),
		"adjoint-adjoint": linop.Adjoint(linop.Adjoint(fd)),
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Less(t, adjointGap(t, op, rng), 1e-9)
		})
	}
}

func TestFiniteDifference_Values(t *testing.T) {
	fd, err := linop.NewFiniteDifference(array.Shape{4}, array.Float64, 0, false)
	require.NoError(t, err)
	assert.Equal(t, array.Shape{3}, fd.OutputSpace().Shape)

	x, _ := array.FromSlice([]float64{1, 4, 9, 16}, array.Shape{4}, array.Float64)
	y, err := fd.Apply(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5, 7}, y.(*array.Dense).Real())

	_, err = linop.NewFiniteDifference(array.Shape{1}, array.Float64, 0, false)
	assert.Error(t, err)
	_, err = linop.NewFiniteDifference(array.Shape{3}, array.Float64, 2, false)
	assert.Error(t, err)
}

func TestApply_DomainError(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m, err := linop.NewMatrix(array.RandN(rng, array.Shape{2, 3}, array.Float64))
	require.NoError(t, err)

	_, err = m.Apply(array.Zeros(array.Shape{4}, array.Float64))
	require.Error(t, err)
	assert.True(t, errors.Is(err, linop.ErrDomain))
	assert.True(t, errors.Is(err, array.ErrShapeMismatch))

	_, err = linop.NewMatrix(array.Zeros(array.Shape{3}, array.Float64))
	assert.Error(t, err)

	_, err = linop.NewCompose(m, m)
	assert.Error(t, err)
}

func TestMaterialize(t *testing.T) {
	data := []complex128{1, complex(0, 2), 3, 4, 5, complex(6, -1)}
	md, err := array.FromComplex(data, array.Shape{2, 3}, array.Complex128)
	require.NoError(t, err)
	m, err := linop.NewMatrix(md)
	require.NoError(t, err)

	got, err := linop.Materialize(m)
	require.NoError(t, err)
	assert.True(t, got.Complex)

	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, real(data[i*3+j]), got.Re.At(i, j))
			assert.Equal(t, imag(data[i*3+j]), got.Im.At(i, j))
		}
	}

	fd, err := linop.NewFiniteDifference(array.Shape{3}, array.Float64, 0, false)
	require.NoError(t, err)
	dm, err := linop.Materialize(fd)
	require.NoError(t, err)
	assert.False(t, dm.Complex)
	assert.Equal(t, -1.0, dm.Re.At(0, 0))
	assert.Equal(t, 1.0, dm.Re.At(0, 1))
	assert.Equal(t, 0.0, dm.Re.At(0, 2))
}
