package main

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
	"github.com/born-ml/padmm/internal/loss"
	"github.com/born-ml/padmm/internal/optimize"
)

// ridge is the benchmark problem
//
//	argmin_x (1/2)‖A x − y‖² + (λ/2)‖B x‖²
//
// with A diagonal and B a random perturbation of [I; 0]. Its solution is
// known in closed form, so solves are scored by the normal equation residual.
type ridge struct {
	a      *linop.Diagonal
	b      *linop.Matrix
	y      *array.Dense
	lambda float64
}

func newRidge(n int, dtype array.DType, lambda float64, seed int64) (*ridge, error) {
	m := n + (n+3)/4
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
	if err != nil {
		return nil, err
	}
	return &ridge{
		a:      linop.NewDiagonal(diag),
		b:      bop,
		y:      array.RandN(rng, array.Shape{n}, dtype),
		lambda: lambda,
	}, nil
}

func (r *ridge) loss() (*loss.SquaredL2Loss, error) {
	return loss.NewSquaredL2Loss(r.y, r.a, 0.5)
}

func (r *ridge) regularizer() functional.Functional {
	return functional.NewScaled(r.lambda/2, functional.SquaredL2Norm{})
}

// coupling returns H(x, z) = B x − z.
func (r *ridge) coupling() (*optimize.AffineCoupling, error) {
	neg := linop.NewScaled(-1, linop.NewIdentity(r.b.OutputSpace()))
	return optimize.NewAffineCoupling(r.b, neg, nil)
}

// opNormSquared estimates ‖B‖² by power iteration on BᴴB.
func (r *ridge) opNormSquared() (float64, error) {
	gram := linop.Gram(r.b)
	var v array.Value = array.Full(r.b.InputSpace().Shape, array.Complex128, 1)
	var lam float64
	for k := 0; k < 100; k++ {
		w, err := gram.Apply(v)
		if err != nil {
			return 0, err
		}
		lam = array.Norm(w)
		if lam == 0 {
			return 0, errors.New("ridge: B is zero")
		}
		v = array.Scale(complex(1/lam, 0), w)
	}
	return lam, nil
}

// residual returns ‖(AᴴA + λBᴴB) x − Aᴴy‖ / ‖Aᴴy‖ in double precision.
func (r *ridge) residual(x array.Value) (res float64, err error) {
	defer array.Recover(&err)
	xd := array.AsDouble(x)
	ata, err := linop.Gram(r.a).Apply(xd)
	if err != nil {
		return 0, err
	}
	btb, err := linop.Gram(r.b).Apply(xd)
	if err != nil {
		return 0, err
	}
	aty, err := r.a.Adjoint(array.AsDouble(r.y))
	if err != nil {
		return 0, err
	}
	lhs := array.AXPY(complex(r.lambda, 0), btb, ata)
	return array.Norm(array.Sub(lhs, aty)) / array.Norm(aty), nil
}
