package linop

import (
	"math/cmplx"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
)

// Matrix is a dense m×n matrix acting on vectors of length n.
type Matrix struct {
	m    *array.Dense
	rows int
	cols int
}

// NewMatrix wraps a 2-D dense array as an operator.
func NewMatrix(m *array.Dense) (*Matrix, error) {
	if len(m.Shape()) != 2 {
		return nil, errors.Wrapf(ErrDomain, "Matrix: expected 2-D array, got shape %v", m.Shape())
	}
	return &Matrix{m: m, rows: m.Shape()[0], cols: m.Shape()[1]}, nil
}

// Dims returns the number of rows and columns.
func (op *Matrix) Dims() (rows, cols int) { return op.rows, op.cols }

// Array returns the underlying matrix.
func (op *Matrix) Array() *array.Dense { return op.m }

// InputSpace returns the operator's domain.
func (op *Matrix) InputSpace() array.Space {
	return array.DenseSpace(array.Shape{op.cols}, op.m.DType())
}

// OutputSpace returns the operator's range.
func (op *Matrix) OutputSpace() array.Space {
	return array.DenseSpace(array.Shape{op.rows}, op.m.DType())
}

// Apply returns M x.
func (op *Matrix) Apply(x array.Value) (array.Value, error) {
	if err := checkInput("Matrix", op.InputSpace(), x); err != nil {
		return nil, err
	}
	xd := x.(*array.Dense).Data()
	md := op.m.Data()
	out := array.Zeros(array.Shape{op.rows}, array.Promote(op.m.DType(), x.DType()))
	for i := 0; i < op.rows; i++ {
		var s complex128
		row := md[i*op.cols : (i+1)*op.cols]
		for j, v := range row {
			s += v * xd[j]
		}
		out.SetFlat(i, s)
	}
	return out, nil
}

// Adjoint returns Mᴴ y.
func (op *Matrix) Adjoint(y array.Value) (array.Value, error) {
	if err := checkInput("Matrix.Adjoint", op.OutputSpace(), y); err != nil {
		return nil, err
	}
	yd := y.(*array.Dense).Data()
	md := op.m.Data()
	acc := make([]complex128, op.cols)
	for i := 0; i < op.rows; i++ {
		row := md[i*op.cols : (i+1)*op.cols]
		for j, v := range row {
			acc[j] += cmplx.Conj(v) * yd[i]
		}
	}
	return array.FromComplex(acc, array.Shape{op.cols}, array.Promote(op.m.DType(), y.DType()))
}
