package linop

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/padmm/internal/array"
)

// Materialized holds the explicit matrix of a linear operator, split into
// real and imaginary parts. Columns follow the flattened (component-order)
// layout of the input space, rows that of the output space.
type Materialized struct {
	Re, Im  *mat.Dense
	Complex bool
}

// Materialize builds the matrix of op by applying it to every basis vector
// of its input space. It costs one Apply per input element.
func Materialize(op Linear) (*Materialized, error) {
	in := op.InputSpace()
	outSize := op.OutputSpace().Size()
	n := in.Size()

	re := mat.NewDense(outSize, n, nil)
	im := mat.NewDense(outSize, n, nil)
	isComplex := false

	basis := make([]complex128, n)
	zero := in.Zeros()
	for j := 0; j < n; j++ {
		basis[j] = 1
		e, err := array.Unflatten(zero, basis)
		basis[j] = 0
		if err != nil {
			return nil, err
		}
		col, err := op.Apply(e)
		if err != nil {
			return nil, err
		}
		for i, v := range array.Flatten(col) {
			re.Set(i, j, real(v))
			if imag(v) != 0 {
				im.Set(i, j, imag(v))
				isComplex = true
			}
		}
	}
	return &Materialized{Re: re, Im: im, Complex: isComplex}, nil
}
