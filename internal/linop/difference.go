package linop

import (
	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
)

// FiniteDifference computes forward differences x[k+1] − x[k] along one axis.
// Without Circular the output axis is one shorter than the input axis.
type FiniteDifference struct {
	input    array.Space
	axis     int
	circular bool

	outer, n, inner int
}

// NewFiniteDifference creates a forward-difference operator on arrays of the
// given shape and dtype.
func NewFiniteDifference(shape array.Shape, dtype array.DType, axis int, circular bool) (*FiniteDifference, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if axis < 0 || axis >= len(shape) {
		return nil, errors.Wrapf(ErrDomain, "FiniteDifference: axis %d out of range for shape %v", axis, shape)
	}
	if shape[axis] < 2 {
		return nil, errors.Wrapf(ErrDomain, "FiniteDifference: axis %d has length %d", axis, shape[axis])
	}
	fd := &FiniteDifference{
		input:    array.DenseSpace(shape, dtype),
		axis:     axis,
		circular: circular,
		outer:    1,
		n:        shape[axis],
		inner:    1,
	}
	for _, d := range shape[:axis] {
		fd.outer *= d
	}
	for _, d := range shape[axis+1:] {
		fd.inner *= d
	}
	return fd, nil
}

// InputSpace returns the operator's domain.
func (fd *FiniteDifference) InputSpace() array.Space { return fd.input }

// OutputSpace returns the operator's range.
func (fd *FiniteDifference) OutputSpace() array.Space {
	shape := fd.input.Shape.Clone()
	shape[fd.axis] = fd.m()
	return array.DenseSpace(shape, fd.input.DType)
}

// m is the output length along the difference axis.
func (fd *FiniteDifference) m() int {
	if fd.circular {
		return fd.n
	}
	return fd.n - 1
}

// Apply returns the forward differences of x.
func (fd *FiniteDifference) Apply(x array.Value) (array.Value, error) {
	if err := checkInput("FiniteDifference", fd.input, x); err != nil {
		return nil, err
	}
	xd := x.(*array.Dense).Data()
	out := array.Zeros(fd.OutputSpace().Shape, x.DType())
	m := fd.m()
	for o := 0; o < fd.outer; o++ {
		for k := 0; k < m; k++ {
			next := (k + 1) % fd.n
			for r := 0; r < fd.inner; r++ {
				out.SetFlat((o*m+k)*fd.inner+r, xd[(o*fd.n+next)*fd.inner+r]-xd[(o*fd.n+k)*fd.inner+r])
			}
		}
	}
	return out, nil
}

// Adjoint returns the adjoint differences of y.
func (fd *FiniteDifference) Adjoint(y array.Value) (array.Value, error) {
	if err := checkInput("FiniteDifference.Adjoint", fd.OutputSpace(), y); err != nil {
		return nil, err
	}
	yd := y.(*array.Dense).Data()
	out := array.Zeros(fd.input.Shape, y.DType())
	m := fd.m()
	for o := 0; o < fd.outer; o++ {
		for j := 0; j < fd.n; j++ {
			for r := 0; r < fd.inner; r++ {
				var v complex128
				prev := j - 1
				if fd.circular && prev < 0 {
					prev = fd.n - 1
				}
				if prev >= 0 {
					v += yd[(o*m+prev)*fd.inner+r]
				}
				if j < m {
					v -= yd[(o*m+j)*fd.inner+r]
				}
				out.SetFlat((o*fd.n+j)*fd.inner+r, v)
			}
		}
	}
	return out, nil
}
