package array

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Value is either a *Dense array or a Block of dense arrays.
// The interface is sealed; all arithmetic lives in this package.
type Value interface {
	// Size returns the total number of elements.
	Size() int
	// DType returns the element type (promoted over components for blocks).
	DType() DType
	// IsBlock reports whether the value is a Block.
	IsBlock() bool
	// String describes the structure of the value.
	String() string

	sealed()
}

// Dense is a row-major N-dimensional array.
//
// Elements are held as complex128 and rounded to the declared dtype on every
// store, so a Float32 array behaves like float32 storage and real arrays never
// carry an imaginary part.
type Dense struct {
	shape Shape
	dtype DType
	data  []complex128
}

// Zeros allocates a zero-filled dense array. It panics if shape is invalid.
func Zeros(shape Shape, dtype DType) *Dense {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	return &Dense{
		shape: shape.Clone(),
		dtype: dtype,
		data:  make([]complex128, shape.NumElements()),
	}
}

// Full allocates a dense array with every element set to v.
func Full(shape Shape, dtype DType, v complex128) *Dense {
	d := Zeros(shape, dtype)
	v = dtype.round(v)
	for i := range d.data {
		d.data[i] = v
	}
	return d
}

// FromSlice creates a real or complex dense array from real data.
func FromSlice(data []float64, shape Shape, dtype DType) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, errors.Wrapf(ErrShapeMismatch, "FromSlice: %d values for shape %v", len(data), shape)
	}
	d := Zeros(shape, dtype)
	for i, v := range data {
		d.data[i] = dtype.round(complex(v, 0))
	}
	return d, nil
}

// FromComplex creates a dense array from complex data. Imaginary parts are
// discarded when dtype is real.
func FromComplex(data []complex128, shape Shape, dtype DType) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, errors.Wrapf(ErrShapeMismatch, "FromComplex: %d values for shape %v", len(data), shape)
	}
	d := Zeros(shape, dtype)
	for i, v := range data {
		d.data[i] = dtype.round(v)
	}
	return d, nil
}

// Shape returns the array's shape.
func (d *Dense) Shape() Shape { return d.shape }

// DType returns the array's element type.
func (d *Dense) DType() DType { return d.dtype }

// Size returns the number of elements.
func (d *Dense) Size() int { return len(d.data) }

// IsBlock returns false.
func (d *Dense) IsBlock() bool { return false }

// Data returns the underlying element slice in row-major order.
// WARNING: Direct access to underlying memory; writes bypass dtype rounding.
func (d *Dense) Data() []complex128 { return d.data }

// At returns the element at the given multi-index.
func (d *Dense) At(idx ...int) complex128 {
	return d.data[d.offset(idx)]
}

// Set stores v at the given multi-index.
func (d *Dense) Set(v complex128, idx ...int) {
	d.data[d.offset(idx)] = d.dtype.round(v)
}

// AtFlat returns the i-th element in row-major order.
func (d *Dense) AtFlat(i int) complex128 { return d.data[i] }

// SetFlat stores v as the i-th element in row-major order.
func (d *Dense) SetFlat(i int, v complex128) { d.data[i] = d.dtype.round(v) }

// Real returns a copy of the real parts of the elements.
func (d *Dense) Real() []float64 {
	out := make([]float64, len(d.data))
	for i, v := range d.data {
		out[i] = real(v)
	}
	return out
}

// Reshape returns a copy of d with a new shape of the same element count.
func (d *Dense) Reshape(shape Shape) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(d.data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "Reshape: %v to %v", d.shape, shape)
	}
	out := &Dense{shape: shape.Clone(), dtype: d.dtype, data: make([]complex128, len(d.data))}
	copy(out.data, d.data)
	return out, nil
}

// AsType returns a copy of d converted to dtype.
func (d *Dense) AsType(dtype DType) *Dense {
	out := &Dense{shape: d.shape.Clone(), dtype: dtype, data: make([]complex128, len(d.data))}
	for i, v := range d.data {
		out.data[i] = dtype.round(v)
	}
	return out
}

func (d *Dense) String() string {
	return fmt.Sprintf("Dense(shape=%v, dtype=%s)", []int(d.shape), d.dtype)
}

func (d *Dense) sealed() {}

func (d *Dense) offset(idx []int) int {
	if len(idx) != len(d.shape) {
		panic(fmt.Sprintf("array: %d indices for %d-d array", len(idx), len(d.shape)))
	}
	strides := d.shape.ComputeStrides()
	off := 0
	for i, k := range idx {
		if k < 0 || k >= d.shape[i] {
			panic(fmt.Sprintf("array: index %d out of range for dimension %d of size %d", k, i, d.shape[i]))
		}
		off += k * strides[i]
	}
	return off
}

// Block is an ordered, fixed-length tuple of dense arrays with independent
// shapes and dtypes, treated as a single vector-space element.
type Block []*Dense

// NewBlock groups the given arrays into a block. It panics on an empty list.
func NewBlock(parts ...*Dense) Block {
	if len(parts) == 0 {
		panic("array: empty block")
	}
	return Block(parts)
}

// BlockZeros allocates a zero block with the given component shapes.
func BlockZeros(shape BlockShape, dtype DType) Block {
	parts := make([]*Dense, len(shape))
	for i, s := range shape {
		parts[i] = Zeros(s, dtype)
	}
	return NewBlock(parts...)
}

// Shape returns the component shapes.
func (b Block) Shape() BlockShape {
	shape := make(BlockShape, len(b))
	for i, d := range b {
		shape[i] = d.shape.Clone()
	}
	return shape
}

// Size returns the number of elements over all components.
func (b Block) Size() int {
	n := 0
	for _, d := range b {
		n += d.Size()
	}
	return n
}

// DType returns the promoted dtype of the components.
func (b Block) DType() DType {
	dt := b[0].dtype
	for _, d := range b[1:] {
		dt = Promote(dt, d.dtype)
	}
	return dt
}

// IsBlock returns true.
func (b Block) IsBlock() bool { return true }

func (b Block) String() string {
	parts := make([]string, len(b))
	for i, d := range b {
		parts[i] = d.String()
	}
	return "Block(" + strings.Join(parts, ", ") + ")"
}

func (b Block) sealed() {}
