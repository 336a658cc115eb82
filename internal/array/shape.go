package array

import "github.com/pkg/errors"

// Shape represents the dimensions of a dense array.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return errors.Wrapf(ErrShapeMismatch, "invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BlockShape lists the component shapes of a block array.
type BlockShape []Shape

// NumElements returns the total number of elements over all components.
func (bs BlockShape) NumElements() int {
	n := 0
	for _, s := range bs {
		n += s.NumElements()
	}
	return n
}

// Equal checks if two block shapes are equal component by component.
func (bs BlockShape) Equal(other BlockShape) bool {
	if len(bs) != len(other) {
		return false
	}
	for i := range bs {
		if !bs[i].Equal(other[i]) {
			return false
		}
	}
	return true
}
