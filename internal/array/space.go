package array

import "fmt"

// Space describes the structure of a value: a dense shape, or a list of
// component shapes for a block, together with an element type.
type Space struct {
	Shape  Shape      // Dense shape; ignored when Blocks is non-nil.
	Blocks BlockShape // Component shapes of a block value.
	DType  DType
}

// DenseSpace returns the space of dense arrays with the given shape.
func DenseSpace(shape Shape, dtype DType) Space {
	return Space{Shape: shape.Clone(), DType: dtype}
}

// BlockSpace returns the space of block arrays with the given component shapes.
func BlockSpace(shape BlockShape, dtype DType) Space {
	blocks := make(BlockShape, len(shape))
	for i, s := range shape {
		blocks[i] = s.Clone()
	}
	return Space{Blocks: blocks, DType: dtype}
}

// SpaceOf returns the space that v belongs to.
func SpaceOf(v Value) Space {
	switch x := v.(type) {
	case *Dense:
		return DenseSpace(x.shape, x.dtype)
	case Block:
		return BlockSpace(x.Shape(), x.DType())
	}
	panic("array: unknown value type")
}

// IsBlock reports whether s is a block space.
func (s Space) IsBlock() bool { return s.Blocks != nil }

// Size returns the number of elements of a value in s.
func (s Space) Size() int {
	if s.IsBlock() {
		return s.Blocks.NumElements()
	}
	return s.Shape.NumElements()
}

// Zeros returns the zero value of s.
func (s Space) Zeros() Value {
	if s.IsBlock() {
		return BlockZeros(s.Blocks, s.DType)
	}
	return Zeros(s.Shape, s.DType)
}

// SameStructure reports whether s and o describe values of the same
// structure, regardless of dtype.
func (s Space) SameStructure(o Space) bool {
	if s.IsBlock() != o.IsBlock() {
		return false
	}
	if s.IsBlock() {
		return s.Blocks.Equal(o.Blocks)
	}
	return s.Shape.Equal(o.Shape)
}

// Contains reports whether v has the structure of s.
func (s Space) Contains(v Value) bool {
	return s.SameStructure(SpaceOf(v))
}

func (s Space) String() string {
	if s.IsBlock() {
		return fmt.Sprintf("BlockSpace(%v, %s)", s.Blocks, s.DType)
	}
	return fmt.Sprintf("Space(%v, %s)", []int(s.Shape), s.DType)
}
