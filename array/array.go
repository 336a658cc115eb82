// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package array provides the values solvers operate on: dense arrays and
// blocks of dense arrays, real or complex, in single or double precision.
//
// Element-wise operations panic with a *ShapeError when operand structures
// differ; library entry points convert the panic into an error with
//
//	defer array.Recover(&err)
package array

import (
	"math/rand"

	"github.com/born-ml/padmm/internal/array"
)

// DType is an element type.
type DType = array.DType

// Element types.
const (
	Float32    = array.Float32
	Float64    = array.Float64
	Complex64  = array.Complex64
	Complex128 = array.Complex128
)

// ErrShapeMismatch is wrapped by every structure error.
var ErrShapeMismatch = array.ErrShapeMismatch

// ShapeError describes operands of different structure.
type ShapeError = array.ShapeError

// Value is a dense array or a block array.
type Value = array.Value

// Dense is an n-dimensional array.
type Dense = array.Dense

// Block is an ordered list of dense arrays treated as one value.
type Block = array.Block

// Shape is the shape of a dense array.
type Shape = array.Shape

// BlockShape is the list of component shapes of a block array.
type BlockShape = array.BlockShape

// Space describes the structure and element type of a value.
type Space = array.Space

// Zeros returns a zero-filled dense array.
func Zeros(shape Shape, dtype DType) *Dense { return array.Zeros(shape, dtype) }

// Full returns a dense array filled with v.
func Full(shape Shape, dtype DType, v complex128) *Dense { return array.Full(shape, dtype, v) }

// FromSlice builds a dense array from real data in row-major order.
func FromSlice(data []float64, shape Shape, dtype DType) (*Dense, error) {
	return array.FromSlice(data, shape, dtype)
}

// FromComplex builds a dense array from complex data in row-major order.
func FromComplex(data []complex128, shape Shape, dtype DType) (*Dense, error) {
	return array.FromComplex(data, shape, dtype)
}

// RandN returns standard normal samples; complex types have unit variance.
func RandN(rng *rand.Rand, shape Shape, dtype DType) *Dense { return array.RandN(rng, shape, dtype) }

// NewBlock groups dense arrays into a block array.
func NewBlock(parts ...*Dense) Block { return array.NewBlock(parts...) }

// BlockZeros returns a zero block array.
func BlockZeros(shape BlockShape, dtype DType) Block { return array.BlockZeros(shape, dtype) }

// DenseSpace describes dense values of the given shape.
func DenseSpace(shape Shape, dtype DType) Space { return array.DenseSpace(shape, dtype) }

// BlockSpace describes block values of the given shape.
func BlockSpace(shape BlockShape, dtype DType) Space { return array.BlockSpace(shape, dtype) }

// SpaceOf returns the space v lies in.
func SpaceOf(v Value) Space { return array.SpaceOf(v) }

// Recover converts a *ShapeError panic into *err. It must be deferred
// directly.
func Recover(err *error) {
	if r := recover(); r != nil {
		se, ok := r.(*ShapeError)
		if !ok {
			panic(r)
		}
		*err = se
	}
}

// Add returns a + b.
func Add(a, b Value) Value { return array.Add(a, b) }

// Sub returns a − b.
func Sub(a, b Value) Value { return array.Sub(a, b) }

// Mul returns the element-wise product.
func Mul(a, b Value) Value { return array.Mul(a, b) }

// Scale returns alpha·a.
func Scale(alpha complex128, a Value) Value { return array.Scale(alpha, a) }

// AXPY returns alpha·x + y.
func AXPY(alpha complex128, x, y Value) Value { return array.AXPY(alpha, x, y) }

// Vdot returns the inner product Σ conj(a)·b.
func Vdot(a, b Value) complex128 { return array.Vdot(a, b) }

// Norm returns the Euclidean norm over all components.
func Norm(a Value) float64 { return array.Norm(a) }

// Clone returns a deep copy.
func Clone(v Value) Value { return array.Clone(v) }

// ZerosLike returns zeros with the structure and dtype of v.
func ZerosLike(v Value) Value { return array.ZerosLike(v) }
