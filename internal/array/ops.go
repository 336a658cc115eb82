package array

import (
	"math"
	"math/cmplx"

	"github.com/born-ml/padmm/internal/parallel"
)

// kernelConfig controls parallelism of elementwise kernels.
var kernelConfig = parallel.DefaultConfig()

// SameStructure reports whether a and b are both dense with equal shapes, or
// both blocks whose components have pairwise equal shapes.
func SameStructure(a, b Value) bool {
	switch av := a.(type) {
	case *Dense:
		bv, ok := b.(*Dense)
		return ok && av.shape.Equal(bv.shape)
	case Block:
		bv, ok := b.(Block)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].shape.Equal(bv[i].shape) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CheckStructure returns a ShapeError when a and b differ in structure.
func CheckStructure(op string, a, b Value) error {
	if SameStructure(a, b) {
		return nil
	}
	return &ShapeError{Op: op, A: a.String(), B: b.String()}
}

func mustMatch(op string, a, b Value) {
	if err := CheckStructure(op, a, b); err != nil {
		panic(err)
	}
}

// ZerosLike returns a zero value with the structure and dtype of v.
func ZerosLike(v Value) Value {
	switch x := v.(type) {
	case *Dense:
		return Zeros(x.shape, x.dtype)
	case Block:
		parts := make([]*Dense, len(x))
		for i, d := range x {
			parts[i] = Zeros(d.shape, d.dtype)
		}
		return Block(parts)
	}
	panic("array: unknown value type")
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	return Map(v, func(x complex128) complex128 { return x })
}

// Map applies fn elementwise, keeping the structure and dtype of v.
func Map(v Value, fn func(complex128) complex128) Value {
	switch x := v.(type) {
	case *Dense:
		return mapDense(x, x.dtype, fn)
	case Block:
		parts := make([]*Dense, len(x))
		for i, d := range x {
			parts[i] = mapDense(d, d.dtype, fn)
		}
		return Block(parts)
	}
	panic("array: unknown value type")
}

// Zip applies fn elementwise over a and b. The result takes the promoted
// dtype of each component pair. It panics with a ShapeError on mismatch.
func Zip(a, b Value, fn func(x, y complex128) complex128) Value {
	mustMatch("Zip", a, b)
	switch x := a.(type) {
	case *Dense:
		return zipDense(x, b.(*Dense), fn)
	case Block:
		y := b.(Block)
		parts := make([]*Dense, len(x))
		for i := range x {
			parts[i] = zipDense(x[i], y[i], fn)
		}
		return Block(parts)
	}
	panic("array: unknown value type")
}

// Add returns a + b.
func Add(a, b Value) Value {
	return Zip(a, b, func(x, y complex128) complex128 { return x + y })
}

// Sub returns a - b.
func Sub(a, b Value) Value {
	return Zip(a, b, func(x, y complex128) complex128 { return x - y })
}

// Mul returns the elementwise product a ⊙ b.
func Mul(a, b Value) Value {
	return Zip(a, b, func(x, y complex128) complex128 { return x * y })
}

// Scale returns alpha·a. A scalar with nonzero imaginary part promotes real
// components to the complex type of the same precision.
func Scale(alpha complex128, a Value) Value {
	fn := func(x complex128) complex128 { return alpha * x }
	switch x := a.(type) {
	case *Dense:
		return mapDense(x, scaledType(x.dtype, alpha), fn)
	case Block:
		parts := make([]*Dense, len(x))
		for i, d := range x {
			parts[i] = mapDense(d, scaledType(d.dtype, alpha), fn)
		}
		return Block(parts)
	}
	panic("array: unknown value type")
}

// AXPY returns alpha·x + y.
func AXPY(alpha complex128, x, y Value) Value {
	return Zip(x, y, func(a, b complex128) complex128 { return alpha*a + b })
}

// Conj returns the elementwise complex conjugate.
func Conj(a Value) Value {
	return Map(a, cmplx.Conj)
}

// Vdot returns Σ conj(a_i)·b_i over all components.
func Vdot(a, b Value) complex128 {
	mustMatch("Vdot", a, b)
	switch x := a.(type) {
	case *Dense:
		return vdotDense(x, b.(*Dense))
	case Block:
		y := b.(Block)
		var s complex128
		for i := range x {
			s += vdotDense(x[i], y[i])
		}
		return s
	}
	panic("array: unknown value type")
}

// Norm returns the Euclidean norm sqrt(Re vdot(a, a)).
func Norm(a Value) float64 {
	return math.Sqrt(real(Vdot(a, a)))
}

// Sum returns the sum of all elements.
func Sum(a Value) complex128 {
	switch x := a.(type) {
	case *Dense:
		return parallel.Reduce(len(x.data), func(i int) complex128 { return x.data[i] }, kernelConfig)
	case Block:
		var s complex128
		for _, d := range x {
			s += Sum(d)
		}
		return s
	}
	panic("array: unknown value type")
}

// Components returns the dense components of v: v itself for a dense array.
func Components(v Value) []*Dense {
	switch x := v.(type) {
	case *Dense:
		return []*Dense{x}
	case Block:
		return x
	}
	panic("array: unknown value type")
}

// Flatten copies all elements of v into a single slice in component order.
func Flatten(v Value) []complex128 {
	out := make([]complex128, 0, v.Size())
	for _, d := range Components(v) {
		out = append(out, d.data...)
	}
	return out
}

// Unflatten fills a copy of like with the elements of data in component order.
func Unflatten(like Value, data []complex128) (Value, error) {
	if len(data) != like.Size() {
		return nil, &ShapeError{Op: "Unflatten", A: like.String(), B: "flat vector"}
	}
	out := ZerosLike(like)
	off := 0
	for _, d := range Components(out) {
		for i := range d.data {
			d.data[i] = d.dtype.round(data[off+i])
		}
		off += len(d.data)
	}
	return out, nil
}

// AsDouble returns a copy of v with every component widened to double
// precision.
func AsDouble(v Value) Value {
	parts := Components(v)
	out := make([]*Dense, len(parts))
	for i, d := range parts {
		out[i] = d.AsType(d.dtype.Double())
	}
	return wrapLike(v, out)
}

// Conform returns a copy of v converted to the component dtypes of like.
// It panics with a ShapeError when the structures differ.
func Conform(v, like Value) Value {
	mustMatch("Conform", v, like)
	parts := Components(v)
	ref := Components(like)
	out := make([]*Dense, len(parts))
	for i, d := range parts {
		out[i] = d.AsType(ref[i].dtype)
	}
	return wrapLike(v, out)
}

func wrapLike(v Value, parts []*Dense) Value {
	if v.IsBlock() {
		return Block(parts)
	}
	return parts[0]
}

func scaledType(dt DType, alpha complex128) DType {
	if imag(alpha) != 0 {
		return dt.Complex()
	}
	return dt
}

func mapDense(x *Dense, dtype DType, fn func(complex128) complex128) *Dense {
	out := &Dense{shape: x.shape.Clone(), dtype: dtype, data: make([]complex128, len(x.data))}
	parallel.For(len(x.data), func(i int) {
		out.data[i] = dtype.round(fn(x.data[i]))
	}, kernelConfig)
	return out
}

func zipDense(x, y *Dense, fn func(a, b complex128) complex128) *Dense {
	dtype := Promote(x.dtype, y.dtype)
	out := &Dense{shape: x.shape.Clone(), dtype: dtype, data: make([]complex128, len(x.data))}
	parallel.For(len(x.data), func(i int) {
		out.data[i] = dtype.round(fn(x.data[i], y.data[i]))
	}, kernelConfig)
	return out
}

func vdotDense(x, y *Dense) complex128 {
	return parallel.Reduce(len(x.data), func(i int) complex128 {
		return cmplx.Conj(x.data[i]) * y.data[i]
	}, kernelConfig)
}
