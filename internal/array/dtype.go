// Package array provides the numeric containers consumed by the solvers:
// dense N-dimensional arrays and block arrays of independently shaped
// components, treated as elements of a single vector space.
package array

// DType represents the element type of an array.
type DType int

// Supported element types.
const (
	Float32 DType = iota
	Float64
	Complex64
	Complex128
)

// Size returns the byte size of one element.
func (dt DType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64, Complex64:
		return 8
	case Complex128:
		return 16
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	default:
		return "unknown"
	}
}

// IsComplex reports whether dt is a complex type.
func (dt DType) IsComplex() bool {
	return dt == Complex64 || dt == Complex128
}

// Real returns the real type with the same precision as dt.
func (dt DType) Real() DType {
	switch dt {
	case Complex64:
		return Float32
	case Complex128:
		return Float64
	default:
		return dt
	}
}

// Complex returns the complex type with the same precision as dt.
func (dt DType) Complex() DType {
	switch dt {
	case Float32:
		return Complex64
	case Float64:
		return Complex128
	default:
		return dt
	}
}

// Double returns the double-precision type of the same kind as dt.
func (dt DType) Double() DType {
	switch dt {
	case Float32:
		return Float64
	case Complex64:
		return Complex128
	default:
		return dt
	}
}

// Promote returns the smallest type that represents values of both a and b.
//
//	float32 + float64   → float64
//	float32 + complex64 → complex64
//	float64 + complex64 → complex128
func Promote(a, b DType) DType {
	double := a == Float64 || a == Complex128 || b == Float64 || b == Complex128
	complexOut := a.IsComplex() || b.IsComplex()
	switch {
	case complexOut && double:
		return Complex128
	case complexOut:
		return Complex64
	case double:
		return Float64
	default:
		return Float32
	}
}

// round quantizes v to the precision of dt. Real types drop the imaginary part.
func (dt DType) round(v complex128) complex128 {
	switch dt {
	case Float32:
		return complex(float64(float32(real(v))), 0)
	case Float64:
		return complex(real(v), 0)
	case Complex64:
		return complex128(complex64(v))
	default:
		return v
	}
}
