package array

import (
	"math"
	"math/rand"
)

// RandN draws a dense array of standard normal samples from rng. Complex
// types draw real and imaginary parts with variance 1/2 each, so that
// E|x|² = 1 for every dtype.
func RandN(rng *rand.Rand, shape Shape, dtype DType) *Dense {
	d := Zeros(shape, dtype)
	for i := range d.data {
		if dtype.IsComplex() {
			s := math.Sqrt(0.5)
			d.data[i] = dtype.round(complex(s*rng.NormFloat64(), s*rng.NormFloat64()))
		} else {
			d.data[i] = dtype.round(complex(rng.NormFloat64(), 0))
		}
	}
	return d
}
