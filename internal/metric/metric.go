// Package metric implements reconstruction quality measures.
package metric

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/padmm/internal/array"
)

// MSE returns the mean squared error (1/N)·Σ|ref − x|².
func MSE(ref, x array.Value) (v float64, err error) {
	defer array.Recover(&err)
	if ref.Size() == 0 {
		return 0, errors.New("metric: empty reference")
	}
	d := array.Norm(array.Sub(ref, x))
	return d * d / float64(ref.Size()), nil
}

// SNR returns the signal-to-noise ratio in dB, 10·log10(‖ref‖² / ‖ref − x‖²).
func SNR(ref, x array.Value) (v float64, err error) {
	defer array.Recover(&err)
	num := array.Norm(ref)
	den := array.Norm(array.Sub(ref, x))
	return 20 * math.Log10(num/den), nil
}

// PSNR returns the peak signal-to-noise ratio in dB,
// 10·log10(peak² / MSE(ref, x)). A zero peak is taken as the dynamic range
// of |ref|.
func PSNR(ref, x array.Value, peak float64) (float64, error) {
	mse, err := MSE(ref, x)
	if err != nil {
		return 0, err
	}
	if peak == 0 {
		peak = dynamicRange(ref)
	}
	return 10 * math.Log10(peak*peak/mse), nil
}

func dynamicRange(v array.Value) float64 {
	flat := array.Flatten(v)
	mag := make([]float64, len(flat))
	for i, c := range flat {
		mag[i] = cmplx.Abs(c)
	}
	return floats.Max(mag) - floats.Min(mag)
}
