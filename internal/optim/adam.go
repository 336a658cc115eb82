package optim

import (
	"math"
	"math/cmplx"

	"github.com/born-ml/padmm/internal/array"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * |gradient|²    // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	x = x - lr * m_hat / (sqrt(v_hat) + eps)           // Update
//
// The second moment is real even for complex gradients, so the update keeps
// the phase of the bias-corrected first moment.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int         // Timestep for bias correction
	m     array.Value // First moment estimates
	v     array.Value // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(config AdamConfig) *Adam {
	// Set defaults
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
	}
}

// Step performs a single optimization step using Adam algorithm.
func (a *Adam) Step(x, grad array.Value) array.Value {
	a.t++

	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	if a.m == nil || !array.SameStructure(a.m, grad) {
		// Moments are kept in double precision regardless of the iterate dtype.
		a.m = array.AsDouble(array.ZerosLike(grad))
		a.v = array.AsDouble(array.ZerosLike(grad))
	}

	a.m = array.Zip(a.m, grad, func(m, g complex128) complex128 {
		return complex(a.beta1, 0)*m + complex(1-a.beta1, 0)*g
	})
	a.v = array.Zip(a.v, grad, func(v, g complex128) complex128 {
		mag := cmplx.Abs(g)
		return complex(a.beta2*real(v)+(1-a.beta2)*mag*mag, 0)
	})

	step := array.Zip(a.m, a.v, func(m, v complex128) complex128 {
		mHat := m / complex(biasCorrection1, 0)
		vHat := real(v) / biasCorrection2
		return mHat / complex(math.Sqrt(vHat)+a.eps, 0)
	})
	return array.AXPY(complex(-a.lr, 0), step, x)
}

// Reset clears the moment estimates and the timestep.
func (a *Adam) Reset() {
	a.t = 0
	a.m = nil
	a.v = nil
}

// GetLR returns the current learning rate.
func (a *Adam) GetLR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// GetTimestep returns the current timestep.
func (a *Adam) GetTimestep() int {
	return a.t
}
