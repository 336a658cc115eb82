package tune

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
	"github.com/born-ml/padmm/internal/loss"
	"github.com/born-ml/padmm/internal/metric"
	"github.com/born-ml/padmm/internal/optimize"
)

// TVProblem is total-variation denoising of a noisy piecewise-constant
// signal:
//
//	argmin_x (1/2)‖x − y‖² + λ‖D x‖₁
//
// with D the forward difference operator. It is solved by ADMM with a
// conjugate-gradient x-step and scored by PSNR against the clean signal.
type TVProblem struct {
	Truth *array.Dense
	Noisy *array.Dense
	diff  *linop.FiniteDifference
}

// NewTVProblem draws a signal of length n with the given number of
// constant pieces and adds Gaussian noise of standard deviation sigma.
func NewTVProblem(n, pieces int, sigma float64, seed int64) (*TVProblem, error) {
	if n < 2 || pieces < 1 || pieces > n {
		return nil, errors.Errorf("tv problem: need 1 <= pieces <= n and n >= 2, got n=%d pieces=%d", n, pieces)
	}
	rng := rand.New(rand.NewSource(seed))
	truth := array.Zeros(array.Shape{n}, array.Float64)
	width := n / pieces
	var level float64
	for i := 0; i < n; i++ {
		if i%width == 0 {
			level = rng.Float64()
		}
		truth.SetFlat(i, complex(level, 0))
	}
	noise := array.RandN(rng, array.Shape{n}, array.Float64)
	noisy := array.AXPY(complex(sigma, 0), noise, truth).(*array.Dense)

	diff, err := linop.NewFiniteDifference(array.Shape{n}, array.Float64, 0, false)
	if err != nil {
		return nil, err
	}
	return &TVProblem{Truth: truth, Noisy: noisy, diff: diff}, nil
}

// Solver builds an ADMM solver for regularization weight lambda and
// penalty rho.
func (p *TVProblem) Solver(lambda, rho float64, maxIter int, opts optimize.Options[*optimize.ADMM]) (*optimize.ADMM, error) {
	f, err := loss.NewSquaredL2Loss(p.Noisy, nil, 0.5)
	if err != nil {
		return nil, err
	}
	opts.MaxIter = maxIter
	return optimize.NewADMM(f,
		[]functional.Functional{functional.NewScaled(lambda, functional.L1Norm{})},
		[]linop.Linear{p.diff},
		[]float64{rho},
		p.Noisy,
		optimize.ADMMConfig{
			Options:          opts,
			SubproblemSolver: &optimize.LinearSubproblemSolver{Tolerance: 1e-6},
		})
}

// PSNR scores x against the clean signal.
func (p *TVProblem) PSNR(x array.Value) (float64, error) {
	return metric.PSNR(p.Truth, x, 0)
}

// Objective returns a search objective over the parameters "lambda" and
// "rho", running maxIter ADMM iterations per trial and reporting the PSNR
// every reportEvery iterations.
func (p *TVProblem) Objective(maxIter, reportEvery int) Objective {
	return func(ctx context.Context, params map[string]float64, report Reporter) (float64, int, error) {
		lambda, ok := params["lambda"]
		if !ok {
			return 0, 0, errors.New("tv objective: missing parameter lambda")
		}
		rho, ok := params["rho"]
		if !ok {
			rho = 1
		}
		s, err := p.Solver(lambda, rho, maxIter, optimize.Options[*optimize.ADMM]{})
		if err != nil {
			return 0, 0, err
		}
		var cb func(*optimize.ADMM)
		if reportEvery > 0 && report != nil {
			cb = func(s *optimize.ADMM) {
				if s.Iteration()%reportEvery != 0 {
					return
				}
				if v, err := p.PSNR(s.X()); err == nil {
					report(s.Iteration(), v)
				}
			}
		}
		x, err := s.Solve(ctx, cb)
		if err != nil {
			return 0, s.Iteration(), err
		}
		v, err := p.PSNR(x)
		return v, s.Iteration(), err
	}
}
