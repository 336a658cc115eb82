package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/checkpoint"
	"github.com/born-ml/padmm/internal/config"
	"github.com/born-ml/padmm/internal/diagnostics"
	"github.com/born-ml/padmm/internal/functional"
	"github.com/born-ml/padmm/internal/linop"
	"github.com/born-ml/padmm/internal/optimize"
)

type solveOpts struct {
	root           *rootOpts
	metricsFile    string
	checkpointFile string
	resumeFile     string
}

// checkpointer is implemented by both solvers.
type checkpointer interface {
	Checkpoint() *checkpoint.State
	Restore(st *checkpoint.State) error
}

// solveSummary is what a benchmark solve reports.
type solveSummary struct {
	Algorithm  string
	Iterations int
	Elapsed    time.Duration
	Objective  float64
	Residual   float64 // Relative normal equation residual
	Primal     float64
	Dual       float64
}

func newSolveCommand(root *rootOpts) *cobra.Command {
	opts := solveOpts{root: root}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a ridge regression benchmark with ADMM or nonlinear PADMM",
		Long: `Solve argmin_x (1/2)||A x - y||^2 + (lambda/2)||B x||^2 for a random
diagonal A and a random near-identity B, printing iteration statistics and
the residual of the normal equations at the returned solution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := opts.run(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s iterations in %s, objective %.6e, residual %.3e (primal %.3e, dual %.3e)\n",
				summary.Algorithm, humanize.Comma(int64(summary.Iterations)), summary.Elapsed.Round(time.Microsecond),
				summary.Objective, summary.Residual, summary.Primal, summary.Dual)
			return nil
		},
	}
	d := config.Defaults().Solver
	cmd.Flags().String("algorithm", d.Algorithm, "Solver: admm or nlpadmm")
	cmd.Flags().String("subproblem", d.Subproblem, "x-step solver: linear, matrix or generic")
	cmd.Flags().String("dtype", d.DType, "Data type: float32, float64, complex64 or complex128")
	cmd.Flags().Int("maxiter", d.MaxIter, "Maximum number of iterations")
	cmd.Flags().Float64("rho", d.Rho, "Penalty parameter")
	cmd.Flags().Float64("mu", d.Mu, "x-step linearization parameter for nlpadmm (0 picks 1.1*||B||^2)")
	cmd.Flags().Float64("nu", d.Nu, "z-step linearization parameter for nlpadmm")
	cmd.Flags().Float64("lambda", d.Lambda, "Regularization weight")
	cmd.Flags().Int("size", d.Size, "Problem size")
	cmd.Flags().Int64("seed", d.Seed, "Random seed of the problem")
	cmd.Flags().Bool("display", d.Display, "Print the iteration statistics table")
	cmd.Flags().Int("period", d.Period, "Print every period-th iteration")
	cmd.Flags().StringVar(&opts.metricsFile,
		"metrics-file", "",
		"Write the final iteration statistics in Prometheus text format to this path")
	cmd.Flags().StringVar(&opts.checkpointFile,
		"checkpoint", "",
		"Save the solver state to this path when the solve ends")
	cmd.Flags().StringVar(&opts.resumeFile,
		"resume", "",
		"Restore the solver state from this checkpoint before solving")
	return cmd
}

func (o *solveOpts) run(ctx context.Context, out io.Writer) (*solveSummary, error) {
	cfg := o.root.cfg.Solver
	log := o.root.logger.WithFields(logrus.Fields{"algorithm": cfg.Algorithm, "subproblem": cfg.Subproblem})

	dtype, err := config.ParseDType(cfg.DType)
	if err != nil {
		return nil, err
	}
	problem, err := newRidge(cfg.Size, dtype, cfg.Lambda, cfg.Seed)
	if err != nil {
		return nil, err
	}
	sub, err := subproblemSolver(cfg.Subproblem)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	var sinks []diagnostics.Sink
	if o.metricsFile != "" {
		sink, err := diagnostics.NewPrometheusSink(reg, "padmm", cfg.Algorithm)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	log.WithFields(logrus.Fields{"size": cfg.Size, "dtype": dtype}).Info("solving ridge benchmark")
	var summary *solveSummary
	switch cfg.Algorithm {
	case "admm":
		summary, err = o.runADMM(ctx, problem, sub, out, sinks)
	case "nlpadmm":
		summary, err = o.runNLPADMM(ctx, problem, sub, out, sinks)
	default:
		err = errors.Errorf("unknown algorithm %q", cfg.Algorithm)
	}
	if err != nil {
		return nil, err
	}
	summary.Algorithm = cfg.Algorithm

	if o.metricsFile != "" {
		if err := prometheus.WriteToTextfile(o.metricsFile, reg); err != nil {
			return nil, errors.Wrap(err, "write metrics")
		}
		log.WithField("path", o.metricsFile).Info("metrics written")
	}
	return summary, nil
}

func (o *solveOpts) runADMM(ctx context.Context, p *ridge, sub optimize.SubproblemSolver, out io.Writer, sinks []diagnostics.Sink) (*solveSummary, error) {
	cfg := o.root.cfg.Solver
	f, err := p.loss()
	if err != nil {
		return nil, err
	}
	s, err := optimize.NewADMM(f,
		[]functional.Functional{p.regularizer()},
		[]linop.Linear{p.b},
		[]float64{cfg.Rho},
		nil,
		optimize.ADMMConfig{
			Options: optimize.Options[*optimize.ADMM]{
				MaxIter: cfg.MaxIter,
				ItStat: optimize.ItStatOptions[*optimize.ADMM]{
					Display: cfg.Display,
					Period:  cfg.Period,
					Writer:  out,
					Sinks:   sinks,
				},
				Logger: o.root.logger,
			},
			SubproblemSolver: sub,
		})
	if err != nil {
		return nil, err
	}
	if err := o.resume(s); err != nil {
		return nil, err
	}
	x, err := s.Solve(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := o.save(s); err != nil {
		return nil, err
	}
	return summarize(p, x, s.Iteration(), s.Elapsed(), s.Objective, s.PrimalResidual(), s.DualResidual())
}

func (o *solveOpts) runNLPADMM(ctx context.Context, p *ridge, sub optimize.SubproblemSolver, out io.Writer, sinks []diagnostics.Sink) (*solveSummary, error) {
	cfg := o.root.cfg.Solver
	f, err := p.loss()
	if err != nil {
		return nil, err
	}
	h, err := p.coupling()
	if err != nil {
		return nil, err
	}
	mu := cfg.Mu
	if mu == 0 {
		norm, err := p.opNormSquared()
		if err != nil {
			return nil, err
		}
		mu = 1.1 * norm
	}
	x0 := p.b.InputSpace().Zeros()
	z0 := p.b.OutputSpace().Zeros()
	s, err := optimize.NewNonLinearPADMM(f, p.regularizer(), h, cfg.Rho, mu, cfg.Nu, x0, z0, nil,
		optimize.NonLinearPADMMConfig{
			Options: optimize.Options[*optimize.NonLinearPADMM]{
				MaxIter: cfg.MaxIter,
				ItStat: optimize.ItStatOptions[*optimize.NonLinearPADMM]{
					Display: cfg.Display,
					Period:  cfg.Period,
					Writer:  out,
					Sinks:   sinks,
				},
				Logger: o.root.logger,
			},
			SubproblemSolver: sub,
		})
	if err != nil {
		return nil, err
	}
	if err := o.resume(s); err != nil {
		return nil, err
	}
	x, err := s.Solve(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := o.save(s); err != nil {
		return nil, err
	}
	return summarize(p, x, s.Iteration(), s.Elapsed(), s.Objective, s.PrimalResidual(), s.DualResidual())
}

func (o *solveOpts) resume(s checkpointer) error {
	if o.resumeFile == "" {
		return nil
	}
	st, err := checkpoint.Load(o.resumeFile)
	if err != nil {
		return err
	}
	if err := s.Restore(st); err != nil {
		return err
	}
	o.root.logger.WithFields(logrus.Fields{"path": o.resumeFile, "iter": st.Iteration}).Info("resumed from checkpoint")
	return nil
}

func (o *solveOpts) save(s checkpointer) error {
	if o.checkpointFile == "" {
		return nil
	}
	st := s.Checkpoint()
	cfg := o.root.cfg.Solver
	st.Metadata = map[string]string{
		"problem":    "ridge",
		"size":       fmt.Sprint(cfg.Size),
		"seed":       fmt.Sprint(cfg.Seed),
		"dtype":      cfg.DType,
		"subproblem": cfg.Subproblem,
	}
	if err := checkpoint.Save(o.checkpointFile, st); err != nil {
		return err
	}
	o.root.logger.WithField("path", o.checkpointFile).Info("checkpoint saved")
	return nil
}

func summarize(p *ridge, x array.Value, iters int, elapsed time.Duration, objective func() (float64, error), primal, dual float64) (*solveSummary, error) {
	obj, err := objective()
	if err != nil {
		return nil, err
	}
	res, err := p.residual(x)
	if err != nil {
		return nil, err
	}
	return &solveSummary{
		Iterations: iters,
		Elapsed:    elapsed,
		Objective:  obj,
		Residual:   res,
		Primal:     primal,
		Dual:       dual,
	}, nil
}

func subproblemSolver(name string) (optimize.SubproblemSolver, error) {
	switch name {
	case "linear":
		return &optimize.LinearSubproblemSolver{Tolerance: 1e-8}, nil
	case "matrix":
		return &optimize.MatrixSubproblemSolver{}, nil
	case "generic":
		return &optimize.GenericSubproblemSolver{Method: optimize.Backtracking, MaxIter: 200}, nil
	default:
		return nil, errors.Errorf("unknown subproblem solver %q", name)
	}
}
