package tune

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Reporter receives intermediate metrics from a running trial.
type Reporter func(step int, metric float64)

// Objective evaluates one point of the search space and returns its metric
// together with the number of solver iterations spent.
type Objective func(ctx context.Context, params map[string]float64, report Reporter) (metric float64, iterations int, err error)

// Options configure a search.
type Options struct {
	Study      string             // Study name (default: a random id)
	Space      Space              // Parameters to search (required)
	NumSamples int                // Number of trials (default: 16)
	Workers    int                // Concurrent trials (default: 1)
	Seed       int64              // Sampling seed
	Mode       Mode               // Max (default) or Min
	Store      Store              // Default: a fresh MemoryStore
	Logger     logrus.FieldLogger // Default: the logrus standard logger
}

// Result is the outcome of a search.
type Result struct {
	Study  string
	Trials []Trial // Ordered by index
	Best   Trial
	Mode   Mode
}

// Run samples Options.NumSamples points of the space and evaluates them,
// Options.Workers at a time. A trial whose objective fails is recorded with
// its error; the search stops early only when ctx is done or the store
// fails.
func Run(ctx context.Context, objective Objective, opts Options) (*Result, error) {
	if objective == nil {
		return nil, errors.New("tune: nil objective")
	}
	if err := opts.Space.Validate(); err != nil {
		return nil, err
	}
	if opts.NumSamples == 0 {
		opts.NumSamples = 16
	}
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	if opts.NumSamples < 0 || opts.Workers < 0 {
		return nil, errors.New("tune: samples and workers must be positive")
	}
	if opts.Mode == "" {
		opts.Mode = Max
	}
	if opts.Mode != Max && opts.Mode != Min {
		return nil, errors.Errorf("tune: unknown mode %q", opts.Mode)
	}
	if opts.Study == "" {
		opts.Study = uuid.NewString()
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
		if err := opts.Store.Init(ctx); err != nil {
			return nil, err
		}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("study", opts.Study)

	// Points are drawn up front so the sample set depends only on the seed.
	rng := rand.New(rand.NewSource(opts.Seed))
	trials := make([]Trial, opts.NumSamples)
	for i := range trials {
		trials[i] = Trial{
			ID:     uuid.NewString(),
			Study:  opts.Study,
			Index:  i,
			Params: opts.Space.Sample(rng),
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range trials {
		t := &trials[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			runTrial(gctx, objective, t)
			if t.Failed() && gctx.Err() != nil {
				return gctx.Err()
			}
			log.WithFields(logrus.Fields{
				"trial":  t.Index,
				"params": t.Params,
				"metric": t.Metric,
				"error":  t.Err,
			}).Info("trial finished")
			return errors.Wrapf(opts.Store.SaveTrial(gctx, *t), "tune: save trial %d", t.Index)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best, ok := Best(trials, opts.Mode)
	if !ok {
		return nil, errors.Errorf("tune: all %d trials failed", len(trials))
	}
	log.WithFields(logrus.Fields{"best": best.Params, "metric": best.Metric}).Info("search finished")
	return &Result{Study: opts.Study, Trials: trials, Best: best, Mode: opts.Mode}, nil
}

func runTrial(ctx context.Context, objective Objective, t *Trial) {
	start := time.Now()
	metric, iters, err := objective(ctx, t.Params, func(step int, m float64) {
		t.Reports = append(t.Reports, Report{Step: step, Metric: m})
	})
	t.Elapsed = time.Since(start)
	t.Iterations = iters
	switch {
	case err != nil:
		t.Err = err.Error()
	case math.IsNaN(metric):
		t.Err = "metric is NaN"
	default:
		t.Metric = metric
	}
}
