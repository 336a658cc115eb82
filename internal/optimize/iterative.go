// Package optimize implements proximal splitting solvers: ADMM with a list of
// linear constraints and the nonlinear proximal ADMM for problems coupled by
// H(x, z) = 0. Solvers share an iteration driver that records statistics,
// times the solve, runs a callback after every iteration, and honours a
// cooperative stop flag.
package optimize

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/padmm/internal/diagnostics"
)

// Options are the settings shared by every iterative solver. S is the
// concrete solver type handed to callbacks and statistics functions.
type Options[S any] struct {
	MaxIter int                // Iteration budget per Solve (required, > 0)
	ItStat  ItStatOptions[S]   // Statistics columns and display
	Logger  logrus.FieldLogger // Defaults to the logrus standard logger
	Clock   clockwork.Clock    // Defaults to the real clock
}

// iterative drives the outer loop of a solver. The solver embeds it and
// supplies step, which performs one iteration.
type iterative[S any] struct {
	name    string
	self    S
	step    func() error
	maxIter int
	itnum   int
	stopped bool

	timer    *diagnostics.Timer
	recorder *diagnostics.Recorder
	stat     func(S) []any
	log      logrus.FieldLogger
}

func (it *iterative[S]) init(name string, self S, step func() error, opts Options[S], columns []column[S]) error {
	if opts.MaxIter <= 0 {
		return configError("%s: maxiter must be positive, got %d", name, opts.MaxIter)
	}
	it.name = name
	it.self = self
	it.step = step
	it.maxIter = opts.MaxIter
	it.timer = diagnostics.NewTimer(opts.Clock)
	it.log = opts.Logger
	if it.log == nil {
		it.log = logrus.StandardLogger()
	}
	it.log = it.log.WithField("solver", name)

	rec, stat, err := opts.ItStat.build(columns)
	if err != nil {
		return errors.Wrap(err, name)
	}
	it.recorder = rec
	it.stat = stat
	if opts.ItStat.Func != nil {
		if err := checkArity(self, stat, len(rec.Fields())); err != nil {
			return errors.Wrap(err, name)
		}
	}
	it.log.WithField("fields", rec.FieldNames()).Debug("solver configured")
	return nil
}

// Iteration returns the number of completed iterations.
func (it *iterative[S]) Iteration() int { return it.itnum }

// MaxIter returns the iteration budget of one Solve call.
func (it *iterative[S]) MaxIter() int { return it.maxIter }

// SetMaxIter changes the iteration budget. Callbacks may call it to extend
// or shorten the current solve.
func (it *iterative[S]) SetMaxIter(n int) { it.maxIter = n }

// Elapsed returns the accumulated solve time.
func (it *iterative[S]) Elapsed() time.Duration { return it.timer.Elapsed() }

// Timer returns the solve timer.
func (it *iterative[S]) Timer() *diagnostics.Timer { return it.timer }

// Stats returns the iteration statistics recorder.
func (it *iterative[S]) Stats() *diagnostics.Recorder { return it.recorder }

// Stop asks the solver to end the current solve after the iteration in
// progress. It is meant to be called from a callback.
func (it *iterative[S]) Stop() { it.stopped = true }

// Stopped reports whether Stop was called during the last solve.
func (it *iterative[S]) Stopped() bool { return it.stopped }

// run performs up to maxIter iterations. The count restarts at every call
// while the iteration number keeps increasing, so repeated calls resume the
// previous solve.
func (it *iterative[S]) run(ctx context.Context, callback func(S)) error {
	it.stopped = false
	it.timer.Start()
	defer it.timer.Stop()

	start := it.itnum
	for it.itnum-start < it.maxIter && !it.stopped {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%s: iteration %d", it.name, it.itnum+1)
		}
		if err := it.step(); err != nil {
			return errors.Wrapf(err, "%s: iteration %d", it.name, it.itnum+1)
		}
		it.itnum++

		values := it.stat(it.self)
		row, err := it.recorder.Insert(values...)
		if err != nil {
			return errors.Wrap(err, it.name)
		}
		it.log.WithField("iter", it.itnum).Trace(row)

		if callback != nil {
			callback(it.self)
		}
	}

	if err := it.recorder.End(); err != nil {
		return err
	}
	it.log.WithFields(logrus.Fields{
		"iterations": it.itnum - start,
		"elapsed":    it.timer.Elapsed(),
		"stopped":    it.stopped,
	}).Debug("solve finished")
	return nil
}
