// Package tune runs random hyperparameter searches over solver parameters.
// Trials are independent: each builds and runs its own solver, so they are
// executed concurrently on a bounded worker pool and recorded in a Store.
package tune

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// ErrSpace reports an invalid search space.
var ErrSpace = errors.New("invalid search space")

// Param is one searched parameter, sampled from [Low, High].
type Param struct {
	Name string  `yaml:"name" mapstructure:"name"`
	Low  float64 `yaml:"low" mapstructure:"low"`
	High float64 `yaml:"high" mapstructure:"high"`
	Log  bool    `yaml:"log" mapstructure:"log"` // Sample log-uniformly
}

// Space is a set of named parameters.
type Space []Param

// LogUniform returns a log-uniform parameter on [low, high].
func LogUniform(name string, low, high float64) Param {
	return Param{Name: name, Low: low, High: high, Log: true}
}

// Uniform returns a uniform parameter on [low, high].
func Uniform(name string, low, high float64) Param {
	return Param{Name: name, Low: low, High: high}
}

// Validate checks bounds and name uniqueness.
func (s Space) Validate() error {
	if len(s) == 0 {
		return errors.Wrap(ErrSpace, "no parameters")
	}
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if p.Name == "" {
			return errors.Wrap(ErrSpace, "unnamed parameter")
		}
		if seen[p.Name] {
			return errors.Wrapf(ErrSpace, "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		if !(p.Low <= p.High) {
			return errors.Wrapf(ErrSpace, "%s: low %g > high %g", p.Name, p.Low, p.High)
		}
		if p.Log && p.Low <= 0 {
			return errors.Wrapf(ErrSpace, "%s: log-uniform bounds must be positive", p.Name)
		}
	}
	return nil
}

// Sample draws one point of the space.
func (s Space) Sample(rng *rand.Rand) map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, p := range s {
		u := rng.Float64()
		if p.Log {
			lo, hi := math.Log(p.Low), math.Log(p.High)
			out[p.Name] = math.Exp(lo + u*(hi-lo))
		} else {
			out[p.Name] = p.Low + u*(p.High-p.Low)
		}
	}
	return out
}

// Names returns the parameter names in sorted order.
func (s Space) Names() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Name
	}
	sort.Strings(out)
	return out
}
