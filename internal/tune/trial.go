package tune

import (
	"time"
)

// Mode selects whether larger or smaller metrics are better.
type Mode string

// Optimization modes.
const (
	Max Mode = "max"
	Min Mode = "min"
)

// Trial is one evaluated point of the search space.
type Trial struct {
	ID         string             `json:"id" yaml:"id"`
	Study      string             `json:"study" yaml:"study"`
	Index      int                `json:"index" yaml:"index"`
	Params     map[string]float64 `json:"params" yaml:"params"`
	Metric     float64            `json:"metric" yaml:"metric"`
	Reports    []Report           `json:"reports,omitempty" yaml:"reports,omitempty"`
	Iterations int                `json:"iterations" yaml:"iterations"`
	Elapsed    time.Duration      `json:"elapsed" yaml:"elapsed"`
	Err        string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is an intermediate metric reported by a running trial.
type Report struct {
	Step   int     `json:"step" yaml:"step"`
	Metric float64 `json:"metric" yaml:"metric"`
}

// Failed reports whether the trial ended with an error.
func (t Trial) Failed() bool { return t.Err != "" }

// better reports whether metric a beats b under mode.
func (m Mode) better(a, b float64) bool {
	if m == Min {
		return a < b
	}
	return a > b
}

// Best returns the best successful trial under mode.
func Best(trials []Trial, mode Mode) (Trial, bool) {
	var (
		best  Trial
		found bool
	)
	for _, t := range trials {
		if t.Failed() {
			continue
		}
		if !found || mode.better(t.Metric, best.Metric) {
			best, found = t, true
		}
	}
	return best, found
}
