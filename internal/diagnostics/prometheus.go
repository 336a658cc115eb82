package diagnostics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink exports the latest value of every numeric field as a gauge
// labelled by field name, and counts inserted rows.
type PrometheusSink struct {
	values *prometheus.GaugeVec
	rows   prometheus.Counter
}

// NewPrometheusSink registers the sink's collectors on reg. Solver names the
// producing solver via a constant label.
func NewPrometheusSink(reg prometheus.Registerer, namespace, solver string) (*PrometheusSink, error) {
	labels := prometheus.Labels{"solver": solver}
	s := &PrometheusSink{
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "iteration_stat",
			Help:        "Latest value of each iteration statistics field.",
			ConstLabels: labels,
		}, []string{"field"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "iterations_total",
			Help:        "Number of recorded solver iterations.",
			ConstLabels: labels,
		}),
	}
	for _, c := range []prometheus.Collector{s.values, s.rows} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register prometheus collector")
		}
	}
	return s, nil
}

// Observe implements Sink. Non-numeric values are skipped.
func (s *PrometheusSink) Observe(fields []Field, values []any) {
	s.rows.Inc()
	for i, f := range fields {
		if v, ok := toFloat(values[i]); ok {
			s.values.WithLabelValues(f.Name).Set(v)
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}
