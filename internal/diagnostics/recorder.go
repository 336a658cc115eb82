// Package diagnostics records per-iteration solver statistics: an ordered
// set of named, formatted fields appended once per iteration, optionally
// printed as a table and forwarded to metric sinks.
package diagnostics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrFieldCount is returned when the number of values inserted does not
// match the number of configured fields.
var ErrFieldCount = errors.New("iteration statistics field count mismatch")

// Field is a named column with a printf-style format, e.g. {"Iter", "%d"}.
type Field struct {
	Name   string
	Format string
}

// Config configures a Recorder. When there is no integer "Iter" field, the
// period counts rows instead: the first row and every Period-th after it.
type Config struct {
	Fields  []Field   // Ordered columns (required)
	Display bool      // Print rows as they are inserted
	Period  int       // Print rows whose Iter is 1 or a multiple of Period (default: 1)
	Writer  io.Writer // Output for printed rows (default: os.Stdout)
	Sinks   []Sink    // Receivers of every inserted row
}

// Record is one inserted row.
type Record struct {
	Values []any
	Row    string // Formatted row, identical for identical values
}

// Sink receives every inserted row.
type Sink interface {
	Observe(fields []Field, values []any)
}

// Recorder accumulates iteration statistics.
type Recorder struct {
	fields  []Field
	widths  []int
	display bool
	period  int
	iterCol int // Index of the "Iter" field, -1 if none
	out     *bufio.Writer
	sinks   []Sink

	history     []Record
	headerShown bool
}

var formatWidth = regexp.MustCompile(`^%[-+# 0]*(\d+)`)

// NewRecorder validates cfg and creates a Recorder.
func NewRecorder(cfg Config) (*Recorder, error) {
	if len(cfg.Fields) == 0 {
		return nil, errors.New("diagnostics: at least one field is required")
	}
	if cfg.Period == 0 {
		cfg.Period = 1
	}
	if cfg.Period < 0 {
		return nil, errors.Errorf("diagnostics: period must be positive, got %d", cfg.Period)
	}
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	seen := make(map[string]bool, len(cfg.Fields))
	widths := make([]int, len(cfg.Fields))
	for i, f := range cfg.Fields {
		if f.Name == "" || f.Format == "" {
			return nil, errors.Errorf("diagnostics: field %d needs a name and a format", i)
		}
		if seen[f.Name] {
			return nil, errors.Errorf("diagnostics: duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		widths[i] = len(f.Name)
		if m := formatWidth.FindStringSubmatch(f.Format); m != nil {
			if w, err := strconv.Atoi(m[1]); err == nil {
				widths[i] = max(widths[i], w)
			}
		}
	}

	fields := make([]Field, len(cfg.Fields))
	copy(fields, cfg.Fields)
	iterCol := -1
	for i, f := range fields {
		if f.Name == "Iter" {
			iterCol = i
		}
	}

	return &Recorder{
		fields:  fields,
		widths:  widths,
		display: cfg.Display,
		period:  cfg.Period,
		iterCol: iterCol,
		out:     bufio.NewWriter(cfg.Writer),
		sinks:   cfg.Sinks,
	}, nil
}

// Fields returns the configured columns.
func (r *Recorder) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// FieldNames returns the column names in order.
func (r *Recorder) FieldNames() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Header returns the formatted header line.
func (r *Recorder) Header() string {
	cols := make([]string, len(r.fields))
	for i, f := range r.fields {
		cols[i] = pad(f.Name, r.widths[i])
	}
	return strings.Join(cols, "  ")
}

// Insert appends a row. The values must match the configured fields in
// number and order. The formatted row is returned.
func (r *Recorder) Insert(values ...any) (string, error) {
	if len(values) != len(r.fields) {
		return "", errors.Wrapf(ErrFieldCount, "got %d values for %d fields", len(values), len(r.fields))
	}

	row := r.format(values)
	stored := make([]any, len(values))
	copy(stored, values)
	r.history = append(r.history, Record{Values: stored, Row: row})

	for _, s := range r.sinks {
		s.Observe(r.fields, stored)
	}

	if r.display && r.due(stored) {
		if !r.headerShown {
			header := r.Header()
			fmt.Fprintln(r.out, header)
			fmt.Fprintln(r.out, strings.Repeat("-", len(header)))
			r.headerShown = true
		}
		fmt.Fprintln(r.out, row)
		if err := r.out.Flush(); err != nil {
			return row, errors.Wrap(err, "diagnostics: write row")
		}
	}
	return row, nil
}

// due reports whether a row is printed.
func (r *Recorder) due(values []any) bool {
	if r.iterCol >= 0 {
		if it, ok := values[r.iterCol].(int); ok {
			return it == 1 || it%r.period == 0
		}
	}
	return (len(r.history)-1)%r.period == 0
}

func (r *Recorder) format(values []any) string {
	cols := make([]string, len(values))
	for i, v := range values {
		cols[i] = pad(fmt.Sprintf(r.fields[i].Format, v), r.widths[i])
	}
	return strings.Join(cols, "  ")
}

// Len returns the number of recorded rows.
func (r *Recorder) Len() int { return len(r.history) }

// History returns a copy of all recorded rows.
func (r *Recorder) History() []Record {
	out := make([]Record, len(r.history))
	copy(out, r.history)
	return out
}

// Column returns the recorded values of one field.
func (r *Recorder) Column(name string) ([]any, error) {
	idx := -1
	for i, f := range r.fields {
		if f.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.Errorf("diagnostics: unknown field %q", name)
	}
	out := make([]any, len(r.history))
	for i, rec := range r.history {
		out[i] = rec.Values[idx]
	}
	return out, nil
}

// End flushes buffered output. A solve that is resumed keeps appending to
// the same table, so End does not close the writer.
func (r *Recorder) End() error {
	return errors.Wrap(r.out.Flush(), "diagnostics: flush")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
