package optimize

import (
	"io"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/diagnostics"
)

// ItStatOptions configure the iteration statistics of a solver of type S.
//
// With neither Fields nor Func set, the solver records its default columns.
// Fields alone selects a subset of the solver's known columns by name, with
// an optional format override. Fields together with Func records whatever
// Func returns; Func is called once at the end of construction, with the
// solver fully built, and must return one value per field.
type ItStatOptions[S any] struct {
	Fields  []diagnostics.Field
	Func    func(S) []any
	Display bool               // Print a table row per recorded iteration
	Period  int                // Print iteration 1 and multiples of Period (default: 1)
	Writer  io.Writer          // Table output (default: os.Stdout)
	Sinks   []diagnostics.Sink // Receivers of every row, e.g. a PrometheusSink
}

// column is one entry of a solver's static statistics table.
type column[S any] struct {
	field diagnostics.Field
	value func(S) any
}

func newColumn[S any](name, format string, value func(S) any) column[S] {
	return column[S]{field: diagnostics.Field{Name: name, Format: format}, value: value}
}

func (o ItStatOptions[S]) build(known []column[S]) (*diagnostics.Recorder, func(S) []any, error) {
	var (
		fields []diagnostics.Field
		stat   func(S) []any
	)
	switch {
	case o.Func != nil:
		if len(o.Fields) == 0 {
			return nil, nil, configError("itstat function given without fields")
		}
		fields, stat = o.Fields, o.Func
	case len(o.Fields) > 0:
		selected := make([]column[S], 0, len(o.Fields))
		for _, f := range o.Fields {
			c, ok := lookupColumn(known, f.Name)
			if !ok {
				return nil, nil, configError("unknown statistics field %q", f.Name)
			}
			if f.Format != "" {
				c.field.Format = f.Format
			}
			selected = append(selected, c)
		}
		fields, stat = columnFields(selected), columnValues(selected)
	default:
		fields, stat = columnFields(known), columnValues(known)
	}

	rec, err := diagnostics.NewRecorder(diagnostics.Config{
		Fields:  fields,
		Display: o.Display,
		Period:  o.Period,
		Writer:  o.Writer,
		Sinks:   o.Sinks,
	})
	if err != nil {
		return nil, nil, errors.Wrap(ErrConfig, err.Error())
	}
	return rec, stat, nil
}

// checkArity calls stat once and compares its length with the field count.
// A panicking stat function is reported as a configuration error.
func checkArity[S any](self S, stat func(S) []any, want int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = configError("itstat function panicked: %v", r)
		}
	}()
	if n := len(stat(self)); n != want {
		return errors.Wrapf(ErrConfig, "%v: function returns %d values for %d fields",
			diagnostics.ErrFieldCount, n, want)
	}
	return nil
}

func lookupColumn[S any](cols []column[S], name string) (column[S], bool) {
	for _, c := range cols {
		if c.field.Name == name {
			return c, true
		}
	}
	return column[S]{}, false
}

func columnFields[S any](cols []column[S]) []diagnostics.Field {
	out := make([]diagnostics.Field, len(cols))
	for i, c := range cols {
		out[i] = c.field
	}
	return out
}

func columnValues[S any](cols []column[S]) func(S) []any {
	return func(s S) []any {
		out := make([]any, len(cols))
		for i, c := range cols {
			out[i] = c.value(s)
		}
		return out
	}
}
