package array

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrShapeMismatch is returned (or carried by a ShapeError panic) when two
// values do not share the same structure.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeError is the panic value raised by arithmetic on values of
// incompatible structure. Callers that validate shapes up front never see it;
// solvers convert it back into an error with Recover.
type ShapeError struct {
	Op   string
	A, B string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v: %s vs %s", e.Op, ErrShapeMismatch, e.A, e.B)
}

// Unwrap returns ErrShapeMismatch.
func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

// Recover converts a ShapeError panic into *err. Other panics propagate.
//
//	func step() (err error) {
//	    defer array.Recover(&err)
//	    ...
//	}
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if se, ok := r.(*ShapeError); ok {
		*err = se
		return
	}
	panic(r)
}
