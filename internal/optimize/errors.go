package optimize

import (
	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/functional"
)

// Error kinds reported by solver construction and iteration. Test with
// errors.Is; the wrapped message carries the details.
var (
	// ErrConfig reports an invalid solver configuration: mismatched list
	// lengths, non-positive penalty or iteration count, or iteration
	// statistics whose function and fields disagree.
	ErrConfig = errors.New("invalid solver configuration")

	// ErrMissingCapability reports that a term or subproblem solver cannot
	// do what the algorithm needs (e.g. g has no proximal operator).
	ErrMissingCapability = errors.New("missing capability")

	// ErrShapeMismatch reports incompatible operand structure.
	ErrShapeMismatch = array.ErrShapeMismatch
)

func configError(format string, args ...any) error {
	return errors.Wrapf(ErrConfig, format, args...)
}

// requireTerm wraps functional.Require into ErrMissingCapability.
func requireTerm(role string, f functional.Functional, want functional.Capability) error {
	if err := functional.Require(role, f, want); err != nil {
		return errors.Wrap(ErrMissingCapability, err.Error())
	}
	return nil
}
