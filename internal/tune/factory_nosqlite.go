//go:build !sqlite

package tune

import (
	"github.com/pkg/errors"
)

func newSQLiteStore(_ string) (Store, error) {
	return nil, errors.New("sqlite backend unavailable in this build; rebuild with -tags sqlite")
}
