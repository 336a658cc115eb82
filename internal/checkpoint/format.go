package checkpoint

import (
	"time"

	"github.com/born-ml/padmm/internal/array"
)

// Format constants.
const (
	MagicBytes      = "PADM"
	FormatVersion   = 1
	FixedHeaderSize = 48 // magic + version + header size + checksum
	DataAlignment   = 64
	ChecksumSize    = 32
)

// State is a solver snapshot.
type State struct {
	Solver    string                 // Solver kind, e.g. "ADMM"
	Iteration int                    // Completed iterations
	Params    map[string]float64     // Scalar parameters, e.g. rho
	Values    map[string]array.Value // Iterates by name
	Metadata  map[string]string      // Free-form annotations
}

// Header is the JSON header of a checkpoint file.
type Header struct {
	FormatVersion int                `json:"format_version"`
	Solver        string             `json:"solver"`
	Iteration     int                `json:"iteration"`
	CreatedAt     time.Time          `json:"created_at"`
	Params        map[string]float64 `json:"params,omitempty"`
	Arrays        []ArrayMeta        `json:"arrays"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
}

// ArrayMeta describes one stored dense array.
type ArrayMeta struct {
	Name   string `json:"name"`
	Block  bool   `json:"block,omitempty"` // Component of a block value
	Part   int    `json:"part,omitempty"`  // Component index within the block
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`
}

func parseDType(s string) (array.DType, bool) {
	for _, dt := range []array.DType{array.Float32, array.Float64, array.Complex64, array.Complex128} {
		if dt.String() == s {
			return dt, true
		}
	}
	return 0, false
}
