package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
)

// Read decodes a checkpoint, verifying its checksum and header.
func Read(r io.Reader) (*State, error) {
	var fixed [FixedHeaderSize]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, errors.Wrap(err, "checkpoint: read fixed header")
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", v)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[8:16])
	if headerSize > MaxHeaderSize {
		return nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[16:48])

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: read")
	}
	if sha256.Sum256(rest) != stored {
		return nil, ErrChecksumMismatch
	}
	if uint64(len(rest)) < headerSize {
		return nil, errors.Wrap(io.ErrUnexpectedEOF, "checkpoint: header")
	}

	var header Header
	dec := json.NewDecoder(bytes.NewReader(rest[:headerSize]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&header); err != nil {
		return nil, errors.Wrap(err, "checkpoint: decode header")
	}
	start := int(headerSize) + paddingFor(FixedHeaderSize+int(headerSize))
	if start > len(rest) {
		return nil, errors.Wrap(io.ErrUnexpectedEOF, "checkpoint: data")
	}
	data := rest[start:]
	if err := ValidateArrays(header.Arrays, int64(len(data))); err != nil {
		return nil, err
	}
	return decodeState(&header, data)
}

// Load reads the checkpoint file at path.
func Load(path string) (*State, error) {
	//nolint:gosec // G304: the checkpoint path is chosen by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: open")
	}
	defer f.Close()
	return Read(f)
}

func decodeState(h *Header, data []byte) (*State, error) {
	st := &State{
		Solver:    h.Solver,
		Iteration: h.Iteration,
		Params:    h.Params,
		Values:    make(map[string]array.Value),
		Metadata:  h.Metadata,
	}
	blocks := make(map[string][]*array.Dense)
	for _, a := range h.Arrays {
		dt, _ := parseDType(a.DType)
		d := decodeDense(data[a.Offset:a.Offset+a.Size], a.Shape, dt)
		if !a.Block {
			st.Values[a.Name] = d
			continue
		}
		parts := blocks[a.Name]
		for len(parts) <= a.Part {
			parts = append(parts, nil)
		}
		parts[a.Part] = d
		blocks[a.Name] = parts
	}
	for name, parts := range blocks {
		st.Values[name] = array.NewBlock(parts...)
	}
	return st, nil
}

func decodeDense(b []byte, shape []int, dt array.DType) *array.Dense {
	d := array.Zeros(array.Shape(shape).Clone(), dt)
	get32 := func(i int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i:])))
	}
	get64 := func(i int) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(b[i:]))
	}
	for i := 0; i < d.Size(); i++ {
		var v complex128
		switch dt {
		case array.Float32:
			v = complex(get32(4*i), 0)
		case array.Float64:
			v = complex(get64(8*i), 0)
		case array.Complex64:
			v = complex(get32(8*i), get32(8*i+4))
		case array.Complex128:
			v = complex(get64(16*i), get64(16*i+8))
		}
		d.SetFlat(i, v)
	}
	return d
}
