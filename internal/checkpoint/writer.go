package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
)

// Write encodes st to w. Values are written in name order.
func Write(w io.Writer, st *State) error {
	if st == nil {
		return errors.New("checkpoint: nil state")
	}
	names := make([]string, 0, len(st.Values))
	for name := range st.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: FormatVersion,
		Solver:        st.Solver,
		Iteration:     st.Iteration,
		CreatedAt:     time.Now().UTC(),
		Params:        st.Params,
		Metadata:      st.Metadata,
	}
	var data bytes.Buffer
	for _, name := range names {
		if err := ValidateName(name); err != nil {
			return err
		}
		v := st.Values[name]
		if v == nil {
			return errors.Errorf("checkpoint: value %q is nil", name)
		}
		for i, part := range array.Components(v) {
			meta := ArrayMeta{
				Name:   name,
				Block:  v.IsBlock(),
				Part:   i,
				DType:  part.DType().String(),
				Shape:  part.Shape().Clone(),
				Offset: int64(data.Len()),
				Size:   int64(part.Size() * part.DType().Size()),
			}
			encodeDense(&data, part)
			header.Arrays = append(header.Arrays, meta)
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "checkpoint: marshal header")
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	padding := make([]byte, paddingFor(FixedHeaderSize+len(headerJSON)))

	h := sha256.New()
	h.Write(headerJSON)
	h.Write(padding)
	h.Write(data.Bytes())

	var fixed [FixedHeaderSize]byte
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(fixed[8:16], uint64(len(headerJSON)))
	copy(fixed[16:48], h.Sum(nil))

	for _, chunk := range [][]byte{fixed[:], headerJSON, padding, data.Bytes()} {
		if _, err := w.Write(chunk); err != nil {
			return errors.Wrap(err, "checkpoint: write")
		}
	}
	return nil
}

// Save writes st to the file at path, replacing it atomically.
func Save(path string, st *State) error {
	tmp := path + ".tmp"
	//nolint:gosec // G304: the checkpoint path is chosen by the caller
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "checkpoint: create")
	}
	if err := Write(f, st); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "checkpoint: close")
	}
	return errors.Wrap(os.Rename(tmp, path), "checkpoint: rename")
}

func paddingFor(n int) int {
	return (DataAlignment - n%DataAlignment) % DataAlignment
}

func encodeDense(buf *bytes.Buffer, d *array.Dense) {
	var b [8]byte
	put32 := func(v float64) {
		binary.LittleEndian.PutUint32(b[:4], math.Float32bits(float32(v)))
		buf.Write(b[:4])
	}
	put64 := func(v float64) {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])
	}
	for _, v := range d.Data() {
		switch d.DType() {
		case array.Float32:
			put32(real(v))
		case array.Float64:
			put64(real(v))
		case array.Complex64:
			put32(real(v))
			put32(imag(v))
		case array.Complex128:
			put64(real(v))
			put64(imag(v))
		}
	}
}
