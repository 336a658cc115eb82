package checkpoint_test

import (
	"bytes"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/checkpoint"
)

func sampleState() *checkpoint.State {
	rng := rand.New(rand.NewSource(5))
	return &checkpoint.State{
		Solver:    "ADMM",
		Iteration: 42,
		Params:    map[string]float64{"rho.0": 1.5},
		Values: map[string]array.Value{
			"x":   array.RandN(rng, array.Shape{3, 4}, array.Float32),
			"z.0": array.RandN(rng, array.Shape{5}, array.Complex128),
			"u.0": array.NewBlock(
				array.RandN(rng, array.Shape{2, 2}, array.Complex64),
				array.RandN(rng, array.Shape{3}, array.Complex64),
			),
			"w": array.RandN(rng, array.Shape{1}, array.Float64),
		},
		Metadata: map[string]string{"problem": "ridge"},
	}
}

func TestWriteRead(t *testing.T) {
	st := sampleState()
	var buf bytes.Buffer
	require.NoError(t, checkpoint.Write(&buf, st))

	got, err := checkpoint.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, st.Solver, got.Solver)
	assert.Equal(t, st.Iteration, got.Iteration)
	assert.Equal(t, st.Params, got.Params)
	assert.Equal(t, st.Metadata, got.Metadata)
	require.Len(t, got.Values, len(st.Values))
	for name, want := range st.Values {
		v := got.Values[name]
		require.NotNil(t, v, name)
		assert.True(t, array.SameStructure(want, v), name)
		assert.Equal(t, want.DType(), v.DType(), name)
		assert.Equal(t, array.Flatten(want), array.Flatten(v), name)
	}
	assert.True(t, got.Values["u.0"].IsBlock())
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.padm")
	require.NoError(t, checkpoint.Save(path, sampleState()))
	got, err := checkpoint.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Iteration)

	_, err = checkpoint.Load(filepath.Join(t.TempDir(), "missing.padm"))
	assert.Error(t, err)
}

func TestRead_Corruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, checkpoint.Write(&buf, sampleState()))
	good := buf.Bytes()

	flipped := append([]byte(nil), good...)
	flipped[len(flipped)-1] ^= 0xff
	_, err := checkpoint.Read(bytes.NewReader(flipped))
	assert.True(t, errors.Is(err, checkpoint.ErrChecksumMismatch))

	magic := append([]byte(nil), good...)
	copy(magic, "BORN")
	_, err = checkpoint.Read(bytes.NewReader(magic))
	assert.True(t, errors.Is(err, checkpoint.ErrInvalidMagic))

	version := append([]byte(nil), good...)
	version[4] = 9
	_, err = checkpoint.Read(bytes.NewReader(version))
	assert.True(t, errors.Is(err, checkpoint.ErrUnsupportedVersion))

	_, err = checkpoint.Read(bytes.NewReader(good[:20]))
	assert.Error(t, err)
}

func TestWrite_InvalidName(t *testing.T) {
	st := &checkpoint.State{Solver: "ADMM", Values: map[string]array.Value{
		"../x": array.Zeros(array.Shape{2}, array.Float32),
	}}
	var ve *checkpoint.ValidationError
	assert.True(t, errors.As(checkpoint.Write(&bytes.Buffer{}, st), &ve))
	assert.Equal(t, "invalid_name", ve.Type)
}

func TestValidateArrays(t *testing.T) {
	tests := []struct {
		name    string
		arrays  []checkpoint.ArrayMeta
		wantErr string
	}{
		{
			name: "valid",
			arrays: []checkpoint.ArrayMeta{
				{Name: "x", DType: "float32", Shape: []int{4}, Offset: 0, Size: 16},
				{Name: "u", Block: true, Part: 0, DType: "complex64", Shape: []int{2}, Offset: 16, Size: 16},
				{Name: "u", Block: true, Part: 1, DType: "complex64", Shape: []int{1}, Offset: 32, Size: 8},
			},
		},
		{
			name: "overlap",
			arrays: []checkpoint.ArrayMeta{
				{Name: "x", DType: "float32", Shape: []int{4}, Offset: 0, Size: 16},
				{Name: "y", DType: "float32", Shape: []int{4}, Offset: 12, Size: 16},
			},
			wantErr: "offset_overlap",
		},
		{
			name:    "out of bounds",
			arrays:  []checkpoint.ArrayMeta{{Name: "x", DType: "float64", Shape: []int{8}, Offset: 0, Size: 64}},
			wantErr: "out_of_bounds",
		},
		{
			name:    "size mismatch",
			arrays:  []checkpoint.ArrayMeta{{Name: "x", DType: "complex128", Shape: []int{2}, Offset: 0, Size: 16}},
			wantErr: "size_mismatch",
		},
		{
			name:    "dtype",
			arrays:  []checkpoint.ArrayMeta{{Name: "x", DType: "int8", Shape: []int{2}, Offset: 0, Size: 2}},
			wantErr: "invalid_dtype",
		},
		{
			name: "duplicate part",
			arrays: []checkpoint.ArrayMeta{
				{Name: "u", Block: true, Part: 0, DType: "float32", Shape: []int{1}, Offset: 0, Size: 4},
				{Name: "u", Block: true, Part: 0, DType: "float32", Shape: []int{1}, Offset: 4, Size: 4},
			},
			wantErr: "invalid_block",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkpoint.ValidateArrays(tt.arrays, 48)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var ve *checkpoint.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.wantErr, ve.Type)
		})
	}
}
