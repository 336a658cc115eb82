package checkpoint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/padmm/internal/array"
)

// Validation limits.
const (
	MaxHeaderSize  = 16 << 20
	MaxArrayCount  = 10_000
	MaxArrayName   = 256
	MaxArrayLength = 1 << 31
)

// ValidateName rejects empty names, separators and control characters.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxArrayName {
		return &ValidationError{Type: "invalid_name", Array: name, Details: fmt.Sprintf("length must be in [1, %d]", MaxArrayName)}
	}
	if strings.ContainsAny(name, "/\\\x00") || strings.Contains(name, "..") {
		return &ValidationError{Type: "invalid_name", Array: name, Details: "contains a path separator, '..' or a null byte"}
	}
	return nil
}

// ValidateArrays checks names, sizes, bounds and overlap of the stored
// arrays against a data section of dataSize bytes.
func ValidateArrays(arrays []ArrayMeta, dataSize int64) error {
	if len(arrays) > MaxArrayCount {
		return &ValidationError{Type: "too_many_arrays", Details: fmt.Sprintf("got %d, max %d", len(arrays), MaxArrayCount)}
	}

	parts := make(map[string][]ArrayMeta)
	for _, a := range arrays {
		if err := ValidateName(a.Name); err != nil {
			return err
		}
		dt, ok := parseDType(a.DType)
		if !ok {
			return &ValidationError{Type: "invalid_dtype", Array: a.Name, Details: a.DType}
		}
		if err := array.Shape(a.Shape).Validate(); err != nil {
			return &ValidationError{Type: "invalid_shape", Array: a.Name, Details: err.Error()}
		}
		n := array.Shape(a.Shape).NumElements()
		if n > MaxArrayLength || int64(n)*int64(dt.Size()) != a.Size {
			return &ValidationError{Type: "size_mismatch", Array: a.Name,
				Details: fmt.Sprintf("%d elements of %s need %d bytes, header says %d", n, dt, int64(n)*int64(dt.Size()), a.Size)}
		}
		parts[a.Name] = append(parts[a.Name], a)
	}

	for name, ps := range parts {
		if len(ps) == 1 && !ps[0].Block {
			continue
		}
		seen := make([]bool, len(ps))
		for _, p := range ps {
			if !p.Block || p.Part < 0 || p.Part >= len(ps) || seen[p.Part] {
				return &ValidationError{Type: "invalid_block", Array: name, Details: "parts must be block components numbered 0..n-1"}
			}
			seen[p.Part] = true
			if p.DType != ps[0].DType {
				return &ValidationError{Type: "invalid_block", Array: name, Details: "parts have different dtypes"}
			}
		}
	}

	sorted := make([]ArrayMeta, len(arrays))
	copy(sorted, arrays)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	for i, a := range sorted {
		if a.Offset < 0 || a.Size < 0 {
			return &ValidationError{Type: "negative_offset", Array: a.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", a.Offset, a.Size)}
		}
		if a.Offset+a.Size > dataSize {
			return &ValidationError{Type: "out_of_bounds", Array: a.Name,
				Details: fmt.Sprintf("offset %d + size %d > data size %d", a.Offset, a.Size, dataSize)}
		}
		if i < len(sorted)-1 && a.Offset+a.Size > sorted[i+1].Offset {
			next := sorted[i+1]
			return &ValidationError{Type: "offset_overlap", Array: a.Name, Array2: next.Name,
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
					a.Offset, a.Offset+a.Size, next.Offset, next.Offset+next.Size)}
		}
	}
	return nil
}
