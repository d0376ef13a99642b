package webgpu

import (
	"slices"
	"sort"

	"github.com/born-ml/born-wgpu/internal/tensor"
)

var (
	anyDType = tensor.AllDataTypes
	f32Only  = []tensor.DataType{tensor.Float32}
	words32  = []tensor.DataType{tensor.Float32, tensor.Uint32}
)

// capabilities lists the dtypes each router operation accepts for its
// primary operand. Anything not listed fails with UnsupportedOperationError.
var capabilities = map[string][]tensor.DataType{
	"zeros":            anyDType,
	"ones":             {tensor.Uint8, tensor.Uint32, tensor.Float32},
	"from_host":        anyDType,
	"to_host":          anyDType,
	"clone":            anyDType,
	"rand_uniform":     f32Only,
	"rand_normal":      f32Only,
	"affine":           f32Only,
	"powf":             f32Only,
	"elu":              f32Only,
	"unary":            f32Only,
	"binary":           f32Only,
	"cmp":              f32Only,
	"reduce":           f32Only,
	"conv1d":           f32Only,
	"conv2d":           f32Only,
	"avg_pool2d":       f32Only,
	"max_pool2d":       f32Only,
	"upsample_nearest": words32,
	"index_select":     words32,
	"matmul":           f32Only,
	"repeat":           words32,
	"copy_sparse":      words32,
	"copy_strided":     anyDType,
	"to_dtype":         {tensor.Uint8, tensor.Uint32, tensor.BFloat16, tensor.Float16, tensor.Float32},
	"where_cond":       nil,
	"gather":           nil,
	"scatter_add":      nil,
	"index_add":        nil,
	"conv_transpose1d": nil,
	"conv_transpose2d": nil,
	"reduce_arg":       nil,
	"index_select_ids": {tensor.Uint32},
}

// checkDType fails unless op accepts dtype.
func checkDType(op string, dtype tensor.DataType) error {
	if slices.Contains(capabilities[op], dtype) {
		return nil
	}
	if _, known := capabilities[op]; !known {
		return unsupported(op, dtype, "unknown operation")
	}
	return unsupported(op, dtype, "")
}

// Supports reports whether op accepts dtype.
func Supports(op string, dtype tensor.DataType) bool {
	return checkDType(op, dtype) == nil
}

// Capability is one row of the capability table.
type Capability struct {
	Op     string
	DTypes []tensor.DataType
}

// Capabilities returns the capability table sorted by operation name.
// Operations with no kernel are listed with no dtypes.
func Capabilities() []Capability {
	out := make([]Capability, 0, len(capabilities))
	for op, dts := range capabilities {
		out = append(out, Capability{Op: op, DTypes: slices.Clone(dts)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out
}

// convertEntry picks the widening kernel for from -> Float32.
func convertEntry(from tensor.DataType) (Entry, bool) {
	switch from {
	case tensor.Uint8:
		return EntryU8ToF32, true
	case tensor.Uint32:
		return EntryU32ToF32, true
	case tensor.Float16:
		return EntryF16ToF32, true
	case tensor.BFloat16:
		return EntryBF16ToF32, true
	}
	return Entry{}, false
}
