// Package tensor provides the data model shared by compute backends: element
// types, shapes, strided layouts, host storage and the backend capability
// interfaces.
package tensor

import (
	"fmt"
	"strings"
)

// DataType represents runtime type information for tensor elements.
type DataType int

// Supported data types for tensors.
const (
	Uint8 DataType = iota
	Uint32
	Int64
	BFloat16
	Float16
	Float32
	Float64
)

// AllDataTypes lists every DataType in declaration order.
var AllDataTypes = []DataType{Uint8, Uint32, Int64, BFloat16, Float16, Float32, Float64}

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Uint8:
		return 1
	case BFloat16, Float16:
		return 2
	case Uint32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Uint8:
		return "u8"
	case Uint32:
		return "u32"
	case Int64:
		return "i64"
	case BFloat16:
		return "bf16"
	case Float16:
		return "f16"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the data type is a floating point type.
func (dt DataType) IsFloat() bool {
	switch dt {
	case BFloat16, Float16, Float32, Float64:
		return true
	default:
		return false
	}
}

// ParseDataType parses names such as "f32", "float32" or "u8".
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "u8", "uint8":
		return Uint8, nil
	case "u32", "uint32":
		return Uint32, nil
	case "i64", "int64":
		return Int64, nil
	case "bf16", "bfloat16":
		return BFloat16, nil
	case "f16", "float16":
		return Float16, nil
	case "f32", "float32":
		return Float32, nil
	case "f64", "float64":
		return Float64, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}
