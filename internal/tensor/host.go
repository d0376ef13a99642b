package tensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// BF16 is a bfloat16 value stored as its raw bits.
type BF16 uint16

// BF16FromFloat32 rounds f to the nearest bfloat16 (ties to even).
func BF16FromFloat32(f float32) BF16 {
	if f != f {
		return 0x7FC0
	}
	bits := math.Float32bits(f)
	bits += 0x7FFF + ((bits >> 16) & 1)
	return BF16(bits >> 16)
}

// Float32 widens the value to float32.
func (b BF16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// Element is the set of Go types that map one-to-one onto a DataType.
type Element interface {
	uint8 | uint32 | int64 | BF16 | float16.Float16 | float32 | float64
}

// DataTypeOf returns the DataType matching T.
func DataTypeOf[T Element]() DataType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Uint8
	case uint32:
		return Uint32
	case int64:
		return Int64
	case BF16:
		return BFloat16
	case float16.Float16:
		return Float16
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		panic("unsupported element type")
	}
}

// HostStorage is a flat little-endian byte buffer tagged with its element type.
type HostStorage struct {
	dtype DataType
	data  []byte
}

// NewHostStorage wraps raw bytes. len(data) must be a multiple of the element size.
func NewHostStorage(dtype DataType, data []byte) (HostStorage, error) {
	if len(data)%dtype.Size() != 0 {
		return HostStorage{}, fmt.Errorf("host storage: %d bytes is not a multiple of %s size %d",
			len(data), dtype, dtype.Size())
	}
	return HostStorage{dtype: dtype, data: data}, nil
}

// DType returns the element type.
func (h HostStorage) DType() DataType { return h.dtype }

// Bytes returns the raw little-endian bytes.
func (h HostStorage) Bytes() []byte { return h.data }

// Len returns the number of elements.
func (h HostStorage) Len() int { return len(h.data) / h.dtype.Size() }

// HostFrom encodes values into a HostStorage.
func HostFrom[T Element](values []T) HostStorage {
	dtype := DataTypeOf[T]()
	buf := make([]byte, 0, len(values)*dtype.Size())
	for _, v := range values {
		switch x := any(v).(type) {
		case uint8:
			buf = append(buf, x)
		case uint32:
			buf = binary.LittleEndian.AppendUint32(buf, x)
		case int64:
			buf = binary.LittleEndian.AppendUint64(buf, uint64(x))
		case BF16:
			buf = binary.LittleEndian.AppendUint16(buf, uint16(x))
		case float16.Float16:
			buf = binary.LittleEndian.AppendUint16(buf, x.Bits())
		case float32:
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
		case float64:
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
		}
	}
	return HostStorage{dtype: dtype, data: buf}
}

// HostAs decodes the storage as a slice of T. It fails when T does not
// match the storage's element type.
func HostAs[T Element](h HostStorage) ([]T, error) {
	if want := DataTypeOf[T](); want != h.dtype {
		return nil, fmt.Errorf("host storage: cannot view %s data as %s", h.dtype, want)
	}
	n := h.Len()
	out := make([]T, n)
	size := h.dtype.Size()
	for i := range out {
		b := h.data[i*size : (i+1)*size]
		var v any
		switch h.dtype {
		case Uint8:
			v = b[0]
		case Uint32:
			v = binary.LittleEndian.Uint32(b)
		case Int64:
			v = int64(binary.LittleEndian.Uint64(b))
		case BFloat16:
			v = BF16(binary.LittleEndian.Uint16(b))
		case Float16:
			v = float16.Frombits(binary.LittleEndian.Uint16(b))
		case Float32:
			v = math.Float32frombits(binary.LittleEndian.Uint32(b))
		case Float64:
			v = math.Float64frombits(binary.LittleEndian.Uint64(b))
		}
		out[i] = v.(T)
	}
	return out, nil
}

// Float32s widens any element type to float32.
func (h HostStorage) Float32s() []float32 {
	n := h.Len()
	out := make([]float32, n)
	size := h.dtype.Size()
	for i := range out {
		b := h.data[i*size : (i+1)*size]
		switch h.dtype {
		case Uint8:
			out[i] = float32(b[0])
		case Uint32:
			out[i] = float32(binary.LittleEndian.Uint32(b))
		case Int64:
			out[i] = float32(int64(binary.LittleEndian.Uint64(b)))
		case BFloat16:
			out[i] = BF16(binary.LittleEndian.Uint16(b)).Float32()
		case Float16:
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(b)).Float32()
		case Float32:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		case Float64:
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}
	}
	return out
}
