// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/born-wgpu/internal/tensor"
)

// Type aliases for public API

// DataType represents the element type of a storage.
type DataType = tensor.DataType

// Data type constants.
const (
	Uint8    DataType = tensor.Uint8
	Uint32   DataType = tensor.Uint32
	Int64    DataType = tensor.Int64
	BFloat16 DataType = tensor.BFloat16
	Float16  DataType = tensor.Float16
	Float32  DataType = tensor.Float32
	Float64  DataType = tensor.Float64
)

// ParseDataType parses a short dtype name such as "f32" or "u8".
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}

// Device represents the kind of hardware a storage lives on.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// DeviceLocation names a concrete device instance.
type DeviceLocation = tensor.DeviceLocation

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// Layout maps a logical shape onto a flat element buffer.
type Layout = tensor.Layout

// Contiguous returns the row-major layout of shape.
func Contiguous(shape Shape) Layout {
	return tensor.Contiguous(shape)
}

// ContiguousWithOffset returns the row-major layout of shape starting at
// element offset.
func ContiguousWithOffset(shape Shape, offset int) Layout {
	return tensor.ContiguousWithOffset(shape, offset)
}

// NewLayout builds a layout from explicit strides.
func NewLayout(shape Shape, stride []int, offset int) (Layout, error) {
	return tensor.NewLayout(shape, stride, offset)
}

// BF16 is a bfloat16 value stored as its raw bits.
type BF16 = tensor.BF16

// HostStorage is host-resident element data.
type HostStorage = tensor.HostStorage

// Element is the set of Go types that map onto a DataType.
type Element = tensor.Element

// HostFrom encodes values into a HostStorage.
func HostFrom[T Element](values []T) HostStorage {
	return tensor.HostFrom(values)
}

// HostAs decodes a HostStorage as a slice of T.
func HostAs[T Element](h HostStorage) ([]T, error) {
	return tensor.HostAs[T](h)
}

// Operation enums.
type (
	UnaryOp  = tensor.UnaryOp
	BinaryOp = tensor.BinaryOp
	CmpOp    = tensor.CmpOp
	ReduceOp = tensor.ReduceOp
)

// Unary operations.
const (
	Neg   = tensor.Neg
	Recip = tensor.Recip
	Exp   = tensor.Exp
	Log   = tensor.Log
	Sqrt  = tensor.Sqrt
	Sqr   = tensor.Sqr
	Abs   = tensor.Abs
	Sin   = tensor.Sin
	Cos   = tensor.Cos
	Tanh  = tensor.Tanh
	Relu  = tensor.Relu
	Silu  = tensor.Silu
	Gelu  = tensor.Gelu
	Floor = tensor.Floor
	Ceil  = tensor.Ceil
	Round = tensor.Round
)

// Binary operations.
const (
	Add     = tensor.Add
	Sub     = tensor.Sub
	Mul     = tensor.Mul
	Div     = tensor.Div
	Maximum = tensor.Maximum
	Minimum = tensor.Minimum
)

// Comparison operations.
const (
	Eq = tensor.Eq
	Ne = tensor.Ne
	Lt = tensor.Lt
	Le = tensor.Le
	Gt = tensor.Gt
	Ge = tensor.Ge
)

// Reduce operations.
const (
	ReduceSum    = tensor.ReduceSum
	ReduceMin    = tensor.ReduceMin
	ReduceMax    = tensor.ReduceMax
	ReduceArgMin = tensor.ReduceArgMin
	ReduceArgMax = tensor.ReduceArgMax
)

// Convolution parameters.
type (
	ParamsConv1D          = tensor.ParamsConv1D
	ParamsConvTranspose1D = tensor.ParamsConvTranspose1D
	ParamsConv2D          = tensor.ParamsConv2D
	ParamsConvTranspose2D = tensor.ParamsConvTranspose2D
)

// BackendDevice is the device half of the backend capability contract.
type BackendDevice[S, D any] = tensor.BackendDevice[S, D]

// BackendStorage is the storage half of the backend capability contract.
type BackendStorage[S, D any] = tensor.BackendStorage[S, D]
