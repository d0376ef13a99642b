package webgpu

import (
	"bytes"
	"encoding/binary"

	"github.com/born-ml/born-wgpu/internal/tensor"
	"github.com/pkg/errors"
)

// maxRank is the largest tensor rank a strided kernel can address.
const maxRank = 8

// dims8 is the uniform encoding of a shape or stride: two vec4<u32>.
type dims8 [maxRank]uint32

func toDims8(v []int) (dims8, error) {
	var d dims8
	if len(v) > maxRank {
		return d, errors.Errorf("rank %d exceeds the supported maximum of %d", len(v), maxRank)
	}
	for i, x := range v {
		if x < 0 || uint64(x) > uint64(^uint32(0)) {
			return d, errors.Errorf("dimension value %d does not fit in u32", x)
		}
		d[i] = uint32(x)
	}
	return d, nil
}

// Parameter blocks. Each struct matches the `Params` struct of its shader
// byte for byte; blank fields are padding and encode as zero.

type fillParams struct {
	Numel uint32
	_     [3]uint32
}

type copyParams struct {
	Numel     uint32
	Ndim      uint32
	SrcOffset uint32
	DstOffset uint32
	Shape     dims8
	Stride    dims8
}

type copySparseParams struct {
	Numel     uint32
	BatchSize uint32
	OutStride uint32
	_         uint32
}

type repeatParams struct {
	Numel     uint32
	Ndim      uint32
	SrcOffset uint32
	_         uint32
	OutShape  dims8
	SrcShape  dims8
	SrcStride dims8
}

type convertParams struct {
	Numel  uint32
	Offset uint32
	_      [2]uint32
}

type affineParams struct {
	Numel  uint32
	Ndim   uint32
	Offset uint32
	_      uint32
	Mul    float32
	Add    float32
	_      [2]uint32
	Shape  dims8
	Stride dims8
}

type unaryParams struct {
	Numel  uint32
	Ndim   uint32
	Offset uint32
	_      uint32
	Alpha  float32
	_      [3]uint32
	Shape  dims8
	Stride dims8
}

type binaryParams struct {
	Numel     uint32
	Ndim      uint32
	LhsOffset uint32
	RhsOffset uint32
	Shape     dims8
	LhsStride dims8
	RhsStride dims8
}

type convParams struct {
	BSize    uint32
	CIn      uint32
	IH       uint32
	IW       uint32
	COut     uint32
	KH       uint32
	KW       uint32
	OH       uint32
	OW       uint32
	Stride   uint32
	PadH     uint32
	PadW     uint32
	Dilation uint32
	InOffset uint32
	KOffset  uint32
	_        uint32
}

type poolParams struct {
	Numel  uint32
	IH     uint32
	IW     uint32
	OH     uint32
	OW     uint32
	KH     uint32
	KW     uint32
	SH     uint32
	SW     uint32
	Offset uint32
	_      [2]uint32
}

type upsampleParams struct {
	Numel  uint32
	IH     uint32
	IW     uint32
	OH     uint32
	OW     uint32
	Offset uint32
	_      [2]uint32
}

type reduceParams struct {
	NumelOut    uint32
	Ndim        uint32
	Offset      uint32
	ReduceNumel uint32
	ReduceMask  uint32
	_           [3]uint32
	Shape       dims8
	Stride      dims8
}

type matmulParams struct {
	B              uint32
	M              uint32
	N              uint32
	K              uint32
	LhsOffset      uint32
	RhsOffset      uint32
	LhsBatchStride uint32
	RhsBatchStride uint32
	LhsRowStride   uint32
	LhsColStride   uint32
	RhsRowStride   uint32
	RhsColStride   uint32
	_              [4]uint32
}

type indexSelectParams struct {
	Numel      uint32
	RightSize  uint32
	SrcDimSize uint32
	IdsSize    uint32
	SrcOffset  uint32
	IdsOffset  uint32
	_          [2]uint32
}

type randomParams struct {
	Numel uint32
	Seed  uint32
	A     float32
	B     float32
}

// encodeParams serializes a parameter block little-endian, the byte order of
// every WebGPU target.
func encodeParams(p any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, p); err != nil {
		return nil, errors.Wrap(err, "encoding parameter block")
	}
	return buf.Bytes(), nil
}

// stridedHeader converts a layout into the (ndim, offset, shape, stride)
// quadruple shared by the strided kernels.
func stridedHeader(l tensor.Layout) (ndim, offset uint32, shape, stride dims8, err error) {
	if shape, err = toDims8(l.Shape()); err != nil {
		return 0, 0, shape, stride, err
	}
	if stride, err = toDims8(l.Stride()); err != nil {
		return 0, 0, shape, stride, err
	}
	return uint32(l.Rank()), uint32(l.StartOffset()), shape, stride, nil
}
