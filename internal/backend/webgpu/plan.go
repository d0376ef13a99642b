package webgpu

import (
	"math"

	"github.com/born-ml/born-wgpu/internal/tensor"
	"github.com/pkg/errors"
)

// Planning turns layouts and op parameters into parameter blocks and output
// shapes. Nothing here touches the device.

func toU32(what string, v int) (uint32, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, errors.Errorf("%s %d does not fit in u32", what, v)
	}
	return uint32(v), nil
}

func planCopy(src tensor.Layout, dstOffset int) (copyParams, error) {
	ndim, offset, shape, stride, err := stridedHeader(src)
	if err != nil {
		return copyParams{}, err
	}
	numel, err := toU32("element count", src.NumElements())
	if err != nil {
		return copyParams{}, err
	}
	dst, err := toU32("destination offset", dstOffset)
	if err != nil {
		return copyParams{}, err
	}
	return copyParams{Numel: numel, Ndim: ndim, SrcOffset: offset, DstOffset: dst, Shape: shape, Stride: stride}, nil
}

func planAffine(l tensor.Layout, mul, add float64) (affineParams, error) {
	ndim, offset, shape, stride, err := stridedHeader(l)
	if err != nil {
		return affineParams{}, err
	}
	numel, err := toU32("element count", l.NumElements())
	if err != nil {
		return affineParams{}, err
	}
	return affineParams{
		Numel: numel, Ndim: ndim, Offset: offset,
		Mul: float32(mul), Add: float32(add),
		Shape: shape, Stride: stride,
	}, nil
}

func planUnary(l tensor.Layout, alpha float64) (unaryParams, error) {
	ndim, offset, shape, stride, err := stridedHeader(l)
	if err != nil {
		return unaryParams{}, err
	}
	numel, err := toU32("element count", l.NumElements())
	if err != nil {
		return unaryParams{}, err
	}
	return unaryParams{Numel: numel, Ndim: ndim, Offset: offset, Alpha: float32(alpha), Shape: shape, Stride: stride}, nil
}

// planBinary lays both operands over a common shape, broadcasting with zero
// strides where the shapes differ.
func planBinary(op string, lhs, rhs tensor.Layout) (binaryParams, tensor.Shape, error) {
	shape := lhs.Shape()
	if !lhs.Shape().Equal(rhs.Shape()) {
		bshape, _, err := tensor.BroadcastShapes(lhs.Shape(), rhs.Shape())
		if err != nil {
			return binaryParams{}, nil, errors.WithStack(&ShapeMismatchError{Op: op, Lhs: lhs.Shape(), Rhs: rhs.Shape()})
		}
		if lhs, err = lhs.BroadcastAs(bshape); err != nil {
			return binaryParams{}, nil, err
		}
		if rhs, err = rhs.BroadcastAs(bshape); err != nil {
			return binaryParams{}, nil, err
		}
		shape = bshape
	}

	ndim, lOff, dims, lStride, err := stridedHeader(lhs)
	if err != nil {
		return binaryParams{}, nil, err
	}
	_, rOff, _, rStride, err := stridedHeader(rhs)
	if err != nil {
		return binaryParams{}, nil, err
	}
	numel, err := toU32("element count", shape.NumElements())
	if err != nil {
		return binaryParams{}, nil, err
	}
	return binaryParams{
		Numel: numel, Ndim: ndim, LhsOffset: lOff, RhsOffset: rOff,
		Shape: dims, LhsStride: lStride, RhsStride: rStride,
	}, shape.Clone(), nil
}

// planReduce reduces l over dims, keeping them as extent-1 dimensions.
func planReduce(l tensor.Layout, dims []int) (reduceParams, tensor.Shape, error) {
	shape := l.Shape()
	out := shape.Clone()
	var mask uint32
	reduceNumel := 1
	for _, d := range dims {
		if d < 0 || d >= len(shape) {
			return reduceParams{}, nil, errors.Errorf("reduce dim %d out of range for rank %d", d, len(shape))
		}
		if mask&(1<<d) != 0 {
			return reduceParams{}, nil, errors.Errorf("reduce dim %d listed twice", d)
		}
		mask |= 1 << d
		reduceNumel *= shape[d]
		out[d] = 1
	}
	if reduceNumel == 0 {
		return reduceParams{}, nil, errors.Errorf("cannot reduce over an empty dimension of %v", shape)
	}

	ndim, offset, dims8, stride, err := stridedHeader(l)
	if err != nil {
		return reduceParams{}, nil, err
	}
	numelOut, err := toU32("element count", out.NumElements())
	if err != nil {
		return reduceParams{}, nil, err
	}
	rn, err := toU32("reduced element count", reduceNumel)
	if err != nil {
		return reduceParams{}, nil, err
	}
	return reduceParams{
		NumelOut: numelOut, Ndim: ndim, Offset: offset, ReduceNumel: rn, ReduceMask: mask,
		Shape: dims8, Stride: stride,
	}, out, nil
}

func planConv2D(p tensor.ParamsConv2D, inOffset, kOffset int) (convParams, error) {
	if p.Stride <= 0 || p.Dilation <= 0 {
		return convParams{}, errors.Errorf("conv2d: stride %d and dilation %d must be positive", p.Stride, p.Dilation)
	}
	if p.OutH() <= 0 || p.OutW() <= 0 {
		return convParams{}, errors.Errorf("conv2d: kernel %dx%d does not fit input %dx%d", p.KH, p.KW, p.IH, p.IW)
	}
	vals := []int{p.BSize, p.CIn, p.IH, p.IW, p.COut, p.KH, p.KW, p.OutH(), p.OutW(), p.Stride, p.Padding, p.Padding, p.Dilation, inOffset, kOffset}
	var u [15]uint32
	for i, v := range vals {
		x, err := toU32("conv2d parameter", v)
		if err != nil {
			return convParams{}, err
		}
		u[i] = x
	}
	return convParams{
		BSize: u[0], CIn: u[1], IH: u[2], IW: u[3], COut: u[4], KH: u[5], KW: u[6], OH: u[7], OW: u[8],
		Stride: u[9], PadH: u[10], PadW: u[11], Dilation: u[12], InOffset: u[13], KOffset: u[14],
	}, nil
}

// planConv1D maps a 1D convolution onto the 2D kernel with unit height.
func planConv1D(p tensor.ParamsConv1D, inOffset, kOffset int) (convParams, error) {
	c, err := planConv2D(tensor.ParamsConv2D{
		BSize: p.BSize, IH: 1, IW: p.LIn, KH: 1, KW: p.KSize,
		COut: p.COut, CIn: p.CIn, Padding: p.Padding, Stride: p.Stride, Dilation: p.Dilation,
	}, inOffset, kOffset)
	if err != nil {
		return convParams{}, errors.Wrap(err, "conv1d")
	}
	c.PadH = 0
	c.OH = 1
	return c, nil
}

// planPool2D plans pooling over a contiguous NCHW layout.
func planPool2D(l tensor.Layout, kernel, stride [2]int) (poolParams, tensor.Shape, error) {
	n, c, h, w, err := l.Shape().Dims4()
	if err != nil {
		return poolParams{}, nil, err
	}
	if kernel[0] <= 0 || kernel[1] <= 0 || stride[0] <= 0 || stride[1] <= 0 {
		return poolParams{}, nil, errors.Errorf("pool: kernel %v and stride %v must be positive", kernel, stride)
	}
	if kernel[0] > h || kernel[1] > w {
		return poolParams{}, nil, errors.Errorf("pool: kernel %v larger than input %dx%d", kernel, h, w)
	}
	oh := (h-kernel[0])/stride[0] + 1
	ow := (w-kernel[1])/stride[1] + 1
	out := tensor.Shape{n, c, oh, ow}

	vals := []int{out.NumElements(), h, w, oh, ow, kernel[0], kernel[1], stride[0], stride[1], l.StartOffset()}
	var u [10]uint32
	for i, v := range vals {
		x, err := toU32("pool parameter", v)
		if err != nil {
			return poolParams{}, nil, err
		}
		u[i] = x
	}
	return poolParams{
		Numel: u[0], IH: u[1], IW: u[2], OH: u[3], OW: u[4], KH: u[5], KW: u[6], SH: u[7], SW: u[8], Offset: u[9],
	}, out, nil
}

// planUpsample plans nearest upsampling of a contiguous (N, C, H, W) layout.
func planUpsample(l tensor.Layout, outH, outW int) (upsampleParams, tensor.Shape, error) {
	n, c, h, w, err := l.Shape().Dims4()
	if err != nil {
		return upsampleParams{}, nil, err
	}
	if outH <= 0 || outW <= 0 {
		return upsampleParams{}, nil, errors.Errorf("upsample: target %dx%d must be positive", outH, outW)
	}
	out := tensor.Shape{n, c, outH, outW}
	vals := []int{out.NumElements(), h, w, outH, outW, l.StartOffset()}
	var u [6]uint32
	for i, v := range vals {
		x, err := toU32("upsample parameter", v)
		if err != nil {
			return upsampleParams{}, nil, err
		}
		u[i] = x
	}
	return upsampleParams{Numel: u[0], IH: u[1], IW: u[2], OH: u[3], OW: u[4], Offset: u[5]}, out, nil
}

// batchStride returns the single stride that walks the collapsed batch
// dimensions (all but the last two) of l.
func batchStride(l tensor.Layout) (int, bool) {
	shape, stride := l.Shape(), l.Stride()
	bs, expected := 0, -1
	for i := len(shape) - 3; i >= 0; i-- {
		if shape[i] == 1 {
			continue
		}
		if expected == -1 {
			bs = stride[i]
		} else if stride[i] != expected {
			return 0, false
		}
		expected = stride[i] * shape[i]
	}
	return bs, true
}

func planMatMul(b, m, n, k int, lhs, rhs tensor.Layout) (matmulParams, error) {
	check := func(name string, l tensor.Layout, rows, cols int) error {
		r := l.Rank()
		if r < 2 {
			return errors.Errorf("matmul: %s must have rank >= 2, got %v", name, l.Shape())
		}
		s := l.Shape()
		batch := s[:r-2].NumElements()
		if s[r-2] != rows || s[r-1] != cols || batch != b {
			return errors.Errorf("matmul: %s shape %v does not match (b=%d, %d, %d)", name, s, b, rows, cols)
		}
		return nil
	}
	if err := check("lhs", lhs, m, k); err != nil {
		return matmulParams{}, err
	}
	if err := check("rhs", rhs, k, n); err != nil {
		return matmulParams{}, err
	}
	lbs, ok := batchStride(lhs)
	if !ok {
		return matmulParams{}, unsupported("matmul", tensor.Float32, "lhs batch dims of %v with stride %v do not collapse", lhs.Shape(), lhs.Stride())
	}
	rbs, ok := batchStride(rhs)
	if !ok {
		return matmulParams{}, unsupported("matmul", tensor.Float32, "rhs batch dims of %v with stride %v do not collapse", rhs.Shape(), rhs.Stride())
	}

	ls, rs := lhs.Stride(), rhs.Stride()
	lr, rr := lhs.Rank(), rhs.Rank()
	vals := []int{
		b, m, n, k, lhs.StartOffset(), rhs.StartOffset(), lbs, rbs,
		ls[lr-2], ls[lr-1], rs[rr-2], rs[rr-1],
	}
	var u [12]uint32
	for i, v := range vals {
		x, err := toU32("matmul parameter", v)
		if err != nil {
			return matmulParams{}, err
		}
		u[i] = x
	}
	return matmulParams{
		B: u[0], M: u[1], N: u[2], K: u[3],
		LhsOffset: u[4], RhsOffset: u[5], LhsBatchStride: u[6], RhsBatchStride: u[7],
		LhsRowStride: u[8], LhsColStride: u[9], RhsRowStride: u[10], RhsColStride: u[11],
	}, nil
}

// planIndexSelect selects along dim of a contiguous source using a
// contiguous rank-1 ids layout.
func planIndexSelect(src, ids tensor.Layout, dim int) (indexSelectParams, tensor.Shape, error) {
	shape := src.Shape()
	if dim < 0 || dim >= len(shape) {
		return indexSelectParams{}, nil, errors.Errorf("index_select: dim %d out of range for %v", dim, shape)
	}
	if ids.Rank() != 1 {
		return indexSelectParams{}, nil, errors.Errorf("index_select: ids must be rank 1, got %v", ids.Shape())
	}
	idsSize := ids.Shape()[0]
	out := shape.Clone()
	out[dim] = idsSize
	right := shape[dim+1:].NumElements()

	vals := []int{out.NumElements(), right, shape[dim], idsSize, src.StartOffset(), ids.StartOffset()}
	var u [6]uint32
	for i, v := range vals {
		x, err := toU32("index_select parameter", v)
		if err != nil {
			return indexSelectParams{}, nil, err
		}
		u[i] = x
	}
	return indexSelectParams{
		Numel: u[0], RightSize: u[1], SrcDimSize: u[2], IdsSize: u[3], SrcOffset: u[4], IdsOffset: u[5],
	}, out, nil
}

// planRepeat tiles src reps[i] times along dimension i.
func planRepeat(src tensor.Layout, reps []int) (repeatParams, tensor.Shape, error) {
	shape := src.Shape()
	if len(reps) != len(shape) {
		return repeatParams{}, nil, errors.Errorf("repeat: %d repetitions for rank %d", len(reps), len(shape))
	}
	out := make(tensor.Shape, len(shape))
	for i, r := range reps {
		if r < 1 {
			return repeatParams{}, nil, errors.Errorf("repeat: repetition %d at dim %d must be >= 1", r, i)
		}
		out[i] = shape[i] * r
	}
	ndim, offset, srcShape, srcStride, err := stridedHeader(src)
	if err != nil {
		return repeatParams{}, nil, err
	}
	outShape, err := toDims8(out)
	if err != nil {
		return repeatParams{}, nil, err
	}
	numel, err := toU32("element count", out.NumElements())
	if err != nil {
		return repeatParams{}, nil, err
	}
	return repeatParams{
		Numel: numel, Ndim: ndim, SrcOffset: offset,
		OutShape: outShape, SrcShape: srcShape, SrcStride: srcStride,
	}, out, nil
}

// planCopySparse spreads numel words in rows of batch into rows of outStride.
// It returns the destination length in words.
func planCopySparse(numel, batch, outStride int) (copySparseParams, int, error) {
	if batch <= 0 || numel%batch != 0 {
		return copySparseParams{}, 0, errors.Errorf("copy_sparse: %d elements are not a whole number of %d-element rows", numel, batch)
	}
	if outStride < batch {
		return copySparseParams{}, 0, errors.Errorf("copy_sparse: output stride %d smaller than row %d", outStride, batch)
	}
	outLen := numel / batch * outStride
	vals := []int{numel, batch, outStride, outLen}
	for _, v := range vals {
		if _, err := toU32("copy_sparse parameter", v); err != nil {
			return copySparseParams{}, 0, err
		}
	}
	return copySparseParams{Numel: uint32(numel), BatchSize: uint32(batch), OutStride: uint32(outStride)}, outLen, nil
}

// planConvert widens a contiguous source starting at its start offset.
func planConvert(l tensor.Layout) (convertParams, error) {
	numel, err := toU32("element count", l.NumElements())
	if err != nil {
		return convertParams{}, err
	}
	offset, err := toU32("offset", l.StartOffset())
	if err != nil {
		return convertParams{}, err
	}
	return convertParams{Numel: numel, Offset: offset}, nil
}
