package webgpu

import (
	"github.com/born-ml/born-wgpu/internal/tensor"
	"github.com/pkg/errors"
)

// Conv1D convolves a (b, cIn, l) input with a (cOut, cIn, k) kernel.
func (s *Storage) Conv1D(l tensor.Layout, kernel *Storage, kl tensor.Layout, p tensor.ParamsConv1D) (*Storage, error) {
	if err := s.checkPair("conv1d", l, kernel, kl); err != nil {
		return nil, err
	}
	if !l.Shape().Equal(tensor.Shape{p.BSize, p.CIn, p.LIn}) {
		return nil, errors.Errorf("conv1d: input shape %v does not match %+v", l.Shape(), p)
	}
	if !kl.Shape().Equal(tensor.Shape{p.COut, p.CIn, p.KSize}) {
		return nil, errors.Errorf("conv1d: kernel shape %v does not match %+v", kl.Shape(), p)
	}
	return s.conv("conv1d", l, kernel, kl, p.OutDims(), func(in, k int) (convParams, error) {
		return planConv1D(p, in, k)
	})
}

// Conv2D convolves an NCHW input with a (cOut, cIn, kH, kW) kernel.
func (s *Storage) Conv2D(l tensor.Layout, kernel *Storage, kl tensor.Layout, p tensor.ParamsConv2D) (*Storage, error) {
	if err := s.checkPair("conv2d", l, kernel, kl); err != nil {
		return nil, err
	}
	if !l.Shape().Equal(tensor.Shape{p.BSize, p.CIn, p.IH, p.IW}) {
		return nil, errors.Errorf("conv2d: input shape %v does not match %+v", l.Shape(), p)
	}
	if !kl.Shape().Equal(tensor.Shape{p.COut, p.CIn, p.KH, p.KW}) {
		return nil, errors.Errorf("conv2d: kernel shape %v does not match %+v", kl.Shape(), p)
	}
	return s.conv("conv2d", l, kernel, kl, p.OutDims(), func(in, k int) (convParams, error) {
		return planConv2D(p, in, k)
	})
}

func (s *Storage) conv(op string, l tensor.Layout, kernel *Storage, kl tensor.Layout, out tensor.Shape,
	plan func(inOffset, kOffset int) (convParams, error),
) (*Storage, error) {
	src, cl, doneSrc, err := s.contiguous(op, l)
	if err != nil {
		return nil, err
	}
	defer doneSrc()
	k, ckl, doneK, err := kernel.contiguous(op, kl)
	if err != nil {
		return nil, err
	}
	defer doneK()

	cp, err := plan(cl.StartOffset(), ckl.StartOffset())
	if err != nil {
		return nil, err
	}
	return s.device.launch(EntryConv2D, s.dtype, out.NumElements(), cp, out.NumElements(), src, k)
}

// ConvTranspose1D has no kernel.
func (s *Storage) ConvTranspose1D(_ tensor.Layout, _ *Storage, _ tensor.Layout, _ tensor.ParamsConvTranspose1D) (*Storage, error) {
	return nil, unsupported("conv_transpose1d", s.dtype, "")
}

// ConvTranspose2D has no kernel.
func (s *Storage) ConvTranspose2D(_ tensor.Layout, _ *Storage, _ tensor.Layout, _ tensor.ParamsConvTranspose2D) (*Storage, error) {
	return nil, unsupported("conv_transpose2d", s.dtype, "")
}

// AvgPool2D averages each kernel window of an NCHW input.
func (s *Storage) AvgPool2D(l tensor.Layout, kernel, stride [2]int) (*Storage, error) {
	return s.pool("avg_pool2d", EntryAvgPool2D, l, kernel, stride)
}

// MaxPool2D takes the maximum of each kernel window of an NCHW input.
func (s *Storage) MaxPool2D(l tensor.Layout, kernel, stride [2]int) (*Storage, error) {
	return s.pool("max_pool2d", EntryMaxPool2D, l, kernel, stride)
}

func (s *Storage) pool(op string, entry Entry, l tensor.Layout, kernel, stride [2]int) (*Storage, error) {
	if err := checkDType(op, s.dtype); err != nil {
		return nil, err
	}
	if err := s.checkSpan(op, l); err != nil {
		return nil, err
	}
	src, cl, done, err := s.contiguous(op, l)
	if err != nil {
		return nil, err
	}
	defer done()

	p, out, err := planPool2D(cl, kernel, stride)
	if err != nil {
		return nil, err
	}
	return s.device.launch(entry, s.dtype, out.NumElements(), p, out.NumElements(), src)
}

// UpsampleNearest1D resizes the last dimension of a (b, c, l) input.
func (s *Storage) UpsampleNearest1D(l tensor.Layout, size int) (*Storage, error) {
	if err := checkDType("upsample_nearest", s.dtype); err != nil {
		return nil, err
	}
	if err := s.checkSpan("upsample_nearest", l); err != nil {
		return nil, err
	}
	b, c, n, err := l.Shape().Dims3()
	if err != nil {
		return nil, err
	}
	src, cl, done, err := s.contiguous("upsample_nearest", l)
	if err != nil {
		return nil, err
	}
	defer done()

	planes := tensor.ContiguousWithOffset(tensor.Shape{b, c, 1, n}, cl.StartOffset())
	p, out, err := planUpsample(planes, 1, size)
	if err != nil {
		return nil, err
	}
	return s.device.launch(EntryUpsample, s.dtype, out.NumElements(), p, out.NumElements(), src)
}

// UpsampleNearest2D resizes the spatial dimensions of an NCHW input.
func (s *Storage) UpsampleNearest2D(l tensor.Layout, outH, outW int) (*Storage, error) {
	if err := checkDType("upsample_nearest", s.dtype); err != nil {
		return nil, err
	}
	if err := s.checkSpan("upsample_nearest", l); err != nil {
		return nil, err
	}
	src, cl, done, err := s.contiguous("upsample_nearest", l)
	if err != nil {
		return nil, err
	}
	defer done()

	p, out, err := planUpsample(cl, outH, outW)
	if err != nil {
		return nil, err
	}
	return s.device.launch(EntryUpsample, s.dtype, out.NumElements(), p, out.NumElements(), src)
}

// Gather has no kernel.
func (s *Storage) Gather(_ tensor.Layout, _ *Storage, _ tensor.Layout, _ int) (*Storage, error) {
	return nil, unsupported("gather", s.dtype, "")
}

// ScatterAdd has no kernel.
func (s *Storage) ScatterAdd(_ tensor.Layout, _ *Storage, _ tensor.Layout, _ *Storage, _ tensor.Layout, _ int) (*Storage, error) {
	return nil, unsupported("scatter_add", s.dtype, "")
}

// IndexAdd has no kernel.
func (s *Storage) IndexAdd(_ tensor.Layout, _ *Storage, _ tensor.Layout, _ *Storage, _ tensor.Layout, _ int) (*Storage, error) {
	return nil, unsupported("index_add", s.dtype, "")
}

// IndexSelect picks slices of s along dim using u32 ids. Ids past the end
// of the dimension select zeros.
func (s *Storage) IndexSelect(ids *Storage, l, idsLayout tensor.Layout, dim int) (*Storage, error) {
	if err := checkDType("index_select", s.dtype); err != nil {
		return nil, err
	}
	if err := checkDType("index_select_ids", ids.dtype); err != nil {
		return nil, err
	}
	if err := s.sameDevice("index_select", ids); err != nil {
		return nil, err
	}
	if err := s.checkSpan("index_select", l); err != nil {
		return nil, err
	}
	if err := ids.checkSpan("index_select", idsLayout); err != nil {
		return nil, err
	}
	src, cl, doneSrc, err := s.contiguous("index_select", l)
	if err != nil {
		return nil, err
	}
	defer doneSrc()
	idx, cil, doneIdx, err := ids.contiguous("index_select", idsLayout)
	if err != nil {
		return nil, err
	}
	defer doneIdx()

	p, out, err := planIndexSelect(cl, cil, dim)
	if err != nil {
		return nil, err
	}
	return s.device.launch(EntryIndexSelect, s.dtype, out.NumElements(), p, out.NumElements(), src, idx)
}

// MatMul multiplies (b, m, k) by (b, k, n). Operands whose batch
// dimensions cannot be walked with one stride are compacted first.
func (s *Storage) MatMul(rhs *Storage, b, m, n, k int, lhsLayout, rhsLayout tensor.Layout) (*Storage, error) {
	if err := s.checkPair("matmul", lhsLayout, rhs, rhsLayout); err != nil {
		return nil, err
	}

	lhs := s
	p, err := planMatMul(b, m, n, k, lhsLayout, rhsLayout)
	if errors.Is(err, ErrUnsupported) {
		var doneL, doneR func()
		lhs, lhsLayout, doneL, err = s.contiguous("matmul", lhsLayout)
		if err != nil {
			return nil, err
		}
		defer doneL()
		rhs, rhsLayout, doneR, err = rhs.contiguous("matmul", rhsLayout)
		if err != nil {
			return nil, err
		}
		defer doneR()
		p, err = planMatMul(b, m, n, k, lhsLayout, rhsLayout)
	}
	if err != nil {
		return nil, err
	}
	return s.device.launch(EntryMatMul, s.dtype, b*m*n, p, b*m*n, lhs, rhs)
}
