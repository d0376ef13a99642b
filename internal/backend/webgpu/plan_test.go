package webgpu

import (
	"errors"
	"testing"

	"github.com/born-ml/born-wgpu/internal/config"
	"github.com/born-ml/born-wgpu/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkgroupCount(t *testing.T) {
	cover := config.DispatchConfig{GridPolicy: config.GridCover, MaxWorkgroups: 65535}
	fixed := config.DispatchConfig{GridPolicy: config.GridFixed, FixedWorkgroups: 8, MaxWorkgroups: 65535}

	tests := []struct {
		name string
		cfg  config.DispatchConfig
		work uint32
		want uint32
	}{
		{"cover empty", cover, 0, 1},
		{"cover one group", cover, 64, 1},
		{"cover spill", cover, 65, 2},
		{"cover clamped", cover, 64 * 70000, 65535},
		{"fixed small", fixed, 3, 8},
		{"fixed large", fixed, 1 << 20, 8},
		{"fixed zero", config.DispatchConfig{GridPolicy: config.GridFixed}, 100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, workgroupCount(tt.cfg, tt.work))
		})
	}
}

func TestPlanCopyTransposed(t *testing.T) {
	l, err := tensor.Contiguous(tensor.Shape{2, 3}).Transpose(0, 1)
	require.NoError(t, err)

	p, err := planCopy(l, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), p.Numel)
	assert.Equal(t, uint32(2), p.Ndim)
	assert.Equal(t, uint32(4), p.DstOffset)
	assert.Equal(t, dims8{3, 2}, p.Shape)
	assert.Equal(t, dims8{1, 3}, p.Stride)
}

func TestPlanBinaryBroadcast(t *testing.T) {
	p, shape, err := planBinary("add", tensor.Contiguous(tensor.Shape{2, 3}), tensor.Contiguous(tensor.Shape{3}))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, shape)
	assert.Equal(t, uint32(6), p.Numel)
	assert.Equal(t, dims8{2, 3}, p.Shape)
	assert.Equal(t, dims8{3, 1}, p.LhsStride)
	assert.Equal(t, dims8{0, 1}, p.RhsStride)

	_, _, err = planBinary("add", tensor.Contiguous(tensor.Shape{2, 3}), tensor.Contiguous(tensor.Shape{4}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestPlanReduce(t *testing.T) {
	l := tensor.Contiguous(tensor.Shape{2, 3, 4})

	p, out, err := planReduce(l, []int{1})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1, 4}, out)
	assert.Equal(t, uint32(8), p.NumelOut)
	assert.Equal(t, uint32(3), p.ReduceNumel)
	assert.Equal(t, uint32(0b010), p.ReduceMask)

	p, out, err = planReduce(l, []int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3, 1}, out)
	assert.Equal(t, uint32(3), p.NumelOut)
	assert.Equal(t, uint32(8), p.ReduceNumel)
	assert.Equal(t, uint32(0b101), p.ReduceMask)

	_, _, err = planReduce(l, []int{1, 1})
	assert.Error(t, err)
	_, _, err = planReduce(l, []int{3})
	assert.Error(t, err)
}

func TestPlanConv(t *testing.T) {
	p1, err := planConv1D(tensor.ParamsConv1D{
		BSize: 1, LIn: 5, COut: 2, CIn: 3, KSize: 3, Padding: 1, Stride: 1, Dilation: 1,
	}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), p1.IH)
	assert.Equal(t, uint32(1), p1.KH)
	assert.Equal(t, uint32(1), p1.OH)
	assert.Equal(t, uint32(5), p1.OW)
	assert.Equal(t, uint32(0), p1.PadH)
	assert.Equal(t, uint32(1), p1.PadW)

	p2, err := planConv2D(tensor.ParamsConv2D{
		BSize: 2, IH: 5, IW: 5, KH: 3, KW: 3, COut: 4, CIn: 1, Stride: 2, Dilation: 1,
	}, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), p2.OH)
	assert.Equal(t, uint32(2), p2.OW)
	assert.Equal(t, uint32(7), p2.InOffset)
	assert.Equal(t, uint32(3), p2.KOffset)

	_, err = planConv2D(tensor.ParamsConv2D{BSize: 1, IH: 5, IW: 5, KH: 3, KW: 3, COut: 1, CIn: 1, Dilation: 1}, 0, 0)
	assert.Error(t, err, "zero stride")
	_, err = planConv2D(tensor.ParamsConv2D{BSize: 1, IH: 2, IW: 2, KH: 5, KW: 5, COut: 1, CIn: 1, Stride: 1, Dilation: 1}, 0, 0)
	assert.Error(t, err, "kernel larger than input")
}

func TestPlanPoolAndUpsample(t *testing.T) {
	p, out, err := planPool2D(tensor.Contiguous(tensor.Shape{1, 2, 4, 4}), [2]int{2, 2}, [2]int{2, 2})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, out)
	assert.Equal(t, uint32(8), p.Numel)

	_, _, err = planPool2D(tensor.Contiguous(tensor.Shape{1, 1, 2, 2}), [2]int{3, 3}, [2]int{1, 1})
	assert.Error(t, err)

	u, out, err := planUpsample(tensor.ContiguousWithOffset(tensor.Shape{1, 1, 2, 2}, 4), 4, 4)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 4, 4}, out)
	assert.Equal(t, uint32(16), u.Numel)
	assert.Equal(t, uint32(4), u.Offset)
}

func TestPlanMatMul(t *testing.T) {
	p, err := planMatMul(2, 3, 5, 4, tensor.Contiguous(tensor.Shape{2, 3, 4}), tensor.Contiguous(tensor.Shape{2, 4, 5}))
	require.NoError(t, err)
	assert.Equal(t, uint32(12), p.LhsBatchStride)
	assert.Equal(t, uint32(20), p.RhsBatchStride)
	assert.Equal(t, uint32(4), p.LhsRowStride)
	assert.Equal(t, uint32(1), p.LhsColStride)
	assert.Equal(t, uint32(5), p.RhsRowStride)
	assert.Equal(t, uint32(1), p.RhsColStride)

	rhsT, err := tensor.Contiguous(tensor.Shape{5, 4}).Transpose(0, 1)
	require.NoError(t, err)
	p, err = planMatMul(1, 3, 5, 4, tensor.Contiguous(tensor.Shape{3, 4}), rhsT)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), p.RhsBatchStride)
	assert.Equal(t, uint32(1), p.RhsRowStride)
	assert.Equal(t, uint32(4), p.RhsColStride)

	swapped, err := tensor.Contiguous(tensor.Shape{2, 2, 3, 4}).Transpose(0, 1)
	require.NoError(t, err)
	_, err = planMatMul(4, 3, 5, 4, swapped, tensor.Contiguous(tensor.Shape{2, 2, 4, 5}))
	assert.True(t, errors.Is(err, ErrUnsupported), "got %v", err)

	_, err = planMatMul(1, 2, 5, 4, tensor.Contiguous(tensor.Shape{3, 4}), tensor.Contiguous(tensor.Shape{4, 5}))
	assert.Error(t, err)
}

func TestPlanIndexSelect(t *testing.T) {
	src := tensor.Contiguous(tensor.Shape{3, 4})
	ids := tensor.Contiguous(tensor.Shape{2})

	p, out, err := planIndexSelect(src, ids, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4}, out)
	assert.Equal(t, uint32(8), p.Numel)
	assert.Equal(t, uint32(4), p.RightSize)
	assert.Equal(t, uint32(3), p.SrcDimSize)
	assert.Equal(t, uint32(2), p.IdsSize)

	p, out, err = planIndexSelect(src, ids, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, out)
	assert.Equal(t, uint32(1), p.RightSize)
	assert.Equal(t, uint32(4), p.SrcDimSize)

	_, _, err = planIndexSelect(src, ids, 2)
	assert.Error(t, err)
	_, _, err = planIndexSelect(src, tensor.Contiguous(tensor.Shape{1, 2}), 0)
	assert.Error(t, err)
}

func TestPlanRepeatAndCopySparse(t *testing.T) {
	p, out, err := planRepeat(tensor.Contiguous(tensor.Shape{2, 3}), []int{2, 1})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 3}, out)
	assert.Equal(t, uint32(12), p.Numel)
	assert.Equal(t, dims8{4, 3}, p.OutShape)
	assert.Equal(t, dims8{2, 3}, p.SrcShape)

	_, _, err = planRepeat(tensor.Contiguous(tensor.Shape{2, 3}), []int{2})
	assert.Error(t, err)
	_, _, err = planRepeat(tensor.Contiguous(tensor.Shape{2, 3}), []int{0, 1})
	assert.Error(t, err)

	cs, outLen, err := planCopySparse(6, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, outLen)
	assert.Equal(t, uint32(3), cs.BatchSize)

	_, _, err = planCopySparse(7, 3, 5)
	assert.Error(t, err)
	_, _, err = planCopySparse(6, 3, 2)
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	assert.True(t, Supports("affine", tensor.Float32))
	assert.False(t, Supports("affine", tensor.Float16))
	assert.True(t, Supports("zeros", tensor.Int64))
	assert.False(t, Supports("gather", tensor.Float32))

	err := checkDType("no_such_op", tensor.Float32)
	var ue *UnsupportedOperationError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "no_such_op", ue.Op)

	table := Capabilities()
	for i := 1; i < len(table); i++ {
		assert.Less(t, table[i-1].Op, table[i].Op)
	}
}
