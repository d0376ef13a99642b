package webgpu

import (
	"context"
	"unsafe"

	"github.com/born-ml/born-wgpu/internal/config"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// maxDispatchInputs is the largest number of read-only storage bindings a
// kernel takes.
const maxDispatchInputs = 2

// Dispatcher launches catalog entries against BufferStore handles.
type Dispatcher struct {
	ctx   *Context
	store *BufferStore
}

// NewDispatcher binds a dispatcher to a context and its buffer store.
func NewDispatcher(c *Context, s *BufferStore) *Dispatcher {
	return &Dispatcher{ctx: c, store: s}
}

// workgroupCount picks the 1D grid for work items. Kernels loop with a grid
// stride, so any positive count covers all of them.
func workgroupCount(cfg config.DispatchConfig, work uint32) uint32 {
	var n uint32
	switch cfg.GridPolicy {
	case config.GridFixed:
		n = cfg.FixedWorkgroups
	default:
		n = uint32((uint64(work) + workgroupSize - 1) / workgroupSize)
	}
	if n == 0 {
		n = 1
	}
	if cfg.MaxWorkgroups > 0 && n > cfg.MaxWorkgroups {
		n = cfg.MaxWorkgroups
	}
	return n
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (d *Dispatcher) createUniformBuffer(data []byte) (*wgpu.Buffer, uint64) {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15 // Round up to 16-byte boundary
	if alignedSize == 0 {
		alignedSize = 16
	}

	buffer := d.ctx.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	n := copy(mappedSlice, data)
	clear(mappedSlice[n:])
	buffer.Unmap()

	return buffer, alignedSize
}

// Run executes entry once. Binding 0 is the parameter block, bindings 1..N
// the inputs in order and the last binding the output. work is the number of
// items the kernel iterates over; zero work records nothing.
//
// When dispatch is synchronous (the default), Run returns after the
// submission has retired.
func (d *Dispatcher) Run(ctx context.Context, entry Entry, inputs []Handle, output Handle, params any, work uint32) error {
	if len(inputs) > maxDispatchInputs {
		return errors.WithStack(&InternalError{
			Op:  "dispatch " + entry.String(),
			Err: errors.Errorf("%d inputs exceed the maximum of %d", len(inputs), maxDispatchInputs),
		})
	}

	bufs := make([]*deviceBuffer, 0, len(inputs)+1)
	for _, h := range inputs {
		b, err := d.store.lookup(h)
		if err != nil {
			return err
		}
		bufs = append(bufs, b)
	}
	out, err := d.store.lookup(output)
	if err != nil {
		return err
	}
	bufs = append(bufs, out)

	if work == 0 {
		return nil
	}

	pipeline, layout, err := d.ctx.catalog.Pipeline(entry)
	if err != nil {
		return err
	}

	data, err := encodeParams(params)
	if err != nil {
		return err
	}
	uniform, uniformSize := d.createUniformBuffer(data)
	defer uniform.Release()

	entries := make([]wgpu.BindGroupEntry, 0, len(bufs)+1)
	entries = append(entries, wgpu.BufferBindingEntry(0, uniform, 0, uniformSize))
	for i, b := range bufs {
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i+1), b.buf, 0, b.physical))
	}
	bindGroup := d.ctx.device.CreateBindGroupSimple(layout, entries)
	defer bindGroup.Release()

	groups := workgroupCount(d.ctx.cfg.Dispatch, work)

	encoder := d.ctx.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(groups, 1, 1)
	computePass.End()
	d.ctx.submit(encoder.Finish(nil))

	klog.V(2).Infof("webgpu: dispatched %s work=%d workgroups=%d", entry, work, groups)

	if d.ctx.cfg.Dispatch.Synchronous {
		return d.ctx.waitIdle(ctx)
	}
	return nil
}
