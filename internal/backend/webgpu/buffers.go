package webgpu

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// storageUsage lets every allocation be bound as a uniform or storage buffer
// and be the source or destination of a copy.
const storageUsage = wgpu.BufferUsageUniform | wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// deviceBuffer is one device-local storage buffer. size is what the caller
// asked for; physical is rounded up to the 4-byte granularity of copies.
type deviceBuffer struct {
	buf      *wgpu.Buffer
	size     uint64
	physical uint64
}

// BufferStats summarizes BufferStore activity.
type BufferStats struct {
	LiveBuffers    int
	LiveBytes      uint64
	PeakBytes      uint64
	TotalAllocated uint64
	Allocations    uint64
	Frees          uint64
}

func (s BufferStats) String() string {
	return fmt.Sprintf("%d live buffers (%s, peak %s), %d allocations / %d frees, %s allocated in total",
		s.LiveBuffers, humanize.IBytes(s.LiveBytes), humanize.IBytes(s.PeakBytes),
		s.Allocations, s.Frees, humanize.IBytes(s.TotalAllocated))
}

// BufferStore owns every device buffer of a Context and hands out Handles.
// The registry mutex is never held while waiting on the device.
type BufferStore struct {
	ctx *Context

	mu      sync.Mutex
	buffers arena[*deviceBuffer]
	stats   BufferStats
}

// NewBufferStore creates an empty store bound to c.
func NewBufferStore(c *Context) *BufferStore {
	return &BufferStore{ctx: c}
}

func physicalSize(n uint64) uint64 {
	if n < 4 {
		return 4
	}
	return (n + 3) &^ 3
}

func (s *BufferStore) register(b *deviceBuffer) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.buffers.insert(b)
	s.stats.Allocations++
	s.stats.TotalAllocated += b.physical
	s.stats.LiveBytes += b.physical
	s.stats.LiveBuffers = s.buffers.len()
	if s.stats.LiveBytes > s.stats.PeakBytes {
		s.stats.PeakBytes = s.stats.LiveBytes
	}
	return h
}

func (s *BufferStore) lookup(h Handle) (*deviceBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers.get(h)
	if !ok {
		return nil, errors.WithStack(&InvalidHandleError{Handle: h})
	}
	return b, nil
}

func (s *BufferStore) createDeviceBuffer(size uint64) (*deviceBuffer, error) {
	physical := physicalSize(size)
	buf := s.ctx.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: storageUsage,
		Size:  physical,
	})
	if buf == nil {
		return nil, errors.WithStack(&InternalError{Op: "allocate", Err: fmt.Errorf("device refused %d byte buffer", physical)})
	}
	return &deviceBuffer{buf: buf, size: size, physical: physical}, nil
}

// Allocate creates an uninitialized device buffer of size bytes.
func (s *BufferStore) Allocate(size uint64) (Handle, error) {
	b, err := s.createDeviceBuffer(size)
	if err != nil {
		return Handle{}, err
	}
	h := s.register(b)
	klog.V(2).Infof("webgpu: allocated %s (%d bytes)", h, size)
	return h, nil
}

// AllocateWithData uploads data through a host-visible staging buffer and
// returns once the copy has retired.
func (s *BufferStore) AllocateWithData(ctx context.Context, data []byte) (Handle, error) {
	b, err := s.createDeviceBuffer(uint64(len(data)))
	if err != nil {
		return Handle{}, err
	}

	staging := s.ctx.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             b.physical,
		MappedAtCreation: wgpu.True,
	})
	if staging == nil {
		b.buf.Release()
		return Handle{}, errors.WithStack(&InternalError{Op: "upload", Err: errors.New("staging buffer creation failed")})
	}
	mappedPtr := staging.GetMappedRange(0, b.physical)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), b.physical)
	n := copy(mapped, data)
	clear(mapped[n:])
	staging.Unmap()

	encoder := s.ctx.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, b.buf, 0, b.physical)
	s.ctx.submit(encoder.Finish(nil))

	if err := s.ctx.waitIdle(ctx); err != nil {
		// A timed-out copy may still reference both buffers.
		if !errors.Is(err, ErrTimeout) {
			staging.Release()
			b.buf.Release()
		}
		return Handle{}, errors.Wrap(err, "webgpu: upload")
	}
	staging.Release()

	return s.register(b), nil
}

// ReadBack copies the buffer's logical bytes to host memory.
func (s *BufferStore) ReadBack(ctx context.Context, h Handle) ([]byte, error) {
	b, err := s.lookup(h)
	if err != nil {
		return nil, err
	}

	// Create staging buffer for reading (MAP_READ | COPY_DST)
	staging := s.ctx.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  b.physical,
	})
	if staging == nil {
		return nil, errors.WithStack(&InternalError{Op: "read back", Err: errors.New("staging buffer creation failed")})
	}

	encoder := s.ctx.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(b.buf, 0, staging, 0, b.physical)
	s.ctx.submit(encoder.Finish(nil))

	err = awaitDevice(ctx, "buffer map", s.ctx.cfg.Timeouts.Map,
		func() error {
			return staging.MapAsync(s.ctx.device, wgpu.MapModeRead, 0, b.physical)
		},
		func(err error) {
			if err == nil {
				staging.Unmap()
			}
			staging.Release()
		},
	)
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		staging.Release()
		return nil, errors.WithStack(&BufferMapError{Size: b.physical, Err: err})
	}

	mappedPtr := staging.GetMappedRange(0, b.physical)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), b.physical)
	out := make([]byte, b.size)
	copy(out, mapped)
	staging.Unmap()
	staging.Release()

	return out, nil
}

// CopyRegion copies n bytes between two buffers. Offsets and length must be
// multiples of 4.
func (s *BufferStore) CopyRegion(ctx context.Context, src Handle, srcOffset uint64, dst Handle, dstOffset, n uint64) error {
	if srcOffset%4 != 0 || dstOffset%4 != 0 || n%4 != 0 {
		return errors.Errorf("webgpu: copy region (%d -> %d, %d bytes) is not 4-byte aligned", srcOffset, dstOffset, n)
	}
	sb, err := s.lookup(src)
	if err != nil {
		return err
	}
	db, err := s.lookup(dst)
	if err != nil {
		return err
	}
	if srcOffset+n > sb.physical || dstOffset+n > db.physical {
		return errors.Errorf("webgpu: copy region out of bounds (src %d+%d of %d, dst %d+%d of %d)",
			srcOffset, n, sb.physical, dstOffset, n, db.physical)
	}
	if n == 0 {
		return nil
	}

	encoder := s.ctx.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(sb.buf, srcOffset, db.buf, dstOffset, n)
	s.ctx.submit(encoder.Finish(nil))

	if s.ctx.cfg.Dispatch.Synchronous {
		return s.ctx.waitIdle(ctx)
	}
	return nil
}

// Copy duplicates a buffer on the device.
func (s *BufferStore) Copy(ctx context.Context, h Handle) (Handle, error) {
	size, err := s.Size(h)
	if err != nil {
		return Handle{}, err
	}
	out, err := s.Allocate(size)
	if err != nil {
		return Handle{}, err
	}
	if err := s.CopyRegion(ctx, h, 0, out, 0, physicalSize(size)); err != nil {
		_ = s.Free(out)
		return Handle{}, err
	}
	return out, nil
}

// Size returns the logical byte size of the buffer.
func (s *BufferStore) Size(h Handle) (uint64, error) {
	b, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	return b.size, nil
}

// Free releases the buffer. The handle and every copy of it become invalid.
func (s *BufferStore) Free(h Handle) error {
	s.mu.Lock()
	b, ok := s.buffers.remove(h)
	if ok {
		s.stats.Frees++
		s.stats.LiveBytes -= b.physical
		s.stats.LiveBuffers = s.buffers.len()
	}
	s.mu.Unlock()

	if !ok {
		return errors.WithStack(&InvalidHandleError{Handle: h})
	}
	b.buf.Release()
	klog.V(2).Infof("webgpu: freed %s", h)
	return nil
}

// Stats returns a snapshot of the store's counters.
func (s *BufferStore) Stats() BufferStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Release frees every live buffer.
func (s *BufferStore) Release() {
	s.mu.Lock()
	live := s.buffers.drain()
	s.stats.Frees += uint64(len(live))
	s.stats.LiveBytes = 0
	s.stats.LiveBuffers = 0
	s.mu.Unlock()

	for _, b := range live {
		b.buf.Release()
	}
	if len(live) > 0 {
		klog.V(1).Infof("webgpu: released %d outstanding buffers", len(live))
	}
}
