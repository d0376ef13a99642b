package webgpu

import (
	"context"
	"sync"

	"github.com/born-ml/born-wgpu/internal/config"
	"github.com/born-ml/born-wgpu/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Device is the tensor-facing handle of a GPU session. Devices opened on
// the same ordinal share one Context and BufferStore.
type Device struct {
	shared   *sharedContext
	ordinal  int
	dispatch *Dispatcher

	seedMu sync.Mutex
	seed   uint64

	releaseOnce sync.Once
}

var (
	_ tensor.BackendDevice[*Storage, *Device]  = (*Device)(nil)
	_ tensor.BackendStorage[*Storage, *Device] = (*Storage)(nil)
)

// New opens a device on ordinal. A nil cfg uses config.LoadDefaults.
//
// Devices on one ordinal share a session, and the session keeps the
// configuration it was opened with: cfg only takes effect when no other
// Device holds the ordinal.
func New(ordinal int, cfg *config.Config) (*Device, error) {
	sc, err := acquireContext(ordinal, cfg)
	if err != nil {
		return nil, err
	}
	d := &Device{
		shared:   sc,
		ordinal:  ordinal,
		dispatch: NewDispatcher(sc.ctx, sc.store),
		seed:     defaultSeed,
	}
	klog.V(1).Infof("webgpu: opened device %s on context %s", d.Location(), sc.ctx.ID())
	return d, nil
}

// Release drops this device's reference on the shared context. The last
// release frees every buffer and the context itself.
func (d *Device) Release() {
	d.releaseOnce.Do(func() {
		releaseContext(d.ordinal)
	})
}

// Context returns the shared GPU session.
func (d *Device) Context() *Context { return d.shared.ctx }

// Store returns the shared buffer store.
func (d *Device) Store() *BufferStore { return d.shared.store }

// Stats returns the buffer store counters.
func (d *Device) Stats() BufferStats { return d.shared.store.Stats() }

// Location implements tensor.BackendDevice.
func (d *Device) Location() tensor.DeviceLocation {
	return tensor.DeviceLocation{Device: tensor.WebGPU, Ordinal: d.ordinal}
}

// SameDevice reports whether both devices drive the same GPU session.
func (d *Device) SameDevice(other *Device) bool {
	return other != nil && d.shared.ctx.ID() == other.shared.ctx.ID()
}

// opContext is used for device waits issued by tensor operations, which
// carry no context of their own. The configured timeouts still bound them.
func (d *Device) opContext() context.Context {
	return context.Background()
}

func byteLen(dtype tensor.DataType, numel int) uint64 {
	return uint64(numel) * uint64(dtype.Size())
}

func wordLen(dtype tensor.DataType, numel int) int {
	return (numel*dtype.Size() + 3) / 4
}

// alloc creates an uninitialized storage of numel elements.
func (d *Device) alloc(dtype tensor.DataType, numel int) (*Storage, error) {
	h, err := d.shared.store.Allocate(byteLen(dtype, numel))
	if err != nil {
		return nil, err
	}
	return &Storage{buf: h, device: d, dtype: dtype, numel: numel}, nil
}

// launch allocates the output, runs entry over work items and frees the
// output again if the dispatch fails.
func (d *Device) launch(entry Entry, dtype tensor.DataType, numel int, params any, work int, inputs ...*Storage) (*Storage, error) {
	out, err := d.alloc(dtype, numel)
	if err != nil {
		return nil, err
	}
	if err := d.runInto(entry, out, params, work, inputs...); err != nil {
		_ = out.Release()
		return nil, err
	}
	return out, nil
}

// runInto dispatches entry writing into an existing storage.
func (d *Device) runInto(entry Entry, out *Storage, params any, work int, inputs ...*Storage) error {
	w, err := toU32("work items", work)
	if err != nil {
		return err
	}
	handles := make([]Handle, len(inputs))
	for i, in := range inputs {
		if in.device != nil && !d.SameDevice(in.device) {
			return errors.WithStack(ErrDeviceMismatch)
		}
		handles[i] = in.buf
	}
	return d.dispatch.Run(d.opContext(), entry, handles, out.buf, params, w)
}

// Zeros implements tensor.BackendDevice. Any dtype is served by clearing
// whole words.
func (d *Device) Zeros(shape tensor.Shape, dtype tensor.DataType) (*Storage, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if err := checkDType("zeros", dtype); err != nil {
		return nil, err
	}
	numel := shape.NumElements()
	words := wordLen(dtype, numel)
	n, err := toU32("word count", words)
	if err != nil {
		return nil, err
	}
	return d.launch(EntryZeroesU32, dtype, numel, fillParams{Numel: n}, words)
}

// Ones implements tensor.BackendDevice.
func (d *Device) Ones(shape tensor.Shape, dtype tensor.DataType) (*Storage, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if err := checkDType("ones", dtype); err != nil {
		return nil, err
	}
	numel := shape.NumElements()
	n, err := toU32("element count", numel)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case tensor.Uint8:
		return d.launch(EntryOnesU8, dtype, numel, fillParams{Numel: n}, wordLen(dtype, numel))
	case tensor.Uint32:
		return d.launch(EntryOnesU32, dtype, numel, fillParams{Numel: n}, numel)
	default:
		return d.launch(EntryOnes, dtype, numel, fillParams{Numel: n}, numel)
	}
}

// StorageFromHost uploads host data.
func (d *Device) StorageFromHost(host tensor.HostStorage) (*Storage, error) {
	if err := checkDType("from_host", host.DType()); err != nil {
		return nil, err
	}
	h, err := d.shared.store.AllocateWithData(d.opContext(), host.Bytes())
	if err != nil {
		return nil, err
	}
	return &Storage{buf: h, device: d, dtype: host.DType(), numel: host.Len()}, nil
}

// defaultSeed seeds the generator until SetSeed is called.
const defaultSeed uint64 = 299792458

// nextSeed returns the seed for one random fill and advances the stream so
// consecutive fills differ.
func (d *Device) nextSeed() uint32 {
	d.seedMu.Lock()
	defer d.seedMu.Unlock()
	s := d.seed
	d.seed = s*6364136223846793005 + 1442695040888963407
	return uint32(s ^ s>>32)
}

// SetSeed restarts the random stream.
func (d *Device) SetSeed(seed uint64) error {
	d.seedMu.Lock()
	d.seed = seed
	d.seedMu.Unlock()
	return nil
}

func (d *Device) random(op string, entry Entry, shape tensor.Shape, dtype tensor.DataType, a, b float64) (*Storage, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if err := checkDType(op, dtype); err != nil {
		return nil, err
	}
	numel := shape.NumElements()
	n, err := toU32("element count", numel)
	if err != nil {
		return nil, err
	}
	p := randomParams{Numel: n, Seed: d.nextSeed(), A: float32(a), B: float32(b)}
	return d.launch(entry, dtype, numel, p, numel)
}

// RandUniform fills with values drawn uniformly from [lo, hi).
func (d *Device) RandUniform(shape tensor.Shape, dtype tensor.DataType, lo, hi float64) (*Storage, error) {
	return d.random("rand_uniform", EntryRandUniform, shape, dtype, lo, hi)
}

// RandNormal fills with normally distributed values.
func (d *Device) RandNormal(shape tensor.Shape, dtype tensor.DataType, mean, std float64) (*Storage, error) {
	return d.random("rand_normal", EntryRandNormal, shape, dtype, mean, std)
}

// CopySparse spreads rows of batch elements from src into rows of outStride
// elements, zero-filling the gaps.
func (d *Device) CopySparse(src *Storage, batch, outStride int) (*Storage, error) {
	if err := checkDType("copy_sparse", src.dtype); err != nil {
		return nil, err
	}
	p, outLen, err := planCopySparse(src.numel, batch, outStride)
	if err != nil {
		return nil, err
	}
	out, err := d.Zeros(tensor.Shape{outLen}, src.dtype)
	if err != nil {
		return nil, err
	}
	if err := d.runInto(EntryCopySparse, out, p, src.numel, src); err != nil {
		_ = out.Release()
		return nil, err
	}
	return out, nil
}
