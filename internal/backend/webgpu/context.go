// Package webgpu implements a GPU compute backend on WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// The package is organized as a small pipeline:
//
//	Context     instance, adapter, device, queue and the kernel Catalog
//	BufferStore handle-addressed device buffers, upload and read-back
//	Dispatcher  parameter blocks, bind groups and compute passes
//	Device      tensor-level operations routed onto kernel entries
//
// Every public operation blocks until its result is observable.
package webgpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/born-ml/born-wgpu/internal/config"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Context is the initialized GPU session shared by every Device of one
// ordinal: adapter, logical device, queue and compiled kernels.
type Context struct {
	id      uuid.UUID
	ordinal int
	cfg     *config.Config

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     wgpu.AdapterInfoGo

	catalog *Catalog

	// submitMu orders queue submissions across goroutines.
	submitMu sync.Mutex
	// probe is copied into a mappable buffer to detect that the queue drained.
	probe *wgpu.Buffer

	releaseOnce sync.Once
}

// NewContext brings up a GPU session on the given ordinal. WebGPU cannot
// enumerate adapters, so only ordinal 0 is addressable.
func NewContext(ordinal int, cfg *config.Config) (c *Context, err error) {
	if cfg == nil {
		cfg = config.LoadDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithStack(&InitError{Stage: "config", Err: err})
	}
	if ordinal != 0 {
		return nil, errors.WithStack(&InitError{
			Stage: "adapter",
			Err:   fmt.Errorf("ordinal %d requested, only ordinal 0 is addressable", ordinal),
		})
	}

	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = errors.WithStack(&InitError{Stage: "native library", Err: fmt.Errorf("%v", r)})
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, errors.WithStack(&InitError{Stage: "instance", Err: instanceErr})
	}

	var opts *wgpu.RequestAdapterOptions
	if cfg.Adapter.PowerPreference == config.PowerHighPerformance {
		opts = &wgpu.RequestAdapterOptions{PowerPreference: wgpu.PowerPreferenceHighPerformance}
	}
	adapter, adapterErr := instance.RequestAdapter(opts)
	if adapterErr != nil {
		instance.Release()
		return nil, errors.WithStack(&InitError{Stage: "adapter", Err: adapterErr})
	}
	info, infoErr := adapter.GetInfo()
	if infoErr != nil {
		adapter.Release()
		instance.Release()
		return nil, errors.WithStack(&InitError{Stage: "adapter info", Err: infoErr})
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, errors.WithStack(&InitError{Stage: "device", Err: deviceErr})
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, errors.WithStack(&InitError{Stage: "queue", Err: errors.New("device returned no queue")})
	}

	c = &Context{
		id:       uuid.New(),
		ordinal:  ordinal,
		cfg:      cfg,
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		info:     *info,
	}

	c.catalog, err = newCatalog(device)
	if err != nil {
		c.Release()
		return nil, errors.WithStack(&InitError{Stage: "catalog", Err: err})
	}

	c.probe = device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:  4,
	})

	klog.V(1).Infof("webgpu: context %s on %s (%s), %s", c.id, info.Device, info.Vendor, cfg)
	return c, nil
}

// ID identifies the session; two Devices share a GPU iff their IDs match.
func (c *Context) ID() uuid.UUID { return c.id }

// Ordinal returns the adapter ordinal.
func (c *Context) Ordinal() int { return c.ordinal }

// Config returns the configuration the context was built with.
func (c *Context) Config() *config.Config { return c.cfg }

// Catalog returns the compiled kernel catalog.
func (c *Context) Catalog() *Catalog { return c.catalog }

// AdapterInfo returns information about the GPU adapter.
func (c *Context) AdapterInfo() wgpu.AdapterInfoGo { return c.info }

// Name returns the backend name.
func (c *Context) Name() string {
	if c.info.Device != "" {
		return fmt.Sprintf("WebGPU (%s %s)", c.info.Device, c.info.Vendor)
	}
	return "WebGPU"
}

// submit enqueues command buffers in program order.
func (c *Context) submit(cmds ...*wgpu.CommandBuffer) {
	c.submitMu.Lock()
	c.queue.Submit(cmds...)
	c.submitMu.Unlock()
}

// waitIdle blocks until every command submitted so far has retired. A copy
// out of the probe buffer is queued behind them and its staging buffer is
// mapped; the map completes only after the queue reaches it.
func (c *Context) waitIdle(ctx context.Context) error {
	fence := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  4,
	})

	encoder := c.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(c.probe, 0, fence, 0, 4)
	cmd := encoder.Finish(nil)
	c.submit(cmd)

	err := awaitDevice(ctx, "submission", c.cfg.Timeouts.Submit,
		func() error {
			return fence.MapAsync(c.device, wgpu.MapModeRead, 0, 4)
		},
		func(err error) {
			if err == nil {
				fence.Unmap()
			}
			fence.Release()
		},
	)
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		fence.Release()
		return errors.WithStack(&InternalError{Op: "waiting for submission", Err: err})
	}
	fence.Unmap()
	fence.Release()
	return nil
}

// Release frees the catalog and all WebGPU objects. Buffers created through
// a BufferStore must be freed first.
func (c *Context) Release() {
	c.releaseOnce.Do(func() {
		if c.catalog != nil {
			c.catalog.Release()
			c.catalog = nil
		}
		if c.probe != nil {
			c.probe.Release()
			c.probe = nil
		}
		if c.queue != nil {
			c.queue.Release()
			c.queue = nil
		}
		if c.device != nil {
			c.device.Release()
			c.device = nil
		}
		if c.adapter != nil {
			c.adapter.Release()
			c.adapter = nil
		}
		if c.instance != nil {
			c.instance.Release()
			c.instance = nil
		}
		klog.V(1).Infof("webgpu: context %s released", c.id)
	})
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// ListAdapters returns information about the available GPU adapters.
// WebGPU exposes no enumeration, so this is at most the default adapter.
func ListAdapters() (adapters []wgpu.AdapterInfoGo, err error) {
	defer func() {
		if r := recover(); r != nil {
			adapters = nil
			err = errors.WithStack(&InitError{Stage: "native library", Err: fmt.Errorf("%v", r)})
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, errors.WithStack(&InitError{Stage: "instance", Err: instanceErr})
	}
	defer instance.Release()

	adapter, adapterErr := instance.RequestAdapter(nil)
	if adapterErr != nil {
		return nil, errors.WithStack(&InitError{Stage: "adapter", Err: adapterErr})
	}
	defer adapter.Release()

	info, infoErr := adapter.GetInfo()
	if infoErr != nil {
		return nil, errors.WithStack(&InitError{Stage: "adapter info", Err: infoErr})
	}
	return []wgpu.AdapterInfoGo{*info}, nil
}

// contexts shares one Context per ordinal among all Devices.
var contexts = struct {
	sync.Mutex
	byOrdinal map[int]*sharedContext
}{byOrdinal: make(map[int]*sharedContext)}

type sharedContext struct {
	ctx   *Context
	store *BufferStore
	refs  int
}

// acquireContext returns the shared session for ordinal, creating it on
// first use. Each call must be paired with releaseContext.
func acquireContext(ordinal int, cfg *config.Config) (*sharedContext, error) {
	contexts.Lock()
	defer contexts.Unlock()

	if sc, ok := contexts.byOrdinal[ordinal]; ok {
		if cfg != nil && *cfg != *sc.ctx.cfg {
			klog.Warningf("webgpu: ordinal %d is already open; keeping its configuration (%s) instead of %s",
				ordinal, sc.ctx.cfg, cfg)
		}
		sc.refs++
		return sc, nil
	}
	c, err := NewContext(ordinal, cfg)
	if err != nil {
		return nil, err
	}
	sc := &sharedContext{ctx: c, store: NewBufferStore(c), refs: 1}
	contexts.byOrdinal[ordinal] = sc
	return sc, nil
}

func releaseContext(ordinal int) {
	contexts.Lock()
	defer contexts.Unlock()

	sc, ok := contexts.byOrdinal[ordinal]
	if !ok {
		return
	}
	sc.refs--
	if sc.refs > 0 {
		return
	}
	delete(contexts.byOrdinal, ordinal)
	sc.store.Release()
	sc.ctx.Release()
}
