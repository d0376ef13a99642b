package webgpu

import (
	"testing"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterInfo(t *testing.T) {
	d := newTestDevice(t)

	adapters, err := ListAdapters()
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	assert.Equal(t, adapters[0], d.Context().AdapterInfo())
	assert.NotEmpty(t, d.Context().Name())

	for _, info := range adapters {
		t.Logf("Adapter: %s (%s), backend %v", info.Device, info.Vendor, info.BackendType)
	}
}

func TestCatalogReleaseDropsPipelines(t *testing.T) {
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	c, err := NewContext(0, nil)
	require.NoError(t, err)
	defer c.Release()

	pipeline, layout, err := c.Catalog().Pipeline(EntryAffine)
	require.NoError(t, err)
	require.NotNil(t, pipeline)
	require.NotNil(t, layout)

	again, _, err := c.Catalog().Pipeline(EntryAffine)
	require.NoError(t, err)
	assert.Same(t, pipeline, again, "pipelines are cached per entry")

	c.Catalog().Release()
	assert.Empty(t, c.Catalog().pipelines)
	for k, m := range c.Catalog().modules {
		assert.Nil(t, m, "module %s", Kernel(k))
	}
}

func TestAllocationUsage(t *testing.T) {
	d := newTestDevice(t)
	s := upload(t, d, []float32{1, 2, 3})

	b, err := d.Store().lookup(s.Handle())
	require.NoError(t, err)
	usage := b.buf.GetUsage()
	for _, want := range []wgpu.BufferUsage{
		wgpu.BufferUsageUniform,
		wgpu.BufferUsageStorage,
		wgpu.BufferUsageCopySrc,
		wgpu.BufferUsageCopyDst,
	} {
		assert.NotZero(t, usage&want, "usage %#x lacks %#x", usage, want)
	}
}
