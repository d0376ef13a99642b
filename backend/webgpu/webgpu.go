// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU compute backend.
//
// WebGPU is a cross-platform graphics and compute API that works on:
//   - Windows (via D3D12)
//   - macOS (via Metal)
//   - Linux (via Vulkan)
//
// Example:
//
//	import (
//	    "github.com/born-ml/born-wgpu/backend/webgpu"
//	    "github.com/born-ml/born-wgpu/tensor"
//	)
//
//	func main() {
//	    if !webgpu.IsAvailable() {
//	        log.Fatal("no GPU")
//	    }
//	    dev, err := webgpu.New(0, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer dev.Release()
//
//	    x, _ := dev.RandUniform(tensor.Shape{1024}, tensor.Float32, 0, 1)
//	    y, _ := x.Unary(tensor.Sqrt, tensor.Contiguous(tensor.Shape{1024}))
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/born-wgpu/internal/backend/webgpu"
	"github.com/born-ml/born-wgpu/internal/config"
	"github.com/born-ml/born-wgpu/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Device is a WebGPU device. Devices on the same ordinal share one GPU
// session.
type Device = internalwebgpu.Device

// Storage is a device buffer read through a tensor.Layout.
type Storage = internalwebgpu.Storage

// Config configures adapter selection, dispatch and timeouts.
type Config = config.Config

// BufferStats summarizes buffer allocation on a device.
type BufferStats = internalwebgpu.BufferStats

// Compile-time check that Device and Storage implement the capability contract.
var (
	_ tensor.BackendDevice[*Storage, *Device]  = (*Device)(nil)
	_ tensor.BackendStorage[*Storage, *Device] = (*Storage)(nil)
)

// Errors returned by the backend. Match them with errors.Is.
var (
	ErrInitialization = internalwebgpu.ErrInitialization
	ErrUnsupported    = internalwebgpu.ErrUnsupported
	ErrBufferMap      = internalwebgpu.ErrBufferMap
	ErrInvalidHandle  = internalwebgpu.ErrInvalidHandle
	ErrTimeout        = internalwebgpu.ErrTimeout
	ErrInternal       = internalwebgpu.ErrInternal
	ErrDeviceMismatch = internalwebgpu.ErrDeviceMismatch
	ErrShapeMismatch  = internalwebgpu.ErrShapeMismatch
	ErrOutOfBounds    = internalwebgpu.ErrOutOfBounds
)

// UnsupportedOperationError names the operation and dtype that have no kernel.
type UnsupportedOperationError = internalwebgpu.UnsupportedOperationError

// LayoutBoundsError reports a layout that reaches past the end of its storage.
type LayoutBoundsError = internalwebgpu.LayoutBoundsError

// New opens the WebGPU device with the given ordinal. A nil cfg uses the
// defaults. Call Release() when done to free GPU resources.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func New(ordinal int, cfg *Config) (*Device, error) {
	return internalwebgpu.New(ordinal, cfg)
}

// LoadConfig loads configuration from BORN_WGPU_CONFIG and the environment.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It's useful for graceful fallback to a CPU backend when no GPU is present.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

// ListAdapters returns information about the available GPU adapters.
func ListAdapters() ([]wgpu.AdapterInfoGo, error) {
	return internalwebgpu.ListAdapters()
}

// Supports reports whether op has a kernel for dtype.
func Supports(op string, dtype tensor.DataType) bool {
	return internalwebgpu.Supports(op, dtype)
}

// Capability is one row of the operation/dtype capability table.
type Capability = internalwebgpu.Capability

// Capabilities returns the capability table sorted by operation name.
func Capabilities() []Capability {
	return internalwebgpu.Capabilities()
}
