// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the data model shared by born-wgpu backends.
//
// # Overview
//
// A backend stores flat element buffers and reads them through a Layout:
//   - DataType: u8, u32, i64, bf16, f16, f32, f64
//   - Shape and Layout: dimensions, element strides and a start offset
//   - HostStorage: little-endian host data tagged with its DataType
//   - BackendDevice and BackendStorage: the capability contract a backend
//     implements
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/born-wgpu/backend/webgpu"
//	    "github.com/born-ml/born-wgpu/tensor"
//	)
//
//	func main() {
//	    dev, err := webgpu.New(0, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer dev.Release()
//
//	    x, _ := dev.StorageFromHost(tensor.HostFrom([]float32{1, 2, 3, 4}))
//	    y, _ := x.Affine(tensor.Contiguous(tensor.Shape{2, 2}), 2, 1)
//	    host, _ := y.ToHost()
//	    fmt.Println(host.Float32s()) // [3 5 7 9]
//	}
//
// # Layouts
//
// Strides and offsets are counted in elements. Views such as transposes and
// narrows only change the layout:
//
//	l := tensor.Contiguous(tensor.Shape{2, 3})  // stride [3 1]
//	t, _ := l.Transpose(0, 1)                   // shape [3 2], stride [1 3]
//
// # Broadcasting
//
// Binary operations follow NumPy broadcasting rules; broadcast dimensions
// get a zero stride.
package tensor
