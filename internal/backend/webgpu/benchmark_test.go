package webgpu

import (
	"testing"

	"github.com/born-ml/born-wgpu/internal/tensor"
)

// =============================================================================
// Helper Functions
// =============================================================================

func benchDevice(b *testing.B) *Device {
	b.Helper()
	if !IsAvailable() {
		b.Skip("WebGPU not available")
	}
	d, err := New(0, nil)
	if err != nil {
		b.Fatalf("failed to open WebGPU device: %v", err)
	}
	b.Cleanup(d.Release)
	return d
}

// benchStorage uploads a simple pattern (faster than random for benchmarks).
func benchStorage(b *testing.B, d *Device, numel int) *Storage {
	b.Helper()
	data := make([]float32, numel)
	for i := range data {
		data[i] = float32(i % 1000)
	}
	s, err := d.StorageFromHost(tensor.HostFrom(data))
	if err != nil {
		b.Fatalf("upload: %v", err)
	}
	return s
}

// =============================================================================
// Element-wise Benchmarks
// =============================================================================

func benchmarkBinary(b *testing.B, op tensor.BinaryOp, size int) {
	d := benchDevice(b)
	lhs, rhs := benchStorage(b, d, size), benchStorage(b, d, size)
	l := tensor.Contiguous(tensor.Shape{size})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out, err := lhs.Binary(op, rhs, l, l)
		if err != nil {
			b.Fatal(err)
		}
		_ = out.Release()
	}
}

func BenchmarkWebGPU_Add_1K(b *testing.B)   { benchmarkBinary(b, tensor.Add, 1024) }
func BenchmarkWebGPU_Add_100K(b *testing.B) { benchmarkBinary(b, tensor.Add, 100*1024) }
func BenchmarkWebGPU_Add_1M(b *testing.B)   { benchmarkBinary(b, tensor.Add, 1024*1024) }
func BenchmarkWebGPU_Mul_1M(b *testing.B)   { benchmarkBinary(b, tensor.Mul, 1024*1024) }

func BenchmarkWebGPU_Affine_1M(b *testing.B) {
	d := benchDevice(b)
	s := benchStorage(b, d, 1024*1024)
	l := tensor.Contiguous(tensor.Shape{1024 * 1024})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out, err := s.Affine(l, 2, 1)
		if err != nil {
			b.Fatal(err)
		}
		_ = out.Release()
	}
}

// =============================================================================
// MatMul Benchmarks
// =============================================================================

func benchmarkMatMul(b *testing.B, size int) {
	d := benchDevice(b)
	lhs, rhs := benchStorage(b, d, size*size), benchStorage(b, d, size*size)
	l := tensor.Contiguous(tensor.Shape{size, size})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out, err := lhs.MatMul(rhs, 1, size, size, size, l, l)
		if err != nil {
			b.Fatal(err)
		}
		_ = out.Release()
	}
}

func BenchmarkWebGPU_MatMul_64(b *testing.B)  { benchmarkMatMul(b, 64) }
func BenchmarkWebGPU_MatMul_256(b *testing.B) { benchmarkMatMul(b, 256) }
func BenchmarkWebGPU_MatMul_512(b *testing.B) { benchmarkMatMul(b, 512) }

// =============================================================================
// Transpose (strided copy) Benchmarks
// =============================================================================

func benchmarkTranspose(b *testing.B, rows, cols int) {
	d := benchDevice(b)
	s := benchStorage(b, d, rows*cols)
	l, err := tensor.Contiguous(tensor.Shape{rows, cols}).Transpose(0, 1)
	if err != nil {
		b.Fatal(err)
	}
	dst, err := d.Zeros(tensor.Shape{rows * cols}, tensor.Float32)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.CopyStridedSrc(dst, 0, l); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWebGPU_Transpose_256(b *testing.B)  { benchmarkTranspose(b, 256, 256) }
func BenchmarkWebGPU_Transpose_1024(b *testing.B) { benchmarkTranspose(b, 1024, 1024) }

// =============================================================================
// Transfer Benchmarks
// =============================================================================

func BenchmarkWebGPU_Transfer_Upload_1M(b *testing.B) {
	d := benchDevice(b)
	host := make([]float32, 1024*1024)
	h := tensor.HostFrom(host)

	b.SetBytes(int64(len(h.Bytes())))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, err := d.StorageFromHost(h)
		if err != nil {
			b.Fatal(err)
		}
		_ = s.Release()
	}
}

func BenchmarkWebGPU_Transfer_ReadBack_1M(b *testing.B) {
	d := benchDevice(b)
	s := benchStorage(b, d, 1024*1024)

	b.SetBytes(4 * 1024 * 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.ToHost(); err != nil {
			b.Fatal(err)
		}
	}
}
