package webgpu

import (
	"embed"
	"fmt"
	"sync"

	"github.com/born-ml/born-wgpu/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// workgroupSize must match @workgroup_size in every shader.
const workgroupSize = 64

// Kernel tags one compiled shader module.
type Kernel int

// Kernel families. Every tag has exactly one WGSL source.
const (
	KernelFill Kernel = iota
	KernelFillU8
	KernelFillU32
	KernelCopy
	KernelCopySparse
	KernelRepeat
	KernelConvert
	KernelAffine
	KernelBinary
	KernelUnary
	KernelCmp
	KernelConv
	KernelPool
	KernelUpsampleNearest
	KernelReduce
	KernelMatMul
	KernelIndexSelect
	KernelRandom
	kernelCount
)

var kernelFiles = [kernelCount]string{
	KernelFill:            "fill.wgsl",
	KernelFillU8:          "fill_u8.wgsl",
	KernelFillU32:         "fill_u32.wgsl",
	KernelCopy:            "copy.wgsl",
	KernelCopySparse:      "copy_sparse.wgsl",
	KernelRepeat:          "repeat.wgsl",
	KernelConvert:         "convert.wgsl",
	KernelAffine:          "affine.wgsl",
	KernelBinary:          "binary.wgsl",
	KernelUnary:           "unary.wgsl",
	KernelCmp:             "cmp.wgsl",
	KernelConv:            "conv.wgsl",
	KernelPool:            "pool.wgsl",
	KernelUpsampleNearest: "upsample_nearest.wgsl",
	KernelReduce:          "reduce.wgsl",
	KernelMatMul:          "matmul.wgsl",
	KernelIndexSelect:     "index_select.wgsl",
	KernelRandom:          "random.wgsl",
}

func (k Kernel) String() string {
	if k < 0 || k >= kernelCount {
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
	name := kernelFiles[k]
	return name[:len(name)-len(".wgsl")]
}

// kernelSource returns the shared prelude followed by the kernel's module.
func kernelSource(k Kernel) (string, error) {
	if k < 0 || k >= kernelCount {
		return "", errors.Errorf("unknown kernel %d", int(k))
	}
	common, err := shaderFS.ReadFile("shaders/common.wgsl")
	if err != nil {
		return "", errors.Wrap(err, "reading shader prelude")
	}
	body, err := shaderFS.ReadFile("shaders/" + kernelFiles[k])
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", kernelFiles[k])
	}
	return string(common) + "\n" + string(body), nil
}

// Entry is one entry point of a kernel module.
type Entry struct {
	Kernel Kernel
	Name   string
}

func (e Entry) String() string {
	return e.Kernel.String() + "::" + e.Name
}

// Entry points not parameterized by an op enum.
var (
	EntryOnes        = Entry{KernelFill, "ones"}
	EntryZeroes      = Entry{KernelFill, "zeroes"}
	EntryOnesU8      = Entry{KernelFillU8, "ones"}
	EntryZeroesU8    = Entry{KernelFillU8, "zeroes"}
	EntryOnesU32     = Entry{KernelFillU32, "ones"}
	EntryZeroesU32   = Entry{KernelFillU32, "zeroes"}
	EntryCopy        = Entry{KernelCopy, "copy"}
	EntryCopySparse  = Entry{KernelCopySparse, "copy_sparse"}
	EntryRepeat      = Entry{KernelRepeat, "repeat"}
	EntryU8ToF32     = Entry{KernelConvert, "u8_to_f32"}
	EntryU32ToF32    = Entry{KernelConvert, "u32_to_f32"}
	EntryF16ToF32    = Entry{KernelConvert, "f16_to_f32"}
	EntryBF16ToF32   = Entry{KernelConvert, "bf16_to_f32"}
	EntryAffine      = Entry{KernelAffine, "affine"}
	EntryPowf        = Entry{KernelUnary, "powf_f32"}
	EntryElu         = Entry{KernelUnary, "elu_f32"}
	EntryConv2D      = Entry{KernelConv, "conv2d"}
	EntryMaxPool2D   = Entry{KernelPool, "max_pool2d"}
	EntryAvgPool2D   = Entry{KernelPool, "avg_pool2d"}
	EntryUpsample    = Entry{KernelUpsampleNearest, "upsample_nearest"}
	EntryMatMul      = Entry{KernelMatMul, "matmul"}
	EntryIndexSelect = Entry{KernelIndexSelect, "index_select"}
	EntryRandUniform = Entry{KernelRandom, "rand_uniform"}
	EntryRandNormal  = Entry{KernelRandom, "rand_normal"}
	EntryReduceSum   = Entry{KernelReduce, "reduce_sum"}
	EntryReduceMin   = Entry{KernelReduce, "reduce_min"}
	EntryReduceMax   = Entry{KernelReduce, "reduce_max"}
)

func unaryEntry(op tensor.UnaryOp) Entry {
	return Entry{KernelUnary, op.String() + "_f32"}
}

var binaryEntryNames = [...]string{
	tensor.Add:     "add",
	tensor.Sub:     "sub",
	tensor.Mul:     "mul",
	tensor.Div:     "div",
	tensor.Maximum: "max",
	tensor.Minimum: "min",
}

func binaryEntry(op tensor.BinaryOp) Entry {
	return Entry{KernelBinary, binaryEntryNames[op]}
}

func cmpEntry(op tensor.CmpOp) Entry {
	return Entry{KernelCmp, op.String()}
}

// allEntries enumerates every entry point the router can request.
func allEntries() []Entry {
	out := []Entry{
		EntryOnes, EntryZeroes, EntryOnesU8, EntryZeroesU8, EntryOnesU32, EntryZeroesU32,
		EntryCopy, EntryCopySparse, EntryRepeat,
		EntryU8ToF32, EntryU32ToF32, EntryF16ToF32, EntryBF16ToF32,
		EntryAffine, EntryPowf, EntryElu,
		EntryConv2D, EntryMaxPool2D, EntryAvgPool2D, EntryUpsample,
		EntryMatMul, EntryIndexSelect, EntryRandUniform, EntryRandNormal,
		EntryReduceSum, EntryReduceMin, EntryReduceMax,
	}
	for _, op := range tensor.AllUnaryOps {
		out = append(out, unaryEntry(op))
	}
	for op := tensor.Add; op <= tensor.Minimum; op++ {
		out = append(out, binaryEntry(op))
	}
	for op := tensor.Eq; op <= tensor.Ge; op++ {
		out = append(out, cmpEntry(op))
	}
	return out
}

// Catalog owns one compiled module per Kernel and lazily built pipelines per
// Entry. Both live as long as the Context.
type Catalog struct {
	device  *wgpu.Device
	modules [kernelCount]*wgpu.ShaderModule

	mu        sync.Mutex
	pipelines map[Entry]*compiledEntry
}

type compiledEntry struct {
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
}

func newCatalog(device *wgpu.Device) (c *Catalog, err error) {
	c = &Catalog{device: device, pipelines: make(map[Entry]*compiledEntry)}
	defer func() {
		if r := recover(); r != nil {
			c.Release()
			c, err = nil, errors.Errorf("shader compilation panicked: %v", r)
		}
	}()

	for k := Kernel(0); k < kernelCount; k++ {
		src, err := kernelSource(k)
		if err != nil {
			c.Release()
			return nil, err
		}
		module := device.CreateShaderModuleWGSL(src)
		if module == nil {
			c.Release()
			return nil, errors.Errorf("compiling %s", k)
		}
		c.modules[k] = module
	}
	klog.V(1).Infof("webgpu: compiled %d kernel modules", kernelCount)
	return c, nil
}

// Pipeline returns the compute pipeline for e and its bind group layout,
// building both on first use.
func (c *Catalog) Pipeline(e Entry) (*wgpu.ComputePipeline, *wgpu.BindGroupLayout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ce, ok := c.pipelines[e]; ok {
		return ce.pipeline, ce.layout, nil
	}
	if e.Kernel < 0 || e.Kernel >= kernelCount || c.modules[e.Kernel] == nil {
		return nil, nil, errors.WithStack(&InternalError{Op: "pipeline " + e.String(), Err: errors.New("module not compiled")})
	}

	// Auto layout (nil): bindings are derived from what the entry point uses.
	p := c.device.CreateComputePipelineSimple(nil, c.modules[e.Kernel], e.Name)
	if p == nil {
		return nil, nil, errors.WithStack(&InternalError{Op: "pipeline " + e.String(), Err: errors.New("creation failed")})
	}
	ce := &compiledEntry{pipeline: p, layout: p.GetBindGroupLayout(0)}
	c.pipelines[e] = ce
	klog.V(2).Infof("webgpu: built pipeline %s", e)
	return ce.pipeline, ce.layout, nil
}

// Release frees every pipeline, its bind group layout and every module.
func (c *Catalog) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for e, ce := range c.pipelines {
		if ce.layout != nil {
			ce.layout.Release()
		}
		ce.pipeline.Release()
		delete(c.pipelines, e)
	}
	for k, m := range c.modules {
		if m != nil {
			m.Release()
			c.modules[k] = nil
		}
	}
}
