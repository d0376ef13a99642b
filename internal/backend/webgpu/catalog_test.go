package webgpu

import (
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/born-ml/born-wgpu/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelSourcesExist(t *testing.T) {
	for k := Kernel(0); k < kernelCount; k++ {
		src, err := kernelSource(k)
		require.NoError(t, err, "kernel %s", k)
		assert.Contains(t, src, "fn strided_offset(", "kernel %s must include the prelude", k)
		assert.Contains(t, src, "@group(0) @binding(0) var<uniform> params: Params;", "kernel %s", k)
	}
	_, err := kernelSource(kernelCount)
	assert.Error(t, err)
}

func TestEveryEntryIsDeclared(t *testing.T) {
	seen := make(map[Entry]bool)
	for _, e := range allEntries() {
		require.False(t, seen[e], "duplicate entry %s", e)
		seen[e] = true

		src, err := kernelSource(e.Kernel)
		require.NoError(t, err)
		decl := regexp.MustCompile(`@compute @workgroup_size\(` + strconv.Itoa(workgroupSize) + `\)\s*fn ` + regexp.QuoteMeta(e.Name) + `\(`)
		assert.True(t, decl.MatchString(src), "entry %s is not a compute entry point", e)
	}
}

func TestEveryKernelHasAnEntry(t *testing.T) {
	used := make(map[Kernel]bool)
	for _, e := range allEntries() {
		used[e.Kernel] = true
	}
	for k := Kernel(0); k < kernelCount; k++ {
		assert.True(t, used[k], "kernel %s has no entry", k)
	}
}

func TestKernelString(t *testing.T) {
	assert.Equal(t, "upsample_nearest", KernelUpsampleNearest.String())
	assert.Equal(t, "unary::sqrt_f32", unaryEntry(tensor.Sqrt).String())
	assert.Equal(t, "Kernel(99)", Kernel(99).String())
}

func TestBinaryEntryNames(t *testing.T) {
	want := map[tensor.BinaryOp]string{
		tensor.Add: "add", tensor.Sub: "sub", tensor.Mul: "mul",
		tensor.Div: "div", tensor.Maximum: "max", tensor.Minimum: "min",
	}
	for op, name := range want {
		assert.Equal(t, Entry{KernelBinary, name}, binaryEntry(op), "op %s", op)
	}
	assert.Len(t, binaryEntryNames, len(want))
}

// wgslParamsSize sums the byte size of the Params struct declared in src.
func wgslParamsSize(t *testing.T, src string) int {
	t.Helper()
	start := strings.Index(src, "struct Params {")
	require.GreaterOrEqual(t, start, 0, "no Params struct")
	end := strings.Index(src[start:], "}")
	require.Greater(t, end, 0)

	size := 0
	for _, line := range strings.Split(src[start+len("struct Params {"):start+end], "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if line == "" {
			continue
		}
		_, typ, ok := strings.Cut(line, ":")
		require.True(t, ok, "malformed field %q", line)
		switch typ = strings.TrimSpace(typ); typ {
		case "u32", "f32", "i32":
			size += 4
		case "array<vec4<u32>, 2>":
			size += 32
		default:
			t.Fatalf("unexpected field type %q", typ)
		}
	}
	return size
}

func TestParamBlocksMatchShaderLayout(t *testing.T) {
	blocks := map[Kernel]any{
		KernelFill:            fillParams{},
		KernelFillU8:          fillParams{},
		KernelFillU32:         fillParams{},
		KernelCopy:            copyParams{},
		KernelCopySparse:      copySparseParams{},
		KernelRepeat:          repeatParams{},
		KernelConvert:         convertParams{},
		KernelAffine:          affineParams{},
		KernelBinary:          binaryParams{},
		KernelUnary:           unaryParams{},
		KernelCmp:             binaryParams{},
		KernelConv:            convParams{},
		KernelPool:            poolParams{},
		KernelUpsampleNearest: upsampleParams{},
		KernelReduce:          reduceParams{},
		KernelMatMul:          matmulParams{},
		KernelIndexSelect:     indexSelectParams{},
		KernelRandom:          randomParams{},
	}
	require.Len(t, blocks, int(kernelCount))

	for k, p := range blocks {
		src, err := kernelSource(k)
		require.NoError(t, err)

		goSize := binary.Size(p)
		assert.Equal(t, wgslParamsSize(t, src), goSize, "kernel %s", k)
		assert.Zero(t, goSize%16, "kernel %s params must be 16-byte aligned", k)

		encoded, err := encodeParams(p)
		require.NoError(t, err)
		assert.Len(t, encoded, goSize)
	}
}
