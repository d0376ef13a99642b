package tensor

import "fmt"

// Device identifies the kind of hardware a storage lives on.
type Device int

// Supported device kinds.
const (
	CPU Device = iota
	WebGPU
)

func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	case WebGPU:
		return "webgpu"
	default:
		return "unknown"
	}
}

// DeviceLocation names a concrete device instance.
type DeviceLocation struct {
	Device  Device
	Ordinal int
}

func (l DeviceLocation) String() string {
	return fmt.Sprintf("%s:%d", l.Device, l.Ordinal)
}

// BackendDevice is the device half of the backend capability contract.
// S is the backend's storage type and D the device type itself.
type BackendDevice[S, D any] interface {
	Location() DeviceLocation
	SameDevice(other D) bool

	Zeros(shape Shape, dtype DataType) (S, error)
	Ones(shape Shape, dtype DataType) (S, error)
	StorageFromHost(host HostStorage) (S, error)

	RandUniform(shape Shape, dtype DataType, lo, hi float64) (S, error)
	RandNormal(shape Shape, dtype DataType, mean, std float64) (S, error)
	SetSeed(seed uint64) error
}

// BackendStorage is the storage half of the backend capability contract.
// Every operation reads the receiver through the given layout and returns
// a new contiguous storage, except CopyStridedSrc which writes into dst.
type BackendStorage[S, D any] interface {
	TryClone(layout Layout) (S, error)
	DType() DataType
	Device() D
	ToHost() (HostStorage, error)

	Affine(layout Layout, mul, add float64) (S, error)
	Powf(layout Layout, e float64) (S, error)
	Elu(layout Layout, alpha float64) (S, error)
	Unary(op UnaryOp, layout Layout) (S, error)
	Binary(op BinaryOp, rhs S, lhsLayout, rhsLayout Layout) (S, error)
	Cmp(op CmpOp, rhs S, lhsLayout, rhsLayout Layout) (S, error)
	ReduceOp(op ReduceOp, layout Layout, dims []int) (S, error)
	ToDType(layout Layout, dtype DataType) (S, error)
	WhereCond(layout Layout, onTrue S, trueLayout Layout, onFalse S, falseLayout Layout) (S, error)

	Conv1D(layout Layout, kernel S, kernelLayout Layout, params ParamsConv1D) (S, error)
	ConvTranspose1D(layout Layout, kernel S, kernelLayout Layout, params ParamsConvTranspose1D) (S, error)
	Conv2D(layout Layout, kernel S, kernelLayout Layout, params ParamsConv2D) (S, error)
	ConvTranspose2D(layout Layout, kernel S, kernelLayout Layout, params ParamsConvTranspose2D) (S, error)
	AvgPool2D(layout Layout, kernel, stride [2]int) (S, error)
	MaxPool2D(layout Layout, kernel, stride [2]int) (S, error)
	UpsampleNearest1D(layout Layout, size int) (S, error)
	UpsampleNearest2D(layout Layout, outH, outW int) (S, error)

	Gather(layout Layout, ids S, idsLayout Layout, dim int) (S, error)
	ScatterAdd(layout Layout, ids S, idsLayout Layout, src S, srcLayout Layout, dim int) (S, error)
	IndexSelect(ids S, layout Layout, idsLayout Layout, dim int) (S, error)
	IndexAdd(layout Layout, ids S, idsLayout Layout, src S, srcLayout Layout, dim int) (S, error)

	MatMul(rhs S, b, m, n, k int, lhsLayout, rhsLayout Layout) (S, error)
	CopyStridedSrc(dst S, dstOffset int, srcLayout Layout) error
}
