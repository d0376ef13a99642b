package webgpu

import (
	"fmt"
	"time"

	"github.com/born-ml/born-wgpu/internal/tensor"
	"github.com/pkg/errors"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrInitialization = errors.New("webgpu: initialization failed")
	ErrUnsupported    = errors.New("webgpu: unsupported operation")
	ErrBufferMap      = errors.New("webgpu: buffer map failed")
	ErrInvalidHandle  = errors.New("webgpu: invalid buffer handle")
	ErrTimeout        = errors.New("webgpu: device wait timed out")
	ErrInternal       = errors.New("webgpu: internal error")
	ErrDeviceMismatch = errors.New("webgpu: storages live on different devices")
	ErrShapeMismatch  = errors.New("webgpu: shape mismatch")
	ErrOutOfBounds    = errors.New("webgpu: layout exceeds storage")
)

// InitError reports a failure while bringing up a Context.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("webgpu: init %s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Is matches ErrInitialization.
func (e *InitError) Is(target error) bool { return target == ErrInitialization }

// UnsupportedOperationError reports an operation/dtype combination that has
// no kernel.
type UnsupportedOperationError struct {
	Op     string
	DType  tensor.DataType
	Detail string
}

func (e *UnsupportedOperationError) Error() string {
	msg := fmt.Sprintf("webgpu: %s is not supported for %s", e.Op, e.DType)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches ErrUnsupported.
func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupported }

func unsupported(op string, dtype tensor.DataType, detail string, args ...any) error {
	return errors.WithStack(&UnsupportedOperationError{Op: op, DType: dtype, Detail: fmt.Sprintf(detail, args...)})
}

// BufferMapError reports a failed asynchronous map of a staging buffer.
type BufferMapError struct {
	Size uint64
	Err  error
}

func (e *BufferMapError) Error() string {
	return fmt.Sprintf("webgpu: mapping %d byte staging buffer: %v", e.Size, e.Err)
}

func (e *BufferMapError) Unwrap() error { return e.Err }

// Is matches ErrBufferMap.
func (e *BufferMapError) Is(target error) bool { return target == ErrBufferMap }

// InvalidHandleError reports a handle that was never issued or already freed.
type InvalidHandleError struct {
	Handle Handle
}

func (e *InvalidHandleError) Error() string {
	return fmt.Sprintf("webgpu: invalid buffer handle %s", e.Handle)
}

// Is matches ErrInvalidHandle.
func (e *InvalidHandleError) Is(target error) bool { return target == ErrInvalidHandle }

// TimeoutError reports a device wait that did not finish in time.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("webgpu: %s did not complete within %s", e.Op, e.After)
}

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// InternalError wraps a platform failure that is not attributable to the caller.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("webgpu: %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// Is matches ErrInternal.
func (e *InternalError) Is(target error) bool { return target == ErrInternal }

// ShapeMismatchError reports operands whose shapes cannot be combined.
type ShapeMismatchError struct {
	Op       string
	Lhs, Rhs tensor.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("webgpu: %s: shape mismatch %v vs %v", e.Op, e.Lhs, e.Rhs)
}

// Is matches ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// LayoutBoundsError reports a layout that addresses elements past the end of
// the storage it is applied to.
type LayoutBoundsError struct {
	Op     string
	Layout tensor.Layout
	Len    int
}

func (e *LayoutBoundsError) Error() string {
	return fmt.Sprintf("webgpu: %s: layout %v needs %d elements, storage holds %d", e.Op, e.Layout, e.Layout.Span(), e.Len)
}

// Is matches ErrOutOfBounds.
func (e *LayoutBoundsError) Is(target error) bool { return target == ErrOutOfBounds }
