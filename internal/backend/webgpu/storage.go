package webgpu

import (
	"fmt"

	"github.com/born-ml/born-wgpu/internal/tensor"
	"github.com/pkg/errors"
)

// Storage is a device buffer holding numel elements of one dtype. It has no
// shape; every operation takes the Layout to read it through.
type Storage struct {
	buf    Handle
	device *Device
	dtype  tensor.DataType
	numel  int
}

// Handle returns the buffer handle in the device's BufferStore.
func (s *Storage) Handle() Handle { return s.buf }

// Len returns the number of elements backing the storage.
func (s *Storage) Len() int { return s.numel }

// DType implements tensor.BackendStorage.
func (s *Storage) DType() tensor.DataType { return s.dtype }

// Device implements tensor.BackendStorage.
func (s *Storage) Device() *Device { return s.device }

func (s *Storage) String() string {
	return fmt.Sprintf("Storage{%s %s x%d on %s}", s.buf, s.dtype, s.numel, s.device.Location())
}

// Release frees the device buffer. Using s afterwards fails with
// InvalidHandleError.
func (s *Storage) Release() error {
	return s.device.shared.store.Free(s.buf)
}

// sameDevice checks that other can be bound next to s.
func (s *Storage) sameDevice(op string, other *Storage) error {
	if !s.device.SameDevice(other.device) {
		return errors.Wrapf(ErrDeviceMismatch, "%s: %s and %s", op, s.device.Location(), other.device.Location())
	}
	return nil
}

// sameDType checks that both operands share one dtype.
func (s *Storage) sameDType(op string, other *Storage) error {
	if s.dtype != other.dtype {
		return unsupported(op, s.dtype, "mixed operand dtypes %s and %s", s.dtype, other.dtype)
	}
	return nil
}

// checkSpan rejects a layout that reaches past the end of s.
func (s *Storage) checkSpan(op string, l tensor.Layout) error {
	if l.Span() > s.numel {
		return errors.WithStack(&LayoutBoundsError{Op: op, Layout: l, Len: s.numel})
	}
	return nil
}

// TryClone copies the whole buffer into a new storage.
func (s *Storage) TryClone(_ tensor.Layout) (*Storage, error) {
	if err := checkDType("clone", s.dtype); err != nil {
		return nil, err
	}
	h, err := s.device.shared.store.Copy(s.device.opContext(), s.buf)
	if err != nil {
		return nil, err
	}
	return &Storage{buf: h, device: s.device, dtype: s.dtype, numel: s.numel}, nil
}

// ToHost reads the storage back into host memory.
func (s *Storage) ToHost() (tensor.HostStorage, error) {
	if err := checkDType("to_host", s.dtype); err != nil {
		return tensor.HostStorage{}, err
	}
	data, err := s.device.shared.store.ReadBack(s.device.opContext(), s.buf)
	if err != nil {
		return tensor.HostStorage{}, err
	}
	return tensor.NewHostStorage(s.dtype, data[:byteLen(s.dtype, s.numel)])
}

// gatherWords copies the elements addressed by l into a new contiguous
// storage. Only 32-bit dtypes can be gathered element by element.
func (s *Storage) gatherWords(op string, l tensor.Layout) (*Storage, error) {
	if s.dtype.Size() != 4 {
		return nil, unsupported(op, s.dtype, "strided layout %v needs a 32-bit element type", l)
	}
	p, err := planCopy(l, 0)
	if err != nil {
		return nil, err
	}
	return s.device.launch(EntryCopy, s.dtype, l.NumElements(), p, l.NumElements(), s)
}

// contiguous returns storage and layout for reading l without strides.
// When l is already contiguous the receiver is returned unchanged and done
// is a no-op; otherwise done frees the temporary copy.
func (s *Storage) contiguous(op string, l tensor.Layout) (c *Storage, cl tensor.Layout, done func(), err error) {
	if l.IsContiguous() {
		return s, l, func() {}, nil
	}
	c, err = s.gatherWords(op, l)
	if err != nil {
		return nil, tensor.Layout{}, nil, err
	}
	return c, tensor.Contiguous(l.Shape()), func() { _ = c.Release() }, nil
}

// materialize returns a new contiguous storage holding the elements of l.
func (s *Storage) materialize(op string, l tensor.Layout) (*Storage, error) {
	if s.dtype.Size() == 4 {
		return s.gatherWords(op, l)
	}
	out, err := s.device.alloc(s.dtype, l.NumElements())
	if err != nil {
		return nil, err
	}
	if err := s.copyBytes(op, out, 0, l); err != nil {
		_ = out.Release()
		return nil, err
	}
	return out, nil
}

// copyBytes copies a contiguous layout of sub-word elements with a buffer
// copy. Both ends must start on a word boundary and the copy may only spill
// into the destination's padding.
func (s *Storage) copyBytes(op string, dst *Storage, dstOffset int, l tensor.Layout) error {
	start, _, ok := l.ContiguousOffsets()
	if !ok {
		return unsupported(op, s.dtype, "strided layout %v needs a 32-bit element type", l)
	}
	size := s.dtype.Size()
	n := l.NumElements() * size
	srcByte, dstByte := start*size, dstOffset*size
	if srcByte%4 != 0 || dstByte%4 != 0 {
		return unsupported(op, s.dtype, "byte offsets %d and %d are not word aligned", srcByte, dstByte)
	}
	if n%4 != 0 && dstOffset+l.NumElements() != dst.numel {
		return unsupported(op, s.dtype, "partial word at the end of a %d byte copy", n)
	}
	return s.device.shared.store.CopyRegion(s.device.opContext(),
		s.buf, uint64(srcByte), dst.buf, uint64(dstByte), physicalSize(uint64(n)))
}

// CopyStridedSrc writes the elements addressed by srcLayout into dst,
// contiguously from element dstOffset.
func (s *Storage) CopyStridedSrc(dst *Storage, dstOffset int, srcLayout tensor.Layout) error {
	if err := checkDType("copy_strided", s.dtype); err != nil {
		return err
	}
	if err := s.sameDType("copy_strided", dst); err != nil {
		return err
	}
	if err := s.sameDevice("copy_strided", dst); err != nil {
		return err
	}
	numel := srcLayout.NumElements()
	if dstOffset < 0 || dstOffset+numel > dst.numel {
		return errors.Errorf("copy_strided: %d elements at offset %d overflow destination of %d", numel, dstOffset, dst.numel)
	}
	if err := s.checkSpan("copy_strided", srcLayout); err != nil {
		return err
	}
	if numel == 0 {
		return nil
	}

	src := s
	if s.buf == dst.buf {
		clone, err := s.TryClone(srcLayout)
		if err != nil {
			return err
		}
		defer func() { _ = clone.Release() }()
		src = clone
	}

	if s.dtype.Size() == 4 {
		p, err := planCopy(srcLayout, dstOffset)
		if err != nil {
			return err
		}
		return s.device.runInto(EntryCopy, dst, p, numel, src)
	}
	return src.copyBytes("copy_strided", dst, dstOffset, srcLayout)
}

// Repeat tiles the elements of l reps[i] times along dimension i.
func (s *Storage) Repeat(l tensor.Layout, reps []int) (*Storage, error) {
	if err := checkDType("repeat", s.dtype); err != nil {
		return nil, err
	}
	if err := s.checkSpan("repeat", l); err != nil {
		return nil, err
	}
	p, out, err := planRepeat(l, reps)
	if err != nil {
		return nil, err
	}
	return s.device.launch(EntryRepeat, s.dtype, out.NumElements(), p, out.NumElements(), s)
}

// ToDType converts to dtype. Widening to f32 runs on the device; the
// identity conversion copies.
func (s *Storage) ToDType(l tensor.Layout, dtype tensor.DataType) (*Storage, error) {
	if err := s.checkSpan("to_dtype", l); err != nil {
		return nil, err
	}
	if dtype == s.dtype {
		return s.materialize("to_dtype", l)
	}
	if err := checkDType("to_dtype", s.dtype); err != nil {
		return nil, err
	}
	entry, ok := convertEntry(s.dtype)
	if !ok || dtype != tensor.Float32 {
		return nil, unsupported("to_dtype", s.dtype, "no conversion to %s", dtype)
	}

	src, cl, done, err := s.contiguous("to_dtype", l)
	if err != nil {
		return nil, err
	}
	defer done()

	p, err := planConvert(cl)
	if err != nil {
		return nil, err
	}
	return s.device.launch(entry, dtype, cl.NumElements(), p, cl.NumElements(), src)
}
