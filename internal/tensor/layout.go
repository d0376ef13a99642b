package tensor

import "fmt"

// Layout describes how a logical shape maps onto a flat element buffer:
// element (i0, i1, ...) lives at StartOffset + sum(ik * Stride[k]).
// Strides and offsets are counted in elements, not bytes.
type Layout struct {
	shape       Shape
	stride      []int
	startOffset int
}

// Contiguous returns the row-major layout of shape starting at element 0.
func Contiguous(shape Shape) Layout {
	return ContiguousWithOffset(shape, 0)
}

// ContiguousWithOffset returns the row-major layout of shape starting at offset.
func ContiguousWithOffset(shape Shape, offset int) Layout {
	s := shape.Clone()
	return Layout{shape: s, stride: s.ComputeStrides(), startOffset: offset}
}

// NewLayout builds a layout from explicit strides.
func NewLayout(shape Shape, stride []int, offset int) (Layout, error) {
	if len(shape) != len(stride) {
		return Layout{}, fmt.Errorf("layout: shape %v and stride %v differ in rank", shape, stride)
	}
	if offset < 0 {
		return Layout{}, fmt.Errorf("layout: negative start offset %d", offset)
	}
	for i, st := range stride {
		if st < 0 {
			return Layout{}, fmt.Errorf("layout: negative stride %d at dim %d", st, i)
		}
	}
	st := make([]int, len(stride))
	copy(st, stride)
	return Layout{shape: shape.Clone(), stride: st, startOffset: offset}, nil
}

// Shape returns the logical shape.
func (l Layout) Shape() Shape { return l.shape }

// Stride returns the per-dimension strides in elements.
func (l Layout) Stride() []int { return l.stride }

// StartOffset returns the element offset of the first element.
func (l Layout) StartOffset() int { return l.startOffset }

// Rank returns the number of dimensions.
func (l Layout) Rank() int { return len(l.shape) }

// NumElements returns the number of logical elements.
func (l Layout) NumElements() int { return l.shape.NumElements() }

// IsContiguous reports whether the layout is row-major without gaps.
// Dimensions of extent 1 are ignored since their stride is never used.
func (l Layout) IsContiguous() bool {
	acc := 1
	for i := len(l.shape) - 1; i >= 0; i-- {
		if l.shape[i] == 1 {
			continue
		}
		if l.stride[i] != acc {
			return false
		}
		acc *= l.shape[i]
	}
	return true
}

// ContiguousOffsets returns the [start, end) element range covered by a
// contiguous layout. ok is false when the layout is strided.
func (l Layout) ContiguousOffsets() (start, end int, ok bool) {
	if !l.IsContiguous() {
		return 0, 0, false
	}
	return l.startOffset, l.startOffset + l.NumElements(), true
}

// Span returns one past the largest element offset reachable through the
// layout, i.e. the minimum buffer length in elements needed to back it.
func (l Layout) Span() int {
	if l.NumElements() == 0 {
		return l.startOffset
	}
	last := l.startOffset
	for i, d := range l.shape {
		last += (d - 1) * l.stride[i]
	}
	return last + 1
}

// Transpose swaps two dimensions without moving data.
func (l Layout) Transpose(d1, d2 int) (Layout, error) {
	if d1 < 0 || d1 >= l.Rank() || d2 < 0 || d2 >= l.Rank() {
		return Layout{}, fmt.Errorf("layout: transpose dims (%d, %d) out of range for rank %d", d1, d2, l.Rank())
	}
	out := Layout{shape: l.shape.Clone(), stride: append([]int(nil), l.stride...), startOffset: l.startOffset}
	out.shape[d1], out.shape[d2] = out.shape[d2], out.shape[d1]
	out.stride[d1], out.stride[d2] = out.stride[d2], out.stride[d1]
	return out, nil
}

// Narrow restricts dim to [start, start+length).
func (l Layout) Narrow(dim, start, length int) (Layout, error) {
	if dim < 0 || dim >= l.Rank() {
		return Layout{}, fmt.Errorf("layout: narrow dim %d out of range for rank %d", dim, l.Rank())
	}
	if start < 0 || length < 0 || start+length > l.shape[dim] {
		return Layout{}, fmt.Errorf("layout: narrow [%d, %d) out of range for dim %d of size %d",
			start, start+length, dim, l.shape[dim])
	}
	out := Layout{shape: l.shape.Clone(), stride: append([]int(nil), l.stride...)}
	out.shape[dim] = length
	out.startOffset = l.startOffset + start*l.stride[dim]
	return out, nil
}

// BroadcastAs expands the layout to shape using zero strides for the
// broadcast dimensions.
func (l Layout) BroadcastAs(shape Shape) (Layout, error) {
	if len(shape) < l.Rank() {
		return Layout{}, fmt.Errorf("layout: cannot broadcast %v to lower rank %v", l.shape, shape)
	}
	extra := len(shape) - l.Rank()
	stride := make([]int, len(shape))
	for i := range shape {
		if i < extra {
			continue
		}
		src := l.shape[i-extra]
		switch {
		case src == shape[i]:
			stride[i] = l.stride[i-extra]
		case src == 1:
			stride[i] = 0
		default:
			return Layout{}, fmt.Errorf("layout: cannot broadcast %v to %v", l.shape, shape)
		}
	}
	return Layout{shape: shape.Clone(), stride: stride, startOffset: l.startOffset}, nil
}

// String implements fmt.Stringer.
func (l Layout) String() string {
	return fmt.Sprintf("Layout{shape=%v stride=%v offset=%d}", l.shape, l.stride, l.startOffset)
}
