package webgpu

import (
	"github.com/born-ml/born-wgpu/internal/tensor"
)

// Affine computes x*mul + add element-wise.
func (s *Storage) Affine(l tensor.Layout, mul, add float64) (*Storage, error) {
	if err := checkDType("affine", s.dtype); err != nil {
		return nil, err
	}
	if err := s.checkSpan("affine", l); err != nil {
		return nil, err
	}
	p, err := planAffine(l, mul, add)
	if err != nil {
		return nil, err
	}
	return s.device.launch(EntryAffine, s.dtype, l.NumElements(), p, l.NumElements(), s)
}

// Powf raises every element to e.
func (s *Storage) Powf(l tensor.Layout, e float64) (*Storage, error) {
	return s.unaryWith("powf", EntryPowf, l, e)
}

// Elu applies the exponential linear unit with the given alpha.
func (s *Storage) Elu(l tensor.Layout, alpha float64) (*Storage, error) {
	return s.unaryWith("elu", EntryElu, l, alpha)
}

// Unary applies op element-wise.
func (s *Storage) Unary(op tensor.UnaryOp, l tensor.Layout) (*Storage, error) {
	if op.String() == "unknown" {
		return nil, unsupported("unary", s.dtype, "unknown op %d", int(op))
	}
	return s.unaryWith("unary", unaryEntry(op), l, 0)
}

func (s *Storage) unaryWith(op string, entry Entry, l tensor.Layout, alpha float64) (*Storage, error) {
	if err := checkDType(op, s.dtype); err != nil {
		return nil, err
	}
	if err := s.checkSpan(op, l); err != nil {
		return nil, err
	}
	p, err := planUnary(l, alpha)
	if err != nil {
		return nil, err
	}
	return s.device.launch(entry, s.dtype, l.NumElements(), p, l.NumElements(), s)
}

// Binary applies op element-wise, broadcasting the operands against each
// other.
func (s *Storage) Binary(op tensor.BinaryOp, rhs *Storage, lhsLayout, rhsLayout tensor.Layout) (*Storage, error) {
	if op.String() == "unknown" {
		return nil, unsupported("binary", s.dtype, "unknown op %d", int(op))
	}
	if err := s.checkPair("binary", lhsLayout, rhs, rhsLayout); err != nil {
		return nil, err
	}
	p, shape, err := planBinary(op.String(), lhsLayout, rhsLayout)
	if err != nil {
		return nil, err
	}
	return s.device.launch(binaryEntry(op), s.dtype, shape.NumElements(), p, shape.NumElements(), s, rhs)
}

// Cmp compares element-wise. The result is a u8 storage of 0s and 1s.
func (s *Storage) Cmp(op tensor.CmpOp, rhs *Storage, lhsLayout, rhsLayout tensor.Layout) (*Storage, error) {
	if op.String() == "unknown" {
		return nil, unsupported("cmp", s.dtype, "unknown op %d", int(op))
	}
	if err := s.checkPair("cmp", lhsLayout, rhs, rhsLayout); err != nil {
		return nil, err
	}
	p, shape, err := planBinary(op.String(), lhsLayout, rhsLayout)
	if err != nil {
		return nil, err
	}
	numel := shape.NumElements()
	return s.device.launch(cmpEntry(op), tensor.Uint8, numel, p, wordLen(tensor.Uint8, numel), s, rhs)
}

// checkPair validates two operands of op and the layouts they are read
// through.
func (s *Storage) checkPair(op string, l tensor.Layout, rhs *Storage, rl tensor.Layout) error {
	if err := checkDType(op, s.dtype); err != nil {
		return err
	}
	if err := s.sameDType(op, rhs); err != nil {
		return err
	}
	if err := s.sameDevice(op, rhs); err != nil {
		return err
	}
	if err := s.checkSpan(op, l); err != nil {
		return err
	}
	return rhs.checkSpan(op, rl)
}

// ReduceOp reduces over dims, keeping them with extent 1.
func (s *Storage) ReduceOp(op tensor.ReduceOp, l tensor.Layout, dims []int) (*Storage, error) {
	var entry Entry
	switch op {
	case tensor.ReduceSum:
		entry = EntryReduceSum
	case tensor.ReduceMin:
		entry = EntryReduceMin
	case tensor.ReduceMax:
		entry = EntryReduceMax
	default:
		return nil, unsupported("reduce_arg", s.dtype, "%s has no kernel", op)
	}
	if err := checkDType("reduce", s.dtype); err != nil {
		return nil, err
	}
	if err := s.checkSpan("reduce", l); err != nil {
		return nil, err
	}
	p, out, err := planReduce(l, dims)
	if err != nil {
		return nil, err
	}
	return s.device.launch(entry, s.dtype, out.NumElements(), p, out.NumElements(), s)
}

// WhereCond has no kernel.
func (s *Storage) WhereCond(_ tensor.Layout, _ *Storage, _ tensor.Layout, _ *Storage, _ tensor.Layout) (*Storage, error) {
	return nil, unsupported("where_cond", s.dtype, "")
}
