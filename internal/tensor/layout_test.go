package tensor

import (
	"testing"
)

func TestContiguousLayout(t *testing.T) {
	l := Contiguous(Shape{2, 3, 4})

	if got := l.Stride(); !Shape(got).Equal(Shape{12, 4, 1}) {
		t.Errorf("Stride() = %v, want [12 4 1]", got)
	}
	if !l.IsContiguous() {
		t.Error("row-major layout should be contiguous")
	}
	start, end, ok := l.ContiguousOffsets()
	if !ok || start != 0 || end != 24 {
		t.Errorf("ContiguousOffsets() = (%d, %d, %v), want (0, 24, true)", start, end, ok)
	}
}

func TestLayoutTranspose(t *testing.T) {
	l, err := Contiguous(Shape{2, 3}).Transpose(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !l.Shape().Equal(Shape{3, 2}) {
		t.Errorf("Shape() = %v, want [3 2]", l.Shape())
	}
	if l.IsContiguous() {
		t.Error("transposed layout should not be contiguous")
	}
	if l.Span() != 6 {
		t.Errorf("Span() = %d, want 6", l.Span())
	}
	if _, err := l.Transpose(0, 2); err == nil {
		t.Error("expected error for out of range dim")
	}
}

func TestLayoutNarrow(t *testing.T) {
	l, err := Contiguous(Shape{4, 5}).Narrow(0, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if l.StartOffset() != 5 {
		t.Errorf("StartOffset() = %d, want 5", l.StartOffset())
	}
	if !l.IsContiguous() {
		t.Error("narrowing the outer dim keeps the layout contiguous")
	}

	inner, err := Contiguous(Shape{4, 5}).Narrow(1, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if inner.IsContiguous() {
		t.Error("narrowing the inner dim leaves gaps")
	}
	if _, err := inner.Narrow(1, 2, 5); err == nil {
		t.Error("expected error for out of range narrow")
	}
}

func TestLayoutBroadcastAs(t *testing.T) {
	l, err := Contiguous(Shape{3, 1}).BroadcastAs(Shape{2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 1, 0}
	for i, s := range l.Stride() {
		if s != want[i] {
			t.Fatalf("Stride() = %v, want %v", l.Stride(), want)
		}
	}
	if _, err := Contiguous(Shape{3, 2}).BroadcastAs(Shape{3, 4}); err == nil {
		t.Error("expected error for incompatible broadcast")
	}
}

func TestNewLayoutValidation(t *testing.T) {
	if _, err := NewLayout(Shape{2, 2}, []int{1}, 0); err == nil {
		t.Error("expected rank mismatch error")
	}
	if _, err := NewLayout(Shape{2}, []int{1}, -1); err == nil {
		t.Error("expected negative offset error")
	}
	l, err := NewLayout(Shape{3, 3}, []int{10, 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	// last element at 1 + 2*10 + 2*2 = 25
	if l.Span() != 26 {
		t.Errorf("Span() = %d, want 26", l.Span())
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b  Shape
		want  Shape
		bcast bool
		err   bool
	}{
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false, false},
		{Shape{5}, Shape{2, 5}, Shape{2, 5}, true, false},
		{Shape{3, 4}, Shape{3, 5}, nil, false, true},
	}
	for _, tt := range tests {
		got, bcast, err := BroadcastShapes(tt.a, tt.b)
		if tt.err {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v) expected error", tt.a, tt.b)
			}
			continue
		}
		if err != nil || !got.Equal(tt.want) || bcast != tt.bcast {
			t.Errorf("BroadcastShapes(%v, %v) = %v, %v, %v", tt.a, tt.b, got, bcast, err)
		}
	}
}
