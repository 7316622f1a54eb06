package vector

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func newFrom(vals []float64) *Vector {
	v := Create(len(vals), Std)
	copy(v.Slice(), vals)
	return v
}

func TestCreateInitAndAccessors(t *testing.T) {
	v := Create(5, Std)
	v.Init(3)
	for i := 0; i < 5; i++ {
		if v.AtVec(i) != 3 {
			t.Fatalf("AtVec(%d) = %v, want 3", i, v.AtVec(i))
		}
	}
	if r, c := v.Dims(); r != 5 || c != 1 {
		t.Fatalf("Dims() = (%d,%d), want (5,1)", r, c)
	}
}

func TestInitPartBoundsChecked(t *testing.T) {
	v := Create(5, Std)
	if err := v.InitPart(9, 2, 4); err != nil {
		t.Fatalf("InitPart: %v", err)
	}
	want := []float64{0, 0, 9, 9, 0}
	for i, w := range want {
		if v.AtVec(i) != w {
			t.Fatalf("AtVec(%d) = %v, want %v", i, v.AtVec(i), w)
		}
	}
	if err := v.InitPart(1, -1, 3); err == nil {
		t.Fatalf("expected error for negative start")
	}
	if err := v.InitPart(1, 3, 99); err == nil {
		t.Fatalf("expected error for end beyond length")
	}
}

func TestInitFromMap(t *testing.T) {
	v := Create(5, Std)
	if err := v.InitFromMap([]float64{10, 20}, []int{1, 3}); err != nil {
		t.Fatalf("InitFromMap: %v", err)
	}
	want := []float64{0, 10, 0, 20, 0}
	for i, w := range want {
		if v.AtVec(i) != w {
			t.Fatalf("AtVec(%d) = %v, want %v", i, v.AtVec(i), w)
		}
	}
	if err := v.InitFromMap([]float64{1}, []int{1, 2}); err == nil {
		t.Fatalf("expected error for length mismatch")
	}
	if err := v.InitFromMap([]float64{1}, []int{99}); err == nil {
		t.Fatalf("expected error for out-of-range index")
	}
}

func TestAddSubScale(t *testing.T) {
	a := newFrom([]float64{0, 1, 0, 2, 1, 0})
	b := newFrom([]float64{1, 1, 0, 1, 0, 0})

	if err := a.AddVec(b); err != nil {
		t.Fatalf("AddVec: %v", err)
	}
	want := []float64{1, 2, 0, 3, 1, 0}
	for i, w := range want {
		if a.AtVec(i) != w {
			t.Fatalf("after AddVec, AtVec(%d) = %v, want %v", i, a.AtVec(i), w)
		}
	}

	if err := a.SubVec(b); err != nil {
		t.Fatalf("SubVec: %v", err)
	}
	orig := []float64{0, 1, 0, 2, 1, 0}
	for i, w := range orig {
		if a.AtVec(i) != w {
			t.Fatalf("after SubVec, AtVec(%d) = %v, want %v", i, a.AtVec(i), w)
		}
	}

	a.ScaleVec(2)
	for i, w := range orig {
		if a.AtVec(i) != 2*w {
			t.Fatalf("after ScaleVec, AtVec(%d) = %v, want %v", i, a.AtVec(i), 2*w)
		}
	}
}

func TestDotAndScaleAdd(t *testing.T) {
	a := newFrom([]float64{1, 2, 3})
	b := newFrom([]float64{4, 5, 6})

	dot, err := a.Dot(b)
	if err != nil {
		t.Fatalf("Dot: %v", err)
	}
	if dot != 1*4+2*5+3*6 {
		t.Fatalf("Dot = %v, want %v", dot, 1*4+2*5+3*6)
	}

	y := newFrom([]float64{1, 1, 1})
	if err := y.ScaleAdd(2, a); err != nil {
		t.Fatalf("ScaleAdd: %v", err)
	}
	want := []float64{3, 5, 7}
	for i, w := range want {
		if y.AtVec(i) != w {
			t.Fatalf("AtVec(%d) = %v, want %v", i, y.AtVec(i), w)
		}
	}
}

func TestCompare(t *testing.T) {
	a := newFrom([]float64{1, 2, 3})
	b := newFrom([]float64{1.0000001, 2, 3})
	ok, err := a.Compare(b, 1e-3)
	if err != nil || !ok {
		t.Fatalf("Compare within tolerance: ok=%v err=%v", ok, err)
	}
	ok, err = a.Compare(b, 1e-12)
	if err != nil || ok {
		t.Fatalf("Compare outside tolerance should fail: ok=%v err=%v", ok, err)
	}
}

func TestCreateFromBufferSharedWritesBack(t *testing.T) {
	buf := []float64{1, 2, 3}
	v, err := CreateFromBuffer(buf, 3, Shared)
	if err != nil {
		t.Fatalf("CreateFromBuffer: %v", err)
	}
	v.SetVec(1, 99)
	v.Close()
	if buf[1] != 99 {
		t.Fatalf("buf[1] = %v, want 99 after Close on a Shared view", buf[1])
	}
}

func TestCreateFromBufferCopiedDoesNotWriteBack(t *testing.T) {
	buf := []float64{1, 2, 3}
	v, err := CreateFromBuffer(buf, 3, Copied)
	if err != nil {
		t.Fatalf("CreateFromBuffer: %v", err)
	}
	v.SetVec(1, 99)
	v.Close()
	if buf[1] != 2 {
		t.Fatalf("buf[1] = %v, want unchanged 2 after Close on a Copied view", buf[1])
	}
}

func TestCreateFromBufferSizeMismatch(t *testing.T) {
	if _, err := CreateFromBuffer([]float64{1, 2}, 3, Shared); err == nil {
		t.Fatalf("expected error for size mismatch")
	}
}

func TestCreateInterleavedValidatesSum(t *testing.T) {
	if _, err := CreateInterleaved(5, []int{2, 2}, []int{0, 1}); err == nil {
		t.Fatalf("expected error when sum(parts) != size")
	}
	v, err := CreateInterleaved(5, []int{2, 3}, []int{0, 1})
	if err != nil {
		t.Fatalf("CreateInterleaved: %v", err)
	}
	if v.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", v.Len())
	}
}

func TestVectorImplementsMatVector(t *testing.T) {
	v := newFrom([]float64{1, 2, 3})
	dense := mat.NewVecDense(3, []float64{1, 2, 3})
	if !mat.Equal(dense, v) {
		t.Fatalf("Vector does not compare equal to an equivalent VecDense")
	}
}
