package csrio

import (
	"math"
	"testing"
)

// [[1,0,2],
//  [0,3,0],
//  [4,0,5]]
func sample(t *testing.T, base int) *Matrix {
	t.Helper()
	shift := func(v int) int { return v + base }
	rowptr := []int{shift(0), shift(2), shift(3), shift(5)}
	colind := []int{shift(0), shift(2), shift(1), shift(0), shift(2)}
	values := []float64{1, 2, 3, 4, 5}
	m, err := New(3, 3, rowptr, colind, values, base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestMatVec(t *testing.T) {
	for _, base := range []int{0, 1} {
		m := sample(t, base)
		x := []float64{1, 2, 3}
		y := []float64{10, 10, 10}
		if err := m.MatVec(2, x, 1, y); err != nil {
			t.Fatalf("MatVec: %v", err)
		}
		want := []float64{10 + 2*(1*1+2*3), 10 + 2*(3*2), 10 + 2*(4*1+5*3)}
		for i := range want {
			if math.Abs(y[i]-want[i]) > 1e-9 {
				t.Fatalf("base=%d y[%d] = %v, want %v", base, i, y[i], want[i])
			}
		}
	}
}

func TestMatVecBetaZeroIgnoresY(t *testing.T) {
	m := sample(t, 0)
	x := []float64{1, 1, 1}
	y := []float64{math.NaN(), math.NaN(), math.NaN()}
	if err := m.MatVec(1, x, 0, y); err != nil {
		t.Fatalf("MatVec: %v", err)
	}
	want := []float64{3, 3, 9}
	for i := range want {
		if y[i] != want[i] {
			t.Fatalf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestAt(t *testing.T) {
	m := sample(t, 1)
	if v, err := m.At(0, 2); err != nil || v != 2 {
		t.Fatalf("At(0,2) = %v, %v, want 2", v, err)
	}
	if v, err := m.At(1, 0); err != nil || v != 0 {
		t.Fatalf("At(1,0) = %v, %v, want 0", v, err)
	}
	if _, err := m.At(5, 0); err == nil {
		t.Fatalf("expected out-of-bounds error")
	}
}

func TestNewRejectsBadShape(t *testing.T) {
	if _, err := New(2, 2, []int{0, 1}, []int{0}, []float64{1}, 0); err == nil {
		t.Fatalf("expected error for rowptr length != nrows+1")
	}
	if _, err := New(2, 2, []int{0, 2, 1}, []int{0, 1}, []float64{1, 1}, 0); err == nil {
		t.Fatalf("expected error for non-monotonic rowptr")
	}
	if _, err := New(1, 2, []int{0, 1}, []int{5}, []float64{1}, 0); err == nil {
		t.Fatalf("expected error for out-of-bounds column index")
	}
	if _, err := New(1, 2, []int{0, 1}, []int{0}, []float64{1}, 2); err == nil {
		t.Fatalf("expected error for invalid base")
	}
}
