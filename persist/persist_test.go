package persist

import (
	"bytes"
	"math"
	"testing"

	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/encoder"
	"github.com/csxmv/csxmv/internal/cerr"
	"github.com/csxmv/csxmv/kernel"
	"github.com/csxmv/csxmv/mtbuild"
	"github.com/csxmv/csxmv/partition"
)

func almostEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func buildNonSymmetric(t *testing.T) ([]*mtbuild.Worker, int) {
	t.Helper()
	const n = 6
	ts := []partition.Triple{
		{Row: 0, Col: 0, Value: 1},
		{Row: 0, Col: 3, Value: 2},
		{Row: 1, Col: 1, Value: 3},
		{Row: 2, Col: 2, Value: 4},
		{Row: 2, Col: 5, Value: 5},
		{Row: 3, Col: 0, Value: 6},
		{Row: 4, Col: 4, Value: 7},
		{Row: 5, Col: 1, Value: 8},
	}
	workers, err := mtbuild.Build(ts, mtbuild.Plan{
		NRows: n, NCols: n, NrThreads: 3,
		EncoderConfig: encoder.DefaultConfig(),
		Candidates:    []element.Encoding{element.H},
	})
	if err != nil {
		t.Fatalf("mtbuild.Build: %v", err)
	}
	return workers, n
}

func buildSymmetric(t *testing.T) ([]*mtbuild.Worker, int) {
	t.Helper()
	const n = 4
	lowerAndDiag := []partition.Triple{
		{Row: 0, Col: 0, Value: 2},
		{Row: 1, Col: 0, Value: 1},
		{Row: 1, Col: 1, Value: 2},
		{Row: 2, Col: 1, Value: 1},
		{Row: 2, Col: 2, Value: 2},
		{Row: 3, Col: 2, Value: 1},
		{Row: 3, Col: 3, Value: 2},
	}
	workers, err := mtbuild.Build(lowerAndDiag, mtbuild.Plan{
		NRows: n, NCols: n, NrThreads: 2, Symmetric: true,
		EncoderConfig: encoder.DefaultConfig(),
		Candidates:    []element.Encoding{element.H},
	})
	if err != nil {
		t.Fatalf("mtbuild.Build: %v", err)
	}
	return workers, n
}

func runNonSymmetric(workers []*mtbuild.Worker, n int, x []float64, alpha, beta float64) []float64 {
	y := make([]float64, n)
	for _, w := range workers {
		if err := kernel.RunNonSymmetric(w, x, y, alpha, beta); err != nil {
			panic(err)
		}
	}
	return y
}

func runSymmetric(workers []*mtbuild.Worker, n int, x []float64, alpha, beta float64) []float64 {
	y := make([]float64, n)
	localBufs := make([][]float64, len(workers))
	for i, w := range workers {
		if err := kernel.RunSymmetric(w, x, y, alpha, beta); err != nil {
			panic(err)
		}
		localBufs[i] = append([]float64(nil), w.LocalBuf...)
	}
	for _, w := range workers {
		kernel.ReduceInto(w, y, func(srcWorker int) []float64 { return localBufs[srcWorker] })
	}
	return y
}

func TestSaveRestoreRoundTripNonSymmetric(t *testing.T) {
	workers, n := buildNonSymmetric(t)
	x := []float64{1, 2, 3, 4, 5, 6}
	alpha := 2.0
	want := runNonSymmetric(workers, n, x, alpha, 0)

	var buf bytes.Buffer
	if err := Save(&buf, workers, n, false, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, ncols, symmetric, perm, err := Restore(&buf)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if symmetric {
		t.Fatalf("symmetric = true, want false")
	}
	if ncols != n {
		t.Fatalf("ncols = %d, want %d", ncols, n)
	}
	if perm != nil {
		t.Fatalf("permutation = %v, want nil for an unreordered save", perm)
	}

	got := runNonSymmetric(restored, n, x, alpha, 0)
	if !almostEqual(got, want) {
		t.Fatalf("restored SpMV = %v, want %v", got, want)
	}
}

func TestSaveRestoreRoundTripSymmetric(t *testing.T) {
	workers, n := buildSymmetric(t)
	x := []float64{1, 2, 3, 4}
	alpha := 1.0
	want := runSymmetric(workers, n, x, alpha, 0)

	var buf bytes.Buffer
	if err := Save(&buf, workers, n, true, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, ncols, symmetric, perm, err := Restore(&buf)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !symmetric {
		t.Fatalf("symmetric = false, want true")
	}
	if ncols != n {
		t.Fatalf("ncols = %d, want %d", ncols, n)
	}
	if perm != nil {
		t.Fatalf("permutation = %v, want nil for an unreordered save", perm)
	}

	got := runSymmetric(restored, n, x, alpha, 0)
	if !almostEqual(got, want) {
		t.Fatalf("restored SpMV = %v, want %v", got, want)
	}
}

func TestSaveRestoreCarriesPermutation(t *testing.T) {
	workers, n := buildNonSymmetric(t)
	perm := []int{5, 4, 3, 2, 1, 0}

	var buf bytes.Buffer
	if err := Save(&buf, workers, n, false, perm); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, ncols, _, gotPerm, err := Restore(&buf)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if ncols != n {
		t.Fatalf("ncols = %d, want %d", ncols, n)
	}
	if len(gotPerm) != len(perm) {
		t.Fatalf("permutation = %v, want %v", gotPerm, perm)
	}
	for i, v := range perm {
		if gotPerm[i] != v {
			t.Fatalf("permutation[%d] = %d, want %d", i, gotPerm[i], v)
		}
	}
}

func TestRestoreRejectsBadMagic(t *testing.T) {
	workers, n := buildNonSymmetric(t)
	var buf bytes.Buffer
	if err := Save(&buf, workers, n, false, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	corrupted := buf.Bytes()
	corrupted[0] ^= 0xff

	_, _, _, _, err := Restore(bytes.NewReader(corrupted))
	if !isBadArchive(err) {
		t.Fatalf("expected BadArchive for corrupted magic, got %v", err)
	}
}

func TestRestoreRejectsTruncatedArchive(t *testing.T) {
	workers, n := buildNonSymmetric(t)
	var buf bytes.Buffer
	if err := Save(&buf, workers, n, false, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	truncated := buf.Bytes()[:len(buf.Bytes())/2]

	_, _, _, _, err := Restore(bytes.NewReader(truncated))
	if !isBadArchive(err) {
		t.Fatalf("expected BadArchive for truncated archive, got %v", err)
	}
}

func TestRestoreRejectsPermutationSizeMismatch(t *testing.T) {
	workers, n := buildNonSymmetric(t)
	var buf bytes.Buffer
	if err := Save(&buf, workers, n, false, []int{1, 0}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, _, _, _, err := Restore(&buf)
	if !isBadArchive(err) {
		t.Fatalf("expected BadArchive for a permutation whose length != ncols, got %v", err)
	}
}

func isBadArchive(err error) bool {
	return cerr.Is(err, cerr.BadArchive)
}
