// Package kernel implements per-worker SpMV dispatch and the symmetric
// reduction protocol of spec.md §4.10: walking a worker's CSX ctl stream,
// routing each pattern's jit-specialized contributions either directly
// into y or through a local buffer/reduction map, and applying beta
// scaling and the diagonal tail.
package kernel

import (
	"github.com/csxmv/csxmv/csx"
	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/jit"
	"github.com/csxmv/csxmv/mtbuild"
)

// RunNonSymmetric implements spec.md §4.10's non-symmetric path for one
// worker: y[row_range] *= beta (skipped when beta == 1), then
// y += alpha * A_local * x, writing only within the worker's own row
// range.
func RunNonSymmetric(w *mtbuild.Worker, x, y []float64, alpha, beta float64) error {
	scaleRange(y, w.RowStart, w.NRows, beta)

	add := func(row, col int, scaled float64) {
		y[row] += scaled * x[col]
	}
	return walk(w.Csx, w.Kernels, w.RowStart, alpha, add)
}

// RunSymmetric implements spec.md §4.10's symmetric path for one worker,
// steps 3-5 (the caller is responsible for the surrounding barriers and
// the cross-worker add-from-map step, ReduceInto, since those require
// coordinating with every other worker's local buffer).
func RunSymmetric(w *mtbuild.Worker, x, y []float64, alpha, beta float64) error {
	scaleRange(y, w.RowStart, w.NRows, beta)
	for i := range w.LocalBuf {
		w.LocalBuf[i] = 0
	}

	rowEnd := w.RowStart + w.NRows
	add := func(row, col int, scaled float64) {
		// row, as emitted by the lower-triangle CSX, is this worker's own
		// row; col is the (possibly foreign) column. spec.md §4.10 step 4:
		// the direct term y[row] += alpha*a_ij*x[col] always lands here;
		// the mirrored term alpha*a_ij*x[row] is destined for index col,
		// so it goes to y directly once col falls in this worker's own
		// range, and to local_buf (for the reduction map to pick up later)
		// otherwise. The two terms use the scaled value against different
		// x entries — x[col] for the direct term, x[row] for the mirror —
		// since a_ij == a_ji is the one value shared by both.
		y[row] += scaled * x[col]
		if col >= w.RowStart && col < rowEnd {
			y[col] += scaled * x[row]
		} else {
			w.LocalBuf[col] += scaled * x[row]
		}
	}
	if err := walk(w.CsxSym.Lower, w.Kernels, w.RowStart, alpha, add); err != nil {
		return err
	}

	for i, d := range w.CsxSym.Diag {
		row := w.RowStart + i
		y[row] += alpha * d * x[row]
	}
	return nil
}

// ReduceInto implements spec.md §4.10 step 7: for each (src, idx) in w's
// reduction map, y[idx] += localBufOf(src)[idx]. Callers invoke this
// after the reduction barrier, once every worker's local buffer from
// RunSymmetric is visible.
func ReduceInto(w *mtbuild.Worker, y []float64, localBufOf func(srcWorker int) []float64) {
	for _, e := range w.ReductionMap {
		y[e.Idx] += localBufOf(e.SrcWorker)[e.Idx]
	}
}

func scaleRange(y []float64, start, n int, beta float64) {
	if beta == 1 {
		return
	}
	for i := start; i < start+n; i++ {
		y[i] *= beta
	}
}

// walk interprets c's ctl stream unit by unit, dispatching each pattern
// unit to its jit-specialized term function and each delta unit to a
// direct singleton add, delivering every alpha*a_ij term through add
// unmultiplied by any x entry — add's caller (RunNonSymmetric's or
// RunSymmetric's closure) decides which x entries to apply it to. row is
// local to c (0-based within the worker's own row range); rowStart
// translates it back to the global row index both x and y are indexed by.
func walk(c *csx.Csx, kernels *jit.Registry, rowStart int, alpha float64, add jit.AddFunc) error {
	return c.Walk(func(localRow, col, patternID int, values []float64) {
		row := rowStart + localRow
		if patternID == element.NoPattern {
			add(row, col, alpha*values[0])
			return
		}
		fn, ok := kernels.Lookup(patternID)
		if !ok {
			// Specialize (run at build time) already validated every id in
			// the stream; reaching here would mean the stream and registry
			// have drifted out of sync.
			panic("kernel: pattern id not found in registry")
		}
		fn(row, col, values, alpha, add)
	})
}
