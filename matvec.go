package csxmv

import (
	"github.com/csxmv/csxmv/internal/cerr"
	"github.com/csxmv/csxmv/internal/csrio"
	"github.com/csxmv/csxmv/kernel"
)

// MatVecKernel implements spec.md §4.13's matvec_kernel(alpha, A, x,
// beta, y): y <- alpha*A*x + beta*y, dispatched across m's tuned worker
// pool. For a symmetric matrix it runs the two-phase reduction protocol
// (C10): each worker's own contributions and cross-worker local-buffer
// writes in phase one, then every worker drains the reduction map built
// at tune time in phase two, the pool's second Dispatch acting as the
// barrier between them.
func (m *Matrix) MatVecKernel(alpha float64, x []float64, beta float64, y []float64) error {
	if len(x) != m.ncols {
		return cerr.New("MatVecKernel", cerr.DimensionMismatch, "len(x) %d != ncols %d", len(x), m.ncols)
	}
	if len(y) != m.nrows {
		return cerr.New("MatVecKernel", cerr.DimensionMismatch, "len(y) %d != nrows %d", len(y), m.nrows)
	}

	// errs is one slot per worker, each written only by that worker's own
	// Dispatch callback, so no synchronization is needed to collect them.
	errs := make([]error, len(m.workers))

	if !m.symmetric {
		m.pool.Dispatch(func(slot int) {
			if slot >= len(m.workers) {
				return
			}
			errs[slot] = kernel.RunNonSymmetric(m.workers[slot], x, y, alpha, beta)
		})
		return firstOf(errs)
	}

	m.pool.Dispatch(func(slot int) {
		if slot >= len(m.workers) {
			return
		}
		errs[slot] = kernel.RunSymmetric(m.workers[slot], x, y, alpha, beta)
	})
	if err := firstOf(errs); err != nil {
		return err
	}

	localBufOf := func(srcWorker int) []float64 { return m.workers[srcWorker].LocalBuf }
	m.pool.Dispatch(func(slot int) {
		if slot >= len(m.workers) {
			return
		}
		kernel.ReduceInto(m.workers[slot], y, localBufOf)
	})
	return nil
}

func firstOf(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// MatVecKernelCSR implements spec.md §4.13's matvec_kernel_csr: the
// CSR-direct reference path, bypassing CSX/jit and m's worker pool
// entirely, for callers who hold raw CSR arrays rather than a tuned
// Matrix.
func MatVecKernelCSR(a *csrio.Matrix, alpha float64, x []float64, beta float64, y []float64) error {
	return a.MatVec(alpha, x, beta, y)
}
