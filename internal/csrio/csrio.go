// Package csrio implements the CSR ingestion boundary concern of
// spec.md §6 ("CSR ingestion") and the matvec_kernel_csr entry point
// SPEC_FULL.md §4 adds as a supplemented feature alongside the facade's
// CSX path: `rowptr[nrows+1]` (monotonic), `colind[nnz]` (within
// `[base, base+ncols)`), `values[nnz]`, and a base flag. The row-major
// y <- alpha*A*x + beta*y routine follows the sparse-BLAS
// Dusmv/Dusdot/Dusaxpy shape of original_source/lib/spm/spmv_crs.c.
package csrio

import "github.com/csxmv/csxmv/internal/cerr"

// Matrix is a read-only view over caller-owned CSR arrays: row i's
// entries are colind[rowptr[i]:rowptr[i+1]] / values[rowptr[i]:rowptr[i+1]].
// Base is 0 or 1, matching spec.md §6's base flag; column indices are
// stored as given (Base-relative) and adjusted on read.
type Matrix struct {
	NRows, NCols int
	Base         int
	RowPtr       []int
	ColInd       []int
	Values       []float64
}

// New validates rowptr/colind/values/base per spec.md §6 and returns a
// Matrix view over them. rowptr must be monotonically non-decreasing
// and have length nrows+1; every column index must fall within
// [base, base+ncols).
func New(nrows, ncols int, rowptr, colind []int, values []float64, base int) (*Matrix, error) {
	if base != 0 && base != 1 {
		return nil, cerr.New("csrio.New", cerr.InvalidArgument, "base must be 0 or 1, got %d", base)
	}
	if len(rowptr) != nrows+1 {
		return nil, cerr.New("csrio.New", cerr.DimensionMismatch, "len(rowptr) %d != nrows+1 %d", len(rowptr), nrows+1)
	}
	for i := 1; i < len(rowptr); i++ {
		if rowptr[i] < rowptr[i-1] {
			return nil, cerr.New("csrio.New", cerr.InvalidArgument, "rowptr not monotonic at row %d", i)
		}
	}
	nnz := rowptr[len(rowptr)-1] - rowptr[0]
	if len(colind) < nnz || len(values) < nnz {
		return nil, cerr.New("csrio.New", cerr.DimensionMismatch, "colind/values shorter than nnz=%d implied by rowptr", nnz)
	}
	for _, c := range colind[:nnz] {
		if c < base || c >= base+ncols {
			return nil, cerr.New("csrio.New", cerr.IndexOutOfBounds, "column index %d out of bounds [%d,%d)", c, base, base+ncols)
		}
	}
	return &Matrix{NRows: nrows, NCols: ncols, Base: base, RowPtr: rowptr, ColInd: colind, Values: values}, nil
}

// NNZ returns the number of stored nonzeros.
func (m *Matrix) NNZ() int { return m.RowPtr[m.NRows] - m.RowPtr[0] }

// MatVec computes y <- alpha*A*x + beta*y directly over the CSR arrays,
// per spec.md §4.13's matvec_kernel_csr(&A, nr, nc, rowptr, colind,
// values, alpha, x, beta, y). This bypasses CSX/jit entirely: it is a
// standalone entry point for callers who only have a CSR matrix and do
// not want to pay C5-C9's tuning cost.
func (m *Matrix) MatVec(alpha float64, x []float64, beta float64, y []float64) error {
	if len(x) != m.NCols {
		return cerr.New("MatVec", cerr.DimensionMismatch, "len(x) %d != ncols %d", len(x), m.NCols)
	}
	if len(y) != m.NRows {
		return cerr.New("MatVec", cerr.DimensionMismatch, "len(y) %d != nrows %d", len(y), m.NRows)
	}
	off := m.RowPtr[0]
	if beta == 0 {
		for i := range y {
			y[i] = 0
		}
	} else if beta != 1 {
		for i := range y {
			y[i] *= beta
		}
	}
	if alpha == 0 {
		return nil
	}
	for i := 0; i < m.NRows; i++ {
		start, end := m.RowPtr[i]-off, m.RowPtr[i+1]-off
		var acc float64
		for k := start; k < end; k++ {
			acc += m.Values[k] * x[m.ColInd[k]-m.Base]
		}
		y[i] += alpha * acc
	}
	return nil
}

// At returns A[i,j], scanning row i's run for column j; O(row length),
// the same linear-scan shape compressedSparse.at uses for its own row
// lookup.
func (m *Matrix) At(i, j int) (float64, error) {
	if i < 0 || i >= m.NRows {
		return 0, cerr.New("At", cerr.IndexOutOfBounds, "row %d out of bounds [0,%d)", i, m.NRows)
	}
	if j < 0 || j >= m.NCols {
		return 0, cerr.New("At", cerr.IndexOutOfBounds, "col %d out of bounds [0,%d)", j, m.NCols)
	}
	off := m.RowPtr[0]
	start, end := m.RowPtr[i]-off, m.RowPtr[i+1]-off
	for k := start; k < end; k++ {
		if m.ColInd[k]-m.Base == j {
			return m.Values[k], nil
		}
	}
	return 0, nil
}
