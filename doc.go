/*
Package csxmv implements a sparse matrix-vector multiplication engine
built around the CSX (Compressed Sparse eXtended) format: a ctl/values
byte stream whose control bytes identify maximal runs of nonzeros
following a common geometric pattern (a run within a row, down a
column, along a diagonal, or inside a small dense block), so the
per-element bookkeeping an ordinary CSR SpMV pays for is instead paid
once per run.

A typical session loads a matrix from a Matrix Market file or a CSR
triple, tunes it into a partitioned, jit-specialized CSX representation
across a chosen number of worker threads, then repeatedly drives
matvec_kernel against that tuned representation:

	in, err := csxmv.InputLoadMMF("bcsstk01.mtx")
	if err != nil {
		log.Fatal(err)
	}
	opts := csxmv.NewOptions()
	opts.LoadEnv()
	m, err := csxmv.MatTune(in, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Destroy()

	y := make([]float64, m.NRows())
	if err := m.MatVecKernel(1, x, 0, y); err != nil {
		log.Fatal(err)
	}

Symmetric matrices (matrix.symmetric or -s at the CLI) are tuned into
the CsxSym half-storage variant instead, and matvec_kernel dispatches
to the symmetric reduction path transparently — callers never see the
difference beyond passing the flag at tune time.

Callers who already have CSR arrays can either load them with
InputLoadCSR and tune them like any other input, or call
MatVecKernelCSR, which multiplies directly over the CSR arrays and
bypasses CSX and jit entirely.
*/
package csxmv
