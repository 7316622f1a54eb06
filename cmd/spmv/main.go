// Command spmv is the benchmarking tool spec.md §6 names: it loads one
// or more Matrix Market files, tunes each into a CSX (or CSX-Sym, under
// -s) matrix, runs a single SpMV against an all-ones vector, and prints
// the elapsed wall time per file.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/csxmv/csxmv"
	"github.com/csxmv/csxmv/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var symmetric bool
	var optionKVs []string

	cmd := &cobra.Command{
		Use:           "spmv [-s] [-o key=value]... <mmf_file>...",
		Short:         "Tune and benchmark sparse matrix-vector multiplication over Matrix Market files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), args, symmetric, optionKVs)
		},
	}

	cmd.Flags().BoolVarP(&symmetric, "symmetric", "s", false, "force CSX-Sym (symmetric, half-storage) tuning")
	cmd.Flags().StringArrayVarP(&optionKVs, "option", "o", nil, "set a dotted option key=value (repeatable)")
	return cmd
}

func run(out io.Writer, paths []string, symmetric bool, optionKVs []string) error {
	for _, path := range paths {
		if err := benchmarkOne(out, path, symmetric, optionKVs); err != nil {
			logging.Default.Errorf("%s: %v", path, err)
			return err
		}
	}
	return nil
}

func benchmarkOne(out io.Writer, path string, symmetric bool, optionKVs []string) error {
	in, err := csxmv.InputLoadMMF(path)
	if err != nil {
		return err
	}

	opts := csxmv.NewOptions()
	opts.LoadEnv()
	if symmetric {
		if err := opts.OptionSet(csxmv.OptSymmetric, "true"); err != nil {
			return err
		}
	}
	if err := opts.OptionSetAll(optionKVs); err != nil {
		return err
	}

	m, err := csxmv.MatTune(in, opts)
	if err != nil {
		return err
	}
	defer m.Destroy()

	x := make([]float64, m.NCols())
	for i := range x {
		x[i] = 1
	}
	y := make([]float64, m.NRows())

	start := time.Now()
	if err := m.MatVecKernel(1, x, 0, y); err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprintf(out, "%s: %dx%d, %d workers, symmetric=%v, spmv=%s\n",
		path, m.NRows(), m.NCols(), len(m.MatGetPartition()), m.Symmetric(), elapsed)
	return nil
}
