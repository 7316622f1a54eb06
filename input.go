package csxmv

import (
	"os"

	"github.com/csxmv/csxmv/internal/cerr"
	"github.com/csxmv/csxmv/internal/csrio"
	"github.com/csxmv/csxmv/internal/mmf"
	"github.com/csxmv/csxmv/partition"
)

// Input is the opaque handle spec.md §4.13 names for a matrix still in
// triple form, before mat_tune builds it into a tuned Matrix. It is the
// boundary between an external format (Matrix Market text, caller-owned
// CSR arrays) and the engine's internal (row, col, value) triple stream.
type Input struct {
	NRows, NCols int

	// FileSymmetric records whether the source declared itself
	// symmetric (an MMF %%MatrixMarket header's "symmetric" token); it
	// is informational only — MatTune's own symmetric flag decides
	// storage, since a caller may legitimately tune a symmetric file
	// as general storage or vice versa.
	FileSymmetric bool

	triples     []partition.Triple
	permutation []int
}

// InputLoadMMF reads a Matrix Market Coordinate file from path, per
// spec.md §6's <mmf_file> CLI argument.
func InputLoadMMF(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerr.Wrap("InputLoadMMF", cerr.FileOpen, err, "opening %q", path)
	}
	defer f.Close()

	hdr, triples, err := mmf.Parse(f)
	if err != nil {
		return nil, err
	}
	return &Input{
		NRows:         hdr.NRows,
		NCols:         hdr.NCols,
		FileSymmetric: hdr.Symmetry == mmf.SymmetricStorage,
		triples:       triples,
	}, nil
}

// InputLoadCSR wraps a caller-supplied CSR matrix (already validated by
// csrio.New) as an Input, expanding it into the triple stream mat_tune
// expects.
func InputLoadCSR(m *csrio.Matrix) (*Input, error) {
	triples := make([]partition.Triple, 0, m.NNZ())
	for i := 0; i < m.NRows; i++ {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			triples = append(triples, partition.Triple{
				Row:   i,
				Col:   m.ColInd[k] - m.Base,
				Value: m.Values[k],
			})
		}
	}
	return &Input{NRows: m.NRows, NCols: m.NCols, triples: triples}, nil
}

// SetPermutation records a pre-computed row/column permutation for
// mat_tune to apply (SPEC_FULL.md §4): perm[i] is the new index of
// original row/column i. This module implements no reordering algorithm
// of its own (reverse Cuthill-McKee is named an out-of-scope external
// collaborator) — perm must already be a valid permutation computed
// upstream. Only applicable to square matrices, since a permutation that
// relabels both the row and column space requires NRows == NCols.
func (in *Input) SetPermutation(perm []int) error {
	if in.NRows != in.NCols {
		return cerr.New("SetPermutation", cerr.InvalidArgument, "permutation requires a square matrix, got %dx%d", in.NRows, in.NCols)
	}
	if len(perm) != in.NRows {
		return cerr.New("SetPermutation", cerr.DimensionMismatch, "len(perm) %d != NRows %d", len(perm), in.NRows)
	}
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return cerr.New("SetPermutation", cerr.InvalidArgument, "perm is not a valid permutation of [0,%d)", len(perm))
		}
		seen[p] = true
	}
	in.permutation = perm
	return nil
}

func (in *Input) applyPermutation() []partition.Triple {
	if in.permutation == nil {
		return in.triples
	}
	out := make([]partition.Triple, len(in.triples))
	for i, t := range in.triples {
		out[i] = partition.Triple{Row: in.permutation[t.Row], Col: in.permutation[t.Col], Value: t.Value}
	}
	sortTriplesByRow(out)
	return out
}
