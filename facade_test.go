package csxmv

import (
	"bytes"
	"testing"

	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/partition"
	"github.com/stretchr/testify/require"
)

func newTestInput(nrows, ncols int, triples []partition.Triple, symmetric bool) *Input {
	return &Input{NRows: nrows, NCols: ncols, FileSymmetric: symmetric, triples: triples}
}

func tune(t *testing.T, in *Input, opts *Options) *Matrix {
	t.Helper()
	if opts == nil {
		opts = NewOptions()
	}
	m, err := MatTune(in, opts)
	require.NoError(t, err)
	t.Cleanup(m.Destroy)
	return m
}

// TestScenarioIdentity is spec.md §8 scenario 1: 3x3 identity, alpha=1,
// beta=0, x=(1,2,3) -> y=(1,2,3).
func TestScenarioIdentity(t *testing.T) {
	triples := []partition.Triple{{Row: 0, Col: 0, Value: 1}, {Row: 1, Col: 1, Value: 1}, {Row: 2, Col: 2, Value: 1}}
	in := newTestInput(3, 3, triples, false)
	opts := NewOptions()
	require.NoError(t, opts.OptionSet(OptNrThreads, "1"))
	m := tune(t, in, opts)

	x := []float64{1, 2, 3}
	y := make([]float64, 3)
	require.NoError(t, m.MatVecKernel(1, x, 0, y))
	require.InDeltaSlice(t, []float64{1, 2, 3}, y, 1e-12)
}

// TestScenarioTridiagonal is spec.md §8 scenario 2: 5x5 tridiagonal with
// diag=2, off=-1, x=all-ones, alpha=1, beta=0 -> y=(1,0,0,0,1).
func TestScenarioTridiagonal(t *testing.T) {
	var triples []partition.Triple
	n := 5
	for i := 0; i < n; i++ {
		triples = append(triples, partition.Triple{Row: i, Col: i, Value: 2})
		if i+1 < n {
			triples = append(triples, partition.Triple{Row: i, Col: i + 1, Value: -1})
			triples = append(triples, partition.Triple{Row: i + 1, Col: i, Value: -1})
		}
	}
	in := newTestInput(n, n, triples, false)
	opts := NewOptions()
	require.NoError(t, opts.OptionSet(OptNrThreads, "2"))
	m := tune(t, in, opts)

	x := []float64{1, 1, 1, 1, 1}
	y := make([]float64, n)
	require.NoError(t, m.MatVecKernel(1, x, 0, y))
	require.InDeltaSlice(t, []float64{1, 0, 0, 0, 1}, y, 1e-9)
}

// TestScenarioSymmetric is spec.md §8 scenario 4: symmetric 4x4
// [[2,1,0,0],[1,2,1,0],[0,1,2,1],[0,0,1,2]], x=(1,2,3,4), alpha=1,
// beta=1, y0=0 -> y=(4,8,12,11).
func TestScenarioSymmetric(t *testing.T) {
	triples := []partition.Triple{
		{Row: 0, Col: 0, Value: 2},
		{Row: 1, Col: 0, Value: 1},
		{Row: 1, Col: 1, Value: 2},
		{Row: 2, Col: 1, Value: 1},
		{Row: 2, Col: 2, Value: 2},
		{Row: 3, Col: 2, Value: 1},
		{Row: 3, Col: 3, Value: 2},
	}
	in := newTestInput(4, 4, triples, true)
	opts := NewOptions()
	require.NoError(t, opts.OptionSet(OptSymmetric, "true"))
	require.NoError(t, opts.OptionSet(OptNrThreads, "2"))
	m := tune(t, in, opts)
	require.True(t, m.Symmetric())

	x := []float64{1, 2, 3, 4}
	y := []float64{0, 0, 0, 0}
	require.NoError(t, m.MatVecKernel(1, x, 1, y))
	require.InDeltaSlice(t, []float64{4, 8, 12, 11}, y, 1e-9)
}

// TestScenarioSaveRestoreAllOnes is spec.md §8 scenario 5: round-trip
// encode/decode a 100x100 all-ones matrix; SpMV against x=1..100 after
// restore yields y_i = 5050 for every row (property P5).
func TestScenarioSaveRestoreAllOnes(t *testing.T) {
	n := 100
	var triples []partition.Triple
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			triples = append(triples, partition.Triple{Row: i, Col: j, Value: 1})
		}
	}
	in := newTestInput(n, n, triples, false)
	opts := NewOptions()
	require.NoError(t, opts.OptionSet(OptNrThreads, "4"))
	m := tune(t, in, opts)

	var buf bytes.Buffer
	require.NoError(t, m.MatSave(&buf))
	restored, err := MatRestore(&buf, nil)
	require.NoError(t, err)
	defer restored.Destroy()

	x := make([]float64, n)
	sum := 0.0
	for i := range x {
		x[i] = float64(i + 1)
		sum += x[i]
	}
	y := make([]float64, n)
	require.NoError(t, restored.MatVecKernel(1, x, 0, y))
	want := make([]float64, n)
	for i := range want {
		want[i] = sum
	}
	require.InDeltaSlice(t, want, y, 1e-6)
}

// TestScenarioXformParsing is spec.md §8 scenario 6: preproc.xform =
// "h,br{2,3},all" produces the sequence [(H, []), (BR, [2,3]), (All,
// [])]; an unknown name raises InvalidConfig.
func TestScenarioXformParsing(t *testing.T) {
	tokens, err := element.ParseSequence("h,br{2,3},all")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	require.Equal(t, element.SeqKind("h"), tokens[0].Name)
	require.Empty(t, tokens[0].Params)
	require.Equal(t, element.KindBR, tokens[1].Name)
	require.Equal(t, []int{2, 3}, tokens[1].Params)
	require.Equal(t, element.KindAll, tokens[2].Name)
	require.Empty(t, tokens[2].Params)

	_, err = element.ParseSequence("bogus")
	require.Error(t, err)
}

func TestMatGetSetEntry(t *testing.T) {
	triples := []partition.Triple{
		{Row: 0, Col: 0, Value: 1}, {Row: 0, Col: 3, Value: 2}, {Row: 0, Col: 6, Value: 3},
		{Row: 1, Col: 1, Value: 5},
	}
	in := newTestInput(2, 8, triples, false)
	opts := NewOptions()
	require.NoError(t, opts.OptionSet(OptXform, "h"))
	require.NoError(t, opts.OptionSet(OptNrThreads, "1"))
	m := tune(t, in, opts)

	v, err := m.MatGetEntry(0, 3)
	require.NoError(t, err)
	require.Equal(t, 2.0, v)

	require.NoError(t, m.MatSetEntry(0, 3, 99))
	v, err = m.MatGetEntry(0, 3)
	require.NoError(t, err)
	require.Equal(t, 99.0, v)

	_, err = m.MatGetEntry(0, 1)
	require.True(t, IsKind(err, EntryNotFound))

	err = m.MatSetEntry(0, 1, 7)
	require.True(t, IsKind(err, EntryNotSet))
	require.True(t, IsWarning(EntryNotSet))
}

func TestMatGetPartitionCoversAllRows(t *testing.T) {
	n := 20
	var triples []partition.Triple
	for i := 0; i < n; i++ {
		triples = append(triples, partition.Triple{Row: i, Col: i, Value: float64(i + 1)})
	}
	in := newTestInput(n, n, triples, false)
	opts := NewOptions()
	require.NoError(t, opts.OptionSet(OptNrThreads, "3"))
	m := tune(t, in, opts)

	parts := m.MatGetPartition()
	covered := 0
	for _, p := range parts {
		covered += p.NRows
	}
	require.Equal(t, n, covered)
}

func TestInputSetPermutationRejectsNonPermutation(t *testing.T) {
	in := newTestInput(3, 3, nil, false)
	require.True(t, IsKind(in.SetPermutation([]int{0, 0, 2}), InvalidArgument))
	require.NoError(t, in.SetPermutation([]int{2, 0, 1}))
}
