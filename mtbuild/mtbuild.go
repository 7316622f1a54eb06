// Package mtbuild implements the multi-threaded build of spec.md §4.9:
// given the full nonzero list for a matrix, it splits rows across
// workers by nonzero count, then drives pattern discovery (encoder),
// byte-stream emission (csx) and kernel specialization (jit) for each
// worker concurrently.
package mtbuild

import (
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/csxmv/csxmv/csx"
	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/encoder"
	"github.com/csxmv/csxmv/jit"
	"github.com/csxmv/csxmv/partition"
	"github.com/csxmv/csxmv/rt"
)

// ReductionEntry is one (src_worker, row_index) pair of a worker's
// symmetric reduction map, per spec.md §4.2/§4.10.
type ReductionEntry struct {
	SrcWorker int
	Idx       int
}

// Worker bundles everything SpMV dispatch (C10) needs for one worker's
// row range: its CSX stream(s), specialized kernel registry, and (for
// the symmetric variant) its diagonal slice and reduction map.
type Worker struct {
	ID       int
	CPU      int
	Node     int
	RowStart int
	NRows    int

	Symmetric bool
	Csx       *csx.Csx    // non-symmetric
	CsxSym    *csx.CsxSym // symmetric

	Kernels *jit.Registry

	ReductionMap []ReductionEntry
	LocalBuf     []float64 // symmetric only, length == global NCols
}

// Plan configures one Build call.
type Plan struct {
	NRows, NCols int
	NrThreads    int
	Symmetric    bool

	// Exactly one of Sequence or Candidates should be set, selecting
	// explicit-sequence or automatic-search encoding (spec.md §4.5).
	EncoderConfig encoder.Config
	Sequence      []encoder.SequenceItem
	Candidates    []element.Encoding

	// CPUs and Nodes, if non-nil, must have length NrThreads and name the
	// pinned-affinity CPU/NUMA node for each worker.
	CPUs  []int
	Nodes []int
}

// Build splits triples (which must be sorted by row, and for the
// symmetric case must contain only the strict lower triangle plus an
// explicit diagonal entry (i, i, d_i) for every row) across Plan.NrThreads
// workers by nonzero count, then runs each worker's C5->C6->C7 pipeline
// concurrently via an errgroup, per spec.md §4.9 ("no cross-worker
// mutation occurs during build").
func Build(triples []partition.Triple, plan Plan) ([]*Worker, error) {
	if plan.NrThreads <= 0 {
		plan.NrThreads = runtime.GOMAXPROCS(0)
	}
	ranges := splitRows(triples, plan.NRows, plan.NrThreads)

	workers := make([]*Worker, len(ranges))
	var g errgroup.Group
	for idx, r := range ranges {
		idx, r := idx, r
		g.Go(func() error {
			w, err := buildWorker(idx, r, triples, plan)
			if err != nil {
				return fmt.Errorf("mtbuild: worker %d: %w", idx, err)
			}
			workers[idx] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if plan.Symmetric {
		ownerOf := ownerFunc(ranges)
		assignReductionMaps(workers, triples, ownerOf, plan.NCols)
	}
	return workers, nil
}

type rowRange struct{ start, end int } // [start, end)

// splitRows divides [0, nrRows) into nrThreads contiguous ranges whose
// nonzero counts are as close to N/nrThreads as possible, with the last
// worker absorbing the remainder, per spec.md §4.9.
func splitRows(triples []partition.Triple, nrRows, nrThreads int) []rowRange {
	nnzPerRow := make([]int, nrRows)
	for _, t := range triples {
		if t.Row >= 0 && t.Row < nrRows {
			nnzPerRow[t.Row]++
		}
	}
	total := len(triples)
	target := total / nrThreads
	if target < 1 {
		target = 1
	}

	var ranges []rowRange
	start := 0
	acc := 0
	for row := 0; row < nrRows; row++ {
		acc += nnzPerRow[row]
		isLastWorker := len(ranges) == nrThreads-1
		if !isLastWorker && acc >= target && row+1 < nrRows {
			ranges = append(ranges, rowRange{start: start, end: row + 1})
			start = row + 1
			acc = 0
		}
	}
	ranges = append(ranges, rowRange{start: start, end: nrRows})

	for len(ranges) < nrThreads {
		ranges = append(ranges, rowRange{start: nrRows, end: nrRows})
	}
	return ranges
}

func ownerFunc(ranges []rowRange) func(row int) int {
	return func(row int) int {
		for i, r := range ranges {
			if row >= r.start && row < r.end {
				return i
			}
		}
		return -1
	}
}

func buildWorker(idx int, r rowRange, triples []partition.Triple, plan Plan) (*Worker, error) {
	cpu, node := -1, -1
	if plan.CPUs != nil && idx < len(plan.CPUs) {
		cpu = plan.CPUs[idx]
	}
	if plan.Nodes != nil && idx < len(plan.Nodes) {
		node = plan.Nodes[idx]
	}
	if cpu >= 0 {
		_ = rt.SetAffinity(cpu) // best-effort; see rt.SetAffinity docs
	}

	nrLocalRows := r.end - r.start
	p := partition.New(nrLocalRows, plan.NCols, r.start)

	var diag []float64
	if plan.Symmetric {
		diag = make([]float64, nrLocalRows)
	}

	next := localTripleFeed(triples, r, plan.Symmetric, diag)
	if _, err := p.SetElements(next, r.start, 0, 0, 0); err != nil {
		return nil, err
	}

	mgr := encoder.NewManager(p, plan.EncoderConfig)
	if len(plan.Sequence) > 0 {
		if err := mgr.RunSequence(plan.Sequence); err != nil {
			return nil, err
		}
	} else if len(plan.Candidates) > 0 {
		if err := mgr.RunAutomatic(plan.Candidates); err != nil {
			return nil, err
		}
	}

	w := &Worker{ID: idx, CPU: cpu, Node: node, RowStart: r.start, NRows: nrLocalRows, Symmetric: plan.Symmetric}

	var ids []int
	if plan.Symmetric {
		sym, err := csx.BuildSym(p, diag)
		if err != nil {
			return nil, err
		}
		w.CsxSym = sym
		ids = sym.Lower.IDMap
		w.LocalBuf = make([]float64, plan.NCols)
	} else {
		c, err := csx.Build(p)
		if err != nil {
			return nil, err
		}
		w.Csx = c
		ids = c.IDMap
	}

	reg, err := jit.Specialize(ids)
	if err != nil {
		return nil, err
	}
	w.Kernels = reg
	return w, nil
}

// localTripleFeed returns a NextFunc yielding only the triples in r's row
// range, with Row left absolute as partition.SetElements expects (it
// subtracts r.start itself). For the symmetric case, diagonal
// entries (Row == Col) are diverted into diag and excluded from the feed,
// leaving only the strict lower triangle for the partition to store.
func localTripleFeed(triples []partition.Triple, r rowRange, symmetric bool, diag []float64) partition.NextFunc {
	lo := sort.Search(len(triples), func(i int) bool { return triples[i].Row >= r.start })
	hi := sort.Search(len(triples), func(i int) bool { return triples[i].Row >= r.end })
	i := lo
	return func() (partition.Triple, error) {
		for i < hi {
			t := triples[i]
			i++
			if symmetric && t.Row == t.Col {
				diag[t.Row-r.start] = t.Value
				continue
			}
			return t, nil
		}
		return partition.Triple{}, partition.ErrDone
	}
}

// assignReductionMaps implements spec.md §4.10's final sentence: the
// reduction maps are built once at tune time by scanning each worker's
// lower-triangle column indices. It is computed directly from the
// original (pre-encoding) triples, since the map only depends on
// nonzero position, not on which pattern a position was folded into.
func assignReductionMaps(workers []*Worker, triples []partition.Triple, ownerOf func(row int) int, nCols int) {
	seen := make([]map[[2]int]bool, len(workers))
	for i := range seen {
		seen[i] = map[[2]int]bool{}
	}
	for _, t := range triples {
		if t.Row == t.Col {
			continue
		}
		srcW := ownerOf(t.Row)
		dstW := ownerOf(t.Col)
		if srcW < 0 || dstW < 0 || srcW == dstW {
			continue
		}
		key := [2]int{srcW, t.Col}
		if seen[dstW][key] {
			continue
		}
		seen[dstW][key] = true
		workers[dstW].ReductionMap = append(workers[dstW].ReductionMap, ReductionEntry{SrcWorker: srcW, Idx: t.Col})
	}
}
