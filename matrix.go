package csxmv

import (
	"io"
	"runtime"
	"strings"

	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/encoder"
	"github.com/csxmv/csxmv/internal/cerr"
	"github.com/csxmv/csxmv/internal/config"
	"github.com/csxmv/csxmv/mtbuild"
	"github.com/csxmv/csxmv/persist"
	"github.com/csxmv/csxmv/rt"
)

// Matrix is the opaque handle spec.md §4.13 names for a matrix that has
// been mat_tune'd into a partitioned, jit-specialized CSX (or CSX-Sym)
// representation: immutable except via explicit mat_set_entry, owned by
// the caller until Destroy.
type Matrix struct {
	nrows, ncols int
	symmetric    bool
	permutation  []int

	workers []*mtbuild.Worker
	pool    *rt.Pool
}

// NRows returns the matrix's row count.
func (m *Matrix) NRows() int { return m.nrows }

// NCols returns the matrix's column count.
func (m *Matrix) NCols() int { return m.ncols }

// Symmetric reports whether m is stored in the CSX-Sym half-storage
// variant.
func (m *Matrix) Symmetric() bool { return m.symmetric }

// Permutation returns the row/column permutation m was built under, or
// nil if none was set (SPEC_FULL.md §4, Input.SetPermutation).
func (m *Matrix) Permutation() []int { return m.permutation }

// MatTune implements spec.md §4.13's mat_tune: it reads opts (seeded by
// LoadEnv and/or explicit OptionSet calls before this call, per §6's
// env-then-explicit precedence), builds an encoder.Config and either an
// explicit preproc.xform sequence or an automatic-search candidate list,
// applies in's permutation if one was set, and drives mtbuild.Build
// across rt.nr_threads workers. The returned Matrix owns a persistent
// rt.Pool sized to those workers, reused by every subsequent
// MatVecKernel call.
func MatTune(in *Input, opts *Options) (*Matrix, error) {
	triples := in.applyPermutation()
	if in.permutation == nil {
		sortTriplesByRow(triples)
	}

	symmetric := opts.reg.BoolOr(config.MatrixSymmetric, in.FileSymmetric)
	if symmetric {
		triples = lowerTriangleOf(triples)
	}
	nrThreads := opts.reg.IntOr(config.RtNrThreads, runtime.GOMAXPROCS(0))
	if nrThreads <= 0 {
		nrThreads = 1
	}

	cpus, err := cpuAffinity(opts.reg)
	if err != nil {
		return nil, err
	}
	var nodes []int
	if cpus != nil {
		topo := rt.DiscoverTopology(runtime.NumCPU())
		nodes = make([]int, len(cpus))
		for i, c := range cpus {
			nodes[i] = topo.NodeOf(c)
		}
	}

	encCfg := encoderConfig(opts.reg)
	plan := mtbuild.Plan{
		NRows:         in.NRows,
		NCols:         in.NCols,
		NrThreads:     nrThreads,
		Symmetric:     symmetric,
		EncoderConfig: encCfg,
		CPUs:          cpus,
		Nodes:         nodes,
	}

	seq, candidates, err := xformPlan(opts.reg)
	if err != nil {
		return nil, err
	}
	plan.Sequence = seq
	plan.Candidates = candidates

	workers, err := mtbuild.Build(triples, plan)
	if err != nil {
		return nil, cerr.Wrap("MatTune", cerr.JitFailed, err, "building workers")
	}

	return &Matrix{
		nrows:       in.NRows,
		ncols:       in.NCols,
		symmetric:   symmetric,
		permutation: in.permutation,
		workers:     workers,
		pool:        rt.New(len(workers), cpus),
	}, nil
}

// Destroy releases m's worker pool. Callers must not use m afterward.
func (m *Matrix) Destroy() {
	if m.pool != nil {
		m.pool.Close()
	}
}

// cpuAffinity parses rt.cpu_affinity (a comma list, per spec.md §6) if
// set, returning nil (meaning "no pinning") when unset.
func cpuAffinity(reg *config.Registry) ([]int, error) {
	v, ok := reg.String(config.RtCPUAffinity)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, nil
	}
	cpus, err := config.CPUList(v)
	if err != nil {
		return nil, err
	}
	return cpus, nil
}

// encoderConfig builds an encoder.Config from the matrix.* and
// preproc.sampling* option keys, per spec.md §6's defaults.
func encoderConfig(reg *config.Registry) encoder.Config {
	cfg := encoder.DefaultConfig()
	cfg.MinUnit = reg.IntOr(config.MatrixMinUnitSize, encoder.DefaultMinUnit)
	cfg.MaxUnitSize = reg.IntOr(config.MatrixMaxUnitSize, encoder.DefaultMaxUnitSize)
	cfg.MinCoverage = reg.FloatOr(config.MatrixMinCoverage, encoder.DefaultMinCoverage)

	switch reg.StringOr(config.PreprocSampling, "none") {
	case "window":
		cfg.Sampling.Method = encoder.SamplingWindow
	case "portion":
		cfg.Sampling.Method = encoder.SamplingPortion
	default:
		cfg.Sampling.Method = encoder.SamplingNone
	}
	cfg.Sampling.NrSamples = reg.IntOr(config.PreprocSamplingSamples, 0)
	cfg.Sampling.WindowSize = reg.IntOr(config.PreprocSamplingWindow, 0)
	cfg.Sampling.Portion = reg.FloatOr(config.PreprocSamplingPortion, 0)
	return cfg
}

// xformPlan translates preproc.xform (spec.md §6: "a sequence like
// h,v,d,br{2,3}") into an explicit mtbuild.Plan.Sequence. When unset, it
// falls back to automatic-search mode over every atom (spec.md §4.5's
// "all" wildcard), letting the encoder's statistics-guided search pick
// encodings instead.
func xformPlan(reg *config.Registry) ([]encoder.SequenceItem, []element.Encoding, error) {
	v, ok := reg.String(config.PreprocXform)
	if !ok || strings.TrimSpace(v) == "" {
		all, err := element.Expand("all", nil)
		if err != nil {
			return nil, nil, cerr.Wrap("MatTune", cerr.InvalidConfig, err, "expanding \"all\"")
		}
		return nil, all, nil
	}

	tokens, err := element.ParseSequence(v)
	if err != nil {
		return nil, nil, cerr.Wrap("MatTune", cerr.InvalidConfig, err, "parsing preproc.xform %q", v)
	}
	var seq []encoder.SequenceItem
	for _, tok := range tokens {
		encs, err := tok.Expand()
		if err != nil {
			return nil, nil, cerr.Wrap("MatTune", cerr.InvalidConfig, err, "expanding token %q", tok.Name)
		}
		for _, enc := range encs {
			seq = append(seq, encoder.SequenceItem{Enc: enc})
		}
	}
	return seq, nil, nil
}

// Partition is the opaque handle spec.md §4.13 names for mat_get_partition:
// one worker's row range and placement, read-only.
type Partition struct {
	ID       int
	CPU      int
	Node     int
	RowStart int
	NRows    int
}

// MatGetPartition returns the per-worker row ranges and CPU/NUMA
// placement m was tuned with, per spec.md §4.13's mat_get_partition.
func (m *Matrix) MatGetPartition() []Partition {
	out := make([]Partition, len(m.workers))
	for i, w := range m.workers {
		out[i] = Partition{ID: w.ID, CPU: w.CPU, Node: w.Node, RowStart: w.RowStart, NRows: w.NRows}
	}
	return out
}

// MatSave serializes m to w, per spec.md §4.13's mat_save. The archive
// carries m's permutation (nil if none was set) for MatRestore to
// recover unchanged.
func (m *Matrix) MatSave(w io.Writer) error {
	return persist.Save(w, m.workers, m.ncols, m.symmetric, m.permutation)
}

// MatRestore reads an archive written by MatSave. The returned Matrix
// owns a fresh rt.Pool sized to the restored worker count; cpus, if
// non-nil, re-pins each worker's goroutine the way MatTune would have.
func MatRestore(r io.Reader, cpus []int) (*Matrix, error) {
	workers, ncols, symmetric, permutation, err := persist.Restore(r)
	if err != nil {
		return nil, err
	}
	nrows := 0
	for _, w := range workers {
		nrows += w.NRows
	}
	return &Matrix{
		nrows:       nrows,
		ncols:       ncols,
		symmetric:   symmetric,
		permutation: permutation,
		workers:     workers,
		pool:        rt.New(len(workers), cpus),
	}, nil
}
