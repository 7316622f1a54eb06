// Package encoder implements the encoding manager of spec.md §4.5: it
// owns a partition and drives either an explicit transform/pattern-run
// sequence or an automatic statistics-guided search, turning maximal
// constant-stride runs of singleton elements into pattern elements.
package encoder

import (
	"golang.org/x/exp/rand"

	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/partition"
	"github.com/csxmv/csxmv/stats"
)

// Defaults mirror the CLI defaults named in spec.md §6.
const (
	DefaultMinUnit     = 4
	DefaultMaxUnitSize = 255
	DefaultMinCoverage = 0.1
)

// SamplingMethod selects how the automatic search estimates per-candidate
// statistics, per spec.md §4.5.
type SamplingMethod int

const (
	SamplingNone SamplingMethod = iota
	SamplingWindow
	SamplingPortion
)

// SamplingConfig configures the window/portion sampling estimators. Rand
// defaults to a package-seeded generator if nil.
type SamplingConfig struct {
	Method     SamplingMethod
	NrSamples  int
	WindowSize int
	Portion    float64
	Rand       *rand.Rand
}

// Config bundles the tunables of spec.md §4.5/§6.
type Config struct {
	MinUnit     int
	MaxUnitSize int
	MinCoverage float64
	Sampling    SamplingConfig
}

// DefaultConfig returns the CLI default values from spec.md §6.
func DefaultConfig() Config {
	return Config{
		MinUnit:     DefaultMinUnit,
		MaxUnitSize: DefaultMaxUnitSize,
		MinCoverage: DefaultMinCoverage,
	}
}

// SequenceItem is one step of an explicit preproc.xform sequence: an
// encoding to transform to, and the deltas (in-row strides) eligible for
// pattern formation there. A nil/empty Deltas means any stride qualifies.
type SequenceItem struct {
	Enc    element.Encoding
	Deltas []int
}

// Manager drives the encoding process over a single partition.
type Manager struct {
	p      *partition.Partition
	cfg    Config
	nnz    int
	ignore map[element.Encoding]bool
}

// NewManager wraps p for encoding under cfg. p must currently be in
// Horizontal order.
func NewManager(p *partition.Partition, cfg Config) *Manager {
	return &Manager{p: p, cfg: cfg, nnz: p.NNZ(), ignore: make(map[element.Encoding]bool)}
}

// Partition returns the managed partition.
func (m *Manager) Partition() *partition.Partition { return m.p }

// RunSequence implements spec.md §4.5's explicit-sequence mode: for each
// item, transform to its encoding and fold in maximal runs matching its
// deltas (or any delta, if unrestricted) of length >= cfg.MinUnit. The
// partition is left in Horizontal order when RunSequence returns.
func (m *Manager) RunSequence(seq []SequenceItem) error {
	for _, item := range seq {
		if err := m.p.Transform(item.Enc, [2]int{0, m.p.NRows}); err != nil {
			return err
		}
		encodeRuns(m.p, item.Enc, item.Deltas, m.cfg.MinUnit)
	}
	return m.p.Transform(element.H, [2]int{0, m.p.NRows})
}

// RunAutomatic implements spec.md §4.5's automatic-search mode: candidates
// is the wildcard-expanded list of encodings to consider at every round.
// It repeats candidate evaluation, best-pick, and encoding until no
// candidate clears cfg.MinCoverage, then leaves the partition in
// Horizontal order.
func (m *Manager) RunAutomatic(candidates []element.Encoding) error {
	for {
		tbl := stats.New()
		for _, enc := range candidates {
			if m.ignore[enc] {
				continue
			}
			if err := m.p.Transform(enc, [2]int{0, m.p.NRows}); err != nil {
				return err
			}
			m.collectStats(tbl, enc)
			if err := m.p.Transform(element.H, [2]int{0, m.p.NRows}); err != nil {
				return err
			}
		}

		tbl.Manipulate(stats.BlockSplitter(m.cfg.MaxUnitSize, m.nnz, m.cfg.MinCoverage))
		tbl.Manipulate(stats.CoverageFilter(m.nnz, m.cfg.MinCoverage))

		best, ok := pickBest(tbl)
		if !ok {
			return nil
		}

		if err := m.p.Transform(best.Enc, [2]int{0, m.p.NRows}); err != nil {
			return err
		}
		encodeRuns(m.p, best.Enc, []int{best.Delta}, m.cfg.MinUnit)
		if err := m.p.Transform(element.H, [2]int{0, m.p.NRows}); err != nil {
			return err
		}

		m.ignore[best.Enc] = true
	}
}

// collectStats runs a statistics pass over the partition in its current
// (already-transformed) encoding, honoring the configured sampling mode.
func (m *Manager) collectStats(tbl *stats.Table, enc element.Encoding) {
	switch m.cfg.Sampling.Method {
	case SamplingWindow:
		m.collectStatsWindowSampled(tbl, enc)
	case SamplingPortion:
		m.collectStatsPortionSampled(tbl, enc)
	default:
		statsPass(tbl, m.p, enc, nil, m.cfg.MinUnit)
	}
}

// collectStatsWindowSampled implements spec.md §4.5's window sampling:
// nr_samples random row-windows of window_size rows, counts expanded by
// the inverse sampling fraction. It never mutates the partition.
func (m *Manager) collectStatsWindowSampled(tbl *stats.Table, enc element.Encoding) {
	rng := m.cfg.Sampling.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	nrRows := m.p.NRows
	winSize := m.cfg.Sampling.WindowSize
	if winSize <= 0 || winSize > nrRows {
		winSize = nrRows
	}
	nrSamples := m.cfg.Sampling.NrSamples
	if nrSamples <= 0 {
		nrSamples = 1
	}

	sampled := stats.New()
	coveredRows := 0
	for i := 0; i < nrSamples; i++ {
		rs := 0
		if nrRows-winSize > 0 {
			rs = rng.Intn(nrRows - winSize + 1)
		}
		win, err := m.p.ExtractWindow(rs, winSize)
		if err != nil {
			continue
		}
		statsPass(sampled, win, enc, nil, m.cfg.MinUnit)
		coveredRows += winSize
	}
	if coveredRows == 0 {
		return
	}
	fraction := float64(coveredRows) / float64(nrRows)
	if fraction <= 0 {
		return
	}
	sampled.Manipulate(stats.Scaler(1.0 / fraction))
	for _, e := range sampled.Iterate() {
		tbl.Append(e.Enc, e.Delta, e.Data)
	}
}

// collectStatsPortionSampled implements spec.md §4.5's portion sampling:
// windows are sized so their total covered-nonzero fraction approximates
// cfg.Sampling.Portion.
func (m *Manager) collectStatsPortionSampled(tbl *stats.Table, enc element.Encoding) {
	portion := m.cfg.Sampling.Portion
	if portion <= 0 || portion > 1 {
		portion = 1
	}
	nrRows := m.p.NRows
	targetRows := int(float64(nrRows)*portion + 0.5)
	if targetRows < 1 {
		targetRows = 1
	}
	nrSamples := m.cfg.Sampling.NrSamples
	if nrSamples <= 0 {
		nrSamples = 1
	}
	winSize := targetRows / nrSamples
	if winSize < 1 {
		winSize = 1
	}

	saved := m.cfg.Sampling
	m.cfg.Sampling = SamplingConfig{Method: SamplingWindow, NrSamples: nrSamples, WindowSize: winSize, Rand: saved.Rand}
	m.collectStatsWindowSampled(tbl, enc)
	m.cfg.Sampling = saved
}

// statsPass scans p (already transformed to enc's order) row by row and
// increments tbl[enc][delta] for each maximal run of untouched singleton
// elements whose stride matches one of allowedDeltas (or any stride, if
// allowedDeltas is empty) and whose length is >= minUnit.
func statsPass(tbl *stats.Table, p *partition.Partition, enc element.Encoding, allowedDeltas []int, minUnit int) {
	forEachRun(p, allowedDeltas, minUnit, func(delta, length int) {
		tbl.Append(enc, delta, stats.Data{NrEncoded: length, NrPatterns: 1, NrDeltas: 1})
	})
}

// encodeRuns scans p (already transformed to enc's order) and replaces
// every maximal qualifying run with a single pattern element.
func encodeRuns(p *partition.Partition, enc element.Encoding, allowedDeltas []int, minUnit int) {
	var replacements []replacement
	forEachRunIdx(p, allowedDeltas, minUnit, func(row, lo, hi, delta int) {
		replacements = append(replacements, replacement{row: row, lo: lo, hi: hi, delta: delta})
	})
	if len(replacements) == 0 {
		return
	}

	var out []element.Element
	pos := 0
	for _, r := range replacements {
		out = append(out, p.Elements[pos:r.lo]...)
		run := p.Elements[r.lo:r.hi]
		values := make([]float64, 0, len(run))
		for _, e := range run {
			values = append(values, e.Value(0))
		}
		out = append(out, element.NewPattern(run[0].Row, run[0].Col, values, enc, r.delta))
		pos = r.hi
	}
	out = append(out, p.Elements[pos:]...)
	p.Elements = out
	p.RebuildRowPtr()
}

type replacement struct {
	row, lo, hi, delta int
}

// forEachRun walks every row of p and invokes fn(delta, length) once per
// maximal qualifying run, without needing element indices.
func forEachRun(p *partition.Partition, allowedDeltas []int, minUnit int, fn func(delta, length int)) {
	forEachRunIdx(p, allowedDeltas, minUnit, func(_, lo, hi, delta int) {
		fn(delta, hi-lo)
	})
}

// forEachRunIdx walks every row of p and invokes fn(row, lo, hi, delta)
// once per maximal run of consecutive untouched singleton elements
// (p.Elements[lo:hi]) sharing a constant column stride delta, of length
// >= minUnit, and (if allowedDeltas is non-empty) with delta restricted
// to that set. Pattern elements already present (from a prior encoding
// round) break runs and are skipped, implementing the "ignore set"
// named in spec.md §4.5 step 5.
func forEachRunIdx(p *partition.Partition, allowedDeltas []int, minUnit int, fn func(row, lo, hi, delta int)) {
	allowed := func(d int) bool {
		if len(allowedDeltas) == 0 {
			return true
		}
		for _, a := range allowedDeltas {
			if a == d {
				return true
			}
		}
		return false
	}

	for row := 0; row < p.NRows; row++ {
		lo := p.RowBegin(row)
		hi := p.RowEnd(row)
		i := lo
		for i < hi {
			if p.Elements[i].IsPattern() {
				i++
				continue
			}
			j := i + 1
			var delta int
			haveDelta := false
			for j < hi && !p.Elements[j].IsPattern() {
				d := p.Elements[j].Col - p.Elements[j-1].Col
				if !haveDelta {
					delta = d
					haveDelta = true
				} else if d != delta {
					break
				}
				j++
			}
			length := j - i
			if haveDelta && length >= minUnit && allowed(delta) {
				fn(row, i, j, delta)
			}
			i = j
		}
	}
}

// pickBest implements spec.md §4.5 step 3: the surviving (enc, delta)
// instance with the largest NrEncoded, tie-broken by smaller encoding
// ordinal then smaller delta.
func pickBest(tbl *stats.Table) (stats.Entry, bool) {
	entries := tbl.Iterate()
	if len(entries) == 0 {
		return stats.Entry{}, false
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Data.NrEncoded > best.Data.NrEncoded {
			best = e
		}
	}
	return best, true
}
