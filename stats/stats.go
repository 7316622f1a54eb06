// Package stats implements the two-level encoding/delta statistics table
// of spec.md §4.4: per-(encoding, delta) run counts accumulated during a
// statistics pass, and the manipulators (coverage filtering, block
// splitting, scaling) the encoding manager applies before choosing a
// winning candidate.
package stats

import (
	"sort"

	"github.com/csxmv/csxmv/element"
)

// Data holds the accumulated counts for one (encoding, delta) instance.
type Data struct {
	NrEncoded  int // nonzeros that would be absorbed into patterns of this kind
	NrPatterns int // number of pattern elements this would produce
	NrDeltas   int // number of distinct delta runs observed
}

// Add accumulates another observation's counts into d.
func (d *Data) Add(o Data) {
	d.NrEncoded += o.NrEncoded
	d.NrPatterns += o.NrPatterns
	d.NrDeltas += o.NrDeltas
}

// Scale multiplies all counts by factor, rounding to the nearest integer.
// Used by the sampling estimators (spec.md §4.5) to expand observed counts
// by the inverse sampling fraction.
func (d *Data) Scale(factor float64) {
	d.NrEncoded = int(float64(d.NrEncoded)*factor + 0.5)
	d.NrPatterns = int(float64(d.NrPatterns)*factor + 0.5)
	d.NrDeltas = int(float64(d.NrDeltas)*factor + 0.5)
}

type key struct {
	enc   element.Encoding
	delta int
}

// Table is the two-level encoding -> delta -> Data statistics map of
// spec.md §4.4.
type Table struct {
	rows map[key]*Data
}

// New returns an empty statistics table.
func New() *Table {
	return &Table{rows: make(map[key]*Data)}
}

// Append accumulates data into the (enc, delta) instance, creating it if
// absent.
func (t *Table) Append(enc element.Encoding, delta int, data Data) {
	k := key{enc, delta}
	if existing, ok := t.rows[k]; ok {
		existing.Add(data)
		return
	}
	cp := data
	t.rows[k] = &cp
}

// Instance returns the current counts for (enc, delta) and whether that
// instance exists.
func (t *Table) Instance(enc element.Encoding, delta int) (Data, bool) {
	d, ok := t.rows[key{enc, delta}]
	if !ok {
		return Data{}, false
	}
	return *d, true
}

// TypeTotal sums counts across every delta recorded for enc.
func (t *Table) TypeTotal(enc element.Encoding) Data {
	var total Data
	for k, d := range t.rows {
		if k.enc.Equal(enc) {
			total.Add(*d)
		}
	}
	return total
}

// GlobalTotal sums counts across the entire table.
func (t *Table) GlobalTotal() Data {
	var total Data
	for _, d := range t.rows {
		total.Add(*d)
	}
	return total
}

// Entry is one (encoding, delta, Data) row, produced by Iterate in a
// stable order (by encoding ordinal, then delta).
type Entry struct {
	Enc   element.Encoding
	Delta int
	Data  Data
}

// Iterate returns every (encoding, delta) instance in a deterministic
// order: by encoding (Family then K), then by delta.
func (t *Table) Iterate() []Entry {
	out := make([]Entry, 0, len(t.rows))
	for k, d := range t.rows {
		out = append(out, Entry{Enc: k.enc, Delta: k.delta, Data: *d})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Enc.Equal(out[j].Enc) {
			return out[i].Enc.Less(out[j].Enc)
		}
		return out[i].Delta < out[j].Delta
	})
	return out
}

// erase removes a (encoding, delta) instance entirely.
func (t *Table) erase(k key) { delete(t.rows, k) }

// set replaces the Data stored for k, creating the instance if absent.
func (t *Table) set(k key, d Data) {
	cp := d
	t.rows[k] = &cp
}

// Manipulator mutates a Table in place, as applied by Manipulate.
type Manipulator func(t *Table)

// Manipulate applies f to t.
func (t *Table) Manipulate(f Manipulator) { f(t) }

// CoverageFilter erases every instance whose nr_encoded/nnz fraction is
// below minCoverage.
func CoverageFilter(nnz int, minCoverage float64) Manipulator {
	return func(t *Table) {
		if nnz <= 0 {
			return
		}
		for k, d := range t.rows {
			if float64(d.NrEncoded)/float64(nnz) < minCoverage {
				t.erase(k)
			}
		}
	}
}

// Scaler multiplies every instance's counts by factor.
func Scaler(factor float64) Manipulator {
	return func(t *Table) {
		for _, d := range t.rows {
			d.Scale(factor)
		}
	}
}

// BlockSplitter implements spec.md §4.4's block-splitting manipulator:
// for each block encoding (BlockRow/BlockCol) whose variable dimension d
// exceeds maxUnit/align(K) (i.e. a block "dimension" too wide to use directly),
// it replaces that instance's counts with counts for floor(d/max)
// max-sized sub-blocks plus a remainder block of size >= 2, then merges
// any resulting sub-block whose own coverage falls below minCoverage
// upward into the next-larger surviving block dimension of the same
// family.
//
// d, the block's "variable dimension", is taken to be the delta recorded
// for the instance: for block encodings the delta axis measures the
// observed run length in block units, which is exactly the quantity
// spec.md §4.4 calls d.
func BlockSplitter(maxUnit, nnz int, minCoverage float64) Manipulator {
	return func(t *Table) {
		if nnz <= 0 || maxUnit <= 0 {
			return
		}
		for k, data := range t.rows {
			if !k.enc.IsBlock() {
				continue
			}
			align := k.enc.K
			max := maxUnit / align
			if max < 1 {
				max = 1
			}
			d := k.delta
			if d <= max {
				continue
			}
			t.erase(k)

			nSub := d / max
			remainder := d - nSub*max
			perSub := Data{
				NrEncoded:  data.NrEncoded / (nSub + boolToInt(remainder > 0)),
				NrPatterns: data.NrPatterns / (nSub + boolToInt(remainder > 0)),
				NrDeltas:   data.NrDeltas,
			}

			var survivors []key
			for i := 0; i < nSub; i++ {
				sk := key{enc: k.enc, delta: max}
				t.Append(sk.enc, sk.delta, perSub)
				if coverage(perSub, nnz) >= minCoverage {
					survivors = append(survivors, sk)
				}
			}
			if remainder >= 2 {
				rk := key{enc: k.enc, delta: remainder}
				rd := Data{
					NrEncoded:  data.NrEncoded - perSub.NrEncoded*nSub,
					NrPatterns: data.NrPatterns - perSub.NrPatterns*nSub,
					NrDeltas:   data.NrDeltas,
				}
				t.Append(rk.enc, rk.delta, rd)
				if coverage(rd, nnz) >= minCoverage {
					survivors = append(survivors, rk)
				}
			}
			mergeBelowCoverage(t, k.enc, nnz, minCoverage, survivors)
		}
	}
}

func coverage(d Data, nnz int) float64 { return float64(d.NrEncoded) / float64(nnz) }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// mergeBelowCoverage folds every sub-block instance of enc whose coverage
// is below minCoverage into the next-larger surviving sub-block of the
// same encoding, per spec.md §4.4's final BlockSplitter step.
func mergeBelowCoverage(t *Table, enc element.Encoding, nnz int, minCoverage float64, instances []key) {
	sort.Slice(instances, func(i, j int) bool { return instances[i].delta < instances[j].delta })
	for i := 0; i < len(instances); i++ {
		d, ok := t.Instance(instances[i].enc, instances[i].delta)
		if !ok || coverage(d, nnz) >= minCoverage {
			continue
		}
		for j := i + 1; j < len(instances); j++ {
			next, ok := t.Instance(instances[j].enc, instances[j].delta)
			if !ok {
				continue
			}
			next.Add(d)
			t.set(instances[j], next)
			t.erase(instances[i])
			break
		}
	}
}
