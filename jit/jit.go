// Package jit implements the code generator of spec.md §4.7. Rather than
// rendering a per-pattern C source and handing it to a system compiler
// front-end at tune time — the runtime-compilation path spec.md §9
// explicitly says a reimplementation need not take — Specialize builds a
// closed set of monomorphized Go closures, one per pattern id present in
// a worker's CSX, selected by a switch at call time exactly as the
// driver template's pattern-id switch would have been after splicing.
package jit

import (
	"fmt"

	"github.com/csxmv/csxmv/element"
)

// AddFunc receives one scaled matrix term alpha*a_ij for row i, column
// j — deliberately not multiplied by any x entry, since the symmetric
// kernel needs the bare term to form both the direct product
// alpha*a_ij*x[col] and the mirrored product alpha*a_ij*x[row] from the
// same value (spec.md §4.10's y[i] += alpha*a_ij*x[j] and
// dst[j] += alpha*a_ij*x[i]). The caller (the kernel package, C10)
// decides where each product lands: directly into y for the
// non-symmetric kernel and the in-range case of the symmetric kernel,
// or into a local buffer slot routed through the reduction map
// otherwise. This is the Go rendering of the "cur pointer switch" hook
// spec.md §4.7 names.
type AddFunc func(row, col int, scaled float64)

// PatternFunc expands one pattern instance — the element.Element whose
// Row/Col mark its Horizontal-order anchor, with payload values in
// pattern-local order — into its constituent (row, col, alpha*a_ij)
// terms, each delivered through add. It never reads x itself; only add's
// caller knows which x entries (or both) a term must be multiplied by.
type PatternFunc func(row, startCol int, values []float64, alpha float64, add AddFunc)

// Registry holds one specialized PatternFunc per pattern id.
type Registry struct {
	fns map[int]PatternFunc
}

// Specialize builds a Registry covering exactly the pattern ids in ids,
// per spec.md §4.7 step 2 ("for each pattern id present, instantiate a
// per-pattern sub-template"). It returns an error (JitFailed, in the
// facade's terms) if any id is not a well-formed pattern id.
func Specialize(ids []int) (*Registry, error) {
	fns := make(map[int]PatternFunc, len(ids))
	for _, id := range ids {
		enc, second, ok := element.DecodePatternID(id)
		if !ok {
			return nil, fmt.Errorf("jit: pattern id %d does not decode to a known encoding", id)
		}
		fns[id] = buildPatternFunc(enc, second)
	}
	return &Registry{fns: fns}, nil
}

// Lookup returns the specialized function for id, or false if Specialize
// was never asked to cover it.
func (r *Registry) Lookup(id int) (PatternFunc, bool) {
	fn, ok := r.fns[id]
	return fn, ok
}

// buildPatternFunc instantiates the per-encoding-family sub-template
// described in spec.md §4.7's Templates list, parameterized by delta (for
// 1-D families) or the block geometry (for block families).
func buildPatternFunc(enc element.Encoding, second int) PatternFunc {
	switch enc.Family {
	case element.Horiz:
		delta := second
		return func(row, startCol int, values []float64, alpha float64, add AddFunc) {
			col := startCol
			for _, v := range values {
				add(row, col, alpha*v)
				col += delta
			}
		}
	case element.Vert:
		delta := second
		return func(row, startCol int, values []float64, alpha float64, add AddFunc) {
			r := row
			for _, v := range values {
				add(r, startCol, alpha*v)
				r += delta
			}
		}
	case element.Diag:
		delta := second
		return func(row, startCol int, values []float64, alpha float64, add AddFunc) {
			r, c := row, startCol
			for _, v := range values {
				add(r, c, alpha*v)
				r += delta
				c += delta
			}
		}
	case element.AntiDiag:
		delta := second
		return func(row, startCol int, values []float64, alpha float64, add AddFunc) {
			r, c := row, startCol
			for _, v := range values {
				add(r, c, alpha*v)
				r += delta
				c -= delta
			}
		}
	case element.BlockRow:
		k := enc.K
		return func(row, startCol int, values []float64, alpha float64, add AddFunc) {
			cols := len(values) / k
			for r := 0; r < k; r++ {
				for c := 0; c < cols; c++ {
					add(row+r, startCol+c, alpha*values[r*cols+c])
				}
			}
		}
	case element.BlockCol:
		k := enc.K
		return func(row, startCol int, values []float64, alpha float64, add AddFunc) {
			rows := len(values) / k
			for c := 0; c < k; c++ {
				for r := 0; r < rows; r++ {
					add(row+r, startCol+c, alpha*values[c*rows+r])
				}
			}
		}
	default:
		return func(row, startCol int, values []float64, alpha float64, add AddFunc) {}
	}
}
