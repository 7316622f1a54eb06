package csxmv

import (
	"sort"

	"github.com/csxmv/csxmv/partition"
)

// sortTriplesByRow orders triples by (Row, Col) ascending in place — the
// Horizontal-basis order every partition.SetElements feed and the
// symmetric reduction map's row scan assume of their input.
func sortTriplesByRow(triples []partition.Triple) {
	sort.Slice(triples, func(i, j int) bool {
		if triples[i].Row != triples[j].Row {
			return triples[i].Row < triples[j].Row
		}
		return triples[i].Col < triples[j].Col
	})
}

// lowerTriangleOf drops every triple above the diagonal (Row < Col),
// leaving exactly the shape mtbuild.Build's symmetric mode requires: the
// strict lower triangle plus the diagonal. triples must already be
// sorted by (Row, Col); the result preserves that order.
func lowerTriangleOf(triples []partition.Triple) []partition.Triple {
	out := triples[:0:0]
	for _, t := range triples {
		if t.Row >= t.Col {
			out = append(out, t)
		}
	}
	return out
}
