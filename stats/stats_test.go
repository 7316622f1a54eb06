package stats

import (
	"testing"

	"github.com/csxmv/csxmv/element"
)

func TestAppendAccumulates(t *testing.T) {
	tbl := New()
	tbl.Append(element.H, 1, Data{NrEncoded: 10, NrPatterns: 2, NrDeltas: 1})
	tbl.Append(element.H, 1, Data{NrEncoded: 5, NrPatterns: 1, NrDeltas: 1})

	d, ok := tbl.Instance(element.H, 1)
	if !ok {
		t.Fatalf("expected instance to exist")
	}
	if d.NrEncoded != 15 || d.NrPatterns != 3 || d.NrDeltas != 2 {
		t.Fatalf("got %+v", d)
	}
}

func TestTypeTotalAndGlobalTotal(t *testing.T) {
	tbl := New()
	tbl.Append(element.H, 1, Data{NrEncoded: 10})
	tbl.Append(element.H, 2, Data{NrEncoded: 20})
	tbl.Append(element.V, 1, Data{NrEncoded: 5})

	if got := tbl.TypeTotal(element.H).NrEncoded; got != 30 {
		t.Fatalf("TypeTotal(H) = %d, want 30", got)
	}
	if got := tbl.GlobalTotal().NrEncoded; got != 35 {
		t.Fatalf("GlobalTotal = %d, want 35", got)
	}
}

func TestCoverageFilterErasesBelowThreshold(t *testing.T) {
	tbl := New()
	tbl.Append(element.H, 1, Data{NrEncoded: 50})
	tbl.Append(element.V, 1, Data{NrEncoded: 5})

	tbl.Manipulate(CoverageFilter(100, 0.3))

	if _, ok := tbl.Instance(element.H, 1); !ok {
		t.Fatalf("expected H,1 to survive (coverage 0.5)")
	}
	if _, ok := tbl.Instance(element.V, 1); ok {
		t.Fatalf("expected V,1 to be erased (coverage 0.05)")
	}
}

func TestScalerMultipliesCounts(t *testing.T) {
	tbl := New()
	tbl.Append(element.H, 1, Data{NrEncoded: 10, NrPatterns: 2, NrDeltas: 1})
	tbl.Manipulate(Scaler(3.0))

	d, _ := tbl.Instance(element.H, 1)
	if d.NrEncoded != 30 || d.NrPatterns != 6 || d.NrDeltas != 3 {
		t.Fatalf("got %+v", d)
	}
}

func TestBlockSplitterSplitsOversizedBlocks(t *testing.T) {
	tbl := New()
	// br(2) instance observed with a run of 10 blocks (d=10), maxUnit=4 ->
	// max = 4/2 = 2 sub-blocks per max-sized unit; 10/2 = 5 sub-units, no
	// remainder.
	tbl.Append(element.BR(2), 10, Data{NrEncoded: 100, NrPatterns: 10, NrDeltas: 1})

	tbl.Manipulate(BlockSplitter(4, 1000, 0.0))

	if _, ok := tbl.Instance(element.BR(2), 10); ok {
		t.Fatalf("expected original oversized instance to be removed")
	}
	if _, ok := tbl.Instance(element.BR(2), 2); !ok {
		t.Fatalf("expected split sub-block instance at delta=2 to exist")
	}
}

func TestIterateIsDeterministicallyOrdered(t *testing.T) {
	tbl := New()
	tbl.Append(element.V, 3, Data{NrEncoded: 1})
	tbl.Append(element.H, 5, Data{NrEncoded: 1})
	tbl.Append(element.H, 1, Data{NrEncoded: 1})

	entries := tbl.Iterate()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if !entries[0].Enc.Equal(element.H) || entries[0].Delta != 1 {
		t.Fatalf("entries[0] = %+v, want (H,1)", entries[0])
	}
	if !entries[1].Enc.Equal(element.H) || entries[1].Delta != 5 {
		t.Fatalf("entries[1] = %+v, want (H,5)", entries[1])
	}
	if !entries[2].Enc.Equal(element.V) {
		t.Fatalf("entries[2] = %+v, want V", entries[2])
	}
}
