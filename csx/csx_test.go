package csx

import (
	"testing"

	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/partition"
)

func triplesOf(ts []partition.Triple) partition.NextFunc {
	i := 0
	return func() (partition.Triple, error) {
		if i >= len(ts) {
			return partition.Triple{}, partition.ErrDone
		}
		t := ts[i]
		i++
		return t, nil
	}
}

func TestBuildSingletonsOnly(t *testing.T) {
	ts := []partition.Triple{
		{Row: 0, Col: 0, Value: 1},
		{Row: 0, Col: 2, Value: 2},
		{Row: 1, Col: 1, Value: 3},
	}
	p := partition.New(3, 3, 0)
	if _, err := p.SetElements(triplesOf(ts), 0, 0, 0, 0); err != nil {
		t.Fatalf("SetElements: %v", err)
	}

	c, err := Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.NNZ != 3 {
		t.Fatalf("NNZ = %d, want 3", c.NNZ)
	}
	if len(c.Values) != 3 {
		t.Fatalf("len(Values) = %d, want 3", len(c.Values))
	}
	if len(c.RowsInfo) != 3 {
		t.Fatalf("len(RowsInfo) = %d, want 3", len(c.RowsInfo))
	}
	if !c.RowJumps[2] {
		t.Fatalf("row 2 is empty and should be marked in RowJumps")
	}
	if c.RowJumps[0] || c.RowJumps[1] {
		t.Fatalf("nonempty rows incorrectly marked in RowJumps")
	}
}

func TestBuildRejectsNonHorizontal(t *testing.T) {
	p := partition.New(2, 2, 0)
	if _, err := p.SetElements(triplesOf(nil), 0, 0, 0, 0); err != nil {
		t.Fatalf("SetElements: %v", err)
	}
	if err := p.Transform(element.V, [2]int{0, p.NRows}); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if _, err := Build(p); err == nil {
		t.Fatalf("expected error building from a non-Horizontal partition")
	}
}

func TestBuildWithPatternElement(t *testing.T) {
	p := partition.New(1, 6, 0)
	p.Elements = []element.Element{
		element.NewPattern(0, 0, []float64{1, 2, 3, 4}, element.H, 1),
	}
	p.RowPtr = []int{0, 1}

	c, err := Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.NNZ != 4 {
		t.Fatalf("NNZ = %d, want 4", c.NNZ)
	}
	if len(c.IDMap) != 1 {
		t.Fatalf("len(IDMap) = %d, want 1", len(c.IDMap))
	}
	wantID := element.PatternID(element.H, 1)
	if c.IDMap[0] != wantID {
		t.Fatalf("IDMap[0] = %d, want %d", c.IDMap[0], wantID)
	}
}

func TestBuildLargeColumnJumpUsesWiderWidth(t *testing.T) {
	p := partition.New(1, 100000, 0)
	p.Elements = []element.Element{
		element.NewSingleton(0, 0, 1),
		element.NewSingleton(0, 70000, 2),
	}
	p.RowPtr = []int{0, 2}

	c, err := Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.NNZ != 2 || len(c.Values) != 2 {
		t.Fatalf("unexpected value count: %+v", c)
	}
	if c.Ctl[2] != byte(widthU32) {
		t.Fatalf("width byte = %d, want %d (widthU32) for a 70000-column jump", c.Ctl[2], widthU32)
	}
}

func TestBuildSymSeparatesDiagonal(t *testing.T) {
	// Strict lower triangle of [[2,1,0],[1,2,1],[0,1,2]]: (1,0)=1, (2,1)=1.
	ts := []partition.Triple{
		{Row: 1, Col: 0, Value: 1},
		{Row: 2, Col: 1, Value: 1},
	}
	p := partition.New(3, 3, 0)
	if _, err := p.SetElements(triplesOf(ts), 0, 0, 0, 0); err != nil {
		t.Fatalf("SetElements: %v", err)
	}

	sym, err := BuildSym(p, []float64{2, 2, 2})
	if err != nil {
		t.Fatalf("BuildSym: %v", err)
	}
	if sym.Lower.NNZ != 2 {
		t.Fatalf("Lower.NNZ = %d, want 2", sym.Lower.NNZ)
	}
	if len(sym.Diag) != 3 {
		t.Fatalf("len(Diag) = %d, want 3", len(sym.Diag))
	}
}

func TestWalkRoundTripSingletons(t *testing.T) {
	ts := []partition.Triple{
		{Row: 0, Col: 0, Value: 1},
		{Row: 0, Col: 2, Value: 2},
		{Row: 1, Col: 1, Value: 3},
	}
	p := partition.New(3, 3, 0)
	if _, err := p.SetElements(triplesOf(ts), 0, 0, 0, 0); err != nil {
		t.Fatalf("SetElements: %v", err)
	}
	c, err := Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	type got struct {
		row, col, id int
		val          float64
	}
	var units []got
	if err := c.Walk(func(row, col, id int, values []float64) {
		for _, v := range values {
			units = append(units, got{row, col, id, v})
		}
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	want := []got{{0, 0, element.NoPattern, 1}, {0, 2, element.NoPattern, 2}, {1, 1, element.NoPattern, 3}}
	if len(units) != len(want) {
		t.Fatalf("got %d units, want %d: %+v", len(units), len(want), units)
	}
	for i, w := range want {
		if units[i] != w {
			t.Fatalf("unit %d = %+v, want %+v", i, units[i], w)
		}
	}
}

func TestWalkRoundTripPattern(t *testing.T) {
	p := partition.New(1, 6, 0)
	p.Elements = []element.Element{
		element.NewPattern(0, 0, []float64{1, 2, 3, 4}, element.H, 1),
	}
	p.RowPtr = []int{0, 1}

	c, err := Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantID := element.PatternID(element.H, 1)
	var sawID int
	var sawCol int
	var sawVals []float64
	if err := c.Walk(func(row, col, id int, values []float64) {
		sawID = id
		sawCol = col
		sawVals = append([]float64(nil), values...)
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if sawID != wantID {
		t.Fatalf("id = %d, want %d", sawID, wantID)
	}
	if sawCol != 0 {
		t.Fatalf("col = %d, want 0", sawCol)
	}
	if len(sawVals) != 4 || sawVals[0] != 1 || sawVals[3] != 4 {
		t.Fatalf("values = %v, want [1 2 3 4]", sawVals)
	}
}

func TestBuildSymRejectsMismatchedDiagLength(t *testing.T) {
	p := partition.New(3, 3, 0)
	if _, err := p.SetElements(triplesOf(nil), 0, 0, 0, 0); err != nil {
		t.Fatalf("SetElements: %v", err)
	}
	if _, err := BuildSym(p, []float64{1, 2}); err == nil {
		t.Fatalf("expected error for mismatched diag length")
	}
}
