package element

import "testing"

func TestSingletonAndPattern(t *testing.T) {
	s := NewSingleton(2, 3, 4.5)
	if s.IsPattern() {
		t.Fatalf("singleton reported as pattern")
	}
	if s.PatternID() != NoPattern {
		t.Fatalf("singleton pattern id = %d, want %d", s.PatternID(), NoPattern)
	}

	p := NewPattern(0, 0, []float64{1, 2, 3}, H, 1)
	if !p.IsPattern() {
		t.Fatalf("pattern reported as singleton")
	}
	if p.Size() != 3 {
		t.Fatalf("pattern size = %d, want 3", p.Size())
	}
	if p.PatternID() == NoPattern {
		t.Fatalf("pattern id collided with NoPattern")
	}
}

func TestPatternIDDistinctAcrossEncodings(t *testing.T) {
	ids := map[int]Encoding{}
	deltas := []int{1, 2, 5}
	encs := []Encoding{H, V, D, AD, BR(2), BR(8), BC(3)}
	for _, e := range encs {
		for _, d := range deltas {
			id := PatternID(e, d)
			if other, ok := ids[id]; ok {
				t.Fatalf("pattern id %d reused by %v and %v", id, other, e)
			}
			ids[id] = e
		}
	}
}

func TestTransformOnlyTouchesCoords(t *testing.T) {
	p := NewPattern(0, 0, []float64{1, 2}, D, 3)
	p.Transform(5, 7)
	if p.Row != 5 || p.Col != 7 {
		t.Fatalf("transform did not update coords: %+v", p)
	}
	if p.Enc != D || p.Delta != 3 || len(p.Values) != 2 {
		t.Fatalf("transform mutated payload: %+v", p)
	}
}

func TestLess(t *testing.T) {
	a := NewSingleton(1, 2, 1)
	b := NewSingleton(1, 3, 1)
	c := NewSingleton(2, 0, 1)
	if !Less(a, b) {
		t.Fatalf("expected a < b")
	}
	if !Less(b, c) {
		t.Fatalf("expected b < c")
	}
	if Less(b, a) {
		t.Fatalf("expected !(b < a)")
	}
}

func TestParseEncodingName(t *testing.T) {
	cases := map[string]Encoding{
		"h": H, "v": V, "d": D, "ad": AD,
		"br2": BR(2), "br8": BR(8), "bc5": BC(5),
	}
	for name, want := range cases {
		got, err := ParseEncodingName(name)
		if err != nil {
			t.Fatalf("ParseEncodingName(%q) error: %v", name, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseEncodingName(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := ParseEncodingName("bogus"); err == nil {
		t.Fatalf("expected error for unknown encoding name")
	}
	if _, err := ParseEncodingName("br99"); err == nil {
		t.Fatalf("expected error for out-of-range block K")
	}
}

// TestParseSequenceScenario6 pins down the exact behaviour named by
// spec.md §8 scenario 6.
func TestParseSequenceScenario6(t *testing.T) {
	toks, err := ParseSequence("h,br{2,3},all")
	if err != nil {
		t.Fatalf("ParseSequence error: %v", err)
	}
	if len(toks) != 3 {
		t.Fatalf("len(toks) = %d, want 3", len(toks))
	}
	if toks[0].Name != "h" || len(toks[0].Params) != 0 {
		t.Fatalf("token 0 = %+v, want (h, [])", toks[0])
	}
	if toks[1].Name != KindBR || len(toks[1].Params) != 2 || toks[1].Params[0] != 2 || toks[1].Params[1] != 3 {
		t.Fatalf("token 1 = %+v, want (br, [2 3])", toks[1])
	}
	if toks[2].Name != KindAll || len(toks[2].Params) != 0 {
		t.Fatalf("token 2 = %+v, want (all, [])", toks[2])
	}

	if _, err := ParseSequence("h,bogus"); err == nil {
		t.Fatalf("expected error for unknown name in sequence")
	}
}

func TestPatternIDRoundTrip(t *testing.T) {
	encs := []Encoding{H, V, D, AD, BR(2), BR(8), BC(3), BC(7)}
	for _, enc := range encs {
		for _, second := range []int{1, 2, 7} {
			id := PatternID(enc, second)
			gotEnc, gotSecond, ok := DecodePatternID(id)
			if !ok {
				t.Fatalf("DecodePatternID(%d) reported !ok for %v/%d", id, enc, second)
			}
			if !gotEnc.Equal(enc) || gotSecond != second {
				t.Fatalf("DecodePatternID(%d) = (%v,%d), want (%v,%d)", id, gotEnc, gotSecond, enc, second)
			}
		}
	}
	if _, _, ok := DecodePatternID(NoPattern); ok {
		t.Fatalf("expected DecodePatternID(NoPattern) to report !ok")
	}
}

func TestExpandWildcards(t *testing.T) {
	br, err := Expand("br", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(br) != MaxBlock-MinBlock+1 {
		t.Fatalf("len(br expansion) = %d, want %d", len(br), MaxBlock-MinBlock+1)
	}

	restricted, err := Expand("br", []int{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(restricted) != 2 {
		t.Fatalf("len(restricted br expansion) = %d, want 2", len(restricted))
	}

	all, err := Expand("all", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := 4 + (MaxBlock-MinBlock+1)*2
	if len(all) != want {
		t.Fatalf("len(all expansion) = %d, want %d", len(all), want)
	}
}
