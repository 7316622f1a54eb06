package element

// Marker records whether an element is the start of a pattern run, an
// interior element already folded into a preceding pattern, or not part of
// any pattern. It is transient encoder bookkeeping and is never persisted.
type Marker uint8

const (
	// NotInPattern is the default marker for a singleton not yet
	// considered for, or rejected from, pattern membership.
	NotInPattern Marker = iota
	// PatternStart marks the first element of a pattern run; only start
	// elements survive into the final element sequence.
	PatternStart
	// PatternInterior marks an element folded into a preceding
	// PatternStart and removed from the sequence by the encoder.
	PatternInterior
)

// Element is the generic nonzero: either a singleton (Values has length 1,
// Enc is the zero Encoding) or a pattern instance (Values has length
// Size() >= 2, Enc/Delta describe the run's geometry). Row and Col are the
// coordinates of the first element of the run in the partition's current
// traversal order.
type Element struct {
	Row, Col int
	Values   []float64
	Enc      Encoding
	Delta    int
	Marker   Marker
}

// NewSingleton builds a one-element, non-pattern Element.
func NewSingleton(row, col int, v float64) Element {
	return Element{Row: row, Col: col, Values: []float64{v}}
}

// NewPattern builds a pattern Element covering len(values) >= 2 nonzeros
// with the given encoding and delta (delta is the inter-element stride for
// 1-D encodings, or the variable-dimension length for block encodings).
func NewPattern(row, col int, values []float64, enc Encoding, delta int) Element {
	if len(values) < 2 {
		panic("element: pattern must have size >= 2")
	}
	return Element{Row: row, Col: col, Values: values, Enc: enc, Delta: delta}
}

// Size returns the number of nonzeros the element represents: 1 for a
// singleton, len(Values) for a pattern.
func (e Element) Size() int { return len(e.Values) }

// IsPattern reports whether e represents a multi-element run rather than a
// singleton.
func (e Element) IsPattern() bool { return len(e.Values) >= 2 }

// PatternID returns the dense pattern id of e, or NoPattern (0) for a
// singleton / delta unit.
func (e Element) PatternID() int {
	if !e.IsPattern() {
		return NoPattern
	}
	second := e.Delta
	if e.Enc.IsBlock() {
		second = e.Size() / e.Enc.K
	}
	return PatternID(e.Enc, second)
}

// Transform moves e to new coordinates without touching its payload
// (values, encoding, delta, marker), matching the contract that
// transform() only ever changes (row, col).
func (e *Element) Transform(row, col int) {
	e.Row, e.Col = row, col
}

// Less orders elements in lexicographic (Row, Col) order; singletons and
// pattern starts compare by their own starting coordinate.
func Less(a, b Element) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// Value returns the k'th value of the element (0 for a singleton).
func (e Element) Value(k int) float64 { return e.Values[k] }
