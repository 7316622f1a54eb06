// Package element defines the generic nonzero-element model shared by the
// partition, statistics, encoder and csx packages: the singleton/pattern
// sum type, the encoding tag enum, and the dense pattern-id scheme.
package element

import (
	"fmt"
	"strconv"
	"strings"
)

// Family names the geometric rule an encoding follows.
type Family uint8

const (
	// Horiz is a run of consecutive nonzeros within one row.
	Horiz Family = iota
	// Vert is a run of consecutive nonzeros within one column.
	Vert
	// Diag is a run of nonzeros along a falling diagonal.
	Diag
	// AntiDiag is a run of nonzeros along a rising (anti-)diagonal.
	AntiDiag
	// BlockRow is a fixed-K x variable block, walked row-major.
	BlockRow
	// BlockCol is a fixed-K x variable block, walked column-major.
	BlockCol
)

// MinBlock and MaxBlock bound the fixed dimension K of block encodings.
const (
	MinBlock = 2
	MaxBlock = 8
)

func (f Family) String() string {
	switch f {
	case Horiz:
		return "h"
	case Vert:
		return "v"
	case Diag:
		return "d"
	case AntiDiag:
		return "ad"
	case BlockRow:
		return "br"
	case BlockCol:
		return "bc"
	default:
		return "?"
	}
}

// Encoding is a pattern's geometric family plus, for block families, the
// fixed dimension K in [MinBlock, MaxBlock].
type Encoding struct {
	Family Family
	K      int
}

// H, V, D and AD are the non-block encodings; they carry no K.
var (
	H  = Encoding{Family: Horiz}
	V  = Encoding{Family: Vert}
	D  = Encoding{Family: Diag}
	AD = Encoding{Family: AntiDiag}
)

// BR returns the BlockRowK encoding for the given fixed dimension k.
func BR(k int) Encoding { return Encoding{Family: BlockRow, K: k} }

// BC returns the BlockColK encoding for the given fixed dimension k.
func BC(k int) Encoding { return Encoding{Family: BlockCol, K: k} }

// IsBlock reports whether e is a block-row or block-column encoding.
func (e Encoding) IsBlock() bool { return e.Family == BlockRow || e.Family == BlockCol }

// Is1D reports whether e is one of the non-block, stride-based encodings.
func (e Encoding) Is1D() bool { return !e.IsBlock() }

func (e Encoding) String() string {
	if e.IsBlock() {
		return fmt.Sprintf("%s%d", e.Family, e.K)
	}
	return e.Family.String()
}

// tag returns a dense small integer naming the (family, K) combination,
// used as the first term of the pattern-id formula in spec.md §4.2.
func (e Encoding) tag() int {
	switch e.Family {
	case Horiz:
		return 0
	case Vert:
		return 1
	case Diag:
		return 2
	case AntiDiag:
		return 3
	case BlockRow:
		return 4 + (e.K - MinBlock)
	case BlockCol:
		return 4 + (MaxBlock - MinBlock + 1) + (e.K - MinBlock)
	default:
		return -1
	}
}

// pattOffset is the multiplier used to combine an encoding tag with its
// delta/variable-dimension into a single dense-ish integer id, per the
// formula "enc_tag * PATT_OFFSET + second" in spec.md §4.2.
const pattOffset = 1 << 16

// PatternID computes the dense-ish integer id for an (encoding, second)
// pair, where second is the inter-element delta for 1-D encodings or the
// variable dimension size for block encodings. PatternID(H, 0) equals
// NoPattern, the id of a delta unit, so genuine patterns always pass
// second >= 1.
func PatternID(enc Encoding, second int) int {
	return enc.tag()*pattOffset + second
}

// NoPattern is the reserved pattern id for delta units (singleton runs).
const NoPattern = 0

// decodeTag inverts Encoding.tag, recovering the (family, K) pair dense-
// packed into a pattern id's high term.
func decodeTag(tag int) (Encoding, bool) {
	switch {
	case tag == 0:
		return H, true
	case tag == 1:
		return V, true
	case tag == 2:
		return D, true
	case tag == 3:
		return AD, true
	case tag >= 4 && tag < 4+(MaxBlock-MinBlock+1):
		return BR(tag - 4 + MinBlock), true
	case tag >= 4+(MaxBlock-MinBlock+1) && tag < 4+2*(MaxBlock-MinBlock+1):
		return BC(tag - 4 - (MaxBlock - MinBlock + 1) + MinBlock), true
	default:
		return Encoding{}, false
	}
}

// DecodePatternID inverts PatternID, recovering the encoding and the
// delta/variable-dimension ("second") that produced id. It returns false
// for id == NoPattern or any id not producible by PatternID.
func DecodePatternID(id int) (enc Encoding, second int, ok bool) {
	if id == NoPattern {
		return Encoding{}, 0, false
	}
	tag := id / pattOffset
	second = id % pattOffset
	enc, ok = decodeTag(tag)
	return enc, second, ok
}

// Less orders encodings by tag, used as the tie-break "smaller enc ordinal"
// rule in the automatic search (spec.md §4.5 step 3).
func (e Encoding) Less(o Encoding) bool { return e.tag() < o.tag() }

// Equal reports whether two encodings name the same family and K.
func (e Encoding) Equal(o Encoding) bool { return e.Family == o.Family && e.K == o.K }

// ParseEncodingName parses a single short name ("h", "v", "d", "ad",
// "br3", "bc5") into an Encoding. Wildcards ("br", "bc", "all") are not
// accepted here; use ParseSequence for the full comma-separated grammar.
func ParseEncodingName(name string) (Encoding, error) {
	switch name {
	case "h":
		return H, nil
	case "v":
		return V, nil
	case "d":
		return D, nil
	case "ad":
		return AD, nil
	}
	if strings.HasPrefix(name, "br") {
		k, err := strconv.Atoi(name[2:])
		if err != nil || k < MinBlock || k > MaxBlock {
			return Encoding{}, fmt.Errorf("element: invalid block encoding name %q", name)
		}
		return BR(k), nil
	}
	if strings.HasPrefix(name, "bc") {
		k, err := strconv.Atoi(name[2:])
		if err != nil || k < MinBlock || k > MaxBlock {
			return Encoding{}, fmt.Errorf("element: invalid block encoding name %q", name)
		}
		return BC(k), nil
	}
	return Encoding{}, fmt.Errorf("element: unknown encoding name %q", name)
}

// Expand returns the concrete encodings named by a wildcard. "br" expands
// to BlockRow2..BlockRow8 (or the K values in restrictK, if non-empty),
// "bc" likewise for BlockCol, and "all" expands to every atomic encoding
// (H, V, D, AD and every block K). Non-wildcard tokens expand to
// themselves.
func Expand(kind string, restrictK []int) ([]Encoding, error) {
	ks := restrictK
	if len(ks) == 0 {
		for k := MinBlock; k <= MaxBlock; k++ {
			ks = append(ks, k)
		}
	}
	switch kind {
	case "br":
		out := make([]Encoding, 0, len(ks))
		for _, k := range ks {
			out = append(out, BR(k))
		}
		return out, nil
	case "bc":
		out := make([]Encoding, 0, len(ks))
		for _, k := range ks {
			out = append(out, BC(k))
		}
		return out, nil
	case "all":
		out := []Encoding{H, V, D, AD}
		for k := MinBlock; k <= MaxBlock; k++ {
			out = append(out, BR(k))
		}
		for k := MinBlock; k <= MaxBlock; k++ {
			out = append(out, BC(k))
		}
		return out, nil
	default:
		enc, err := ParseEncodingName(kind)
		if err != nil {
			return nil, err
		}
		return []Encoding{enc}, nil
	}
}
