// Package csx implements the CSX builder of spec.md §4.6: it turns a
// Horizontal-order partition of singleton and pattern elements into the
// self-delimiting ctl/values byte stream a specialized kernel walks.
package csx

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/partition"
)

// Unit flag bits, set on the first byte of every ctl unit.
const (
	flagNewRow byte = 1 << 7
	flagIsPatt byte = 1 << 6
)

// Column-jump width selectors.
const (
	widthU8 = iota
	widthU16
	widthU32
	widthU64
)

// maxUnitLen is the largest number of elements one delta unit may coalesce,
// per spec.md §4.6 ("length <= 255").
const maxUnitLen = 255

// RowInfo records one row's position in the byte stream, per spec.md
// §4.6 step 4: (start_ctl, start_val, span), where span is the row's
// column reach (last emitted column minus the row's first column) used
// by NUMA sanity checks downstream.
type RowInfo struct {
	StartCtl int
	StartVal int
	Span     int
}

// Csx is the built byte stream for one partition: a control stream, the
// flattened nonzero values in emission order, per-row bookkeeping, a
// row-skip bitmap, and the set of distinct pattern ids instantiated.
type Csx struct {
	Ctl      []byte
	Values   []float64
	RowsInfo []RowInfo
	RowJumps []bool
	IDMap    []int
	NNZ      int
}

// Build emits the byte stream for p, which must be in Horizontal order.
// It implements spec.md §4.6's per-row algorithm.
func Build(p *partition.Partition) (*Csx, error) {
	if p.Encoding != element.H {
		return nil, fmt.Errorf("csx: partition must be in Horizontal order to build, got %v", p.Encoding)
	}

	out := &Csx{
		RowsInfo: make([]RowInfo, p.NRows),
		RowJumps: make([]bool, p.NRows),
	}
	seen := map[int]bool{}

	var ctl bytes.Buffer
	for row := 0; row < p.NRows; row++ {
		lo, hi := p.RowBegin(row), p.RowEnd(row)
		startCtl := ctl.Len()
		startVal := len(out.Values)

		if lo == hi {
			out.RowJumps[row] = true
			out.RowsInfo[row] = RowInfo{StartCtl: startCtl, StartVal: startVal, Span: 0}
			continue
		}

		lastCol := 0
		firstCol := p.Elements[lo].Col
		newRow := true
		i := lo
		for i < hi {
			e := p.Elements[i]
			if e.IsPattern() {
				writePatternUnit(&ctl, out, e, &lastCol, newRow, seen)
				i++
			} else {
				j := i
				for j < hi && !p.Elements[j].IsPattern() && j-i < maxUnitLen {
					j++
				}
				writeDeltaUnit(&ctl, out, p.Elements[i:j], &lastCol, newRow)
				i = j
			}
			newRow = false
		}

		out.RowsInfo[row] = RowInfo{StartCtl: startCtl, StartVal: startVal, Span: lastCol - firstCol}
	}

	out.Ctl = ctl.Bytes()
	out.IDMap = idMapOf(seen)
	return out, nil
}

// CsxSym is the symmetric-variant encoding of spec.md §4.2: only the
// strict lower triangle is stored as a Csx; the diagonal is kept
// separately, one value per row.
type CsxSym struct {
	Lower *Csx
	Diag  []float64
}

// BuildSym builds the symmetric encoding from a Horizontal-order
// partition already filtered to its strict lower triangle (j < i), plus
// the matrix's diagonal values (diag[i] for row i, 0 where absent).
func BuildSym(p *partition.Partition, diag []float64) (*CsxSym, error) {
	lower, err := Build(p)
	if err != nil {
		return nil, err
	}
	if len(diag) != p.NRows {
		return nil, fmt.Errorf("csx: diag length %d != partition row count %d", len(diag), p.NRows)
	}
	return &CsxSym{Lower: lower, Diag: diag}, nil
}

func idMapOf(seen map[int]bool) []int {
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// writeDeltaUnit coalesces a run of singleton elements into one delta
// unit, per spec.md §4.6 step 2.
func writeDeltaUnit(ctl *bytes.Buffer, out *Csx, run []element.Element, lastCol *int, newRow bool) {
	jumps := make([]int, len(run))
	maxJump := 0
	col := *lastCol
	for i, e := range run {
		jumps[i] = e.Col - col
		if jumps[i] > maxJump {
			maxJump = jumps[i]
		}
		col = e.Col
	}
	width := widthFor(maxJump)

	flags := byte(0)
	if newRow {
		flags |= flagNewRow
	}
	ctl.WriteByte(flags)
	ctl.WriteByte(byte(len(run)))
	ctl.WriteByte(byte(width))
	padAlign(ctl, width)
	for _, j := range jumps {
		writeWidth(ctl, width, j)
	}

	for _, e := range run {
		out.Values = append(out.Values, e.Value(0))
	}
	out.NNZ += len(run)
	*lastCol = col
}

// writePatternUnit emits one pattern element's unit, per spec.md §4.6
// step 3.
func writePatternUnit(ctl *bytes.Buffer, out *Csx, e element.Element, lastCol *int, newRow bool, seen map[int]bool) {
	jump := e.Col - *lastCol
	width := widthFor(jump)

	flags := flagIsPatt
	if newRow {
		flags |= flagNewRow
	}
	ctl.WriteByte(flags)
	ctl.WriteByte(byte(e.Size()))
	ctl.WriteByte(byte(width))

	// The pattern id alone fully determines geometry here: PatternID bakes
	// the in-pattern delta (1-D families) or block variable-dimension
	// directly into "second" (element.DecodePatternID recovers it), so
	// unlike a fixed-size id space keyed to a small lookup table, no
	// separate delta/dimension field needs to ride along in ctl.
	id := e.PatternID()
	seen[id] = true
	var idBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(idBuf[:], uint64(id))
	ctl.Write(idBuf[:n])

	padAlign(ctl, width)
	writeWidth(ctl, width, jump)

	for k := 0; k < e.Size(); k++ {
		out.Values = append(out.Values, e.Value(k))
	}
	out.NNZ += e.Size()
	*lastCol = e.Col
}

// widthFor returns the narrowest integer width able to hold v.
func widthFor(v int) int {
	switch {
	case v >= 0 && v <= 0xff:
		return widthU8
	case v >= 0 && v <= 0xffff:
		return widthU16
	case v >= 0 && v <= 0xffffffff:
		return widthU32
	default:
		return widthU64
	}
}

// padAlign pads ctl with zero bytes until its length is a multiple of
// the byte width implied by w, as spec.md §4.6 requires for width > 1.
func padAlign(ctl *bytes.Buffer, w int) {
	size := 1 << uint(w)
	if size <= 1 {
		return
	}
	for ctl.Len()%size != 0 {
		ctl.WriteByte(0)
	}
}

func writeWidth(ctl *bytes.Buffer, w int, v int) {
	switch w {
	case widthU8:
		ctl.WriteByte(byte(v))
	case widthU16:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		ctl.Write(b[:])
	case widthU32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		ctl.Write(b[:])
	default:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		ctl.Write(b[:])
	}
}

// UnitHandler receives one decoded ctl unit. For a delta unit, patternID
// is element.NoPattern and fn is invoked once per coalesced singleton,
// each with its own absolute column and a length-1 values slice. For a
// pattern unit, fn is invoked once with the pattern's anchor column and
// its full values slice, in the same order Build emitted them.
type UnitHandler func(row, col, patternID int, values []float64)

// Walk replays c's ctl stream row by row, the inverse of Build, used by
// the kernel package to dispatch each unit to its jit-specialized
// contribution function.
func (c *Csx) Walk(fn UnitHandler) error {
	valIdx := 0
	nrows := len(c.RowsInfo)
	for row := 0; row < nrows; row++ {
		start := c.RowsInfo[row].StartCtl
		end := len(c.Ctl)
		if row+1 < nrows {
			end = c.RowsInfo[row+1].StartCtl
		}
		lastCol := 0
		pos := start
		for pos < end {
			if pos+3 > len(c.Ctl) {
				return fmt.Errorf("csx: truncated unit header at row %d offset %d", row, pos)
			}
			flags := c.Ctl[pos]
			size := int(c.Ctl[pos+1])
			width := int(c.Ctl[pos+2])
			pos += 3
			isPattern := flags&flagIsPatt != 0

			id := element.NoPattern
			if isPattern {
				v, n := binary.Uvarint(c.Ctl[pos:])
				if n <= 0 {
					return fmt.Errorf("csx: malformed pattern id varint at row %d offset %d", row, pos)
				}
				id = int(v)
				pos += n
			}

			pos = alignTo(pos, width)
			if isPattern {
				jump, n, err := readWidth(c.Ctl, pos, width)
				if err != nil {
					return err
				}
				pos += n
				col := lastCol + jump
				vals := c.Values[valIdx : valIdx+size]
				valIdx += size
				fn(row, col, id, vals)
				lastCol = col
			} else {
				col := lastCol
				for i := 0; i < size; i++ {
					jump, n, err := readWidth(c.Ctl, pos, width)
					if err != nil {
						return err
					}
					pos += n
					col += jump
					fn(row, col, element.NoPattern, c.Values[valIdx:valIdx+1])
					valIdx++
				}
				lastCol = col
			}
		}
	}
	return nil
}

func alignTo(pos, w int) int {
	size := 1 << uint(w)
	if size <= 1 {
		return pos
	}
	for pos%size != 0 {
		pos++
	}
	return pos
}

func readWidth(buf []byte, pos, w int) (int, int, error) {
	size := 1 << uint(w)
	if pos+size > len(buf) {
		return 0, 0, fmt.Errorf("csx: truncated column jump at offset %d", pos)
	}
	switch w {
	case widthU8:
		return int(buf[pos]), 1, nil
	case widthU16:
		return int(binary.LittleEndian.Uint16(buf[pos:])), 2, nil
	case widthU32:
		return int(binary.LittleEndian.Uint32(buf[pos:])), 4, nil
	default:
		return int(binary.LittleEndian.Uint64(buf[pos:])), 8, nil
	}
}
