// Package partition implements the horizontally-sliced sparse matrix slab
// (spec.md §4.3): construction from a triple stream, coordinate-order
// transforms, and copying/moving row windows for sampling and parallel
// build.
package partition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/xform"
	"modernc.org/mathutil"
)

// Triple is one (row, col, value) nonzero read from an external source.
// Row and Col are absolute (matrix-wide) coordinates.
type Triple struct {
	Row, Col int
	Value    float64
}

// ErrDone is returned by a NextFunc to signal a clean end of input.
var ErrDone = errors.New("partition: no more triples")

// NextFunc supplies one triple per call, returning ErrDone once exhausted.
// Triples must arrive in non-decreasing row order.
type NextFunc func() (Triple, error)

// Partition is a horizontally-aligned slab of a sparse matrix. NRows is the
// number of local traversal units under the *current* Encoding (it changes
// across Transform calls, per spec.md §4.3's new_row_count(E) contract);
// origR/origC are the slab's fixed Horizontal-basis row/column extent,
// needed by the Diag/AntiDiag transforms regardless of current Encoding.
// RowPtr always has length NRows+1 and RowPtr[NRows] == len(Elements).
type Partition struct {
	NRows, NCols int
	RowStart     int
	Encoding     element.Encoding
	Elements     []element.Element
	RowPtr       []int

	origR, origC int
}

// New constructs an empty Horizontal-order partition of the given local
// shape starting at absolute row rowStart.
func New(nrRows, nrCols, rowStart int) *Partition {
	return &Partition{
		NRows:    nrRows,
		NCols:    nrCols,
		RowStart: rowStart,
		Encoding: element.H,
		RowPtr:   make([]int, nrRows+1),
		origR:    nrRows,
		origC:    nrCols,
	}
}

// NNZ returns the number of scalar nonzero values stored (summed across
// singleton and pattern elements).
func (p *Partition) NNZ() int {
	n := 0
	for _, e := range p.Elements {
		n += e.Size()
	}
	return n
}

// RowBegin and RowEnd return the half-open [RowBegin(i), RowEnd(i)) element
// index range for local row i. They panic if i is out of range.
func (p *Partition) RowBegin(i int) int { p.checkRow(i); return p.RowPtr[i] }
func (p *Partition) RowEnd(i int) int   { p.checkRow(i); return p.RowPtr[i+1] }

func (p *Partition) checkRow(i int) {
	if i < 0 || i >= p.NRows {
		panic(fmt.Sprintf("partition: row %d out of range [0,%d)", i, p.NRows))
	}
}

// SetElements drains triples from next, in row-major arrival order,
// building singleton elements and the row pointer as it goes. It stops
// after draining limit triples (limit <= 0 means unbounded) or when next
// returns ErrDone. rowHint and nnzHint only size the initial backing
// slices; they do not change NRows/NCols. If nnzHint > 0 and fewer than
// nnzHint triples were available before ErrDone (and limit did not stop
// the drain first), SetElements returns an error: the input terminated
// early relative to what the caller told it to expect.
func (p *Partition) SetElements(next NextFunc, rowStart, nnzHint, rowHint, limit int) (int, error) {
	p.RowStart = rowStart
	p.Encoding = element.H

	cap0 := nnzHint
	if cap0 <= 0 {
		cap0 = rowHint
	}
	if cap0 < 0 {
		cap0 = 0
	}
	elems := make([]element.Element, 0, cap0)
	rowptr := make([]int, p.NRows+1)

	curRow := -1
	count := 0
	exhausted := false
	for limit <= 0 || count < limit {
		t, err := next()
		if err == ErrDone {
			exhausted = true
			break
		}
		if err != nil {
			return count, err
		}
		localRow := t.Row - rowStart
		if localRow < 0 || localRow >= p.NRows {
			return count, fmt.Errorf("partition: row %d out of slab range [%d,%d)", t.Row, rowStart, rowStart+p.NRows)
		}
		if localRow < curRow {
			return count, fmt.Errorf("partition: triples not in non-decreasing row order (row %d after row %d)", t.Row, curRow+rowStart)
		}
		for curRow < localRow {
			curRow++
			rowptr[curRow] = count
		}
		elems = append(elems, element.NewSingleton(localRow, t.Col, t.Value))
		count++
	}
	for curRow < p.NRows-1 {
		curRow++
		rowptr[curRow] = count
	}
	rowptr[p.NRows] = count

	if nnzHint > 0 && count < nnzHint && exhausted {
		return count, fmt.Errorf("partition: input exhausted after %d of %d expected nonzeros", count, nnzHint)
	}

	p.Elements = elems
	p.RowPtr = rowptr
	p.origR, p.origC = p.NRows, p.NCols
	return count, nil
}

// rowCountFor returns the number of local rows a partition of Horizontal
// shape (nr, nc) has once traversed in encoding enc's order (spec.md
// §4.3's new_row_count(E)).
func rowCountFor(enc element.Encoding, nr, nc int) int {
	switch enc.Family {
	case element.Horiz:
		return nr
	case element.Vert:
		return nc
	case element.Diag, element.AntiDiag:
		return nr + nc - 1
	case element.BlockRow:
		return (nr + enc.K - 1) / enc.K
	case element.BlockCol:
		return (nc + enc.K - 1) / enc.K
	default:
		panic("partition: unknown encoding family")
	}
}

// alignment returns the number of original-matrix rows one local row of
// enc's traversal order corresponds to: K for block encodings, 1
// otherwise.
func alignment(enc element.Encoding) int {
	if enc.IsBlock() {
		return enc.K
	}
	return 1
}

// Transform remaps every element's coordinates from the partition's
// current encoding to "to", then rebuilds Elements (stably sorted in to's
// lexicographic order) and RowPtr. rowRange restricts the call to local
// rows [rowRange[0], rowRange[1]); pass [0, p.NRows) to transform the
// whole partition. When both encodings are row-aligned (Horizontal or
// BlockRow), elements are grouped into chunks of lcm(alignment(from),
// alignment(to)) original rows before each chunk is stably sorted
// independently — since chunk boundaries are multiples of both encodings'
// row groupings, concatenating the independently-sorted chunks yields the
// same order as one global stable sort. Any other transition
// (Vertical, Diagonal, AntiDiagonal, BlockCol on either side) is sorted
// in one stable sort over the full range.
func (p *Partition) Transform(to element.Encoding, rowRange [2]int) error {
	lo, hi := rowRange[0], rowRange[1]
	if lo < 0 || hi > p.NRows || lo > hi {
		return fmt.Errorf("partition: row range [%d,%d) out of bounds [0,%d)", lo, hi, p.NRows)
	}
	if lo == hi {
		return nil
	}
	if lo != 0 || hi != p.NRows {
		return p.transformSubrange(to, lo, hi)
	}

	compose := xform.Compose(p.Encoding, to)
	dims := xform.Dims{R: p.origR, C: p.origC}

	for i := range p.Elements {
		e := &p.Elements[i]
		c := compose(xform.ToCoord(e.Row, e.Col), dims)
		row, col := xform.FromCoord(c)
		e.Transform(row, col)
	}

	oldAlign := alignment(p.Encoding)
	newAlign := alignment(to)
	g := int(mathutil.GCD(int64(oldAlign), int64(newAlign)))
	lcm := oldAlign / g * newAlign
	groupSize := lcm / oldAlign
	if groupSize < 1 {
		groupSize = 1
	}

	oldRowPtr := p.RowPtr
	oldNRows := p.NRows
	rowAligned := func(e element.Encoding) bool {
		return e.Family == element.Horiz || e.Family == element.BlockRow
	}
	if (!rowAligned(p.Encoding) || !rowAligned(to)) && oldNRows > 0 {
		groupSize = oldNRows
	}
	for start := 0; start < oldNRows; start += groupSize {
		end := start + groupSize
		if end > oldNRows {
			end = oldNRows
		}
		lo := oldRowPtr[start]
		hi := oldRowPtr[end]
		sortByOrder(p.Elements[lo:hi])
	}

	p.NRows = rowCountFor(to, p.origR, p.origC)
	p.Encoding = to
	p.rebuildRowPtr()
	return nil
}

// transformSubrange handles a partial-range Transform call used while the
// encoder is scanning a restricted row window: it extracts the window,
// transforms it standalone, and splices the (possibly row-count-changed)
// result back in.
func (p *Partition) transformSubrange(to element.Encoding, lo, hi int) error {
	sub, err := p.ExtractWindow(lo, hi-lo)
	if err != nil {
		return err
	}
	if err := sub.Transform(to, [2]int{0, sub.NRows}); err != nil {
		return err
	}
	return p.spliceRows(lo, hi, sub)
}

func sortByOrder(s []element.Element) {
	sort.SliceStable(s, func(i, j int) bool { return element.Less(s[i], s[j]) })
}

// RebuildRowPtr recomputes RowPtr from Elements, which callers outside
// this package may reorder or replace (e.g. the encoder folding runs of
// singletons into pattern elements) as long as element Row values stay
// non-decreasing and within [0, NRows).
func (p *Partition) RebuildRowPtr() { p.rebuildRowPtr() }

// rebuildRowPtr recomputes RowPtr from the (already sorted) Elements,
// assuming NRows already names the post-transform row count.
func (p *Partition) rebuildRowPtr() {
	rowptr := make([]int, p.NRows+1)
	row := 0
	for i, e := range p.Elements {
		for row < e.Row {
			row++
			rowptr[row] = i
		}
	}
	for row < p.NRows {
		row++
		rowptr[row] = len(p.Elements)
	}
	p.RowPtr = rowptr
}

// ExtractWindow returns a copying slice of rows [rs, rs+length): the
// returned Partition shares no storage with the receiver.
func (p *Partition) ExtractWindow(rs, length int) (*Partition, error) {
	if rs < 0 || length < 0 || rs+length > p.NRows {
		return nil, fmt.Errorf("partition: window [%d,%d) out of bounds [0,%d)", rs, rs+length, p.NRows)
	}
	lo, hi := p.RowPtr[rs], p.RowPtr[rs+length]
	elems := make([]element.Element, hi-lo)
	copy(elems, p.Elements[lo:hi])
	rowptr := make([]int, length+1)
	for i := 0; i <= length; i++ {
		rowptr[i] = p.RowPtr[rs+i] - lo
	}
	return &Partition{
		NRows:    length,
		NCols:    p.NCols,
		RowStart: p.RowStart + rs,
		Encoding: p.Encoding,
		Elements: elems,
		RowPtr:   rowptr,
		origR:    p.origR,
		origC:    p.origC,
	}, nil
}

// WindowView is a moving (non-copying) slice of a partition's rows,
// obtained from GetWindow. The caller may freely mutate View (including
// running Transform or pattern-folding over it) and must eventually
// return it via the source partition's PutWindow.
type WindowView struct {
	parent   *Partition
	rowStart int
	length   int
	View     *Partition
	returned bool
}

// GetWindow removes rows [rs, rs+length) from the receiver and returns
// them as a standalone Partition the caller owns until PutWindow.
func (p *Partition) GetWindow(rs, length int) (*WindowView, error) {
	if rs < 0 || length < 0 || rs+length > p.NRows {
		return nil, fmt.Errorf("partition: window [%d,%d) out of bounds [0,%d)", rs, rs+length, p.NRows)
	}
	lo, hi := p.RowPtr[rs], p.RowPtr[rs+length]
	extracted := make([]element.Element, hi-lo)
	copy(extracted, p.Elements[lo:hi])
	rowptr := make([]int, length+1)
	for i := 0; i <= length; i++ {
		rowptr[i] = p.RowPtr[rs+i] - lo
	}

	removed := hi - lo
	newElems := make([]element.Element, 0, len(p.Elements)-removed)
	newElems = append(newElems, p.Elements[:lo]...)
	newElems = append(newElems, p.Elements[hi:]...)
	p.Elements = newElems
	for i := rs + 1; i <= rs+length; i++ {
		p.RowPtr[i] = lo
	}
	for i := rs + length + 1; i <= p.NRows; i++ {
		p.RowPtr[i] -= removed
	}

	view := &Partition{
		NRows:    length,
		NCols:    p.NCols,
		RowStart: p.RowStart + rs,
		Encoding: p.Encoding,
		Elements: extracted,
		RowPtr:   rowptr,
		origR:    p.origR,
		origC:    p.origC,
	}
	return &WindowView{parent: p, rowStart: rs, length: length, View: view}, nil
}

// PutWindow splices w.View's current rows back into the rows it was taken
// from. It is an error to call PutWindow twice for the same WindowView, to
// call it on a different partition than the one GetWindow was called on,
// or to supply a View whose row count no longer matches the window.
func (p *Partition) PutWindow(w *WindowView) error {
	if w == nil || w.parent != p {
		return errors.New("partition: PutWindow called with a window from a different partition")
	}
	if w.returned {
		return errors.New("partition: window already returned")
	}
	if w.View.NRows != w.length {
		return fmt.Errorf("partition: window row count changed from %d to %d", w.length, w.View.NRows)
	}
	if err := p.spliceRows(w.rowStart, w.rowStart+w.length, w.View); err != nil {
		return err
	}
	w.returned = true
	return nil
}

// spliceRows inserts sub's elements back into p at local rows [lo, hi),
// updating RowPtr for the affected and following rows.
func (p *Partition) spliceRows(lo, hi int, sub *Partition) error {
	if hi-lo != sub.NRows {
		return fmt.Errorf("partition: splice row-count mismatch: range has %d rows, window has %d", hi-lo, sub.NRows)
	}
	insertAt := p.RowPtr[lo]
	removed := p.RowPtr[hi] - insertAt
	added := len(sub.Elements)

	merged := make([]element.Element, 0, len(p.Elements)-removed+added)
	merged = append(merged, p.Elements[:insertAt]...)
	merged = append(merged, sub.Elements...)
	merged = append(merged, p.Elements[insertAt+removed:]...)
	p.Elements = merged

	for i := 0; i <= sub.NRows; i++ {
		p.RowPtr[lo+i] = insertAt + sub.RowPtr[i]
	}
	delta := added - removed
	for i := hi + 1; i <= p.NRows; i++ {
		p.RowPtr[i] += delta
	}
	return nil
}
