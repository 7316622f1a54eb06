package element

// Locate inverts one of jit's per-family contribution geometries: given a
// pattern instance anchored at (anchorRow, anchorCol) with n stored values,
// it reports the index into that values slice holding (row, col), or false
// if (row, col) isn't one of the pattern's own contributions. This is the
// read/write counterpart to jit.buildPatternFunc's forward walk, used by
// the facade's entry-lookup and entry-set operations, which address a
// matrix by (row, col) rather than by ctl-stream position.
func Locate(enc Encoding, second int, anchorRow, anchorCol, n int, row, col int) (idx int, ok bool) {
	switch enc.Family {
	case Horiz:
		delta := second
		if row != anchorRow || delta == 0 {
			return 0, false
		}
		return indexOnStride(anchorCol, delta, col, n)
	case Vert:
		delta := second
		if col != anchorCol || delta == 0 {
			return 0, false
		}
		return indexOnStride(anchorRow, delta, row, n)
	case Diag:
		delta := second
		if delta == 0 {
			return 0, false
		}
		ri, ok := indexOnStride(anchorRow, delta, row, n)
		if !ok {
			return 0, false
		}
		ci, ok := indexOnStride(anchorCol, delta, col, n)
		if !ok || ri != ci {
			return 0, false
		}
		return ri, true
	case AntiDiag:
		delta := second
		if delta == 0 {
			return 0, false
		}
		ri, ok := indexOnStride(anchorRow, delta, row, n)
		if !ok {
			return 0, false
		}
		ci, ok := indexOnStride(anchorCol, -delta, col, n)
		if !ok || ri != ci {
			return 0, false
		}
		return ri, true
	case BlockRow:
		k := enc.K
		if k <= 0 || n%k != 0 {
			return 0, false
		}
		cols := n / k
		r, c := row-anchorRow, col-anchorCol
		if r < 0 || r >= k || c < 0 || c >= cols {
			return 0, false
		}
		return r*cols + c, true
	case BlockCol:
		k := enc.K
		if k <= 0 || n%k != 0 {
			return 0, false
		}
		rows := n / k
		r, c := row-anchorRow, col-anchorCol
		if r < 0 || r >= rows || c < 0 || c >= k {
			return 0, false
		}
		return c*rows + r, true
	default:
		return 0, false
	}
}

// indexOnStride reports the index i in [0, n) such that anchor + i*delta
// == target, or false if target isn't reached by the stride within n
// steps. delta may be negative (the anti-diagonal's column walk).
func indexOnStride(anchor, delta, target, n int) (int, bool) {
	diff := target - anchor
	if delta == 0 || diff%delta != 0 {
		return 0, false
	}
	i := diff / delta
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}
