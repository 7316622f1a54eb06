package csxmv

import (
	"github.com/csxmv/csxmv/csx"
	"github.com/csxmv/csxmv/element"
	"github.com/csxmv/csxmv/internal/cerr"
	"github.com/csxmv/csxmv/internal/logging"
	"github.com/csxmv/csxmv/mtbuild"
)

// workerForRow returns the worker owning global row, or nil if out of
// range (workers are built in ascending RowStart order by mtbuild.Build).
func (m *Matrix) workerForRow(row int) *mtbuild.Worker {
	for _, w := range m.workers {
		if row >= w.RowStart && row < w.RowStart+w.NRows {
			return w
		}
	}
	return nil
}

// MatGetEntry implements spec.md §4.13's mat_get_entry: it returns the
// stored value at (row, col), or EntryNotFound if no nonzero is stored
// there. For CSX-Sym matrices, an upper-triangle query is mirrored into
// the stored strict-lower-triangle + diagonal representation.
func (m *Matrix) MatGetEntry(row, col int) (float64, error) {
	if row < 0 || row >= m.nrows || col < 0 || col >= m.ncols {
		return 0, cerr.New("MatGetEntry", cerr.IndexOutOfBounds, "(%d,%d) out of bounds for a %dx%d matrix", row, col, m.nrows, m.ncols)
	}

	if m.symmetric {
		r, c := row, col
		if c > r {
			r, c = c, r
		}
		w := m.workerForRow(r)
		if w == nil {
			return 0, cerr.New("MatGetEntry", cerr.IndexOutOfBounds, "no worker owns row %d", r)
		}
		if r == c {
			return w.CsxSym.Diag[r-w.RowStart], nil
		}
		v, ok, err := locateInCsx(w.CsxSym.Lower, w.RowStart, r, c)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, cerr.New("MatGetEntry", cerr.EntryNotFound, "no stored nonzero at (%d,%d)", row, col)
		}
		return v, nil
	}

	w := m.workerForRow(row)
	if w == nil {
		return 0, cerr.New("MatGetEntry", cerr.IndexOutOfBounds, "no worker owns row %d", row)
	}
	v, ok, err := locateInCsx(w.Csx, w.RowStart, row, col)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, cerr.New("MatGetEntry", cerr.EntryNotFound, "no stored nonzero at (%d,%d)", row, col)
	}
	return v, nil
}

// MatSetEntry implements spec.md §4.13's mat_set_entry: it overwrites the
// value already stored at (row, col) in place. It cannot create a new
// nonzero position the tuned CSX stream doesn't already carry — that case
// returns the EntryNotSet warning kind (cerr.IsWarning reports true), per
// spec.md §4.13 naming mat_set_entry's "position not present" case a
// warning rather than a hard failure.
func (m *Matrix) MatSetEntry(row, col int, value float64) error {
	if row < 0 || row >= m.nrows || col < 0 || col >= m.ncols {
		return cerr.New("MatSetEntry", cerr.IndexOutOfBounds, "(%d,%d) out of bounds for a %dx%d matrix", row, col, m.nrows, m.ncols)
	}

	if m.symmetric {
		r, c := row, col
		if c > r {
			r, c = c, r
		}
		w := m.workerForRow(r)
		if w == nil {
			return cerr.New("MatSetEntry", cerr.IndexOutOfBounds, "no worker owns row %d", r)
		}
		if r == c {
			w.CsxSym.Diag[r-w.RowStart] = value
			return nil
		}
		ok, err := setInCsx(w.CsxSym.Lower, w.RowStart, r, c, value)
		if err != nil {
			return err
		}
		if !ok {
			logging.Default.Warnf("MatSetEntry: no stored nonzero at (%d,%d) to overwrite", row, col)
			return cerr.New("MatSetEntry", cerr.EntryNotSet, "no stored nonzero at (%d,%d) to overwrite", row, col)
		}
		return nil
	}

	w := m.workerForRow(row)
	if w == nil {
		return cerr.New("MatSetEntry", cerr.IndexOutOfBounds, "no worker owns row %d", row)
	}
	ok, err := setInCsx(w.Csx, w.RowStart, row, col, value)
	if err != nil {
		return err
	}
	if !ok {
		logging.Default.Warnf("MatSetEntry: no stored nonzero at (%d,%d) to overwrite", row, col)
		return cerr.New("MatSetEntry", cerr.EntryNotSet, "no stored nonzero at (%d,%d) to overwrite", row, col)
	}
	return nil
}

// locateInCsx walks c's ctl stream looking for (targetRow, targetCol),
// using element.Locate to test each pattern unit's own (row, col)
// contributions (not just its anchor) the way jit's specialized
// functions would scatter them.
func locateInCsx(c *csx.Csx, rowStart, targetRow, targetCol int) (value float64, found bool, err error) {
	err = c.Walk(func(localRow, anchorCol, patternID int, values []float64) {
		if found {
			return
		}
		row := rowStart + localRow
		if patternID == element.NoPattern {
			if row == targetRow && anchorCol == targetCol {
				value, found = values[0], true
			}
			return
		}
		enc, second, ok := element.DecodePatternID(patternID)
		if !ok {
			return
		}
		if idx, ok := element.Locate(enc, second, row, anchorCol, len(values), targetRow, targetCol); ok {
			value, found = values[idx], true
		}
	})
	return value, found, err
}

// setInCsx mirrors locateInCsx but overwrites the matched value in
// place. Csx.Walk hands the pattern/delta unit's values as a direct
// sub-slice of c.Values, so writing through it mutates the stream's own
// backing array — no rebuild of the ctl stream is needed.
func setInCsx(c *csx.Csx, rowStart, targetRow, targetCol int, value float64) (found bool, err error) {
	err = c.Walk(func(localRow, anchorCol, patternID int, values []float64) {
		if found {
			return
		}
		row := rowStart + localRow
		if patternID == element.NoPattern {
			if row == targetRow && anchorCol == targetCol {
				values[0] = value
				found = true
			}
			return
		}
		enc, second, ok := element.DecodePatternID(patternID)
		if !ok {
			return
		}
		if idx, ok := element.Locate(enc, second, row, anchorCol, len(values), targetRow, targetCol); ok {
			values[idx] = value
			found = true
		}
	})
	return found, err
}
