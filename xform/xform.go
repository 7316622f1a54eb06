// Package xform implements the coordinate transform algebra of spec.md
// §4.1: bijections between the traversal orders used by pattern mining
// (Horizontal, Vertical, Diagonal, AntiDiagonal, BlockRowK, BlockColK) and
// their inverses, composed through the canonical Horizontal basis.
package xform

import "github.com/csxmv/csxmv/element"

// Coord is a 1-based (row, col) pair, matching the literal transform
// formulas given in spec.md §4.1. Callers working in 0-based coordinates
// (the rest of this module) convert at the package boundary via ToCoord
// and FromCoord.
type Coord struct {
	R, C int
}

// ToCoord converts a 0-based (row, col) pair into the 1-based Coord the
// transform formulas expect.
func ToCoord(row, col int) Coord { return Coord{R: row + 1, C: col + 1} }

// FromCoord converts a 1-based Coord back into a 0-based (row, col) pair.
func FromCoord(c Coord) (row, col int) { return c.R - 1, c.C - 1 }

// Dims carries the row/column extent of the matrix in its Horizontal
// (natural) orientation; Diag uses R, AntiDiag uses C.
type Dims struct {
	R, C int
}

// Func maps a coordinate from one traversal order to another.
type Func func(c Coord, d Dims) Coord

// Horizontal is the identity transform; it is also the canonical basis
// every other transform composes through.
func Horizontal(c Coord, _ Dims) Coord { return c }

// Vertical swaps row and column.
func Vertical(c Coord, _ Dims) Coord { return Coord{R: c.C, C: c.R} }

// verticalInverse is its own inverse.
func verticalInverse(c Coord, d Dims) Coord { return Vertical(c, d) }

// DiagForward implements D(r,c) = (R + c - r, min(r,c)).
func DiagForward(c Coord, d Dims) Coord {
	m := c.R
	if c.C < m {
		m = c.C
	}
	return Coord{R: d.R + c.C - c.R, C: m}
}

// DiagInverse recovers (r,c) from D(r,c) = (r', p) where p = min(r,c) and
// r' - R = c - r.
func DiagInverse(c Coord, d Dims) Coord {
	delta := c.R - d.R // = original c - r
	p := c.C
	if delta >= 0 {
		return Coord{R: p, C: p + delta}
	}
	return Coord{R: p - delta, C: p}
}

// AntiDiagForward implements AD(r,c) = (r+c-1, (r+c) <= C ? r : C-c+1).
// The "<=" boundary at r+c == C is the literal spec.md reading; see
// DESIGN.md Open Question 1.
func AntiDiagForward(c Coord, d Dims) Coord {
	s := c.R + c.C
	var p int
	if s <= d.C {
		p = c.R
	} else {
		p = d.C - c.C + 1
	}
	return Coord{R: s - 1, C: p}
}

// AntiDiagInverse recovers (r,c) from AD(r,c).
func AntiDiagInverse(c Coord, d Dims) Coord {
	s := c.R + 1 // original r+c
	if s <= d.C {
		row := c.C
		col := s - row
		return Coord{R: row, C: col}
	}
	col := d.C - c.C + 1
	row := s - col
	return Coord{R: row, C: col}
}

// BlockRowForward implements BRk(r,c) = ((r-1)/k+1, (r-1) mod k + k(c-1)+1).
func BlockRowForward(k int) Func {
	return func(c Coord, _ Dims) Coord {
		r1 := c.R - 1
		return Coord{R: r1/k + 1, C: r1%k + k*(c.C-1) + 1}
	}
}

// BlockRowInverse inverts BlockRowForward(k).
func BlockRowInverse(k int) Func {
	return func(c Coord, _ Dims) Coord {
		q := c.R - 1
		cm1 := c.C - 1
		rem := cm1 % k
		div := cm1 / k
		return Coord{R: q*k + rem + 1, C: div + 1}
	}
}

// BlockColForward implements BCk(r,c) = BRk(V(r,c)).
func BlockColForward(k int) Func {
	br := BlockRowForward(k)
	return func(c Coord, d Dims) Coord {
		return br(Vertical(c, d), d)
	}
}

// BlockColInverse inverts BlockColForward(k).
func BlockColInverse(k int) Func {
	brInv := BlockRowInverse(k)
	return func(c Coord, d Dims) Coord {
		return Vertical(brInv(c, d), d)
	}
}

// Forward returns the transform mapping Horizontal coordinates to enc's
// traversal order.
func Forward(enc element.Encoding) Func {
	switch enc.Family {
	case element.Horiz:
		return Horizontal
	case element.Vert:
		return Vertical
	case element.Diag:
		return DiagForward
	case element.AntiDiag:
		return AntiDiagForward
	case element.BlockRow:
		return BlockRowForward(enc.K)
	case element.BlockCol:
		return BlockColForward(enc.K)
	default:
		panic("xform: unknown encoding family")
	}
}

// Inverse returns the transform mapping enc's traversal order back to
// Horizontal coordinates.
func Inverse(enc element.Encoding) Func {
	switch enc.Family {
	case element.Horiz:
		return Horizontal
	case element.Vert:
		return verticalInverse
	case element.Diag:
		return DiagInverse
	case element.AntiDiag:
		return AntiDiagInverse
	case element.BlockRow:
		return BlockRowInverse(enc.K)
	case element.BlockCol:
		return BlockColInverse(enc.K)
	default:
		panic("xform: unknown encoding family")
	}
}

// Compose returns T_from->to = T_to . T_from^-1, chaining through the
// canonical Horizontal basis as required by spec.md §4.1. The returned
// function is branch-light and allocation-free per call.
func Compose(from, to element.Encoding) Func {
	if from.Equal(to) {
		return Horizontal
	}
	toHoriz := Inverse(from)
	fromHoriz := Forward(to)
	return func(c Coord, d Dims) Coord {
		return fromHoriz(toHoriz(c, d), d)
	}
}

// Registry resolves (from, to) transform pairs on demand. It holds no
// mutable state; it exists to give callers a single lookup surface
// matching spec.md §4.1's "a registry returns a callable given a (from,
// to) pair".
type Registry struct{}

// Get returns the composed transform from one encoding's traversal order
// to another's.
func (Registry) Get(from, to element.Encoding) Func {
	return Compose(from, to)
}
