package csxmv

import "github.com/csxmv/csxmv/internal/cerr"

// Kind classifies an error this package returns, mirroring spec.md
// §4.13's closed error taxonomy. It is a type alias (not a new type) for
// internal/cerr.Kind so callers can compare csxmv.Kind values returned
// by Error.Kind against both sets of constants interchangeably.
type Kind = cerr.Kind

// The Kind values spec.md §4.13 enumerates. ReorderingInfeasible and
// EntryNotSet are warnings (IsWarning reports true for both): recoverable
// conditions a caller may choose to log and continue past rather than
// treat as a failed call.
const (
	InvalidConfig        = cerr.InvalidConfig
	InvalidArgument      = cerr.InvalidArgument
	DimensionMismatch    = cerr.DimensionMismatch
	EntryNotFound        = cerr.EntryNotFound
	IndexOutOfBounds     = cerr.IndexOutOfBounds
	FileOpen             = cerr.FileOpen
	FileRead             = cerr.FileRead
	FileWrite            = cerr.FileWrite
	MemoryAllocation     = cerr.MemoryAllocation
	BadArchive           = cerr.BadArchive
	JitFailed            = cerr.JitFailed
	ReorderingInfeasible = cerr.ReorderingInfeasible
	EntryNotSet          = cerr.EntryNotSet
)

// Error is the kind-tagged error type every entry point in this package
// returns. It is a type alias for internal/cerr.Error so a type switch
// or errors.As against csxmv.Error matches values produced anywhere in
// the engine, without this package and internal/cerr disagreeing about
// what a "csxmv error" is.
type Error = cerr.Error

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool { return cerr.Is(err, kind) }

// IsWarning reports whether kind is one of the two kinds spec.md §4.13
// marks as a recoverable warning rather than an aborting error.
func IsWarning(kind Kind) bool { return cerr.IsWarning(kind) }
