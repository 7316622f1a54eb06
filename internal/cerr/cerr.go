// Package cerr implements the error-kind taxonomy of spec.md §4.13:
// a small closed set of classifications ("not type names") that every
// package above partition/element/xform's pure-arithmetic layer returns
// through, so the facade and CLI can log and report consistently without
// each package inventing its own ad hoc error strings. Follows the
// package-prefixed errors.New convention used throughout this module,
// generalized to carry a Kind alongside the message.
package cerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way spec.md §4.13 enumerates them.
// ReorderingInfeasible and EntryNotSet are warnings: recoverable,
// logged, and not expected to abort a top-level call on their own.
type Kind string

const (
	InvalidConfig         Kind = "invalid_config"
	InvalidArgument       Kind = "invalid_argument"
	DimensionMismatch     Kind = "dimension_mismatch"
	EntryNotFound         Kind = "entry_not_found"
	IndexOutOfBounds      Kind = "index_out_of_bounds"
	FileOpen              Kind = "file_open"
	FileRead              Kind = "file_read"
	FileWrite             Kind = "file_write"
	MemoryAllocation      Kind = "memory_allocation"
	BadArchive            Kind = "bad_archive"
	JitFailed             Kind = "jit_failed"
	ReorderingInfeasible  Kind = "reordering_infeasible" // warning
	EntryNotSet           Kind = "entry_not_set"         // warning
)

// Error is a kind-tagged error: the operation that failed, its kind, a
// human-readable detail, and — when it wraps a lower-level failure
// (an os/io error reaching a FileOpen/FileRead/FileWrite, or a
// strconv/encoding error reaching a BadArchive) — that cause, so
// errors.Is/errors.As can still reach it through Unwrap.
type Error struct {
	Op    string
	Kind  Kind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("csxmv: %s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("csxmv: %s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As/
// errors.Unwrap.
func (e *Error) Unwrap() error { return e.cause }

// Is implements the errors.Is hook: two *Error values match by Kind
// alone, so errors.Is(err, &Error{Kind: EntryNotFound}) works the same
// way cerr.Is(err, EntryNotFound) does, regardless of Op/Msg/cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Kind == t.Kind
}

// New builds a Kind-tagged error for op with no wrapped cause.
func New(op string, kind Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a Kind-tagged error for op around a lower-level cause
// (an os/io/strconv error, typically), preserving it for Unwrap.
func Wrap(op string, kind Kind, cause error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...), cause: cause}
}

// Is reports whether err is, or wraps, a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsWarning reports whether kind is one of the two kinds spec.md §4.13
// marks as a recoverable warning rather than an aborting error.
func IsWarning(kind Kind) bool {
	return kind == ReorderingInfeasible || kind == EntryNotSet
}
