//go:build !linux

package rt

import "errors"

// ErrAffinityUnsupported is returned by SetAffinity on platforms with no
// thread-affinity facility wired up.
var ErrAffinityUnsupported = errors.New("rt: cpu affinity is not supported on this platform")

// SetAffinity is a no-op outside Linux; spec.md §4.8's affinity facility
// is an optimization, not a correctness requirement, so callers treat its
// error as advisory.
func SetAffinity(cpu int) error { return ErrAffinityUnsupported }

func affinityOf() ([]int, error) { return nil, ErrAffinityUnsupported }
