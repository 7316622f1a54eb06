// Package config implements the process-wide option registry of
// spec.md §4.13/§6: a dotted-key map seeded from a fixed set of
// environment variables and then overridden by explicit OptionSet
// calls, rejecting any key outside the known set with InvalidConfig.
// No constructor-argument-only precedent exists for this in the
// surrounding packages, so it is a small validated map in the same
// plain-struct-with-methods idiom used everywhere else in this module,
// rather than a reflection-based flag/env binder.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/csxmv/csxmv/internal/cerr"
)

// Known dotted option keys, per spec.md §6's CLI option list.
const (
	RtNrThreads             = "rt.nr_threads"
	RtCPUAffinity           = "rt.cpu_affinity"
	PreprocXform            = "preproc.xform"
	PreprocSampling         = "preproc.sampling"
	PreprocSamplingSamples  = "preproc.sampling.nr_samples"
	PreprocSamplingPortion  = "preproc.sampling.portion"
	PreprocSamplingWindow   = "preproc.sampling.window_size"
	MatrixSymmetric         = "matrix.symmetric"
	MatrixSplitBlocks       = "matrix.split_blocks"
	MatrixFullColind        = "matrix.full_colind"
	MatrixMinUnitSize       = "matrix.min_unit_size"
	MatrixMaxUnitSize       = "matrix.max_unit_size"
	MatrixMinCoverage       = "matrix.min_coverage"
)

var knownKeys = map[string]bool{
	RtNrThreads: true, RtCPUAffinity: true,
	PreprocXform: true, PreprocSampling: true,
	PreprocSamplingSamples: true, PreprocSamplingPortion: true, PreprocSamplingWindow: true,
	MatrixSymmetric: true, MatrixSplitBlocks: true, MatrixFullColind: true,
	MatrixMinUnitSize: true, MatrixMaxUnitSize: true, MatrixMinCoverage: true,
}

// envSeeds maps spec.md §6's environment variables onto the dotted
// keys they seed, read in LoadEnv before any explicit OptionSet call.
// OUTER_LOOPS and LOOPS have no registry key and are not read.
var envSeeds = []struct {
	env string
	key string
}{
	{"MT_CONF", RtCPUAffinity},
	{"XFORM_CONF", PreprocXform},
	{"WINDOW_SIZE", PreprocSamplingWindow},
	{"SAMPLES", PreprocSamplingSamples},
	{"SAMPLING_PORTION", PreprocSamplingPortion},
	{"NR_THREADS", RtNrThreads},
}

// Registry holds the option values accumulated from environment and
// explicit OptionSet calls, keyed by dotted name.
type Registry struct {
	values map[string]string
}

// New returns an empty registry, seeded only once LoadEnv is called.
func New() *Registry {
	return &Registry{values: make(map[string]string)}
}

// LoadEnv seeds the registry from the environment variables spec.md §6
// names, skipping any that are unset. Call this before any explicit
// OptionSet, matching §6's stated precedence (env first, then explicit
// overrides).
func (r *Registry) LoadEnv() {
	for _, seed := range envSeeds {
		if v, ok := os.LookupEnv(seed.env); ok {
			r.values[seed.key] = v
		}
	}
}

// OptionSet sets key to value, per spec.md §4.13/§6's option_set(key,
// value). Unknown keys raise InvalidConfig.
func (r *Registry) OptionSet(key, value string) error {
	if !knownKeys[key] {
		return cerr.New("OptionSet", cerr.InvalidConfig, "unknown option key %q", key)
	}
	r.values[key] = value
	return nil
}

// OptionSetAll parses a sequence of "key=value" strings (as the CLI's
// repeated -o flag collects) and applies them in order via OptionSet.
func (r *Registry) OptionSetAll(kvs []string) error {
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return cerr.New("OptionSetAll", cerr.InvalidConfig, "malformed option %q, want key=value", kv)
		}
		if err := r.OptionSet(k, v); err != nil {
			return err
		}
	}
	return nil
}

// String returns the value at key and whether it was set.
func (r *Registry) String(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// StringOr returns the value at key, or def if unset.
func (r *Registry) StringOr(key, def string) string {
	if v, ok := r.values[key]; ok {
		return v
	}
	return def
}

// IntOr returns the integer value at key, or def if unset or unparsable.
func (r *Registry) IntOr(key string, def int) int {
	v, ok := r.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// FloatOr returns the float64 value at key, or def if unset or unparsable.
func (r *Registry) FloatOr(key string, def float64) float64 {
	v, ok := r.values[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// BoolOr returns the boolean value at key, or def if unset or unparsable.
func (r *Registry) BoolOr(key string, def bool) bool {
	v, ok := r.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// CPUList parses a comma-separated rt.cpu_affinity value into ints.
func CPUList(v string) ([]int, error) {
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, cerr.Wrap("CPUList", cerr.InvalidConfig, err, "bad cpu affinity entry %q", p)
		}
		out[i] = n
	}
	return out, nil
}
