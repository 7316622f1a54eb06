package csxmv

import "github.com/csxmv/csxmv/internal/config"

// Re-exported dotted option keys, per spec.md §6's CLI option list.
const (
	OptNrThreads       = config.RtNrThreads
	OptCPUAffinity     = config.RtCPUAffinity
	OptXform           = config.PreprocXform
	OptSampling        = config.PreprocSampling
	OptSamplingSamples = config.PreprocSamplingSamples
	OptSamplingPortion = config.PreprocSamplingPortion
	OptSamplingWindow  = config.PreprocSamplingWindow
	OptSymmetric       = config.MatrixSymmetric
	OptSplitBlocks     = config.MatrixSplitBlocks
	OptFullColind      = config.MatrixFullColind
	OptMinUnitSize     = config.MatrixMinUnitSize
	OptMaxUnitSize     = config.MatrixMaxUnitSize
	OptMinCoverage     = config.MatrixMinCoverage
)

// Options is the process-wide dotted-key option registry spec.md
// §4.13/§6 describes: seeded from environment variables via LoadEnv,
// then overridden by explicit OptionSet/OptionSetAll calls, consulted by
// MatTune. Unknown keys raise InvalidConfig.
type Options struct {
	reg *config.Registry
}

// NewOptions returns an empty registry.
func NewOptions() *Options { return &Options{reg: config.New()} }

// LoadEnv seeds the registry from spec.md §6's environment variables
// (MT_CONF, XFORM_CONF, WINDOW_SIZE, SAMPLES, SAMPLING_PORTION,
// NR_THREADS), skipping any that are unset. Call before any explicit
// OptionSet, per §6's stated env-then-explicit precedence.
func (o *Options) LoadEnv() { o.reg.LoadEnv() }

// OptionSet sets key to value. Unknown keys raise InvalidConfig.
func (o *Options) OptionSet(key, value string) error { return o.reg.OptionSet(key, value) }

// OptionSetAll parses and applies a sequence of "key=value" strings, the
// shape the CLI's repeated -o flag collects.
func (o *Options) OptionSetAll(kvs []string) error { return o.reg.OptionSetAll(kvs) }
