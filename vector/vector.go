// Package vector implements the dense vector abstraction of spec.md
// §4.11 (C11): a plain slice of float64s with a choice of allocation
// strategy (ordinary heap, NUMA node-local, interleaved across nodes, or
// a caller-supplied buffer) and a copy mode governing whether a
// user-buffer view writes its values back on Close. Unlike a
// triplet-indexed sparse vector, this one backs SpMV's x/y operands, so
// every element is materialized; it implements mat.Vector for interop
// with gonum-based callers and tests.
package vector

import (
	legacyfloats "github.com/gonum/floats"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/csxmv/csxmv/internal/cerr"
	"github.com/csxmv/csxmv/rt"
)

// AllocKind selects where a Vector's backing storage comes from, per
// spec.md §4.11's allocation_kind enum.
type AllocKind int

const (
	Std AllocKind = iota
	NumaLocal
	Interleaved
	UserBuffer
)

// CopyMode governs what happens to a UserBuffer vector on Close: Shared
// views write back into the caller's buffer, Copied views own a private
// copy and never touch it again.
type CopyMode int

const (
	Shared CopyMode = iota
	Copied
)

var (
	_ mat.Vector     = (*Vector)(nil)
	_ mat.RawVectorer = (*Vector)(nil)
)

// Vector is a dense float64 vector plus the bookkeeping spec.md §4.11
// requires of allocation kind and copy mode.
type Vector struct {
	data []float64
	kind AllocKind
	mode CopyMode

	// userBuf is the original caller buffer for a Shared UserBuffer
	// vector; Close writes data back into it. Nil otherwise.
	userBuf []float64
}

// Create allocates a size-length vector of the given kind, per spec.md
// §4.11's create(size, kind). NumaLocal and Interleaved kinds created
// through Create use a single, unspecified node/interleave; callers that
// care which node should use CreateOnNode/CreateInterleaved instead.
func Create(size int, kind AllocKind) *Vector {
	switch kind {
	case NumaLocal:
		return &Vector{data: rt.AllocOnNode(size, 0), kind: kind}
	case Interleaved:
		buf, _ := rt.AllocInterleaved([]int{size}, []int{0})
		return &Vector{data: buf, kind: kind}
	default:
		return &Vector{data: make([]float64, size), kind: Std}
	}
}

// CreateFromBuffer wraps buf as a UserBuffer vector, per spec.md §4.11's
// create_from_buff(buf, size, mode). buf must have length size. In
// Shared mode, mutating the returned Vector and later calling Close
// writes the current contents back into buf; in Copied mode the Vector
// takes a private copy and buf is never touched again.
func CreateFromBuffer(buf []float64, size int, mode CopyMode) (*Vector, error) {
	if len(buf) != size {
		return nil, cerr.New("CreateFromBuffer", cerr.DimensionMismatch, "buf length %d != size %d", len(buf), size)
	}
	if mode == Copied {
		cp := make([]float64, size)
		copy(cp, buf)
		return &Vector{data: cp, kind: UserBuffer, mode: mode}, nil
	}
	return &Vector{data: buf, kind: UserBuffer, mode: mode, userBuf: buf}, nil
}

// CreateOnNode allocates a size-length vector best-effort placed on the
// given NUMA node, per spec.md §4.11's create_onnode. See
// rt.AllocOnNode's doc comment for the precision of "best-effort" here.
func CreateOnNode(size, node int) *Vector {
	return &Vector{data: rt.AllocOnNode(size, node), kind: NumaLocal}
}

// CreateInterleaved allocates a size-length vector split into
// len(parts) segments, each best-effort placed on the corresponding
// entry of nodes, per spec.md §4.11's create_interleaved. It enforces
// sum(parts) == size; no page-size rounding is applied to the parts.
func CreateInterleaved(size int, parts []int, nodes []int) (*Vector, error) {
	total := 0
	for _, p := range parts {
		total += p
	}
	if total != size {
		return nil, cerr.New("CreateInterleaved", cerr.InvalidArgument, "sum(parts) %d != size %d", total, size)
	}
	buf, err := rt.AllocInterleaved(parts, nodes)
	if err != nil {
		return nil, err
	}
	return &Vector{data: buf, kind: Interleaved}, nil
}

// CreateRandom allocates a size-length vector filled with uniform random
// values in [0, 1), per spec.md §4.11's create_random — used by test
// harnesses and benchmark drivers that need a representative x without a
// real workload on hand.
func CreateRandom(size int) *Vector {
	v := &Vector{data: make([]float64, size), kind: Std}
	rng := rand.New(rand.NewSource(1))
	for i := range v.data {
		v.data[i] = rng.Float64()
	}
	return v
}

// Close releases a Vector's node-local/interleaved memory (a no-op under
// Go's GC) and, for a Shared UserBuffer vector, writes its current
// values back into the caller's buffer, per spec.md §4.11's
// "on destruction of a shared view, the user buffer is written back if
// it was tuned".
func (v *Vector) Close() {
	if v.kind == UserBuffer && v.mode == Shared && v.userBuf != nil {
		copy(v.userBuf, v.data)
	}
}

// Len returns the vector's length.
func (v *Vector) Len() int { return len(v.data) }

// Dims implements mat.Matrix: a length-n Vector is an n x 1 matrix.
func (v *Vector) Dims() (r, c int) { return len(v.data), 1 }

// At implements mat.Matrix. At panics if c != 0.
func (v *Vector) At(r, c int) float64 {
	if c != 0 {
		panic(mat.ErrColAccess)
	}
	return v.AtVec(r)
}

// AtVec returns the i'th element.
func (v *Vector) AtVec(i int) float64 { return v.data[i] }

// SetVec sets the i'th element.
func (v *Vector) SetVec(i int, val float64) { v.data[i] = val }

// T implements mat.Matrix.
func (v *Vector) T() mat.Matrix { return mat.TransposeVec{Vector: v} }

// RawVector implements mat.RawVectorer so gonum BLAS routines can operate
// on the backing slice directly without copying.
func (v *Vector) RawVector() blas64.Vector {
	return blas64.Vector{N: len(v.data), Inc: 1, Data: v.data}
}

// Slice returns the backing storage directly; callers that need to hand
// x/y to a kernel call use this rather than looping AtVec/SetVec.
func (v *Vector) Slice() []float64 { return v.data }

// Init sets every element to val, per spec.md §4.11's init(v).
func (v *Vector) Init(val float64) {
	for i := range v.data {
		v.data[i] = val
	}
}

// InitPart sets every element in [start, end) to val, per spec.md
// §4.11's init_part(v, start, end).
func (v *Vector) InitPart(val float64, start, end int) error {
	if start < 0 || end > len(v.data) || start > end {
		return cerr.New("InitPart", cerr.IndexOutOfBounds, "range [%d,%d) out of bounds [0,%d)", start, end, len(v.data))
	}
	for i := start; i < end; i++ {
		v.data[i] = val
	}
	return nil
}

// InitFromMap sets v.data[idxMap[i]] = values[i] for each i, per spec.md
// §4.11's init_from_map(v[], map). values and idxMap must have equal
// length.
func (v *Vector) InitFromMap(values []float64, idxMap []int) error {
	if len(values) != len(idxMap) {
		return cerr.New("InitFromMap", cerr.DimensionMismatch, "len(values) %d != len(idxMap) %d", len(values), len(idxMap))
	}
	for i, idx := range idxMap {
		if idx < 0 || idx >= len(v.data) {
			return cerr.New("InitFromMap", cerr.IndexOutOfBounds, "index %d out of bounds [0,%d)", idx, len(v.data))
		}
		v.data[idx] = values[i]
	}
	return nil
}

// ScaleVec scales the receiver in place by alpha, per spec.md §4.11's
// scale, using the legacy github.com/gonum/floats.Scale for the
// in-place multiply.
func (v *Vector) ScaleVec(alpha float64) {
	legacyfloats.Scale(alpha, v.data)
}

// AddVec adds other into the receiver in place, per spec.md §4.11's add.
func (v *Vector) AddVec(other *Vector) error {
	if len(v.data) != len(other.data) {
		return cerr.New("AddVec", cerr.DimensionMismatch, "len(v) %d != len(other) %d", len(v.data), len(other.data))
	}
	legacyfloats.Add(v.data, other.data)
	return nil
}

// SubVec subtracts other from the receiver in place, per spec.md
// §4.11's sub.
func (v *Vector) SubVec(other *Vector) error {
	if len(v.data) != len(other.data) {
		return cerr.New("SubVec", cerr.DimensionMismatch, "len(v) %d != len(other) %d", len(v.data), len(other.data))
	}
	legacyfloats.Sub(v.data, other.data)
	return nil
}

// Dot returns the dot product of the receiver and other, per spec.md
// §4.11's dot.
func (v *Vector) Dot(other *Vector) (float64, error) {
	if len(v.data) != len(other.data) {
		return 0, cerr.New("Dot", cerr.DimensionMismatch, "len(v) %d != len(other) %d", len(v.data), len(other.data))
	}
	return legacyfloats.Dot(v.data, other.data), nil
}

// ScaleAdd computes v += alpha*other in place (AXPY), per spec.md
// §4.11's scale_add.
func (v *Vector) ScaleAdd(alpha float64, other *Vector) error {
	if len(v.data) != len(other.data) {
		return cerr.New("ScaleAdd", cerr.DimensionMismatch, "len(v) %d != len(other) %d", len(v.data), len(other.data))
	}
	for i, o := range other.data {
		v.data[i] += alpha * o
	}
	return nil
}

// Compare reports whether the receiver and other are equal within eps
// per element, per spec.md §4.11's compare(eps). It uses
// gonum.org/v1/gonum/floats (the newer module, kept distinct from the
// legacy mutation import above) since this is a read-only comparison,
// not an in-place mutation.
func (v *Vector) Compare(other *Vector, eps float64) (bool, error) {
	if len(v.data) != len(other.data) {
		return false, cerr.New("Compare", cerr.DimensionMismatch, "len(v) %d != len(other) %d", len(v.data), len(other.data))
	}
	return floats.EqualApprox(v.data, other.data, eps), nil
}
