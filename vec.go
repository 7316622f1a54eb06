package csxmv

import "github.com/csxmv/csxmv/vector"

// Vector is the opaque handle spec.md §4.13 names for the dense x/y
// operands matvec_kernel reads and writes. It is a type alias for
// vector.Vector (C11), which already implements the full create/close/
// arithmetic surface spec.md §4.11 describes.
type Vector = vector.Vector

// Vector allocation kinds, re-exported from the vector package.
const (
	VecStd         = vector.Std
	VecNumaLocal   = vector.NumaLocal
	VecInterleaved = vector.Interleaved
	VecUserBuffer  = vector.UserBuffer
)

// Vector copy modes, re-exported from the vector package.
const (
	VecShared = vector.Shared
	VecCopied = vector.Copied
)

// VecCreate implements spec.md §4.11's vec_create(size, kind).
func VecCreate(size int, kind vector.AllocKind) *Vector { return vector.Create(size, kind) }

// VecCreateFromBuffer implements spec.md §4.11's vec_create_from_buff.
func VecCreateFromBuffer(buf []float64, size int, mode vector.CopyMode) (*Vector, error) {
	return vector.CreateFromBuffer(buf, size, mode)
}

// VecCreateOnNode implements spec.md §4.11's vec_create_onnode.
func VecCreateOnNode(size, node int) *Vector { return vector.CreateOnNode(size, node) }

// VecCreateInterleaved implements spec.md §4.11's vec_create_interleaved.
func VecCreateInterleaved(size int, parts []int, nodes []int) (*Vector, error) {
	return vector.CreateInterleaved(size, parts, nodes)
}

// VecCreateRandom implements spec.md §4.11's vec_create_random.
func VecCreateRandom(size int) *Vector { return vector.CreateRandom(size) }
