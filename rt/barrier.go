// Package rt implements the runtime of spec.md §4.8: CPU affinity,
// best-effort NUMA node discovery/allocation, a persistent worker pool,
// and a centralized sense-reversing barrier.
package rt

import (
	"runtime"
	"sync/atomic"
)

// spinCap bounds how many times a waiter spins before parking, per
// spec.md §4.8 ("spin briefly ... cap ~3e5 iterations").
const spinCap = 300000

// Barrier is a centralized sense-reversing barrier for a fixed number of
// participants. Unlike sync.WaitGroup, it is reusable across an unbounded
// number of back-to-back rounds without reconstruction, matching spec.md
// §4.8's "guaranteed wake-up, no missed wake-ups across back-to-back
// barriers" contract.
//
// golang.org/x/sys/unix exposes no portable high-level futex wrapper (the
// raw futex syscall number is architecture-specific), so the "futex-
// sleep" spec.md describes is rendered here as a buffered-channel park:
// the last arriver closes/refills a generation channel that every other
// waiter is blocked receiving from, which the Go runtime parks and wakes
// exactly like a futex would, without a raw syscall.
type Barrier struct {
	n       int32
	count   atomic.Int32
	sense   atomic.Uint32
	release atomic.Pointer[chan struct{}]
}

// NewBarrier returns a barrier for n participants.
func NewBarrier(n int) *Barrier {
	b := &Barrier{n: int32(n)}
	ch := make(chan struct{})
	b.release.Store(&ch)
	b.count.Store(int32(n))
	return b
}

// Wait blocks the calling goroutine until all n participants have called
// Wait for the current round.
func (b *Barrier) Wait() {
	mySense := b.sense.Load() ^ 1
	mine := b.release.Load()

	if b.count.Add(-1) == 0 {
		// Last arriver: reset for the next round and release everyone
		// parked on the old generation channel.
		b.count.Store(b.n)
		b.sense.Store(mySense)
		next := make(chan struct{})
		b.release.Store(&next)
		close(*mine)
		return
	}

	spins := 0
	for b.sense.Load() != mySense && spins < spinCap {
		runtime.Gosched()
		spins++
	}
	if b.sense.Load() == mySense {
		return
	}
	<-*mine
}
