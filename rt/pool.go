package rt

import (
	"runtime"
	"sync/atomic"
)

// WorkFunc is dispatched to one worker slot per barrier round; slot is
// in [0, NumWorkers).
type WorkFunc func(slot int)

// Pool is the persistent worker pool of spec.md §4.8: on first use it
// spawns T-1 worker goroutines, each pinned (best-effort, via Affinity)
// and looping { barrier; if done return; dispatch(current_kernel, slot);
// barrier }. The calling goroutine participates as worker 0, so Dispatch
// never blocks waiting on a goroutine that hasn't been scheduled yet.
type Pool struct {
	numWorkers int
	pre        *Barrier
	post       *Barrier
	current    atomic.Pointer[WorkFunc]
	done       atomic.Bool
	cpus       []int // optional CPU ids for pinning, by slot
}

// New creates a pool of numWorkers total participants (including the
// caller as slot 0) and immediately spawns numWorkers-1 background
// workers. cpus, if non-nil, gives the CPU id each slot should pin to;
// len(cpus) must equal numWorkers.
func New(numWorkers int, cpus []int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		pre:        NewBarrier(numWorkers),
		post:       NewBarrier(numWorkers),
		cpus:       cpus,
	}
	for slot := 1; slot < numWorkers; slot++ {
		go p.workerLoop(slot)
	}
	return p
}

func (p *Pool) workerLoop(slot int) {
	if p.cpus != nil && slot < len(p.cpus) {
		_ = SetAffinity(p.cpus[slot])
	}
	for {
		p.pre.Wait()
		if p.done.Load() {
			return
		}
		fn := p.current.Load()
		if fn != nil && *fn != nil {
			(*fn)(slot)
		}
		p.post.Wait()
	}
}

// Dispatch runs fn once per slot (0..NumWorkers), fn(0) on the calling
// goroutine, and blocks until every slot has finished this round.
func (p *Pool) Dispatch(fn WorkFunc) {
	if p.cpus != nil && len(p.cpus) > 0 {
		_ = SetAffinity(p.cpus[0])
	}
	p.current.Store(&fn)
	p.pre.Wait()
	fn(0)
	p.post.Wait()
}

// NumWorkers returns the total participant count, including the caller.
func (p *Pool) NumWorkers() int { return p.numWorkers }

// Close stops all background workers. It must be called at most once and
// must not race with a concurrent Dispatch.
func (p *Pool) Close() {
	p.done.Store(true)
	var nilFn WorkFunc
	p.current.Store(&nilFn)
	p.pre.Wait()
}
