// Package tick implements the world's block simulation: the scheduled-tick
// queue and its handlers for fluids, gravity, redstone and pistons, plus
// the random-tick dispatcher for crops, grass spread and leaf decay.
package tick

import (
	"container/heap"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Entry is one scheduled block tick.
type Entry struct {
	X, Y, Z  int
	Target   uint64
	Priority int32
}

// posKey folds a block position into the 64-bit key the presence set and
// the wire-recalculation dedup set use.
func posKey(x, y, z int) uint64 {
	var b [12]byte
	binary.LittleEndian.PutUint32(b[0:], uint32(int32(x)))
	binary.LittleEndian.PutUint32(b[4:], uint32(int32(y)))
	binary.LittleEndian.PutUint32(b[8:], uint32(int32(z)))
	return xxhash.Sum64(b[:])
}

// entryHeap orders entries by (target tick, priority), smaller first.
type entryHeap []Entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].Target != h[j].Target {
		return h[i].Target < h[j].Target
	}
	return h[i].Priority < h[j].Priority
}
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(Entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Scheduler is the min-heap of pending block ticks with a companion
// presence set. At most one tick may be pending per position: scheduling at
// already-scheduled coordinates is a silent no-op, so the first deadline
// scheduled wins even if a later call asks for an earlier one.
type Scheduler struct {
	heap    entryHeap
	present map[uint64]struct{}
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{present: make(map[uint64]struct{})}
}

// Schedule queues a tick at the position after delay game ticks. If a tick
// is already pending at the position the call does nothing, regardless of
// whether the new deadline would be earlier.
func (s *Scheduler) Schedule(x, y, z int, delay uint64, priority int32, currentTick uint64) {
	key := posKey(x, y, z)
	if _, ok := s.present[key]; ok {
		return
	}
	s.present[key] = struct{}{}
	heap.Push(&s.heap, Entry{X: x, Y: y, Z: z, Target: currentTick + delay, Priority: priority})
}

// DrainReady pops every entry due at or before currentTick, in (target,
// priority) order, removing each from the presence set so the position can
// be rescheduled by its handler.
func (s *Scheduler) DrainReady(currentTick uint64) []Entry {
	var ready []Entry
	for len(s.heap) > 0 && s.heap[0].Target <= currentTick {
		e := heap.Pop(&s.heap).(Entry)
		delete(s.present, posKey(e.X, e.Y, e.Z))
		ready = append(ready, e)
	}
	return ready
}

// Pending reports whether a tick is queued at the position.
func (s *Scheduler) Pending(x, y, z int) bool {
	_, ok := s.present[posKey(x, y, z)]
	return ok
}

// Len returns the number of queued ticks.
func (s *Scheduler) Len() int { return len(s.heap) }
