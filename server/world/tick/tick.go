package tick

import "github.com/sago-mc/bedrock/server/block"

// Accessor is the handlers' read view of block state. Handlers never write
// through it; every mutation they decide on is returned as a Change so the
// world applies, broadcasts and persists them in one place.
type Accessor interface {
	Block(x, y, z int) uint32
}

// Change is one block mutation a handler decided on.
type Change struct {
	X, Y, Z int
	Hash    uint32
}

// Schedule is a follow-up tick a handler requests.
type Schedule struct {
	X, Y, Z  int
	Delay    uint64
	Priority int32
}

// Result is everything a handler produced: block changes, follow-up
// schedules and positions whose neighbours must be re-examined.
type Result struct {
	Changes         []Change
	Schedules       []Schedule
	NeighborUpdates [][3]int
}

func (r *Result) change(x, y, z int, hash uint32) {
	r.Changes = append(r.Changes, Change{X: x, Y: y, Z: z, Hash: hash})
}

func (r *Result) schedule(x, y, z int, delay uint64, priority int32) {
	r.Schedules = append(r.Schedules, Schedule{X: x, Y: y, Z: z, Delay: delay, Priority: priority})
}

func (r *Result) neighbors(x, y, z int) {
	for _, f := range block.Faces {
		nx, ny, nz := f.Offset(x, y, z)
		r.NeighborUpdates = append(r.NeighborUpdates, [3]int{nx, ny, nz})
	}
}

func (r *Result) merge(other Result) {
	r.Changes = append(r.Changes, other.Changes...)
	r.Schedules = append(r.Schedules, other.Schedules...)
	r.NeighborUpdates = append(r.NeighborUpdates, other.NeighborUpdates...)
}

// Dispatch routes one due scheduled tick to the handler for the block
// currently at its position. Ticks whose block no longer matches any
// handled kind are no-ops; a stale tick for a block destroyed since it was
// scheduled never produces a phantom update.
func Dispatch(a Accessor, e Entry) Result {
	h := a.Block(e.X, e.Y, e.Z)
	switch {
	case block.IsWater(h) || block.IsLava(h):
		return tickFluid(a, e.X, e.Y, e.Z, h)
	case block.Gravity(h):
		return tickGravity(a, e.X, e.Y, e.Z, h)
	case isTorch(h):
		return tickTorch(a, e.X, e.Y, e.Z, h)
	case block.IsRepeater(h):
		return tickRepeater(a, e.X, e.Y, e.Z, h)
	case block.IsPiston(h):
		return tickPiston(a, e.X, e.Y, e.Z, h)
	}
	return Result{}
}

func isTorch(h uint32) bool {
	_, ok := block.TorchLit(h)
	return ok
}
