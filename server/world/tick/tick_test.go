package tick

import (
	"math/rand/v2"
	"testing"

	"github.com/sago-mc/bedrock/server/block"
)

// fakeWorld is a sparse block store; unset positions read as air.
type fakeWorld map[[3]int]uint32

func (w fakeWorld) Block(x, y, z int) uint32 {
	if h, ok := w[[3]int{x, y, z}]; ok {
		return h
	}
	return block.Air
}

func (w fakeWorld) apply(res Result) {
	for _, c := range res.Changes {
		w[[3]int{c.X, c.Y, c.Z}] = c.Hash
	}
}

// run drives the scheduler until quiet or until maxTicks game ticks
// elapsed, applying every handler result like the world tick loop does.
func run(w fakeWorld, s *Scheduler, maxTicks uint64) {
	for t := uint64(0); t <= maxTicks; t++ {
		for _, e := range s.DrainReady(t) {
			res := Dispatch(w, e)
			w.apply(res)
			for _, sch := range res.Schedules {
				s.Schedule(sch.X, sch.Y, sch.Z, sch.Delay, sch.Priority, t)
			}
		}
	}
}

func TestSchedulerDuplicateCoordinates(t *testing.T) {
	s := NewScheduler()
	s.Schedule(1, 2, 3, 5, 0, 0)
	s.Schedule(1, 2, 3, 10, 0, 0)
	if s.Len() != 1 {
		t.Fatalf("duplicate schedule produced %d entries, want 1", s.Len())
	}
	if ready := s.DrainReady(4); len(ready) != 0 {
		t.Fatalf("tick fired early: %v", ready)
	}
	ready := s.DrainReady(5)
	if len(ready) != 1 || ready[0].Target != 5 {
		t.Fatalf("first delay did not win: %v", ready)
	}
	if s.Pending(1, 2, 3) {
		t.Fatal("drained entry still in the presence set")
	}
}

func TestSchedulerOrdering(t *testing.T) {
	s := NewScheduler()
	s.Schedule(0, 0, 0, 3, 5, 0)
	s.Schedule(1, 0, 0, 3, -1, 0)
	s.Schedule(2, 0, 0, 1, 0, 0)
	ready := s.DrainReady(10)
	if len(ready) != 3 {
		t.Fatalf("drained %d, want 3", len(ready))
	}
	if ready[0].X != 2 || ready[1].X != 1 || ready[2].X != 0 {
		t.Fatalf("wrong order: %v", ready)
	}
}

func TestRedstoneWireDecay(t *testing.T) {
	w := fakeWorld{}
	w[[3]int{0, 0, 0}] = block.Lever(true)
	for x := 1; x <= 16; x++ {
		w[[3]int{x, 0, 0}] = block.Wire(0)
	}
	res := RecalculateWireFrom(w, 0, 0, 0)
	w.apply(res)
	for x := 1; x <= 15; x++ {
		want := uint8(16 - x)
		got, _ := block.WirePower(w.Block(x, 0, 0))
		if got != want {
			t.Errorf("wire at x=%d has signal %d, want %d", x, got, want)
		}
	}
	if got, _ := block.WirePower(w.Block(16, 0, 0)); got != 0 {
		t.Errorf("wire past decay range has signal %d, want 0", got)
	}
}

func TestRedstoneTorchInverts(t *testing.T) {
	w := fakeWorld{}
	w[[3]int{0, 0, 0}] = block.Stone
	torch := [3]int{0, 1, 0}
	w[torch] = block.Torch(true, "top")

	// Unpowered attachment: a lit torch stays lit.
	res := tickTorch(w, 0, 1, 0, w[torch])
	if len(res.Changes) != 0 {
		t.Fatal("torch flipped without a power change")
	}

	// Power the attachment block with a charged wire next to it.
	w[[3]int{1, 0, 0}] = block.Wire(15)
	res = tickTorch(w, 0, 1, 0, w[torch])
	w.apply(res)
	if lit, _ := block.TorchLit(w[torch]); lit {
		t.Fatal("torch stayed lit with a powered attachment")
	}
}

func TestRepeaterFollowsInput(t *testing.T) {
	w := fakeWorld{}
	rep := [3]int{0, 0, 0}
	w[rep] = block.Repeater(false, block.FaceEast, 1)
	w[[3]int{-1, 0, 0}] = block.Wire(7) // input side, west

	res := tickRepeater(w, 0, 0, 0, w[rep])
	w.apply(res)
	st, _ := block.RepeaterAt(w[rep])
	if !st.Powered {
		t.Fatal("repeater did not power with a charged input")
	}

	w[[3]int{-1, 0, 0}] = block.Wire(0)
	res = tickRepeater(w, 0, 0, 0, w[rep])
	w.apply(res)
	st, _ = block.RepeaterAt(w[rep])
	if st.Powered {
		t.Fatal("repeater did not release with a dead input")
	}
}

func TestInfiniteWaterSource(t *testing.T) {
	w := fakeWorld{}
	w[[3]int{0, -1, 0}] = block.Stone // keep the middle from flowing down
	w[[3]int{-1, 0, 0}] = block.Water(0)
	w[[3]int{1, 0, 0}] = block.Water(0)
	w[[3]int{0, 0, 0}] = block.Water(1)

	res := tickFluid(w, 0, 0, 0, w[[3]int{0, 0, 0}])
	w.apply(res)
	if d, ok := block.WaterDepth(w.Block(0, 0, 0)); !ok || d != 0 {
		t.Fatalf("middle tile depth = %d (ok=%v), want source", d, ok)
	}
}

func TestFluidLavaContact(t *testing.T) {
	// Water source above a lava source: obsidian at the lava position.
	w := fakeWorld{}
	w[[3]int{0, 1, 0}] = block.Water(0)
	w[[3]int{0, 0, 0}] = block.Lava(0)
	w.apply(tickFluid(w, 0, 1, 0, w[[3]int{0, 1, 0}]))
	if w.Block(0, 0, 0) != block.Obsidian {
		t.Fatal("water over a lava source did not form obsidian")
	}

	// Water source above flowing lava: cobblestone.
	w = fakeWorld{}
	w[[3]int{0, 1, 0}] = block.Water(0)
	w[[3]int{0, 0, 0}] = block.Lava(2)
	w.apply(tickFluid(w, 0, 1, 0, w[[3]int{0, 1, 0}]))
	if w.Block(0, 0, 0) != block.Cobblestone {
		t.Fatal("water over flowing lava did not form cobblestone")
	}

	// Lava source above water: cobblestone.
	w = fakeWorld{}
	w[[3]int{0, 1, 0}] = block.Lava(0)
	w[[3]int{0, 0, 0}] = block.Water(0)
	w.apply(tickFluid(w, 0, 1, 0, w[[3]int{0, 1, 0}]))
	if w.Block(0, 0, 0) != block.Cobblestone {
		t.Fatal("lava over water did not form cobblestone")
	}
}

func TestWaterSpreadsToMaxDepth(t *testing.T) {
	w := fakeWorld{}
	// A stone floor large enough for the full spread.
	for x := -9; x <= 9; x++ {
		for z := -9; z <= 9; z++ {
			w[[3]int{x, -1, z}] = block.Stone
		}
	}
	w[[3]int{0, 0, 0}] = block.Water(0)

	s := NewScheduler()
	s.Schedule(0, 0, 0, block.WaterTickDelay, 0, 0)
	run(w, s, 400)

	for dist := 1; dist <= block.WaterMaxDepth; dist++ {
		d, ok := block.WaterDepth(w.Block(dist, 0, 0))
		if !ok {
			t.Fatalf("no water at distance %d", dist)
		}
		if d != uint8(dist) {
			t.Errorf("water at distance %d has depth %d", dist, d)
		}
	}
	if block.IsWater(w.Block(block.WaterMaxDepth+1, 0, 0)) {
		t.Error("water spread past its maximum depth")
	}
}

func TestFallingWaterColumn(t *testing.T) {
	w := fakeWorld{}
	w[[3]int{0, 6, 0}] = block.Water(0)
	w[[3]int{0, 0, 0}] = block.Stone

	s := NewScheduler()
	s.Schedule(0, 6, 0, block.WaterTickDelay, 0, 0)
	run(w, s, uint64(block.WaterTickDelay))

	if d, ok := block.WaterDepth(w.Block(0, 5, 0)); !ok || d != block.FluidFalling {
		t.Fatalf("no falling water below the source after one delay: depth=%d ok=%v", d, ok)
	}

	run(w, s, 200)
	for y := 1; y <= 5; y++ {
		if d, ok := block.WaterDepth(w.Block(0, y, 0)); !ok || d != block.FluidFalling {
			t.Errorf("column at y=%d: depth=%d ok=%v, want falling", y, d, ok)
		}
	}
}

func TestGravityFallsAndRests(t *testing.T) {
	w := fakeWorld{}
	w[[3]int{0, 2, 0}] = block.Sand
	w[[3]int{0, -1, 0}] = block.Stone

	s := NewScheduler()
	s.Schedule(0, 2, 0, 1, 0, 0)
	run(w, s, 10)

	if w.Block(0, 2, 0) != block.Air || w.Block(0, 1, 0) != block.Air {
		t.Fatal("sand left residue while falling")
	}
	if w.Block(0, 0, 0) != block.Sand {
		t.Fatal("sand did not come to rest on the stone")
	}
}

func buildPistonRow(chainLen int, blocker bool) fakeWorld {
	w := fakeWorld{}
	w[[3]int{0, 0, 0}] = block.Piston(block.FaceEast, false, false)
	w[[3]int{0, 1, 0}] = block.RedstoneBlock
	for i := 1; i <= chainLen; i++ {
		w[[3]int{i, 0, 0}] = block.Stone
	}
	if blocker {
		w[[3]int{chainLen / 2, 0, 0}] = block.Obsidian
	}
	return w
}

func TestPistonPushLimit(t *testing.T) {
	// 12 movable blocks: all slide one cell and the arm extends.
	w := buildPistonRow(12, false)
	w.apply(tickPiston(w, 0, 0, 0, w[[3]int{0, 0, 0}]))
	if _, ok := block.PistonArmAt(w.Block(1, 0, 0)); !ok {
		t.Fatal("arm missing after a 12-block push")
	}
	for i := 2; i <= 13; i++ {
		if w.Block(i, 0, 0) != block.Stone {
			t.Fatalf("chain block missing at x=%d", i)
		}
	}
	st, _ := block.PistonAt(w.Block(0, 0, 0))
	if !st.Extended {
		t.Fatal("piston body not marked extended")
	}

	// 13 blocks: no-op.
	w = buildPistonRow(13, false)
	if res := tickPiston(w, 0, 0, 0, w[[3]int{0, 0, 0}]); len(res.Changes) != 0 {
		t.Fatal("13-block chain must abort the push")
	}

	// An immovable block in the chain: no-op.
	w = buildPistonRow(6, true)
	if res := tickPiston(w, 0, 0, 0, w[[3]int{0, 0, 0}]); len(res.Changes) != 0 {
		t.Fatal("immovable block in the chain must abort the push")
	}
}

func TestStickyPistonRetraction(t *testing.T) {
	w := fakeWorld{}
	w[[3]int{0, 0, 0}] = block.Piston(block.FaceEast, true, true)
	w[[3]int{1, 0, 0}] = block.PistonArm(block.FaceEast, true)
	w[[3]int{2, 0, 0}] = block.Stone

	w.apply(tickPiston(w, 0, 0, 0, w[[3]int{0, 0, 0}]))
	if w.Block(1, 0, 0) != block.Stone {
		t.Fatal("sticky piston did not pull the stone back")
	}
	if w.Block(2, 0, 0) != block.Air {
		t.Fatal("pulled block left a copy behind")
	}
	st, _ := block.PistonAt(w.Block(0, 0, 0))
	if st.Extended {
		t.Fatal("piston body still marked extended")
	}
}

func TestCropGrowth(t *testing.T) {
	w := fakeWorld{}
	w[[3]int{0, -1, 0}] = block.Farmland
	w[[3]int{0, 0, 0}] = block.Crop("minecraft:wheat", 3)
	r := rand.New(rand.NewPCG(1, 1))

	w.apply(RandomTick(w, 0, 0, 0, r))
	crop, _ := block.CropAt(w.Block(0, 0, 0))
	if crop.Growth != 4 {
		t.Fatalf("growth = %d, want 4", crop.Growth)
	}

	// Max growth: no further change.
	w[[3]int{0, 0, 0}] = block.Crop("minecraft:wheat", 7)
	if res := RandomTick(w, 0, 0, 0, r); len(res.Changes) != 0 {
		t.Fatal("fully grown wheat must not change")
	}

	// Without farmland below: no growth.
	w[[3]int{0, -1, 0}] = block.Stone
	w[[3]int{0, 0, 0}] = block.Crop("minecraft:wheat", 3)
	if res := RandomTick(w, 0, 0, 0, r); len(res.Changes) != 0 {
		t.Fatal("wheat off farmland must not grow")
	}
}

func TestGrassConvertsAndSpreads(t *testing.T) {
	w := fakeWorld{}
	w[[3]int{0, 0, 0}] = block.GrassBlock
	w[[3]int{0, 1, 0}] = block.Stone
	r := rand.New(rand.NewPCG(2, 2))

	w.apply(RandomTick(w, 0, 0, 0, r))
	if w.Block(0, 0, 0) != block.Dirt {
		t.Fatal("covered grass did not revert to dirt")
	}

	// Surround a grass block with dirt on every candidate position. A roll
	// converts its candidate only when nothing solid sits above it (here the
	// four raised positions), so tick until a roll lands; that tick must
	// convert exactly one.
	w = fakeWorld{}
	w[[3]int{0, 0, 0}] = block.GrassBlock
	for _, off := range grassSpreadOffsets {
		w[[3]int{off[0], off[1], off[2]}] = block.Dirt
	}
	spread := 0
	for i := 0; i < 100 && spread == 0; i++ {
		w.apply(RandomTick(w, 0, 0, 0, r))
		for _, off := range grassSpreadOffsets {
			if w.Block(off[0], off[1], off[2]) == block.GrassBlock {
				spread++
			}
		}
	}
	if spread != 1 {
		t.Fatalf("%d neighbours converted, want exactly 1", spread)
	}
}

func TestLeafDecay(t *testing.T) {
	w := fakeWorld{}
	w[[3]int{0, 0, 0}] = block.OakLeaves
	w[[3]int{2, 1, 1}] = block.OakLog // Manhattan distance 4
	r := rand.New(rand.NewPCG(3, 3))

	if res := RandomTick(w, 0, 0, 0, r); len(res.Changes) != 0 {
		t.Fatal("leaves with a log in range must persist")
	}

	delete(w, [3]int{2, 1, 1})
	w[[3]int{5, 0, 0}] = block.OakLog // distance 5, out of range
	w.apply(RandomTick(w, 0, 0, 0, r))
	if w.Block(0, 0, 0) != block.Air {
		t.Fatal("leaves without a log in range must decay")
	}
}
