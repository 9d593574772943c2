// Package world owns the voxel world: the chunk column map, the scheduled
// and random block tick machinery, weather, and persistence cadence. All
// methods must be called from the server's main task; the world performs no
// locking of its own.
package world

import (
	"log/slog"
	"math/rand/v2"

	"github.com/sago-mc/bedrock/server/block"
	"github.com/sago-mc/bedrock/server/world/chunk"
	"github.com/sago-mc/bedrock/server/world/storage"
	"github.com/sago-mc/bedrock/server/world/tick"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ChunkPos identifies a chunk column.
type ChunkPos struct {
	X, Z int32
}

// BlockUpdate is one applied block mutation, drained each tick by the
// connection layer and broadcast as UpdateBlock packets.
type BlockUpdate struct {
	X, Y, Z int
	Hash    uint32
}

// Config configures a World.
type Config struct {
	Log *slog.Logger
	// Provider persists chunks; nil keeps the world in memory only.
	Provider *storage.Provider
	Dim      storage.Dimension
	// SimulationDistance is the radius, in chunks, around players within
	// which random ticks run.
	SimulationDistance int32
	Seed               uint64

	Level storage.LevelData
}

// World is the authoritative block state plus its simulation machinery.
type World struct {
	log  *slog.Logger
	prov *storage.Provider
	dim  storage.Dimension

	chunks map[ChunkPos]*chunk.Column

	sched       *tick.Scheduler
	currentTick uint64
	r           *rand.Rand

	simDist int32

	level storage.LevelData

	updates        []BlockUpdate
	weatherChanged bool
}

// New constructs a World.
func New(conf Config) *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.SimulationDistance <= 0 {
		conf.SimulationDistance = 4
	}
	return &World{
		log:     conf.Log,
		prov:    conf.Provider,
		dim:     conf.Dim,
		chunks:  make(map[ChunkPos]*chunk.Column),
		sched:   tick.NewScheduler(),
		r:       rand.New(rand.NewPCG(conf.Seed, conf.Seed^0x9E3779B97F4A7C15)),
		simDist: conf.SimulationDistance,
		level:   conf.Level,
	}
}

// CurrentTick returns the world's game tick counter.
func (w *World) CurrentTick() uint64 { return w.currentTick }

// Raining reports the current weather state.
func (w *World) Raining() bool { return w.level.Raining }

// Spawn returns the world spawn position.
func (w *World) Spawn() (int32, int32, int32) {
	return w.level.SpawnX, w.level.SpawnY, w.level.SpawnZ
}

// EnsureBlockEntities lazily loads the chunk's block-entity NBT blob the
// first time it becomes player-visible, per spec: block entities are not
// read off disk just because a chunk is resident in memory for simulation.
func (w *World) EnsureBlockEntities(pos ChunkPos) {
	col := w.Chunk(pos)
	if col.BlockEntitiesLoaded() || w.prov == nil {
		return
	}
	data, err := w.prov.LoadBlockEntities(pos.X, pos.Z, w.dim)
	if err != nil {
		w.log.Warn("block entity load failed", "chunkX", pos.X, "chunkZ", pos.Z, "err", err)
		return
	}
	col.LoadBlockEntities(data)
}

// Chunk returns the column at the chunk position, loading it from the
// provider or generating it if absent. Load failures fall back to a
// generated chunk; the world stays playable without persistence.
func (w *World) Chunk(pos ChunkPos) *chunk.Column {
	if col, ok := w.chunks[pos]; ok {
		return col
	}
	var col *chunk.Column
	if w.prov != nil {
		loaded, present, err := w.prov.LoadColumn(pos.X, pos.Z, w.dim)
		if err != nil {
			w.log.Warn("chunk load failed, generating instead", "chunkX", pos.X, "chunkZ", pos.Z, "err", err)
		} else if present {
			col = loaded
		}
	}
	if col == nil {
		col = w.generate(pos)
	}
	w.chunks[pos] = col
	return col
}

// generate produces the flat fallback terrain: bedrock floor, stone body,
// a dirt cap and a grass surface at y=4.
func (w *World) generate(pos ChunkPos) *chunk.Column {
	col := chunk.NewColumn(pos.X, pos.Z)
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			col.SetBlock(x, chunk.MinY, z, block.Bedrock)
			for y := chunk.MinY + 1; y <= 1; y++ {
				col.SetBlock(x, y, z, block.Stone)
			}
			col.SetBlock(x, 2, z, block.Dirt)
			col.SetBlock(x, 3, z, block.Dirt)
			col.SetBlock(x, 4, z, block.GrassBlock)
			col.SetBiome(x, z, 1)
		}
	}
	col.MarkClean()
	return col
}

// chunkPosOf returns the chunk containing the block position.
func chunkPosOf(x, z int) ChunkPos {
	return ChunkPos{X: int32(x >> 4), Z: int32(z >> 4)}
}

// Block returns the block-state hash at a world position.
func (w *World) Block(x, y, z int) uint32 {
	col := w.Chunk(chunkPosOf(x, z))
	return col.Block(x&15, y, z&15)
}

// SetBlock writes a block at a world position, records the update for
// broadcast and wakes the neighbourhood: adjacent fluids and gravity
// blocks are scheduled, wires recalculated and redstone components
// re-examined.
func (w *World) SetBlock(x, y, z int, hash uint32) {
	w.setBlock(x, y, z, hash)
	w.reactAround(x, y, z)
}

// setBlock applies a single block write with no neighbour reaction.
func (w *World) setBlock(x, y, z int, hash uint32) {
	col := w.Chunk(chunkPosOf(x, z))
	col.SetBlock(x&15, y, z&15, hash)
	w.updates = append(w.updates, BlockUpdate{X: x, Y: y, Z: z, Hash: hash})
}

// ScheduleTick queues a block tick; a position already scheduled keeps its
// existing deadline.
func (w *World) ScheduleTick(x, y, z int, delay uint64, priority int32) {
	w.sched.Schedule(x, y, z, delay, priority, w.currentTick)
}

// reactAround re-examines the changed position and its six neighbours.
func (w *World) reactAround(x, y, z int) {
	w.react(x, y, z)
	for _, f := range block.Faces {
		nx, ny, nz := f.Offset(x, y, z)
		w.react(nx, ny, nz)
	}
	// A change next to wire re-evaluates the whole network; the
	// recalculation no-ops if no wire is reachable from here.
	w.recalculateWire(x, y, z)
}

// react inspects one position and schedules whatever simulation the block
// there needs after a neighbourhood change.
func (w *World) react(x, y, z int) {
	h := w.Block(x, y, z)
	switch {
	case block.IsWater(h):
		w.ScheduleTick(x, y, z, block.WaterTickDelay, 0)
	case block.IsLava(h):
		w.ScheduleTick(x, y, z, block.LavaTickDelay, 0)
	case block.Gravity(h):
		w.ScheduleTick(x, y, z, 1, 0)
	case block.IsPiston(h):
		w.ScheduleTick(x, y, z, 1, 0)
	default:
		if _, isTorch := block.TorchLit(h); isTorch {
			w.ScheduleTick(x, y, z, 1, -1)
		} else if st, ok := block.RepeaterAt(h); ok {
			w.ScheduleTick(x, y, z, uint64(2*(st.Delay+1)), -1)
		}
	}
}

// recalculateWire recomputes the wire network reachable from the position
// and applies the resulting signal changes immediately.
func (w *World) recalculateWire(x, y, z int) {
	res := tick.RecalculateWireFrom(w, x, y, z)
	for _, c := range res.Changes {
		w.setBlock(c.X, c.Y, c.Z, c.Hash)
	}
	for _, s := range res.Schedules {
		w.ScheduleTick(s.X, s.Y, s.Z, s.Delay, s.Priority)
	}
}

// applyResult commits a handler's output: block changes, follow-up
// schedules and neighbour reactions.
func (w *World) applyResult(res tick.Result) {
	for _, c := range res.Changes {
		w.setBlock(c.X, c.Y, c.Z, c.Hash)
	}
	for _, s := range res.Schedules {
		w.ScheduleTick(s.X, s.Y, s.Z, s.Delay, s.Priority)
	}
	for _, n := range res.NeighborUpdates {
		w.react(n[0], n[1], n[2])
	}
	// Wire recalculation runs once per change site rather than per
	// neighbour entry, keeping redundant network walks down.
	for _, c := range res.Changes {
		w.recalculateWire(c.X, c.Y, c.Z)
	}
}

// TickOutput is what one world tick produced, drained by the caller.
type TickOutput struct {
	Updates        []BlockUpdate
	WeatherChanged bool
	Raining        bool
}

// Tick advances the world one game tick: due scheduled ticks dispatch to
// their handlers, random ticks sample loaded chunks near players, and
// weather advances. playerChunks lists the chunk each player stands in.
func (w *World) Tick(playerChunks []ChunkPos) TickOutput {
	w.currentTick++

	for _, e := range w.sched.DrainReady(w.currentTick) {
		w.applyResult(tick.Dispatch(w, e))
	}
	w.tickRandomly(playerChunks)
	w.tickWeather()

	out := TickOutput{Updates: w.updates, WeatherChanged: w.weatherChanged, Raining: w.level.Raining}
	w.updates = nil
	w.weatherChanged = false
	return out
}

// tickRandomly runs one random tick per eligible sub-chunk: every loaded
// column within the simulation distance of a player, every section with
// more than one palette entry.
func (w *World) tickRandomly(playerChunks []ChunkPos) {
	if len(playerChunks) == 0 {
		return
	}
	for pos, col := range w.chunks {
		if !nearAny(pos, playerChunks, w.simDist) {
			continue
		}
		baseX, baseZ := int(pos.X)<<4, int(pos.Z)<<4
		for i := 0; i < chunk.SubChunkCount; i++ {
			sub := col.Sub(i)
			if len(sub.Palette()) <= 1 {
				continue
			}
			lx, ly, lz := int(w.r.Uint32()&15), int(w.r.Uint32()&15), int(w.r.Uint32()&15)
			y := chunk.MinY + i<<4 + ly
			w.applyResult(tick.RandomTick(w, baseX+lx, y, baseZ+lz, w.r))
		}
	}
}

func nearAny(pos ChunkPos, centers []ChunkPos, radius int32) bool {
	for _, c := range centers {
		dx, dz := pos.X-c.X, pos.Z-c.Z
		if dx < 0 {
			dx = -dx
		}
		if dz < 0 {
			dz = -dz
		}
		if dx <= radius && dz <= radius {
			return true
		}
	}
	return false
}

// tickWeather counts the current weather phase down and toggles rain when
// it expires, picking the next phase duration at random.
func (w *World) tickWeather() {
	w.level.RainTime--
	if w.level.RainTime > 0 {
		return
	}
	w.level.Raining = !w.level.Raining
	if w.level.Raining {
		w.level.RainTime = int32(12000 + w.r.IntN(12000))
	} else {
		w.level.RainTime = int32(12000 + w.r.IntN(156000))
	}
	w.weatherChanged = true
}

// Flush saves every dirty column and refreshes the metadata snapshot. A
// failed column save logs a warning and leaves the column dirty so the
// next flush retries.
func (w *World) Flush() {
	if w.prov == nil {
		return
	}
	// Deterministic save order keeps write batches stable across runs.
	positions := maps.Keys(w.chunks)
	slices.SortFunc(positions, func(a, b ChunkPos) int {
		if a.X != b.X {
			return int(a.X - b.X)
		}
		return int(a.Z - b.Z)
	})
	for _, pos := range positions {
		col := w.chunks[pos]
		if !col.Dirty() {
			continue
		}
		col.MarkClean()
		if err := w.prov.SaveColumn(col, w.dim); err != nil {
			w.log.Warn("chunk save failed, will retry", "chunkX", pos.X, "chunkZ", pos.Z, "err", err)
			col.MarkDirty()
			continue
		}
		if col.BlockEntitiesLoaded() {
			if err := w.prov.SaveBlockEntities(pos.X, pos.Z, w.dim, col.BlockEntities()); err != nil {
				w.log.Warn("block entity save failed, will retry", "chunkX", pos.X, "chunkZ", pos.Z, "err", err)
				col.MarkDirty()
			}
		}
	}
	w.level.CurrentTick = int64(w.currentTick)
}

// Level returns the current world metadata for persistence.
func (w *World) Level() storage.LevelData { return w.level }

// LoadedChunks returns how many columns are resident.
func (w *World) LoadedChunks() int { return len(w.chunks) }
