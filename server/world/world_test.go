package world

import (
	"testing"

	"github.com/sago-mc/bedrock/server/block"
	"github.com/sago-mc/bedrock/server/world/storage"
)

func testWorld() *World {
	return New(Config{Seed: 1, Level: storage.LevelData{RainTime: 1 << 30}})
}

func TestGeneratedTerrain(t *testing.T) {
	w := testWorld()
	if w.Block(0, 4, 0) != block.GrassBlock {
		t.Fatal("surface is not grass")
	}
	if w.Block(3, 2, 7) != block.Dirt {
		t.Fatal("dirt cap missing")
	}
	if w.Block(0, -64, 0) != block.Bedrock {
		t.Fatal("bedrock floor missing")
	}
	if w.Block(0, 5, 0) != block.Air {
		t.Fatal("air above the surface missing")
	}
}

func TestSetBlockRecordsUpdate(t *testing.T) {
	w := testWorld()
	w.SetBlock(1, 5, 2, block.Stone)
	out := w.Tick(nil)
	found := false
	for _, u := range out.Updates {
		if u.X == 1 && u.Y == 5 && u.Z == 2 && u.Hash == block.Stone {
			found = true
		}
	}
	if !found {
		t.Fatal("block write not present in the tick's update list")
	}
}

func TestPlacedWaterFlows(t *testing.T) {
	w := testWorld()
	w.SetBlock(0, 5, 0, block.Water(0))
	for i := 0; i < int(block.WaterTickDelay)+1; i++ {
		w.Tick(nil)
	}
	spread := false
	for _, f := range block.HorizontalFaces {
		nx, ny, nz := f.Offset(0, 5, 0)
		if block.IsWater(w.Block(nx, ny, nz)) {
			spread = true
		}
	}
	if !spread {
		t.Fatal("placed water source did not spread after its delay")
	}
}

func TestLeverDrivesWireLine(t *testing.T) {
	w := testWorld()
	// Clear a lane at y=5 above the grass and lay the circuit on it.
	for x := 0; x <= 16; x++ {
		w.SetBlock(x, 4, 0, block.Stone)
	}
	for x := 1; x <= 16; x++ {
		w.SetBlock(x, 5, 0, block.Wire(0))
	}
	w.SetBlock(0, 5, 0, block.Lever(true))

	for x := 1; x <= 15; x++ {
		got, _ := block.WirePower(w.Block(x, 5, 0))
		if got != uint8(16-x) {
			t.Errorf("wire at x=%d has signal %d, want %d", x, got, 16-x)
		}
	}
	if got, _ := block.WirePower(w.Block(16, 5, 0)); got != 0 {
		t.Errorf("wire at x=16 has signal %d, want 0", got)
	}
}

func TestStaleScheduledTickIsHarmless(t *testing.T) {
	w := testWorld()
	w.SetBlock(0, 5, 0, block.Water(0))
	// Destroy the source before its scheduled tick fires.
	w.SetBlock(0, 5, 0, block.Air)
	for i := 0; i < int(block.WaterTickDelay)+2; i++ {
		w.Tick(nil)
	}
	for _, f := range block.HorizontalFaces {
		nx, ny, nz := f.Offset(0, 5, 0)
		if block.IsWater(w.Block(nx, ny, nz)) {
			t.Fatal("stale fluid tick produced a phantom flow")
		}
	}
}

func TestFlushPersistsDirtyChunks(t *testing.T) {
	dir := t.TempDir()
	prov, err := storage.Open(dir, storage.Config{})
	if err != nil {
		t.Fatalf("open provider: %v", err)
	}
	w := New(Config{Provider: prov, Seed: 1, Level: storage.LevelData{RainTime: 1 << 30}})
	w.SetBlock(0, 4, 0, block.Air) // break the grass surface block
	w.Flush()
	if err := prov.Close(); err != nil {
		t.Fatal(err)
	}

	prov, err = storage.Open(dir, storage.Config{})
	if err != nil {
		t.Fatalf("reopen provider: %v", err)
	}
	defer prov.Close()
	w2 := New(Config{Provider: prov, Seed: 1, Level: storage.LevelData{RainTime: 1 << 30}})
	if w2.Block(0, 4, 0) != block.Air {
		t.Fatal("broken block reverted after a flush and reopen")
	}
	if w2.Block(1, 4, 0) != block.GrassBlock {
		t.Fatal("persisted chunk lost its generated terrain")
	}
}

func TestBlockEntitiesLoadOnceAndPersistOnFlush(t *testing.T) {
	dir := t.TempDir()
	prov, err := storage.Open(dir, storage.Config{})
	if err != nil {
		t.Fatalf("open provider: %v", err)
	}
	pos := ChunkPos{X: 0, Z: 0}
	if err := prov.SaveBlockEntities(pos.X, pos.Z, storage.Overworld, []byte("chest-nbt")); err != nil {
		t.Fatalf("seed block entities: %v", err)
	}

	w := New(Config{Provider: prov, Seed: 1, Level: storage.LevelData{RainTime: 1 << 30}})
	col := w.Chunk(pos)
	if col.BlockEntitiesLoaded() {
		t.Fatal("block entities loaded before the chunk became player-visible")
	}

	w.EnsureBlockEntities(pos)
	if string(col.BlockEntities()) != "chest-nbt" {
		t.Fatalf("block entities = %q, want %q", col.BlockEntities(), "chest-nbt")
	}
	w.EnsureBlockEntities(pos) // second call must not reload or error

	// An unrelated block write dirties the chunk; flush must write the
	// block entities back since they were loaded, without touching chunks
	// whose block entities were never read.
	w.SetBlock(0, 5, 0, block.Stone)
	w.Flush()
	if err := prov.Close(); err != nil {
		t.Fatal(err)
	}

	prov, err = storage.Open(dir, storage.Config{})
	if err != nil {
		t.Fatalf("reopen provider: %v", err)
	}
	defer prov.Close()
	got, err := prov.LoadBlockEntities(pos.X, pos.Z, storage.Overworld)
	if err != nil {
		t.Fatalf("load after flush: %v", err)
	}
	if string(got) != "chest-nbt" {
		t.Fatalf("block entities after flush = %q, want %q", got, "chest-nbt")
	}
}

func TestUnloadedBlockEntitiesNotClobberedOnFlush(t *testing.T) {
	dir := t.TempDir()
	prov, err := storage.Open(dir, storage.Config{})
	if err != nil {
		t.Fatalf("open provider: %v", err)
	}
	pos := ChunkPos{X: 0, Z: 0}
	if err := prov.SaveBlockEntities(pos.X, pos.Z, storage.Overworld, []byte("chest-nbt")); err != nil {
		t.Fatalf("seed block entities: %v", err)
	}

	// A block write dirties the chunk without any player having streamed it
	// (and thus without EnsureBlockEntities ever running).
	w := New(Config{Provider: prov, Seed: 1, Level: storage.LevelData{RainTime: 1 << 30}})
	w.SetBlock(0, 5, 0, block.Stone)
	w.Flush()
	if err := prov.Close(); err != nil {
		t.Fatal(err)
	}

	prov, err = storage.Open(dir, storage.Config{})
	if err != nil {
		t.Fatalf("reopen provider: %v", err)
	}
	defer prov.Close()
	got, err := prov.LoadBlockEntities(pos.X, pos.Z, storage.Overworld)
	if err != nil {
		t.Fatalf("load after flush: %v", err)
	}
	if string(got) != "chest-nbt" {
		t.Fatalf("flush clobbered unread block entities: got %q, want %q", got, "chest-nbt")
	}
}
