package chunk

import (
	"fmt"
	"testing"

	"github.com/sago-mc/bedrock/server/protocol"
)

func TestBitsPerBlockTable(t *testing.T) {
	cases := map[int]int{
		1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 16: 4, 17: 5,
		32: 5, 33: 6, 64: 6, 65: 8, 256: 8, 257: 16,
	}
	for size, want := range cases {
		if got := bitsPerBlock(size); got != want {
			t.Errorf("bitsPerBlock(%d) = %d, want %d", size, got, want)
		}
	}
}

// testStates registers a deterministic set of distinct states for palette
// stress tests.
func testStates(n int) []uint32 {
	hashes := make([]uint32, n)
	for i := range hashes {
		hashes[i] = RegisterState(State{
			Name:       "test:filler",
			Properties: map[string]any{"variant": int32(i)},
		})
	}
	return hashes
}

func fillSubChunk(hashes []uint32) *SubChunk {
	s := NewSubChunk()
	for y := byte(0); y < 16; y++ {
		for z := byte(0); z < 16; z++ {
			for x := byte(0); x < 16; x++ {
				s.SetBlock(x, y, z, hashes[(int(x)+int(y)*7+int(z)*13)%len(hashes)])
			}
		}
	}
	return s
}

func samePositions(t *testing.T, a, b *SubChunk) {
	t.Helper()
	for y := byte(0); y < 16; y++ {
		for z := byte(0); z < 16; z++ {
			for x := byte(0); x < 16; x++ {
				if a.Block(x, y, z) != b.Block(x, y, z) {
					t.Fatalf("block mismatch at (%d,%d,%d): %#x != %#x", x, y, z, a.Block(x, y, z), b.Block(x, y, z))
				}
			}
		}
	}
}

func TestSubChunkDiskRoundTrip(t *testing.T) {
	for _, paletteSize := range []int{1, 2, 5, 17, 70, 300} {
		t.Run(fmt.Sprintf("palette-%d", paletteSize), func(t *testing.T) {
			var s *SubChunk
			if paletteSize == 1 {
				s = NewSubChunk()
			} else {
				s = fillSubChunk(testStates(paletteSize - 1)) // air stays as entry 0
			}
			got, yIndex, err := DecodeSubChunkDisk(EncodeSubChunkDisk(s, -4))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if yIndex != -4 {
				t.Errorf("y index = %d, want -4", yIndex)
			}
			samePositions(t, s, got)
		})
	}
}

func TestSubChunkNetworkRoundTrip(t *testing.T) {
	s := fillSubChunk(testStates(9))
	w := protocol.NewWriter()
	encodeSubChunkNetwork(w, s, 3)
	got, yIndex, err := decodeSubChunkNetwork(protocol.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if yIndex != 3 {
		t.Errorf("y index = %d, want 3", yIndex)
	}
	samePositions(t, s, got)
}

func TestPaletteIndicesInBounds(t *testing.T) {
	s := fillSubChunk(testStates(40))
	for i, idx := range s.blocks {
		if int(idx) >= len(s.palette) {
			t.Fatalf("blocks[%d] = %d exceeds palette size %d", i, idx, len(s.palette))
		}
	}
}

func TestStateHashDeterministicAndOrderIndependent(t *testing.T) {
	a := State{Name: "minecraft:repeater", Properties: map[string]any{
		"delay": int32(2), "direction": int32(1), "powered": byte(0),
	}}
	b := State{Name: "minecraft:repeater", Properties: map[string]any{
		"powered": byte(0), "direction": int32(1), "delay": int32(2),
	}}
	if a.Hash() != b.Hash() {
		t.Fatal("property insertion order changed the state hash")
	}
	c := State{Name: "minecraft:repeater", Properties: map[string]any{
		"delay": int32(3), "direction": int32(1), "powered": byte(0),
	}}
	if a.Hash() == c.Hash() {
		t.Fatal("distinct states collided")
	}
}

func TestBDSRoundTrip(t *testing.T) {
	stone := RegisterState(State{Name: "minecraft:stone"})
	s := NewSubChunk()
	s.SetBlock(5, 0, 3, stone)
	s.SetBlock(1, 2, 3, stone)

	encoded := EncodeSubChunkBDS(s, 0)
	got, yIndex, err := DecodeSubChunkBDS(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if yIndex != 0 {
		t.Errorf("y index = %d, want 0", yIndex)
	}
	samePositions(t, s, got)
	if got.Block(5, 0, 3) != stone {
		t.Fatalf("stone did not survive the BDS round trip: %#x", got.Block(5, 0, 3))
	}
}

func TestBDSExportUnknownHashFallsBackToAir(t *testing.T) {
	s := NewSubChunk()
	s.palette = append(s.palette, 0xDEADBEEF) // never registered
	s.blocks[0] = 1

	got, _, err := DecodeSubChunkBDS(EncodeSubChunkBDS(s, 0))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Block(0, 0, 0) != AirHash {
		t.Fatalf("unknown hash exported as %#x, want air", got.Block(0, 0, 0))
	}
}

func TestColumnSetBlockInvalidatesCache(t *testing.T) {
	c := NewColumn(0, 0)
	_, first := c.NetworkPayload()
	if first == nil {
		t.Fatal("no payload")
	}
	dirt := RegisterState(State{Name: "minecraft:dirt"})
	c.SetBlock(0, 4, 0, dirt)
	if !c.Dirty() {
		t.Fatal("block write did not mark the column dirty")
	}
	_, second := c.NetworkPayload()
	if len(first) == len(second) {
		// The new palette entry must have grown the payload.
		t.Fatal("cached payload not invalidated by a block write")
	}
	if c.Block(0, 4, 0) != dirt {
		t.Fatal("block write not visible")
	}
}

func TestColumnVerticalRange(t *testing.T) {
	c := NewColumn(0, 0)
	stone := RegisterState(State{Name: "minecraft:stone", Properties: map[string]any{"stone_type": "stone"}})
	c.SetBlock(0, MinY, 0, stone)
	c.SetBlock(0, MaxY-1, 0, stone)
	if c.Block(0, MinY, 0) != stone || c.Block(0, MaxY-1, 0) != stone {
		t.Fatal("boundary writes lost")
	}
	c.SetBlock(0, MinY-1, 0, stone)
	c.SetBlock(0, MaxY, 0, stone)
	if c.Block(0, MinY-1, 0) != AirHash || c.Block(0, MaxY, 0) != AirHash {
		t.Fatal("out-of-range reads must be air")
	}
}
