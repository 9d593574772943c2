package chunk

import (
	"encoding/binary"
	"fmt"

	"github.com/brentp/intintmap"
	"github.com/df-mc/worldupgrader/blockupgrader"
	"github.com/sago-mc/bedrock/server/protocol"
)

// bdsStateVersion is the block-state schema version written into exported
// palette entries, matching the game version this server's state registry
// targets.
const bdsStateVersion int32 = (1 << 24) | (21 << 16)

// EncodeSubChunkBDS serializes one section in the BDS interchange format:
// persistence mode storage whose palette entries are little-endian NBT
// compounds (name, states, version) instead of raw hashes. Hashes with no
// registered identity export as air.
func EncodeSubChunkBDS(s *SubChunk, yIndex int8) []byte {
	w := protocol.NewWriter()
	w.PutByte(subChunkVersion)
	w.PutByte(1)
	w.PutByte(byte(yIndex))

	bpb := bitsPerBlock(len(s.palette))
	w.PutByte(byte(bpb) << 1)
	if bpb > 0 {
		w.PutBytes(packIndices(&s.blocks, bpb))
	}
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(s.palette)))
	w.PutBytes(count[:])

	nbt := protocol.NewNBTWriter(w, protocol.DiskEncoding)
	for _, hash := range s.palette {
		state, ok := LookupState(hash)
		if !ok {
			state = State{Name: "minecraft:air"}
		}
		props := state.Properties
		if props == nil {
			props = map[string]any{}
		}
		nbt.WriteRootCompound("", map[string]any{
			"name":    state.Name,
			"states":  props,
			"version": bdsStateVersion,
		})
	}
	return w.Bytes()
}

// DecodeSubChunkBDS reads one BDS NBT-palette section, upgrading each
// palette entry's state through the schema upgrader and re-palettizing it
// onto internal block-state hashes. States never seen before are registered
// so a later export reproduces them.
func DecodeSubChunkBDS(data []byte) (*SubChunk, int8, error) {
	r := protocol.NewReader(data)
	version, err := r.Byte()
	if err != nil {
		return nil, 0, err
	}
	if version != subChunkVersion {
		return nil, 0, fmt.Errorf("chunk: unsupported BDS sub-chunk version %d", version)
	}
	if _, err = r.Byte(); err != nil { // layer count
		return nil, 0, err
	}
	yByte, err := r.Byte()
	if err != nil {
		return nil, 0, err
	}
	header, err := r.Byte()
	if err != nil {
		return nil, 0, err
	}
	bpb := int(header >> 1)

	s := &SubChunk{}
	if bpb > 0 {
		blocks, err := unpackIndices(r, bpb)
		if err != nil {
			return nil, 0, err
		}
		s.blocks = *blocks
	}
	rawCount, err := r.Bytes(4)
	if err != nil {
		return nil, 0, err
	}
	count := int(binary.LittleEndian.Uint32(rawCount))
	if count <= 0 || count > 4096 {
		return nil, 0, fmt.Errorf("chunk: BDS palette size %d out of range", count)
	}

	// Re-palettize: BDS palettes routinely carry duplicate post-upgrade
	// states, so entry index → internal palette index is tracked in a dense
	// scratch map keyed by hash rather than appending blindly.
	seen := intintmap.New(count*2, 0.5)
	s.palette = make([]uint32, 0, count)
	remap := make([]uint16, count)
	nbt := protocol.NewNBTReader(r, protocol.DiskEncoding)
	for i := 0; i < count; i++ {
		_, compound, err := nbt.ReadRootCompound()
		if err != nil {
			return nil, 0, fmt.Errorf("chunk: BDS palette entry %d: %w", i, err)
		}
		state, err := stateFromCompound(compound)
		if err != nil {
			return nil, 0, fmt.Errorf("chunk: BDS palette entry %d: %w", i, err)
		}
		hash := RegisterState(state)
		if idx, ok := seen.Get(int64(hash)); ok {
			remap[i] = uint16(idx)
			continue
		}
		seen.Put(int64(hash), int64(len(s.palette)))
		remap[i] = uint16(len(s.palette))
		s.palette = append(s.palette, hash)
	}
	for i, idx := range s.blocks {
		if int(idx) >= count {
			return nil, 0, fmt.Errorf("chunk: BDS palette index %d out of bounds", idx)
		}
		s.blocks[i] = remap[idx]
	}
	return s, int8(yByte), nil
}

// stateFromCompound converts a decoded BDS palette compound into a State,
// running it through the block schema upgrader so legacy worlds map onto
// the names and properties this server registers.
func stateFromCompound(compound map[string]any) (State, error) {
	name, ok := compound["name"].(string)
	if !ok {
		return State{}, fmt.Errorf("palette compound missing name")
	}
	props, _ := compound["states"].(map[string]any)
	ver, _ := compound["version"].(int32)

	upgraded := blockupgrader.Upgrade(blockupgrader.BlockState{
		Name:       name,
		Properties: props,
		Version:    ver,
	})
	return State{Name: upgraded.Name, Properties: upgraded.Properties}, nil
}
