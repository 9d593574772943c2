package chunk

import (
	"encoding/binary"
	"fmt"

	"github.com/sago-mc/bedrock/server/protocol"
)

// subChunkVersion is the serialization version byte written ahead of every
// section in both the network and persistence formats.
const subChunkVersion = 9

// bitsPerBlock returns the storage width for a palette of the size given:
// the smallest entry of {1,2,3,4,5,6,8,16} that can index every entry, or 0
// for single-entry palettes, which store no block data at all.
func bitsPerBlock(paletteSize int) int {
	switch {
	case paletteSize <= 1:
		return 0
	case paletteSize <= 2:
		return 1
	case paletteSize <= 4:
		return 2
	case paletteSize <= 8:
		return 3
	case paletteSize <= 16:
		return 4
	case paletteSize <= 32:
		return 5
	case paletteSize <= 64:
		return 6
	case paletteSize <= 256:
		return 8
	default:
		return 16
	}
}

// packIndices packs 4096 palette indices LSB-first into little-endian u32
// words, floor(32/bpb) indices per word.
func packIndices(blocks *[4096]uint16, bpb int) []byte {
	perWord := 32 / bpb
	wordCount := (4096 + perWord - 1) / perWord
	out := make([]byte, wordCount*4)
	for i := 0; i < 4096; i++ {
		word := i / perWord
		shift := uint(i%perWord) * uint(bpb)
		v := binary.LittleEndian.Uint32(out[word*4:])
		v |= uint32(blocks[i]) << shift
		binary.LittleEndian.PutUint32(out[word*4:], v)
	}
	return out
}

// unpackIndices reverses packIndices, reading 4096 indices from r.
func unpackIndices(r *protocol.Reader, bpb int) (*[4096]uint16, error) {
	perWord := 32 / bpb
	wordCount := (4096 + perWord - 1) / perWord
	raw, err := r.Bytes(wordCount * 4)
	if err != nil {
		return nil, err
	}
	mask := uint32(1)<<uint(bpb) - 1
	var blocks [4096]uint16
	for i := 0; i < 4096; i++ {
		word := binary.LittleEndian.Uint32(raw[(i/perWord)*4:])
		blocks[i] = uint16(word >> (uint(i%perWord) * uint(bpb)) & mask)
	}
	return &blocks, nil
}

// encodeSubChunkNetwork appends one section in the network format: version,
// a single block layer, the signed section Y index, then runtime-palette
// block storage (header bit 0 set, ZigZag VarInt palette entries).
func encodeSubChunkNetwork(w *protocol.Writer, s *SubChunk, yIndex int8) {
	w.PutByte(subChunkVersion)
	w.PutByte(1) // block layers
	w.PutByte(byte(yIndex))

	bpb := bitsPerBlock(len(s.palette))
	w.PutByte(byte(bpb)<<1 | 1)
	if bpb > 0 {
		w.PutBytes(packIndices(&s.blocks, bpb))
	}
	protocol.WriteVarInt32(w, int32(len(s.palette)))
	for _, hash := range s.palette {
		protocol.WriteVarInt32(w, int32(hash))
	}
}

// decodeSubChunkNetwork reads one section in the network format.
func decodeSubChunkNetwork(r *protocol.Reader) (*SubChunk, int8, error) {
	version, err := r.Byte()
	if err != nil {
		return nil, 0, err
	}
	if version != subChunkVersion {
		return nil, 0, fmt.Errorf("chunk: unsupported sub-chunk version %d", version)
	}
	layers, err := r.Byte()
	if err != nil {
		return nil, 0, err
	}
	if layers != 1 {
		return nil, 0, fmt.Errorf("chunk: expected 1 block layer, got %d", layers)
	}
	yByte, err := r.Byte()
	if err != nil {
		return nil, 0, err
	}
	yIndex := int8(yByte)

	header, err := r.Byte()
	if err != nil {
		return nil, 0, err
	}
	if header&1 == 0 {
		return nil, 0, fmt.Errorf("chunk: network sub-chunk without runtime palette flag")
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
	count, err := protocol.ReadVarInt32(r)
	if err != nil {
		return nil, 0, err
	}
	if count <= 0 || count > 4096 {
		return nil, 0, fmt.Errorf("chunk: palette size %d out of range", count)
	}
	s.palette = make([]uint32, count)
	for i := range s.palette {
		v, err := protocol.ReadVarInt32(r)
		if err != nil {
			return nil, 0, err
		}
		s.palette[i] = uint32(v)
	}
	for _, idx := range s.blocks {
		if int(idx) >= len(s.palette) {
			return nil, 0, fmt.Errorf("chunk: palette index %d out of bounds", idx)
		}
	}
	return s, yIndex, nil
}

// EncodeSubChunkDisk serializes one section in the native persistence
// format: header bit 0 cleared, palette entries as plain little-endian u32
// block-state hashes.
func EncodeSubChunkDisk(s *SubChunk, yIndex int8) []byte {
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
	for _, hash := range s.palette {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], hash)
		w.PutBytes(b[:])
	}
	return w.Bytes()
}

// DecodeSubChunkDisk reads one section in the native persistence format.
func DecodeSubChunkDisk(data []byte) (*SubChunk, int8, error) {
	r := protocol.NewReader(data)
	version, err := r.Byte()
	if err != nil {
		return nil, 0, err
	}
	if version != subChunkVersion {
		return nil, 0, fmt.Errorf("chunk: unsupported sub-chunk version %d", version)
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
	if header&1 != 0 {
		return nil, 0, fmt.Errorf("chunk: persisted sub-chunk carries runtime palette flag")
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
	count := binary.LittleEndian.Uint32(rawCount)
	if count == 0 || count > 4096 {
		return nil, 0, fmt.Errorf("chunk: palette size %d out of range", count)
	}
	s.palette = make([]uint32, count)
	for i := range s.palette {
		raw, err := r.Bytes(4)
		if err != nil {
			return nil, 0, err
		}
		s.palette[i] = binary.LittleEndian.Uint32(raw)
	}
	for _, idx := range s.blocks {
		if int(idx) >= len(s.palette) {
			return nil, 0, fmt.Errorf("chunk: palette index %d out of bounds", idx)
		}
	}
	return s, int8(yByte), nil
}

// biomeIndex addresses the 4×4×4 grid of one biome section, Y slowest.
func biomeIndex(x, y, z int) int { return y<<4 | z<<2 | x }

// encodeBiomesNetwork appends the column's biome data: one 4×4×4 palette
// section per sub-chunk. Biomes are 2D in this design, so every section
// repeats the same 4×4 grid sampled from the column's 16×16 biome map,
// and single-biome columns collapse to a header byte plus one entry.
func encodeBiomesNetwork(w *protocol.Writer, c *Column) {
	var grid [16]uint8 // 4×4 sample, Z-major
	distinct := map[uint8]uint16{}
	var palette []uint32
	var cells [4096]uint16 // only the first 64 entries are used per section
	for z := 0; z < 4; z++ {
		for x := 0; x < 4; x++ {
			b := c.Biome(x<<2, z<<2)
			grid[z<<2|x] = b
			if _, ok := distinct[b]; !ok {
				distinct[b] = uint16(len(palette))
				palette = append(palette, uint32(b))
			}
		}
	}
	for y := 0; y < 4; y++ {
		for z := 0; z < 4; z++ {
			for x := 0; x < 4; x++ {
				cells[biomeIndex(x, y, z)] = distinct[grid[z<<2|x]]
			}
		}
	}

	for i := 0; i < SubChunkCount; i++ {
		bpb := bitsPerBlock(len(palette))
		w.PutByte(byte(bpb)<<1 | 1)
		if bpb > 0 {
			w.PutBytes(packBiomeCells(&cells, bpb))
		}
		protocol.WriteVarInt32(w, int32(len(palette)))
		for _, b := range palette {
			protocol.WriteVarInt32(w, int32(b))
		}
	}
}

// packBiomeCells packs the 64 cells of one biome section the same way block
// indices pack: LSB-first into little-endian u32 words.
func packBiomeCells(cells *[4096]uint16, bpb int) []byte {
	perWord := 32 / bpb
	wordCount := (64 + perWord - 1) / perWord
	out := make([]byte, wordCount*4)
	for i := 0; i < 64; i++ {
		word := i / perWord
		shift := uint(i%perWord) * uint(bpb)
		v := binary.LittleEndian.Uint32(out[word*4:])
		v |= uint32(cells[i]) << shift
		binary.LittleEndian.PutUint32(out[word*4:], v)
	}
	return out
}

// NetworkPayload returns the column's LevelChunk payload and its section
// count, serializing on first use and caching until the next block write.
func (c *Column) NetworkPayload() (sectionCount uint32, payload []byte) {
	if c.cachedPayload != nil {
		return c.cachedSectionCount, c.cachedPayload
	}
	w := protocol.NewWriter()
	for i := 0; i < SubChunkCount; i++ {
		encodeSubChunkNetwork(w, c.sub[i], int8(i)+MinY>>4)
	}
	encodeBiomesNetwork(w, c)
	w.PutByte(0) // border blocks
	c.cachedPayload = w.Bytes()
	c.cachedSectionCount = SubChunkCount
	return c.cachedSectionCount, c.cachedPayload
}

// Data2D serializes the column's 768-byte Data2D record: a zeroed 512-byte
// heightmap (reconstructable on demand) followed by the 256-byte biome
// grid.
func (c *Column) Data2D() []byte {
	out := make([]byte, 768)
	copy(out[512:], c.biomes[:])
	return out
}

// LoadData2D fills the column's biomes from a Data2D record. Short records
// leave the biome grid zeroed rather than erroring, matching the load
// path's tolerance of absent data.
func (c *Column) LoadData2D(data []byte) {
	if len(data) >= 768 {
		copy(c.biomes[:], data[512:768])
	}
	c.cachedPayload = nil
}
