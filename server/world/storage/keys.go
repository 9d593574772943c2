// Package storage persists the world: chunk columns in a Bedrock-format
// LevelDB keyed per the vanilla key scheme, world metadata in level.dat,
// and conversion walks between the native hash-palette section format and
// the BDS NBT-palette interchange format.
package storage

import "encoding/binary"

// LevelDB record tags, per the Bedrock convention.
const (
	tagVersion      byte = 0x2C
	tagData2D       byte = 0x2D
	tagSubChunk     byte = 0x2F
	tagBlockEntity  byte = 0x31
	tagFinalization byte = 0x36
)

// Dimension identifies which of the three dimensions a chunk key addresses.
type Dimension int32

const (
	Overworld Dimension = iota
	Nether
	End
)

// chunkKey builds a chunk-scoped LevelDB key: little-endian X and Z, the
// dimension (omitted for the overworld), the record tag, and optionally a
// signed sub-chunk Y index.
func chunkKey(x, z int32, dim Dimension, tag byte, subY ...int8) []byte {
	key := make([]byte, 0, 14)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(x))
	key = append(key, b[:]...)
	binary.LittleEndian.PutUint32(b[:], uint32(z))
	key = append(key, b[:]...)
	if dim != Overworld {
		binary.LittleEndian.PutUint32(b[:], uint32(dim))
		key = append(key, b[:]...)
	}
	key = append(key, tag)
	for _, y := range subY {
		key = append(key, byte(y))
	}
	return key
}

// parseChunkKey decodes a chunk-scoped key back into its parts; ok is false
// for keys that are not chunk records (LevelDB bookkeeping, the format
// marker).
func parseChunkKey(key []byte) (x, z int32, dim Dimension, tag byte, subY int8, ok bool) {
	switch len(key) {
	case 9, 10:
		x = int32(binary.LittleEndian.Uint32(key[0:]))
		z = int32(binary.LittleEndian.Uint32(key[4:]))
		tag = key[8]
		if len(key) == 10 {
			subY = int8(key[9])
		}
		return x, z, Overworld, tag, subY, true
	case 13, 14:
		x = int32(binary.LittleEndian.Uint32(key[0:]))
		z = int32(binary.LittleEndian.Uint32(key[4:]))
		dim = Dimension(binary.LittleEndian.Uint32(key[8:]))
		if dim != Nether && dim != End {
			return 0, 0, 0, 0, 0, false
		}
		tag = key[12]
		if len(key) == 14 {
			subY = int8(key[13])
		}
		return x, z, dim, tag, subY, true
	}
	return 0, 0, 0, 0, 0, false
}

// formatMarkerKey marks a database as using the native hash-palette section
// format. BDS-produced databases lack it and are imported on first access.
var formatMarkerKey = []byte("native_palette_version")
