package protocol

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// WriteFloat32 writes a little-endian IEEE-754 float.
func WriteFloat32(w *Writer, f float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
	w.PutBytes(b[:])
}

// ReadFloat32 reads a little-endian IEEE-754 float.
func ReadFloat32(r *Reader) (float32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// WriteVec3 writes three little-endian f32 in X, Y, Z order.
func WriteVec3(w *Writer, v mgl32.Vec3) {
	WriteFloat32(w, v[0])
	WriteFloat32(w, v[1])
	WriteFloat32(w, v[2])
}

// ReadVec3 reads three little-endian f32 in X, Y, Z order.
func ReadVec3(r *Reader) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	for i := range v {
		f, err := ReadFloat32(r)
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// WriteVec2 writes two little-endian f32, used for rotations (pitch, yaw).
func WriteVec2(w *Writer, v mgl32.Vec2) {
	WriteFloat32(w, v[0])
	WriteFloat32(w, v[1])
}

// ReadVec2 reads two little-endian f32.
func ReadVec2(r *Reader) (mgl32.Vec2, error) {
	var v mgl32.Vec2
	for i := range v {
		f, err := ReadFloat32(r)
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// WriteUUID writes a UUID as two little-endian u64 halves, as Bedrock does.
func WriteUUID(w *Writer, id uuid.UUID) {
	b := id[:]
	var lo, hi uint64
	lo = binary.BigEndian.Uint64(b[0:8])
	hi = binary.BigEndian.Uint64(b[8:16])
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], lo)
	binary.LittleEndian.PutUint64(buf[8:16], hi)
	w.PutBytes(buf[:])
}

// ReadUUID reads a UUID from two little-endian u64 halves.
func ReadUUID(r *Reader) (uuid.UUID, error) {
	b, err := r.Bytes(16)
	if err != nil {
		return uuid.UUID{}, err
	}
	lo := binary.LittleEndian.Uint64(b[0:8])
	hi := binary.LittleEndian.Uint64(b[8:16])
	var out uuid.UUID
	binary.BigEndian.PutUint64(out[0:8], lo)
	binary.BigEndian.PutUint64(out[8:16], hi)
	return out, nil
}

// BlockPos is a block-granularity world position.
type BlockPos [3]int32

// WriteBlockPos writes a BlockPos as VarInt32(x) + VarUint32(y) + VarInt32(z).
func WriteBlockPos(w *Writer, pos BlockPos) {
	WriteVarInt32(w, pos[0])
	WriteVarUint32(w, uint32(pos[1]))
	WriteVarInt32(w, pos[2])
}

// ReadBlockPos reads a BlockPos.
func ReadBlockPos(r *Reader) (BlockPos, error) {
	var pos BlockPos
	x, err := ReadVarInt32(r)
	if err != nil {
		return pos, err
	}
	y, err := ReadVarUint32(r)
	if err != nil {
		return pos, err
	}
	z, err := ReadVarInt32(r)
	if err != nil {
		return pos, err
	}
	pos[0], pos[1], pos[2] = x, int32(y), z
	return pos, nil
}
