package packet

import "github.com/sago-mc/bedrock/server/protocol"

// LevelChunk carries one column's wire-encoded payload, produced by the
// chunk column's network serializer. The codec here only frames that
// payload; the
// payload's internal section/palette/biome structure is spec §4.3, not this
// package's concern.
type LevelChunk struct {
	ChunkX, ChunkZ int32
	SubChunkCount  uint32
	CacheEnabled   bool
	Payload        []byte
}

func (*LevelChunk) ID() uint32 { return IDLevelChunk }

func (pk *LevelChunk) Marshal(w *protocol.Writer) {
	protocol.WriteVarInt32(w, pk.ChunkX)
	protocol.WriteVarInt32(w, pk.ChunkZ)
	protocol.WriteVarUint32(w, pk.SubChunkCount)
	writeBool(w, pk.CacheEnabled)
	protocol.WriteVarUint32(w, uint32(len(pk.Payload)))
	w.PutBytes(pk.Payload)
}

func (pk *LevelChunk) Unmarshal(r *protocol.Reader) (err error) {
	if pk.ChunkX, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if pk.ChunkZ, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if pk.SubChunkCount, err = protocol.ReadVarUint32(r); err != nil {
		return err
	}
	if pk.CacheEnabled, err = readBool(r); err != nil {
		return err
	}
	n, err := protocol.ReadVarUint32(r)
	if err != nil {
		return err
	}
	pk.Payload, err = r.Bytes(int(n))
	return err
}

// UpdateBlock notifies clients that a single block changed.
type UpdateBlock struct {
	Position      protocol.BlockPos
	BlockRuntimeID uint32
	Layer         uint32
}

func (*UpdateBlock) ID() uint32 { return IDUpdateBlock }

func (pk *UpdateBlock) Marshal(w *protocol.Writer) {
	protocol.WriteBlockPos(w, pk.Position)
	protocol.WriteVarUint32(w, pk.BlockRuntimeID)
	protocol.WriteVarUint32(w, pk.Layer)
}

func (pk *UpdateBlock) Unmarshal(r *protocol.Reader) (err error) {
	if pk.Position, err = protocol.ReadBlockPos(r); err != nil {
		return err
	}
	if pk.BlockRuntimeID, err = protocol.ReadVarUint32(r); err != nil {
		return err
	}
	pk.Layer, err = protocol.ReadVarUint32(r)
	return err
}

// LevelEvent is a generic world-level visual/sound event (e.g. block break
// particles).
type LevelEvent struct {
	EventID int32
	Position protocol.BlockPos
	Data    int32
}

func (*LevelEvent) ID() uint32 { return IDLevelEvent }

func (pk *LevelEvent) Marshal(w *protocol.Writer) {
	protocol.WriteVarInt32(w, pk.EventID)
	protocol.WriteBlockPos(w, pk.Position)
	protocol.WriteVarInt32(w, pk.Data)
}

func (pk *LevelEvent) Unmarshal(r *protocol.Reader) (err error) {
	if pk.EventID, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if pk.Position, err = protocol.ReadBlockPos(r); err != nil {
		return err
	}
	pk.Data, err = protocol.ReadVarInt32(r)
	return err
}

// EntityEvent reports a per-entity event (e.g. hurt animation).
type EntityEvent struct {
	RuntimeID uint64
	EventType byte
	Data      int32
}

func (*EntityEvent) ID() uint32 { return IDEntityEvent }

func (pk *EntityEvent) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint64(w, pk.RuntimeID)
	w.PutByte(pk.EventType)
	protocol.WriteVarInt32(w, pk.Data)
}

func (pk *EntityEvent) Unmarshal(r *protocol.Reader) (err error) {
	if pk.RuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	if pk.EventType, err = r.Byte(); err != nil {
		return err
	}
	pk.Data, err = protocol.ReadVarInt32(r)
	return err
}

// StartBreak is sent when a player begins mining a block.
type StartBreak struct {
	Position protocol.BlockPos
}

func (*StartBreak) ID() uint32 { return IDStartBreak }
func (pk *StartBreak) Marshal(w *protocol.Writer) { protocol.WriteBlockPos(w, pk.Position) }
func (pk *StartBreak) Unmarshal(r *protocol.Reader) (err error) {
	pk.Position, err = protocol.ReadBlockPos(r)
	return err
}

// BreakBlock is sent when a player finishes mining a block.
type BreakBlock struct {
	Position protocol.BlockPos
}

func (*BreakBlock) ID() uint32 { return IDBreakBlock }
func (pk *BreakBlock) Marshal(w *protocol.Writer) { protocol.WriteBlockPos(w, pk.Position) }
func (pk *BreakBlock) Unmarshal(r *protocol.Reader) (err error) {
	pk.Position, err = protocol.ReadBlockPos(r)
	return err
}

// MobEquipment reports the item a mob/player is currently holding.
type MobEquipment struct {
	RuntimeID uint64
	Item      protocol.ItemStack
	Slot      byte
}

func (*MobEquipment) ID() uint32 { return IDMobEquipment }

func (pk *MobEquipment) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint64(w, pk.RuntimeID)
	protocol.WriteItemStack(w, pk.Item)
	w.PutByte(pk.Slot)
}

func (pk *MobEquipment) Unmarshal(r *protocol.Reader) (err error) {
	if pk.RuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	if pk.Item, err = protocol.ReadItemStack(r); err != nil {
		return err
	}
	pk.Slot, err = r.Byte()
	return err
}
