// Package packet implements the Bedrock game-packet envelope and a typed
// codec for the representative packet kinds named in spec §4.2: the packet
// registry maps an 8-bit/VarUint32 packet ID to an encode/decode pair,
// never an inheritance hierarchy (spec §9 "weakly typed packet registry").
package packet

import (
	"fmt"

	"github.com/sago-mc/bedrock/server/protocol"
)

// Packet is implemented by every game packet body. ID returns the numeric
// packet identifier used in the registry; Marshal/Unmarshal (de)serialize
// the packet body only — the envelope (0xFE prefix, length prefix, packet
// ID) is handled by Encode/DecodeBatch below.
type Packet interface {
	ID() uint32
	Marshal(w *protocol.Writer)
	Unmarshal(r *protocol.Reader) error
}

// Unknown wraps the raw bytes of a packet ID the registry has no codec for.
// Per spec §7, unknown packet IDs are skipped, never treated as a decode
// error.
type Unknown struct {
	PacketID uint32
	Payload  []byte
}

// ID implements Packet.
func (u *Unknown) ID() uint32 { return u.PacketID }

// Marshal implements Packet.
func (u *Unknown) Marshal(w *protocol.Writer) { w.PutBytes(u.Payload) }

// Unmarshal implements Packet.
func (u *Unknown) Unmarshal(r *protocol.Reader) error {
	u.Payload = append([]byte(nil), r.Remaining()...)
	return nil
}

// Pool maps a packet ID to a constructor for a zero-valued Packet of that
// kind. A registry keyed by integer ID, per spec §9 — never a type switch
// over concrete packet structs.
type Pool map[uint32]func() Packet

// NewPool returns a Pool containing every packet kind implemented by this
// package. Unrecognised IDs fall back to *Unknown at decode time.
func NewPool() Pool {
	p := make(Pool, 32)
	register := func(id uint32, ctor func() Packet) { p[id] = ctor }

	register(IDLogin, func() Packet { return &Login{} })
	register(IDPlayStatus, func() Packet { return &PlayStatus{} })
	register(IDDisconnect, func() Packet { return &Disconnect{} })
	register(IDResourcePacksInfo, func() Packet { return &ResourcePacksInfo{} })
	register(IDResourcePacksStack, func() Packet { return &ResourcePacksStack{} })
	register(IDResourcePackClientResponse, func() Packet { return &ResourcePackClientResponse{} })
	register(IDText, func() Packet { return &Text{} })
	register(IDStartGame, func() Packet { return &StartGame{} })
	register(IDLevelChunk, func() Packet { return &LevelChunk{} })
	register(IDRequestChunkRadius, func() Packet { return &RequestChunkRadius{} })
	register(IDChunkRadiusUpdated, func() Packet { return &ChunkRadiusUpdated{} })
	register(IDSetLocalPlayerAsInitialized, func() Packet { return &SetLocalPlayerAsInitialized{} })
	register(IDBiomeDefinitionList, func() Packet { return &BiomeDefinitionList{} })
	register(IDCreativeContent, func() Packet { return &CreativeContent{} })
	register(IDCraftingData, func() Packet { return &CraftingData{} })
	register(IDAvailableCommands, func() Packet { return &AvailableCommands{} })
	register(IDBlockPalette, func() Packet { return &BlockPalette{} })
	register(IDPlayerAuthInput, func() Packet { return &PlayerAuthInput{} })
	register(IDMovePlayer, func() Packet { return &MovePlayer{} })
	register(IDUpdateBlock, func() Packet { return &UpdateBlock{} })
	register(IDLevelEvent, func() Packet { return &LevelEvent{} })
	register(IDEntityEvent, func() Packet { return &EntityEvent{} })
	register(IDItemStackRequest, func() Packet { return &ItemStackRequest{} })
	register(IDItemStackResponse, func() Packet { return &ItemStackResponse{} })
	register(IDInventoryTransaction, func() Packet { return &InventoryTransaction{} })
	register(IDStartBreak, func() Packet { return &StartBreak{} })
	register(IDBreakBlock, func() Packet { return &BreakBlock{} })
	register(IDMobEquipment, func() Packet { return &MobEquipment{} })
	register(IDRespawn, func() Packet { return &Respawn{} })
	register(IDSetEntityMotion, func() Packet { return &SetEntityMotion{} })
	register(IDAddPlayer, func() Packet { return &AddPlayer{} })
	register(IDAddEntity, func() Packet { return &AddEntity{} })
	register(IDRemoveEntity, func() Packet { return &RemoveEntity{} })
	register(IDMoveEntity, func() Packet { return &MoveEntity{} })
	register(IDSetHealth, func() Packet { return &SetHealth{} })
	register(IDUpdateAttributes, func() Packet { return &UpdateAttributes{} })
	register(IDInventoryContent, func() Packet { return &InventoryContent{} })
	return p
}

// EncodeBatch encodes a list of packets into the 0xFE-prefixed payload
// format: 0xFE followed by repeated VarUint32(body_len) || body, where body
// is VarUint32(packet ID) followed by the marshalled packet fields.
func EncodeBatch(pks []Packet) []byte {
	w := protocol.NewWriter()
	w.PutByte(0xFE)
	for _, pk := range pks {
		body := protocol.NewWriter()
		protocol.WriteVarUint32(body, pk.ID())
		pk.Marshal(body)
		protocol.WriteVarUint32(w, uint32(len(body.Bytes())))
		w.PutBytes(body.Bytes())
	}
	return w.Bytes()
}

// DecodeBatch decodes a 0xFE-prefixed payload into zero or more packets.
// Malformed bodies are dropped (logged by the caller); unknown packet IDs
// decode to *Unknown rather than erroring, per spec §7.
func DecodeBatch(pool Pool, data []byte) ([]Packet, error) {
	if len(data) == 0 || data[0] != 0xFE {
		return nil, fmt.Errorf("packet: payload missing 0xFE game-packet prefix")
	}
	r := protocol.NewReader(data[1:])
	var out []Packet
	for r.Len() > 0 {
		bodyLen, err := protocol.ReadVarUint32(r)
		if err != nil {
			return out, fmt.Errorf("packet: reading body length: %w", err)
		}
		raw, err := r.Bytes(int(bodyLen))
		if err != nil {
			return out, fmt.Errorf("packet: reading body: %w", err)
		}
		br := protocol.NewReader(raw)
		id, err := protocol.ReadVarUint32(br)
		if err != nil {
			return out, fmt.Errorf("packet: reading packet id: %w", err)
		}
		ctor, ok := pool[id]
		var pk Packet
		if !ok {
			pk = &Unknown{PacketID: id}
		} else {
			pk = ctor()
		}
		if err := pk.Unmarshal(br); err != nil {
			// A malformed single packet body drops that packet, not the
			// whole batch or the session, per spec §7.
			continue
		}
		out = append(out, pk)
	}
	return out, nil
}
