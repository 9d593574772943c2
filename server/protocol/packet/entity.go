package packet

import (
	"github.com/google/uuid"
	"github.com/sago-mc/bedrock/server/protocol"
)

// Respawn coordinates the death → respawn handshake. The same packet shape
// travels in both directions; State distinguishes the phases.
type Respawn struct {
	Position [3]float32
	State    byte
	RuntimeID uint64
}

// Respawn states.
const (
	RespawnSearchingForSpawn byte = iota
	RespawnReadyToSpawn
	RespawnClientReady
)

func (*Respawn) ID() uint32 { return IDRespawn }

func (pk *Respawn) Marshal(w *protocol.Writer) {
	for _, f := range pk.Position {
		protocol.WriteFloat32(w, f)
	}
	w.PutByte(pk.State)
	protocol.WriteVarUint64(w, pk.RuntimeID)
}

func (pk *Respawn) Unmarshal(r *protocol.Reader) (err error) {
	for i := range pk.Position {
		if pk.Position[i], err = protocol.ReadFloat32(r); err != nil {
			return err
		}
	}
	if pk.State, err = r.Byte(); err != nil {
		return err
	}
	pk.RuntimeID, err = protocol.ReadVarUint64(r)
	return err
}

// SetEntityMotion pushes an authoritative velocity to clients, used for
// knockback.
type SetEntityMotion struct {
	RuntimeID uint64
	Motion    [3]float32
}

func (*SetEntityMotion) ID() uint32 { return IDSetEntityMotion }

func (pk *SetEntityMotion) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint64(w, pk.RuntimeID)
	for _, f := range pk.Motion {
		protocol.WriteFloat32(w, f)
	}
}

func (pk *SetEntityMotion) Unmarshal(r *protocol.Reader) (err error) {
	if pk.RuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	for i := range pk.Motion {
		if pk.Motion[i], err = protocol.ReadFloat32(r); err != nil {
			return err
		}
	}
	return nil
}

// AddPlayer spawns another player's entity on a client.
type AddPlayer struct {
	UUID      uuid.UUID
	Username  string
	RuntimeID uint64
	Position  [3]float32
	Yaw, Pitch float32
}

func (*AddPlayer) ID() uint32 { return IDAddPlayer }

func (pk *AddPlayer) Marshal(w *protocol.Writer) {
	protocol.WriteUUID(w, pk.UUID)
	protocol.WriteString(w, pk.Username)
	protocol.WriteVarUint64(w, pk.RuntimeID)
	for _, f := range pk.Position {
		protocol.WriteFloat32(w, f)
	}
	protocol.WriteFloat32(w, pk.Yaw)
	protocol.WriteFloat32(w, pk.Pitch)
}

func (pk *AddPlayer) Unmarshal(r *protocol.Reader) (err error) {
	if pk.UUID, err = protocol.ReadUUID(r); err != nil {
		return err
	}
	if pk.Username, err = protocol.ReadString(r); err != nil {
		return err
	}
	if pk.RuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	for i := range pk.Position {
		if pk.Position[i], err = protocol.ReadFloat32(r); err != nil {
			return err
		}
	}
	if pk.Yaw, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	pk.Pitch, err = protocol.ReadFloat32(r)
	return err
}

// AddEntity spawns a mob on a client.
type AddEntity struct {
	RuntimeID uint64
	EntityType string
	Position  [3]float32
	Yaw       float32
}

func (*AddEntity) ID() uint32 { return IDAddEntity }

func (pk *AddEntity) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint64(w, pk.RuntimeID)
	protocol.WriteString(w, pk.EntityType)
	for _, f := range pk.Position {
		protocol.WriteFloat32(w, f)
	}
	protocol.WriteFloat32(w, pk.Yaw)
}

func (pk *AddEntity) Unmarshal(r *protocol.Reader) (err error) {
	if pk.RuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	if pk.EntityType, err = protocol.ReadString(r); err != nil {
		return err
	}
	for i := range pk.Position {
		if pk.Position[i], err = protocol.ReadFloat32(r); err != nil {
			return err
		}
	}
	pk.Yaw, err = protocol.ReadFloat32(r)
	return err
}

// RemoveEntity despawns an entity on a client.
type RemoveEntity struct {
	RuntimeID uint64
}

func (*RemoveEntity) ID() uint32 { return IDRemoveEntity }

func (pk *RemoveEntity) Marshal(w *protocol.Writer) { protocol.WriteVarUint64(w, pk.RuntimeID) }

func (pk *RemoveEntity) Unmarshal(r *protocol.Reader) (err error) {
	pk.RuntimeID, err = protocol.ReadVarUint64(r)
	return err
}

// MoveEntity carries a mob's per-tick movement to clients.
type MoveEntity struct {
	RuntimeID uint64
	Position  [3]float32
	Yaw, HeadYaw float32
	OnGround  bool
}

func (*MoveEntity) ID() uint32 { return IDMoveEntity }

func (pk *MoveEntity) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint64(w, pk.RuntimeID)
	for _, f := range pk.Position {
		protocol.WriteFloat32(w, f)
	}
	protocol.WriteFloat32(w, pk.Yaw)
	protocol.WriteFloat32(w, pk.HeadYaw)
	writeBool(w, pk.OnGround)
}

func (pk *MoveEntity) Unmarshal(r *protocol.Reader) (err error) {
	if pk.RuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	for i := range pk.Position {
		if pk.Position[i], err = protocol.ReadFloat32(r); err != nil {
			return err
		}
	}
	if pk.Yaw, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if pk.HeadYaw, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	pk.OnGround, err = readBool(r)
	return err
}

// SetHealth reports the local player's health.
type SetHealth struct {
	Health int32
}

func (*SetHealth) ID() uint32 { return IDSetHealth }

func (pk *SetHealth) Marshal(w *protocol.Writer) { protocol.WriteVarInt32(w, pk.Health) }

func (pk *SetHealth) Unmarshal(r *protocol.Reader) (err error) {
	pk.Health, err = protocol.ReadVarInt32(r)
	return err
}

// Attribute is one named attribute value in UpdateAttributes.
type Attribute struct {
	Name           string
	Value, Min, Max float32
}

// UpdateAttributes reports hunger, saturation and similar player
// attributes.
type UpdateAttributes struct {
	RuntimeID  uint64
	Attributes []Attribute
}

func (*UpdateAttributes) ID() uint32 { return IDUpdateAttributes }

func (pk *UpdateAttributes) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint64(w, pk.RuntimeID)
	protocol.WriteVarUint32(w, uint32(len(pk.Attributes)))
	for _, a := range pk.Attributes {
		protocol.WriteString(w, a.Name)
		protocol.WriteFloat32(w, a.Value)
		protocol.WriteFloat32(w, a.Min)
		protocol.WriteFloat32(w, a.Max)
	}
}

func (pk *UpdateAttributes) Unmarshal(r *protocol.Reader) (err error) {
	if pk.RuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	n, err := protocol.ReadVarUint32(r)
	if err != nil {
		return err
	}
	pk.Attributes = make([]Attribute, n)
	for i := range pk.Attributes {
		a := &pk.Attributes[i]
		if a.Name, err = protocol.ReadString(r); err != nil {
			return err
		}
		if a.Value, err = protocol.ReadFloat32(r); err != nil {
			return err
		}
		if a.Min, err = protocol.ReadFloat32(r); err != nil {
			return err
		}
		if a.Max, err = protocol.ReadFloat32(r); err != nil {
			return err
		}
	}
	return nil
}

// InventoryContent replaces the contents of one inventory window.
type InventoryContent struct {
	WindowID uint32
	Items    []protocol.ItemStack
}

func (*InventoryContent) ID() uint32 { return IDInventoryContent }

func (pk *InventoryContent) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint32(w, pk.WindowID)
	protocol.WriteVarUint32(w, uint32(len(pk.Items)))
	for _, it := range pk.Items {
		protocol.WriteItemStack(w, it)
	}
}

func (pk *InventoryContent) Unmarshal(r *protocol.Reader) (err error) {
	if pk.WindowID, err = protocol.ReadVarUint32(r); err != nil {
		return err
	}
	n, err := protocol.ReadVarUint32(r)
	if err != nil {
		return err
	}
	pk.Items = make([]protocol.ItemStack, n)
	for i := range pk.Items {
		if pk.Items[i], err = protocol.ReadItemStack(r); err != nil {
			return err
		}
	}
	return nil
}
