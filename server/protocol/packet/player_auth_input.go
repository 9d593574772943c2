package packet

import "github.com/sago-mc/bedrock/server/protocol"

// Input flag bits carried in PlayerAuthInput.InputData. Only the subset the
// movement/block-break/combat validation pipelines (spec §5) inspect is
// named here.
const (
	InputFlagAscend uint64 = 1 << iota
	InputFlagDescend
	InputFlagStartSprinting
	InputFlagStopSprinting
	InputFlagStartSneaking
	InputFlagStopSneaking
	InputFlagStartJumping
	InputFlagMissedSwing
)

// PlayerAuthInput is sent by the client every tick it has moved or taken
// input action. The server is authoritative: it validates this against its
// own physics rather than trusting Position outright (spec §5 "movement
// correction").
type PlayerAuthInput struct {
	Pitch, Yaw, HeadYaw float32
	Position            [3]float32
	MoveVectorX         float32
	MoveVectorZ         float32
	InputData           uint64
	InputMode           uint32
	PlayMode            uint32
	Tick                uint64
}

func (*PlayerAuthInput) ID() uint32 { return IDPlayerAuthInput }

func (pk *PlayerAuthInput) Marshal(w *protocol.Writer) {
	protocol.WriteFloat32(w, pk.Pitch)
	protocol.WriteFloat32(w, pk.Yaw)
	protocol.WriteFloat32(w, pk.HeadYaw)
	for _, f := range pk.Position {
		protocol.WriteFloat32(w, f)
	}
	protocol.WriteFloat32(w, pk.MoveVectorX)
	protocol.WriteFloat32(w, pk.MoveVectorZ)
	protocol.WriteVarUint64(w, pk.InputData)
	protocol.WriteVarUint32(w, pk.InputMode)
	protocol.WriteVarUint32(w, pk.PlayMode)
	protocol.WriteVarUint64(w, pk.Tick)
}

func (pk *PlayerAuthInput) Unmarshal(r *protocol.Reader) (err error) {
	if pk.Pitch, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if pk.Yaw, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if pk.HeadYaw, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	for i := range pk.Position {
		if pk.Position[i], err = protocol.ReadFloat32(r); err != nil {
			return err
		}
	}
	if pk.MoveVectorX, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if pk.MoveVectorZ, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if pk.InputData, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	if pk.InputMode, err = protocol.ReadVarUint32(r); err != nil {
		return err
	}
	if pk.PlayMode, err = protocol.ReadVarUint32(r); err != nil {
		return err
	}
	pk.Tick, err = protocol.ReadVarUint64(r)
	return err
}

// MovePlayer is the server-authoritative counterpart to PlayerAuthInput: it
// is sent back to clients to correct position, either after a validation
// failure or to reflect another entity's movement.
type MovePlayer struct {
	RuntimeID       uint64
	Position        [3]float32
	Pitch, Yaw, HeadYaw float32
	Mode            byte
	OnGround        bool
	RiddenRuntimeID uint64
	Tick            uint64
}

func (*MovePlayer) ID() uint32 { return IDMovePlayer }

func (pk *MovePlayer) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint64(w, pk.RuntimeID)
	for _, f := range pk.Position {
		protocol.WriteFloat32(w, f)
	}
	protocol.WriteFloat32(w, pk.Pitch)
	protocol.WriteFloat32(w, pk.Yaw)
	protocol.WriteFloat32(w, pk.HeadYaw)
	w.PutByte(pk.Mode)
	writeBool(w, pk.OnGround)
	protocol.WriteVarUint64(w, pk.RiddenRuntimeID)
	protocol.WriteVarUint64(w, pk.Tick)
}

func (pk *MovePlayer) Unmarshal(r *protocol.Reader) (err error) {
	if pk.RuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	for i := range pk.Position {
		if pk.Position[i], err = protocol.ReadFloat32(r); err != nil {
			return err
		}
	}
	if pk.Pitch, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if pk.Yaw, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if pk.HeadYaw, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if pk.Mode, err = r.Byte(); err != nil {
		return err
	}
	if pk.OnGround, err = readBool(r); err != nil {
		return err
	}
	if pk.RiddenRuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	pk.Tick, err = protocol.ReadVarUint64(r)
	return err
}
