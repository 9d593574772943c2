package packet

import "github.com/sago-mc/bedrock/server/protocol"

// LevelSettings is embedded inline in StartGame. Field order is part of the
// wire contract: per spec §4.2, StartGame's ~60 fields (here a representative
// subset) must be written and read in exactly this order, or a real client
// disconnects on the first byte mismatch. Never reorder these fields.
type LevelSettings struct {
	Seed              int64
	SpawnSettings     byte // biome type: 0 default, 1 user-defined
	Generator         int32
	Gamemode          int32
	Difficulty        int32
	SpawnX, SpawnY, SpawnZ int32
	HasAchievementsDisabled bool
	Time              int32
	EduEditionOffer   int32
	RainLevel         float32
	LightningLevel    float32
	PlatformLockedContent bool
	CommandsEnabled   bool
	TexturePacksRequired bool
	WorldName         string
	LevelID           string
	CurrentTick       int64
	EnchantmentSeed   int32
}

// StartGame is the single large world-bootstrap packet sent right after
// login succeeds. It embeds LevelSettings followed by identity/runtime
// fields that are specific to the connecting player rather than the world.
type StartGame struct {
	EntityUniqueID    int64
	EntityRuntimeID   uint64
	PlayerGamemode    int32
	PlayerPosition    [3]float32
	Pitch, Yaw        float32
	Settings          LevelSettings
	WorldGameMode     int32
	WorldName         string
	ChunkRadius       int32
}

func (*StartGame) ID() uint32 { return IDStartGame }

func (pk *StartGame) Marshal(w *protocol.Writer) {
	protocol.WriteVarInt64(w, pk.EntityUniqueID)
	protocol.WriteVarUint64(w, pk.EntityRuntimeID)
	protocol.WriteVarInt32(w, pk.PlayerGamemode)
	for _, f := range pk.PlayerPosition {
		protocol.WriteFloat32(w, f)
	}
	protocol.WriteFloat32(w, pk.Pitch)
	protocol.WriteFloat32(w, pk.Yaw)

	s := pk.Settings
	protocol.WriteVarInt64(w, s.Seed)
	w.PutByte(s.SpawnSettings)
	protocol.WriteVarInt32(w, s.Generator)
	protocol.WriteVarInt32(w, s.Gamemode)
	protocol.WriteVarInt32(w, s.Difficulty)
	protocol.WriteVarInt32(w, s.SpawnX)
	protocol.WriteVarInt32(w, s.SpawnY)
	protocol.WriteVarInt32(w, s.SpawnZ)
	writeBool(w, s.HasAchievementsDisabled)
	protocol.WriteVarInt32(w, s.Time)
	protocol.WriteVarInt32(w, s.EduEditionOffer)
	protocol.WriteFloat32(w, s.RainLevel)
	protocol.WriteFloat32(w, s.LightningLevel)
	writeBool(w, s.PlatformLockedContent)
	writeBool(w, s.CommandsEnabled)
	writeBool(w, s.TexturePacksRequired)
	protocol.WriteString(w, s.WorldName)
	protocol.WriteString(w, s.LevelID)
	protocol.WriteVarInt64(w, s.CurrentTick)
	protocol.WriteVarInt32(w, s.EnchantmentSeed)

	protocol.WriteVarInt32(w, pk.WorldGameMode)
	protocol.WriteString(w, pk.WorldName)
	protocol.WriteVarInt32(w, pk.ChunkRadius)
}

func (pk *StartGame) Unmarshal(r *protocol.Reader) (err error) {
	if pk.EntityUniqueID, err = protocol.ReadVarInt64(r); err != nil {
		return err
	}
	if pk.EntityRuntimeID, err = protocol.ReadVarUint64(r); err != nil {
		return err
	}
	if pk.PlayerGamemode, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	for i := range pk.PlayerPosition {
		if pk.PlayerPosition[i], err = protocol.ReadFloat32(r); err != nil {
			return err
		}
	}
	if pk.Pitch, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if pk.Yaw, err = protocol.ReadFloat32(r); err != nil {
		return err
	}

	s := &pk.Settings
	if s.Seed, err = protocol.ReadVarInt64(r); err != nil {
		return err
	}
	if s.SpawnSettings, err = r.Byte(); err != nil {
		return err
	}
	if s.Generator, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if s.Gamemode, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if s.Difficulty, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if s.SpawnX, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if s.SpawnY, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if s.SpawnZ, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if s.HasAchievementsDisabled, err = readBool(r); err != nil {
		return err
	}
	if s.Time, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if s.EduEditionOffer, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if s.RainLevel, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if s.LightningLevel, err = protocol.ReadFloat32(r); err != nil {
		return err
	}
	if s.PlatformLockedContent, err = readBool(r); err != nil {
		return err
	}
	if s.CommandsEnabled, err = readBool(r); err != nil {
		return err
	}
	if s.TexturePacksRequired, err = readBool(r); err != nil {
		return err
	}
	if s.WorldName, err = protocol.ReadString(r); err != nil {
		return err
	}
	if s.LevelID, err = protocol.ReadString(r); err != nil {
		return err
	}
	if s.CurrentTick, err = protocol.ReadVarInt64(r); err != nil {
		return err
	}
	if s.EnchantmentSeed, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}

	if pk.WorldGameMode, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	if pk.WorldName, err = protocol.ReadString(r); err != nil {
		return err
	}
	pk.ChunkRadius, err = protocol.ReadVarInt32(r)
	return err
}

func writeBool(w *protocol.Writer, b bool) {
	if b {
		w.PutByte(1)
	} else {
		w.PutByte(0)
	}
}

func readBool(r *protocol.Reader) (bool, error) {
	b, err := r.Byte()
	return b != 0, err
}
