package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/sago-mc/bedrock/server/player/playerdata"
	"github.com/sago-mc/bedrock/server/plugin"
	"github.com/sago-mc/bedrock/server/protocol"
	"github.com/sago-mc/bedrock/server/protocol/packet"
	"github.com/sago-mc/bedrock/server/world"
)

// identity is what the login JWT chain is parsed for. Cryptographic
// verification of the chain is out of scope; the payload is trusted for
// display purposes only.
type identity struct {
	DisplayName string
	UUID        uuid.UUID
	XUID        string
}

// parseLoginChain extracts the identity from the raw connection-request
// blob: a JSON object carrying a chain of JWTs, the last of which holds
// extraData with the display name, identity UUID and XUID.
func parseLoginChain(raw string) (identity, error) {
	var envelope struct {
		Chain []string `json:"chain"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return identity{}, fmt.Errorf("session: login chain envelope: %w", err)
	}
	for i := len(envelope.Chain) - 1; i >= 0; i-- {
		parts := strings.Split(envelope.Chain[i], ".")
		if len(parts) != 3 {
			continue
		}
		payload, err := base64.RawURLEncoding.DecodeString(parts[1])
		if err != nil {
			continue
		}
		var claims struct {
			ExtraData struct {
				DisplayName string `json:"displayName"`
				Identity    string `json:"identity"`
				XUID        string `json:"XUID"`
			} `json:"extraData"`
		}
		if err := json.Unmarshal(payload, &claims); err != nil {
			continue
		}
		if claims.ExtraData.DisplayName == "" {
			continue
		}
		id, err := uuid.Parse(claims.ExtraData.Identity)
		if err != nil {
			return identity{}, fmt.Errorf("session: login identity UUID: %w", err)
		}
		return identity{DisplayName: claims.ExtraData.DisplayName, UUID: id, XUID: claims.ExtraData.XUID}, nil
	}
	return identity{}, fmt.Errorf("session: login chain carries no identity claims")
}

// handleLogin opens the login sequence: parse identity, restore persisted
// player data, and start the resource pack negotiation.
func (s *Session) handleLogin(p *packet.Login) {
	if s.stage != StageHandshakeDone {
		return
	}
	id, err := parseLoginChain(p.ConnectionRequest)
	if err != nil {
		s.log.Debug("malformed login", "err", err)
		s.send(&packet.PlayStatus{Status: packet.PlayStatusLoginFailedClient})
		s.conf.Disconnect("malformed login")
		return
	}
	s.Name = id.DisplayName
	s.UUID = id.UUID
	s.XUID = id.XUID
	s.stage = StageLoginSent

	s.restorePlayerData()

	s.send(&packet.PlayStatus{Status: packet.PlayStatusLoginSuccess})
	s.send(&packet.ResourcePacksInfo{})
	s.stage = StageResourcePacks
}

// handlePackResponse walks the resource-pack negotiation; this server
// serves no packs, so the client always proceeds straight through.
func (s *Session) handlePackResponse(p *packet.ResourcePackClientResponse) {
	if s.stage != StageResourcePacks {
		return
	}
	switch p.Status {
	case packet.PackResponseRefused:
		s.conf.Disconnect("resource packs refused")
	case packet.PackResponseSendPacks, packet.PackResponseAllPacksDownloaded:
		s.send(&packet.ResourcePacksStack{})
	case packet.PackResponseCompleted:
		s.sendStartGame()
		s.stage = StageSpawning
	}
}

// sendStartGame emits the world-bootstrap sequence: StartGame and the
// static catalogue packets, after which the client asks for a chunk
// radius.
func (s *Session) sendStartGame() {
	sx, sy, sz := s.conf.World.Spawn()
	s.Pos = mgl64.Vec3{float64(sx) + 0.5, float64(sy), float64(sz) + 0.5}
	lvl := s.conf.World.Level()

	rain := float32(0)
	if lvl.Raining {
		rain = 1
	}
	s.send(&packet.StartGame{
		EntityUniqueID:  int64(s.runtimeID),
		EntityRuntimeID: s.runtimeID,
		PlayerGamemode:  s.gamemode,
		PlayerPosition:  vec32(s.Pos),
		Settings: packet.LevelSettings{
			Seed:            lvl.Seed,
			Gamemode:        s.gamemode,
			Difficulty:      1,
			SpawnX:          sx,
			SpawnY:          sy,
			SpawnZ:          sz,
			Time:            int32(lvl.Time),
			RainLevel:       rain,
			CommandsEnabled: true,
			WorldName:       lvl.Name,
			LevelID:         lvl.Name,
			CurrentTick:     int64(s.conf.World.CurrentTick()),
		},
		WorldGameMode: s.gamemode,
		WorldName:     lvl.Name,
		ChunkRadius:   s.chunkRadius,
	})
	s.send(
		&packet.BiomeDefinitionList{},
		&packet.CreativeContent{},
		&packet.CraftingData{},
		&packet.AvailableCommands{},
		&packet.BlockPalette{},
	)
}

// handleChunkRadius answers the client's view distance request and streams
// the initial chunks around spawn.
func (s *Session) handleChunkRadius(p *packet.RequestChunkRadius) {
	if s.stage != StageSpawning && s.stage != StageInGame {
		return
	}
	radius := p.Radius
	if radius < 1 {
		radius = 1
	}
	if radius > 16 {
		radius = 16
	}
	s.chunkRadius = radius
	s.send(&packet.ChunkRadiusUpdated{Radius: radius})

	if s.stage == StageSpawning {
		s.streamChunks()
		s.send(&packet.PlayStatus{Status: packet.PlayStatusPlayerSpawn})
		s.sendInventory()
	}
}

// handleInitialized completes the spawn: the client reported itself ready,
// so the player becomes visible and the join event fires.
func (s *Session) handleInitialized(p *packet.SetLocalPlayerAsInitialized) {
	if s.stage != StageSpawning || p.RuntimeID != s.runtimeID {
		return
	}
	s.stage = StageInGame
	s.broadcast(&packet.AddPlayer{
		UUID:      s.UUID,
		Username:  s.Name,
		RuntimeID: s.runtimeID,
		Position:  vec32(s.Pos),
		Yaw:       float32(s.Yaw),
		Pitch:     float32(s.Pitch),
	})
	if s.conf.Plugins != nil {
		s.conf.Plugins.Dispatch(&plugin.PlayerJoin{Name: s.Name, XUID: s.XUID})
	}
	s.log.Info("player joined", "name", s.Name, "uuid", s.UUID.String())
}

// streamChunks sends every chunk within the view radius that the client
// does not have yet.
func (s *Session) streamChunks() {
	center := world.ChunkPos{X: int32(int(s.Pos[0]) >> 4), Z: int32(int(s.Pos[2]) >> 4)}
	r := s.chunkRadius
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			pos := world.ChunkPos{X: center.X + dx, Z: center.Z + dz}
			if _, ok := s.sentChunks[pos]; ok {
				continue
			}
			col := s.conf.World.Chunk(pos)
			s.conf.World.EnsureBlockEntities(pos)
			count, payload := col.NetworkPayload()
			s.send(&packet.LevelChunk{
				ChunkX:        pos.X,
				ChunkZ:        pos.Z,
				SubChunkCount: count,
				Payload:       payload,
			})
			s.sentChunks[pos] = struct{}{}
		}
	}
}

// sendInventory pushes the authoritative inventory to the client.
func (s *Session) sendInventory() {
	s.send(&packet.InventoryContent{WindowID: 0, Items: s.inv.Main[:]})
}

// restorePlayerData loads the persisted player state, if any.
func (s *Session) restorePlayerData() {
	if s.conf.WorldDir == "" {
		return
	}
	d, ok, err := playerdata.Load(s.conf.WorldDir, s.UUID)
	if err != nil {
		s.log.Warn("player data load failed", "name", s.Name, "err", err)
		return
	}
	if !ok {
		return
	}
	s.Pos = mgl64.Vec3{d.Position[0], d.Position[1], d.Position[2]}
	s.Yaw, s.Pitch = d.Yaw, d.Pitch
	s.gamemode = d.GameMode
	s.health = d.Health
	s.food = d.Food
	s.saturation = d.Saturation
	s.exhaustion = d.Exhaustion
	s.fireTicks = d.FireTicks
	s.airTicks = d.AirTicks
	s.fallDistance = d.FallDistance
	s.xpLevel, s.xpTotal = d.XPLevel, d.XPTotal
	s.inv.HeldSlot = d.Inventory.HeldSlot
	for i, it := range d.Inventory.Main {
		s.inv.Main[i] = stackFromData(it)
	}
	for i, it := range d.Inventory.Armor {
		s.inv.Armor[i] = stackFromData(it)
	}
	s.inv.Offhand = stackFromData(d.Inventory.Offhand)
	for _, e := range d.Effects {
		s.effects = append(s.effects, Effect{ID: e.ID, Amplifier: e.Amplifier, RemainingTicks: e.RemainingTicks})
	}
}

// Save persists the player state; the server calls it on the periodic
// flush cadence. Close persists the same state at session close.
func (s *Session) Save() {
	if s.stage == StageInGame {
		s.savePlayerData()
	}
}

// savePlayerData persists the player state.
func (s *Session) savePlayerData() {
	if s.conf.WorldDir == "" || s.UUID == (uuid.UUID{}) {
		return
	}
	d := playerdata.Data{
		Name:         s.Name,
		XUID:         s.XUID,
		Position:     [3]float64{s.Pos[0], s.Pos[1], s.Pos[2]},
		Yaw:          s.Yaw,
		Pitch:        s.Pitch,
		GameMode:     s.gamemode,
		Health:       s.health,
		Food:         s.food,
		Saturation:   s.saturation,
		Exhaustion:   s.exhaustion,
		FireTicks:    s.fireTicks,
		AirTicks:     s.airTicks,
		FallDistance: s.fallDistance,
		XPLevel:      s.xpLevel,
		XPTotal:      s.xpTotal,
	}
	d.Inventory.HeldSlot = s.inv.HeldSlot
	for i, it := range s.inv.Main {
		d.Inventory.Main[i] = stackToData(it)
	}
	for i, it := range s.inv.Armor {
		d.Inventory.Armor[i] = stackToData(it)
	}
	d.Inventory.Offhand = stackToData(s.inv.Offhand)
	for _, e := range s.effects {
		d.Effects = append(d.Effects, playerdata.Effect{ID: e.ID, Amplifier: e.Amplifier, RemainingTicks: e.RemainingTicks})
	}
	if err := playerdata.Save(s.conf.WorldDir, s.UUID, d); err != nil {
		s.log.Warn("player data save failed", "name", s.Name, "err", err)
	}
}

func stackFromData(it playerdata.Item) protocol.ItemStack {
	return protocol.ItemStack{
		RuntimeID:  it.RuntimeID,
		Count:      it.Count,
		Metadata:   it.Metadata,
		NBT:        it.NBT,
		CanPlaceOn: it.CanPlaceOn,
		CanDestroy: it.CanDestroy,
	}
}

func stackToData(it protocol.ItemStack) playerdata.Item {
	return playerdata.Item{
		RuntimeID:  it.RuntimeID,
		Count:      it.Count,
		Metadata:   it.Metadata,
		NBT:        it.NBT,
		CanPlaceOn: it.CanPlaceOn,
		CanDestroy: it.CanDestroy,
	}
}

func vec32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}
