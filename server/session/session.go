// Package session implements the per-player connection state machine: the
// login → resource pack → spawn → in-game flow, authoritative movement,
// mining and combat validation, inventory, survival mechanics and chunk
// streaming.
package session

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/sago-mc/bedrock/server/entity"
	"github.com/sago-mc/bedrock/server/plugin"
	"github.com/sago-mc/bedrock/server/protocol"
	"github.com/sago-mc/bedrock/server/protocol/packet"
	"github.com/sago-mc/bedrock/server/world"
)

// Stage is the login-flow position of a connection. Dead is an overlay
// tracked separately so a dead player stays in-game.
type Stage int

const (
	StageConnecting Stage = iota
	StageHandshakeDone
	StageLoginSent
	StageResourcePacks
	StageSpawning
	StageInGame
)

// Gamemodes.
const (
	GameModeSurvival int32 = iota
	GameModeCreative
	GameModeAdventure
)

// Effect ids the survival and combat paths evaluate.
const (
	EffectStrength   int32 = 5
	EffectWeakness   int32 = 18
	EffectResistance int32 = 11
)

// Effect is one active status effect.
type Effect struct {
	ID             int32
	Amplifier      int32
	RemainingTicks int32
}

// Inventory is the player's slot layout.
type Inventory struct {
	Main     [36]protocol.ItemStack
	Armor    [4]protocol.ItemStack
	Offhand  protocol.ItemStack
	HeldSlot byte
}

// Held returns the item in the selected hotbar slot.
func (inv *Inventory) Held() protocol.ItemStack { return inv.Main[inv.HeldSlot] }

// breakingBlock tracks an in-flight survival mining operation.
type breakingBlock struct {
	pos       protocol.BlockPos
	startTick uint64
	active    bool
}

// Config wires a Session into the server. Send, Broadcast, Disconnect and
// the player lookups are provided by the server's connection table.
type Config struct {
	Log     *slog.Logger
	World   *world.World
	Mobs    *entity.Store
	Plugins *plugin.Manager

	RuntimeID uint64
	Gamemode  int32
	WorldDir  string

	Send       func(pks ...packet.Packet)
	Broadcast  func(pks ...packet.Packet)
	Disconnect func(reason string)
	FindPlayer func(runtimeID uint64) *Session
}

// Session is one player's connection and all of their live state.
type Session struct {
	conf Config
	log  *slog.Logger

	stage Stage
	dead  bool

	// Identity, parsed (not verified) from the login JWT chain.
	Name string
	UUID uuid.UUID
	XUID string

	runtimeID uint64
	gamemode  int32

	Pos        mgl64.Vec3
	Yaw, Pitch float64
	onGround   bool
	sprinting  bool
	swimming   bool

	health     float64
	food       int32
	saturation float64
	exhaustion float64
	airTicks   int32
	fireTicks  int32

	fallDistance float64
	airborneTicks int32

	lastDamageTick uint64
	xpLevel        int32
	xpTotal        int32

	inv     Inventory
	effects []Effect

	pendingForms map[uint32]string

	breaking breakingBlock

	chunkRadius    int32
	sentChunks     map[world.ChunkPos]struct{}
	streamedAround world.ChunkPos

	currentTick uint64
}

// New constructs a Session in the handshake-done stage, ready for Login.
func New(conf Config) *Session {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Send == nil {
		conf.Send = func(...packet.Packet) {}
	}
	if conf.Broadcast == nil {
		conf.Broadcast = conf.Send
	}
	if conf.Disconnect == nil {
		conf.Disconnect = func(string) {}
	}
	s := &Session{
		conf:         conf,
		log:          conf.Log,
		stage:        StageHandshakeDone,
		runtimeID:    conf.RuntimeID,
		gamemode:     conf.Gamemode,
		health:       20,
		food:         20,
		saturation:   5,
		airTicks:     300,
		chunkRadius:  8,
		sentChunks:   make(map[world.ChunkPos]struct{}),
		pendingForms: make(map[uint32]string),
	}
	return s
}

// Stage returns the connection's login stage.
func (s *Session) Stage() Stage { return s.stage }

// Dead reports whether the death overlay is active.
func (s *Session) Dead() bool { return s.dead }

// RuntimeID returns the player's entity runtime ID.
func (s *Session) RuntimeID() uint64 { return s.runtimeID }

// Health returns the player's current health.
func (s *Session) Health() float64 { return s.health }

// Gamemode returns the player's gamemode.
func (s *Session) Gamemode() int32 { return s.gamemode }

// InGame reports whether the player finished spawning.
func (s *Session) InGame() bool { return s.stage == StageInGame }

// HeldItem returns the item in the selected hotbar slot.
func (s *Session) HeldItem() protocol.ItemStack { return s.inv.Held() }

// send queues packets to this session's client.
func (s *Session) send(pks ...packet.Packet) { s.conf.Send(pks...) }

// broadcast queues packets to every in-game client.
func (s *Session) broadcast(pks ...packet.Packet) { s.conf.Broadcast(pks...) }

// HandlePacket routes one decoded game packet. Unknown packets and packet
// types with no handler are dropped with a debug log; a handler silently
// ignores a packet that arrives in the wrong stage. Neither disconnects.
func (s *Session) HandlePacket(pk packet.Packet, tick uint64) {
	s.currentTick = tick
	switch p := pk.(type) {
	case *packet.Login:
		s.handleLogin(p)
	case *packet.ResourcePackClientResponse:
		s.handlePackResponse(p)
	case *packet.RequestChunkRadius:
		s.handleChunkRadius(p)
	case *packet.SetLocalPlayerAsInitialized:
		s.handleInitialized(p)
	case *packet.PlayerAuthInput:
		s.handleAuthInput(p)
	case *packet.StartBreak:
		s.handleStartBreak(p)
	case *packet.BreakBlock:
		s.handleBreakBlock(p)
	case *packet.InventoryTransaction:
		s.handleTransaction(p)
	case *packet.MobEquipment:
		s.handleMobEquipment(p)
	case *packet.ItemStackRequest:
		s.handleItemStackRequest(p)
	case *packet.Text:
		s.handleText(p)
	case *packet.Respawn:
		s.handleRespawn(p)
	case *packet.Unknown:
		s.log.Debug("unknown packet id skipped", "player", s.Name, "id", p.PacketID)
	default:
		s.log.Debug("packet ignored for stage", "player", s.Name, "type", pk.ID(), "stage", s.stage)
	}
}

// handleMobEquipment tracks the selected hotbar slot.
func (s *Session) handleMobEquipment(p *packet.MobEquipment) {
	if p.Slot < 36 {
		s.inv.HeldSlot = p.Slot
	}
}

// handleText relays chat from an in-game player to everyone.
func (s *Session) handleText(p *packet.Text) {
	if s.stage != StageInGame {
		return
	}
	s.broadcast(&packet.Text{TextType: p.TextType, Source: s.Name, Message: p.Message})
}

// handleItemStackRequest applies the request's slot moves against the
// authoritative inventory. A move from an empty or short slot rejects the
// whole request; the client then resyncs from InventoryContent.
func (s *Session) handleItemStackRequest(p *packet.ItemStackRequest) {
	before := s.inv.Main
	for _, a := range p.Actions {
		if int(a.SourceSlot) >= len(s.inv.Main) || int(a.DestSlot) >= len(s.inv.Main) {
			s.inv.Main = before
			s.rejectStackRequest(p.RequestID)
			return
		}
		src := s.inv.Main[a.SourceSlot]
		if src.RuntimeID == 0 || src.Count < uint16(a.Count) {
			s.inv.Main = before
			s.rejectStackRequest(p.RequestID)
			return
		}
		dst := s.inv.Main[a.DestSlot]
		switch {
		case dst.RuntimeID == 0:
			moved := src
			moved.Count = uint16(a.Count)
			s.inv.Main[a.DestSlot] = moved
		case dst.RuntimeID == src.RuntimeID && dst.Metadata == src.Metadata:
			s.inv.Main[a.DestSlot].Count += uint16(a.Count)
		default:
			s.inv.Main = before
			s.rejectStackRequest(p.RequestID)
			return
		}
		src.Count -= uint16(a.Count)
		if src.Count == 0 {
			src = protocol.ItemStack{}
		}
		s.inv.Main[a.SourceSlot] = src
	}
	s.send(&packet.ItemStackResponse{RequestID: p.RequestID, Status: packet.ItemStackResponseStatusOK})
}

func (s *Session) rejectStackRequest(id int32) {
	s.send(&packet.ItemStackResponse{RequestID: id, Status: packet.ItemStackResponseStatusError})
	s.sendInventory()
}

// Close tears the session's world presence down: persistence and the
// departure broadcast. Called by the server when the RakNet session dies
// or the player is kicked.
func (s *Session) Close() {
	if s.stage == StageInGame {
		s.savePlayerData()
		s.broadcast(&packet.RemoveEntity{RuntimeID: s.runtimeID})
		if s.conf.Plugins != nil {
			s.conf.Plugins.Dispatch(&plugin.PlayerQuit{Name: s.Name})
		}
	}
}
