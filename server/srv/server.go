package srv

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sago-mc/bedrock/server/block"
	"github.com/sago-mc/bedrock/server/entity"
	"github.com/sago-mc/bedrock/server/plugin"
	"github.com/sago-mc/bedrock/server/protocol"
	"github.com/sago-mc/bedrock/server/protocol/packet"
	"github.com/sago-mc/bedrock/server/raknet"
	"github.com/sago-mc/bedrock/server/session"
	"github.com/sago-mc/bedrock/server/world"
	"github.com/sago-mc/bedrock/server/world/storage"
)

// protocolVersion and versionName identify the game protocol in the MOTD.
const (
	protocolVersion = 800
	versionName     = "1.21.90"
)

// tickInterval is the fixed game tick period.
const tickInterval = 50 * time.Millisecond

// flushIntervalTicks is the dirty-chunk and player-data save cadence.
const flushIntervalTicks = 600 // 30 s

// Command is an instruction delivered over the server's MPSC command
// channel from external producers (CLI, plugins).
type Command any

// SendPayload transmits raw bytes to one session.
type SendPayload struct {
	Addr        string
	Bytes       []byte
	Reliability raknet.Reliability
	Channel     byte
}

// Say broadcasts a chat message to every player.
type Say struct {
	Message string
}

// SpawnMob spawns a mob at a position.
type SpawnMob struct {
	Type string
	Pos  mgl64.Vec3
}

// Stop shuts the server down.
type Stop struct{}

// playerConn ties a session to its transport address and pending outbound
// packets, batched per tick.
type playerConn struct {
	sess    *session.Session
	addr    net.Addr
	pending []packet.Packet
}

// Server is the assembled game server.
type Server struct {
	log  *slog.Logger
	conf Config

	listener *raknet.Listener
	prov     *storage.Provider
	world    *world.World
	mobs     *entity.Store
	plugins  *plugin.Manager

	pool packet.Pool

	conns     map[string]*playerConn
	byRuntime map[uint64]*playerConn
	nextID    uint64

	commands chan Command
}

// New builds a Server from configuration. Failure to bind the socket or
// open the world database is returned as an error the caller treats as
// fatal.
func New(conf Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	prov, err := storage.Open(conf.World.Directory, storage.Config{Log: log})
	if err != nil {
		return nil, err
	}
	level, err := storage.LoadLevelDat(conf.World.Directory)
	if err != nil {
		log.Warn("level.dat unreadable, continuing with defaults", "err", err)
	}
	if level.RainTime <= 0 {
		level.RainTime = 12000
	}
	w := world.New(world.Config{
		Log:                log,
		Provider:           prov,
		SimulationDistance: conf.World.SimulationDistance,
		Seed:               uint64(conf.World.Seed) | 1,
		Level:              level,
	})
	s := &Server{
		log:       log,
		conf:      conf,
		prov:      prov,
		world:     w,
		plugins:   plugin.NewManager(plugin.Config{Log: log}),
		pool:      packet.NewPool(),
		conns:     make(map[string]*playerConn),
		byRuntime: make(map[uint64]*playerConn),
		nextID:    1,
		commands:  make(chan Command, 256),
	}
	s.mobs = entity.NewStore(entity.Config{
		Log:   log,
		Seed:  uint64(conf.World.Seed) | 1,
		Floor: s.floorAt,
	})

	listener, err := raknet.Listen(conf.Server.Address, raknet.ListenerConfig{
		Log:            log,
		ServerGUID:     uint64(conf.World.Seed)*0x5DEECE66D + 0xB,
		StatusProvider: s.motd,
	})
	if err != nil {
		prov.Close()
		return nil, err
	}
	s.listener = listener
	return s, nil
}

// Plugins exposes the plugin manager for pre-Run plugin loading.
func (s *Server) Plugins() *plugin.Manager { return s.plugins }

// Commands returns the channel external producers push commands into.
func (s *Server) Commands() chan<- Command { return s.commands }

// motd builds the semicolon-delimited server list string.
func (s *Server) motd() string {
	return fmt.Sprintf("MCPE;%s;%d;%s;%d;%d;%d;%s;Survival;1;19132;19133;",
		s.conf.Server.MOTD, protocolVersion, versionName,
		len(s.conns), s.conf.Server.MaxPlayers,
		uint64(s.conf.World.Seed)*0x5DEECE66D+0xB, s.conf.Server.MOTDLine2)
}

// floorAt resolves the ground height for mob physics: one above the
// highest solid block at the column position, scanned downward from just
// above the flat terrain band.
func (s *Server) floorAt(x, z float64) float64 {
	bx, bz := int(math.Floor(x)), int(math.Floor(z))
	for y := 32; y >= -64; y-- {
		if block.Solid(s.world.Block(bx, y, bz)) {
			return float64(y + 1)
		}
	}
	return -64
}

// Run drives the server until ctx is cancelled: RakNet events, the 50 ms
// game tick and the command channel are multiplexed on this single
// goroutine, so every piece of game state is mutated from exactly one
// place.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("server listening", "addr", s.listener.Addr().String())
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case ev := <-s.listener.Events():
			s.handleListenerEvent(ev)
			s.flushOutbound()
		case <-ticker.C:
			s.tick()
			s.flushOutbound()
		case cmd := <-s.commands:
			if stop := s.handleCommand(cmd); stop {
				s.shutdown()
				return nil
			}
			s.flushOutbound()
		}
	}
}

func (s *Server) handleListenerEvent(ev raknet.Event) {
	switch ev.Kind {
	case raknet.EventSessionConnected:
		s.addConnection(ev.Addr)
	case raknet.EventSessionDisconnected:
		s.removeConnection(ev.Addr.String())
	case raknet.EventPayload:
		conn, ok := s.conns[ev.Addr.String()]
		if !ok {
			return
		}
		pks, err := packet.DecodeBatch(s.pool, ev.Payload)
		if err != nil {
			s.log.Debug("malformed game batch", "addr", ev.Addr.String(), "err", err)
		}
		for _, pk := range pks {
			conn.sess.HandlePacket(pk, s.world.CurrentTick())
		}
	}
}

func (s *Server) addConnection(addr net.Addr) {
	key := addr.String()
	if _, ok := s.conns[key]; ok {
		return
	}
	id := s.nextID
	s.nextID++
	conn := &playerConn{addr: addr}
	conn.sess = session.New(session.Config{
		Log:       s.log,
		World:     s.world,
		Mobs:      s.mobs,
		Plugins:   s.plugins,
		RuntimeID: id,
		Gamemode:  s.conf.Server.GameMode,
		WorldDir:  s.conf.World.Directory,
		Send: func(pks ...packet.Packet) {
			conn.pending = append(conn.pending, pks...)
		},
		Broadcast:  s.broadcast,
		Disconnect: func(reason string) { s.kick(key, reason) },
		FindPlayer: s.findPlayer,
	})
	s.conns[key] = conn
	s.byRuntime[id] = conn

	if s.countInGame() >= s.conf.Server.MaxPlayers {
		conn.pending = append(conn.pending, &packet.PlayStatus{Status: packet.PlayStatusLoginFailedServerFull})
		s.flushOutbound()
		s.kick(key, "server full")
	}
}

func (s *Server) removeConnection(key string) {
	conn, ok := s.conns[key]
	if !ok {
		return
	}
	conn.sess.Close()
	delete(s.byRuntime, conn.sess.RuntimeID())
	delete(s.conns, key)
}

func (s *Server) kick(key, reason string) {
	conn, ok := s.conns[key]
	if !ok {
		return
	}
	conn.pending = append(conn.pending, &packet.Disconnect{Message: reason})
	s.flushOutbound()
	s.removeConnection(key)
	s.listener.Disconnect(conn.addr)
}

func (s *Server) findPlayer(runtimeID uint64) *session.Session {
	if conn, ok := s.byRuntime[runtimeID]; ok {
		return conn.sess
	}
	return nil
}

func (s *Server) countInGame() int {
	n := 0
	for _, conn := range s.conns {
		if conn.sess.InGame() {
			n++
		}
	}
	return n
}

// broadcast queues packets for every in-game player.
func (s *Server) broadcast(pks ...packet.Packet) {
	for _, conn := range s.conns {
		if conn.sess.InGame() {
			conn.pending = append(conn.pending, pks...)
		}
	}
}

// flushOutbound encodes each connection's pending packets into one
// 0xFE batch and hands it to the transport as a ReliableOrdered payload.
func (s *Server) flushOutbound() {
	for _, conn := range s.conns {
		if len(conn.pending) == 0 {
			continue
		}
		payload := packet.EncodeBatch(conn.pending)
		conn.pending = conn.pending[:0]
		s.listener.Send(conn.addr, payload, raknet.ReliableOrdered, 0)
	}
}

// tick advances the whole game one 50 ms step.
func (s *Server) tick() {
	tick := s.world.CurrentTick() + 1

	s.plugins.TickTasks(tick)

	playerChunks := make([]world.ChunkPos, 0, len(s.conns))
	playerInfos := make([]entity.PlayerInfo, 0, len(s.conns))
	for _, conn := range s.conns {
		if !conn.sess.InGame() {
			continue
		}
		pos := conn.sess.Pos
		playerChunks = append(playerChunks, world.ChunkPos{X: int32(int(pos[0]) >> 4), Z: int32(int(pos[2]) >> 4)})
		playerInfos = append(playerInfos, entity.PlayerInfo{
			RuntimeID: conn.sess.RuntimeID(),
			Pos:       pos,
			HeldItem:  heldRuntimeID(conn.sess),
		})
	}

	out := s.world.Tick(playerChunks)
	for _, u := range out.Updates {
		s.broadcast(&packet.UpdateBlock{
			Position:       protocol.BlockPos{int32(u.X), int32(u.Y), int32(u.Z)},
			BlockRuntimeID: u.Hash,
		})
	}
	if out.WeatherChanged {
		ev := &plugin.WeatherChange{Raining: out.Raining}
		s.plugins.Dispatch(ev)
		if !ev.Cancelled() {
			id := packet.LevelEventStopRaining
			if out.Raining {
				id = packet.LevelEventStartRaining
			}
			s.broadcast(&packet.LevelEvent{EventID: id, Data: 65535})
		}
	}

	s.mobs.Tick(tick, playerInfos)
	for _, ev := range s.mobs.DrainEvents() {
		s.handleMobEvent(ev, tick)
	}

	for _, conn := range s.conns {
		conn.sess.Tick(tick)
	}

	s.drainPluginActions()

	if tick%flushIntervalTicks == 0 {
		s.flush()
	}
}

func heldRuntimeID(sess *session.Session) int32 {
	return sess.HeldItem().RuntimeID
}

// handleMobEvent converts one entity store event into packets and player
// state changes.
func (s *Server) handleMobEvent(ev entity.Event, tick uint64) {
	switch e := ev.(type) {
	case entity.MobSpawned:
		s.broadcast(&packet.AddEntity{
			RuntimeID:  uint64(e.ID),
			EntityType: e.Type,
			Position:   vec32(e.Pos),
		})
	case entity.MobDespawned:
		s.broadcast(&packet.RemoveEntity{RuntimeID: uint64(e.ID)})
	case entity.MobMoved:
		s.broadcast(&packet.MoveEntity{
			RuntimeID: uint64(e.ID),
			Position:  vec32(e.Pos),
			Yaw:       float32(e.Yaw),
			HeadYaw:   float32(e.HeadYaw),
			OnGround:  e.OnGround,
		})
	case entity.MobHurt:
		s.broadcast(&packet.EntityEvent{RuntimeID: uint64(e.ID), EventType: packet.EntityEventHurt})
	case entity.MobDied:
		s.broadcast(&packet.EntityEvent{RuntimeID: uint64(e.ID), EventType: packet.EntityEventDeath})
		mobType := ""
		if m, ok := s.mobs.Mob(e.ID); ok {
			mobType = m.Type
		}
		s.plugins.Dispatch(&plugin.MobDeath{RuntimeID: uint64(e.ID), Type: mobType})
	case entity.MobAttackPlayer:
		if conn, ok := s.byRuntime[e.PlayerRuntime]; ok {
			conn.sess.HurtByMob(e.Damage, e.Knockback, tick)
			s.broadcast(&packet.SetEntityMotion{RuntimeID: e.PlayerRuntime, Motion: vec32(e.Knockback)})
		}
	}
}

// drainPluginActions applies the intents plugins recorded during event
// dispatch this tick.
func (s *Server) drainPluginActions() {
	for _, action := range s.plugins.DrainActions() {
		switch a := action.(type) {
		case plugin.SendMessage:
			if a.Player == "" {
				s.broadcast(&packet.Text{Message: a.Message})
				continue
			}
			if sess := s.sessionByName(a.Player); sess != nil {
				sess.SendMessage(a.Message)
			}
		case plugin.Kick:
			for key, conn := range s.conns {
				if conn.sess.Name == a.Player {
					s.kick(key, a.Reason)
					break
				}
			}
		case plugin.Teleport:
			if sess := s.sessionByName(a.Player); sess != nil {
				sess.Teleport(a.Pos)
			}
		}
	}
}

func (s *Server) sessionByName(name string) *session.Session {
	for _, conn := range s.conns {
		if conn.sess.Name == name {
			return conn.sess
		}
	}
	return nil
}

// handleCommand executes one control-plane command; it reports whether
// the server should stop.
func (s *Server) handleCommand(cmd Command) bool {
	switch c := cmd.(type) {
	case SendPayload:
		if conn, ok := s.conns[c.Addr]; ok {
			s.listener.Send(conn.addr, c.Bytes, c.Reliability, c.Channel)
		}
	case Say:
		s.broadcast(&packet.Text{Message: c.Message})
	case SpawnMob:
		ev := &plugin.MobSpawn{Type: c.Type, Pos: c.Pos}
		s.plugins.Dispatch(ev)
		if !ev.Cancelled() {
			s.mobs.Spawn(c.Type, c.Pos)
			for _, mev := range s.mobs.DrainEvents() {
				s.handleMobEvent(mev, s.world.CurrentTick())
			}
		}
	case Stop:
		return true
	}
	return false
}

// shutdown finishes the in-flight tick's bookkeeping: every session is
// notified and saved, dirty chunks flush, and the database closes.
func (s *Server) shutdown() {
	s.log.Info("shutting down")
	for key := range s.conns {
		s.kick(key, "server closed")
	}
	s.plugins.Close()
	s.flush()
	s.listener.Close()
	if err := s.prov.Close(); err != nil {
		s.log.Warn("database close failed", "err", err)
	}
}

// flush persists dirty chunks, the level metadata and online player data.
func (s *Server) flush() {
	s.world.Flush()
	if err := storage.SaveLevelDat(s.conf.World.Directory, s.world.Level()); err != nil {
		s.log.Warn("level.dat save failed", "err", err)
	}
	for _, conn := range s.conns {
		conn.sess.Save()
	}
}

func vec32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}
