package session

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sago-mc/bedrock/server/block"
	"github.com/sago-mc/bedrock/server/entity"
	"github.com/sago-mc/bedrock/server/item"
	"github.com/sago-mc/bedrock/server/protocol"
	"github.com/sago-mc/bedrock/server/protocol/packet"
	"github.com/sago-mc/bedrock/server/world"
	"github.com/sago-mc/bedrock/server/world/storage"
)

// capture accumulates the packets a test session emitted.
type capture struct {
	sent      []packet.Packet
	broadcast []packet.Packet
}

func (c *capture) reset() { c.sent = nil; c.broadcast = nil }

func (c *capture) find(id uint32) packet.Packet {
	for _, pk := range append(append([]packet.Packet{}, c.sent...), c.broadcast...) {
		if pk.ID() == id {
			return pk
		}
	}
	return nil
}

func testSetup(runtimeID uint64) (*Session, *capture, *world.World) {
	w := world.New(world.Config{Seed: 1, Level: storage.LevelData{SpawnY: 5, RainTime: 1 << 30}})
	c := &capture{}
	s := New(Config{
		World:     w,
		RuntimeID: runtimeID,
		Gamemode:  GameModeSurvival,
		Send:      func(pks ...packet.Packet) { c.sent = append(c.sent, pks...) },
		Broadcast: func(pks ...packet.Packet) { c.broadcast = append(c.broadcast, pks...) },
	})
	return s, c, w
}

// forgeLogin builds an unsigned JWT chain carrying the identity given.
func forgeLogin(name, id, xuid string) string {
	payload, _ := json.Marshal(map[string]any{
		"extraData": map[string]any{
			"displayName": name,
			"identity":    id,
			"XUID":        xuid,
		},
	})
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"ES384"}`))
	body := base64.RawURLEncoding.EncodeToString(payload)
	jwt := header + "." + body + ".c2ln"
	chain, _ := json.Marshal(map[string]any{"chain": []string{jwt}})
	return string(chain)
}

// loginToSpawn walks a session through the whole login flow.
func loginToSpawn(t *testing.T, s *Session, c *capture) {
	t.Helper()
	s.HandlePacket(&packet.Login{ClientProtocol: 800, ConnectionRequest: forgeLogin("Alice", "11111111-1111-1111-1111-111111111111", "123")}, 0)
	if c.find(packet.IDPlayStatus) == nil {
		t.Fatal("no PlayStatus after login")
	}
	s.HandlePacket(&packet.ResourcePackClientResponse{Status: packet.PackResponseAllPacksDownloaded}, 0)
	s.HandlePacket(&packet.ResourcePackClientResponse{Status: packet.PackResponseCompleted}, 0)
	if c.find(packet.IDStartGame) == nil {
		t.Fatal("no StartGame after pack negotiation")
	}
	s.HandlePacket(&packet.RequestChunkRadius{Radius: 4}, 0)
	s.HandlePacket(&packet.SetLocalPlayerAsInitialized{RuntimeID: s.RuntimeID()}, 0)
	if !s.InGame() {
		t.Fatalf("stage = %v after initialization, want in-game", s.Stage())
	}
}

func TestLoginToSpawnSequence(t *testing.T) {
	s, c, _ := testSetup(1)

	s.HandlePacket(&packet.Login{ClientProtocol: 800, ConnectionRequest: forgeLogin("Alice", "11111111-1111-1111-1111-111111111111", "123")}, 0)
	if s.Name != "Alice" {
		t.Fatalf("name = %q", s.Name)
	}
	if s.UUID.String() != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("uuid = %s", s.UUID)
	}
	status, ok := c.find(packet.IDPlayStatus).(*packet.PlayStatus)
	if !ok || status.Status != packet.PlayStatusLoginSuccess {
		t.Fatal("first PlayStatus is not LoginSuccess")
	}

	s.HandlePacket(&packet.ResourcePackClientResponse{Status: packet.PackResponseAllPacksDownloaded}, 0)
	if c.find(packet.IDResourcePacksStack) == nil {
		t.Fatal("no ResourcePacksStack")
	}
	s.HandlePacket(&packet.ResourcePackClientResponse{Status: packet.PackResponseCompleted}, 0)
	for _, id := range []uint32{packet.IDStartGame, packet.IDBiomeDefinitionList, packet.IDCreativeContent, packet.IDCraftingData, packet.IDAvailableCommands, packet.IDBlockPalette} {
		if c.find(id) == nil {
			t.Fatalf("missing bootstrap packet id %d", id)
		}
	}

	c.reset()
	s.HandlePacket(&packet.RequestChunkRadius{Radius: 4}, 0)
	if c.find(packet.IDChunkRadiusUpdated) == nil {
		t.Fatal("no ChunkRadiusUpdated")
	}
	var chunkForOrigin bool
	for _, pk := range c.sent {
		if lc, ok := pk.(*packet.LevelChunk); ok && lc.ChunkX == 0 && lc.ChunkZ == 0 {
			chunkForOrigin = true
		}
	}
	if !chunkForOrigin {
		t.Fatal("no LevelChunk for (0,0)")
	}
	spawn, ok := c.find(packet.IDPlayStatus).(*packet.PlayStatus)
	if !ok || spawn.Status != packet.PlayStatusPlayerSpawn {
		t.Fatal("no PlayStatus(PlayerSpawn)")
	}
	if c.find(packet.IDInventoryContent) == nil {
		t.Fatal("no inventory after spawn")
	}

	s.HandlePacket(&packet.SetLocalPlayerAsInitialized{RuntimeID: 1}, 0)
	if !s.InGame() {
		t.Fatal("player not in-game after SetLocalPlayerAsInitialized")
	}
}

func TestMovementCorrection(t *testing.T) {
	s, c, _ := testSetup(1)
	loginToSpawn(t, s, c)
	c.reset()

	before := s.Pos
	s.HandlePacket(&packet.PlayerAuthInput{
		Position: [3]float32{float32(before[0] + 5), float32(before[1] + playerEyeOffset), float32(before[2])},
	}, 10)

	if s.Pos != before {
		t.Fatalf("position mutated on invalid move: %v → %v", before, s.Pos)
	}
	mv, ok := c.find(packet.IDMovePlayer).(*packet.MovePlayer)
	if !ok {
		t.Fatal("no MovePlayer correction")
	}
	if mv.Mode != MoveModeTeleport {
		t.Fatalf("correction mode = %d, want teleport", mv.Mode)
	}
	if mv.Position != vec32(mgl64.Vec3{before[0], before[1] + playerEyeOffset, before[2]}) {
		t.Fatalf("correction carries %v, want the server position", mv.Position)
	}
}

func TestValidMovementCommits(t *testing.T) {
	s, c, _ := testSetup(1)
	loginToSpawn(t, s, c)
	c.reset()

	to := s.Pos.Add(mgl64.Vec3{0.5, 0, 0})
	s.HandlePacket(&packet.PlayerAuthInput{
		Position: [3]float32{float32(to[0]), float32(to[1] + playerEyeOffset), float32(to[2])},
	}, 10)
	if s.Pos.Sub(to).Len() > 1e-5 {
		t.Fatalf("valid move not applied: %v", s.Pos)
	}
	mv, ok := c.find(packet.IDMovePlayer).(*packet.MovePlayer)
	if !ok || mv.Mode != MoveModeNormal {
		t.Fatal("valid move not broadcast normally")
	}
}

func TestNonFiniteMovementRejected(t *testing.T) {
	s, c, _ := testSetup(1)
	loginToSpawn(t, s, c)
	c.reset()

	nan := float32(0)
	nan /= nan
	before := s.Pos
	s.HandlePacket(&packet.PlayerAuthInput{Position: [3]float32{nan, 70, 0}}, 10)
	if s.Pos != before {
		t.Fatal("NaN position mutated state")
	}
	if c.find(packet.IDMovePlayer) == nil {
		t.Fatal("no correction for NaN position")
	}
}

func TestBreakBlockValidation(t *testing.T) {
	s, c, w := testSetup(1)
	loginToSpawn(t, s, c)
	s.inv.Main[0] = protocol.ItemStack{RuntimeID: item.WoodenShovel, Count: 1}
	s.inv.HeldSlot = 0
	pos := protocol.BlockPos{0, 4, 0}

	// Too fast: grass with a wooden shovel wants 0.6*1.5*20/2 = 9 ticks;
	// 80% is 7.2, so breaking after 2 ticks is rejected.
	c.reset()
	s.HandlePacket(&packet.StartBreak{Position: pos}, 100)
	s.HandlePacket(&packet.BreakBlock{Position: pos}, 102)
	if w.Block(0, 4, 0) != block.GrassBlock {
		t.Fatal("too-fast break mutated the world")
	}
	ub, ok := c.find(packet.IDUpdateBlock).(*packet.UpdateBlock)
	if !ok || ub.BlockRuntimeID != block.GrassBlock {
		t.Fatal("rejection did not resend the authoritative block")
	}

	// Break without StartBreak: rejected.
	c.reset()
	s.HandlePacket(&packet.BreakBlock{Position: pos}, 150)
	if w.Block(0, 4, 0) != block.GrassBlock {
		t.Fatal("break without StartBreak mutated the world")
	}

	// Waiting 12 ticks (0.6 s) satisfies the 80% bound.
	c.reset()
	s.HandlePacket(&packet.StartBreak{Position: pos}, 200)
	s.HandlePacket(&packet.BreakBlock{Position: pos}, 212)
	if w.Block(0, 4, 0) != block.Air {
		t.Fatal("valid break did not apply")
	}
	if c.find(packet.IDLevelEvent) == nil {
		t.Fatal("no destroy LevelEvent broadcast")
	}
	found := false
	for _, pk := range c.broadcast {
		if u, ok := pk.(*packet.UpdateBlock); ok && u.BlockRuntimeID == block.Air {
			found = true
		}
	}
	if !found {
		t.Fatal("no UpdateBlock(air) broadcast")
	}
}

func TestUnbreakableBlockRejected(t *testing.T) {
	s, c, w := testSetup(1)
	loginToSpawn(t, s, c)
	pos := protocol.BlockPos{0, -64, 0}
	s.HandlePacket(&packet.StartBreak{Position: pos}, 100)
	s.HandlePacket(&packet.BreakBlock{Position: pos}, 5000)
	if w.Block(0, -64, 0) != block.Bedrock {
		t.Fatal("bedrock broke")
	}
}

func TestEfficiencyShortensBreakTime(t *testing.T) {
	s, _, _ := testSetup(1)
	s.inv.Main[0] = protocol.ItemStack{
		RuntimeID: item.WoodenShovel, Count: 1,
		NBT: map[string]any{"ench": []any{map[string]any{"id": item.EnchantEfficiency, "lvl": int32(2)}}},
	}
	s.inv.HeldSlot = 0
	base := 0.6 * 1.5 * 20 / 2.0
	want := base / 5 // 1 + 2²
	if got := s.expectedBreakTicks(0.6); got != want {
		t.Fatalf("expected break ticks = %v, want %v", got, want)
	}
}

// pvpSetup builds Alice and Bob sharing one world with mutual lookup.
func pvpSetup(t *testing.T) (alice, bob *Session, ca, cb *capture) {
	t.Helper()
	w := world.New(world.Config{Seed: 1, Level: storage.LevelData{SpawnY: 5, RainTime: 1 << 30}})
	ca, cb = &capture{}, &capture{}
	sessions := map[uint64]*Session{}
	find := func(id uint64) *Session { return sessions[id] }
	alice = New(Config{
		World: w, RuntimeID: 1, Gamemode: GameModeSurvival,
		Send:       func(pks ...packet.Packet) { ca.sent = append(ca.sent, pks...) },
		Broadcast:  func(pks ...packet.Packet) { ca.broadcast = append(ca.broadcast, pks...) },
		FindPlayer: find,
	})
	bob = New(Config{
		World: w, RuntimeID: 2, Gamemode: GameModeSurvival,
		Send:       func(pks ...packet.Packet) { cb.sent = append(cb.sent, pks...) },
		Broadcast:  func(pks ...packet.Packet) { cb.broadcast = append(cb.broadcast, pks...) },
		FindPlayer: find,
	})
	sessions[1], sessions[2] = alice, bob
	loginToSpawn(t, alice, ca)

	cbLogin := forgeLogin("Bob", "22222222-2222-2222-2222-222222222222", "456")
	bob.HandlePacket(&packet.Login{ClientProtocol: 800, ConnectionRequest: cbLogin}, 0)
	bob.HandlePacket(&packet.ResourcePackClientResponse{Status: packet.PackResponseAllPacksDownloaded}, 0)
	bob.HandlePacket(&packet.ResourcePackClientResponse{Status: packet.PackResponseCompleted}, 0)
	bob.HandlePacket(&packet.RequestChunkRadius{Radius: 4}, 0)
	bob.HandlePacket(&packet.SetLocalPlayerAsInitialized{RuntimeID: 2}, 0)

	alice.Pos = mgl64.Vec3{0, 5, 0}
	bob.Pos = mgl64.Vec3{1.5, 5, 0}
	return alice, bob, ca, cb
}

func TestMeleePvP(t *testing.T) {
	alice, bob, ca, cb := pvpSetup(t)
	alice.inv.Main[0] = protocol.ItemStack{RuntimeID: item.IronSword, Count: 1}
	alice.inv.HeldSlot = 0
	alice.onGround = true
	ca.reset()
	cb.reset()

	alice.HandlePacket(&packet.InventoryTransaction{
		TransactionType: packet.TransactionTypeUseItemOnEntity,
		TargetRuntimeID: 2,
		Action:          packet.UseItemOnEntityActionAttack,
	}, 100)

	if bob.Health() != 14 {
		t.Fatalf("bob health = %v, want 14 (iron sword base 6)", bob.Health())
	}
	motion, ok := ca.find(packet.IDSetEntityMotion).(*packet.SetEntityMotion)
	if !ok {
		t.Fatal("no knockback motion broadcast")
	}
	if diff := motion.Motion[0] - 0.4; diff < -0.01 || diff > 0.01 {
		t.Fatalf("horizontal knockback = %v, want ≈0.4", motion.Motion[0])
	}
	if motion.Motion[1] != 0.4 {
		t.Fatalf("vertical knockback = %v, want 0.4", motion.Motion[1])
	}
	ev, ok := ca.find(packet.IDEntityEvent).(*packet.EntityEvent)
	if !ok || ev.EventType != packet.EntityEventHurt {
		t.Fatal("no EntityEvent(Hurt) broadcast")
	}
}

func TestPvPInvulnerabilityFrames(t *testing.T) {
	alice, bob, _, _ := pvpSetup(t)
	alice.inv.Main[0] = protocol.ItemStack{RuntimeID: item.IronSword, Count: 1}
	alice.inv.HeldSlot = 0

	hit := func(tick uint64) {
		alice.HandlePacket(&packet.InventoryTransaction{
			TransactionType: packet.TransactionTypeUseItemOnEntity,
			TargetRuntimeID: 2,
			Action:          packet.UseItemOnEntityActionAttack,
		}, tick)
	}
	hit(100)
	hit(105) // absorbed
	if bob.Health() != 14 {
		t.Fatalf("health after hit inside the window = %v, want 14", bob.Health())
	}
	hit(111)
	if bob.Health() != 8 {
		t.Fatalf("health after the window = %v, want 8", bob.Health())
	}
}

func TestSharpnessAndArmor(t *testing.T) {
	alice, bob, _, _ := pvpSetup(t)
	alice.inv.Main[0] = protocol.ItemStack{
		RuntimeID: item.IronSword, Count: 1,
		NBT: map[string]any{"ench": []any{map[string]any{"id": item.EnchantSharpness, "lvl": int32(2)}}},
	}
	alice.inv.HeldSlot = 0
	bob.inv.Armor[1] = protocol.ItemStack{RuntimeID: item.IronChestplate, Count: 1}

	alice.HandlePacket(&packet.InventoryTransaction{
		TransactionType: packet.TransactionTypeUseItemOnEntity,
		TargetRuntimeID: 2,
		Action:          packet.UseItemOnEntityActionAttack,
	}, 100)

	// 6 + 1.25*2 = 8.5, iron chestplate 6 defense → ×0.76 = 6.46.
	want := (6 + 2.5) * (1 - 6*0.04)
	if got := 20 - bob.Health(); !almost(got, want) {
		t.Fatalf("damage dealt = %v, want %v", got, want)
	}
}

func almost(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestDeathFreezesUntilRespawn(t *testing.T) {
	alice, bob, _, cb := pvpSetup(t)
	alice.inv.Main[0] = protocol.ItemStack{RuntimeID: item.DiamondSword, Count: 1}
	alice.inv.HeldSlot = 0

	tick := uint64(100)
	for !bob.Dead() {
		alice.HandlePacket(&packet.InventoryTransaction{
			TransactionType: packet.TransactionTypeUseItemOnEntity,
			TargetRuntimeID: 2,
			Action:          packet.UseItemOnEntityActionAttack,
		}, tick)
		tick += 11
		if tick > 1000 {
			t.Fatal("bob never died")
		}
	}

	frozen := bob.Pos
	bob.HandlePacket(&packet.PlayerAuthInput{Position: [3]float32{10, 7, 10}}, tick)
	if bob.Pos != frozen {
		t.Fatal("dead player's position moved")
	}

	cb.reset()
	bob.HandlePacket(&packet.Respawn{State: packet.RespawnClientReady}, tick+1)
	if bob.Dead() {
		t.Fatal("respawn did not clear the death overlay")
	}
	if bob.Health() != 20 {
		t.Fatalf("respawned health = %v", bob.Health())
	}
}

func TestMobCombatFromSession(t *testing.T) {
	s, c, _ := testSetup(1)
	mobs := entity.NewStore(entity.Config{Seed: 3})
	s.conf.Mobs = mobs
	loginToSpawn(t, s, c)
	s.Pos = mgl64.Vec3{0, 5, 0}

	id := mobs.Spawn("minecraft:zombie", mgl64.Vec3{1, 5, 0})
	m, _ := mobs.Mob(id)
	start := m.Stats.Health

	s.inv.Main[0] = protocol.ItemStack{RuntimeID: item.IronSword, Count: 1}
	s.inv.HeldSlot = 0
	s.HandlePacket(&packet.InventoryTransaction{
		TransactionType: packet.TransactionTypeUseItemOnEntity,
		TargetRuntimeID: uint64(id),
		Action:          packet.UseItemOnEntityActionAttack,
	}, 100)

	if m.Stats.Health != start-6 {
		t.Fatalf("zombie health = %v, want %v", m.Stats.Health, start-6)
	}
}

func TestChatRelay(t *testing.T) {
	s, c, _ := testSetup(1)
	loginToSpawn(t, s, c)
	c.reset()
	s.HandlePacket(&packet.Text{Message: "hello world"}, 10)
	txt, ok := c.find(packet.IDText).(*packet.Text)
	if !ok || txt.Source != "Alice" || txt.Message != "hello world" {
		t.Fatalf("chat relay = %#v", txt)
	}
}

func TestHungerDrain(t *testing.T) {
	s, c, _ := testSetup(1)
	loginToSpawn(t, s, c)
	s.saturation = 0
	s.addExhaustion(4.2)
	s.Tick(100)
	if s.food != 19 {
		t.Fatalf("food = %d after crossing the exhaustion threshold, want 19", s.food)
	}
	if s.exhaustion >= exhaustionThreshold {
		t.Fatal("exhaustion not consumed")
	}
}
