package entity

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sago-mc/bedrock/server/item"
)

func testStore() *Store {
	return NewStore(Config{Seed: 7, Floor: func(x, z float64) float64 { return 5 }})
}

func TestInvulnerabilityFrames(t *testing.T) {
	s := testStore()
	id := s.Spawn("minecraft:zombie", mgl64.Vec3{0, 5, 0})
	m, _ := s.Mob(id)
	start := m.Stats.Health

	if got := s.DamageMob(id, 4, 100, 0); got != DamageApplied {
		t.Fatalf("first hit = %v, want applied", got)
	}
	if got := s.DamageMob(id, 4, 105, 0); got != DamageAbsorbed {
		t.Fatalf("hit inside the window = %v, want absorbed", got)
	}
	if m.Stats.Health != start-4 {
		t.Fatalf("health = %v, want %v", m.Stats.Health, start-4)
	}
	if got := s.DamageMob(id, 4, 110, 0); got != DamageApplied {
		t.Fatalf("hit after the window = %v, want applied", got)
	}
	if m.Stats.Health != start-8 {
		t.Fatalf("health = %v, want %v", m.Stats.Health, start-8)
	}
}

func TestLethalDamageMarksAndDespawns(t *testing.T) {
	s := testStore()
	id := s.Spawn("minecraft:chicken", mgl64.Vec3{0, 5, 0})
	if got := s.DamageMob(id, 100, 50, 0); got != DamageKilled {
		t.Fatalf("lethal hit = %v, want killed", got)
	}
	died := false
	for _, ev := range s.DrainEvents() {
		if _, ok := ev.(MobDied); ok {
			died = true
		}
	}
	if !died {
		t.Fatal("no MobDied event")
	}
	s.Tick(51, []PlayerInfo{{RuntimeID: 1, Pos: mgl64.Vec3{0, 5, 0}}})
	if _, ok := s.Mob(id); ok {
		t.Fatal("dead mob survived the cleanup phase")
	}
}

func TestGravityAndFloorCollision(t *testing.T) {
	s := testStore()
	id := s.Spawn("minecraft:cow", mgl64.Vec3{0, 10, 0})
	for i := uint64(1); i < 100; i++ {
		s.Tick(i, nil)
	}
	m, ok := s.Mob(id)
	if !ok {
		t.Fatal("mob despawned with no players to measure against")
	}
	if m.Transform.Pos[1] != 5 {
		t.Fatalf("mob rests at y=%v, want 5", m.Transform.Pos[1])
	}
	if !m.Transform.OnGround {
		t.Fatal("grounded mob not flagged on-ground")
	}
}

func TestHostileAcquiresAndDropsTarget(t *testing.T) {
	s := testStore()
	id := s.Spawn("minecraft:zombie", mgl64.Vec3{0, 5, 0})

	player := PlayerInfo{RuntimeID: 9, Pos: mgl64.Vec3{4, 5, 0}}
	s.Tick(1, []PlayerInfo{player})
	m, _ := s.Mob(id)
	if m.Combat.Target != 9 {
		t.Fatalf("target = %d, want 9", m.Combat.Target)
	}

	// With the target resolved on the next tick, the zombie chases:
	// velocity points toward the player.
	s.Tick(2, []PlayerInfo{player})
	if m.Transform.Vel[0] <= 0 {
		t.Fatalf("zombie not chasing: vx = %v", m.Transform.Vel[0])
	}

	// Player teleports beyond the 2× drop range: target released.
	player.Pos = mgl64.Vec3{50, 5, 0}
	s.Tick(2, []PlayerInfo{player})
	s.Tick(3, []PlayerInfo{player})
	if m.Combat.Target == 9 {
		t.Fatal("target survived past the drop range")
	}
}

func TestMeleeAttackEmitsKnockback(t *testing.T) {
	s := testStore()
	s.Spawn("minecraft:zombie", mgl64.Vec3{0, 5, 0})
	player := PlayerInfo{RuntimeID: 3, Pos: mgl64.Vec3{1, 5, 0}}

	var attack *MobAttackPlayer
	for i := uint64(1); i < 40 && attack == nil; i++ {
		s.Tick(i, []PlayerInfo{player})
		for _, ev := range s.DrainEvents() {
			if a, ok := ev.(MobAttackPlayer); ok {
				attack = &a
			}
		}
	}
	if attack == nil {
		t.Fatal("no attack within 40 ticks at point-blank range")
	}
	if attack.PlayerRuntime != 3 {
		t.Fatalf("attacked player %d, want 3", attack.PlayerRuntime)
	}
	if attack.Knockback[1] != 0.4 {
		t.Fatalf("vertical knockback = %v, want 0.4", attack.Knockback[1])
	}
	if attack.Knockback[0] <= 0 {
		t.Fatalf("horizontal knockback points away from the player: %v", attack.Knockback)
	}
}

func TestPassivePanicsAfterDamage(t *testing.T) {
	s := testStore()
	id := s.Spawn("minecraft:cow", mgl64.Vec3{0, 5, 0})
	s.DamageMob(id, 1, 10, 0)
	m, _ := s.Mob(id)
	if m.panicUntil != 70 {
		t.Fatalf("panic window = %d, want 70", m.panicUntil)
	}
	s.Tick(11, []PlayerInfo{{RuntimeID: 1, Pos: mgl64.Vec3{0, 5, 0}}})
	if m.activeMovement == nil {
		t.Fatal("no movement behaviour active while panicking")
	}
	if _, ok := m.activeMovement.(*panicBehavior); !ok {
		t.Fatalf("active movement is %T, want panic", m.activeMovement)
	}
	speed := mgl64.Vec2{m.Transform.Vel[0], m.Transform.Vel[2]}.Len()
	if speed < m.Stats.MoveSpeed {
		t.Fatalf("panic speed %v below base speed %v", speed, m.Stats.MoveSpeed)
	}
}

func TestTemptGoalFollowsFoodHolder(t *testing.T) {
	s := testStore()
	id := s.Spawn("minecraft:cow", mgl64.Vec3{0, 5, 0})
	player := PlayerInfo{RuntimeID: 2, Pos: mgl64.Vec3{6, 5, 0}, HeldItem: item.Wheat}
	s.Tick(1, []PlayerInfo{player})
	m, _ := s.Mob(id)
	if _, ok := m.activeMovement.(*temptGoal); !ok {
		t.Fatalf("active movement is %T, want tempt", m.activeMovement)
	}
	if m.Transform.Vel[0] <= 0 {
		t.Fatal("tempted cow not walking toward the wheat holder")
	}

	// Swap the wheat for a sword: the goal disengages.
	player.HeldItem = item.IronSword
	s.Tick(2, []PlayerInfo{player})
	if _, ok := m.activeMovement.(*temptGoal); ok {
		t.Fatal("tempt goal survived without food in hand")
	}
}

func TestBreedPartnerSeek(t *testing.T) {
	s := testStore()
	a := s.Spawn("minecraft:cow", mgl64.Vec3{0, 5, 0})
	b := s.Spawn("minecraft:cow", mgl64.Vec3{5, 5, 0})
	ma, _ := s.Mob(a)
	mb, _ := s.Mob(b)
	ma.Breeding.InLove = true
	mb.Breeding.InLove = true

	s.Tick(1, []PlayerInfo{{RuntimeID: 1, Pos: mgl64.Vec3{0, 5, 0}}})
	if _, ok := ma.activeMovement.(*breedGoal); !ok {
		t.Fatalf("active movement is %T, want breed", ma.activeMovement)
	}
	if ma.Transform.Vel[0] <= 0 {
		t.Fatal("in-love cow not walking toward its partner")
	}
}

func TestDespawnFarFromPlayers(t *testing.T) {
	s := testStore()
	id := s.Spawn("minecraft:pig", mgl64.Vec3{0, 5, 0})
	s.Tick(1, []PlayerInfo{{RuntimeID: 1, Pos: mgl64.Vec3{200, 5, 0}}})
	if _, ok := s.Mob(id); ok {
		t.Fatal("mob survived far outside the despawn range")
	}
}

func TestRuntimeIDMatchesUniqueID(t *testing.T) {
	s := testStore()
	id := s.Spawn("minecraft:cow", mgl64.Vec3{0, 5, 0})
	m, _ := s.Mob(id)
	if m.RuntimeID() != uint64(id) {
		t.Fatalf("runtime id %d != unique id %d", m.RuntimeID(), id)
	}
}
