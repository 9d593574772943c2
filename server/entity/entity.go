// Package entity implements the mob simulation: a flat component store
// keyed by entity handle, per-mob prioritized behaviour lists with
// movement/passive/target-selector arbitration, simple kinematics and the
// damage pipeline with invulnerability frames.
package entity

import (
	"log/slog"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/segmentio/fasthash/fnv1a"
)

// Handle identifies a mob for its whole lifetime. It doubles as the
// client-visible runtime ID: runtime IDs are the unsigned view of the
// signed unique ID.
type Handle = int64

// Transform is the kinematic component.
type Transform struct {
	Pos      mgl64.Vec3
	Vel      mgl64.Vec3
	Yaw      float64
	HeadYaw  float64
	OnGround bool
}

// Stats is the static attribute component, populated from the per-type
// table at spawn.
type Stats struct {
	Health       float64
	MaxHealth    float64
	AttackDamage float64
	MoveSpeed    float64
	Width        float64
	Height       float64
}

// Combat is the damage bookkeeping component. Target and HurtBy hold the
// runtime ID of a player, not a mob handle; both are resolved against the
// live player list each tick and dropped once the player is gone.
type Combat struct {
	LastDamageTick uint64
	Target         Handle // 0 when absent
	HurtBy         Handle
	HurtUntil      uint64
}

// Breeding is the reproduction component for passive mobs.
type Breeding struct {
	InLove bool
	Baby   bool
}

// Mob is one entity's full component set plus its behaviour list state.
type Mob struct {
	ID   Handle
	Type string

	Transform Transform
	Stats     Stats
	Combat    Combat
	Breeding  Breeding

	Dead bool

	behaviors      []Behavior
	activeMovement Behavior
	activeTarget   Behavior
	activePassives map[Behavior]struct{}

	// panicUntil is the tick the panic speed boost lasts to; the effective
	// speed context field derives from it.
	panicUntil uint64

	lastAttackTick uint64
}

// RuntimeID returns the unsigned runtime ID clients refer to the mob by.
func (m *Mob) RuntimeID() uint64 { return uint64(m.ID) }

// typeSpec is the per-mob-type static configuration, looked up by the
// FNV-1a hash of the type string.
type typeSpec struct {
	name      string
	hostile   bool
	passive   bool
	health    float64
	damage    float64
	speed     float64
	width     float64
	height    float64
	attackGap uint64 // ticks between melee swings
}

var typeSpecs = map[uint64]typeSpec{}

func registerType(s typeSpec) {
	typeSpecs[fnv1a.HashString64(s.name)] = s
}

func init() {
	registerType(typeSpec{name: "minecraft:cow", passive: true, health: 10, speed: 0.2, width: 0.9, height: 1.4})
	registerType(typeSpec{name: "minecraft:sheep", passive: true, health: 8, speed: 0.23, width: 0.9, height: 1.3})
	registerType(typeSpec{name: "minecraft:pig", passive: true, health: 10, speed: 0.25, width: 0.9, height: 0.9})
	registerType(typeSpec{name: "minecraft:chicken", passive: true, health: 4, speed: 0.25, width: 0.4, height: 0.7})
	registerType(typeSpec{name: "minecraft:zombie", hostile: true, health: 20, damage: 3, speed: 0.23, width: 0.6, height: 1.9, attackGap: 20})
	registerType(typeSpec{name: "minecraft:skeleton", hostile: true, health: 20, damage: 2, speed: 0.25, width: 0.6, height: 1.99, attackGap: 20})
	registerType(typeSpec{name: "minecraft:spider", hostile: true, health: 16, damage: 2, speed: 0.3, width: 1.4, height: 0.9, attackGap: 20})
}

// specOf resolves a mob type string, falling back to a generic passive
// spec for unregistered types so commands can spawn anything.
func specOf(mobType string) typeSpec {
	if s, ok := typeSpecs[fnv1a.HashString64(mobType)]; ok {
		return s
	}
	return typeSpec{name: mobType, passive: true, health: 10, speed: 0.2, width: 0.6, height: 1.8}
}

// FloorFunc reports the solid floor height at a horizontal position, used
// by the kinematics step for ground collision.
type FloorFunc func(x, z float64) float64

// Config configures a Store.
type Config struct {
	Log *slog.Logger
	// Floor resolves ground height; nil uses a flat floor at y=5.
	Floor FloorFunc
	Seed  uint64
	// DespawnRange is the distance beyond which a mob with no player
	// nearby despawns.
	DespawnRange float64
}

// Store is the flat mob store plus the tick pipeline over it.
type Store struct {
	log   *slog.Logger
	floor FloorFunc
	r     *rand.Rand

	mobs  map[Handle]*Mob
	order []Handle // deterministic iteration order

	nextID Handle

	despawnRange float64

	events []Event
}

// NewStore constructs an empty Store.
func NewStore(conf Config) *Store {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Floor == nil {
		conf.Floor = func(x, z float64) float64 { return 5 }
	}
	if conf.DespawnRange <= 0 {
		conf.DespawnRange = 64
	}
	return &Store{
		log:          conf.Log,
		floor:        conf.Floor,
		r:            rand.New(rand.NewPCG(conf.Seed, conf.Seed^0xD1B54A32D192ED03)),
		mobs:         make(map[Handle]*Mob),
		despawnRange: conf.DespawnRange,
		nextID:       1,
	}
}

// Spawn creates a mob of the type given at pos and returns its handle.
func (s *Store) Spawn(mobType string, pos mgl64.Vec3) Handle {
	spec := specOf(mobType)
	id := s.nextID
	s.nextID++
	m := &Mob{
		ID:   id,
		Type: spec.name,
		Transform: Transform{Pos: pos},
		Stats: Stats{
			Health: spec.health, MaxHealth: spec.health,
			AttackDamage: spec.damage, MoveSpeed: spec.speed,
			Width: spec.width, Height: spec.height,
		},
		activePassives: make(map[Behavior]struct{}),
		behaviors:      behaviorsFor(spec),
	}
	s.mobs[id] = m
	s.order = append(s.order, id)
	s.emit(MobSpawned{ID: id, Type: spec.name, Pos: pos})
	return id
}

// Despawn removes a mob immediately.
func (s *Store) Despawn(id Handle) {
	if _, ok := s.mobs[id]; !ok {
		return
	}
	delete(s.mobs, id)
	for i, h := range s.order {
		if h == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.emit(MobDespawned{ID: id})
}

// Mob resolves a handle; the second return is false once the mob is gone,
// which is how stale target references are detected at use time.
func (s *Store) Mob(id Handle) (*Mob, bool) {
	m, ok := s.mobs[id]
	return m, ok
}

// All returns the live handles in spawn order.
func (s *Store) All() []Handle {
	return append([]Handle(nil), s.order...)
}

// Count returns the number of live mobs.
func (s *Store) Count() int { return len(s.mobs) }

// invulnerabilityTicks is the window after a hit during which further
// damage is absorbed.
const invulnerabilityTicks = 10

// DamageResult reports what a DamageMob call did.
type DamageResult int

const (
	DamageApplied DamageResult = iota
	DamageAbsorbed
	DamageKilled
)

// DamageMob applies damage to a mob. Hits within the invulnerability
// window are absorbed. attacker (0 for environmental damage) feeds the
// HurtByTarget behaviour.
func (s *Store) DamageMob(id Handle, dmg float64, tick uint64, attacker Handle) DamageResult {
	m, ok := s.mobs[id]
	if !ok || m.Dead {
		return DamageAbsorbed
	}
	if m.Combat.LastDamageTick != 0 && tick-m.Combat.LastDamageTick < invulnerabilityTicks {
		return DamageAbsorbed
	}
	m.Combat.LastDamageTick = tick
	m.Combat.HurtBy = attacker
	m.Combat.HurtUntil = tick + 120
	m.Stats.Health -= dmg
	s.emit(MobHurt{ID: id, Health: m.Stats.Health})
	if m.Stats.Health <= 0 {
		m.Dead = true
		s.emit(MobDied{ID: id})
		return DamageKilled
	}
	if specOf(m.Type).passive {
		m.panicUntil = tick + 60
	}
	return DamageApplied
}

func (s *Store) emit(ev Event) { s.events = append(s.events, ev) }

// DrainEvents returns and clears the events the store accumulated.
func (s *Store) DrainEvents() []Event {
	out := s.events
	s.events = nil
	return out
}
