package entity

import "github.com/go-gl/mathgl/mgl64"

// Event is a typed mob event drained each tick by the connection layer,
// which turns them into broadcast packets.
type Event any

// MobSpawned fires when a mob enters the world.
type MobSpawned struct {
	ID   Handle
	Type string
	Pos  mgl64.Vec3
}

// MobDespawned fires when a mob leaves the world for any reason.
type MobDespawned struct {
	ID Handle
}

// MobMoved fires for every mob with non-trivial velocity each tick.
type MobMoved struct {
	ID       Handle
	Pos      mgl64.Vec3
	Vel      mgl64.Vec3
	Yaw      float64
	HeadYaw  float64
	OnGround bool
}

// MobHurt fires when damage lands (not when absorbed by invulnerability
// frames).
type MobHurt struct {
	ID     Handle
	Health float64
}

// MobDied fires once when health reaches zero; the mob despawns on the
// next cleanup phase.
type MobDied struct {
	ID Handle
}

// MobAttackPlayer fires when a melee behaviour lands a hit on a player.
type MobAttackPlayer struct {
	ID             Handle
	PlayerRuntime  uint64
	Damage         float64
	Knockback      mgl64.Vec3
}
