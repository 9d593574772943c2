package session

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sago-mc/bedrock/server/block"
	"github.com/sago-mc/bedrock/server/plugin"
	"github.com/sago-mc/bedrock/server/protocol/packet"
	"github.com/sago-mc/bedrock/server/world"
	"github.com/sago-mc/bedrock/server/world/chunk"
)

// Movement limits per validation tick.
const (
	// maxHorizontalStep is the largest horizontal distance one
	// PlayerAuthInput may move the player.
	maxHorizontalStep = 1.0
	// maxVerticalStep is terminal falling velocity.
	maxVerticalStep = 3.92
	// maxAirborneTicks is the fly-hack heuristic: this many consecutive
	// ticks without ground contact or downward motion triggers a
	// correction.
	maxAirborneTicks = 60
)

// MovePlayer modes.
const (
	MoveModeNormal byte = iota
	MoveModeReset
	MoveModeTeleport
)

// handleAuthInput validates one client movement frame. Invalid frames
// mutate nothing and answer with an authoritative teleport correction.
func (s *Session) handleAuthInput(p *packet.PlayerAuthInput) {
	if s.stage != StageInGame {
		return
	}
	if s.dead {
		// A dead player's position is frozen until respawn.
		return
	}

	to := mgl64.Vec3{float64(p.Position[0]), float64(p.Position[1]) - playerEyeOffset, float64(p.Position[2])}
	if !s.validateMove(to) {
		s.correctMovement()
		return
	}

	from := s.Pos
	if s.conf.Plugins != nil {
		ev := &plugin.PlayerMove{Player: s.Name, From: from, To: to}
		s.conf.Plugins.Dispatch(ev)
		if ev.Cancelled() {
			s.correctMovement()
			return
		}
	}

	s.applyInputFlags(p.InputData)
	delta := to.Sub(from)
	s.Pos = to
	s.Yaw = float64(p.Yaw)
	s.Pitch = float64(p.Pitch)

	grounded := s.standingOnSolid()
	if grounded {
		if s.fallDistance > 3 && s.gamemode == GameModeSurvival {
			s.applyFallDamage(s.fallDistance - 3)
		}
		s.fallDistance = 0
		s.airborneTicks = 0
	} else {
		if delta[1] < 0 {
			s.fallDistance -= delta[1]
			s.airborneTicks = 0
		} else {
			s.airborneTicks++
		}
	}
	s.onGround = grounded

	s.broadcast(&packet.MovePlayer{
		RuntimeID: s.runtimeID,
		Position:  vec32(mgl64.Vec3{s.Pos[0], s.Pos[1] + playerEyeOffset, s.Pos[2]}),
		Pitch:     float32(s.Pitch),
		Yaw:       float32(s.Yaw),
		HeadYaw:   float32(p.HeadYaw),
		Mode:      MoveModeNormal,
		OnGround:  s.onGround,
		Tick:      p.Tick,
	})
	s.maybeStreamChunks()
}

// playerEyeOffset is the difference between the network position (eye
// height) and the feet position the server tracks.
const playerEyeOffset = 1.62

// playerAABB half extents.
const (
	playerHalfWidth = 0.3
	playerHeight    = 1.8
)

// applyInputFlags folds the input bitfield into the sprint/sneak/swim
// state the combat and hunger paths read.
func (s *Session) applyInputFlags(flags uint64) {
	if flags&packet.InputFlagStartSprinting != 0 {
		s.sprinting = true
		s.addExhaustion(0.1)
	}
	if flags&packet.InputFlagStopSprinting != 0 {
		s.sprinting = false
	}
	if flags&packet.InputFlagStartJumping != 0 {
		s.addExhaustion(0.05)
	}
}

// validateMove applies the sanity checks of spec §4.2: finite coordinates,
// bounded step sizes, the world floor, no-clip and the fly heuristic.
func (s *Session) validateMove(to mgl64.Vec3) bool {
	for _, v := range to {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if to[1] < float64(chunk.MinY) {
		return false
	}
	delta := to.Sub(s.Pos)
	horizontal := math.Hypot(delta[0], delta[2])
	if horizontal > maxHorizontalStep {
		return false
	}
	if delta[1] < -maxVerticalStep {
		return false
	}
	if s.gamemode == GameModeSurvival || s.gamemode == GameModeAdventure {
		if s.aabbIntersectsSolid(to) {
			return false
		}
		if s.airborneTicks > maxAirborneTicks {
			return false
		}
	}
	return true
}

// aabbIntersectsSolid reports whether the player bounding box at pos
// overlaps any solid block.
func (s *Session) aabbIntersectsSolid(pos mgl64.Vec3) bool {
	// The box is shrunk by eps so that float32 rounding of a position resting
	// exactly on a block face does not count as overlap.
	const eps = 1e-4
	minX, maxX := int(math.Floor(pos[0]-playerHalfWidth+eps)), int(math.Floor(pos[0]+playerHalfWidth-eps))
	minY, maxY := int(math.Floor(pos[1]+eps)), int(math.Floor(pos[1]+playerHeight-eps))
	minZ, maxZ := int(math.Floor(pos[2]-playerHalfWidth+eps)), int(math.Floor(pos[2]+playerHalfWidth-eps))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				if block.Solid(s.conf.World.Block(x, y, z)) {
					return true
				}
			}
		}
	}
	return false
}

// standingOnSolid reports whether a solid block sits directly under any
// corner of the player's bounding box.
func (s *Session) standingOnSolid() bool {
	y := int(math.Floor(s.Pos[1] - 0.05))
	for _, dx := range []float64{-playerHalfWidth, playerHalfWidth} {
		for _, dz := range []float64{-playerHalfWidth, playerHalfWidth} {
			if block.Solid(s.conf.World.Block(int(math.Floor(s.Pos[0]+dx)), y, int(math.Floor(s.Pos[2]+dz)))) {
				return true
			}
		}
	}
	return false
}

// correctMovement answers a rejected movement frame with an authoritative
// teleport back to the server-side position. Only the fly-heuristic
// airborne counter resets; no other state mutates.
func (s *Session) correctMovement() {
	s.airborneTicks = 0
	s.send(&packet.MovePlayer{
		RuntimeID: s.runtimeID,
		Position:  vec32(mgl64.Vec3{s.Pos[0], s.Pos[1] + playerEyeOffset, s.Pos[2]}),
		Pitch:     float32(s.Pitch),
		Yaw:       float32(s.Yaw),
		HeadYaw:   float32(s.Yaw),
		Mode:      MoveModeTeleport,
		OnGround:  s.onGround,
	})
}

// maybeStreamChunks tops the client's chunk view up once movement crosses
// into a chunk column it has not been streamed around yet.
func (s *Session) maybeStreamChunks() {
	center := world.ChunkPos{X: int32(int(math.Floor(s.Pos[0])) >> 4), Z: int32(int(math.Floor(s.Pos[2])) >> 4)}
	if center == s.streamedAround {
		return
	}
	s.streamedAround = center
	s.streamChunks()
}
