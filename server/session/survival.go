package session

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sago-mc/bedrock/server/block"
	"github.com/sago-mc/bedrock/server/plugin"
	"github.com/sago-mc/bedrock/server/protocol/packet"
)

// Hunger thresholds.
const (
	exhaustionThreshold = 4.0
	regenFoodThreshold  = 18
	regenInterval       = 80 // ticks between passive regeneration points
	maxAir              = 300
)

// Tick runs the per-tick survival mechanics for an in-game player: fire,
// drowning, hunger, regeneration and effect countdowns.
func (s *Session) Tick(tick uint64) {
	s.currentTick = tick
	if s.stage != StageInGame || s.dead {
		return
	}
	if s.gamemode != GameModeSurvival && s.gamemode != GameModeAdventure {
		return
	}

	if s.fireTicks > 0 {
		s.fireTicks--
		if s.fireTicks%20 == 0 {
			s.hurt(1, "fire")
		}
	}

	s.tickBreathing()
	s.tickHunger(tick)
	s.tickEffects()
}

// tickBreathing drains air underwater and drowns on empty, refilling in
// air.
func (s *Session) tickBreathing() {
	head := s.conf.World.Block(int(s.Pos[0]), int(s.Pos[1]+playerEyeOffset), int(s.Pos[2]))
	if block.IsWater(head) {
		s.swimming = true
		s.airTicks--
		if s.airTicks <= -20 {
			s.airTicks = 0
			s.hurt(2, "drowning")
		}
		return
	}
	s.swimming = false
	if s.airTicks < maxAir {
		s.airTicks += 5
		if s.airTicks > maxAir {
			s.airTicks = maxAir
		}
	}
}

// tickHunger converts accumulated exhaustion into saturation and food
// loss, starves at zero food and regenerates health on a full stomach.
func (s *Session) tickHunger(tick uint64) {
	for s.exhaustion >= exhaustionThreshold {
		s.exhaustion -= exhaustionThreshold
		if s.saturation > 0 {
			s.saturation--
			if s.saturation < 0 {
				s.saturation = 0
			}
			continue
		}
		if s.food > 0 {
			s.food--
			s.sendAttributes()
		}
	}
	if s.food == 0 && tick%80 == 0 {
		s.hurt(1, "starvation")
	}
	if s.food >= regenFoodThreshold && s.health < 20 && tick%regenInterval == 0 {
		s.health++
		if s.health > 20 {
			s.health = 20
		}
		s.addExhaustion(6)
		s.send(&packet.SetHealth{Health: int32(s.health)})
	}
}

// tickEffects counts the active effects down, dropping the expired.
func (s *Session) tickEffects() {
	kept := s.effects[:0]
	for _, e := range s.effects {
		e.RemainingTicks--
		if e.RemainingTicks > 0 {
			kept = append(kept, e)
		}
	}
	s.effects = kept
}

// addExhaustion accumulates hunger exhaustion from sprinting, jumping,
// mining and combat.
func (s *Session) addExhaustion(amount float64) {
	if s.gamemode != GameModeSurvival && s.gamemode != GameModeAdventure {
		return
	}
	s.exhaustion += amount
}

// applyFallDamage converts surplus fall distance into damage on landing.
func (s *Session) applyFallDamage(excess float64) {
	s.hurt(excess, "fall")
}

// hurt applies environmental damage, honouring invulnerability frames.
func (s *Session) hurt(dmg float64, cause string) {
	if s.dead || dmg <= 0 {
		return
	}
	if s.lastDamageTick != 0 && s.currentTick-s.lastDamageTick < playerInvulnTicks {
		return
	}
	if s.conf.Plugins != nil {
		ev := &plugin.PlayerDamage{Player: s.Name, Damage: dmg}
		s.conf.Plugins.Dispatch(ev)
		if ev.Cancelled() {
			return
		}
	}
	s.applyDamage(dmg, s.currentTick)
}

// applyDamage commits damage that already passed the pipeline. It reports
// whether the hit landed (false when absorbed by invulnerability frames).
func (s *Session) applyDamage(dmg float64, tick uint64) bool {
	if s.dead {
		return false
	}
	if s.lastDamageTick != 0 && tick-s.lastDamageTick < playerInvulnTicks {
		return false
	}
	s.lastDamageTick = tick
	s.health -= dmg
	s.send(&packet.SetHealth{Health: int32(s.health)})
	s.broadcast(&packet.EntityEvent{RuntimeID: s.runtimeID, EventType: packet.EntityEventHurt})
	if s.health <= 0 {
		s.die()
	}
	return true
}

// die activates the death overlay: the position freezes until the client
// reports respawn readiness.
func (s *Session) die() {
	s.dead = true
	s.health = 0
	s.broadcast(&packet.EntityEvent{RuntimeID: s.runtimeID, EventType: packet.EntityEventDeath})
	s.send(&packet.Respawn{State: packet.RespawnSearchingForSpawn, RuntimeID: s.runtimeID})
	if s.conf.Plugins != nil {
		s.conf.Plugins.Dispatch(&plugin.PlayerDeath{Player: s.Name})
	}
}

// handleRespawn completes the death → respawn handshake once the client
// reports ready.
func (s *Session) handleRespawn(p *packet.Respawn) {
	if !s.dead {
		return
	}
	switch p.State {
	case packet.RespawnClientReady:
		sx, sy, sz := s.conf.World.Spawn()
		s.Pos = mgl64.Vec3{float64(sx) + 0.5, float64(sy), float64(sz) + 0.5}
		s.health = 20
		s.food = 20
		s.saturation = 5
		s.exhaustion = 0
		s.fireTicks = 0
		s.airTicks = maxAir
		s.fallDistance = 0
		s.dead = false
		s.send(
			&packet.SetHealth{Health: int32(s.health)},
			&packet.MovePlayer{RuntimeID: s.runtimeID, Position: vec32(mgl64.Vec3{s.Pos[0], s.Pos[1] + playerEyeOffset, s.Pos[2]}), Mode: MoveModeTeleport},
		)
		if s.conf.Plugins != nil {
			s.conf.Plugins.Dispatch(&plugin.PlayerRespawn{Player: s.Name, Pos: s.Pos})
		}
	default:
		s.send(&packet.Respawn{State: packet.RespawnReadyToSpawn, RuntimeID: s.runtimeID, Position: vec32(s.Pos)})
	}
}

// HurtByMob applies a mob's melee hit: the armor/resistance half of the
// damage pipeline, then knockback. Called by the server when the entity
// store emits an attack event.
func (s *Session) HurtByMob(dmg float64, knockback mgl64.Vec3, tick uint64) {
	if s.stage != StageInGame || s.dead {
		return
	}
	if s.gamemode == GameModeCreative {
		return
	}
	dmg = s.incomingDamage(dmg)
	if s.conf.Plugins != nil {
		ev := &plugin.PlayerDamage{Player: s.Name, Damage: dmg}
		s.conf.Plugins.Dispatch(ev)
		if ev.Cancelled() {
			return
		}
	}
	if !s.applyDamage(dmg, tick) {
		return
	}
	s.send(&packet.SetEntityMotion{RuntimeID: s.runtimeID, Motion: vec32(knockback)})
}

// Teleport force-moves the player server-side and corrects the client.
func (s *Session) Teleport(pos mgl64.Vec3) {
	s.Pos = pos
	s.fallDistance = 0
	s.correctMovement()
	s.maybeStreamChunks()
}

// SendMessage delivers a chat line to this player.
func (s *Session) SendMessage(msg string) {
	s.send(&packet.Text{TextType: 0, Message: msg})
}

// sendAttributes pushes hunger and saturation to the client.
func (s *Session) sendAttributes() {
	s.send(&packet.UpdateAttributes{
		RuntimeID: s.runtimeID,
		Attributes: []packet.Attribute{
			{Name: "minecraft:player.hunger", Value: float32(s.food), Min: 0, Max: 20},
			{Name: "minecraft:player.saturation", Value: float32(s.saturation), Min: 0, Max: 20},
		},
	})
}
