package session

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sago-mc/bedrock/server/entity"
	"github.com/sago-mc/bedrock/server/item"
	"github.com/sago-mc/bedrock/server/plugin"
	"github.com/sago-mc/bedrock/server/protocol"
	"github.com/sago-mc/bedrock/server/protocol/packet"
)

// Combat constants from the damage pipeline design.
const (
	critMultiplier      = 1.5
	baseKnockback       = 0.4
	knockbackPerLevel   = 0.3
	verticalKnockback   = 0.4
	sprintKnockbackMul  = 1.5
	fireAspectTicks     = 80
	playerInvulnTicks   = 10
	attackReach         = 4.0
)

// enchantLevel reads the level of an enchantment from an item stack's NBT
// "ench" list, zero if absent.
func enchantLevel(stack protocol.ItemStack, enchID int32) int32 {
	if stack.NBT == nil {
		return 0
	}
	list, ok := stack.NBT["ench"].([]any)
	if !ok {
		return 0
	}
	for _, raw := range list {
		ench, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, _ := nbtInt(ench["id"])
		if id != enchID {
			continue
		}
		lvl, _ := nbtInt(ench["lvl"])
		return lvl
	}
	return 0
}

// nbtInt widens the integer representations NBT may carry.
func nbtInt(v any) (int32, bool) {
	switch n := v.(type) {
	case int16:
		return int32(n), true
	case int32:
		return n, true
	case byte:
		return int32(n), true
	case int64:
		return int32(n), true
	}
	return 0, false
}

// handleAttack runs the melee pipeline for a player-initiated hit on
// another player or a mob.
func (s *Session) handleAttack(p *packet.InventoryTransaction) {
	weapon := s.inv.Held()

	if target := s.findPlayer(p.TargetRuntimeID); target != nil {
		s.attackPlayer(target, weapon)
		return
	}
	s.attackMob(p.TargetRuntimeID, weapon)
}

func (s *Session) findPlayer(runtimeID uint64) *Session {
	if s.conf.FindPlayer == nil {
		return nil
	}
	return s.conf.FindPlayer(runtimeID)
}

// attackPlayer applies the player-vs-player damage pipeline.
func (s *Session) attackPlayer(target *Session, weapon protocol.ItemStack) {
	if !target.InGame() || target.dead || target == s {
		return
	}
	if target.Pos.Sub(s.Pos).Len() > attackReach+2 {
		return
	}
	dmg := s.outgoingDamage(weapon, false, false)
	dmg = target.incomingDamage(dmg)

	if s.conf.Plugins != nil {
		ev := &plugin.PlayerDamage{Player: target.Name, Damage: dmg, Attacker: s.Name}
		s.conf.Plugins.Dispatch(ev)
		if ev.Cancelled() {
			return
		}
	}
	if !target.applyDamage(dmg, s.currentTick) {
		return
	}

	kb := s.knockbackVector(target.Pos, weapon)
	target.send(&packet.SetEntityMotion{RuntimeID: target.runtimeID, Motion: vec32(kb)})
	s.broadcast(
		&packet.SetEntityMotion{RuntimeID: target.runtimeID, Motion: vec32(kb)},
		&packet.EntityEvent{RuntimeID: target.runtimeID, EventType: packet.EntityEventHurt},
	)
	if fire := enchantLevel(weapon, item.EnchantFireAspect); fire > 0 {
		target.fireTicks = fire * fireAspectTicks
	}
	s.addExhaustion(0.1)
}

// attackMob applies the player-vs-mob pipeline through the entity store.
func (s *Session) attackMob(runtimeID uint64, weapon protocol.ItemStack) {
	if s.conf.Mobs == nil {
		return
	}
	m, ok := s.conf.Mobs.Mob(int64(runtimeID))
	if !ok {
		return
	}
	if m.Transform.Pos.Sub(s.Pos).Len() > attackReach+2 {
		return
	}
	undead := m.Type == "minecraft:zombie" || m.Type == "minecraft:skeleton"
	arthropod := m.Type == "minecraft:spider"
	dmg := s.outgoingDamage(weapon, undead, arthropod)

	res := s.conf.Mobs.DamageMob(m.ID, dmg, s.currentTick, int64(s.runtimeID))
	if res == entity.DamageAbsorbed {
		return
	}
	kb := s.knockbackVector(m.Transform.Pos, weapon)
	s.conf.Mobs.ApplyKnockback(m.ID, kb)
	s.broadcast(
		&packet.SetEntityMotion{RuntimeID: runtimeID, Motion: vec32(kb)},
		&packet.EntityEvent{RuntimeID: runtimeID, EventType: packet.EntityEventHurt},
	)
	s.addExhaustion(0.1)
}

// outgoingDamage computes the attacker half of the pipeline: base weapon
// damage, enchantment modifiers, the critical multiplier and the
// strength/weakness effects, in exactly that order.
func (s *Session) outgoingDamage(weapon protocol.ItemStack, undead, arthropod bool) float64 {
	dmg := item.BaseDamage(weapon.RuntimeID)

	if lvl := enchantLevel(weapon, item.EnchantSharpness); lvl > 0 {
		dmg += 1.25 * float64(lvl)
	}
	if undead {
		if lvl := enchantLevel(weapon, item.EnchantSmite); lvl > 0 {
			dmg += 2.5 * float64(lvl)
		}
	}
	if arthropod {
		if lvl := enchantLevel(weapon, item.EnchantBaneOfArthropods); lvl > 0 {
			dmg += 2.5 * float64(lvl)
		}
	}

	if s.isCritical() {
		dmg *= critMultiplier
	}

	if lvl, ok := s.effectLevel(EffectStrength); ok {
		dmg += 3 * float64(lvl+1)
	}
	if lvl, ok := s.effectLevel(EffectWeakness); ok {
		dmg -= 4 * float64(lvl+1)
	}
	return math.Max(dmg, 0)
}

// isCritical: falling, airborne and not sprinting.
func (s *Session) isCritical() bool {
	return !s.onGround && s.fallDistance > 0 && !s.sprinting
}

// incomingDamage computes the defender half of the pipeline: armor
// defense points, protection enchantments and the resistance effect.
func (s *Session) incomingDamage(dmg float64) float64 {
	var defense, epf float64
	for _, piece := range s.inv.Armor {
		defense += item.DefensePoints(piece.RuntimeID)
		epf += float64(enchantLevel(piece, item.EnchantProtection))
	}
	if defense > 20 {
		defense = 20
	}
	dmg *= 1 - defense*0.04
	if epf > 20 {
		epf = 20
	}
	dmg *= 1 - epf*0.04

	if lvl, ok := s.effectLevel(EffectResistance); ok {
		dmg *= 1 - 0.2*float64(lvl+1)
	}
	return math.Max(dmg, 0)
}

// knockbackVector computes the impulse a hit imparts: normalized
// horizontal direction scaled by 0.4 + 0.3 per Knockback level, a fixed
// 0.4 vertical, half again while sprinting.
func (s *Session) knockbackVector(targetPos mgl64.Vec3, weapon protocol.ItemStack) mgl64.Vec3 {
	dir := targetPos.Sub(s.Pos)
	dir[1] = 0
	if l := dir.Len(); l > 1e-6 {
		dir = dir.Mul(1 / l)
	} else {
		dir = mgl64.Vec3{0, 0, 1}
	}
	magnitude := baseKnockback + knockbackPerLevel*float64(enchantLevel(weapon, item.EnchantKnockback))
	if s.sprinting {
		magnitude *= sprintKnockbackMul
	}
	return mgl64.Vec3{dir[0] * magnitude, verticalKnockback, dir[2] * magnitude}
}

// effectLevel returns the amplifier of an active effect.
func (s *Session) effectLevel(id int32) (int32, bool) {
	for _, e := range s.effects {
		if e.ID == id && e.RemainingTicks > 0 {
			return e.Amplifier, true
		}
	}
	return 0, false
}

// AddEffect applies or refreshes a status effect.
func (s *Session) AddEffect(id, amplifier, ticks int32) {
	for i := range s.effects {
		if s.effects[i].ID == id {
			s.effects[i].Amplifier = amplifier
			s.effects[i].RemainingTicks = ticks
			return
		}
	}
	s.effects = append(s.effects, Effect{ID: id, Amplifier: amplifier, RemainingTicks: ticks})
}
