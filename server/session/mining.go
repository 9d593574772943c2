package session

import (
	"github.com/sago-mc/bedrock/server/block"
	"github.com/sago-mc/bedrock/server/item"
	"github.com/sago-mc/bedrock/server/plugin"
	"github.com/sago-mc/bedrock/server/protocol"
	"github.com/sago-mc/bedrock/server/protocol/packet"
)

// handleStartBreak records the in-flight mining operation. Creative
// players break instantly and never send a separate finish.
func (s *Session) handleStartBreak(p *packet.StartBreak) {
	if s.stage != StageInGame || s.dead {
		return
	}
	if s.gamemode == GameModeCreative {
		s.finishBreak(p.Position)
		return
	}
	s.breaking = breakingBlock{pos: p.Position, startTick: s.currentTick, active: true}
}

// handleBreakBlock validates a survival break: the position must match the
// recorded StartBreak and the elapsed time must cover at least 80% of the
// tool-adjusted expected duration. A rejected break resends the
// authoritative block.
func (s *Session) handleBreakBlock(p *packet.BreakBlock) {
	if s.stage != StageInGame || s.dead {
		return
	}
	if s.gamemode == GameModeAdventure {
		s.rejectBreak(p.Position)
		return
	}
	if s.gamemode == GameModeSurvival {
		// Every BreakBlock consumes the recorded StartBreak, accepted or not.
		started := s.breaking
		s.breaking = breakingBlock{}
		if !started.active || started.pos != p.Position {
			s.rejectBreak(p.Position)
			return
		}
		hash := s.blockAt(p.Position)
		hardness := block.Hardness(hash)
		if hardness < 0 {
			s.rejectBreak(p.Position)
			return
		}
		elapsed := s.currentTick - started.startTick
		if float64(elapsed) < 0.8*s.expectedBreakTicks(hardness) {
			s.rejectBreak(p.Position)
			return
		}
	}
	s.breaking = breakingBlock{}
	s.finishBreak(p.Position)
}

// expectedBreakTicks is the tool- and enchantment-adjusted mining duration
// in game ticks. Efficiency divides by (1 + level²).
func (s *Session) expectedBreakTicks(hardness float64) float64 {
	held := s.inv.Held()
	expected := hardness * 1.5 * 20 / item.ToolMultiplier(held.RuntimeID)
	if eff := enchantLevel(held, item.EnchantEfficiency); eff > 0 {
		expected /= 1 + float64(eff)*float64(eff)
	}
	return expected
}

// finishBreak applies a validated break: the block turns to air, the world
// marks the chunk dirty, and the destroy effect broadcasts.
func (s *Session) finishBreak(pos protocol.BlockPos) {
	hash := s.blockAt(pos)
	if hash == block.Air {
		return
	}
	if s.conf.Plugins != nil {
		ev := &plugin.BlockBreak{Player: s.Name, X: int(pos[0]), Y: int(pos[1]), Z: int(pos[2]), Hash: hash}
		s.conf.Plugins.Dispatch(ev)
		if ev.Cancelled() {
			s.rejectBreak(pos)
			return
		}
	}
	s.conf.World.SetBlock(int(pos[0]), int(pos[1]), int(pos[2]), block.Air)
	s.broadcast(
		&packet.UpdateBlock{Position: pos, BlockRuntimeID: block.Air},
		&packet.LevelEvent{EventID: packet.LevelEventParticleDestroyBlock, Position: pos, Data: int32(hash)},
	)
	s.addExhaustion(0.005)
}

// rejectBreak answers an invalid break with the authoritative block state;
// nothing mutates.
func (s *Session) rejectBreak(pos protocol.BlockPos) {
	s.send(&packet.UpdateBlock{Position: pos, BlockRuntimeID: s.blockAt(pos)})
}

func (s *Session) blockAt(pos protocol.BlockPos) uint32 {
	return s.conf.World.Block(int(pos[0]), int(pos[1]), int(pos[2]))
}

// handleTransaction routes the two validated InventoryTransaction shapes:
// placing a held block against the world and attacking an entity.
func (s *Session) handleTransaction(p *packet.InventoryTransaction) {
	if s.stage != StageInGame || s.dead {
		return
	}
	switch p.TransactionType {
	case packet.TransactionTypeUseItem:
		s.handleUseItem(p)
	case packet.TransactionTypeUseItemOnEntity:
		if p.Action == packet.UseItemOnEntityActionAttack {
			s.handleAttack(p)
		}
	}
}

// handleUseItem places the held block against the face the client clicked.
func (s *Session) handleUseItem(p *packet.InventoryTransaction) {
	held := s.inv.Held()
	if held.RuntimeID == 0 || held.BlockRuntimeID == 0 {
		return
	}
	face := block.Face(p.BlockFace)
	if face < block.FaceDown || face > block.FaceEast {
		return
	}
	x, y, z := face.Offset(int(p.BlockPosition[0]), int(p.BlockPosition[1]), int(p.BlockPosition[2]))
	if s.conf.World.Block(x, y, z) != block.Air {
		s.send(&packet.UpdateBlock{Position: protocol.BlockPos{int32(x), int32(y), int32(z)}, BlockRuntimeID: s.conf.World.Block(x, y, z)})
		return
	}
	hash := uint32(held.BlockRuntimeID)
	if s.conf.Plugins != nil {
		ev := &plugin.BlockPlace{Player: s.Name, X: x, Y: y, Z: z, Hash: hash}
		s.conf.Plugins.Dispatch(ev)
		if ev.Cancelled() {
			s.send(&packet.UpdateBlock{Position: protocol.BlockPos{int32(x), int32(y), int32(z)}, BlockRuntimeID: block.Air})
			return
		}
	}
	s.conf.World.SetBlock(x, y, z, hash)
	s.broadcast(&packet.UpdateBlock{Position: protocol.BlockPos{int32(x), int32(y), int32(z)}, BlockRuntimeID: hash})
	if s.gamemode == GameModeSurvival {
		s.consumeHeldItem()
	}
}

// consumeHeldItem decrements the held stack by one.
func (s *Session) consumeHeldItem() {
	held := &s.inv.Main[s.inv.HeldSlot]
	if held.Count > 1 {
		held.Count--
		return
	}
	*held = protocol.ItemStack{}
}
