package entity

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// BehaviorKind classifies a behaviour for arbitration: exactly one
// movement behaviour and one target selector run at a time, any number of
// passives.
type BehaviorKind int

const (
	Movement BehaviorKind = iota
	Passive
	TargetSelector
)

// PlayerInfo is the slice of player state behaviours may see.
type PlayerInfo struct {
	RuntimeID uint64
	Pos       mgl64.Vec3
	HeldItem  int32
}

// Context is the per-mob view a behaviour ticks against. It is rebuilt
// every tick; behaviours must not retain it.
type Context struct {
	Mob  *Mob
	Tick uint64
	Rand *rand.Rand

	// Target is the mob's current AI target, nil once the player it
	// pointed at no longer exists.
	Target *PlayerInfo
	// NearestPlayer is the closest live player, if any.
	NearestPlayer *PlayerInfo
	// TemptedBy is the closest player holding a food this mob type
	// follows.
	TemptedBy *PlayerInfo
	// BreedPartner is the position of the nearest in-love adult of the
	// same type. Consumers needing the partner's handle resolve it from
	// the store at use time.
	BreedPartner *mgl64.Vec3

	// Panicking reports whether the panic speed boost is active.
	Panicking bool
}

// Output is what a behaviour wants this tick. Merging follows arbitration
// order: movement move/look overrides passive suggestions, attack is a
// sticky OR, and the later target write wins.
type Output struct {
	MoveTo   *mgl64.Vec3
	SpeedMul float64
	LookAt   *mgl64.Vec3
	Attack   bool

	SetTarget   Handle
	HasSetTarget bool
	ClearTarget bool
}

func (o *Output) merge(next Output) {
	if next.MoveTo != nil {
		o.MoveTo = next.MoveTo
		o.SpeedMul = next.SpeedMul
	}
	if next.LookAt != nil {
		o.LookAt = next.LookAt
	}
	o.Attack = o.Attack || next.Attack
	if next.HasSetTarget {
		o.SetTarget, o.HasSetTarget = next.SetTarget, true
		o.ClearTarget = false
	}
	if next.ClearTarget {
		o.ClearTarget = true
		o.HasSetTarget = false
	}
}

// Behavior is one unit of mob AI. Implementations are plain structs held
// in a per-mob ordered list; dispatch is dynamic, never reflective.
type Behavior interface {
	Kind() BehaviorKind
	Priority() int
	CanStart(ctx *Context) bool
	ShouldContinue(ctx *Context) bool
	Start(ctx *Context) Output
	Tick(ctx *Context) Output
	Stop()
}

// Tick runs the full mob pipeline for one game tick: context building,
// behaviour arbitration, output application, kinematics and the cleanup of
// dead or abandoned mobs. players is the live player list this tick.
func (s *Store) Tick(tick uint64, players []PlayerInfo) {
	for _, id := range s.All() {
		m, ok := s.mobs[id]
		if !ok || m.Dead {
			continue
		}
		ctx := s.buildContext(m, tick, players)
		out := s.arbitrate(m, ctx)
		s.applyOutput(m, ctx, out)
		s.stepKinematics(m)
	}
	s.cleanup(players)
}

// buildContext assembles the behaviour view for one mob.
func (s *Store) buildContext(m *Mob, tick uint64, players []PlayerInfo) *Context {
	ctx := &Context{
		Mob:       m,
		Tick:      tick,
		Rand:      s.r,
		Panicking: tick < m.panicUntil,
	}
	var nearest *PlayerInfo
	var nearestDist float64
	for i := range players {
		p := &players[i]
		d := p.Pos.Sub(m.Transform.Pos).Len()
		if nearest == nil || d < nearestDist {
			nearest, nearestDist = p, d
		}
		if m.Combat.Target != 0 && p.RuntimeID == uint64(m.Combat.Target) {
			ctx.Target = p
		}
	}
	ctx.NearestPlayer = nearest
	if m.Combat.Target != 0 && ctx.Target == nil {
		// The target despawned; the handle is resolved-and-checked on each
		// access, so simply forget it.
		m.Combat.Target = 0
	}

	spec := specOf(m.Type)
	if spec.passive {
		for i := range players {
			p := &players[i]
			if tempts(m.Type, p.HeldItem) {
				if ctx.TemptedBy == nil || p.Pos.Sub(m.Transform.Pos).Len() < ctx.TemptedBy.Pos.Sub(m.Transform.Pos).Len() {
					ctx.TemptedBy = p
				}
			}
		}
		if m.Breeding.InLove && !m.Breeding.Baby {
			if pos, ok := s.nearestBreedPartner(m); ok {
				ctx.BreedPartner = &pos
			}
		}
	}
	return ctx
}

// nearestBreedPartner finds the closest in-love adult of the same type.
// It returns only the position; callers resolve the partner handle from
// the store when they need it.
func (s *Store) nearestBreedPartner(m *Mob) (mgl64.Vec3, bool) {
	var best mgl64.Vec3
	bestDist := math.Inf(1)
	for _, id := range s.order {
		o := s.mobs[id]
		if o == nil || o.ID == m.ID || o.Type != m.Type || o.Dead {
			continue
		}
		if !o.Breeding.InLove || o.Breeding.Baby {
			continue
		}
		d := o.Transform.Pos.Sub(m.Transform.Pos).Len()
		if d < bestDist {
			best, bestDist = o.Transform.Pos, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// arbitrate selects this tick's target selector, movement behaviour and
// passive set, and merges their outputs in arbitration order.
func (s *Store) arbitrate(m *Mob, ctx *Context) Output {
	var out Output

	// Target selectors: a running one keeps its slot while it wants to
	// continue; otherwise the lowest-priority starter wins.
	if m.activeTarget != nil && m.activeTarget.ShouldContinue(ctx) {
		out.merge(m.activeTarget.Tick(ctx))
	} else {
		hadSelector := m.activeTarget != nil
		if hadSelector {
			m.activeTarget.Stop()
			m.activeTarget = nil
		}
		if b := lowestStarter(m.behaviors, TargetSelector, ctx); b != nil {
			m.activeTarget = b
			out.merge(b.Start(ctx))
		} else if hadSelector {
			// The selector that owned the target let go and nothing took
			// over; the mob forgets its target.
			out.merge(Output{ClearTarget: true})
		}
	}

	// Movement behaviours arbitrate the same way.
	if m.activeMovement != nil && m.activeMovement.ShouldContinue(ctx) {
		out.merge(m.activeMovement.Tick(ctx))
	} else {
		if m.activeMovement != nil {
			m.activeMovement.Stop()
			m.activeMovement = nil
		}
		if b := lowestStarter(m.behaviors, Movement, ctx); b != nil {
			m.activeMovement = b
			out.merge(b.Start(ctx))
		}
	}

	// Passives: every one that can run does. Their suggestions are merged
	// underneath the selector and movement output so that movement move/look
	// overrides them.
	var passive Output
	for _, b := range m.behaviors {
		if b.Kind() != Passive {
			continue
		}
		_, active := m.activePassives[b]
		switch {
		case active && b.ShouldContinue(ctx):
			passive.merge(b.Tick(ctx))
		case !active && b.CanStart(ctx):
			m.activePassives[b] = struct{}{}
			passive.merge(b.Start(ctx))
		case active:
			b.Stop()
			delete(m.activePassives, b)
		}
	}
	passive.merge(out)
	return passive
}

// lowestStarter returns the startable behaviour of the kind with the
// lowest priority number. The behaviour list is kept priority-sorted at
// construction, so the first match wins.
func lowestStarter(behaviors []Behavior, kind BehaviorKind, ctx *Context) Behavior {
	for _, b := range behaviors {
		if b.Kind() == kind && b.CanStart(ctx) {
			return b
		}
	}
	return nil
}

// applyOutput folds a merged behaviour output into the mob's components
// and the store's event stream.
func (s *Store) applyOutput(m *Mob, ctx *Context, out Output) {
	if out.ClearTarget {
		m.Combat.Target = 0
	}
	if out.HasSetTarget {
		m.Combat.Target = out.SetTarget
	}
	if out.MoveTo != nil {
		speed := m.Stats.MoveSpeed
		if out.SpeedMul > 0 {
			speed *= out.SpeedMul
		}
		delta := out.MoveTo.Sub(m.Transform.Pos)
		horiz := mgl64.Vec3{delta[0], 0, delta[2]}
		if l := horiz.Len(); l > 1e-6 {
			step := horiz.Mul(speed / l)
			m.Transform.Vel[0] = step[0]
			m.Transform.Vel[2] = step[2]
		}
		if delta[1] > 0.5 && m.Transform.OnGround {
			m.Transform.Vel[1] = 0.42 // jump impulse
		}
		m.Transform.Yaw = yawTowards(delta)
		m.Transform.HeadYaw = m.Transform.Yaw
	}
	if out.LookAt != nil {
		delta := out.LookAt.Sub(m.Transform.Pos)
		m.Transform.Yaw = yawTowards(delta)
		m.Transform.HeadYaw = m.Transform.Yaw
	}
	if out.Attack && ctx.Target != nil {
		s.performAttack(m, ctx)
	}
}

// performAttack emits the attack event with the computed knockback.
func (s *Store) performAttack(m *Mob, ctx *Context) {
	dir := ctx.Target.Pos.Sub(m.Transform.Pos)
	dir[1] = 0
	if l := dir.Len(); l > 1e-6 {
		dir = dir.Mul(1 / l)
	}
	kb := mgl64.Vec3{dir[0] * 0.4, 0.4, dir[2] * 0.4}
	s.emit(MobAttackPlayer{
		ID:            m.ID,
		PlayerRuntime: ctx.Target.RuntimeID,
		Damage:        m.Stats.AttackDamage,
		Knockback:     kb,
	})
	m.lastAttackTick = ctx.Tick
}

// yawTowards converts a horizontal delta to the Bedrock yaw convention.
func yawTowards(delta mgl64.Vec3) float64 {
	return math.Atan2(-delta[0], delta[2]) * 180 / math.Pi
}

// cleanup despawns mobs that died this tick or wandered beyond the
// despawn range of every player.
func (s *Store) cleanup(players []PlayerInfo) {
	for _, id := range s.All() {
		m := s.mobs[id]
		if m == nil {
			continue
		}
		if m.Dead {
			s.Despawn(id)
			continue
		}
		if len(players) == 0 {
			continue
		}
		near := false
		for i := range players {
			if players[i].Pos.Sub(m.Transform.Pos).Len() <= s.despawnRange {
				near = true
				break
			}
		}
		if !near {
			s.Despawn(id)
		}
	}
}
