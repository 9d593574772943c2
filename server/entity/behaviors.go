package entity

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sago-mc/bedrock/server/item"
)

func tempts(mobType string, held int32) bool { return item.Tempts(mobType, held) }

// behaviorsFor builds the priority-sorted behaviour list for a mob type.
// Lower priority numbers come first; the list order is the arbitration
// order.
func behaviorsFor(spec typeSpec) []Behavior {
	var list []Behavior
	list = append(list, &floatBehavior{})
	if spec.passive {
		list = append(list, &panicBehavior{})
	}
	if spec.hostile {
		list = append(list,
			&hurtByTarget{},
			&nearestAttackableTarget{rangeStart: 16, rangeDrop: 32},
			&meleeAttack{reach: 2, interval: spec.attackGap},
		)
	}
	if spec.passive {
		list = append(list, &temptGoal{}, &breedGoal{})
	}
	list = append(list, &randomStroll{}, &lookAtPlayer{within: 8})

	// Insertion order above respects priorities within each kind; the
	// selection scan takes the first startable match in list order, so this
	// order is what makes the lowest number win.
	return list
}

// floatBehavior (movement, priority 0) keeps a mob from sinking below the
// floor.
type floatBehavior struct{}

func (*floatBehavior) Kind() BehaviorKind { return Movement }
func (*floatBehavior) Priority() int      { return 0 }
func (*floatBehavior) CanStart(ctx *Context) bool {
	return ctx.Mob.Transform.Pos[1] < -64
}
func (b *floatBehavior) ShouldContinue(ctx *Context) bool { return b.CanStart(ctx) }
func (b *floatBehavior) Start(ctx *Context) Output        { return b.Tick(ctx) }
func (*floatBehavior) Tick(ctx *Context) Output {
	up := ctx.Mob.Transform.Pos
	up[1] = -63
	return Output{MoveTo: &up}
}
func (*floatBehavior) Stop() {}

// panicBehavior (movement, priority 1) makes a passive mob flee in a
// random direction at 1.25× speed for 60 ticks after damage.
type panicBehavior struct {
	dest mgl64.Vec3
}

func (*panicBehavior) Kind() BehaviorKind { return Movement }
func (*panicBehavior) Priority() int      { return 1 }
func (*panicBehavior) CanStart(ctx *Context) bool {
	return ctx.Panicking
}
func (*panicBehavior) ShouldContinue(ctx *Context) bool { return ctx.Panicking }
func (b *panicBehavior) Start(ctx *Context) Output {
	angle := ctx.Rand.Float64() * 2 * math.Pi
	b.dest = ctx.Mob.Transform.Pos.Add(mgl64.Vec3{8 * math.Cos(angle), 0, 8 * math.Sin(angle)})
	return b.Tick(ctx)
}
func (b *panicBehavior) Tick(ctx *Context) Output {
	dest := b.dest
	return Output{MoveTo: &dest, SpeedMul: 1.25}
}
func (*panicBehavior) Stop() {}

// meleeAttack (movement, priority 2) chases the current target and swings
// when within reach and off cooldown.
type meleeAttack struct {
	reach    float64
	interval uint64
}

func (*meleeAttack) Kind() BehaviorKind { return Movement }
func (*meleeAttack) Priority() int      { return 2 }
func (*meleeAttack) CanStart(ctx *Context) bool {
	return ctx.Target != nil
}
func (b *meleeAttack) ShouldContinue(ctx *Context) bool { return ctx.Target != nil }
func (b *meleeAttack) Start(ctx *Context) Output        { return b.Tick(ctx) }
func (b *meleeAttack) Tick(ctx *Context) Output {
	target := ctx.Target.Pos
	out := Output{MoveTo: &target, LookAt: &target}
	dist := target.Sub(ctx.Mob.Transform.Pos).Len()
	if dist <= b.reach && ctx.Tick-ctx.Mob.lastAttackTick >= b.interval {
		out.Attack = true
	}
	return out
}
func (*meleeAttack) Stop() {}

// temptGoal (movement, priority 3) follows a player holding a tempting
// food, engaging at 10 blocks and letting go past 12.
type temptGoal struct{}

const (
	temptEngage    = 10
	temptDisengage = 12
)

func (*temptGoal) Kind() BehaviorKind { return Movement }
func (*temptGoal) Priority() int      { return 3 }
func (*temptGoal) CanStart(ctx *Context) bool {
	return ctx.TemptedBy != nil &&
		ctx.TemptedBy.Pos.Sub(ctx.Mob.Transform.Pos).Len() <= temptEngage
}
func (*temptGoal) ShouldContinue(ctx *Context) bool {
	return ctx.TemptedBy != nil &&
		ctx.TemptedBy.Pos.Sub(ctx.Mob.Transform.Pos).Len() <= temptDisengage
}
func (b *temptGoal) Start(ctx *Context) Output { return b.Tick(ctx) }
func (*temptGoal) Tick(ctx *Context) Output {
	pos := ctx.TemptedBy.Pos
	return Output{MoveTo: &pos, LookAt: &pos}
}
func (*temptGoal) Stop() {}

// breedGoal (movement, priority 4) walks an in-love adult toward its
// nearest partner.
type breedGoal struct{}

func (*breedGoal) Kind() BehaviorKind { return Movement }
func (*breedGoal) Priority() int      { return 4 }
func (*breedGoal) CanStart(ctx *Context) bool {
	return ctx.BreedPartner != nil
}
func (*breedGoal) ShouldContinue(ctx *Context) bool { return ctx.BreedPartner != nil }
func (b *breedGoal) Start(ctx *Context) Output      { return b.Tick(ctx) }
func (*breedGoal) Tick(ctx *Context) Output {
	pos := *ctx.BreedPartner
	return Output{MoveTo: &pos, LookAt: &pos}
}
func (*breedGoal) Stop() {}

// randomStroll (movement, priority 7) wanders to a random nearby point
// when grounded and off cooldown.
type randomStroll struct {
	dest      mgl64.Vec3
	walking   bool
	cooldownUntil uint64
}

func (*randomStroll) Kind() BehaviorKind { return Movement }
func (*randomStroll) Priority() int      { return 7 }
func (b *randomStroll) CanStart(ctx *Context) bool {
	return ctx.Mob.Transform.OnGround && ctx.Tick >= b.cooldownUntil
}
func (b *randomStroll) ShouldContinue(ctx *Context) bool {
	if !b.walking {
		return false
	}
	delta := b.dest.Sub(ctx.Mob.Transform.Pos)
	delta[1] = 0
	if delta.Len() < 0.5 {
		b.walking = false
		b.cooldownUntil = ctx.Tick + 40 + uint64(ctx.Rand.IntN(81))
		return false
	}
	return true
}
func (b *randomStroll) Start(ctx *Context) Output {
	b.dest = ctx.Mob.Transform.Pos.Add(mgl64.Vec3{
		float64(ctx.Rand.IntN(21) - 10), 0, float64(ctx.Rand.IntN(21) - 10),
	})
	b.walking = true
	return b.Tick(ctx)
}
func (b *randomStroll) Tick(ctx *Context) Output {
	dest := b.dest
	return Output{MoveTo: &dest}
}
func (b *randomStroll) Stop() { b.walking = false }

// lookAtPlayer (passive, priority 8) faces the nearest player in range.
type lookAtPlayer struct {
	within float64
}

func (*lookAtPlayer) Kind() BehaviorKind { return Passive }
func (*lookAtPlayer) Priority() int      { return 8 }
func (b *lookAtPlayer) CanStart(ctx *Context) bool {
	return ctx.NearestPlayer != nil &&
		ctx.NearestPlayer.Pos.Sub(ctx.Mob.Transform.Pos).Len() <= b.within
}
func (b *lookAtPlayer) ShouldContinue(ctx *Context) bool { return b.CanStart(ctx) }
func (b *lookAtPlayer) Start(ctx *Context) Output        { return b.Tick(ctx) }
func (*lookAtPlayer) Tick(ctx *Context) Output {
	pos := ctx.NearestPlayer.Pos
	return Output{LookAt: &pos}
}
func (*lookAtPlayer) Stop() {}

// nearestAttackableTarget (target selector, priority 1) latches onto the
// nearest player within range and lets go once they flee past the drop
// range.
type nearestAttackableTarget struct {
	rangeStart float64
	rangeDrop  float64
}

func (*nearestAttackableTarget) Kind() BehaviorKind { return TargetSelector }
func (*nearestAttackableTarget) Priority() int      { return 1 }
func (b *nearestAttackableTarget) CanStart(ctx *Context) bool {
	return ctx.NearestPlayer != nil &&
		ctx.NearestPlayer.Pos.Sub(ctx.Mob.Transform.Pos).Len() <= b.rangeStart
}
func (b *nearestAttackableTarget) ShouldContinue(ctx *Context) bool {
	return ctx.Target != nil &&
		ctx.Target.Pos.Sub(ctx.Mob.Transform.Pos).Len() <= b.rangeDrop
}
func (b *nearestAttackableTarget) Start(ctx *Context) Output {
	return Output{SetTarget: Handle(ctx.NearestPlayer.RuntimeID), HasSetTarget: true}
}
func (b *nearestAttackableTarget) Tick(ctx *Context) Output { return Output{} }
func (*nearestAttackableTarget) Stop()                      {}

// hurtByTarget (target selector, priority 0) retaliates against the
// likely attacker for 60 ticks, persisting the grudge up to 120.
type hurtByTarget struct {
	started uint64
}

func (*hurtByTarget) Kind() BehaviorKind { return TargetSelector }
func (*hurtByTarget) Priority() int      { return 0 }
func (b *hurtByTarget) CanStart(ctx *Context) bool {
	c := ctx.Mob.Combat
	return c.HurtBy != 0 && ctx.Tick < c.HurtUntil && ctx.Tick-c.LastDamageTick < 60
}
func (b *hurtByTarget) ShouldContinue(ctx *Context) bool {
	return ctx.Mob.Combat.HurtBy != 0 && ctx.Tick < ctx.Mob.Combat.HurtUntil
}
func (b *hurtByTarget) Start(ctx *Context) Output {
	b.started = ctx.Tick
	return Output{SetTarget: ctx.Mob.Combat.HurtBy, HasSetTarget: true}
}
func (b *hurtByTarget) Tick(ctx *Context) Output { return Output{} }
func (*hurtByTarget) Stop()                      {}

