// Package plugin implements the event dispatch contract between the server
// core and loaded plugins: typed game events with cancellation semantics, a
// deferred-action queue so plugin callbacks never re-enter the engine, and
// scheduled plugin tasks driven by the server tick.
package plugin

import "github.com/go-gl/mathgl/mgl64"

// Cancellable is embedded by events a plugin may veto. Dispatch
// short-circuits on the first handler that cancels.
type Cancellable struct {
	cancelled bool
}

// Cancel vetoes the event.
func (c *Cancellable) Cancel() { c.cancelled = true }

// Cancelled reports whether a handler vetoed the event.
func (c *Cancellable) Cancelled() bool { return c.cancelled }

// PlayerJoin fires after a player finishes logging in.
type PlayerJoin struct {
	Name string
	XUID string
}

// PlayerQuit fires when a player's session ends for any reason.
type PlayerQuit struct {
	Name string
}

// BlockBreak fires before a survival block break is applied.
type BlockBreak struct {
	Cancellable
	Player  string
	X, Y, Z int
	Hash    uint32
}

// BlockPlace fires before a block placement is applied.
type BlockPlace struct {
	Cancellable
	Player  string
	X, Y, Z int
	Hash    uint32
}

// PlayerMove fires for validated movement before the new position commits.
type PlayerMove struct {
	Cancellable
	Player string
	From   mgl64.Vec3
	To     mgl64.Vec3
}

// PlayerDamage fires before damage is applied to a player.
type PlayerDamage struct {
	Cancellable
	Player   string
	Damage   float64
	Attacker string // empty for environmental damage
}

// PlayerDeath fires when a player's health reaches zero.
type PlayerDeath struct {
	Player string
}

// PlayerRespawn fires when a dead player re-enters the world.
type PlayerRespawn struct {
	Player string
	Pos    mgl64.Vec3
}

// MobSpawn fires before a mob enters the world.
type MobSpawn struct {
	Cancellable
	Type string
	Pos  mgl64.Vec3
}

// MobDeath fires when a mob dies.
type MobDeath struct {
	RuntimeID uint64
	Type      string
}

// WeatherChange fires when rain starts or stops.
type WeatherChange struct {
	Cancellable
	Raining bool
}

// Handler observes the events a plugin subscribed to. Every method has a
// default no-op through NopHandler, so plugins implement only what they
// need.
type Handler interface {
	HandlePlayerJoin(*PlayerJoin)
	HandlePlayerQuit(*PlayerQuit)
	HandleBlockBreak(*BlockBreak)
	HandleBlockPlace(*BlockPlace)
	HandlePlayerMove(*PlayerMove)
	HandlePlayerDamage(*PlayerDamage)
	HandlePlayerDeath(*PlayerDeath)
	HandlePlayerRespawn(*PlayerRespawn)
	HandleMobSpawn(*MobSpawn)
	HandleMobDeath(*MobDeath)
	HandleWeatherChange(*WeatherChange)
}

// NopHandler implements Handler with no-ops; plugins embed it and override
// selectively.
type NopHandler struct{}

func (NopHandler) HandlePlayerJoin(*PlayerJoin)         {}
func (NopHandler) HandlePlayerQuit(*PlayerQuit)         {}
func (NopHandler) HandleBlockBreak(*BlockBreak)         {}
func (NopHandler) HandleBlockPlace(*BlockPlace)         {}
func (NopHandler) HandlePlayerMove(*PlayerMove)         {}
func (NopHandler) HandlePlayerDamage(*PlayerDamage)     {}
func (NopHandler) HandlePlayerDeath(*PlayerDeath)       {}
func (NopHandler) HandlePlayerRespawn(*PlayerRespawn)   {}
func (NopHandler) HandleMobSpawn(*MobSpawn)             {}
func (NopHandler) HandleMobDeath(*MobDeath)             {}
func (NopHandler) HandleWeatherChange(*WeatherChange)   {}

// eventRegistration ties a handler to the plugin that registered it so a
// plugin's registrations can be removed in bulk when it unloads.
type eventRegistration struct {
	plugin  string
	handler Handler
	id      uint64
}

type eventList struct {
	regs []eventRegistration
	next uint64
}

func (l *eventList) add(plugin string, handler Handler) uint64 {
	id := l.next
	l.next++
	l.regs = append(l.regs, eventRegistration{plugin: plugin, handler: handler, id: id})
	return id
}

func (l *eventList) removeByID(id uint64) {
	regs := l.regs[:0]
	for _, reg := range l.regs {
		if reg.id != id {
			regs = append(regs, reg)
		}
	}
	l.regs = regs
}

func (l *eventList) removePlugin(plugin string) {
	regs := l.regs[:0]
	for _, reg := range l.regs {
		if reg.plugin != plugin {
			regs = append(regs, reg)
		}
	}
	l.regs = regs
}
