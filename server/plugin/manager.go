package plugin

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/go-gl/mathgl/mgl64"
)

// Plugin is one loaded extension. Name must be unique for the process
// lifetime; Version is informational.
type Plugin interface {
	Name() string
	Version() string
	// Init is called once with the plugin's API handle; the plugin
	// registers its event handlers and tasks here.
	Init(api *API) error
	Close() error
}

// Action is a side-effect a plugin requested during event dispatch. The
// engine drains actions after dispatch returns, never during it, so plugin
// callbacks cannot re-enter the engine.
type Action any

// SendMessage delivers a chat message to one player, or to everyone when
// Player is empty.
type SendMessage struct {
	Player  string
	Message string
}

// Kick disconnects a player.
type Kick struct {
	Player string
	Reason string
}

// Teleport moves a player.
type Teleport struct {
	Player string
	Pos    mgl64.Vec3
}

// Config configures a Manager.
type Config struct {
	Log *slog.Logger
}

// Manager owns the loaded plugin list, the event registrations, the
// deferred-action queue and the scheduled tasks.
type Manager struct {
	log *slog.Logger

	plugins []Plugin
	events  eventList

	actions []Action

	tasks      []*task
	nextTaskID uint64

	currentTick uint64
}

type task struct {
	id       uint64
	plugin   string
	runAt    uint64
	interval uint64 // 0 for one-shot
	fn       func()
}

// NewManager constructs an empty Manager.
func NewManager(conf Config) *Manager {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	return &Manager{log: conf.Log}
}

// Load initializes a plugin and adds it to the dispatch sequence. A
// name collision or Init failure leaves the manager unchanged.
func (m *Manager) Load(p Plugin) error {
	for _, existing := range m.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: name %q already registered", p.Name())
		}
	}
	if err := p.Init(&API{manager: m, plugin: p.Name()}); err != nil {
		m.events.removePlugin(p.Name())
		tasks := m.tasks[:0]
		for _, t := range m.tasks {
			if t.plugin != p.Name() {
				tasks = append(tasks, t)
			}
		}
		m.tasks = tasks
		return fmt.Errorf("plugin: init %q: %w", p.Name(), err)
	}
	m.plugins = append(m.plugins, p)
	m.log.Info("plugin loaded", "name", p.Name(), "version", p.Version())
	return nil
}

// Unload closes a plugin and removes its registrations and tasks.
func (m *Manager) Unload(name string) {
	for i, p := range m.plugins {
		if p.Name() != name {
			continue
		}
		if err := p.Close(); err != nil {
			m.log.Warn("plugin close failed", "name", name, "err", err)
		}
		m.plugins = append(m.plugins[:i], m.plugins[i+1:]...)
		break
	}
	m.events.removePlugin(name)
	tasks := m.tasks[:0]
	for _, t := range m.tasks {
		if t.plugin != name {
			tasks = append(tasks, t)
		}
	}
	m.tasks = tasks
}

// Plugins returns the loaded plugins in dispatch order.
func (m *Manager) Plugins() []Plugin {
	return append([]Plugin(nil), m.plugins...)
}

// Dispatch delivers one event to every registration in order. For
// cancellable events, dispatch stops at the first handler that cancels. A
// panicking handler is contained: the event proceeds as non-cancelled past
// it and the plugin is logged at warn.
func (m *Manager) Dispatch(ev any) {
	for _, reg := range m.events.regs {
		m.dispatchOne(reg, ev)
		if c, ok := ev.(interface{ Cancelled() bool }); ok && c.Cancelled() {
			return
		}
	}
}

func (m *Manager) dispatchOne(reg eventRegistration, ev any) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("plugin event handler panicked",
				"plugin", reg.plugin, "event", fmt.Sprintf("%T", ev),
				"panic", r, "stack", string(debug.Stack()))
		}
	}()
	switch e := ev.(type) {
	case *PlayerJoin:
		reg.handler.HandlePlayerJoin(e)
	case *PlayerQuit:
		reg.handler.HandlePlayerQuit(e)
	case *BlockBreak:
		reg.handler.HandleBlockBreak(e)
	case *BlockPlace:
		reg.handler.HandleBlockPlace(e)
	case *PlayerMove:
		reg.handler.HandlePlayerMove(e)
	case *PlayerDamage:
		reg.handler.HandlePlayerDamage(e)
	case *PlayerDeath:
		reg.handler.HandlePlayerDeath(e)
	case *PlayerRespawn:
		reg.handler.HandlePlayerRespawn(e)
	case *MobSpawn:
		reg.handler.HandleMobSpawn(e)
	case *MobDeath:
		reg.handler.HandleMobDeath(e)
	case *WeatherChange:
		reg.handler.HandleWeatherChange(e)
	}
}

// DrainActions returns and clears the deferred actions plugins queued
// during dispatch. The engine applies them after every dispatch batch.
func (m *Manager) DrainActions() []Action {
	out := m.actions
	m.actions = nil
	return out
}

// TickTasks runs every scheduled task due at the tick given. Repeating
// tasks re-arm themselves; one-shot tasks are removed. A panicking task is
// contained like a panicking event handler.
func (m *Manager) TickTasks(tick uint64) {
	m.currentTick = tick
	remaining := m.tasks[:0]
	for _, t := range m.tasks {
		if t.runAt > tick {
			remaining = append(remaining, t)
			continue
		}
		m.runTask(t)
		if t.interval > 0 {
			t.runAt = tick + t.interval
			remaining = append(remaining, t)
		}
	}
	m.tasks = remaining
}

func (m *Manager) runTask(t *task) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("plugin task panicked", "plugin", t.plugin, "panic", r)
		}
	}()
	t.fn()
}

// Close unloads every plugin.
func (m *Manager) Close() {
	for _, p := range m.Plugins() {
		m.Unload(p.Name())
	}
}

// API is a plugin's handle into the manager. All methods record intent;
// nothing takes effect until the engine drains it.
type API struct {
	manager *Manager
	plugin  string
}

// ListenEvents subscribes the handler to event dispatch. The returned
// function removes the registration.
func (a *API) ListenEvents(h Handler) func() {
	id := a.manager.events.add(a.plugin, h)
	return func() { a.manager.events.removeByID(id) }
}

// SendMessage queues a chat message action.
func (a *API) SendMessage(player, message string) {
	a.manager.actions = append(a.manager.actions, SendMessage{Player: player, Message: message})
}

// Kick queues a kick action.
func (a *API) Kick(player, reason string) {
	a.manager.actions = append(a.manager.actions, Kick{Player: player, Reason: reason})
}

// Teleport queues a teleport action.
func (a *API) Teleport(player string, pos mgl64.Vec3) {
	a.manager.actions = append(a.manager.actions, Teleport{Player: player, Pos: pos})
}

// ScheduleTask runs fn after delay ticks; interval > 0 repeats it every
// interval ticks thereafter. It returns a cancel function.
func (a *API) ScheduleTask(delay, interval uint64, fn func()) func() {
	m := a.manager
	t := &task{id: m.nextTaskID, plugin: a.plugin, runAt: m.currentTick + delay, interval: interval, fn: fn}
	m.nextTaskID++
	m.tasks = append(m.tasks, t)
	return func() {
		tasks := m.tasks[:0]
		for _, other := range m.tasks {
			if other.id != t.id {
				tasks = append(tasks, other)
			}
		}
		m.tasks = tasks
	}
}
