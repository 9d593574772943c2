package plugin

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

type testPlugin struct {
	NopHandler
	name string

	joins   int
	cancelBreaks bool
	breaks  int

	api *API
}

func (p *testPlugin) Name() string    { return p.name }
func (p *testPlugin) Version() string { return "1.0.0" }
func (p *testPlugin) Init(api *API) error {
	p.api = api
	api.ListenEvents(p)
	return nil
}
func (p *testPlugin) Close() error { return nil }

func (p *testPlugin) HandlePlayerJoin(ev *PlayerJoin) { p.joins++ }
func (p *testPlugin) HandleBlockBreak(ev *BlockBreak) {
	p.breaks++
	if p.cancelBreaks {
		ev.Cancel()
	}
}

func TestDispatchReachesAllPlugins(t *testing.T) {
	m := NewManager(Config{})
	a := &testPlugin{name: "a"}
	b := &testPlugin{name: "b"}
	if err := m.Load(a); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(b); err != nil {
		t.Fatal(err)
	}
	m.Dispatch(&PlayerJoin{Name: "Alice"})
	if a.joins != 1 || b.joins != 1 {
		t.Fatalf("joins = %d/%d, want 1/1", a.joins, b.joins)
	}
}

func TestCancellationShortCircuits(t *testing.T) {
	m := NewManager(Config{})
	first := &testPlugin{name: "first", cancelBreaks: true}
	second := &testPlugin{name: "second"}
	if err := m.Load(first); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(second); err != nil {
		t.Fatal(err)
	}
	ev := &BlockBreak{Player: "Alice", X: 1, Y: 2, Z: 3}
	m.Dispatch(ev)
	if !ev.Cancelled() {
		t.Fatal("event not cancelled")
	}
	if second.breaks != 0 {
		t.Fatal("dispatch continued past the cancelling plugin")
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	m := NewManager(Config{})
	if err := m.Load(&testPlugin{name: "dup"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(&testPlugin{name: "dup"}); err == nil {
		t.Fatal("duplicate plugin name accepted")
	}
}

type panickyPlugin struct {
	NopHandler
}

func (p *panickyPlugin) Name() string         { return "panicky" }
func (p *panickyPlugin) Version() string      { return "0.0.1" }
func (p *panickyPlugin) Init(api *API) error  { api.ListenEvents(p); return nil }
func (p *panickyPlugin) Close() error         { return nil }
func (p *panickyPlugin) HandleBlockBreak(*BlockBreak) {
	panic("plugin bug")
}

func TestPanicContained(t *testing.T) {
	m := NewManager(Config{})
	if err := m.Load(&panickyPlugin{}); err != nil {
		t.Fatal(err)
	}
	observer := &testPlugin{name: "observer"}
	if err := m.Load(observer); err != nil {
		t.Fatal(err)
	}
	ev := &BlockBreak{Player: "Alice"}
	m.Dispatch(ev)
	if ev.Cancelled() {
		t.Fatal("panicking handler treated as cancelling")
	}
	if observer.breaks != 1 {
		t.Fatal("dispatch did not continue past the panicking plugin")
	}
}

func TestDeferredActions(t *testing.T) {
	m := NewManager(Config{})
	p := &testPlugin{name: "actor"}
	if err := m.Load(p); err != nil {
		t.Fatal(err)
	}
	p.api.SendMessage("Alice", "hello")
	p.api.Teleport("Alice", mgl64.Vec3{1, 2, 3})

	actions := m.DrainActions()
	if len(actions) != 2 {
		t.Fatalf("%d actions, want 2", len(actions))
	}
	if msg, ok := actions[0].(SendMessage); !ok || msg.Message != "hello" {
		t.Fatalf("first action = %#v", actions[0])
	}
	if len(m.DrainActions()) != 0 {
		t.Fatal("actions not cleared by drain")
	}
}

func TestScheduledTasks(t *testing.T) {
	m := NewManager(Config{})
	p := &testPlugin{name: "scheduler"}
	if err := m.Load(p); err != nil {
		t.Fatal(err)
	}
	var oneShot, repeats int
	p.api.ScheduleTask(5, 0, func() { oneShot++ })
	cancel := p.api.ScheduleTask(2, 3, func() { repeats++ })

	for tick := uint64(1); tick <= 11; tick++ {
		m.TickTasks(tick)
	}
	if oneShot != 1 {
		t.Fatalf("one-shot ran %d times", oneShot)
	}
	// Due at 2, 5, 8, 11.
	if repeats != 4 {
		t.Fatalf("repeating task ran %d times, want 4", repeats)
	}
	cancel()
	m.TickTasks(14)
	if repeats != 4 {
		t.Fatal("cancelled task still ran")
	}
}

func TestUnloadRemovesRegistrations(t *testing.T) {
	m := NewManager(Config{})
	p := &testPlugin{name: "gone"}
	if err := m.Load(p); err != nil {
		t.Fatal(err)
	}
	m.Unload("gone")
	m.Dispatch(&PlayerJoin{Name: "Alice"})
	if p.joins != 0 {
		t.Fatal("unloaded plugin still received events")
	}
}
