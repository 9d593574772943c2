package srv

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigDefaultsWrittenAndReloaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	first, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.Server.Address != ":19132" || first.World.SimulationDistance != 4 {
		t.Fatalf("defaults missing: %+v", first)
	}
	second, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if second != first {
		t.Fatalf("reloaded config differs:\n%+v\n%+v", second, first)
	}
}

func TestServerStartStop(t *testing.T) {
	conf := DefaultConfig()
	conf.Server.Address = "127.0.0.1:0"
	conf.World.Directory = t.TempDir()

	s, err := New(conf, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	motd := s.motd()
	if !strings.HasPrefix(motd, "MCPE;") || strings.Count(motd, ";") != 12 {
		t.Fatalf("malformed MOTD: %q", motd)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
