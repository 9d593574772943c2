// Package srv assembles the server: the RakNet listener, the per-player
// session table, the world and its storage, the mob store and the plugin
// manager, all driven by one 50 ms tick loop on a single goroutine.
package srv

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Config is the operator-facing server configuration, loaded from
// server.toml.
type Config struct {
	Server struct {
		Address    string `toml:"address"`
		MOTD       string `toml:"motd"`
		MOTDLine2  string `toml:"motd_line2"`
		MaxPlayers int    `toml:"max_players"`
		GameMode   int32  `toml:"game_mode"`
	} `toml:"server"`
	World struct {
		Directory          string `toml:"directory"`
		ViewDistance       int32  `toml:"view_distance"`
		SimulationDistance int32  `toml:"simulation_distance"`
		Seed               int64  `toml:"seed"`
	} `toml:"world"`
}

// DefaultConfig returns the configuration a fresh server runs with.
func DefaultConfig() Config {
	c := Config{}
	c.Server.Address = ":19132"
	c.Server.MOTD = "Bedrock server"
	c.Server.MOTDLine2 = "A world of blocks"
	c.Server.MaxPlayers = 20
	c.World.Directory = "world"
	c.World.ViewDistance = 8
	c.World.SimulationDistance = 4
	return c
}

// LoadConfig reads server.toml from path, writing the defaults there first
// if the file does not exist yet.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		out, merr := toml.Marshal(c)
		if merr != nil {
			return c, fmt.Errorf("srv: encode default config: %w", merr)
		}
		if werr := os.WriteFile(path, out, 0o644); werr != nil {
			return c, fmt.Errorf("srv: write default config: %w", werr)
		}
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("srv: read config: %w", err)
	}
	if err := toml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("srv: decode config: %w", err)
	}
	return c, nil
}
