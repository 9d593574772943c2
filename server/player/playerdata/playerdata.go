// Package playerdata persists per-player state as JSON files under the
// world's players/ directory, keyed by the player's UUID.
package playerdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Item is one persisted inventory slot. A zero RuntimeID is an empty slot.
type Item struct {
	RuntimeID int32          `json:"runtimeId"`
	Count     uint16         `json:"count,omitempty"`
	Metadata  uint32         `json:"metadata,omitempty"`
	NBT       map[string]any `json:"nbt,omitempty"`

	CanPlaceOn []string `json:"canPlaceOn,omitempty"`
	CanDestroy []string `json:"canDestroy,omitempty"`
}

// Effect is one persisted status effect.
type Effect struct {
	ID             int32 `json:"id"`
	Amplifier      int32 `json:"amplifier"`
	RemainingTicks int32 `json:"remainingTicks"`
}

// Data is the full persisted state of one player.
type Data struct {
	Name     string     `json:"name"`
	XUID     string     `json:"xuid,omitempty"`
	Position [3]float64 `json:"position"`
	Yaw      float64    `json:"yaw"`
	Pitch    float64    `json:"pitch"`
	GameMode int32      `json:"gameMode"`

	Health     float64 `json:"health"`
	Food       int32   `json:"food"`
	Saturation float64 `json:"saturation"`
	Exhaustion float64 `json:"exhaustion"`

	FireTicks    int32   `json:"fireTicks"`
	AirTicks     int32   `json:"airTicks"`
	FallDistance float64 `json:"fallDistance"`

	Inventory Inventory `json:"inventory"`
	Effects   []Effect  `json:"effects,omitempty"`

	XPLevel int32 `json:"xpLevel"`
	XPTotal int32 `json:"xpTotal"`
}

// Inventory mirrors the player's slot layout: 36 main slots, 4 armor
// slots, the offhand slot and the selected hotbar index.
type Inventory struct {
	Main     [36]Item `json:"main"`
	Armor    [4]Item  `json:"armor"`
	Offhand  Item     `json:"offhand"`
	HeldSlot byte     `json:"heldSlot"`
}

// Load reads the persisted state for id from the players directory under
// worldDir. Absence returns ok=false with no error; the caller falls back
// to Default.
func Load(worldDir string, id uuid.UUID) (Data, bool, error) {
	raw, err := os.ReadFile(path(worldDir, id))
	if os.IsNotExist(err) {
		return Data{}, false, nil
	}
	if err != nil {
		return Data{}, false, fmt.Errorf("playerdata: read %s: %w", id, err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, false, fmt.Errorf("playerdata: decode %s: %w", id, err)
	}
	return d, true, nil
}

// Save writes the persisted state for id.
func Save(worldDir string, id uuid.UUID, d Data) error {
	if err := os.MkdirAll(filepath.Join(worldDir, "players"), 0o755); err != nil {
		return fmt.Errorf("playerdata: create players dir: %w", err)
	}
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("playerdata: encode %s: %w", id, err)
	}
	if err := os.WriteFile(path(worldDir, id), raw, 0o644); err != nil {
		return fmt.Errorf("playerdata: write %s: %w", id, err)
	}
	return nil
}

func path(worldDir string, id uuid.UUID) string {
	return filepath.Join(worldDir, "players", id.String()+".json")
}
