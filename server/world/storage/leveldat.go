package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sago-mc/bedrock/server/protocol"
)

// levelDatVersion is the storage version written in the level.dat header.
const levelDatVersion uint32 = 10

// LevelData is the world metadata kept in level.dat.
type LevelData struct {
	Name        string
	Seed        int64
	SpawnX      int32
	SpawnY      int32
	SpawnZ      int32
	Time        int64
	CurrentTick int64
	Raining     bool
	RainTime    int32
	GameMode    int32
}

// LoadLevelDat reads the world metadata from dir/level.dat. Absence is not
// an error; the zero LevelData with defaults applied is returned so a fresh
// world starts cleanly.
func LoadLevelDat(dir string) (LevelData, error) {
	data := LevelData{Name: "Bedrock world", SpawnY: 5}
	raw, err := os.ReadFile(filepath.Join(dir, "level.dat"))
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("storage: read level.dat: %w", err)
	}
	if len(raw) < 8 {
		return data, fmt.Errorf("storage: level.dat truncated")
	}
	bodyLen := binary.LittleEndian.Uint32(raw[4:8])
	if int(bodyLen) > len(raw)-8 {
		return data, fmt.Errorf("storage: level.dat length field exceeds file size")
	}
	r := protocol.NewReader(raw[8 : 8+bodyLen])
	_, compound, err := protocol.NewNBTReader(r, protocol.DiskEncoding).ReadRootCompound()
	if err != nil {
		return data, fmt.Errorf("storage: decode level.dat: %w", err)
	}
	if v, ok := compound["LevelName"].(string); ok {
		data.Name = v
	}
	if v, ok := compound["RandomSeed"].(int64); ok {
		data.Seed = v
	}
	if v, ok := compound["SpawnX"].(int32); ok {
		data.SpawnX = v
	}
	if v, ok := compound["SpawnY"].(int32); ok {
		data.SpawnY = v
	}
	if v, ok := compound["SpawnZ"].(int32); ok {
		data.SpawnZ = v
	}
	if v, ok := compound["Time"].(int64); ok {
		data.Time = v
	}
	if v, ok := compound["currentTick"].(int64); ok {
		data.CurrentTick = v
	}
	if v, ok := compound["rainLevel"].(int32); ok {
		data.Raining = v > 0
	}
	if v, ok := compound["rainTime"].(int32); ok {
		data.RainTime = v
	}
	if v, ok := compound["GameType"].(int32); ok {
		data.GameMode = v
	}
	return data, nil
}

// SaveLevelDat writes the world metadata, keeping one backup generation in
// level.dat_old.
func SaveLevelDat(dir string, data LevelData) error {
	rain := int32(0)
	if data.Raining {
		rain = 1
	}
	body := protocol.NewWriter()
	protocol.NewNBTWriter(body, protocol.DiskEncoding).WriteRootCompound("", map[string]any{
		"LevelName":   data.Name,
		"RandomSeed":  data.Seed,
		"SpawnX":      data.SpawnX,
		"SpawnY":      data.SpawnY,
		"SpawnZ":      data.SpawnZ,
		"Time":        data.Time,
		"currentTick": data.CurrentTick,
		"rainLevel":   rain,
		"rainTime":    data.RainTime,
		"GameType":    data.GameMode,
	})

	out := make([]byte, 8, 8+len(body.Bytes()))
	binary.LittleEndian.PutUint32(out[0:4], levelDatVersion)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(body.Bytes())))
	out = append(out, body.Bytes()...)

	path := filepath.Join(dir, "level.dat")
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, filepath.Join(dir, "level.dat_old")); err != nil {
			return fmt.Errorf("storage: rotate level.dat backup: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("storage: write level.dat: %w", err)
	}
	return nil
}
