package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/sago-mc/bedrock/server/world/chunk"
)

// ExportBDS walks every sub-chunk record in the provider's database,
// re-encodes it with NBT-compound palette entries and writes the result to
// a standard Bedrock LevelDB in targetDir, which a vanilla BDS can open
// directly. Non-section records (version, Data2D, block entities,
// finalization) are copied through unchanged.
func (p *Provider) ExportBDS(targetDir string) error {
	if err := os.MkdirAll(filepath.Join(targetDir, "db"), 0o755); err != nil {
		return fmt.Errorf("storage: create export dir: %w", err)
	}
	out, err := leveldb.OpenFile(filepath.Join(targetDir, "db"), nil)
	if err != nil {
		return fmt.Errorf("storage: open export leveldb: %w", err)
	}
	defer out.Close()

	it := p.db.NewIterator(nil, nil)
	defer it.Release()
	exported := 0
	for it.Next() {
		key := it.Key()
		_, _, _, tag, yIndex, ok := parseChunkKey(key)
		if !ok {
			continue // format marker and other non-chunk records stay behind
		}
		value := it.Value()
		if tag == tagSubChunk {
			sub, _, err := chunk.DecodeSubChunkDisk(value)
			if err != nil {
				p.log.Warn("skipping undecodable sub-chunk on export", "key", fmt.Sprintf("%x", key), "err", err)
				continue
			}
			value = chunk.EncodeSubChunkBDS(sub, yIndex)
			exported++
		}
		keyCopy := append([]byte(nil), key...)
		if err := out.Put(keyCopy, append([]byte(nil), value...), nil); err != nil {
			return fmt.Errorf("storage: export put: %w", err)
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("storage: export iteration: %w", err)
	}
	// The exported world gets a plain level.dat copy if one exists.
	if raw, err := os.ReadFile(filepath.Join(p.dir, "level.dat")); err == nil {
		if err := os.WriteFile(filepath.Join(targetDir, "level.dat"), raw, 0o644); err != nil {
			return fmt.Errorf("storage: export level.dat: %w", err)
		}
	}
	p.log.Info("exported world in BDS palette format", "dir", targetDir, "subChunks", exported)
	return nil
}

// ImportBDS eagerly converts every BDS NBT-palette sub-chunk in the
// database to the native format in place and clears the provider's import
// flag, so later loads use the native decoder. The format marker is not
// touched here; Open already wrote it. Loading converts lazily already; this
// walk exists for operators who want the conversion done up front.
func (p *Provider) ImportBDS() error {
	if !p.imported {
		return nil
	}
	it := p.db.NewIterator(nil, nil)
	defer it.Release()
	converted := 0
	for it.Next() {
		key := it.Key()
		_, _, _, tag, yIndex, ok := parseChunkKey(key)
		if !ok || tag != tagSubChunk {
			continue
		}
		sub, _, err := chunk.DecodeSubChunkBDS(it.Value())
		if err != nil {
			p.log.Warn("skipping undecodable sub-chunk on import", "key", fmt.Sprintf("%x", key), "err", err)
			continue
		}
		keyCopy := append([]byte(nil), key...)
		if err := p.db.Put(keyCopy, chunk.EncodeSubChunkDisk(sub, yIndex), nil); err != nil {
			return fmt.Errorf("storage: import put: %w", err)
		}
		converted++
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("storage: import iteration: %w", err)
	}
	p.imported = false
	p.log.Info("imported BDS world into native palette format", "subChunks", converted)
	return nil
}
