package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/sago-mc/bedrock/server/world/chunk"
)

// chunkVersion is the value written under the version tag for chunks saved
// in the native format.
const chunkVersion byte = 40

// finalizationDone marks a fully generated, persisted chunk.
const finalizationDone uint32 = 2

// Config configures a Provider.
type Config struct {
	Log *slog.Logger
}

// Provider owns the world directory: the chunk LevelDB under db/ and the
// level.dat metadata blob. All access happens from the main server task;
// the provider performs no locking of its own.
type Provider struct {
	log *slog.Logger
	dir string
	db  *leveldb.DB

	// imported reports whether the database was produced by BDS and needs
	// its sections converted from NBT palettes on load.
	imported bool
}

// Open opens or creates the world directory at dir. Inability to open the
// database is returned as an error the caller treats as fatal at startup.
func Open(dir string, conf Config) (*Provider, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dir, "db"), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create world dir: %w", err)
	}
	db, err := leveldb.OpenFile(filepath.Join(dir, "db"), nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open leveldb: %w", err)
	}
	p := &Provider{log: conf.Log, dir: dir, db: db}

	_, err = db.Get(formatMarkerKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		// No marker: either a fresh world or a BDS world. A fresh world has
		// no chunk versions either; a BDS world does and is converted on
		// first access.
		p.imported = p.hasAnyChunk()
		if p.imported {
			p.log.Info("opened BDS-format world, converting to native palettes on access", "dir", dir)
		}
		if err := db.Put(formatMarkerKey, []byte{1}, nil); err != nil {
			return nil, fmt.Errorf("storage: write format marker: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("storage: read format marker: %w", err)
	}
	return p, nil
}

// hasAnyChunk reports whether the database holds at least one chunk
// version record.
func (p *Provider) hasAnyChunk() bool {
	it := p.db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		if _, _, _, tag, _, ok := parseChunkKey(it.Key()); ok && tag == tagVersion {
			return true
		}
	}
	return false
}

// LoadColumn reads the column at (x, z) from disk. The second return is
// false if the chunk was never persisted; the caller generates it instead.
func (p *Provider) LoadColumn(x, z int32, dim Dimension) (*chunk.Column, bool, error) {
	if _, err := p.db.Get(chunkKey(x, z, dim, tagVersion), nil); err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage: read chunk version %d,%d: %w", x, z, err)
	}
	col := chunk.NewColumn(x, z)

	if data, err := p.db.Get(chunkKey(x, z, dim, tagData2D), nil); err == nil {
		col.LoadData2D(data)
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, fmt.Errorf("storage: read data2d %d,%d: %w", x, z, err)
	}

	for i := 0; i < chunk.SubChunkCount; i++ {
		yIndex := int8(i) + chunk.MinY>>4
		data, err := p.db.Get(chunkKey(x, z, dim, tagSubChunk, yIndex), nil)
		if errors.Is(err, leveldb.ErrNotFound) {
			continue // all-air section
		}
		if err != nil {
			return nil, false, fmt.Errorf("storage: read sub-chunk %d,%d y=%d: %w", x, z, yIndex, err)
		}
		var sub *chunk.SubChunk
		if p.imported {
			sub, _, err = chunk.DecodeSubChunkBDS(data)
		} else {
			sub, _, err = chunk.DecodeSubChunkDisk(data)
		}
		if err != nil {
			return nil, false, fmt.Errorf("storage: decode sub-chunk %d,%d y=%d: %w", x, z, yIndex, err)
		}
		col.SetSub(i, sub)
	}
	if p.imported {
		// Re-save in the native format on the next flush.
		col.MarkDirty()
	} else {
		col.MarkClean()
	}
	return col, true, nil
}

// SaveColumn writes a column's version, Data2D, every sub-chunk and the
// finalized state. It is called only for dirty columns; the caller clears
// the dirty flag on success and re-marks it on failure so the next flush
// retries.
func (p *Provider) SaveColumn(col *chunk.Column, dim Dimension) error {
	x, z := col.X, col.Z
	if err := p.db.Put(chunkKey(x, z, dim, tagVersion), []byte{chunkVersion}, nil); err != nil {
		return fmt.Errorf("storage: write chunk version %d,%d: %w", x, z, err)
	}
	if err := p.db.Put(chunkKey(x, z, dim, tagData2D), col.Data2D(), nil); err != nil {
		return fmt.Errorf("storage: write data2d %d,%d: %w", x, z, err)
	}
	for i := 0; i < chunk.SubChunkCount; i++ {
		yIndex := int8(i) + chunk.MinY>>4
		data := chunk.EncodeSubChunkDisk(col.Sub(i), yIndex)
		if err := p.db.Put(chunkKey(x, z, dim, tagSubChunk, yIndex), data, nil); err != nil {
			return fmt.Errorf("storage: write sub-chunk %d,%d y=%d: %w", x, z, yIndex, err)
		}
	}
	final := []byte{byte(finalizationDone), 0, 0, 0}
	if err := p.db.Put(chunkKey(x, z, dim, tagFinalization), final, nil); err != nil {
		return fmt.Errorf("storage: write finalization %d,%d: %w", x, z, err)
	}
	return nil
}

// LoadBlockEntities reads the raw block-entity NBT blob for a chunk, loaded
// lazily when the chunk becomes player-visible.
func (p *Provider) LoadBlockEntities(x, z int32, dim Dimension) ([]byte, error) {
	data, err := p.db.Get(chunkKey(x, z, dim, tagBlockEntity), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// SaveBlockEntities writes the raw block-entity NBT blob for a chunk.
func (p *Provider) SaveBlockEntities(x, z int32, dim Dimension, data []byte) error {
	return p.db.Put(chunkKey(x, z, dim, tagBlockEntity), data, nil)
}

// Close flushes and releases the database.
func (p *Provider) Close() error {
	return p.db.Close()
}
