// Package snapshot persists world state as zstd-compressed JSON. Only
// base attribute values are captured: current values are derived state and
// are rebuilt from base plus active effects after restore.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/galeforge/tdrpg/internal/data"
	"github.com/galeforge/tdrpg/internal/model"
	"github.com/galeforge/tdrpg/internal/world"
)

// Header identifies a snapshot file.
type Header struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
}

// CharacterV1 is one character's persisted state.
type CharacterV1 struct {
	ObjectID uint32             `json:"object_id"`
	Name     string             `json:"name"`
	Level    int32              `json:"level"`
	Bases    map[string]float64 `json:"bases"`
}

// SnapshotV1 is the on-disk snapshot format.
type SnapshotV1 struct {
	Header     Header        `json:"header"`
	Characters []CharacterV1 `json:"characters"`
}

// Capture builds a snapshot of every live character.
func Capture(arena *world.Arena) *SnapshotV1 {
	chars := arena.Characters()
	snap := &SnapshotV1{
		Header:     Header{Version: 1, SavedAt: time.Now().UTC()},
		Characters: make([]CharacterV1, 0, len(chars)),
	}
	for _, c := range chars {
		store := c.Attributes()
		bases := make(map[string]float64)
		for _, id := range store.IDs() {
			bases[id.Name()] = store.Base(id)
		}
		snap.Characters = append(snap.Characters, CharacterV1{
			ObjectID: c.ObjectID(),
			Name:     c.Name(),
			Level:    c.Level(),
			Bases:    bases,
		})
	}
	return snap
}

// Save writes the snapshot to path atomically (temp file + rename).
func Save(path string, snap *SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	zw, err := zstd.NewWriter(bw)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		zw.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing zstd stream: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming snapshot into place: %w", err)
	}
	return nil
}

// Load reads a snapshot from path.
func Load(path string) (*SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	var snap SnapshotV1
	if err := json.NewDecoder(zr.IOReadCloser()).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Header.Version != 1 {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return &snap, nil
}

// Restore rebuilds characters from the snapshot. Attributes are
// registered with their persisted base (catalog default when the snapshot
// lacks one), then pairs are registered and every resource rewritten
// through its clamp so the in-range invariant holds from the first tick.
func Restore(snap *SnapshotV1, table *data.AttributeTable) []*model.Character {
	out := make([]*model.Character, 0, len(snap.Characters))
	for _, sc := range snap.Characters {
		c := model.NewCharacter(sc.ObjectID, sc.Name, sc.Level)
		table.ApplyWithBases(c.Attributes(), sc.Bases)
		out = append(out, c)
	}
	return out
}
