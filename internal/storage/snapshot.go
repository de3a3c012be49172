// Package storage persists the durable chat logs as a single JSON
// snapshot file. Presence and room membership are connection-lifetime
// state and are never written here.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"freechat/internal/domain"
)

// Snapshot is the full durable state: the public log, every pair log
// keyed by its canonical pair key, and every room log keyed by name.
type Snapshot struct {
	Public []domain.Message                  `json:"public"`
	Direct map[string][]domain.DirectMessage `json:"direct"`
	Rooms  map[string][]domain.Message       `json:"rooms"`
}

func EmptySnapshot() Snapshot {
	return Snapshot{
		Direct: make(map[string][]domain.DirectMessage),
		Rooms:  make(map[string][]domain.Message),
	}
}

// SnapshotStore writes and restores the snapshot file. Writes go
// through a temp file and a rename so a crash mid-write leaves the
// previous snapshot intact.
type SnapshotStore struct {
	fs   afero.Fs
	path string
}

func NewSnapshotStore(fs afero.Fs, path string) *SnapshotStore {
	return &SnapshotStore{fs: fs, path: path}
}

// Save overwrites the snapshot file with the full durable state.
func (s *SnapshotStore) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	log.Debug().Str("module", "storage").Str("path", s.path).Int("bytes", len(data)).Msg("snapshot saved")
	return nil
}

// Load restores the last written snapshot. A missing file yields empty
// logs for all three categories.
func (s *SnapshotStore) Load() (Snapshot, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if os.IsNotExist(err) {
		log.Info().Str("module", "storage").Str("path", s.path).Msg("no snapshot, starting empty")
		return EmptySnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	snap := EmptySnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Direct == nil {
		snap.Direct = make(map[string][]domain.DirectMessage)
	}
	if snap.Rooms == nil {
		snap.Rooms = make(map[string][]domain.Message)
	}
	return snap, nil
}
