package storage

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"freechat/internal/domain"
)

func TestSnapshotStore_LoadWithoutFile(t *testing.T) {
	store := NewSnapshotStore(afero.NewMemMapFs(), "data/chat.json")

	snap, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, snap.Public)
	require.Empty(t, snap.Direct)
	require.Empty(t, snap.Rooms)
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	req := require.New(t)
	fs := afero.NewMemMapFs()
	store := NewSnapshotStore(fs, "data/chat.json")

	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	snap := EmptySnapshot()
	snap.Public = []domain.Message{
		{Sender: "Ann", Text: "hello", Timestamp: at},
		{Sender: "Bob", Text: "hi", Timestamp: at.Add(time.Minute)},
	}
	snap.Direct[domain.PairKey("Ann", "Bob")] = []domain.DirectMessage{
		{From: "Ann", To: "Bob", Text: "psst", Timestamp: at},
	}
	snap.Rooms["lobby"] = []domain.Message{
		{Sender: "Ann", Text: "anyone here?", Timestamp: at},
	}

	req.NoError(store.Save(snap))

	loaded, err := store.Load()
	req.NoError(err)
	req.Equal(snap, loaded)
}

func TestSnapshotStore_SaveOverwrites(t *testing.T) {
	req := require.New(t)
	fs := afero.NewMemMapFs()
	store := NewSnapshotStore(fs, "data/chat.json")

	first := EmptySnapshot()
	first.Public = []domain.Message{{Sender: "Ann", Text: "one", Timestamp: time.Now().UTC()}}
	req.NoError(store.Save(first))

	second := EmptySnapshot()
	second.Public = []domain.Message{{Sender: "Ann", Text: "two", Timestamp: time.Now().UTC()}}
	req.NoError(store.Save(second))

	loaded, err := store.Load()
	req.NoError(err)
	req.Len(loaded.Public, 1)
	req.Equal("two", loaded.Public[0].Text)

	// the temp file must not linger after a successful commit
	exists, err := afero.Exists(fs, "data/chat.json.tmp")
	req.NoError(err)
	req.False(exists)
}

func TestSnapshotStore_LoadCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "data/chat.json", []byte("{not json"), 0o644))

	_, err := NewSnapshotStore(fs, "data/chat.json").Load()
	require.Error(t, err)
}
