package feed

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

func writeSnapshotFile(t *testing.T, dir, name string, d deal.Deal) {
	t.Helper()

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	// Write-then-rename so the watcher never sees a half-written file.
	tmp := filepath.Join(dir, name+".tmp")
	require.NoError(t, os.WriteFile(tmp, raw, 0o600))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, name)))
}

func TestDirectoryFeed_ReplaysExistingSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeSnapshotFile(t, dir, "deal-1.json", feedTestDeal())

	f := NewDirectoryFeed(dir, "deal-1", testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan deal.Deal, 4)
	done := make(chan error, 1)

	go func() { done <- f.Run(ctx, snapshots) }()

	select {
	case got := <-snapshots:
		assert.Equal(t, "deal-1", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("existing snapshot not replayed")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestDirectoryFeed_EmitsOnNewFile(t *testing.T) {
	dir := t.TempDir()
	f := NewDirectoryFeed(dir, "deal-1", testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan deal.Deal, 4)

	go func() { _ = f.Run(ctx, snapshots) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	updated := feedTestDeal()
	updated.Name = "Project Alder II"
	writeSnapshotFile(t, dir, "refresh-001.json", updated)

	select {
	case got := <-snapshots:
		assert.Equal(t, "Project Alder II", got.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("new snapshot file not emitted")
	}
}

func TestDirectoryFeed_IgnoresOtherDealsAndGarbage(t *testing.T) {
	dir := t.TempDir()

	other := feedTestDeal()
	other.ID = "deal-2"
	writeSnapshotFile(t, dir, "other.json", other)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{not json"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignore me"), 0o600))

	f := NewDirectoryFeed(dir, "deal-1", testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan deal.Deal, 4)

	go func() { _ = f.Run(ctx, snapshots) }()

	select {
	case got := <-snapshots:
		t.Fatalf("unexpected snapshot emitted: %+v", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDirectoryFeed_MissingDir(t *testing.T) {
	f := NewDirectoryFeed(filepath.Join(t.TempDir(), "absent"), "deal-1", testLogger(t))

	err := f.Run(context.Background(), make(chan deal.Deal, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watching snapshot dir")
}
