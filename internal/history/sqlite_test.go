package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fwbuild/internal/artifact"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(app, buildID string, outcome artifact.Outcome) Record {
	return Record{
		BuildID:    buildID,
		App:        app,
		Outcome:    outcome,
		Revision:   "abc123def456",
		BinarySHA:  "deadbeef",
		BinarySize: 1024,
		DurationMS: 250,
		StartedAt:  time.Now().Truncate(time.Second),
	}
}

func TestSQLiteStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("test", "build-1", artifact.OutcomeSuccess)
	require.NoError(t, store.Record(ctx, rec))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, rec.BuildID, got[0].BuildID)
	assert.Equal(t, rec.App, got[0].App)
	assert.Equal(t, artifact.OutcomeSuccess, got[0].Outcome)
	assert.Equal(t, rec.Revision, got[0].Revision)
	assert.Equal(t, rec.BinarySHA, got[0].BinarySHA)
	assert.Equal(t, rec.BinarySize, got[0].BinarySize)
	assert.Equal(t, rec.DurationMS, got[0].DurationMS)
	assert.Equal(t, rec.StartedAt.Unix(), got[0].StartedAt.Unix())
}

func TestSQLiteStore_RecentNewestFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"build-1", "build-2", "build-3"} {
		require.NoError(t, store.Record(ctx, testRecord("test", id, artifact.OutcomeSuccess)))
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "build-3", got[0].BuildID)
	assert.Equal(t, "build-2", got[1].BuildID)
}

func TestSQLiteStore_ByApp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, testRecord("blinker", "build-1", artifact.OutcomeSuccess)))
	require.NoError(t, store.Record(ctx, testRecord("test", "build-2", artifact.OutcomeFailed)))
	require.NoError(t, store.Record(ctx, testRecord("blinker", "build-3", artifact.OutcomeSuccess)))

	got, err := store.ByApp(ctx, "blinker", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "build-3", got[0].BuildID)
	assert.Equal(t, "build-1", got[1].BuildID)

	none, err := store.ByApp(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, testRecord("test", "build-1", artifact.OutcomeSuccess)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	got, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "build-1", got[0].BuildID)
}

func TestFromManifest(t *testing.T) {
	m := artifact.NewManifest("test", "abc123def456")
	m.Artifacts["binary"] = artifact.Artifact{Path: "test.bin", Size: 512, SHA256: "cafe"}
	m.Finish(artifact.OutcomeSuccess, nil)

	rec := FromManifest(m)
	assert.Equal(t, m.BuildID, rec.BuildID)
	assert.Equal(t, "test", rec.App)
	assert.Equal(t, artifact.OutcomeSuccess, rec.Outcome)
	assert.Equal(t, "cafe", rec.BinarySHA)
	assert.Equal(t, int64(512), rec.BinarySize)
}

func TestFromManifest_NoBinary(t *testing.T) {
	m := artifact.NewManifest("test", "")
	m.Finish(artifact.OutcomeFailed, nil)

	rec := FromManifest(m)
	assert.Empty(t, rec.BinarySHA)
	assert.Zero(t, rec.BinarySize)
}
