package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_StartFinishList(t *testing.T) {
	// Given: a store with a fixed clock
	s := openMemory(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	ctx := context.Background()

	// When: a run starts and completes
	id, err := s.Start(ctx, "https://example.org/api/documentcollection/1/")
	require.NoError(t, err)
	s.now = func() time.Time { return start.Add(90 * time.Second) }
	require.NoError(t, s.Finish(ctx, id, Summary{
		Status:      StatusCompleted,
		Destination: "/tmp/mirror",
		Total:       4,
		Downloaded:  3,
		Skipped:     1,
		Bytes:       2048,
	}))

	// Then: it is listed with its counts
	runs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, "/tmp/mirror", r.Destination)
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 3, r.Downloaded)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, int64(2048), r.Bytes)
	assert.Empty(t, r.Error)
	assert.Equal(t, start, r.StartedAt)
	assert.Equal(t, 90*time.Second, r.Duration())
}

func TestStore_FailedRunKeepsError(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	id, err := s.Start(ctx, "https://example.org/c/")
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx, id, Summary{Status: StatusFailed, Err: errors.New("status 500")}))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "status 500", runs[0].Error)
}

func TestStore_UnfinishedRun(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	_, err := s.Start(ctx, "https://example.org/c/")
	require.NoError(t, err)

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.True(t, runs[0].FinishedAt.IsZero())
	assert.Zero(t, runs[0].Duration())
}

func TestStore_ListNewestFirstWithLimit(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	var ids []int64
	for range 5 {
		id, err := s.Start(ctx, "https://example.org/c/")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[4], runs[0].ID)
	assert.Equal(t, ids[3], runs[1].ID)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestStore_FinishUnknownRun(t *testing.T) {
	s := openMemory(t)

	err := s.Finish(context.Background(), 42, Summary{Status: StatusCompleted})

	assert.Error(t, err)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.Start(ctx, "https://example.org/c/")
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx, id, Summary{Status: StatusNotStarted}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	runs, err := reopened.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusNotStarted, runs[0].Status)
	assert.Equal(t, path, reopened.Path())
}

func TestOpen_CorruptFileIsReset(t *testing.T) {
	// Given: garbage where the database should be
	path := filepath.Join(t.TempDir(), "history.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database, just text padding it out"), 0o644))

	// When: opening
	s, err := Open(path)

	// Then: a fresh, empty history is available
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStore_ClosedRejectsCalls(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Start(context.Background(), "x")
	assert.Error(t, err)
	_, err = s.List(context.Background(), 1)
	assert.Error(t, err)
}
