package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/store"
)

func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "progress-store-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath, nil, store.NewNoopEmitter())
	require.NoError(t, err)

	cleanup := func() {
		s.Close()
		os.RemoveAll(tmpDir)
	}
	return s, cleanup
}

func testRecord(bookID string, ts float64) *domain.ProgressRecord {
	return &domain.ProgressRecord{
		BookID:            bookID,
		LastChapterID:     "ch_001",
		LastParagraphID:   "p1",
		LastTimestamp:     ts,
		FurthestChapterID: "ch_001",
		FurthestTimestamp: ts,
	}
}

func TestAccountProgressCRUD(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	_, err := s.GetAccountProgress(ctx, "user-1", "bk_1")
	assert.ErrorIs(t, err, store.ErrProgressNotFound)

	require.NoError(t, s.UpsertAccountProgress(ctx, "user-1", testRecord("bk_1", 30)))

	rec, err := s.GetAccountProgress(ctx, "user-1", "bk_1")
	require.NoError(t, err)
	assert.InDelta(t, 30, rec.LastTimestamp, 1e-9)

	require.NoError(t, s.UpsertAccountProgress(ctx, "user-1", testRecord("bk_1", 90)))
	rec, err = s.GetAccountProgress(ctx, "user-1", "bk_1")
	require.NoError(t, err)
	assert.InDelta(t, 90, rec.LastTimestamp, 1e-9)

	require.NoError(t, s.DeleteAccountProgress(ctx, "user-1", "bk_1"))
	_, err = s.GetAccountProgress(ctx, "user-1", "bk_1")
	assert.ErrorIs(t, err, store.ErrProgressNotFound)
}

func TestAccountProgressIsolatedPerUser(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.UpsertAccountProgress(ctx, "user-1", testRecord("bk_1", 30)))

	_, err := s.GetAccountProgress(ctx, "user-2", "bk_1")
	assert.ErrorIs(t, err, store.ErrProgressNotFound)
}

func TestListAccountProgress(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.UpsertAccountProgress(ctx, "user-1", testRecord("bk_1", 10)))
	require.NoError(t, s.UpsertAccountProgress(ctx, "user-1", testRecord("bk_2", 20)))
	require.NoError(t, s.UpsertAccountProgress(ctx, "user-2", testRecord("bk_3", 30)))

	records, err := s.ListAccountProgress(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	books := []string{records[0].BookID, records[1].BookID}
	assert.ElementsMatch(t, []string{"bk_1", "bk_2"}, books)
}

func TestDeviceProgressScoped(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.UpsertDeviceProgress(ctx, "dev-a", testRecord("bk_1", 15)))

	rec, err := s.GetDeviceProgress(ctx, "dev-a", "bk_1")
	require.NoError(t, err)
	assert.InDelta(t, 15, rec.LastTimestamp, 1e-9)

	_, err = s.GetDeviceProgress(ctx, "dev-b", "bk_1")
	assert.ErrorIs(t, err, store.ErrProgressNotFound)
}

func TestDeviceProgressLegacyFallback(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// a record written under the old unscoped key is still found
	require.NoError(t, s.UpsertDeviceProgress(ctx, "", testRecord("bk_1", 42)))

	rec, err := s.GetDeviceProgress(ctx, "some-new-device", "bk_1")
	require.NoError(t, err)
	assert.InDelta(t, 42, rec.LastTimestamp, 1e-9)

	// once the scoped record exists it wins over the legacy one
	require.NoError(t, s.UpsertDeviceProgress(ctx, "some-new-device", testRecord("bk_1", 99)))
	rec, err = s.GetDeviceProgress(ctx, "some-new-device", "bk_1")
	require.NoError(t, err)
	assert.InDelta(t, 99, rec.LastTimestamp, 1e-9)
}

type captureEmitter struct {
	events []any
}

func (c *captureEmitter) Emit(event any) { c.events = append(c.events, event) }

func TestUpsertAccountProgressEmitsEvent(t *testing.T) {
	tmpDir := t.TempDir()
	emitter := &captureEmitter{}
	s, err := store.New(filepath.Join(tmpDir, "test.db"), nil, emitter)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.UpsertAccountProgress(ctx, "user-1", testRecord("bk_1", 10)))

	require.Len(t, emitter.events, 1)
	evt, ok := emitter.events[0].(store.ProgressUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, "progress.updated", evt.Type)
	assert.Equal(t, "user-1", evt.UserID)
	assert.Equal(t, "bk_1", evt.Progress.BookID)
}
