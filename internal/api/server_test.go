package api

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalongapp/readalong-server/internal/config"
	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/search"
	"github.com/readalongapp/readalong-server/internal/service"
	"github.com/readalongapp/readalong-server/internal/sse"
	"github.com/readalongapp/readalong-server/internal/store"
	"github.com/readalongapp/readalong-server/internal/validation"
)

const testAlignment = `{
	"chapter_id": "ch_001",
	"segments": [
		{"pid": "p1", "begin": 0, "end": 4},
		{"pid": "p2", "begin": 4, "end": 9}
	],
	"words": [
		{"pid": "p1", "widx": 0, "text": "Call", "start_char": 0, "end_char": 4, "begin": 0, "end": 1},
		{"pid": "p1", "widx": 1, "text": "me", "start_char": 5, "end_char": 7, "begin": 1, "end": 2}
	]
}`

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api humatest.TestAPI
}

func writeTestBook(t *testing.T, dir string) {
	t.Helper()
	bookDir := filepath.Join(dir, "bk_moby")
	require.NoError(t, os.MkdirAll(bookDir, 0o755))

	manifest := `{
		"id": "bk_moby",
		"title": "Moby-Dick",
		"author": "Herman Melville",
		"chapters": [
			{"id": "ch_001", "title": "Loomings", "html_file": "ch_001.html", "alignment_file": "ch_001.align.json", "audio_file": "ch_001.m4a"},
			{"id": "ch_002", "title": "Plain", "html_file": "ch_002.html"}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "manifest.json"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "ch_001.html"),
		[]byte(`<p data-pid="p1">Call me Ishmael.</p><p data-pid="p2">Some years ago.</p>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "ch_002.html"),
		[]byte(`<p data-pid="p1">No audio here.</p>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "ch_001.align.json"), []byte(testAlignment), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "ch_001.m4a"), []byte("audio-bytes"), 0o644))
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	contentDir := t.TempDir()
	writeTestBook(t, contentDir)

	logger := slog.New(slog.DiscardHandler)

	lib, err := library.New(contentDir, logger)
	require.NoError(t, err)

	sseManager := sse.NewManager(logger)

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"), nil, sseManager)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ix, err := search.NewIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	cfg := config.ReaderConfig{ScrollMarginPx: 56, WordDriftTolerance: 0.25}
	services := &Services{
		Book:     service.NewBookService(lib, cfg, logger),
		Progress: service.NewProgressService(st, lib, validation.New(), logger),
		Search:   service.NewSearchService(ix, lib, logger),
	}
	require.NoError(t, services.Search.Reindex(context.Background()))

	sseHandler := sse.NewHandler(sseManager, ResolveUser, logger)

	s := NewServer(st, services, sseHandler, sseManager, ProxyAuthenticator{}, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

// envelope mirrors the wire envelope for decoding in tests.
type envelope struct {
	V       int             `json:"v"`
	Success bool            `json:"success"`
	Data    jsontext.Value `json:"data"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), "body: %s", resp.Body.String())
	assert.Equal(t, 1, env.V)
	return env
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "healthy", health.Components["search"].Status)
	assert.Equal(t, "healthy", health.Components["library"].Status)
}

func TestListBooks(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	var books []BookSummary
	require.NoError(t, json.Unmarshal(env.Data, &books))
	require.Len(t, books, 1)
	assert.Equal(t, "bk_moby", books[0].ID)
	assert.Equal(t, 2, books[0].ChapterCount)
}

func TestGetBookNotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/bk_none")
	require.Equal(t, http.StatusNotFound, resp.Code)

	env := decodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestGetChapterAnnotated(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/bk_moby/chapters/ch_001")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	var chapter ChapterResponse
	require.NoError(t, json.Unmarshal(env.Data, &chapter))

	assert.Equal(t, "Loomings", chapter.Title)
	assert.Contains(t, chapter.HTML, `data-widx="0"`)
	assert.Len(t, chapter.Segments, 2)
	assert.Equal(t, "/api/v1/books/bk_moby/chapters/ch_001/audio", chapter.AudioURL)
	assert.Nil(t, chapter.InitialPosition)
}

func TestGetChapterDeepLinkEchoed(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/bk_moby/chapters/ch_001?paragraphId=p2&timestamp=5.5")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	var chapter ChapterResponse
	require.NoError(t, json.Unmarshal(env.Data, &chapter))

	require.NotNil(t, chapter.InitialPosition)
	assert.Equal(t, "p2", chapter.InitialPosition.ParagraphID)
	assert.InDelta(t, 5.5, chapter.InitialPosition.Timestamp, 1e-9)
}

func TestGetChapterWithoutAudio(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/bk_moby/chapters/ch_002")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	var chapter ChapterResponse
	require.NoError(t, json.Unmarshal(env.Data, &chapter))
	assert.Empty(t, chapter.AudioURL)
	assert.Empty(t, chapter.Segments)
}

func TestProgressRequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/progress/bk_moby")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Put("/api/v1/progress/bk_moby", map[string]any{
		"chapter_id": "ch_001",
		"timestamp":  10,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSaveAndGetProgress(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/progress/bk_moby", "X-User-ID: user-1")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Put("/api/v1/progress/bk_moby", "X-User-ID: user-1", map[string]any{
		"chapter_id":   "ch_001",
		"paragraph_id": "p2",
		"timestamp":    42.5,
	})
	require.Equal(t, http.StatusOK, resp.Code, "body: %s", resp.Body.String())

	resp = ts.api.Get("/api/v1/progress/bk_moby", "X-User-ID: user-1")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "ch_001", rec["last_chapter_id"])
	assert.Equal(t, "p2", rec["last_paragraph_id"])

	// Another user's shelf stays empty.
	resp = ts.api.Get("/api/v1/progress/bk_moby", "X-User-ID: user-2")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSaveProgressRejectsUnknownChapter(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/progress/bk_moby", "X-User-ID: user-1", map[string]any{
		"chapter_id": "ch_999",
		"timestamp":  10,
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "VALIDATION", env.Code)
}

func TestListAndDeleteProgress(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/progress", "X-User-ID: user-1")
	require.Equal(t, http.StatusOK, resp.Code)
	env := decodeEnvelope(t, resp)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &records))
	assert.Empty(t, records)

	resp = ts.api.Put("/api/v1/progress/bk_moby", "X-User-ID: user-1", map[string]any{
		"chapter_id": "ch_001",
		"timestamp":  10,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/progress", "X-User-ID: user-1")
	require.Equal(t, http.StatusOK, resp.Code)
	env = decodeEnvelope(t, resp)
	require.NoError(t, json.Unmarshal(env.Data, &records))
	assert.Len(t, records, 1)

	resp = ts.api.Delete("/api/v1/progress/bk_moby", "X-User-ID: user-1")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/progress/bk_moby", "X-User-ID: user-1")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSaveProgressRateLimited(t *testing.T) {
	ts := setupTestServer(t)

	var limited int
	for range 25 {
		resp := ts.api.Put("/api/v1/progress/bk_moby", "X-User-ID: user-1", map[string]any{
			"chapter_id": "ch_001",
			"timestamp":  10,
		})
		if resp.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Positive(t, limited)

	// Other users keep their own budget.
	resp := ts.api.Put("/api/v1/progress/bk_moby", "X-User-ID: user-2", map[string]any{
		"chapter_id": "ch_001",
		"timestamp":  10,
	})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSearchEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/search?q=Ishmael")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	var result struct {
		Total uint64 `json:"total"`
		Hits  []struct {
			BookID      string `json:"book_id"`
			ChapterID   string `json:"chapter_id"`
			ParagraphID string `json:"pid"`
		} `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "bk_moby", result.Hits[0].BookID)
	assert.Equal(t, "ch_001", result.Hits[0].ChapterID)
	assert.Equal(t, "p1", result.Hits[0].ParagraphID)
}

func TestStreamAudio(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/bk_moby/chapters/ch_001/audio", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "audio-bytes", rec.Body.String())
}

func TestStreamAudioRange(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/bk_moby/chapters/ch_001/audio", nil)
	req.Header.Set("Range", "bytes=0-4")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "audio", rec.Body.String())
}

func TestStreamAudioNotFound(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/bk_moby/chapters/ch_002/audio", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsStreamConnects(t *testing.T) {
	ts := setupTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil).WithContext(ctx)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: connected")
}
