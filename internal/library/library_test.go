package library_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/library"
)

const testManifest = `{
	"id": "bk_moby",
	"title": "Moby-Dick",
	"author": "Herman Melville",
	"chapters": [
		{"id": "ch_001", "title": "Loomings", "html_file": "ch_001.html", "alignment_file": "ch_001.align.json", "audio_file": "ch_001.m4a"},
		{"id": "ch_002", "title": "The Carpet-Bag", "html_file": "ch_002.html"}
	]
}`

func setupContentDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	bookDir := filepath.Join(dir, "bk_moby")
	require.NoError(t, os.MkdirAll(bookDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "manifest.json"), []byte(testManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "ch_001.html"), []byte(`<p data-pid="p1">Call me Ishmael.</p>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "ch_001.align.json"), []byte(`{"segments":[{"pid":"p1","begin":0,"end":5}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "ch_001.m4a"), []byte("audio-bytes"), 0o644))
	return dir
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLibraryLoadsBooks(t *testing.T) {
	l, err := library.New(setupContentDir(t), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	books, err := l.Books(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "bk_moby", books[0].ID)
	assert.Len(t, books[0].Chapters, 2)

	book, err := l.Book(ctx, "bk_moby")
	require.NoError(t, err)
	assert.Equal(t, "Moby-Dick", book.Title)

	_, err = l.Book(ctx, "bk_missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestChapterAssets(t *testing.T) {
	l, err := library.New(setupContentDir(t), testLogger())
	require.NoError(t, err)

	ctx := context.Background()

	html, err := l.ChapterHTML(ctx, "bk_moby", "ch_001")
	require.NoError(t, err)
	assert.Contains(t, html, "Call me Ishmael.")

	data, ok, err := l.ChapterAlignment(ctx, "bk_moby", "ch_001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, string(data), `"pid"`)

	// chapter without alignment is valid
	_, ok, err = l.ChapterAlignment(ctx, "bk_moby", "ch_002")
	require.NoError(t, err)
	assert.False(t, ok)

	path, err := l.AudioPath(ctx, "bk_moby", "ch_001")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = l.AudioPath(ctx, "bk_moby", "ch_002")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = l.ChapterHTML(ctx, "bk_moby", "ch_999")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestBrokenManifestSkipsBook(t *testing.T) {
	dir := setupContentDir(t)
	badDir := filepath.Join(dir, "bk_broken")
	require.NoError(t, os.MkdirAll(badDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(badDir, "manifest.json"), []byte("{not json"), 0o644))

	l, err := library.New(dir, testLogger())
	require.NoError(t, err)

	books, err := l.Books(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "bk_moby", books[0].ID)
}

func TestReloadPicksUpNewBook(t *testing.T) {
	dir := setupContentDir(t)
	l, err := library.New(dir, testLogger())
	require.NoError(t, err)

	newDir := filepath.Join(dir, "bk_new")
	require.NoError(t, os.MkdirAll(newDir, 0o755))
	manifest := `{"id": "bk_new", "title": "New Book", "chapters": [{"id": "ch_001", "title": "One", "html_file": "ch_001.html"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(newDir, "manifest.json"), []byte(manifest), 0o644))

	ctx := context.Background()
	require.NoError(t, l.Reload(ctx))

	books, err := l.Books(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestReloadHookFires(t *testing.T) {
	dir := setupContentDir(t)
	l, err := library.New(dir, testLogger())
	require.NoError(t, err)

	fired := 0
	l.SetOnReload(func() { fired++ })

	require.NoError(t, l.Reload(context.Background()))
	require.NoError(t, l.Reload(context.Background()))
	assert.Equal(t, 2, fired)
}

func TestAssetPathEscapeRefused(t *testing.T) {
	dir := setupContentDir(t)
	manifest := `{"id": "bk_evil", "title": "Evil", "chapters": [{"id": "ch_001", "title": "One", "html_file": "../bk_moby/ch_001.html"}]}`
	evilDir := filepath.Join(dir, "bk_evil")
	require.NoError(t, os.MkdirAll(evilDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(evilDir, "manifest.json"), []byte(manifest), 0o644))

	l, err := library.New(dir, testLogger())
	require.NoError(t, err)

	_, err = l.ChapterHTML(context.Background(), "bk_evil", "ch_001")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestNewRejectsMissingPath(t *testing.T) {
	_, err := library.New("/nonexistent/content/path", testLogger())
	assert.Error(t, err)
}
