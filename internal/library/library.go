// Package library loads book content from the content directory: manifests,
// chapter markup, alignment artifacts, and audio files.
//
// Layout on disk, one directory per book:
//
//	{content}/{bookID}/manifest.json
//	{content}/{bookID}/{chapter html, alignment json, audio}
package library

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/errors"
)

const manifestFile = "manifest.json"

// Library is an in-memory view of the content directory. Book manifests are
// cached on load and invalidated by the watcher; chapter assets are read from
// disk on demand.
type Library struct {
	basePath string
	logger   *slog.Logger

	mu    sync.RWMutex
	books map[string]*domain.Book

	// onReload, when set, runs after every successful rescan.
	onReload func()
}

// SetOnReload registers a callback invoked after every successful rescan.
// Used to fan out library changes (reindexing, client notifications).
func (l *Library) SetOnReload(fn func()) {
	l.mu.Lock()
	l.onReload = fn
	l.mu.Unlock()
}

// New creates a library over a content directory and performs the initial
// scan.
func New(basePath string, logger *slog.Logger) (*Library, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, errors.Validationf("content path %s is not accessible", basePath).WithCause(err)
	}
	if !info.IsDir() {
		return nil, errors.Validationf("content path %s is not a directory", basePath)
	}

	l := &Library{
		basePath: basePath,
		logger:   logger,
		books:    make(map[string]*domain.Book),
	}
	if err := l.Reload(context.Background()); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload rescans the content directory and replaces the cached manifests.
// A broken manifest skips that book; the rest of the library stays usable.
func (l *Library) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return errors.Internal("reading content directory").WithCause(err)
	}

	books := make(map[string]*domain.Book)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		book, err := l.loadManifest(entry.Name())
		if err != nil {
			l.logger.Warn("skipping book with unreadable manifest",
				"dir", entry.Name(), "error", err)
			continue
		}
		books[book.ID] = book
	}

	l.mu.Lock()
	l.books = books
	onReload := l.onReload
	l.mu.Unlock()

	l.logger.Info("content library loaded", "books", len(books))
	if onReload != nil {
		onReload()
	}
	return nil
}

func (l *Library) loadManifest(dir string) (*domain.Book, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, dir, manifestFile))
	if err != nil {
		return nil, err
	}

	var book domain.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, errors.Validation("manifest is not valid JSON").WithCause(err)
	}
	if book.ID == "" {
		book.ID = dir
	}
	if len(book.Chapters) == 0 {
		return nil, errors.Validationf("manifest for %s lists no chapters", book.ID)
	}
	for i, ch := range book.Chapters {
		if ch.ID == "" {
			return nil, errors.Validationf("manifest for %s: chapter %d has no id", book.ID, i)
		}
	}
	return &book, nil
}

// Books returns all books sorted by title.
func (l *Library) Books(ctx context.Context) ([]*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	books := make([]*domain.Book, 0, len(l.books))
	for _, b := range l.books {
		books = append(books, b)
	}
	l.mu.RUnlock()

	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID < books[j].ID
	})
	return books, nil
}

// Book returns one book by id.
func (l *Library) Book(ctx context.Context, bookID string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	book, ok := l.books[bookID]
	l.mu.RUnlock()
	if !ok {
		return nil, errors.NotFoundf("book %s not found", bookID)
	}
	return book, nil
}

// ChapterHTML reads a chapter's markup from disk.
func (l *Library) ChapterHTML(ctx context.Context, bookID, chapterID string) (string, error) {
	book, ch, err := l.chapter(ctx, bookID, chapterID)
	if err != nil {
		return "", err
	}
	if ch.HTMLFile == "" {
		return "", errors.NotFoundf("chapter %s of %s has no markup", chapterID, book.ID)
	}

	data, err := l.readAsset(book.ID, ch.HTMLFile)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ChapterAlignment reads a chapter's alignment artifact from disk.
// Chapters without alignment are valid; callers fall back to unsynchronized
// rendering.
func (l *Library) ChapterAlignment(ctx context.Context, bookID, chapterID string) ([]byte, bool, error) {
	book, ch, err := l.chapter(ctx, bookID, chapterID)
	if err != nil {
		return nil, false, err
	}
	if ch.AlignmentFile == "" {
		return nil, false, nil
	}

	data, err := l.readAsset(book.ID, ch.AlignmentFile)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// AudioPath returns the on-disk path of a chapter's audio file.
func (l *Library) AudioPath(ctx context.Context, bookID, chapterID string) (string, error) {
	book, ch, err := l.chapter(ctx, bookID, chapterID)
	if err != nil {
		return "", err
	}
	if ch.AudioFile == "" {
		return "", errors.NotFoundf("chapter %s of %s has no audio", chapterID, book.ID)
	}

	path, err := l.assetPath(book.ID, ch.AudioFile)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", errors.NotFoundf("audio for chapter %s of %s is missing", chapterID, book.ID)
	}
	return path, nil
}

func (l *Library) chapter(ctx context.Context, bookID, chapterID string) (*domain.Book, *domain.Chapter, error) {
	book, err := l.Book(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}
	ch := book.Chapter(chapterID)
	if ch == nil {
		return nil, nil, errors.NotFoundf("chapter %s not found in book %s", chapterID, bookID)
	}
	return book, ch, nil
}

func (l *Library) readAsset(bookID, name string) ([]byte, error) {
	path, err := l.assetPath(bookID, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("asset %s of book %s is missing", name, bookID)
	}
	if err != nil {
		return nil, errors.Internalf("reading asset %s of book %s", name, bookID).WithCause(err)
	}
	return data, nil
}

// assetPath resolves an asset name inside a book directory, refusing paths
// that escape it.
func (l *Library) assetPath(bookID, name string) (string, error) {
	bookDir := filepath.Join(l.basePath, bookID)
	path := filepath.Join(bookDir, name)
	if !strings.HasPrefix(path, bookDir+string(filepath.Separator)) {
		return "", errors.Validationf("asset name %q escapes the book directory", name)
	}
	return path, nil
}
