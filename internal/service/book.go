// Package service implements the application services behind the API:
// assembling chapters for the reader, persisting progress, and search.
package service

import (
	"context"
	"log/slog"

	"github.com/readalongapp/readalong-server/internal/alignment"
	"github.com/readalongapp/readalong-server/internal/annotate"
	"github.com/readalongapp/readalong-server/internal/config"
	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/library"
)

// ChapterView is everything a reader client needs to render one chapter.
type ChapterView struct {
	BookID    string                      `json:"book_id"`
	ChapterID string                      `json:"chapter_id"`
	Title     string                      `json:"title"`
	HTML      string                      `json:"html"`
	Segments  []alignment.Segment         `json:"segments"`
	Words     map[string][]alignment.Word `json:"words,omitempty"`
	HasAudio  bool                        `json:"has_audio"`
}

// BookService assembles books and chapters from the content library.
type BookService struct {
	library *library.Library
	cfg     config.ReaderConfig
	logger  *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(lib *library.Library, cfg config.ReaderConfig, logger *slog.Logger) *BookService {
	return &BookService{
		library: lib,
		cfg:     cfg,
		logger:  logger,
	}
}

// ListBooks returns the library's books.
func (s *BookService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.library.Books(ctx)
}

// GetBook returns one book's manifest.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	return s.library.Book(ctx, bookID)
}

// GetChapter assembles a chapter for the reader: markup with word spans
// wrapped in, plus the normalized alignment the client highlights from.
//
// A chapter without alignment renders plain text. A chapter with broken
// alignment fails loudly; serving silently unsynchronized audio would be
// worse than an error.
func (s *BookService) GetChapter(ctx context.Context, bookID, chapterID string) (*ChapterView, error) {
	book, err := s.library.Book(ctx, bookID)
	if err != nil {
		return nil, err
	}
	chapter := book.Chapter(chapterID)
	if chapter == nil {
		return nil, errors.NotFoundf("chapter %s not found in book %s", chapterID, bookID)
	}

	html, err := s.library.ChapterHTML(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}

	view := &ChapterView{
		BookID:    bookID,
		ChapterID: chapterID,
		Title:     chapter.Title,
		HTML:      html,
		HasAudio:  chapter.AudioFile != "",
	}

	raw, hasAlignment, err := s.library.ChapterAlignment(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}
	if !hasAlignment {
		return view, nil
	}

	file, err := alignment.Parse(raw)
	if err != nil {
		return nil, errors.Internalf("alignment for chapter %s of %s is malformed", chapterID, bookID).WithCause(err)
	}
	index := alignment.NewIndex(file, s.cfg.WordDriftTolerance)
	view.Segments = index.Segments()

	doc, err := annotate.ParseChapter(html)
	if err != nil {
		return nil, errors.Internalf("markup for chapter %s of %s is not renderable", chapterID, bookID).WithCause(err)
	}
	doc.AnnotateAll(index, s.logger)
	annotated, err := doc.Render()
	if err != nil {
		return nil, err
	}
	view.HTML = annotated

	if index.HasWords() {
		view.Words = make(map[string][]alignment.Word)
		for _, seg := range index.Segments() {
			if words := index.Words(seg.ParagraphID); len(words) > 0 {
				view.Words[seg.ParagraphID] = words
			}
		}
	}

	return view, nil
}

// ChapterIndex builds the time index for one chapter. Used by server-side
// reading sessions.
func (s *BookService) ChapterIndex(ctx context.Context, bookID, chapterID string) (*alignment.Index, error) {
	raw, hasAlignment, err := s.library.ChapterAlignment(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}
	if !hasAlignment {
		return nil, errors.NotFoundf("chapter %s of %s has no alignment", chapterID, bookID)
	}

	file, err := alignment.Parse(raw)
	if err != nil {
		return nil, err
	}
	return alignment.NewIndex(file, s.cfg.WordDriftTolerance), nil
}

// AudioPath resolves the audio file for a chapter.
func (s *BookService) AudioPath(ctx context.Context, bookID, chapterID string) (string, error) {
	return s.library.AudioPath(ctx, bookID, chapterID)
}
