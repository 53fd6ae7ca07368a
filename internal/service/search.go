package service

import (
	"context"
	"log/slog"

	"github.com/readalongapp/readalong-server/internal/annotate"
	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/normalize"
	"github.com/readalongapp/readalong-server/internal/search"
)

// SearchService indexes book paragraphs and answers queries.
type SearchService struct {
	index   *search.Index
	library *library.Library
	logger  *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(ix *search.Index, lib *library.Library, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:   ix,
		library: lib,
		logger:  logger,
	}
}

// Search runs a paragraph query.
func (s *SearchService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	return s.index.Search(ctx, params)
}

// DocumentCount reports the number of indexed paragraphs.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// Reindex rebuilds the paragraph index from the library. Chapters whose
// markup cannot be parsed are skipped; everything else stays searchable.
func (s *SearchService) Reindex(ctx context.Context) error {
	if err := s.index.Rebuild(); err != nil {
		return err
	}

	books, err := s.library.Books(ctx)
	if err != nil {
		return err
	}

	var total int
	for _, book := range books {
		var docs []*search.ParagraphDocument
		for _, chapter := range book.Chapters {
			html, err := s.library.ChapterHTML(ctx, book.ID, chapter.ID)
			if err != nil {
				s.logger.Warn("skipping chapter in reindex",
					"book_id", book.ID, "chapter_id", chapter.ID, "error", err)
				continue
			}
			doc, err := annotate.ParseChapter(html)
			if err != nil {
				s.logger.Warn("skipping unparseable chapter in reindex",
					"book_id", book.ID, "chapter_id", chapter.ID, "error", err)
				continue
			}

			for _, pid := range doc.ParagraphIDs() {
				text := normalize.Text(doc.Text(pid))
				if text == "" {
					continue
				}
				docs = append(docs, &search.ParagraphDocument{
					ID:           search.DocumentID(book.ID, chapter.ID, pid),
					BookID:       book.ID,
					BookTitle:    book.Title,
					ChapterID:    chapter.ID,
					ChapterTitle: chapter.Title,
					ParagraphID:  pid,
					Text:         text,
				})
			}
		}
		if len(docs) == 0 {
			continue
		}
		if err := s.index.IndexParagraphs(docs); err != nil {
			return err
		}
		total += len(docs)
	}

	s.logger.Info("search reindex complete", "books", len(books), "paragraphs", total)
	return nil
}
