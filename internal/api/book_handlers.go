package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readalongapp/readalong-server/internal/alignment"
	"github.com/readalongapp/readalong-server/internal/domain"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns every book manifest in the content library",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}",
		Summary:     "Get book",
		Description: "Returns one book manifest with its ordered chapter list",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getChapter",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/chapters/{chapterID}",
		Summary:     "Get chapter",
		Description: "Returns annotated chapter markup with its alignment and audio URL",
		Tags:        []string{"Books"},
	}, s.handleGetChapter)
}

// === DTOs ===

// BookSummary describes one book in list responses.
type BookSummary struct {
	ID           string `json:"id" doc:"Book ID"`
	Title        string `json:"title" doc:"Display title"`
	Author       string `json:"author,omitempty" doc:"Author name"`
	ChapterCount int    `json:"chapter_count" doc:"Number of chapters"`
}

// ListBooksOutput wraps the book list for Huma.
type ListBooksOutput struct {
	Body []BookSummary
}

// GetBookInput identifies one book.
type GetBookInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
}

// GetBookOutput wraps a book manifest for Huma.
type GetBookOutput struct {
	Body *domain.Book
}

// GetChapterInput identifies a chapter, optionally with a deep-link position.
// The deep-link parameters are echoed back as the initial reading position so
// the client can mount the reader without re-parsing the URL.
type GetChapterInput struct {
	BookID      string  `path:"bookID" doc:"Book ID"`
	ChapterID   string  `path:"chapterID" doc:"Chapter ID"`
	ParagraphID string  `query:"paragraphId" doc:"Deep-link paragraph to scroll to on mount"`
	Timestamp   float64 `query:"timestamp" minimum:"0" doc:"Deep-link playback position in seconds"`
}

// InitialPosition is the deep-link position echoed back to the client.
type InitialPosition struct {
	ParagraphID string  `json:"paragraph_id,omitempty" doc:"Paragraph to scroll to"`
	Timestamp   float64 `json:"timestamp,omitempty" doc:"Playback position in seconds"`
}

// ChapterResponse contains an assembled chapter in API responses.
type ChapterResponse struct {
	BookID          string                      `json:"book_id" doc:"Book ID"`
	ChapterID       string                      `json:"chapter_id" doc:"Chapter ID"`
	Title           string                      `json:"title" doc:"Chapter title"`
	HTML            string                      `json:"html" doc:"Chapter markup with word spans wrapped in"`
	Segments        []alignment.Segment         `json:"segments,omitempty" doc:"Paragraph time ranges"`
	Words           map[string][]alignment.Word `json:"words,omitempty" doc:"Word timings keyed by paragraph ID"`
	AudioURL        string                      `json:"audio_url,omitempty" doc:"Audio stream URL, absent for text-only chapters"`
	InitialPosition *InitialPosition            `json:"initial_position,omitempty" doc:"Deep-link position to apply on mount"`
}

// GetChapterOutput wraps the chapter response for Huma.
type GetChapterOutput struct {
	Body ChapterResponse
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	books, err := s.services.Book.ListBooks(ctx)
	if err != nil {
		s.logger.Error("Failed to list books", "error", err)
		return nil, err
	}

	summaries := make([]BookSummary, 0, len(books))
	for _, book := range books {
		summaries = append(summaries, BookSummary{
			ID:           book.ID,
			Title:        book.Title,
			Author:       book.Author,
			ChapterCount: len(book.Chapters),
		})
	}

	return &ListBooksOutput{Body: summaries}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*GetBookOutput, error) {
	book, err := s.services.Book.GetBook(ctx, input.BookID)
	if err != nil {
		return nil, err
	}
	return &GetBookOutput{Body: book}, nil
}

func (s *Server) handleGetChapter(ctx context.Context, input *GetChapterInput) (*GetChapterOutput, error) {
	view, err := s.services.Book.GetChapter(ctx, input.BookID, input.ChapterID)
	if err != nil {
		return nil, err
	}

	resp := ChapterResponse{
		BookID:    view.BookID,
		ChapterID: view.ChapterID,
		Title:     view.Title,
		HTML:      view.HTML,
		Segments:  view.Segments,
		Words:     view.Words,
	}
	if view.HasAudio {
		resp.AudioURL = "/api/v1/books/" + view.BookID + "/chapters/" + view.ChapterID + "/audio"
	}
	if input.ParagraphID != "" || input.Timestamp > 0 {
		resp.InitialPosition = &InitialPosition{
			ParagraphID: input.ParagraphID,
			Timestamp:   input.Timestamp,
		}
	}

	return &GetChapterOutput{Body: resp}, nil
}
