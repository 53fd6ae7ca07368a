package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/service"
)

func (s *Server) registerProgressRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress",
		Summary:     "List progress",
		Description: "Returns the account's progress records across all books",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress/{bookID}",
		Summary:     "Get progress",
		Description: "Returns the account's progress record for one book",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveProgress",
		Method:      http.MethodPut,
		Path:        "/api/v1/progress/{bookID}",
		Summary:     "Save progress",
		Description: "Folds a position report into the account's progress record",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSaveProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteProgress",
		Method:      http.MethodDelete,
		Path:        "/api/v1/progress/{bookID}",
		Summary:     "Delete progress",
		Description: "Removes the account's progress record for one book",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteProgress)
}

// === DTOs ===

// ListProgressOutput wraps progress records for Huma.
type ListProgressOutput struct {
	Body []*domain.ProgressRecord
}

// ProgressInput identifies one book's progress record.
type ProgressInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
}

// ProgressOutput wraps one progress record for Huma.
type ProgressOutput struct {
	Body *domain.ProgressRecord
}

// SaveProgressRequest identifies the book and carries the position report.
type SaveProgressRequest struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Body   service.SaveProgressInput
}

// DeleteProgressOutput is an empty body; the envelope carries success.
type DeleteProgressOutput struct {
	Body struct{}
}

// === Handlers ===

func (s *Server) handleListProgress(ctx context.Context, _ *struct{}) (*ListProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.services.Progress.ListProgress(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list progress", "error", err, "user_id", userID)
		return nil, err
	}
	return &ListProgressOutput{Body: records}, nil
}

func (s *Server) handleGetProgress(ctx context.Context, input *ProgressInput) (*ProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.services.Progress.GetProgress(ctx, userID, input.BookID)
	if err != nil {
		return nil, err
	}
	return &ProgressOutput{Body: rec}, nil
}

func (s *Server) handleSaveProgress(ctx context.Context, input *SaveProgressRequest) (*ProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if !s.progressLimiter.Allow(userID) {
		s.logger.Warn("Progress write rate limit exceeded", "user_id", userID, "book_id", input.BookID)
		return nil, huma.Error429TooManyRequests("Too many progress updates. Please slow down.")
	}

	rec, err := s.services.Progress.SaveProgress(ctx, userID, input.BookID, input.Body)
	if err != nil {
		return nil, err
	}
	return &ProgressOutput{Body: rec}, nil
}

func (s *Server) handleDeleteProgress(ctx context.Context, input *ProgressInput) (*DeleteProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Progress.DeleteProgress(ctx, userID, input.BookID); err != nil {
		s.logger.Error("Failed to delete progress", "error", err, "user_id", userID, "book_id", input.BookID)
		return nil, err
	}
	return &DeleteProgressOutput{}, nil
}
