package service

import (
	"context"
	"log/slog"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/store"
	"github.com/readalongapp/readalong-server/internal/validation"
)

// SaveProgressInput is a position report from a reader client.
type SaveProgressInput struct {
	ChapterID   string  `json:"chapter_id" validate:"required"`
	ParagraphID string  `json:"paragraph_id,omitempty"`
	Timestamp   float64 `json:"timestamp" validate:"gte=0"`
}

// ProgressService persists account progress.
type ProgressService struct {
	store     *store.Store
	library   *library.Library
	validator *validation.Validator
	logger    *slog.Logger
}

// NewProgressService creates a new progress service.
func NewProgressService(s *store.Store, lib *library.Library, v *validation.Validator, logger *slog.Logger) *ProgressService {
	return &ProgressService{
		store:     s,
		library:   lib,
		validator: v,
		logger:    logger,
	}
}

// GetProgress returns a user's record for one book.
func (s *ProgressService) GetProgress(ctx context.Context, userID, bookID string) (*domain.ProgressRecord, error) {
	if _, err := s.library.Book(ctx, bookID); err != nil {
		return nil, err
	}
	return s.store.GetAccountProgress(ctx, userID, bookID)
}

// SaveProgress folds a position report into the user's record. The furthest
// position is recomputed against the book's chapter order, so a re-read
// never loses the high-water mark.
func (s *ProgressService) SaveProgress(ctx context.Context, userID, bookID string, input SaveProgressInput) (*domain.ProgressRecord, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	book, err := s.library.Book(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.Chapter(input.ChapterID) == nil {
		return nil, errors.Validationf("chapter %s is not part of book %s", input.ChapterID, bookID)
	}

	previous, err := s.store.GetAccountProgress(ctx, userID, bookID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	rec := domain.NewProgressRecord(bookID, book.Order(), previous, domain.Position{
		ChapterID:   input.ChapterID,
		ParagraphID: input.ParagraphID,
		Timestamp:   input.Timestamp,
	})

	if err := s.store.UpsertAccountProgress(ctx, userID, rec); err != nil {
		return nil, err
	}

	s.logger.Debug("progress saved",
		"user_id", userID,
		"book_id", bookID,
		"chapter_id", rec.LastChapterID,
		"timestamp", rec.LastTimestamp)
	return rec, nil
}

// ListProgress returns all of a user's progress records.
func (s *ProgressService) ListProgress(ctx context.Context, userID string) ([]*domain.ProgressRecord, error) {
	records, err := s.store.ListAccountProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*domain.ProgressRecord{}
	}
	return records, nil
}

// DeleteProgress removes a user's record for one book.
func (s *ProgressService) DeleteProgress(ctx context.Context, userID, bookID string) error {
	return s.store.DeleteAccountProgress(ctx, userID, bookID)
}
