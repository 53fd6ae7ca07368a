// Package progress reconciles reading positions between the device-local
// store and the account store.
package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/errors"
)

// LocalStore is the device-local progress store. Always available.
type LocalStore interface {
	Get(ctx context.Context, bookID string) (*domain.ProgressRecord, error)
	Put(ctx context.Context, rec *domain.ProgressRecord) error
}

// RemoteStore is the account progress store. Unavailable when signed out or
// offline; the resolver treats every remote failure as transient.
type RemoteStore interface {
	Get(ctx context.Context, bookID string) (*domain.ProgressRecord, error)
	Put(ctx context.Context, rec *domain.ProgressRecord) error
}

// NewDeviceScope generates a fresh device scope id.
func NewDeviceScope() string {
	return uuid.NewString()
}

// Resolver owns the progress of one book: it loads the reconciled baseline
// and folds every saved position into it.
//
// Saves are local-first. The local write is authoritative; the remote write
// is best-effort and its failure never surfaces to playback.
type Resolver struct {
	bookID string
	order  domain.ChapterOrder
	local  LocalStore
	remote RemoteStore
	logger *slog.Logger

	mu       sync.Mutex
	baseline *domain.ProgressRecord
}

// NewResolver creates a resolver for one book. remote may be nil when no
// account is signed in.
func NewResolver(bookID string, order domain.ChapterOrder, local LocalStore, remote RemoteStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		bookID: bookID,
		order:  order,
		local:  local,
		remote: remote,
		logger: logger,
	}
}

// Load fetches both stores and picks the baseline representing further
// progress. Returns nil when neither store has a record.
func (r *Resolver) Load(ctx context.Context) (*domain.ProgressRecord, error) {
	local, err := r.local.Get(ctx, r.bookID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	var remote *domain.ProgressRecord
	if r.remote != nil {
		remote, err = r.remote.Get(ctx, r.bookID)
		if err != nil {
			if !errors.Is(err, errors.ErrNotFound) {
				r.logger.Warn("remote progress unavailable, using local only",
					"book", r.bookID, "error", err)
			}
			remote = nil
		}
	}

	baseline := domain.PickBaseline(local, remote, r.order)

	r.mu.Lock()
	r.baseline = baseline
	r.mu.Unlock()
	return baseline, nil
}

// SavePosition folds the position into the baseline and persists it.
// Implements the reader engine's progress sink.
func (r *Resolver) SavePosition(ctx context.Context, pos domain.Position) error {
	if pos.ChapterID == "" {
		return errors.Validation("position has no chapter")
	}

	r.mu.Lock()
	rec := domain.NewProgressRecord(r.bookID, r.order, r.baseline, pos)
	r.baseline = rec
	r.mu.Unlock()

	if err := r.local.Put(ctx, rec); err != nil {
		return err
	}

	if r.remote != nil {
		if err := r.remote.Put(ctx, rec); err != nil {
			r.logger.Warn("remote progress save failed",
				"book", r.bookID, "error", err)
		}
	}
	return nil
}

// Baseline returns the current reconciled record, or nil before Load.
func (r *Resolver) Baseline() *domain.ProgressRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.baseline
}
