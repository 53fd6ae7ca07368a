package store

import (
	"context"
	"encoding/json/v2"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/readalongapp/readalong-server/internal/domain"
	domainerrors "github.com/readalongapp/readalong-server/internal/errors"
)

// Progress lives in two keyspaces. Account records are the authoritative
// cross-device copy; device records are the per-device local copy used when
// no account is signed in. Records written before device scoping landed sit
// under the bare book key and are still readable.
const (
	accountProgressPrefix = "progress:acct:"
	deviceProgressPrefix  = "progress:dev:"
	legacyProgressPrefix  = "progress:"
)

// ErrProgressNotFound is returned when no progress record exists.
var ErrProgressNotFound = domainerrors.NotFound("progress not found")

// ProgressUpdatedEvent is broadcast over SSE when an account progress record
// changes, so other devices of the same account can pick it up.
type ProgressUpdatedEvent struct {
	Type     string                 `json:"type"`
	UserID   string                 `json:"user_id"`
	Progress *domain.ProgressRecord `json:"progress"`
}

func accountProgressKey(userID, bookID string) []byte {
	return []byte(accountProgressPrefix + userID + ":" + bookID)
}

// An empty scope addresses the legacy unscoped keyspace directly.
func deviceProgressKey(scope, bookID string) []byte {
	if scope == "" {
		return []byte(legacyProgressPrefix + bookID)
	}
	return []byte(deviceProgressPrefix + scope + ":" + bookID)
}

// GetAccountProgress retrieves a user's progress for one book.
func (s *Store) GetAccountProgress(ctx context.Context, userID, bookID string) (*domain.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec domain.ProgressRecord
	err := s.get(accountProgressKey(userID, bookID), &rec)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertAccountProgress creates or replaces a user's progress for one book
// and broadcasts the change.
func (s *Store) UpsertAccountProgress(ctx context.Context, userID string, rec *domain.ProgressRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.set(accountProgressKey(userID, rec.BookID), rec); err != nil {
		return err
	}

	if s.eventEmitter != nil {
		s.eventEmitter.Emit(ProgressUpdatedEvent{
			Type:     "progress.updated",
			UserID:   userID,
			Progress: rec,
		})
	}
	return nil
}

// DeleteAccountProgress removes a user's progress for one book.
// Idempotent.
func (s *Store) DeleteAccountProgress(ctx context.Context, userID, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete(accountProgressKey(userID, bookID))
}

// ListAccountProgress returns all of a user's progress records, one per book.
func (s *Store) ListAccountProgress(ctx context.Context, userID string) ([]*domain.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(accountProgressPrefix + userID + ":")
	var records []*domain.ProgressRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec domain.ProgressRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetDeviceProgress retrieves a device's local progress for one book.
// Falls back to the legacy unscoped key so records saved before device
// scoping still resume correctly.
func (s *Store) GetDeviceProgress(ctx context.Context, scope, bookID string) (*domain.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec domain.ProgressRecord
	err := s.get(deviceProgressKey(scope, bookID), &rec)
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}

	err = s.get([]byte(legacyProgressPrefix+bookID), &rec)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertDeviceProgress creates or replaces a device's local progress for one
// book. Device writes are local state only and do not emit events.
func (s *Store) UpsertDeviceProgress(ctx context.Context, scope string, rec *domain.ProgressRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set(deviceProgressKey(scope, rec.BookID), rec)
}

// DeleteDeviceProgress removes a device's local progress for one book,
// including any legacy unscoped record. Idempotent.
func (s *Store) DeleteDeviceProgress(ctx context.Context, scope, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.delete(deviceProgressKey(scope, bookID)); err != nil {
		return err
	}
	return s.delete([]byte(legacyProgressPrefix + bookID))
}

// HasAccountProgress reports whether a user has any progress for a book.
func (s *Store) HasAccountProgress(ctx context.Context, userID, bookID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.exists(accountProgressKey(userID, bookID))
}
