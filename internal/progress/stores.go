package progress

import (
	"context"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/store"
)

// DeviceStore adapts the Badger store to the device-local keyspace.
type DeviceStore struct {
	store *store.Store
	scope string
}

// NewDeviceStore binds a device scope. An empty scope addresses records
// written before device scoping existed.
func NewDeviceStore(s *store.Store, scope string) *DeviceStore {
	return &DeviceStore{store: s, scope: scope}
}

// Get retrieves the device's record for a book.
func (d *DeviceStore) Get(ctx context.Context, bookID string) (*domain.ProgressRecord, error) {
	return d.store.GetDeviceProgress(ctx, d.scope, bookID)
}

// Put stores the device's record for a book.
func (d *DeviceStore) Put(ctx context.Context, rec *domain.ProgressRecord) error {
	return d.store.UpsertDeviceProgress(ctx, d.scope, rec)
}

// AccountStore adapts the Badger store to the account keyspace.
type AccountStore struct {
	store  *store.Store
	userID string
}

// NewAccountStore binds a signed-in user.
func NewAccountStore(s *store.Store, userID string) *AccountStore {
	return &AccountStore{store: s, userID: userID}
}

// Get retrieves the user's record for a book.
func (a *AccountStore) Get(ctx context.Context, bookID string) (*domain.ProgressRecord, error) {
	return a.store.GetAccountProgress(ctx, a.userID, bookID)
}

// Put stores the user's record for a book.
func (a *AccountStore) Put(ctx context.Context, rec *domain.ProgressRecord) error {
	return a.store.UpsertAccountProgress(ctx, a.userID, rec)
}
