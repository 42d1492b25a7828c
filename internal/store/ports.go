package store

import (
	"context"

	"ledger/internal/core"
)

// RecordStore owns the persisted bill collection.
type RecordStore interface {
	// GetAll returns every bill in insertion order. An absent or corrupt
	// blob yields an empty slice, not an error.
	GetAll(ctx context.Context) ([]core.Bill, error)
	// Add assigns a fresh id, persists the collection and returns the stored bill.
	Add(ctx context.Context, b core.Bill) (core.Bill, error)
	// Update replaces the bill with the same id and reports whether it was
	// there. Unknown ids are a no-op.
	Update(ctx context.Context, b core.Bill) (bool, error)
	// Delete removes the bill with id and reports whether it was there.
	// Unknown ids are a no-op.
	Delete(ctx context.Context, id int64) (bool, error)
	// SeedIfEmpty writes seed() only if nothing was ever persisted and
	// reports whether it did.
	SeedIfEmpty(ctx context.Context, seed func() []core.Bill) (bool, error)
	// Reset wipes every version of the persisted collection.
	Reset(ctx context.Context) error
	Close() error
}

// KV is the raw storage a backend provides. Values are opaque blobs.
type KV interface {
	// View runs fn against a consistent snapshot.
	View(ctx context.Context, fn func(tx KVTx) error) error
	// Update runs fn as one read-modify-write unit. Writes made through tx
	// become visible together, and only if fn returns nil.
	Update(ctx context.Context, fn func(tx KVTx) error) error
	// PutIfAbsent stores value under key unless key exists. It is atomic
	// with respect to other processes sharing the storage.
	PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// KVTx is the view of a KV inside View/Update.
type KVTx interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}
