package localstore

import (
	"context"

	"github.com/yash24113/shofy-listsync/internal/domain"
)

// ChangeKind identifies what a cross-instance change notification refers to.
type ChangeKind string

const (
	// ChangeList signals that a wishlist bucket was written or deleted.
	ChangeList ChangeKind = "list"
	// ChangeIdentity signals that the session identity was written or cleared.
	ChangeIdentity ChangeKind = "identity"
)

// Change is the notification broadcast to all instances sharing the store
// whenever one of them writes. Origin carries the writing instance's id so a
// subscriber can ignore its own writes.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Key    string     `json:"key,omitempty"`
	Origin string     `json:"origin"`
}

// Store is the single owner of all device-local persisted list state. Every
// call site reads and writes buckets through this interface; nothing else
// touches the underlying storage.
//
// Reads tolerate corrupt or missing data by returning empty values, never an
// error the caller must branch on. Writes are atomic from the caller's
// perspective and broadcast a Change so other instances can react.
type Store interface {
	// ReadList returns the entries persisted under the given bucket key.
	// Missing or corrupt buckets read as an empty list.
	ReadList(ctx context.Context, key domain.StorageKey) ([]domain.ListEntry, error)

	// WriteList replaces the bucket's contents. Dedup-by-id is the caller's
	// responsibility.
	WriteList(ctx context.Context, key domain.StorageKey, entries []domain.ListEntry) error

	// DeleteList removes the bucket.
	DeleteList(ctx context.Context, key domain.StorageKey) error

	// ReadIdentity returns the persisted session identity, or the zero
	// Identity when absent or corrupt.
	ReadIdentity(ctx context.Context) (domain.Identity, error)

	// WriteIdentity persists the session identity.
	WriteIdentity(ctx context.Context, id domain.Identity) error

	// ClearIdentity removes the persisted session identity.
	ClearIdentity(ctx context.Context) error

	// ReadMoves returns the recorded cross-list move intents.
	ReadMoves(ctx context.Context) ([]domain.MoveIntent, error)

	// WriteMoves replaces the move-intent journal.
	WriteMoves(ctx context.Context, moves []domain.MoveIntent) error

	// Subscribe returns a channel of change notifications from all instances
	// sharing this store. The channel closes when ctx is canceled.
	Subscribe(ctx context.Context) (<-chan Change, error)
}
