package domain

import "fmt"

// ListEntry represents one line in a cart or wishlist.
// ProductID is the union key: within one list it is unique, and re-adding an
// existing id merges instead of appending.
type ListEntry struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title,omitempty"`
	Slug      string  `json:"slug,omitempty"`
	Design    string  `json:"design,omitempty"`
	Color     string  `json:"color,omitempty"`
	UnitPrice float64 `json:"unit_price,omitempty"`
	ImageRef  string  `json:"image_ref,omitempty"`
	// Quantity is meaningful for cart entries only (>= 1).
	// Wishlist entries carry zero.
	Quantity int `json:"quantity,omitempty"`
}

// Stub creates a minimal entry for a product known only by id. Used when a
// server-side wishlist row has no richer local copy to merge with.
func Stub(productID string) ListEntry {
	return ListEntry{ProductID: productID}
}

// IsStub reports whether the entry carries nothing beyond its product id.
func (e ListEntry) IsStub() bool {
	return e.Title == "" && e.Slug == "" && e.Design == "" && e.Color == "" &&
		e.UnitPrice == 0 && e.ImageRef == "" && e.Quantity == 0
}

// Snapshot is the full current state of one list as a mapping from product id
// to entry. Insertion order is irrelevant; authoritative ordering is
// server-assigned.
type Snapshot map[string]ListEntry

// NewSnapshot builds a snapshot from entries, deduplicating by product id.
// A later entry for an existing id replaces the earlier one, matching the
// re-add-updates semantics of list mutations.
func NewSnapshot(entries []ListEntry) Snapshot {
	s := make(Snapshot, len(entries))
	for _, e := range entries {
		if e.ProductID == "" {
			continue
		}
		s[e.ProductID] = e
	}
	return s
}

// Entries returns the snapshot's entries in unspecified order.
func (s Snapshot) Entries() []ListEntry {
	out := make([]ListEntry, 0, len(s))
	for _, e := range s {
		out = append(out, e)
	}
	return out
}

// IDs returns the product ids contained in the snapshot in unspecified order.
func (s Snapshot) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, e := range s {
		out[id] = e
	}
	return out
}

// DedupUnion merges entry lists by product id, first occurrence wins.
// Output preserves first-seen order, which makes the union deterministic for
// a given input ordering. Entries with an empty product id are dropped.
func DedupUnion(lists ...[]ListEntry) []ListEntry {
	seen := make(map[string]struct{})
	var out []ListEntry
	for _, list := range lists {
		for _, e := range list {
			if e.ProductID == "" {
				continue
			}
			if _, ok := seen[e.ProductID]; ok {
				continue
			}
			seen[e.ProductID] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// EntryIDs extracts the product ids from a slice of entries, preserving order.
func EntryIDs(entries []ListEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ProductID)
	}
	return out
}

// StorageKey is the composite identity selecting which persisted bucket a
// guest or user's wishlist lives in. The zero value is not valid; use
// GuestKey or UserKey.
type StorageKey struct {
	userID    string
	sessionID string
}

// GuestKey returns the key for the anonymous bucket.
func GuestKey() StorageKey {
	return StorageKey{}
}

// UserKey returns the bucket key for a signed-in user and session.
func UserKey(userID, sessionID string) StorageKey {
	return StorageKey{userID: userID, sessionID: sessionID}
}

// IsGuest reports whether the key addresses the anonymous bucket.
func (k StorageKey) IsGuest() bool {
	return k.userID == "" && k.sessionID == ""
}

// String returns the canonical bucket name. All persisted wishlist state
// lives under exactly this one schema.
func (k StorageKey) String() string {
	if k.IsGuest() {
		return "wishlist:guest"
	}
	return fmt.Sprintf("wishlist:%s:%s", k.userID, k.sessionID)
}

// Identity is the current session identity. Both parts must be present for
// the engine to leave the guest state.
type Identity struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Complete reports whether both a user id and a session token are present.
func (i Identity) Complete() bool {
	return i.UserID != "" && i.SessionID != ""
}

// Key returns the storage key for this identity's wishlist bucket.
func (i Identity) Key() StorageKey {
	if !i.Complete() {
		return GuestKey()
	}
	return UserKey(i.UserID, i.SessionID)
}
