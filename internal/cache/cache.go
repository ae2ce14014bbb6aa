package cache

import (
	"sync"

	"github.com/yash24113/shofy-listsync/internal/domain"
)

// State is a point-in-time view of the cache: the mirrored snapshot plus the
// inline loading/error flags the UI renders.
type State struct {
	Snapshot domain.Snapshot
	Loading  bool
	Err      error
}

// Cache is an in-memory, subscribable mirror of one remote list.
//
// Mutations are applied optimistically, keyed by product id, before their
// network call resolves. When a fetch or mutation-triggered refetch
// completes, Reconcile replaces the whole snapshot with the server's —
// last-writer-wins at the snapshot level, no field-level merge against
// optimistic state. Serialization of concurrent calls for the same entry is
// the row controller's in-flight guard, not the cache's concern.
type Cache struct {
	mu       sync.RWMutex
	snapshot domain.Snapshot
	loading  bool
	err      error

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		snapshot: domain.Snapshot{},
		subs:     make(map[int]chan struct{}),
	}
}

// State returns a copy of the current cache state.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Snapshot: c.snapshot.Clone(),
		Loading:  c.loading,
		Err:      c.err,
	}
}

// Snapshot returns a copy of the current snapshot.
func (c *Cache) Snapshot() domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Clone()
}

// Get returns the cached entry for a product id.
func (c *Cache) Get(productID string) (domain.ListEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.snapshot[productID]
	return e, ok
}

// SetLoading sets the loading flag.
func (c *Cache) SetLoading(loading bool) {
	c.mu.Lock()
	c.loading = loading
	c.mu.Unlock()
	c.notify()
}

// SetError records a fetch error. The stale snapshot stays displayed.
func (c *Cache) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.loading = false
	c.mu.Unlock()
	c.notify()
}

// Reconcile replaces the snapshot wholesale with the server's view and
// clears the loading and error flags.
func (c *Cache) Reconcile(snapshot domain.Snapshot) {
	if snapshot == nil {
		snapshot = domain.Snapshot{}
	}
	c.mu.Lock()
	c.snapshot = snapshot.Clone()
	c.loading = false
	c.err = nil
	c.mu.Unlock()
	c.notify()
}

// ApplyOptimistic reflects a local mutation immediately, before its network
// call resolves. Re-applying an existing id updates the entry in place.
func (c *Cache) ApplyOptimistic(entry domain.ListEntry) {
	if entry.ProductID == "" {
		return
	}
	c.mu.Lock()
	c.snapshot[entry.ProductID] = entry
	c.mu.Unlock()
	c.notify()
}

// DropOptimistic removes an entry ahead of its remove call resolving.
func (c *Cache) DropOptimistic(productID string) {
	c.mu.Lock()
	delete(c.snapshot, productID)
	c.mu.Unlock()
	c.notify()
}

// Subscribe registers an observer. The returned channel receives a signal
// (coalesced, capacity one) after every cache change; the cancel function
// unregisters it.
func (c *Cache) Subscribe() (<-chan struct{}, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan struct{}, 1)
	c.subs[id] = ch

	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
	return ch, cancel
}

// notify signals all subscribers without blocking. A subscriber that has not
// drained its pending signal keeps exactly one queued.
func (c *Cache) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
