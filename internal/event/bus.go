package event

import "sync"

// Notice kinds for in-process observers.
const (
	NoticeListUpdated = "list_updated"
	NoticeSynced      = "synced"
)

// Notice is an in-process signal for badge/counter observers: which list
// changed and how many entries it now holds.
type Notice struct {
	Kind  string
	List  string
	Count int
}

// Bus fans Notices out to in-process subscribers. Delivery is non-blocking;
// a slow subscriber keeps at most one pending notice per gap it leaves.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Notice
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Notice)}
}

// Subscribe registers an observer. The cancel function unregisters it.
func (b *Bus) Subscribe() (<-chan Notice, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Notice, 8)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
	return ch, cancel
}

// Publish delivers the notice to every subscriber without blocking.
func (b *Bus) Publish(n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}
