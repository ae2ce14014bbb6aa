package controller

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/yash24113/shofy-listsync/internal/cache"
	"github.com/yash24113/shofy-listsync/internal/domain"
	"github.com/yash24113/shofy-listsync/internal/event"
	lsredis "github.com/yash24113/shofy-listsync/internal/localstore/redis"
	"github.com/yash24113/shofy-listsync/internal/session"
	apperrors "github.com/yash24113/shofy-listsync/pkg/errors"
)

// fakeCartAPI is an in-memory cart service double.
type fakeCartAPI struct {
	mu     sync.Mutex
	server domain.Snapshot

	failAdd    error
	failUpdate error
	failRemove error

	addCalls    int
	updateCalls int
	removeCalls int

	// onUpdate runs inside UpdateQuantity, used to exercise the row guard.
	onUpdate func()
}

func newFakeCartAPI() *fakeCartAPI {
	return &fakeCartAPI{server: domain.Snapshot{}}
}

func (f *fakeCartAPI) Fetch(_ context.Context, _ string) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.server.Clone(), nil
}

func (f *fakeCartAPI) Add(_ context.Context, _ string, entry domain.ListEntry) error {
	f.mu.Lock()
	f.addCalls++
	fail := f.failAdd
	if fail == nil {
		f.server[entry.ProductID] = entry
	}
	f.mu.Unlock()
	return fail
}

func (f *fakeCartAPI) UpdateQuantity(_ context.Context, _ string, productID string, quantity int) error {
	f.mu.Lock()
	f.updateCalls++
	hook := f.onUpdate
	fail := f.failUpdate
	if fail == nil {
		if e, ok := f.server[productID]; ok {
			e.Quantity = quantity
			f.server[productID] = e
		}
	}
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return fail
}

func (f *fakeCartAPI) Remove(_ context.Context, _ string, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.failRemove != nil {
		return f.failRemove
	}
	delete(f.server, productID)
	return nil
}

func (f *fakeCartAPI) Clear(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.server = domain.Snapshot{}
	return nil
}

// fakeWishlistAPI is an in-memory wishlist service double.
type fakeWishlistAPI struct {
	mu       sync.Mutex
	server   domain.Snapshot
	replaces [][]string

	failReplace error
}

func newFakeWishlistAPI() *fakeWishlistAPI {
	return &fakeWishlistAPI{server: domain.Snapshot{}}
}

func (f *fakeWishlistAPI) Fetch(_ context.Context, _ string) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.server.Clone(), nil
}

func (f *fakeWishlistAPI) Replace(_ context.Context, _ string, productIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReplace != nil {
		return f.failReplace
	}
	f.replaces = append(f.replaces, productIDs)
	entries := make([]domain.ListEntry, 0, len(productIDs))
	for _, id := range productIDs {
		entries = append(entries, domain.Stub(id))
	}
	f.server = domain.NewSnapshot(entries)
	return nil
}

func (f *fakeWishlistAPI) replaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replaces)
}

type fixture struct {
	cartCtl     *CartController
	wishlistCtl *WishlistController
	mover       *Mover
	cartAPI     *fakeCartAPI
	wishlistAPI *fakeWishlistAPI
	store       *lsredis.Store
	session     *session.Manager
	bus         *event.Bus
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := lsredis.NewStore(client, "instance-test", logger)
	sess := session.NewManager(store, logger)
	cartAPI := newFakeCartAPI()
	wishlistAPI := newFakeWishlistAPI()
	bus := event.NewBus()

	mover := NewMover(store, cartAPI, sess, logger)
	cartCtl := NewCartController(cache.New(), cartAPI, sess, mover, nil, bus, logger)
	wishlistCtl := NewWishlistController(cache.New(), store, wishlistAPI, sess, mover, nil, bus, logger)

	return &fixture{
		cartCtl:     cartCtl,
		wishlistCtl: wishlistCtl,
		mover:       mover,
		cartAPI:     cartAPI,
		wishlistAPI: wishlistAPI,
		store:       store,
		session:     sess,
		bus:         bus,
	}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	_, err := f.session.Login(context.Background(), "user-1", "sess-1")
	require.NoError(t, err)
}

var errNetwork = apperrors.Network(errors.New("connection refused"))
