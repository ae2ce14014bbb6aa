package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yash24113/shofy-listsync/internal/cache"
	"github.com/yash24113/shofy-listsync/internal/domain"
	"github.com/yash24113/shofy-listsync/internal/event"
	"github.com/yash24113/shofy-listsync/internal/localstore"
	"github.com/yash24113/shofy-listsync/internal/remote"
	"github.com/yash24113/shofy-listsync/internal/session"
	"github.com/yash24113/shofy-listsync/pkg/slug"
)

// WishlistEvents publishes wishlist domain events.
type WishlistEvents interface {
	PublishWishlistUpdated(ctx context.Context, userID string, productIDs []string) error
}

// WishlistController owns all wishlist row mutations.
//
// The wishlist is local-first: every mutation lands in the device-local
// bucket before anything else, so guests have a fully working wishlist.
// When a user is signed in, the post-mutation list is pushed as a full
// replace; a failed push is only logged, because the reconciliation engine
// re-pushes on the next trigger.
type WishlistController struct {
	cache   *cache.Cache
	store   localstore.Store
	remote  remote.WishlistAPI
	session *session.Manager
	mover   *Mover
	events  WishlistEvents
	bus     *event.Bus
	logger  *slog.Logger
	guard   *rowGuard
}

// NewWishlistController creates a wishlist controller and binds it to the
// mover. events and bus may be nil.
func NewWishlistController(
	c *cache.Cache,
	store localstore.Store,
	api remote.WishlistAPI,
	sess *session.Manager,
	mover *Mover,
	events WishlistEvents,
	bus *event.Bus,
	logger *slog.Logger,
) *WishlistController {
	w := &WishlistController{
		cache:   c,
		store:   store,
		remote:  api,
		session: sess,
		mover:   mover,
		events:  events,
		bus:     bus,
		logger:  logger,
		guard:   newRowGuard("wishlist"),
	}
	if mover != nil {
		mover.bind(w)
	}
	return w
}

// Cache exposes the controller's reactive cache for read surfaces.
func (w *WishlistController) Cache() *cache.Cache {
	return w.cache
}

// Refresh reconciles the cache from the authoritative source: the server
// list for a signed-in user (keeping richer local copies of shared ids),
// the local bucket for a guest.
func (w *WishlistController) Refresh(ctx context.Context) error {
	id := w.session.Current()

	if !id.Complete() {
		entries, err := w.store.ReadList(ctx, domain.GuestKey())
		if err != nil {
			return fmt.Errorf("read guest wishlist: %w", err)
		}
		w.cache.Reconcile(domain.NewSnapshot(entries))
		return nil
	}

	w.cache.SetLoading(true)
	server, err := w.remote.Fetch(ctx, id.UserID)
	if err != nil {
		w.cache.SetError(err)
		w.logger.WarnContext(ctx, "wishlist fetch failed",
			slog.String("user_id", id.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("fetch wishlist: %w", err)
	}

	// Server rows can be bare id stubs. Where the local bucket holds a
	// richer copy of the same id, keep the local one.
	local, err := w.store.ReadList(ctx, id.Key())
	if err != nil {
		return fmt.Errorf("read user wishlist bucket: %w", err)
	}
	localByID := domain.NewSnapshot(local)
	merged := server.Clone()
	for pid, e := range merged {
		if e.IsStub() {
			if rich, ok := localByID[pid]; ok {
				merged[pid] = rich
			}
		}
	}
	// Local ids the server does not know yet are entries whose push has not
	// landed. They stay in the bucket so the next sync can push them.
	for pid, e := range localByID {
		if _, ok := merged[pid]; !ok {
			merged[pid] = e
		}
	}

	if err := w.store.WriteList(ctx, id.Key(), merged.Entries()); err != nil {
		return fmt.Errorf("write user wishlist bucket: %w", err)
	}
	w.cache.Reconcile(merged)
	return nil
}

// Add puts a product on the wishlist. Re-adding an existing id updates the
// stored entry in place.
func (w *WishlistController) Add(ctx context.Context, entry domain.ListEntry) error {
	if entry.ProductID == "" {
		w.logger.DebugContext(ctx, "wishlist add skipped, missing product id")
		return nil
	}
	if !w.guard.tryAcquire(entry.ProductID) {
		return nil
	}
	defer w.guard.release(entry.ProductID)

	entry.Quantity = 0
	if entry.Slug == "" && entry.Title != "" {
		entry.Slug = slug.Generate(entry.Title)
	}
	w.cache.ApplyOptimistic(entry)

	if err := w.addLocal(ctx, entry); err != nil {
		return fmt.Errorf("add to wishlist: %w", err)
	}

	w.announce(ctx)
	return nil
}

// Remove takes a product off the wishlist.
func (w *WishlistController) Remove(ctx context.Context, productID string) error {
	if productID == "" {
		return nil
	}
	if !w.guard.tryAcquire(productID) {
		return nil
	}
	defer w.guard.release(productID)

	w.cache.DropOptimistic(productID)

	if err := w.removeLocal(ctx, productID); err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}

	w.announce(ctx)
	return nil
}

// MoveToCart transfers a wishlist row into the cart as a journaled
// two-phase move: cart add first, wishlist remove second. Requires a
// signed-in user; for a guest it is a silent no-op.
func (w *WishlistController) MoveToCart(ctx context.Context, productID string) error {
	if productID == "" {
		return nil
	}
	if !w.session.Current().Complete() {
		w.logger.DebugContext(ctx, "move to cart skipped, no signed-in user",
			slog.String("product_id", productID),
		)
		return nil
	}
	if !w.guard.tryAcquire(productID) {
		return nil
	}
	defer w.guard.release(productID)

	entry, ok := w.cache.Get(productID)
	if !ok {
		entry = domain.Stub(productID)
	}
	w.cache.DropOptimistic(productID)

	if err := w.mover.MoveToCart(ctx, entry); err != nil {
		w.logger.WarnContext(ctx, "move to cart failed, journaled for retry",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("move to cart: %w", err)
	}

	w.announce(ctx)
	return nil
}

// addLocal writes the entry into the current bucket and pushes the new
// list when signed in. Keeps the cache in step with the bucket.
func (w *WishlistController) addLocal(ctx context.Context, entry domain.ListEntry) error {
	key := w.session.Current().Key()

	entries, err := w.store.ReadList(ctx, key)
	if err != nil {
		return fmt.Errorf("read wishlist bucket: %w", err)
	}

	merged := domain.NewSnapshot(entries)
	merged[entry.ProductID] = entry

	if err := w.store.WriteList(ctx, key, merged.Entries()); err != nil {
		return fmt.Errorf("write wishlist bucket: %w", err)
	}
	w.cache.ApplyOptimistic(entry)

	w.push(ctx, merged)
	return nil
}

// removeLocal deletes the entry from the current bucket and pushes the new
// list when signed in.
func (w *WishlistController) removeLocal(ctx context.Context, productID string) error {
	key := w.session.Current().Key()

	entries, err := w.store.ReadList(ctx, key)
	if err != nil {
		return fmt.Errorf("read wishlist bucket: %w", err)
	}

	merged := domain.NewSnapshot(entries)
	delete(merged, productID)

	if err := w.store.WriteList(ctx, key, merged.Entries()); err != nil {
		return fmt.Errorf("write wishlist bucket: %w", err)
	}
	w.cache.DropOptimistic(productID)

	w.push(ctx, merged)
	return nil
}

// push replaces the server list with the local one for a signed-in user.
// Push failures are logged only; the engine re-pushes on the next trigger.
func (w *WishlistController) push(ctx context.Context, snapshot domain.Snapshot) {
	id := w.session.Current()
	if !id.Complete() {
		return
	}
	if err := w.remote.Replace(ctx, id.UserID, snapshot.IDs()); err != nil {
		w.logger.WarnContext(ctx, "wishlist push failed, will re-push on next sync",
			slog.String("user_id", id.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// announce emits the best-effort update signals for badge observers.
func (w *WishlistController) announce(ctx context.Context) {
	snapshot := w.cache.Snapshot()
	if w.events != nil {
		if err := w.events.PublishWishlistUpdated(ctx, w.session.Current().UserID, snapshot.IDs()); err != nil {
			w.logger.WarnContext(ctx, "failed to publish wishlist.updated event",
				slog.String("error", err.Error()),
			)
		}
	}
	if w.bus != nil {
		w.bus.Publish(event.Notice{
			Kind:  event.NoticeListUpdated,
			List:  "wishlist",
			Count: len(snapshot),
		})
	}
}
