package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yash24113/shofy-listsync/internal/cache"
	"github.com/yash24113/shofy-listsync/internal/domain"
	"github.com/yash24113/shofy-listsync/internal/event"
	"github.com/yash24113/shofy-listsync/internal/remote"
	"github.com/yash24113/shofy-listsync/internal/session"
	"github.com/yash24113/shofy-listsync/pkg/slug"
)

// CartEvents publishes cart domain events.
type CartEvents interface {
	PublishCartUpdated(ctx context.Context, userID string, productIDs []string) error
}

// CartController owns all cart row mutations.
//
// Every mutation follows the same shape: check identity, claim the row,
// apply the change optimistically, issue exactly one remote call, then
// refetch and reconcile. A missing identity or product id is a silent
// no-op, never an error surfaced to the caller. Remote failures leave the
// optimistic state displayed and release the row; there is no automatic
// rollback and no automatic retry.
type CartController struct {
	cache   *cache.Cache
	remote  remote.CartAPI
	session *session.Manager
	mover   *Mover
	events  CartEvents
	bus     *event.Bus
	logger  *slog.Logger
	guard   *rowGuard
}

// NewCartController creates a cart controller. events and bus may be nil.
func NewCartController(
	c *cache.Cache,
	api remote.CartAPI,
	sess *session.Manager,
	mover *Mover,
	events CartEvents,
	bus *event.Bus,
	logger *slog.Logger,
) *CartController {
	return &CartController{
		cache:   c,
		remote:  api,
		session: sess,
		mover:   mover,
		events:  events,
		bus:     bus,
		logger:  logger,
		guard:   newRowGuard("cart"),
	}
}

// Cache exposes the controller's reactive cache for read surfaces.
func (c *CartController) Cache() *cache.Cache {
	return c.cache
}

// Refresh fetches the server cart and reconciles the cache with it. With no
// signed-in identity the cart is empty by definition.
func (c *CartController) Refresh(ctx context.Context) error {
	id := c.session.Current()
	if !id.Complete() {
		c.cache.Reconcile(domain.Snapshot{})
		return nil
	}

	c.cache.SetLoading(true)
	snapshot, err := c.remote.Fetch(ctx, id.UserID)
	if err != nil {
		c.cache.SetError(err)
		c.logger.WarnContext(ctx, "cart fetch failed",
			slog.String("user_id", id.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("fetch cart: %w", err)
	}

	c.cache.Reconcile(snapshot)
	return nil
}

// Add puts a product in the cart, merging quantity onto an existing row.
func (c *CartController) Add(ctx context.Context, entry domain.ListEntry) error {
	id := c.session.Current()
	if !id.Complete() || entry.ProductID == "" {
		c.logger.DebugContext(ctx, "cart add skipped, missing identity or product id")
		return nil
	}
	if !c.guard.tryAcquire(entry.ProductID) {
		return nil
	}
	defer c.guard.release(entry.ProductID)

	if entry.Quantity < 1 {
		entry.Quantity = 1
	}
	if entry.Slug == "" && entry.Title != "" {
		entry.Slug = slug.Generate(entry.Title)
	}
	if existing, ok := c.cache.Get(entry.ProductID); ok {
		entry.Quantity += existing.Quantity
	}
	c.cache.ApplyOptimistic(entry)

	if err := c.remote.Add(ctx, id.UserID, entry); err != nil {
		c.logger.WarnContext(ctx, "cart add failed, keeping optimistic state",
			slog.String("product_id", entry.ProductID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("add to cart: %w", err)
	}

	c.refetch(ctx, id.UserID)
	c.announce(ctx, id.UserID)
	return nil
}

// Increment raises the row's quantity by one.
func (c *CartController) Increment(ctx context.Context, productID string) error {
	return c.changeQuantity(ctx, productID, +1)
}

// Decrement lowers the row's quantity by one, flooring at 1. At quantity 1
// it is a no-op; removal is an explicit separate action.
func (c *CartController) Decrement(ctx context.Context, productID string) error {
	return c.changeQuantity(ctx, productID, -1)
}

func (c *CartController) changeQuantity(ctx context.Context, productID string, delta int) error {
	id := c.session.Current()
	if !id.Complete() || productID == "" {
		return nil
	}

	entry, ok := c.cache.Get(productID)
	if !ok {
		return nil
	}
	next := entry.Quantity + delta
	if next < 1 {
		return nil
	}

	if !c.guard.tryAcquire(productID) {
		return nil
	}
	defer c.guard.release(productID)

	entry.Quantity = next
	c.cache.ApplyOptimistic(entry)

	if err := c.remote.UpdateQuantity(ctx, id.UserID, productID, next); err != nil {
		c.logger.WarnContext(ctx, "cart quantity update failed, keeping optimistic state",
			slog.String("product_id", productID),
			slog.Int("quantity", next),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("update cart quantity: %w", err)
	}

	c.refetch(ctx, id.UserID)
	c.announce(ctx, id.UserID)
	return nil
}

// Remove takes the row out of the cart and moves its product to the
// wishlist, as a journaled two-phase move: wishlist add first, cart remove
// second. A failure between the phases is recorded in the journal and
// retried or compensated on the next reconciliation trigger.
func (c *CartController) Remove(ctx context.Context, productID string) error {
	id := c.session.Current()
	if !id.Complete() || productID == "" {
		return nil
	}
	if !c.guard.tryAcquire(productID) {
		return nil
	}
	defer c.guard.release(productID)

	entry, ok := c.cache.Get(productID)
	if !ok {
		entry = domain.Stub(productID)
	}
	c.cache.DropOptimistic(productID)

	if err := c.mover.MoveToWishlist(ctx, entry); err != nil {
		c.logger.WarnContext(ctx, "cart remove move failed, journaled for retry",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("remove from cart: %w", err)
	}

	c.refetch(ctx, id.UserID)
	c.announce(ctx, id.UserID)
	return nil
}

// Clear empties the whole cart.
func (c *CartController) Clear(ctx context.Context) error {
	id := c.session.Current()
	if !id.Complete() {
		return nil
	}

	c.cache.Reconcile(domain.Snapshot{})

	if err := c.remote.Clear(ctx, id.UserID); err != nil {
		c.logger.WarnContext(ctx, "cart clear failed, keeping optimistic state",
			slog.String("user_id", id.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("clear cart: %w", err)
	}

	c.refetch(ctx, id.UserID)
	c.announce(ctx, id.UserID)
	return nil
}

// refetch pulls a fresh server snapshot after a mutation. Failures keep the
// optimistic state on display.
func (c *CartController) refetch(ctx context.Context, userID string) {
	snapshot, err := c.remote.Fetch(ctx, userID)
	if err != nil {
		c.logger.WarnContext(ctx, "cart refetch failed, keeping optimistic state",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	c.cache.Reconcile(snapshot)
}

// announce emits the best-effort update signals for badge observers.
func (c *CartController) announce(ctx context.Context, userID string) {
	snapshot := c.cache.Snapshot()
	if c.events != nil {
		if err := c.events.PublishCartUpdated(ctx, userID, snapshot.IDs()); err != nil {
			c.logger.WarnContext(ctx, "failed to publish cart.updated event",
				slog.String("error", err.Error()),
			)
		}
	}
	if c.bus != nil {
		c.bus.Publish(event.Notice{
			Kind:  event.NoticeListUpdated,
			List:  "cart",
			Count: len(snapshot),
		})
	}
}
