package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/yash24113/shofy-listsync/pkg/errors"

	"github.com/yash24113/shofy-listsync/internal/domain"
	"github.com/yash24113/shofy-listsync/internal/localstore"
	"github.com/yash24113/shofy-listsync/internal/remote"
	"github.com/yash24113/shofy-listsync/internal/session"
)

// wishlistOps is the slice of the wishlist controller the mover drives:
// local-bucket mutations that bypass the per-row guard, since the saga
// already holds the originating row.
type wishlistOps interface {
	addLocal(ctx context.Context, entry domain.ListEntry) error
	removeLocal(ctx context.Context, productID string) error
}

// Mover executes cross-list moves as recorded two-phase operations.
//
// The intent is journaled before the first remote call, so a crash or a
// phase-two failure never silently leaves both or neither list updated: the
// journal shows exactly how far the move got. Transient failures leave the
// step failed for retry on the next reconciliation trigger; a server
// rejection settles the intent instead, rolling back any completed phase.
type Mover struct {
	store    localstore.Store
	cart     remote.CartAPI
	wishlist wishlistOps
	session  *session.Manager
	logger   *slog.Logger

	mu sync.Mutex
}

// NewMover creates a move executor.
func NewMover(store localstore.Store, cart remote.CartAPI, sess *session.Manager, logger *slog.Logger) *Mover {
	return &Mover{
		store:   store,
		cart:    cart,
		session: sess,
		logger:  logger,
	}
}

// bind attaches the wishlist controller. Called once during wiring; the
// mover and the wishlist controller reference each other.
func (m *Mover) bind(w wishlistOps) {
	m.wishlist = w
}

// MoveToCart transfers a wishlist entry into the cart: add-to-cart phase,
// then remove-from-wishlist phase.
func (m *Mover) MoveToCart(ctx context.Context, entry domain.ListEntry) error {
	id := m.session.Current()
	if !id.Complete() {
		return apperrors.MissingIdentity("move to cart requires a signed-in user")
	}
	intent := domain.NewMoveIntent(id.UserID, entry, domain.MoveWishlistToCart)
	return m.execute(ctx, intent)
}

// MoveToWishlist transfers a cart entry into the wishlist: add-to-wishlist
// phase, then remove-from-cart phase. This is the remove-from-cart side
// effect of the cart row's remove control.
func (m *Mover) MoveToWishlist(ctx context.Context, entry domain.ListEntry) error {
	id := m.session.Current()
	if !id.Complete() {
		return apperrors.MissingIdentity("move to wishlist requires a signed-in user")
	}
	intent := domain.NewMoveIntent(id.UserID, entry, domain.MoveCartToWishlist)
	return m.execute(ctx, intent)
}

// RetryPending re-drives every unsettled intent in the journal. Invoked by
// the reconciliation engine after each successful sync.
func (m *Mover) RetryPending(ctx context.Context) error {
	m.mu.Lock()
	moves, err := m.store.ReadMoves(ctx)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("read move journal: %w", err)
	}

	for i := range moves {
		intent := moves[i]
		if intent.Settled() {
			continue
		}
		if err := m.execute(ctx, &intent); err != nil {
			m.logger.WarnContext(ctx, "move retry failed",
				slog.String("move_id", intent.ID),
				slog.String("direction", intent.Direction),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// execute journals the intent, then runs its phases in order. Each status
// change is persisted before the next phase starts.
func (m *Mover) execute(ctx context.Context, intent *domain.MoveIntent) error {
	if err := m.persist(ctx, intent); err != nil {
		return err
	}

	for i := range intent.Steps {
		step := &intent.Steps[i]
		if step.Status == domain.MoveStepCompleted || step.Status == domain.MoveStepCompensated {
			continue
		}

		if err := m.execStep(ctx, intent, step.Name); err != nil {
			step.Fail(err.Error())

			// A definite rejection will not succeed on retry, so roll the
			// earlier phases back and settle the whole intent, phases never
			// started included. Transient failures stay journaled for the
			// next trigger.
			if errors.Is(err, apperrors.ErrServerRejected) {
				m.compensate(ctx, intent, i)
				step.Compensate()
				for j := i + 1; j < len(intent.Steps); j++ {
					if intent.Steps[j].Status == domain.MoveStepPending {
						intent.Steps[j].Compensate()
					}
				}
			}

			if perr := m.persist(ctx, intent); perr != nil {
				m.logger.ErrorContext(ctx, "failed to persist move journal",
					slog.String("move_id", intent.ID),
					slog.String("error", perr.Error()),
				)
			}
			return fmt.Errorf("move %s step %s: %w", intent.Direction, step.Name, err)
		}

		step.Complete()
		if err := m.persist(ctx, intent); err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "cross-list move completed",
		slog.String("move_id", intent.ID),
		slog.String("direction", intent.Direction),
		slog.String("product_id", intent.Entry.ProductID),
	)
	return nil
}

func (m *Mover) execStep(ctx context.Context, intent *domain.MoveIntent, name string) error {
	entry := intent.Entry
	switch name {
	case domain.MoveStepAddToCart:
		if entry.Quantity < 1 {
			entry.Quantity = 1
		}
		return m.cart.Add(ctx, intent.UserID, entry)
	case domain.MoveStepRemoveFromWishlist:
		return m.wishlist.removeLocal(ctx, entry.ProductID)
	case domain.MoveStepAddToWishlist:
		entry.Quantity = 0
		return m.wishlist.addLocal(ctx, entry)
	case domain.MoveStepRemoveFromCart:
		return m.cart.Remove(ctx, intent.UserID, entry.ProductID)
	default:
		return fmt.Errorf("unknown move step %q", name)
	}
}

// compensate undoes the phases before index upTo, newest first.
func (m *Mover) compensate(ctx context.Context, intent *domain.MoveIntent, upTo int) {
	for i := upTo - 1; i >= 0; i-- {
		step := &intent.Steps[i]
		if step.Status != domain.MoveStepCompleted {
			continue
		}

		var err error
		switch step.Name {
		case domain.MoveStepAddToCart:
			err = m.cart.Remove(ctx, intent.UserID, intent.Entry.ProductID)
		case domain.MoveStepAddToWishlist:
			err = m.wishlist.removeLocal(ctx, intent.Entry.ProductID)
		case domain.MoveStepRemoveFromWishlist:
			err = m.wishlist.addLocal(ctx, intent.Entry)
		case domain.MoveStepRemoveFromCart:
			e := intent.Entry
			if e.Quantity < 1 {
				e.Quantity = 1
			}
			err = m.cart.Add(ctx, intent.UserID, e)
		}

		if err != nil {
			m.logger.ErrorContext(ctx, "move compensation failed",
				slog.String("move_id", intent.ID),
				slog.String("step", step.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		step.Compensate()
	}
}

// persist upserts the intent into the journal and prunes settled intents.
func (m *Mover) persist(ctx context.Context, intent *domain.MoveIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	moves, err := m.store.ReadMoves(ctx)
	if err != nil {
		return fmt.Errorf("read move journal: %w", err)
	}

	out := make([]domain.MoveIntent, 0, len(moves)+1)
	for _, mv := range moves {
		if mv.ID == intent.ID || mv.Settled() {
			continue
		}
		out = append(out, mv)
	}
	if !intent.Settled() {
		out = append(out, *intent)
	}

	if err := m.store.WriteMoves(ctx, out); err != nil {
		return fmt.Errorf("write move journal: %w", err)
	}
	return nil
}
