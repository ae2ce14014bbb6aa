package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yash24113/shofy-listsync/internal/domain"
	"github.com/yash24113/shofy-listsync/internal/event"
	"github.com/yash24113/shofy-listsync/internal/localstore"
	"github.com/yash24113/shofy-listsync/internal/remote"
	"github.com/yash24113/shofy-listsync/internal/session"
)

// State of the engine for the current instance.
type State string

const (
	StateGuest   State = "guest"
	StateSyncing State = "syncing"
	StateSynced  State = "synced"
)

// Trigger identifies the lifecycle event that started a reconciliation run.
type Trigger string

const (
	TriggerLogin   Trigger = "login"
	TriggerFocus   Trigger = "focus"
	TriggerVisible Trigger = "visible"
	TriggerStorage Trigger = "storage"
)

var (
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_sync_runs_total",
			Help: "Total reconciliation runs by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)
)

// EventPublisher publishes the sync-completion domain event.
type EventPublisher interface {
	PublishWishlistSynced(ctx context.Context, userID string, productIDs []string, migrated bool) error
}

// MoveRetrier re-drives unsettled cross-list move intents. Wired to the
// controller's mover; nil disables retries.
type MoveRetrier interface {
	RetryPending(ctx context.Context) error
}

// Engine keeps the wishlist consistent between the local store and the
// remote wishlist service.
//
// Per instance it is a three-state machine (Guest, Syncing, Synced). The
// transition out of Guest happens when a complete identity appears; the
// migration run unions the guest bucket into the user bucket and the server
// list, pushes the union as a full replace, and only then clears the guest
// bucket. Re-syncs re-run the same union-and-push on focus, visibility, and
// foreign identity writes. The union-then-replace shape makes concurrent
// runs from multiple instances convergent; the last replace to arrive wins,
// which is the accepted trade-off.
type Engine struct {
	store      localstore.Store
	wishlists  remote.WishlistAPI
	session    *session.Manager
	events     EventPublisher
	bus        *event.Bus
	moves      MoveRetrier
	logger     *slog.Logger
	instanceID string

	mu    sync.Mutex
	state State

	triggers chan Trigger
}

// New creates a reconciliation engine. events, bus, and moves may be nil.
func New(
	store localstore.Store,
	wishlists remote.WishlistAPI,
	sess *session.Manager,
	events EventPublisher,
	bus *event.Bus,
	moves MoveRetrier,
	instanceID string,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		store:      store,
		wishlists:  wishlists,
		session:    sess,
		events:     events,
		bus:        bus,
		moves:      moves,
		logger:     logger,
		instanceID: instanceID,
		state:      StateGuest,
		triggers:   make(chan Trigger, 8),
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Trigger enqueues a reconciliation run. Non-blocking: if the queue is full
// the trigger is dropped, which is safe because every run recomputes from
// scratch.
func (e *Engine) Trigger(t Trigger) {
	select {
	case e.triggers <- t:
	default:
	}
}

// Run processes triggers and cross-instance store changes until ctx is
// canceled. Failures are logged and abandoned for that trigger; the next
// trigger retries the same computation. There is no backoff schedule and no
// queued retry timer.
func (e *Engine) Run(ctx context.Context) error {
	changes, err := e.store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to local store: %w", err)
	}

	e.logger.InfoContext(ctx, "reconciliation engine started",
		slog.String("instance_id", e.instanceID),
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case t := <-e.triggers:
			if err := e.SyncNow(ctx, t); err != nil {
				e.logger.WarnContext(ctx, "reconciliation failed, awaiting next trigger",
					slog.String("trigger", string(t)),
					slog.String("error", err.Error()),
				)
			}

		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if change.Kind != localstore.ChangeIdentity || change.Origin == e.instanceID {
				continue
			}
			if _, err := e.session.Refresh(ctx); err != nil {
				e.logger.WarnContext(ctx, "failed to refresh identity after foreign write",
					slog.String("error", err.Error()),
				)
				continue
			}
			if err := e.SyncNow(ctx, TriggerStorage); err != nil {
				e.logger.WarnContext(ctx, "reconciliation failed, awaiting next trigger",
					slog.String("trigger", string(TriggerStorage)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// SyncNow runs one reconciliation synchronously. Exposed for the lifecycle
// handler and tests; Run uses it for every trigger.
func (e *Engine) SyncNow(ctx context.Context, trigger Trigger) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.session.Current()
	if !id.Complete() {
		e.state = StateGuest
		syncRunsTotal.WithLabelValues(string(trigger), "skipped").Inc()
		return nil
	}

	e.state = StateSyncing

	if err := e.reconcile(ctx, id, trigger); err != nil {
		syncRunsTotal.WithLabelValues(string(trigger), "failure").Inc()
		return err
	}

	e.state = StateSynced
	syncRunsTotal.WithLabelValues(string(trigger), "success").Inc()

	if e.moves != nil {
		if err := e.moves.RetryPending(ctx); err != nil {
			e.logger.WarnContext(ctx, "move retry failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// reconcile performs the union-and-push routine. When the guest bucket holds
// entries this is the migration run; otherwise it is a plain re-sync over
// the same steps.
func (e *Engine) reconcile(ctx context.Context, id domain.Identity, trigger Trigger) error {
	userKey := id.Key()

	guest, err := e.store.ReadList(ctx, domain.GuestKey())
	if err != nil {
		return fmt.Errorf("read guest bucket: %w", err)
	}
	user, err := e.store.ReadList(ctx, userKey)
	if err != nil {
		return fmt.Errorf("read user bucket: %w", err)
	}

	// The user bucket's copy of a shared id wins over the guest's.
	localUnion := domain.DedupUnion(user, guest)

	server, err := e.wishlists.Fetch(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("fetch server wishlist: %w", err)
	}

	// Union by id only. Server-only entries come through as whatever record
	// the server returned, minimally a product-id stub.
	union := domain.DedupUnion(localUnion, server.Entries())
	ids := domain.EntryIDs(union)

	// Full replace. A failed push aborts everything: the guest bucket stays,
	// the state stays unsynced, and the next trigger recomputes from scratch.
	if err := e.wishlists.Replace(ctx, id.UserID, ids); err != nil {
		return fmt.Errorf("push wishlist union: %w", err)
	}

	if err := e.store.WriteList(ctx, userKey, union); err != nil {
		return fmt.Errorf("write user bucket: %w", err)
	}

	migrated := len(guest) > 0
	if migrated {
		if err := e.store.DeleteList(ctx, domain.GuestKey()); err != nil {
			return fmt.Errorf("clear guest bucket: %w", err)
		}
	}

	e.logger.InfoContext(ctx, "wishlist reconciled",
		slog.String("user_id", id.UserID),
		slog.String("trigger", string(trigger)),
		slog.Int("entries", len(union)),
		slog.Bool("migrated", migrated),
	)

	if e.events != nil {
		if err := e.events.PublishWishlistSynced(ctx, id.UserID, ids, migrated); err != nil {
			e.logger.WarnContext(ctx, "failed to publish wishlist.synced event",
				slog.String("user_id", id.UserID),
				slog.String("error", err.Error()),
			)
		}
	}
	if e.bus != nil {
		e.bus.Publish(event.Notice{
			Kind:  event.NoticeSynced,
			List:  "wishlist",
			Count: len(union),
		})
	}

	return nil
}
