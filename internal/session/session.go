package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/yash24113/shofy-listsync/pkg/errors"

	"github.com/yash24113/shofy-listsync/internal/domain"
	"github.com/yash24113/shofy-listsync/internal/localstore"
)

// Manager owns the current session identity. Identity changes are persisted
// through the local store, whose write broadcast is the signal other running
// instances use to start their own reconciliation.
type Manager struct {
	store  localstore.Store
	logger *slog.Logger

	mu      sync.RWMutex
	current domain.Identity
}

// NewManager creates a session manager.
func NewManager(store localstore.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
	}
}

// Restore loads any persisted identity, so a restarted instance resumes the
// signed-in session instead of silently reverting to guest.
func (m *Manager) Restore(ctx context.Context) error {
	id, err := m.store.ReadIdentity(ctx)
	if err != nil {
		return fmt.Errorf("restore identity: %w", err)
	}

	m.mu.Lock()
	m.current = id
	m.mu.Unlock()

	if id.Complete() {
		m.logger.InfoContext(ctx, "restored session identity",
			slog.String("user_id", id.UserID),
		)
	}
	return nil
}

// Current returns the identity as this instance last saw it.
func (m *Manager) Current() domain.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Login records a complete identity and persists it. The persisted write is
// what other instances observe as their storage-change trigger.
func (m *Manager) Login(ctx context.Context, userID, sessionID string) (domain.Identity, error) {
	if userID == "" || sessionID == "" {
		return domain.Identity{}, apperrors.MissingIdentity("user id and session id are required")
	}

	id := domain.Identity{UserID: userID, SessionID: sessionID}
	if err := m.store.WriteIdentity(ctx, id); err != nil {
		return domain.Identity{}, fmt.Errorf("persist identity: %w", err)
	}

	m.mu.Lock()
	m.current = id
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "user signed in",
		slog.String("user_id", userID),
	)
	return id, nil
}

// Logout clears the identity and starts a fresh, empty guest bucket. The
// user's bucket remains cached locally under its now-stale session key; it
// is never unioned into a later guest session.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.ClearIdentity(ctx); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	if err := m.store.DeleteList(ctx, domain.GuestKey()); err != nil {
		return fmt.Errorf("reset guest bucket: %w", err)
	}

	m.mu.Lock()
	prev := m.current
	m.current = domain.Identity{}
	m.mu.Unlock()

	if prev.Complete() {
		m.logger.InfoContext(ctx, "user signed out",
			slog.String("user_id", prev.UserID),
		)
	}
	return nil
}

// Refresh re-reads the persisted identity. Called when another instance
// broadcasts an identity change.
func (m *Manager) Refresh(ctx context.Context) (domain.Identity, error) {
	id, err := m.store.ReadIdentity(ctx)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("refresh identity: %w", err)
	}

	m.mu.Lock()
	m.current = id
	m.mu.Unlock()
	return id, nil
}
