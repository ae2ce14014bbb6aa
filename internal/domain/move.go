package domain

import (
	"time"

	"github.com/google/uuid"
)

// Move step status constants.
const (
	MoveStepPending     = "pending"
	MoveStepCompleted   = "completed"
	MoveStepFailed      = "failed"
	MoveStepCompensated = "compensated"
)

// Move step name constants.
const (
	MoveStepAddToCart          = "add_to_cart"
	MoveStepRemoveFromWishlist = "remove_from_wishlist"
	MoveStepAddToWishlist      = "add_to_wishlist"
	MoveStepRemoveFromCart     = "remove_from_cart"
)

// Move direction constants.
const (
	MoveWishlistToCart = "wishlist_to_cart"
	MoveCartToWishlist = "cart_to_wishlist"
)

// MoveStep tracks the execution status of one phase of a cross-list move.
type MoveStep struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executed_at,omitempty"`
}

// Complete marks the step as successfully completed.
func (s *MoveStep) Complete() {
	s.Status = MoveStepCompleted
	s.ExecutedAt = time.Now().UTC()
}

// Fail marks the step as failed with the given error message.
func (s *MoveStep) Fail(err string) {
	s.Status = MoveStepFailed
	s.Error = err
	s.ExecutedAt = time.Now().UTC()
}

// Compensate marks the step as compensated (rolled back).
func (s *MoveStep) Compensate() {
	s.Status = MoveStepCompensated
	s.ExecutedAt = time.Now().UTC()
}

// MoveIntent records a two-phase cross-list move before its first remote call
// is issued. A move that fails after phase one is detectable from the journal
// and can be retried or compensated instead of silently leaving both or
// neither list updated.
type MoveIntent struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Entry     ListEntry  `json:"entry"`
	Direction string     `json:"direction"`
	Steps     []MoveStep `json:"steps"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewMoveIntent creates a pending move intent with the phases appropriate for
// its direction.
func NewMoveIntent(userID string, entry ListEntry, direction string) *MoveIntent {
	var steps []MoveStep
	switch direction {
	case MoveWishlistToCart:
		steps = []MoveStep{
			{Name: MoveStepAddToCart, Status: MoveStepPending},
			{Name: MoveStepRemoveFromWishlist, Status: MoveStepPending},
		}
	case MoveCartToWishlist:
		steps = []MoveStep{
			{Name: MoveStepAddToWishlist, Status: MoveStepPending},
			{Name: MoveStepRemoveFromCart, Status: MoveStepPending},
		}
	}

	return &MoveIntent{
		ID:        uuid.New().String(),
		UserID:    userID,
		Entry:     entry,
		Direction: direction,
		Steps:     steps,
		CreatedAt: time.Now().UTC(),
	}
}

// Step returns the step with the given name, or nil.
func (m *MoveIntent) Step(name string) *MoveStep {
	for i := range m.Steps {
		if m.Steps[i].Name == name {
			return &m.Steps[i]
		}
	}
	return nil
}

// Completed reports whether every step finished successfully.
func (m *MoveIntent) Completed() bool {
	for _, s := range m.Steps {
		if s.Status != MoveStepCompleted {
			return false
		}
	}
	return len(m.Steps) > 0
}

// Settled reports whether the intent needs no further work: every step is
// either completed or compensated.
func (m *MoveIntent) Settled() bool {
	for _, s := range m.Steps {
		if s.Status == MoveStepPending || s.Status == MoveStepFailed {
			return false
		}
	}
	return len(m.Steps) > 0
}
