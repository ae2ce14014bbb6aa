package http

import (
	"log/slog"
	"net/http"

	"github.com/yash24113/shofy-listsync/internal/session"
	"github.com/yash24113/shofy-listsync/internal/syncer"
	"github.com/yash24113/shofy-listsync/pkg/validator"
)

// SessionHandler serves sign-in, sign-out, and lifecycle triggers.
type SessionHandler struct {
	session *session.Manager
	engine  *syncer.Engine
	logger  *slog.Logger
}

// NewSessionHandler creates a session HTTP handler.
func NewSessionHandler(sess *session.Manager, engine *syncer.Engine, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		session: sess,
		engine:  engine,
		logger:  logger,
	}
}

// LoginRequest is the JSON body for establishing a session identity.
type LoginRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

// LifecycleRequest is the JSON body for a lifecycle trigger.
type LifecycleRequest struct {
	Event string `json:"event" validate:"required,oneof=focus visible"`
}

// SessionView is the rendered session state.
type SessionView struct {
	UserID    string `json:"user_id,omitempty"`
	SignedIn  bool   `json:"signed_in"`
	SyncState string `json:"sync_state"`
}

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := h.session.Current()
	writeJSON(w, http.StatusOK, response{Data: SessionView{
		UserID:    id.UserID,
		SignedIn:  id.Complete(),
		SyncState: string(h.engine.State()),
	}})
}

// Login handles POST /api/v1/session. A successful sign-in starts the
// guest-to-user reconciliation.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	id, err := h.session.Login(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.engine.Trigger(syncer.TriggerLogin)

	writeJSON(w, http.StatusOK, response{Data: SessionView{
		UserID:    id.UserID,
		SignedIn:  true,
		SyncState: string(h.engine.State()),
	}})
}

// Logout handles DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// Drops the engine back to the guest state.
	h.engine.Trigger(syncer.TriggerStorage)
	writeJSON(w, http.StatusOK, response{Data: SessionView{
		SignedIn:  false,
		SyncState: string(syncer.StateGuest),
	}})
}

// Lifecycle handles POST /api/v1/lifecycle. Focus and visibility events
// enqueue a re-sync; the response does not wait for it.
func (h *SessionHandler) Lifecycle(w http.ResponseWriter, r *http.Request) {
	var req LifecycleRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	switch req.Event {
	case "focus":
		h.engine.Trigger(syncer.TriggerFocus)
	case "visible":
		h.engine.Trigger(syncer.TriggerVisible)
	}

	writeJSON(w, http.StatusAccepted, response{Data: map[string]string{
		"status": "triggered",
		"event":  req.Event,
	}})
}
