package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yash24113/shofy-listsync/internal/cache"
	"github.com/yash24113/shofy-listsync/internal/controller"
	"github.com/yash24113/shofy-listsync/internal/domain"
	"github.com/yash24113/shofy-listsync/pkg/validator"
)

// ListHandler serves the cart and wishlist surfaces. Reads come from the
// reactive caches, never from the remote service directly; the inline
// loading and error flags mirror what the cache knows.
type ListHandler struct {
	cart     *controller.CartController
	wishlist *controller.WishlistController
	logger   *slog.Logger
}

// NewListHandler creates a list HTTP handler.
func NewListHandler(cart *controller.CartController, wishlist *controller.WishlistController, logger *slog.Logger) *ListHandler {
	return &ListHandler{
		cart:     cart,
		wishlist: wishlist,
		logger:   logger,
	}
}

// --- Request DTOs ---

// EntryRequest is the JSON body for adding an entry to either list.
type EntryRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Title     string  `json:"title" validate:"max=500"`
	Slug      string  `json:"slug" validate:"max=500"`
	Design    string  `json:"design" validate:"max=200"`
	Color     string  `json:"color" validate:"max=100"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	ImageRef  string  `json:"image_ref"`
	Quantity  int     `json:"quantity" validate:"gte=0"`
}

func (r EntryRequest) toDomain() domain.ListEntry {
	return domain.ListEntry{
		ProductID: r.ProductID,
		Title:     r.Title,
		Slug:      r.Slug,
		Design:    r.Design,
		Color:     r.Color,
		UnitPrice: r.UnitPrice,
		ImageRef:  r.ImageRef,
		Quantity:  r.Quantity,
	}
}

// --- Response DTOs ---

// RowView is one list row plus its visibility under the active filter.
type RowView struct {
	domain.ListEntry
	Visible bool `json:"visible"`
}

// ListView is the rendered state of one list.
type ListView struct {
	Rows         []RowView `json:"rows"`
	VisibleCount int       `json:"visible_count"`
	Empty        bool      `json:"empty"`
	Loading      bool      `json:"loading"`
	Error        string    `json:"error,omitempty"`
}

// viewOf renders a cache state through a filter query. Filtered-out rows
// are marked hidden, not removed; the empty banner shows exactly when no
// row is visible.
func viewOf(state cache.State, query string) ListView {
	matcher := controller.NewMatcher(query)

	rows := make([]RowView, 0, len(state.Snapshot))
	visible := 0
	for _, e := range state.Snapshot.Entries() {
		v := matcher.Match(e)
		if v {
			visible++
		}
		rows = append(rows, RowView{ListEntry: e, Visible: v})
	}

	view := ListView{
		Rows:         rows,
		VisibleCount: visible,
		Empty:        visible == 0,
		Loading:      state.Loading,
	}
	if state.Err != nil {
		view.Error = state.Err.Error()
	}
	return view
}

// --- Cart handlers ---

// GetCart handles GET /api/v1/cart
func (h *ListHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view := viewOf(h.cart.Cache().State(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, response{Data: view})
}

// RefreshCart handles POST /api/v1/cart/refresh (the retry button).
func (h *ListHandler) RefreshCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Refresh(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: viewOf(h.cart.Cache().State(), "")})
}

// AddCartItem handles POST /api/v1/cart/items
func (h *ListHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.cart.Add(r.Context(), req.toDomain()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: viewOf(h.cart.Cache().State(), "")})
}

// IncrementCartItem handles POST /api/v1/cart/items/{productId}/increment
func (h *ListHandler) IncrementCartItem(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, h.cart.Increment)
}

// DecrementCartItem handles POST /api/v1/cart/items/{productId}/decrement
func (h *ListHandler) DecrementCartItem(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, h.cart.Decrement)
}

func (h *ListHandler) changeQuantity(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, productID string) error) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "productId is required"},
		})
		return
	}

	if err := op(r.Context(), productID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: viewOf(h.cart.Cache().State(), "")})
}

// RemoveCartItem handles DELETE /api/v1/cart/items/{productId}. The removed
// product moves to the wishlist.
func (h *ListHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "productId is required"},
		})
		return
	}

	if err := h.cart.Remove(r.Context(), productID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: viewOf(h.cart.Cache().State(), "")})
}

// ClearCart handles DELETE /api/v1/cart
func (h *ListHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "cleared"}})
}

// --- Wishlist handlers ---

// GetWishlist handles GET /api/v1/wishlist
func (h *ListHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	view := viewOf(h.wishlist.Cache().State(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, response{Data: view})
}

// RefreshWishlist handles POST /api/v1/wishlist/refresh
func (h *ListHandler) RefreshWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.wishlist.Refresh(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: viewOf(h.wishlist.Cache().State(), "")})
}

// AddWishlistItem handles POST /api/v1/wishlist/items
func (h *ListHandler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.wishlist.Add(r.Context(), req.toDomain()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: viewOf(h.wishlist.Cache().State(), "")})
}

// RemoveWishlistItem handles DELETE /api/v1/wishlist/items/{productId}
func (h *ListHandler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "productId is required"},
		})
		return
	}

	if err := h.wishlist.Remove(r.Context(), productID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: viewOf(h.wishlist.Cache().State(), "")})
}

// MoveWishlistItemToCart handles POST /api/v1/wishlist/items/{productId}/move-to-cart
func (h *ListHandler) MoveWishlistItemToCart(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "productId is required"},
		})
		return
	}

	if err := h.wishlist.MoveToCart(r.Context(), productID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.cart.Refresh(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "cart refresh after move failed",
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, http.StatusOK, response{Data: viewOf(h.wishlist.Cache().State(), "")})
}
