package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/yash24113/shofy-listsync/pkg/errors"

	"github.com/yash24113/shofy-listsync/internal/domain"
)

// WishlistClient talks to the remote wishlist API.
type WishlistClient struct {
	client  Doer
	baseURL string
}

// NewWishlistClient creates a wishlist client against the given base URL.
func NewWishlistClient(client Doer, baseURL string) *WishlistClient {
	return &WishlistClient{client: client, baseURL: baseURL}
}

// Fetch retrieves the user's wishlist. The endpoint has shipped several
// response shapes over time: a bare array of rows, an object wrapping rows
// under "items", and an object carrying only "productIds". All three are
// tolerated. A wishlist the server has never seen reads as empty.
func (c *WishlistClient) Fetch(ctx context.Context, userID string) (domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.MissingIdentity("user id is required")
	}

	env, err := call(ctx, c.client, http.MethodGet, fmt.Sprintf("%s/wishlist/%s", c.baseURL, userID), nil)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Snapshot{}, nil
		}
		return nil, fmt.Errorf("fetch wishlist: %w", err)
	}

	entries, err := decodeWishlist(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decode wishlist: %w", err)
	}

	return domain.NewSnapshot(entries), nil
}

// Replace overwrites the user's entire server-side wishlist with the given
// id list. Never partial: the server either applies the full replacement or
// rejects it.
func (c *WishlistClient) Replace(ctx context.Context, userID string, productIDs []string) error {
	if userID == "" {
		return apperrors.MissingIdentity("user id is required")
	}
	if productIDs == nil {
		productIDs = []string{}
	}

	body := map[string]any{
		"userId":     userID,
		"productIds": productIDs,
	}
	url := fmt.Sprintf("%s/wishlist/%s", c.baseURL, userID)
	if _, err := call(ctx, c.client, http.MethodPut, url, body); err != nil {
		return fmt.Errorf("replace wishlist: %w", err)
	}
	return nil
}

func decodeWishlist(data json.RawMessage) ([]domain.ListEntry, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	// Bare array of rows.
	var payloads []entryPayload
	if err := json.Unmarshal(data, &payloads); err == nil {
		return payloadsToDomain(payloads), nil
	}

	// Object form: {items} or {productIds}.
	var wrapped struct {
		Items      []entryPayload `json:"items"`
		ProductIDs []string       `json:"productIds"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("unrecognized wishlist shape: %w", err)
	}

	if wrapped.Items != nil {
		return payloadsToDomain(wrapped.Items), nil
	}

	entries := make([]domain.ListEntry, 0, len(wrapped.ProductIDs))
	for _, id := range wrapped.ProductIDs {
		entries = append(entries, domain.Stub(id))
	}
	return entries, nil
}
