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

// CartClient talks to the remote cart API.
type CartClient struct {
	client  Doer
	baseURL string
}

// NewCartClient creates a cart client against the given base URL.
func NewCartClient(client Doer, baseURL string) *CartClient {
	return &CartClient{client: client, baseURL: baseURL}
}

// Fetch retrieves the user's cart. A cart the server has never seen reads as
// an empty snapshot, not an error.
func (c *CartClient) Fetch(ctx context.Context, userID string) (domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.MissingIdentity("user id is required")
	}

	env, err := call(ctx, c.client, http.MethodGet, fmt.Sprintf("%s/cart/user/%s", c.baseURL, userID), nil)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Snapshot{}, nil
		}
		return nil, fmt.Errorf("fetch cart: %w", err)
	}

	entries, err := decodeEntries(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	return domain.NewSnapshot(entries), nil
}

// Add adds one product to the user's cart.
func (c *CartClient) Add(ctx context.Context, userID string, entry domain.ListEntry) error {
	if userID == "" || entry.ProductID == "" {
		return apperrors.MissingIdentity("user id and product id are required")
	}

	body := map[string]any{
		"productId": entry.ProductID,
		"userId":    userID,
		"quantity":  entry.Quantity,
	}
	if _, err := call(ctx, c.client, http.MethodPost, c.baseURL+"/cart/add", body); err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of one cart row. Idempotent: repeating the
// call with the same target quantity yields the same server state.
func (c *CartClient) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if userID == "" || productID == "" {
		return apperrors.MissingIdentity("user id and product id are required")
	}

	body := map[string]any{
		"quantity": quantity,
		"userId":   userID,
	}
	url := fmt.Sprintf("%s/cart/update/%s", c.baseURL, productID)
	if _, err := call(ctx, c.client, http.MethodPut, url, body); err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}
	return nil
}

// Remove deletes one row from the user's cart.
func (c *CartClient) Remove(ctx context.Context, userID, productID string) error {
	if userID == "" || productID == "" {
		return apperrors.MissingIdentity("user id and product id are required")
	}

	body := map[string]any{"userId": userID}
	url := fmt.Sprintf("%s/cart/remove/%s", c.baseURL, productID)
	if _, err := call(ctx, c.client, http.MethodDelete, url, body); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

// Clear empties the user's cart.
func (c *CartClient) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.MissingIdentity("user id is required")
	}

	body := map[string]any{"userId": userID}
	if _, err := call(ctx, c.client, http.MethodDelete, c.baseURL+"/cart/clear", body); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// decodeEntries accepts either a bare array of rows or an object wrapping
// them under "items".
func decodeEntries(data json.RawMessage) ([]domain.ListEntry, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var payloads []entryPayload
	if err := json.Unmarshal(data, &payloads); err == nil {
		return payloadsToDomain(payloads), nil
	}

	var wrapped struct {
		Items []entryPayload `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("unrecognized list shape: %w", err)
	}
	return payloadsToDomain(wrapped.Items), nil
}

func payloadsToDomain(payloads []entryPayload) []domain.ListEntry {
	entries := make([]domain.ListEntry, 0, len(payloads))
	for _, p := range payloads {
		entries = append(entries, p.toDomain())
	}
	return entries
}
