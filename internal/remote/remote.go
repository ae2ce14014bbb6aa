package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/yash24113/shofy-listsync/pkg/errors"

	"github.com/yash24113/shofy-listsync/internal/domain"
)

// Doer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CartAPI is the remote cart endpoint surface. Every mutation is scoped to
// one (userID, productID) pair and is idempotent on the server side.
type CartAPI interface {
	Fetch(ctx context.Context, userID string) (domain.Snapshot, error)
	Add(ctx context.Context, userID string, entry domain.ListEntry) error
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

// WishlistAPI is the remote wishlist endpoint surface. Replace is a full
// overwrite, never partial; it is the only wishlist write the engine uses.
type WishlistAPI interface {
	Fetch(ctx context.Context, userID string) (domain.Snapshot, error)
	Replace(ctx context.Context, userID string, productIDs []string) error
}

// envelope is the standard response wrapper of the remote list service.
// Non-2xx or success:false is an error.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// entryPayload is the wire shape of a list row.
type entryPayload struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title,omitempty"`
	Slug      string  `json:"slug,omitempty"`
	Design    string  `json:"design,omitempty"`
	Color     string  `json:"color,omitempty"`
	UnitPrice float64 `json:"unitPrice,omitempty"`
	ImageRef  string  `json:"img,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`
}

func (p entryPayload) toDomain() domain.ListEntry {
	return domain.ListEntry{
		ProductID: p.ProductID,
		Title:     p.Title,
		Slug:      p.Slug,
		Design:    p.Design,
		Color:     p.Color,
		UnitPrice: p.UnitPrice,
		ImageRef:  p.ImageRef,
		Quantity:  p.Quantity,
	}
}

// call performs one request against the remote service and decodes the
// envelope. Transport failures map to the network error class, non-2xx and
// success:false to the server-rejected class. A nil body is sent for
// bodyless requests.
func call(ctx context.Context, client Doer, method, url string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Network(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Network(err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFound("remote list", url)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, apperrors.ServerRejected(fmt.Sprintf("status %d: %s", resp.StatusCode, raw))
		}
		return nil, apperrors.ServerRejected(fmt.Sprintf("unparseable response: %s", raw))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, apperrors.ServerRejected(msg)
	}

	return &env, nil
}
