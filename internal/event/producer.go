package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/yash24113/shofy-listsync/pkg/kafka"
)

// Kafka topic constants for list-state domain events.
const (
	TopicCartUpdated     = "storefront.cart.updated"
	TopicWishlistUpdated = "storefront.wishlist.updated"
	TopicWishlistSynced  = "storefront.wishlist.synced"
)

// Aggregate type constants.
const (
	AggregateTypeCart     = "cart"
	AggregateTypeWishlist = "wishlist"
)

// Source identifier for events originating from this service.
const SourceListSync = "listsync"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID     string   `json:"user_id"`
	ProductIDs []string `json:"product_ids"`
	ItemCount  int      `json:"item_count"`
}

// WishlistUpdatedData is the payload for a wishlist.updated event.
type WishlistUpdatedData struct {
	UserID     string   `json:"user_id,omitempty"`
	ProductIDs []string `json:"product_ids"`
	Count      int      `json:"count"`
}

// WishlistSyncedData is the payload for a wishlist.synced event, published
// when a reconciliation run completes.
type WishlistSyncedData struct {
	UserID     string   `json:"user_id"`
	ProductIDs []string `json:"product_ids"`
	Count      int      `json:"count"`
	Migrated   bool     `json:"migrated"`
}

// Producer publishes list-state domain events to Kafka. All publishes are
// best-effort: callers log failures and carry on.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, userID string, productIDs []string) error {
	data := CartUpdatedData{
		UserID:     userID,
		ProductIDs: productIDs,
		ItemCount:  len(productIDs),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, userID, AggregateTypeCart, SourceListSync, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", userID),
		slog.Int("item_count", len(productIDs)),
	)

	return nil
}

// PublishWishlistUpdated publishes a wishlist.updated event.
func (p *Producer) PublishWishlistUpdated(ctx context.Context, userID string, productIDs []string) error {
	data := WishlistUpdatedData{
		UserID:     userID,
		ProductIDs: productIDs,
		Count:      len(productIDs),
	}

	aggregateID := userID
	if aggregateID == "" {
		aggregateID = "guest"
	}

	event, err := pkgkafka.NewEvent(TopicWishlistUpdated, aggregateID, AggregateTypeWishlist, SourceListSync, data)
	if err != nil {
		return fmt.Errorf("create wishlist.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicWishlistUpdated, event); err != nil {
		return fmt.Errorf("publish wishlist.updated event: %w", err)
	}

	return nil
}

// PublishWishlistSynced publishes a wishlist.synced event after a
// reconciliation run.
func (p *Producer) PublishWishlistSynced(ctx context.Context, userID string, productIDs []string, migrated bool) error {
	data := WishlistSyncedData{
		UserID:     userID,
		ProductIDs: productIDs,
		Count:      len(productIDs),
		Migrated:   migrated,
	}

	event, err := pkgkafka.NewEvent(TopicWishlistSynced, userID, AggregateTypeWishlist, SourceListSync, data)
	if err != nil {
		return fmt.Errorf("create wishlist.synced event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicWishlistSynced, event); err != nil {
		return fmt.Errorf("publish wishlist.synced event: %w", err)
	}

	p.logger.DebugContext(ctx, "published wishlist.synced event",
		slog.String("user_id", userID),
		slog.Int("count", len(productIDs)),
	)

	return nil
}
