package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/yash24113/shofy-listsync/internal/domain"
	"github.com/yash24113/shofy-listsync/internal/localstore"
)

const (
	keyPrefix     = "pls:"
	identityKey   = keyPrefix + "identity"
	movesKey      = keyPrefix + "moves"
	changeChannel = keyPrefix + "changes"
)

// Store implements localstore.Store on a device-local Redis database.
// Buckets are JSON values; every write publishes a change notification on a
// pub/sub channel so other running instances can react, mirroring the
// storage-event semantics of a shared browser store.
type Store struct {
	client     *redis.Client
	instanceID string
	logger     *slog.Logger
}

// NewStore creates a Redis-backed local store. instanceID identifies this
// process in broadcast notifications.
func NewStore(client *redis.Client, instanceID string, logger *slog.Logger) *Store {
	return &Store{
		client:     client,
		instanceID: instanceID,
		logger:     logger,
	}
}

// ReadList returns the entries in the given bucket. A missing bucket or a
// corrupt value reads as empty; corruption is logged, never surfaced.
func (s *Store) ReadList(ctx context.Context, key domain.StorageKey) ([]domain.ListEntry, error) {
	data, err := s.client.Get(ctx, keyPrefix+key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return []domain.ListEntry{}, nil
		}
		return nil, fmt.Errorf("redis get bucket %s: %w", key, err)
	}

	var entries []domain.ListEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.WarnContext(ctx, "corrupt bucket, treating as empty",
			slog.String("bucket", key.String()),
			slog.String("error", err.Error()),
		)
		return []domain.ListEntry{}, nil
	}

	return entries, nil
}

// WriteList replaces the bucket's contents and broadcasts the change.
func (s *Store) WriteList(ctx context.Context, key domain.StorageKey, entries []domain.ListEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal bucket %s: %w", key, err)
	}

	if err := s.client.Set(ctx, keyPrefix+key.String(), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set bucket %s: %w", key, err)
	}

	s.broadcast(ctx, localstore.Change{
		Kind:   localstore.ChangeList,
		Key:    key.String(),
		Origin: s.instanceID,
	})

	return nil
}

// DeleteList removes the bucket and broadcasts the change.
func (s *Store) DeleteList(ctx context.Context, key domain.StorageKey) error {
	if err := s.client.Del(ctx, keyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("redis del bucket %s: %w", key, err)
	}

	s.broadcast(ctx, localstore.Change{
		Kind:   localstore.ChangeList,
		Key:    key.String(),
		Origin: s.instanceID,
	})

	return nil
}

// ReadIdentity returns the persisted identity, or the zero Identity when
// absent or corrupt.
func (s *Store) ReadIdentity(ctx context.Context) (domain.Identity, error) {
	data, err := s.client.Get(ctx, identityKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.Identity{}, nil
		}
		return domain.Identity{}, fmt.Errorf("redis get identity: %w", err)
	}

	var id domain.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		s.logger.WarnContext(ctx, "corrupt identity, treating as absent",
			slog.String("error", err.Error()),
		)
		return domain.Identity{}, nil
	}

	return id, nil
}

// WriteIdentity persists the identity and broadcasts the change. This is the
// signal other instances use to start their own reconciliation.
func (s *Store) WriteIdentity(ctx context.Context, id domain.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	if err := s.client.Set(ctx, identityKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set identity: %w", err)
	}

	s.broadcast(ctx, localstore.Change{
		Kind:   localstore.ChangeIdentity,
		Origin: s.instanceID,
	})

	return nil
}

// ClearIdentity removes the persisted identity and broadcasts the change.
func (s *Store) ClearIdentity(ctx context.Context) error {
	if err := s.client.Del(ctx, identityKey).Err(); err != nil {
		return fmt.Errorf("redis del identity: %w", err)
	}

	s.broadcast(ctx, localstore.Change{
		Kind:   localstore.ChangeIdentity,
		Origin: s.instanceID,
	})

	return nil
}

// ReadMoves returns the recorded move intents. Missing or corrupt journals
// read as empty.
func (s *Store) ReadMoves(ctx context.Context) ([]domain.MoveIntent, error) {
	data, err := s.client.Get(ctx, movesKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return []domain.MoveIntent{}, nil
		}
		return nil, fmt.Errorf("redis get moves: %w", err)
	}

	var moves []domain.MoveIntent
	if err := json.Unmarshal(data, &moves); err != nil {
		s.logger.WarnContext(ctx, "corrupt move journal, treating as empty",
			slog.String("error", err.Error()),
		)
		return []domain.MoveIntent{}, nil
	}

	return moves, nil
}

// WriteMoves replaces the move-intent journal.
func (s *Store) WriteMoves(ctx context.Context, moves []domain.MoveIntent) error {
	data, err := json.Marshal(moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	if err := s.client.Set(ctx, movesKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set moves: %w", err)
	}

	return nil
}

// Subscribe returns a channel of change notifications published by all
// instances sharing this store, this one included. The channel closes when
// ctx is canceled.
func (s *Store) Subscribe(ctx context.Context) (<-chan localstore.Change, error) {
	sub := s.client.Subscribe(ctx, changeChannel)

	// Force the subscription to be established before returning, so callers
	// never miss changes written after Subscribe returns.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", changeChannel, err)
	}

	out := make(chan localstore.Change, 16)
	msgs := sub.Channel()

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change localstore.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					s.logger.Warn("malformed change notification",
						slog.String("payload", msg.Payload),
					)
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// broadcast publishes a change notification. Best-effort: a failed publish
// only delays other instances until their next lifecycle trigger.
func (s *Store) broadcast(ctx context.Context, change localstore.Change) {
	data, err := json.Marshal(change)
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, changeChannel, data).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to broadcast change",
			slog.String("kind", string(change.Kind)),
			slog.String("error", err.Error()),
		)
	}
}
