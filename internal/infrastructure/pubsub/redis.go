package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	channelPrefix  = "handshake:events:"
	snapshotPrefix = "handshake:state:"
	activePrefix   = "handshake:active:"
)

// RedisMessageBus relays window events between app instances over Redis pub/sub
type RedisMessageBus struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisMessageBus creates a Redis-backed message bus
func NewRedisMessageBus(client *redis.Client, logger zerolog.Logger) ports.MessageBus {
	return &RedisMessageBus{client: client, logger: logger}
}

// Publish sends the event on the handshake's channel
func (b *RedisMessageBus) Publish(ctx context.Context, handshakeID string, event domain.WindowEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode window event: %w", err)
	}
	if err := b.client.Publish(ctx, channelPrefix+handshakeID, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish window event: %w", err)
	}
	return nil
}

// Subscribe listens on the handshake's channel until ctx is done
func (b *RedisMessageBus) Subscribe(ctx context.Context, handshakeID string) (<-chan domain.WindowEvent, error) {
	sub := b.client.Subscribe(ctx, channelPrefix+handshakeID)
	// Wait for the subscription to be confirmed so no early event is missed
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to window events: %w", err)
	}

	events := make(chan domain.WindowEvent, 16)
	go func() {
		defer close(events)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.WindowEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn().Err(err).Str("handshakeId", handshakeID).Msg("Dropping undecodable window event")
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// RedisHandshakeStore keeps handshake snapshots in Redis so any instance can serve them
type RedisHandshakeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisHandshakeStore creates a Redis-backed snapshot store
func NewRedisHandshakeStore(client *redis.Client, ttl time.Duration) ports.HandshakeStore {
	return &RedisHandshakeStore{client: client, ttl: ttl}
}

// Save writes the snapshot with the store TTL
func (s *RedisHandshakeStore) Save(ctx context.Context, handshake *domain.Handshake) error {
	payload, err := json.Marshal(redisHandshake{Handshake: *handshake, SessionID: handshake.SessionID})
	if err != nil {
		return fmt.Errorf("failed to encode handshake: %w", err)
	}
	if err := s.client.Set(ctx, snapshotPrefix+handshake.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save handshake: %w", err)
	}
	return nil
}

// Get reads the snapshot; nil, nil when it is missing or expired
func (s *RedisHandshakeStore) Get(ctx context.Context, id string) (*domain.Handshake, error) {
	payload, err := s.client.Get(ctx, snapshotPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get handshake: %w", err)
	}

	var stored redisHandshake
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode handshake: %w", err)
	}
	h := stored.Handshake
	h.SessionID = stored.SessionID
	return &h, nil
}

// MarkActive points the session at handshakeID with the store TTL
func (s *RedisHandshakeStore) MarkActive(ctx context.Context, sessionID string, handshakeID string) error {
	if err := s.client.Set(ctx, activePrefix+sessionID, handshakeID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark active handshake: %w", err)
	}
	return nil
}

// Active returns the session's current handshake id, "" when none is recorded
func (s *RedisHandshakeStore) Active(ctx context.Context, sessionID string) (string, error) {
	id, err := s.client.Get(ctx, activePrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get active handshake: %w", err)
	}
	return id, nil
}

// redisHandshake persists the session id, which the API representation hides
type redisHandshake struct {
	domain.Handshake
	SessionID string `json:"sessionId"`
}
