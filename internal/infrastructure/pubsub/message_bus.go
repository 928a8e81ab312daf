package pubsub

import (
	"context"
	"fmt"
	"sync"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// subscription is one listener on a handshake's event stream
type subscription struct {
	id          string
	handshakeID string
	events      chan domain.WindowEvent
	ctx         context.Context
}

// MemoryMessageBus routes relayed window events to in-process listeners
type MemoryMessageBus struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	logger zerolog.Logger
	nextID int64
	idMu   sync.Mutex
}

// NewMemoryMessageBus creates a new in-process message bus
func NewMemoryMessageBus(logger zerolog.Logger) ports.MessageBus {
	return &MemoryMessageBus{
		subs:   make(map[string]*subscription),
		logger: logger,
	}
}

// Subscribe registers a listener for one handshake until ctx is done
func (b *MemoryMessageBus) Subscribe(ctx context.Context, handshakeID string) (<-chan domain.WindowEvent, error) {
	b.idMu.Lock()
	b.nextID++
	id := fmt.Sprintf("sub-%d", b.nextID)
	b.idMu.Unlock()

	sub := &subscription{
		id:          id,
		handshakeID: handshakeID,
		events:      make(chan domain.WindowEvent, 16),
		ctx:         ctx,
	}

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	b.logger.Debug().
		Str("subscriptionId", id).
		Str("handshakeId", handshakeID).
		Msg("Handshake listener registered")

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()

	return sub.events, nil
}

func (b *MemoryMessageBus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subs[id]
	if !exists {
		return
	}
	close(sub.events)
	delete(b.subs, id)

	b.logger.Debug().
		Str("subscriptionId", id).
		Str("handshakeId", sub.handshakeID).
		Msg("Handshake listener removed")
}

// Publish delivers an event to every listener of the handshake without blocking
func (b *MemoryMessageBus) Publish(ctx context.Context, handshakeID string, event domain.WindowEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs {
		if sub.handshakeID != handshakeID {
			continue
		}
		select {
		case sub.events <- event:
			delivered++
		case <-sub.ctx.Done():
		default:
			b.logger.Warn().
				Str("subscriptionId", sub.id).
				Str("handshakeId", handshakeID).
				Msg("Listener buffer full, dropping window event")
		}
	}

	b.logger.Debug().
		Str("handshakeId", handshakeID).
		Str("type", string(event.Type)).
		Int("listeners", delivered).
		Msg("Published window event")
	return nil
}

// Stats returns bus statistics
func (b *MemoryMessageBus) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return map[string]interface{}{
		"active_subscriptions": len(b.subs),
	}
}
