package pubsub

import (
	"context"
	"sync"
	"time"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/ports"
)

type storedHandshake struct {
	handshake domain.Handshake
	expiresAt time.Time
}

// MemoryHandshakeStore keeps handshake snapshots in process memory
type MemoryHandshakeStore struct {
	mu         sync.Mutex
	handshakes map[string]storedHandshake
	active     map[string]storedHandshake // by session id
	ttl        time.Duration
	now        func() time.Time
}

// NewMemoryHandshakeStore creates a store whose entries expire after ttl
func NewMemoryHandshakeStore(ttl time.Duration) ports.HandshakeStore {
	return &MemoryHandshakeStore{
		handshakes: make(map[string]storedHandshake),
		active:     make(map[string]storedHandshake),
		ttl:        ttl,
		now:        time.Now,
	}
}

// Save stores a copy of the snapshot and prunes expired entries
func (s *MemoryHandshakeStore) Save(ctx context.Context, handshake *domain.Handshake) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, stored := range s.handshakes {
		if now.After(stored.expiresAt) {
			delete(s.handshakes, id)
		}
	}
	for sessionID, stored := range s.active {
		if now.After(stored.expiresAt) {
			delete(s.active, sessionID)
		}
	}

	s.handshakes[handshake.ID] = storedHandshake{
		handshake: *handshake,
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

// Get returns a copy of the snapshot
func (s *MemoryHandshakeStore) Get(ctx context.Context, id string) (*domain.Handshake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.handshakes[id]
	if !ok || s.now().After(stored.expiresAt) {
		return nil, nil
	}
	h := stored.handshake
	return &h, nil
}

// MarkActive points the session at handshakeID until the store TTL passes
func (s *MemoryHandshakeStore) MarkActive(ctx context.Context, sessionID string, handshakeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[sessionID] = storedHandshake{
		handshake: domain.Handshake{ID: handshakeID, SessionID: sessionID},
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Active returns the session's current handshake id
func (s *MemoryHandshakeStore) Active(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.active[sessionID]
	if !ok || s.now().After(stored.expiresAt) {
		return "", nil
	}
	return stored.handshake.ID, nil
}
