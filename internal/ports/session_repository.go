package ports

import (
	"context"

	"target-onchain-shopify-app/internal/domain"
)

// SessionRepository defines the interface for Shopify session persistence
type SessionRepository interface {
	// Save upserts the session by ID
	Save(ctx context.Context, session *domain.Session) error

	// GetByID returns nil, nil when the session does not exist
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// SetClerkDbJwt links an external account token to the session
	SetClerkDbJwt(ctx context.Context, id string, token string) error

	// ClearClerkDbJwt removes the linked token from the session
	ClearClerkDbJwt(ctx context.Context, id string) error

	// Delete removes one session; deleting a missing session is not an error
	Delete(ctx context.Context, id string) error

	// DeleteByShop removes every session of the shop
	DeleteByShop(ctx context.Context, shop string) (int64, error)
}
