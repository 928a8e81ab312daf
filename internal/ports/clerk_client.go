package ports

import (
	"context"

	"target-onchain-shopify-app/internal/domain"
)

// ClerkClient introspects a Clerk dev-browser token.
// A non-2xx answer is reported as *domain.StatusError.
type ClerkClient interface {
	GetClient(ctx context.Context, token string) (*domain.ClerkClientResponse, error)
}
