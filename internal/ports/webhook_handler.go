package ports

import (
	"context"

	"target-onchain-shopify-app/internal/domain"
)

// WebhookHandler processes webhook deliveries for the topics it accepts
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}
