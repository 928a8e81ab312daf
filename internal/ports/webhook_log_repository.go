package ports

import (
	"context"

	"target-onchain-shopify-app/internal/domain"
)

// WebhookLogRepository keeps an audit trail of webhook deliveries
type WebhookLogRepository interface {
	LogWebhook(ctx context.Context, delivery *domain.WebhookDelivery) error
	// ListByShop returns the shop's deliveries, newest first
	ListByShop(ctx context.Context, shop string, limit int64) ([]*domain.WebhookDelivery, error)
}
