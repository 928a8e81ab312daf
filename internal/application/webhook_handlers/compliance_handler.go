package webhook_handlers

import (
	"context"

	"target-onchain-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// ShopPurger erases the data stored for a shop
type ShopPurger interface {
	PurgeShop(ctx context.Context, shop string) (int64, error)
}

// ComplianceHandler handles the mandatory privacy webhooks.
// No customer data is stored, so only shop/redact has work to do.
type ComplianceHandler struct {
	logger  zerolog.Logger
	purgers []ShopPurger
}

// NewComplianceHandler creates a new compliance webhook handler.
// Every purger is run on shop/redact.
func NewComplianceHandler(logger zerolog.Logger, purgers ...ShopPurger) *ComplianceHandler {
	return &ComplianceHandler{
		logger:  logger,
		purgers: purgers,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ComplianceHandler) CanHandle(topic string) bool {
	return topic == "customers/data_request" ||
		topic == "customers/redact" ||
		topic == "shop/redact"
}

// Handle processes a compliance webhook event
func (h *ComplianceHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	if event.Topic != "shop/redact" {
		h.logger.Info().Str("topic", event.Topic).Str("shop", event.Shop).Msg("No customer data held")
		return nil
	}

	var total int64
	for _, p := range h.purgers {
		n, err := p.PurgeShop(ctx, event.Shop)
		if err != nil {
			return err
		}
		total += n
	}
	h.logger.Info().Str("shop", event.Shop).Int64("records", total).Msg("Shop data redacted")
	return nil
}
