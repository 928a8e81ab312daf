package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger   zerolog.Logger
	sessions ports.SessionRepository
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(logger zerolog.Logger, sessions ports.SessionRepository) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:   logger,
		sessions: sessions,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle removes the shop's sessions. Frames are kept until shop/redact.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		var shopData struct {
			Domain          string `json:"domain"`
			MyshopifyDomain string `json:"myshopify_domain"`
		}
		if err := json.Unmarshal(event.Payload, &shopData); err != nil {
			return fmt.Errorf("failed to parse app uninstalled webhook payload: %w", err)
		}
		shopDomain = shopData.MyshopifyDomain
		if shopDomain == "" {
			shopDomain = shopData.Domain
		}
	}
	if shopDomain == "" {
		return fmt.Errorf("app uninstalled webhook without shop")
	}

	n, err := h.sessions.DeleteByShop(ctx, shopDomain)
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("shop", shopDomain).
		Int64("sessions", n).
		Msg("App uninstalled - sessions removed")
	return nil
}
