package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"target-onchain-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// ProductHandleRefresher keeps stored product handles in sync
type ProductHandleRefresher interface {
	RefreshProductHandle(ctx context.Context, shop string, productID uint64, handle string) (int64, error)
}

// productPayload is the part of the product webhook body we read
type productPayload struct {
	ID     uint64 `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// ProductHandler handles product-related webhook events
type ProductHandler struct {
	logger zerolog.Logger
	frames ProductHandleRefresher
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(logger zerolog.Logger, frames ProductHandleRefresher) *ProductHandler {
	return &ProductHandler{
		logger: logger,
		frames: frames,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == "products/update" ||
		topic == "products/delete"
}

// Handle processes a product webhook event
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var product productPayload
	if err := json.Unmarshal(event.Payload, &product); err != nil {
		return fmt.Errorf("failed to parse product webhook payload: %w", err)
	}

	switch event.Topic {
	case "products/update":
		n, err := h.frames.RefreshProductHandle(ctx, event.Shop, product.ID, product.Handle)
		if err != nil {
			return err
		}
		h.logger.Info().
			Str("shop", event.Shop).
			Uint64("productId", product.ID).
			Str("handle", product.Handle).
			Int64("frames", n).
			Msg("Product updated")
	case "products/delete":
		// frames keep their reference; the destination is still computed from the stored handle
		h.logger.Info().Str("shop", event.Shop).Uint64("productId", product.ID).Msg("Product deleted")
	}

	return nil
}
