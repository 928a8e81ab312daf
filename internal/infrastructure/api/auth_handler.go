package api

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"target-onchain-shopify-app/internal/application"
	"target-onchain-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// maxWebhookBody caps the webhook payload we are willing to buffer
const maxWebhookBody = 1 << 20

// AuthHandler serves installation and webhook endpoints
type AuthHandler struct {
	shopify  *application.ShopifyService
	webhooks *application.WebhookService
	apiKey   string
	logger   zerolog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(shopify *application.ShopifyService, webhooks *application.WebhookService, apiKey string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{shopify: shopify, webhooks: webhooks, apiKey: apiKey, logger: logger}
}

// Begin initiates the OAuth flow
func (h *AuthHandler) Begin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := h.shopify.GenerateAuthURL(r.Context(), r.URL.Query().Get("shop"))
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// Callback completes the OAuth flow and sends the merchant into the admin
func (h *AuthHandler) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.shopify.CompleteAuth(r.Context(), r.URL)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		http.Redirect(w, r, "https://"+session.Shop+"/admin/apps/"+url.PathEscape(h.apiKey), http.StatusFound)
	}
}

// Webhook verifies and dispatches a Shopify webhook
func (h *AuthHandler) Webhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to read webhook payload")
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(payload))

		verified := h.shopify.VerifyWebhook(r)
		shop := r.Header.Get("X-Shopify-Shop-Domain")

		if err := h.webhooks.ProcessWebhook(r.Context(), topic, shop, payload, verified); err != nil {
			// non-2xx makes Shopify retry
			writeError(w, err, h.logger)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// Deliveries lists the webhooks recently received for the session shop
func (h *AuthHandler) Deliveries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveries, err := h.webhooks.RecentDeliveries(r.Context(), domain.SessionFromContext(r.Context()))
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"deliveries": deliveries})
	}
}
