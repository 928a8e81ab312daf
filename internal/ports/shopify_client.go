package ports

import (
	"context"
	"net/http"
	"net/url"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the Shopify operations the app needs
type ShopifyClient interface {
	// Authentication
	AuthorizeURL(shop string, state string) string
	VerifyCallback(u *url.URL) (bool, error)
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	// Webhooks
	VerifyWebhook(r *http.Request) bool

	// Product API
	GetProduct(ctx context.Context, shop string, accessToken string, productID uint64) (*shopify.Product, error)
}
