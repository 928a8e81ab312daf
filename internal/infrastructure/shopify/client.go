package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// adminAPIRetries is how often a throttled Admin API call is retried
const adminAPIRetries = 3

// Client adapts go-shopify to the operations the app performs against Shopify:
// the OAuth install handshake, webhook HMAC checks and product lookups.
type Client struct {
	app    goshopify.App
	logger zerolog.Logger
}

// NewClient creates a Shopify client for the app credentials. The OAuth
// redirect always points at /auth/callback on appURL.
func NewClient(apiKey, apiSecret string, scopes []string, appURL string, logger zerolog.Logger) *Client {
	for i, s := range scopes {
		scopes[i] = strings.TrimSpace(s)
	}
	return &Client{
		app: goshopify.App{
			ApiKey:      apiKey,
			ApiSecret:   apiSecret,
			RedirectUrl: strings.TrimSuffix(appURL, "/") + "/auth/callback",
			Scope:       strings.Join(scopes, ","),
		},
		logger: logger,
	}
}

// AuthorizeURL builds the install grant URL on the shop's admin
func (c *Client) AuthorizeURL(shop string, state string) string {
	q := url.Values{}
	q.Set("client_id", c.app.ApiKey)
	q.Set("scope", c.app.Scope)
	q.Set("redirect_uri", c.app.RedirectUrl)
	q.Set("state", state)

	u := url.URL{Scheme: "https", Host: shop, Path: "/admin/oauth/authorize", RawQuery: q.Encode()}
	return u.String()
}

// VerifyCallback checks the hmac Shopify signs the callback query with
func (c *Client) VerifyCallback(u *url.URL) (bool, error) {
	ok, err := c.app.VerifyAuthorizationURL(u)
	if err != nil {
		return false, fmt.Errorf("failed to verify oauth callback: %w", err)
	}
	return ok, nil
}

// ExchangeToken trades the authorization code for an offline access token
func (c *Client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	token, err := c.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code for %s: %w", shop, err)
	}
	return token, nil
}

func (c *Client) VerifyWebhook(r *http.Request) bool {
	return c.app.VerifyWebhookRequest(r)
}

// GetProduct loads a product through the Admin REST API
func (c *Client) GetProduct(ctx context.Context, shop string, accessToken string, productID uint64) (*goshopify.Product, error) {
	api, err := goshopify.NewClient(c.app, shop, accessToken, goshopify.WithRetry(adminAPIRetries))
	if err != nil {
		return nil, fmt.Errorf("failed to create admin api client: %w", err)
	}

	product, err := api.Product.Get(ctx, productID, nil)
	if err != nil {
		c.logger.Debug().Err(err).Str("shop", shop).Uint64("productId", productID).Msg("Product lookup failed")
		return nil, fmt.Errorf("failed to get product %d: %w", productID, err)
	}
	return product, nil
}
