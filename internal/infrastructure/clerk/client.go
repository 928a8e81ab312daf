package clerk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/metrics"
	"target-onchain-shopify-app/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// requestTimeout bounds one upstream introspection call
const requestTimeout = 10 * time.Second

// tokenParam is the query credential the Clerk frontend API accepts in development instances
const tokenParam = "__clerk_db_jwt"

// Client introspects Clerk dev-browser tokens through the frontend API
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	group      singleflight.Group
}

// NewClient creates a Clerk client for baseURL (e.g. https://clerk.example.com)
func NewClient(baseURL string, httpClient *http.Client, m *metrics.Metrics, logger zerolog.Logger) ports.ClerkClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: requestTimeout,
		}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		metrics:    m,
		logger:     logger,
	}
}

// GetClient calls GET /v1/client for the token.
// Concurrent calls for the same token share one request. The shared request
// is detached from any single caller, so a caller that gives up only stops
// waiting and does not fail the others.
func (c *Client) GetClient(ctx context.Context, token string) (*domain.ClerkClientResponse, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	ch := c.group.DoChan(token, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
		defer cancel()
		return c.fetch(fetchCtx, token)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to call clerk: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug().Msg("Shared in-flight token introspection")
		}
		return res.Val.(*domain.ClerkClientResponse), nil
	}
}

func (c *Client) fetch(ctx context.Context, token string) (*domain.ClerkClientResponse, error) {
	endpoint := fmt.Sprintf("%s/v1/client?%s=%s", c.baseURL, tokenParam, url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveClerkRequest("network_error")
		return nil, fmt.Errorf("failed to call clerk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.metrics.ObserveClerkRequest("status_error")
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Msg("Clerk token introspection returned non-2xx status")
		return nil, &domain.StatusError{StatusCode: resp.StatusCode}
	}

	var body domain.ClerkClientResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.metrics.ObserveClerkRequest("decode_error")
		return nil, fmt.Errorf("failed to decode clerk response: %w", err)
	}

	c.metrics.ObserveClerkRequest("ok")
	c.logger.Debug().
		Int("sessions", len(body.Response.Sessions)).
		Msg("Clerk token introspection succeeded")
	return &body, nil
}
