package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// oauthStateTTL bounds how long an installation may take
const oauthStateTTL = 10 * time.Minute

// ShopifyService implements installation and session lookup.
// It depends on ports (interfaces) not concrete implementations
type ShopifyService struct {
	sessions ports.SessionRepository
	client   ports.ShopifyClient
	logger   zerolog.Logger
	scopes   string
	now      func() time.Time
}

// NewShopifyService creates a new Shopify application service
func NewShopifyService(sessions ports.SessionRepository, client ports.ShopifyClient, scopes string, logger zerolog.Logger) *ShopifyService {
	return &ShopifyService{
		sessions: sessions,
		client:   client,
		logger:   logger,
		scopes:   scopes,
		now:      time.Now,
	}
}

// GenerateAuthURL starts the OAuth flow for a shop and returns the
// authorization URL the merchant must be sent to.
func (s *ShopifyService) GenerateAuthURL(ctx context.Context, shop string) (string, error) {
	if !domain.IsValidShopDomain(shop) {
		return "", domain.ErrInvalidShop
	}

	// Generate random state for CSRF protection
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	expires := s.now().Add(oauthStateTTL)
	pending := &domain.Session{
		ID:      domain.OAuthStateSessionID(state),
		Shop:    shop,
		State:   state,
		Scope:   s.scopes,
		Expires: &expires,
	}
	if err := s.sessions.Save(ctx, pending); err != nil {
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}

	authURL := s.client.AuthorizeURL(shop, state)
	s.logger.Info().Str("shop", shop).Str("scopes", s.scopes).Msg("Generated OAuth authorization URL")
	return authURL, nil
}

// CompleteAuth verifies the OAuth callback, exchanges the code and stores the
// shop's offline session. A linked account survives reinstallation.
func (s *ShopifyService) CompleteAuth(ctx context.Context, callback *url.URL) (*domain.Session, error) {
	query := callback.Query()
	shop := query.Get("shop")
	code := query.Get("code")
	state := query.Get("state")
	if shop == "" || code == "" || state == "" {
		return nil, fmt.Errorf("%w: missing required parameters", domain.ErrUnauthorized)
	}
	if !domain.IsValidShopDomain(shop) {
		return nil, domain.ErrInvalidShop
	}

	ok, err := s.client.VerifyCallback(callback)
	if err != nil || !ok {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("OAuth callback signature verification failed")
		return nil, fmt.Errorf("%w: invalid callback signature", domain.ErrUnauthorized)
	}

	pendingID := domain.OAuthStateSessionID(state)
	pending, err := s.sessions.GetByID(ctx, pendingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth state: %w", err)
	}
	if pending == nil || pending.Shop != shop || (pending.Expires != nil && s.now().After(*pending.Expires)) {
		return nil, fmt.Errorf("%w: invalid oauth state", domain.ErrUnauthorized)
	}
	if err := s.sessions.Delete(ctx, pendingID); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to delete oauth state")
	}

	accessToken, err := s.client.ExchangeToken(ctx, shop, code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	session := &domain.Session{
		ID:          domain.OfflineSessionID(shop),
		Shop:        shop,
		State:       state,
		Scope:       pending.Scope,
		AccessToken: accessToken,
	}

	existing, err := s.sessions.GetByID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if existing != nil {
		session.ClerkDbJwt = existing.ClerkDbJwt
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save session")
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info().Str("shop", shop).Msg("App installed")
	return session, nil
}

// GetSession loads the offline session of an installed shop
func (s *ShopifyService) GetSession(ctx context.Context, shop string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, domain.OfflineSessionID(shop))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !session.HasAccessToken() {
		return nil, domain.ErrUnauthorized
	}
	return session, nil
}

// VerifyWebhook checks the HMAC of a webhook request
func (s *ShopifyService) VerifyWebhook(r *http.Request) bool {
	return s.client.VerifyWebhook(r)
}
