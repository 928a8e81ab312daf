package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"target-onchain-shopify-app/internal/domain"
	shopifyinfra "target-onchain-shopify-app/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

// TokenVerifier resolves a session token to the shop it was issued for
type TokenVerifier interface {
	Verify(raw string) (string, *shopifyinfra.SessionTokenClaims, error)
}

// SessionLoader loads the offline session of an installed shop
type SessionLoader interface {
	GetSession(ctx context.Context, shop string) (*domain.Session, error)
}

// SessionAuthMiddleware authenticates admin requests with the session token
// App Bridge sends as a bearer token, and puts the shop's session in the
// request context.
func SessionAuthMiddleware(verifier TokenVerifier, sessions SessionLoader, appURL string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if raw == "" {
				writeUnauthorized(w, "missing session token", "")
				return
			}

			shop, _, err := verifier.Verify(raw)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected session token")
				writeUnauthorized(w, "invalid session token", "")
				return
			}

			session, err := sessions.GetSession(r.Context(), shop)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthorized) {
					logger.Error().Err(err).Str("shop", shop).Msg("Failed to load session")
				}
				writeUnauthorized(w, "app not installed", appURL+"/auth?shop="+url.QueryEscape(shop))
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithSession(r.Context(), session)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string, reauthURL string) {
	if reauthURL != "" {
		w.Header().Set("X-Shopify-API-Request-Failure-Reauthorize", "1")
		w.Header().Set("X-Shopify-API-Request-Failure-Reauthorize-Url", reauthURL)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
