package domain

import (
	"strings"
	"time"
)

// Session is the platform-issued Shopify session record.
// ClerkDbJwt links the session to a Target Onchain account; its presence is
// the only signal that an account is connected.
type Session struct {
	ID          string     `json:"id"`
	Shop        string     `json:"shop"`
	State       string     `json:"state"`
	IsOnline    bool       `json:"isOnline"`
	Scope       string     `json:"scope"`
	AccessToken string     `json:"-"`
	ClerkDbJwt  string     `json:"-"`
	Expires     *time.Time `json:"expires,omitempty"`
}

// OfflineSessionID returns the id Shopify apps use for a shop's offline session
func OfflineSessionID(shop string) string {
	return "offline_" + shop
}

// OAuthStateSessionID returns the id of the short-lived session that holds an OAuth state
func OAuthStateSessionID(state string) string {
	return "oauth_" + state
}

// HasAccessToken reports whether installation completed for this session
func (s *Session) HasAccessToken() bool {
	return s != nil && s.AccessToken != ""
}

// IsValidShopDomain performs the same host check the Shopify libraries use
func IsValidShopDomain(shop string) bool {
	if !strings.HasSuffix(shop, ".myshopify.com") {
		return false
	}
	name := strings.TrimSuffix(shop, ".myshopify.com")
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
