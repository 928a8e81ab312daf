package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the process configuration read from the environment
type Config struct {
	Port string

	AppURL           string
	ShopifyAPIKey    string
	ShopifyAPISecret string
	Scopes           string

	TargetOnchainURL string
	ClerkURL         string
	TermsURL         string

	DatabaseDriver string
	DatabaseURL    string

	MongoURI      string
	MongoDatabase string

	RedisURL string

	HandshakeTimeout time.Duration
	LogLevel         zerolog.Level
}

// Load reads .env when present and then the environment
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:             get("PORT", "8080"),
		AppURL:           strings.TrimSuffix(get("SHOPIFY_APP_URL", "http://localhost:8080"), "/"),
		ShopifyAPIKey:    getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret: getenv("SHOPIFY_API_SECRET"),
		Scopes:           get("SCOPES", "read_products"),
		TargetOnchainURL: strings.TrimSuffix(get("TARGET_ONCHAIN_URL", "https://targetonchain.com"), "/"),
		ClerkURL:         strings.TrimSuffix(get("CLERK_URL", "https://clerk.targetonchain.com"), "/"),
		TermsURL:         strings.TrimSuffix(get("TERMS_URL", "https://targetonchain.com"), "/"),
		DatabaseDriver:   get("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:      getenv("DATABASE_URL"),
		MongoURI:         get("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:    get("MONGODB_DATABASE", "target_onchain"),
		RedisURL:         getenv("REDIS_URL"),
		HandshakeTimeout: 5 * time.Minute,
		LogLevel:         zerolog.InfoLevel,
	}

	if cfg.ShopifyAPIKey == "" || cfg.ShopifyAPISecret == "" {
		return nil, fmt.Errorf("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required")
	}

	if v := getenv("HANDSHAKE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid HANDSHAKE_TIMEOUT %q", v)
		}
		cfg.HandshakeTimeout = d
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		level, err := zerolog.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

// SignInURL is loaded in the account-linking popup
func (c *Config) SignInURL() string {
	return c.TargetOnchainURL + "/sign-in"
}

// TermsAndConditionsURL is linked from the connection card
func (c *Config) TermsAndConditionsURL() string {
	return c.TermsURL + "/termsAndConditions"
}

// AppOrigin is the only origin accepted for popup messages
func (c *Config) AppOrigin() string {
	u, err := url.Parse(c.TargetOnchainURL)
	if err != nil || u.Host == "" {
		return c.TargetOnchainURL
	}
	return u.Scheme + "://" + u.Host
}
