package api

import (
	"encoding/json"
	"net/http"

	"target-onchain-shopify-app/internal/application"
	securitymiddleware "target-onchain-shopify-app/internal/infrastructure/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig carries everything the HTTP layer needs
type RouterConfig struct {
	Frames   *application.FrameService
	Accounts *application.AccountService
	Shopify  *application.ShopifyService
	Webhooks *application.WebhookService
	Verifier securitymiddleware.TokenVerifier

	AppURL   string
	APIKey   string
	TermsURL string

	// Metrics is mounted at /metrics when set
	Metrics http.Handler
	Logger  zerolog.Logger
}

// NewRouter builds the application's routes
func NewRouter(cfg RouterConfig) http.Handler {
	frames := NewFrameHandler(cfg.Frames, cfg.Logger)
	accounts := NewAccountHandler(cfg.Accounts, cfg.TermsURL, cfg.Logger)
	auth := NewAuthHandler(cfg.Shopify, cfg.Webhooks, cfg.APIKey, cfg.Logger)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.AuditLoggingMiddleware(cfg.Logger))
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*.myshopify.com", "https://admin.shopify.com"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Shopify-API-Request-Failure-Reauthorize", "X-Shopify-API-Request-Failure-Reauthorize-Url"},
		AllowCredentials: false,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth and webhooks
	r.Get("/auth", auth.Begin())
	r.Get("/auth/callback", auth.Callback())
	r.Post("/webhooks", auth.Webhook())

	// Scanned QR codes land here
	r.Get("/frames/{id}/scan", frames.Scan())
	r.Get("/frames/{id}/image", frames.Image())

	// Embedded admin, authenticated with the App Bridge session token
	r.Route("/app", func(r chi.Router) {
		r.Use(securitymiddleware.SessionAuthMiddleware(cfg.Verifier, cfg.Shopify, cfg.AppURL, cfg.Logger))

		r.Get("/account", accounts.Status())
		r.Delete("/account", accounts.Disconnect())
		r.Post("/account/handshakes", accounts.StartHandshake())
		r.Get("/account/handshakes/{id}", accounts.GetHandshake())
		r.Post("/account/handshakes/{id}/events", accounts.RelayEvent())

		r.Get("/frames", frames.List())
		r.Get("/frames/home", frames.List())
		r.Get("/frames/{id}", frames.Get())
		r.Post("/frames/{id}", frames.Save())
		r.Delete("/frames/{id}", frames.Delete())

		r.Get("/webhooks", auth.Deliveries())
	})

	return r
}
