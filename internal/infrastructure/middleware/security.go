package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// SecurityHeadersMiddleware sets the headers an embedded admin app needs.
// The app may only be framed by the Shopify admin and the shop itself.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ancestors := "https://admin.shopify.com"
			if shop := r.URL.Query().Get("shop"); isShopHost(shop) {
				ancestors = "https://" + shop + " " + ancestors
			}

			h := w.Header()
			h.Set("Content-Security-Policy", "frame-ancestors "+ancestors+";")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

func isShopHost(shop string) bool {
	return strings.HasSuffix(shop, ".myshopify.com") && !strings.ContainsAny(shop, " ;/")
}

// AuditLoggingMiddleware logs one line per request
func AuditLoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			event := logger.Info()
			if ww.Status() >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("requestId", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}
