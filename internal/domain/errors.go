package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a frame or session does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when a request carries no usable session
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidShop is returned for a shop parameter that is not a myshopify.com host
	ErrInvalidShop = errors.New("invalid shop domain")

	// ErrPopupBlocked is returned when the sign-in popup could not be opened
	ErrPopupBlocked = errors.New("popup blocked")

	// ErrInvalidMessageOrigin marks a window message from an unexpected origin
	ErrInvalidMessageOrigin = errors.New("invalid message origin")

	// ErrInvalidMessagePayload marks a window message without the expected source or token
	ErrInvalidMessagePayload = errors.New("invalid message payload")

	// ErrTokenExchange is returned when a token cannot be exchanged for session data
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrHandshakeInProgress is returned when connect is called outside the disconnected state
	ErrHandshakeInProgress = errors.New("handshake already in progress")

	// ErrHandshakeAborted is returned when the popup goes away or the attempt is cancelled
	ErrHandshakeAborted = errors.New("handshake aborted")
)

// InvalidVariantReferenceError reports a stored variant reference that does not
// match gid://shopify/ProductVariant/<n>
type InvalidVariantReferenceError struct {
	Reference string
}

func (e *InvalidVariantReferenceError) Error() string {
	return fmt.Sprintf("invalid product variant reference %q", e.Reference)
}

// ValidationError carries per-field messages for a rejected form submission
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// InvalidOptionsError reports an unusable graphic option
type InvalidOptionsError struct {
	Option string
	Reason string
}

func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Option, e.Reason)
}

// StatusError reports a non-2xx response from an upstream HTTP API
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}
