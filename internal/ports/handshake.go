package ports

import (
	"context"

	"target-onchain-shopify-app/internal/domain"
)

// MessageBus carries window events relayed by the browser, keyed by handshake id
type MessageBus interface {
	// Publish delivers the event to every current subscriber of the handshake
	Publish(ctx context.Context, handshakeID string, event domain.WindowEvent) error

	// Subscribe returns a channel that is closed when ctx is cancelled
	Subscribe(ctx context.Context, handshakeID string) (<-chan domain.WindowEvent, error)
}

// HandshakeStore keeps handshake snapshots for the relay endpoints
type HandshakeStore interface {
	Save(ctx context.Context, handshake *domain.Handshake) error

	// Get returns nil, nil when the handshake is unknown or expired
	Get(ctx context.Context, id string) (*domain.Handshake, error)
	// MarkActive records the handshake as the session's current attempt
	MarkActive(ctx context.Context, sessionID string, handshakeID string) error
	// Active returns the session's current attempt, "" when there is none
	Active(ctx context.Context, sessionID string) (string, error)
}

// Popup is an open sign-in window as seen from the opener
type Popup interface {
	// Messages yields the message events posted to the opener
	Messages() <-chan domain.WindowEvent

	// Unloaded is closed when the popup goes away
	Unloaded() <-chan struct{}

	// StopListening deregisters the message listener
	StopListening()

	// Close asks the browser to close the window and stops listening
	Close()
}

// PopupOpener opens the sign-in window described by spec.
// It fails with domain.ErrPopupBlocked when the window cannot be opened.
type PopupOpener interface {
	Open(ctx context.Context, spec domain.PopupSpec) (Popup, error)
}
