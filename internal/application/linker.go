package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/metrics"
	"target-onchain-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultHandshakeTimeout bounds how long a listener stays registered
const DefaultHandshakeTimeout = 5 * time.Minute

// LinkerConfig configures one account-linking attempt
type LinkerConfig struct {
	// AppOrigin is the only origin accepted for window messages
	AppOrigin string
	// SignInURL is loaded in the popup
	SignInURL string
	Timeout   time.Duration
}

// LinkResult is what a successful handshake produces
type LinkResult struct {
	Token   string
	Account domain.AccountLink
}

// Linker drives the Disconnected -> AwaitingPopup -> AwaitingMessage -> Connected
// state machine for one merchant session.
type Linker struct {
	cfg     LinkerConfig
	opener  ports.PopupOpener
	clerk   ports.ClerkClient
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu       sync.Mutex
	state    domain.ConnectionState
	account  domain.AccountLink
	cancel   context.CancelFunc
	onChange func(domain.ConnectionState, domain.AccountLink)
}

// NewLinker creates a linker in the disconnected state
func NewLinker(cfg LinkerConfig, opener ports.PopupOpener, clerk ports.ClerkClient, m *metrics.Metrics, logger zerolog.Logger) *Linker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHandshakeTimeout
	}
	cfg.AppOrigin = strings.TrimSuffix(cfg.AppOrigin, "/")

	return &Linker{
		cfg:     cfg,
		opener:  opener,
		clerk:   clerk,
		metrics: m,
		logger:  logger,
		state:   domain.StateDisconnected,
	}
}

// OnChange registers a callback invoked after every state transition
func (l *Linker) OnChange(fn func(domain.ConnectionState, domain.AccountLink)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// State returns the current state
func (l *Linker) State() domain.ConnectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Account returns the account shown on the connection card
func (l *Linker) Account() domain.AccountLink {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account
}

// Connect opens the sign-in popup and waits for a valid token message.
// It blocks until the handshake succeeds, the popup goes away, the timeout
// expires or Disconnect is called.
func (l *Linker) Connect(ctx context.Context, screen domain.Screen) (*LinkResult, error) {
	l.mu.Lock()
	if l.state != domain.StateDisconnected {
		l.mu.Unlock()
		return nil, domain.ErrHandshakeInProgress
	}
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	l.transition(domain.StateAwaitingPopup, domain.AccountLink{})

	popup, err := l.opener.Open(ctx, domain.NewPopupSpec(l.cfg.SignInURL, screen))
	if err != nil {
		l.transition(domain.StateDisconnected, domain.AccountLink{})
		if errors.Is(err, domain.ErrPopupBlocked) {
			l.logger.Warn().Msg("Sign-in popup was blocked")
			l.metrics.ObserveHandshake("blocked")
			return nil, err
		}
		l.metrics.ObserveHandshake("aborted")
		return nil, fmt.Errorf("%w: %v", domain.ErrHandshakeAborted, err)
	}
	defer popup.StopListening()

	l.transition(domain.StateAwaitingMessage, domain.AccountLink{})

	for {
		select {
		case <-ctx.Done():
			return nil, l.abort(ctx.Err())
		case <-popup.Unloaded():
			return nil, l.abort(errors.New("popup unloaded"))
		case event, ok := <-popup.Messages():
			if !ok {
				return nil, l.abort(errors.New("listener closed"))
			}

			result, err := l.handleMessage(ctx, event)
			if err != nil {
				// stay in AwaitingMessage, the listener remains registered
				continue
			}

			// deregister before anything else can be read so duplicates are dropped
			popup.StopListening()
			popup.Close()

			l.mu.Lock()
			if ctx.Err() != nil {
				l.mu.Unlock()
				return nil, l.abort(ctx.Err())
			}
			l.mu.Unlock()

			l.transition(domain.StateConnected, result.Account)
			l.metrics.ObserveHandshake("connected")
			l.logger.Info().Str("accountName", result.Account.AccountName).Msg("Account linked")
			return result, nil
		}
	}
}

// Disconnect cancels any pending handshake and clears the account
func (l *Linker) Disconnect() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()

	l.transition(domain.StateDisconnected, domain.AccountLink{})
}

func (l *Linker) abort(cause error) error {
	l.transition(domain.StateDisconnected, domain.AccountLink{})
	l.metrics.ObserveHandshake("aborted")
	l.logger.Info().Err(cause).Msg("Account linking handshake ended without a token")
	return fmt.Errorf("%w: %v", domain.ErrHandshakeAborted, cause)
}

// handleMessage validates a window message and exchanges its token
func (l *Linker) handleMessage(ctx context.Context, event domain.WindowEvent) (*LinkResult, error) {
	if err := ValidateWindowMessage(l.cfg.AppOrigin, event); err != nil {
		l.logger.Info().Err(err).Str("origin", event.Origin).Msg("Ignoring window message")
		l.metrics.ObserveHandshake("rejected")
		return nil, err
	}

	resp, err := l.clerk.GetClient(ctx, event.Data.Token)
	if err != nil {
		l.logger.Error().Err(err).Msg("Failed to introspect sign-in token")
		l.metrics.ObserveHandshake("exchange_failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenExchange, err)
	}

	session := resp.FirstSession()
	if session == nil {
		l.logger.Warn().Msg("Sign-in token has no active sessions")
		l.metrics.ObserveHandshake("exchange_failed")
		return nil, fmt.Errorf("%w: no active sessions", domain.ErrTokenExchange)
	}

	return &LinkResult{
		Token: event.Data.Token,
		Account: domain.AccountLink{
			Connected:   true,
			AccountName: session.PrimaryEmail(),
			AvatarURL:   session.User.ImageURL,
		},
	}, nil
}

func (l *Linker) transition(state domain.ConnectionState, account domain.AccountLink) {
	l.mu.Lock()
	l.state = state
	l.account = account
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(state, account)
	}
}

// ValidateWindowMessage checks origin first, then source and token
func ValidateWindowMessage(appOrigin string, event domain.WindowEvent) error {
	if event.Type != domain.EventMessage {
		return fmt.Errorf("%w: unexpected event %q", domain.ErrInvalidMessagePayload, event.Type)
	}
	if event.Origin != strings.TrimSuffix(appOrigin, "/") {
		return domain.ErrInvalidMessageOrigin
	}
	if event.Data.Source != domain.MessageSource || event.Data.Token == "" {
		return domain.ErrInvalidMessagePayload
	}
	return nil
}
