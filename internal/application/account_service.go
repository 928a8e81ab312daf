package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/metrics"
	"target-onchain-shopify-app/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountService links merchant sessions to Target Onchain accounts
type AccountService struct {
	sessions ports.SessionRepository
	clerk    ports.ClerkClient
	bus      ports.MessageBus
	store    ports.HandshakeStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	cfg      LinkerConfig

	mu      sync.Mutex
	running map[string]*runningHandshake // by session id
	now     func() time.Time
}

type runningHandshake struct {
	id     string
	linker *Linker
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAccountService creates a new account service
func NewAccountService(
	sessions ports.SessionRepository,
	clerk ports.ClerkClient,
	bus ports.MessageBus,
	store ports.HandshakeStore,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg LinkerConfig,
) *AccountService {
	return &AccountService{
		sessions: sessions,
		clerk:    clerk,
		bus:      bus,
		store:    store,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		running:  make(map[string]*runningHandshake),
		now:      time.Now,
	}
}

// Reconcile checks a stored token against Clerk and clears it when Clerk no
// longer knows the client or the client has no sessions.
func (s *AccountService) Reconcile(ctx context.Context, session *domain.Session) (*domain.AccountLink, error) {
	if session == nil || session.ClerkDbJwt == "" {
		return &domain.AccountLink{}, nil
	}

	resp, err := s.clerk.GetClient(ctx, session.ClerkDbJwt)
	if err != nil {
		var statusErr *domain.StatusError
		if errors.As(err, &statusErr) {
			s.logger.Info().Str("session", session.ID).Int("status", statusErr.StatusCode).Msg("Linked account token rejected, clearing it")
			return &domain.AccountLink{}, s.clearToken(ctx, session)
		}

		// transport failure, keep the token for the next render
		s.logger.Warn().Err(err).Str("session", session.ID).Msg("Failed to reconcile linked account")
		return &domain.AccountLink{}, nil
	}

	first := resp.FirstSession()
	if first == nil {
		s.logger.Info().Str("session", session.ID).Msg("Linked account has no sessions, clearing token")
		return &domain.AccountLink{}, s.clearToken(ctx, session)
	}

	return &domain.AccountLink{
		Connected:   true,
		AccountName: first.DisplayName(),
		AvatarURL:   first.Avatar(),
	}, nil
}

func (s *AccountService) clearToken(ctx context.Context, session *domain.Session) error {
	if err := s.sessions.ClearClerkDbJwt(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to clear linked account token: %w", err)
	}
	session.ClerkDbJwt = ""
	return nil
}

// StartHandshake begins a connect attempt for the session. A previous attempt
// of the same session is cancelled.
func (s *AccountService) StartHandshake(ctx context.Context, session *domain.Session, screen domain.Screen) (*domain.Handshake, error) {
	if session == nil {
		return nil, domain.ErrUnauthorized
	}

	now := s.now().UTC()
	handshake := &domain.Handshake{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		State:     domain.StateAwaitingPopup,
		Popup:     domain.NewPopupSpec(s.cfg.SignInURL, screen),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, handshake); err != nil {
		return nil, fmt.Errorf("failed to save handshake: %w", err)
	}
	if err := s.store.MarkActive(ctx, session.ID, handshake.ID); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	opener, err := NewRelayOpener(runCtx, s.bus, handshake.ID, func() {
		s.updateHandshake(handshake.ID, func(h *domain.Handshake) { h.ClosePopup = true })
	}, s.logger)
	if err != nil {
		cancel()
		return nil, err
	}

	logger := s.logger.With().Str("handshakeId", handshake.ID).Str("session", session.ID).Logger()
	linker := NewLinker(s.cfg, opener, s.clerk, s.metrics, logger)
	linker.OnChange(func(state domain.ConnectionState, account domain.AccountLink) {
		s.updateHandshake(handshake.ID, func(h *domain.Handshake) {
			h.State = state
			h.AccountName = account.AccountName
			h.AvatarURL = account.AvatarURL
		})
	})

	run := &runningHandshake{id: handshake.ID, linker: linker, cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	previous := s.running[session.ID]
	s.running[session.ID] = run
	s.mu.Unlock()
	if previous != nil {
		previous.stop()
	}

	go func() {
		defer close(run.done)
		defer cancel()
		defer opener.Stop()
		defer s.forget(session.ID, run)

		result, err := linker.Connect(runCtx, screen)
		if err != nil {
			s.updateHandshake(handshake.ID, func(h *domain.Handshake) { h.Error = err.Error() })
			return
		}

		if err := s.sessions.SetClerkDbJwt(runCtx, session.ID, result.Token); err != nil {
			logger.Error().Err(err).Msg("Failed to store linked account token")
			linker.Disconnect()
			s.updateHandshake(handshake.ID, func(h *domain.Handshake) { h.Error = err.Error() })
		}
	}()

	return handshake, nil
}

// GetHandshake returns the snapshot of a handshake owned by the session
func (s *AccountService) GetHandshake(ctx context.Context, session *domain.Session, id string) (*domain.Handshake, error) {
	handshake, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get handshake: %w", err)
	}
	if handshake == nil || session == nil || handshake.SessionID != session.ID {
		return nil, domain.ErrNotFound
	}
	return handshake, nil
}

// RelayEvent forwards a browser window event to the handshake's listener
func (s *AccountService) RelayEvent(ctx context.Context, session *domain.Session, id string, event domain.WindowEvent) error {
	if _, err := s.GetHandshake(ctx, session, id); err != nil {
		return err
	}

	switch event.Type {
	case domain.EventPopupOpened, domain.EventPopupBlocked, domain.EventMessage, domain.EventPopupUnload:
	default:
		return fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidMessagePayload, event.Type)
	}

	if err := s.bus.Publish(ctx, id, event); err != nil {
		return fmt.Errorf("failed to publish window event: %w", err)
	}
	return nil
}

// Disconnect cancels any pending handshake and unlinks the account. The
// session's active handshake may run on another instance, so it is also
// cancelled through the message bus.
func (s *AccountService) Disconnect(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return domain.ErrUnauthorized
	}

	s.cancelActive(ctx, session.ID)
	s.cancelRunning(session.ID)

	if err := s.clearToken(ctx, session); err != nil {
		return err
	}
	s.logger.Info().Str("session", session.ID).Msg("Account disconnected")
	return nil
}

func (s *AccountService) cancelActive(ctx context.Context, sessionID string) {
	id, err := s.store.Active(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Msg("Failed to look up active handshake")
		return
	}
	if id == "" {
		return
	}
	if err := s.bus.Publish(ctx, id, domain.WindowEvent{Type: domain.EventCancel}); err != nil {
		s.logger.Warn().Err(err).Str("handshakeId", id).Msg("Failed to publish handshake cancel")
	}
}

func (s *AccountService) cancelRunning(sessionID string) {
	s.mu.Lock()
	run := s.running[sessionID]
	delete(s.running, sessionID)
	s.mu.Unlock()

	if run != nil {
		run.stop()
	}
}

// stop cancels the attempt and waits for its goroutine to finish
func (r *runningHandshake) stop() {
	r.cancel()
	r.linker.Disconnect()
	<-r.done
}

func (s *AccountService) forget(sessionID string, run *runningHandshake) {
	s.mu.Lock()
	if s.running[sessionID] == run {
		delete(s.running, sessionID)
	}
	s.mu.Unlock()
}

// updateHandshake applies fn to the stored snapshot. Snapshot writes are
// serialised so concurrent transitions do not overwrite each other.
func (s *AccountService) updateHandshake(id string, fn func(*domain.Handshake)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	handshake, err := s.store.Get(ctx, id)
	if err != nil || handshake == nil {
		s.logger.Warn().Err(err).Str("handshakeId", id).Msg("Handshake snapshot missing")
		return
	}

	fn(handshake)
	handshake.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, handshake); err != nil {
		s.logger.Error().Err(err).Str("handshakeId", id).Msg("Failed to save handshake")
	}
}
