package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

var errCancelled = errors.New("cancelled by disconnect")

// RelayOpener implements ports.PopupOpener for a window that lives in the
// merchant's browser. The page reports what happened to the window through the
// events endpoint and the events reach us through the message bus.
type RelayOpener struct {
	events  <-chan domain.WindowEvent
	cancel  context.CancelFunc
	onClose func()
	logger  zerolog.Logger
}

// NewRelayOpener subscribes to the handshake's events right away so nothing
// posted after the handshake is created can be missed.
func NewRelayOpener(ctx context.Context, bus ports.MessageBus, handshakeID string, onClose func(), logger zerolog.Logger) (*RelayOpener, error) {
	subCtx, cancel := context.WithCancel(ctx)
	events, err := bus.Subscribe(subCtx, handshakeID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to handshake events: %w", err)
	}

	return &RelayOpener{
		events:  events,
		cancel:  cancel,
		onClose: onClose,
		logger:  logger.With().Str("handshakeId", handshakeID).Logger(),
	}, nil
}

// Open waits for the page to report whether window.open succeeded
func (o *RelayOpener) Open(ctx context.Context, spec domain.PopupSpec) (ports.Popup, error) {
	for {
		select {
		case <-ctx.Done():
			o.cancel()
			return nil, ctx.Err()
		case event, ok := <-o.events:
			if !ok {
				return nil, fmt.Errorf("%w: event stream closed", domain.ErrHandshakeAborted)
			}
			switch event.Type {
			case domain.EventPopupOpened:
				o.logger.Debug().Str("url", spec.URL).Msg("Sign-in popup opened")
				return newRelayPopup(o), nil
			case domain.EventPopupBlocked:
				o.cancel()
				return nil, domain.ErrPopupBlocked
			case domain.EventCancel:
				o.cancel()
				return nil, errCancelled
			default:
				o.logger.Debug().Str("type", string(event.Type)).Msg("Ignoring event before popup opened")
			}
		}
	}
}

// Stop releases the subscription when Open is never called
func (o *RelayOpener) Stop() {
	o.cancel()
}

type relayPopup struct {
	opener   *RelayOpener
	messages chan domain.WindowEvent
	unloaded chan struct{}
	stopped  chan struct{}

	stopOnce   sync.Once
	unloadOnce sync.Once
	closeOnce  sync.Once
}

func newRelayPopup(opener *RelayOpener) *relayPopup {
	p := &relayPopup{
		opener:   opener,
		messages: make(chan domain.WindowEvent),
		unloaded: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go p.pump()
	return p
}

func (p *relayPopup) pump() {
	defer close(p.messages)

	for {
		select {
		case <-p.stopped:
			return
		case event, ok := <-p.opener.events:
			if !ok {
				p.markUnloaded()
				return
			}
			switch event.Type {
			case domain.EventMessage:
				select {
				case p.messages <- event:
				case <-p.stopped:
					return
				}
			case domain.EventPopupUnload, domain.EventCancel:
				p.markUnloaded()
			}
		}
	}
}

func (p *relayPopup) markUnloaded() {
	p.unloadOnce.Do(func() { close(p.unloaded) })
}

func (p *relayPopup) Messages() <-chan domain.WindowEvent {
	return p.messages
}

func (p *relayPopup) Unloaded() <-chan struct{} {
	return p.unloaded
}

func (p *relayPopup) StopListening() {
	p.stopOnce.Do(func() {
		close(p.stopped)
		p.opener.cancel()
	})
}

func (p *relayPopup) Close() {
	p.closeOnce.Do(func() {
		if p.opener.onClose != nil {
			p.opener.onClose()
		}
	})
	p.StopListening()
}
