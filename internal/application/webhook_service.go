package application

import (
	"context"
	"time"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/metrics"
	"target-onchain-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultDeliveryLimit caps how many logged deliveries are listed
const DefaultDeliveryLimit = 50

// WebhookService routes verified webhook deliveries to their handlers
type WebhookService struct {
	handlers   []ports.WebhookHandler
	deliveries ports.WebhookLogRepository
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewWebhookService creates a new webhook dispatcher. deliveries may be nil,
// in which case nothing is recorded.
func NewWebhookService(deliveries ports.WebhookLogRepository, m *metrics.Metrics, logger zerolog.Logger, handlers ...ports.WebhookHandler) *WebhookService {
	return &WebhookService{
		handlers:   handlers,
		deliveries: deliveries,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessWebhook dispatches a Shopify webhook event. Unverified deliveries are
// rejected, topics nobody handles are acknowledged and logged.
func (s *WebhookService) ProcessWebhook(ctx context.Context, topic string, shop string, payload []byte, verified bool) error {
	delivery := &domain.WebhookDelivery{
		Topic:       topic,
		Shop:        shop,
		PayloadSize: len(payload),
		ReceivedAt:  s.now().UTC(),
	}

	if !verified {
		s.record(ctx, delivery, domain.WebhookOutcomeUnverified, nil)
		return domain.ErrUnauthorized
	}

	event := &domain.WebhookEvent{
		Topic:    topic,
		Shop:     shop,
		Payload:  payload,
		Verified: verified,
	}

	handled := false
	for _, h := range s.handlers {
		if !h.CanHandle(topic) {
			continue
		}
		handled = true
		if err := h.Handle(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("topic", topic).Str("shop", shop).Msg("Webhook handler failed")
			s.record(ctx, delivery, domain.WebhookOutcomeError, err)
			return err
		}
	}

	if !handled {
		s.logger.Debug().Str("topic", topic).Str("shop", shop).Msg("No handler for webhook topic")
		s.record(ctx, delivery, domain.WebhookOutcomeIgnored, nil)
		return nil
	}

	s.record(ctx, delivery, domain.WebhookOutcomeOK, nil)
	s.logger.Info().Str("topic", topic).Str("shop", shop).Msg("Webhook processed")
	return nil
}

// RecentDeliveries lists the latest logged deliveries of the session shop
func (s *WebhookService) RecentDeliveries(ctx context.Context, session *domain.Session) ([]*domain.WebhookDelivery, error) {
	if session == nil {
		return nil, domain.ErrUnauthorized
	}
	if s.deliveries == nil {
		return []*domain.WebhookDelivery{}, nil
	}

	deliveries, err := s.deliveries.ListByShop(ctx, session.Shop, DefaultDeliveryLimit)
	if err != nil {
		return nil, err
	}
	if deliveries == nil {
		deliveries = []*domain.WebhookDelivery{}
	}
	return deliveries, nil
}

// record never fails the delivery; a lost audit line only gets logged
func (s *WebhookService) record(ctx context.Context, delivery *domain.WebhookDelivery, outcome string, cause error) {
	s.metrics.ObserveWebhook(delivery.Topic, outcome)

	if s.deliveries == nil {
		return
	}
	delivery.Outcome = outcome
	if cause != nil {
		delivery.Error = cause.Error()
	}
	if err := s.deliveries.LogWebhook(ctx, delivery); err != nil {
		s.logger.Warn().Err(err).Str("topic", delivery.Topic).Str("shop", delivery.Shop).Msg("Failed to log webhook delivery")
	}
}
