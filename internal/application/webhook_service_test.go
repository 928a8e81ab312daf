package application

import (
	"context"
	"errors"
	"testing"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	topic  string
	err    error
	events []*domain.WebhookEvent
}

func (h *recordingHandler) CanHandle(topic string) bool { return topic == h.topic }

func (h *recordingHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.events = append(h.events, event)
	return h.err
}

type memoryDeliveries struct {
	logged []*domain.WebhookDelivery
}

func (m *memoryDeliveries) LogWebhook(ctx context.Context, delivery *domain.WebhookDelivery) error {
	m.logged = append(m.logged, delivery)
	return nil
}

func (m *memoryDeliveries) ListByShop(ctx context.Context, shop string, limit int64) ([]*domain.WebhookDelivery, error) {
	var out []*domain.WebhookDelivery
	for i := len(m.logged) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if m.logged[i].Shop == shop {
			out = append(out, m.logged[i])
		}
	}
	return out, nil
}

func TestWebhookService_ProcessWebhook(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	products := &recordingHandler{topic: "products/update"}
	failing := &recordingHandler{topic: "app/uninstalled", err: errors.New("boom")}
	deliveries := &memoryDeliveries{}
	svc := NewWebhookService(deliveries, m, zerolog.Nop(), products, failing)

	require.NoError(t, svc.ProcessWebhook(ctx, "products/update", "shop.myshopify.com", []byte(`{"id":1}`), true))
	require.Len(t, products.events, 1)
	assert.Equal(t, "shop.myshopify.com", products.events[0].Shop)
	assert.True(t, products.events[0].Verified)

	err := svc.ProcessWebhook(ctx, "products/update", "shop.myshopify.com", nil, false)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Len(t, products.events, 1)

	assert.Error(t, svc.ProcessWebhook(ctx, "app/uninstalled", "shop.myshopify.com", nil, true))
	assert.NoError(t, svc.ProcessWebhook(ctx, "orders/create", "shop.myshopify.com", nil, true))

	// ok, unverified, error and ignored each produce one series
	count, err := testutil.GatherAndCount(reg, "shopify_webhooks_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	require.Len(t, deliveries.logged, 4)
	outcomes := make([]string, 0, len(deliveries.logged))
	for _, d := range deliveries.logged {
		outcomes = append(outcomes, d.Outcome)
	}
	assert.Equal(t, []string{"ok", "unverified", "error", "ignored"}, outcomes)
	assert.Equal(t, "boom", deliveries.logged[2].Error)
	assert.Equal(t, 8, deliveries.logged[0].PayloadSize)
}

func TestWebhookService_RecentDeliveries(t *testing.T) {
	ctx := context.Background()
	deliveries := &memoryDeliveries{}
	svc := NewWebhookService(deliveries, nil, zerolog.Nop())

	require.NoError(t, svc.ProcessWebhook(ctx, "orders/create", "shop.myshopify.com", nil, true))
	require.NoError(t, svc.ProcessWebhook(ctx, "orders/create", "other.myshopify.com", nil, true))
	require.NoError(t, svc.ProcessWebhook(ctx, "products/update", "shop.myshopify.com", nil, true))

	_, err := svc.RecentDeliveries(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	list, err := svc.RecentDeliveries(ctx, &domain.Session{Shop: "shop.myshopify.com"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "products/update", list[0].Topic)

	empty, err := NewWebhookService(nil, nil, zerolog.Nop()).RecentDeliveries(ctx, &domain.Session{Shop: "shop.myshopify.com"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
