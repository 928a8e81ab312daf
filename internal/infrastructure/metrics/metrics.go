package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the app's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	frameScans    *prometheus.CounterVec
	handshakes    *prometheus.CounterVec
	clerkRequests *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		frameScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frames",
			Name:      "scans_total",
			Help:      "Resolved frame scans by destination type.",
		}, []string{"destination"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "handshake_events_total",
			Help:      "Account linking handshake events by outcome.",
		}, []string{"outcome"}),
		clerkRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clerk",
			Name:      "introspection_requests_total",
			Help:      "Token introspection calls by result.",
		}, []string{"result"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopify",
			Name:      "webhooks_total",
			Help:      "Received Shopify webhooks by topic and result.",
		}, []string{"topic", "result"}),
	}
	reg.MustRegister(m.frameScans, m.handshakes, m.clerkRequests, m.webhooks)
	return m
}

func (m *Metrics) ObserveScan(destination string) {
	if m == nil {
		return
	}
	m.frameScans.WithLabelValues(destination).Inc()
}

func (m *Metrics) ObserveHandshake(outcome string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveClerkRequest(result string) {
	if m == nil {
		return
	}
	m.clerkRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveWebhook(topic, result string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(topic, result).Inc()
}
