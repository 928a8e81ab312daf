package domain

import "time"

// WebhookEvent represents a verified Shopify webhook delivery
type WebhookEvent struct {
	Topic    string `json:"topic"`
	Shop     string `json:"shop"`
	Payload  []byte `json:"payload"`
	Verified bool   `json:"verified"`
}

// Webhook delivery outcomes
const (
	WebhookOutcomeOK         = "ok"
	WebhookOutcomeIgnored    = "ignored"
	WebhookOutcomeError      = "error"
	WebhookOutcomeUnverified = "unverified"
)

// WebhookDelivery is the audit record kept for every webhook received
type WebhookDelivery struct {
	Topic       string    `json:"topic"`
	Shop        string    `json:"shop"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	PayloadSize int       `json:"payloadSize"`
	ReceivedAt  time.Time `json:"receivedAt"`
}
