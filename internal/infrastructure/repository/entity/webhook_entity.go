package entity

import (
	"time"

	"target-onchain-shopify-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoWebhookDoc represents a logged webhook delivery in MongoDB
type MongoWebhookDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Topic       string             `bson:"topic"`
	Shop        string             `bson:"shop"`
	Outcome     string             `bson:"outcome"`
	Error       string             `bson:"error,omitempty"`
	PayloadSize int                `bson:"payloadSize"`
	ReceivedAt  time.Time          `bson:"receivedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoWebhookDoc) ToDomain() *domain.WebhookDelivery {
	return &domain.WebhookDelivery{
		Topic:       d.Topic,
		Shop:        d.Shop,
		Outcome:     d.Outcome,
		Error:       d.Error,
		PayloadSize: d.PayloadSize,
		ReceivedAt:  d.ReceivedAt,
	}
}

// MongoWebhookDocFromDomain converts a domain entity to a MongoDB document
func MongoWebhookDocFromDomain(d *domain.WebhookDelivery) *MongoWebhookDoc {
	return &MongoWebhookDoc{
		Topic:       d.Topic,
		Shop:        d.Shop,
		Outcome:     d.Outcome,
		Error:       d.Error,
		PayloadSize: d.PayloadSize,
		ReceivedAt:  d.ReceivedAt,
	}
}
