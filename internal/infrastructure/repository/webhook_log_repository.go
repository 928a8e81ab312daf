package repository

import (
	"context"
	"fmt"
	"time"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/repository/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WebhookLogRetention is how long delivery records are kept
const WebhookLogRetention = 30 * 24 * time.Hour

// MongoWebhookLogRepository implements WebhookLogRepository using MongoDB
type MongoWebhookLogRepository struct {
	collection *mongo.Collection
}

// NewMongoWebhookLogRepository creates a new MongoDB webhook log repository
func NewMongoWebhookLogRepository(db *mongo.Database) *MongoWebhookLogRepository {
	return &MongoWebhookLogRepository{
		collection: db.Collection("webhook_events"),
	}
}

// EnsureIndexes creates the shop index and the retention TTL index
func (r *MongoWebhookLogRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "receivedAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "receivedAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(WebhookLogRetention.Seconds())),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create webhook log indexes: %w", err)
	}
	return nil
}

// LogWebhook logs a webhook delivery
func (r *MongoWebhookLogRepository) LogWebhook(ctx context.Context, delivery *domain.WebhookDelivery) error {
	doc := entity.MongoWebhookDocFromDomain(delivery)
	doc.ID = primitive.NewObjectID()
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}

// ListByShop returns the most recent deliveries of a shop
func (r *MongoWebhookLogRepository) ListByShop(ctx context.Context, shop string, limit int64) ([]*domain.WebhookDelivery, error) {
	opts := options.Find().SetSort(bson.D{{Key: "receivedAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"shop": shop}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer cursor.Close(ctx)

	var deliveries []*domain.WebhookDelivery
	for cursor.Next(ctx) {
		var doc entity.MongoWebhookDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode webhook: %w", err)
		}
		deliveries = append(deliveries, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return deliveries, nil
}

// PurgeShop deletes every logged delivery of a shop
func (r *MongoWebhookLogRepository) PurgeShop(ctx context.Context, shop string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"shop": shop})
	if err != nil {
		return 0, fmt.Errorf("failed to delete webhooks: %w", err)
	}
	return result.DeletedCount, nil
}
