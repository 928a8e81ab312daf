package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/repository/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionRepository implements SessionRepository using MongoDB
type MongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new MongoDB session repository
func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{
		collection: db.Collection("shopify_sessions"),
	}
}

// EnsureIndexes creates the shop index used by uninstall cleanup
func (r *MongoSessionRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "shop", Value: 1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

// Save upserts a session by id
func (r *MongoSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	doc := entity.MongoSessionDocFromDomain(session)
	doc.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by id
func (r *MongoSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var doc entity.MongoSessionDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return doc.ToDomain(), nil
}

// SetClerkDbJwt stores the linked account token on the session
func (r *MongoSessionRepository) SetClerkDbJwt(ctx context.Context, id string, token string) error {
	update := bson.M{
		"$set": bson.M{
			"clerkDbJwt": token,
			"updatedAt":  time.Now(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set clerk token: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearClerkDbJwt removes the linked account token from the session
func (r *MongoSessionRepository) ClearClerkDbJwt(ctx context.Context, id string) error {
	update := bson.M{
		"$unset": bson.M{"clerkDbJwt": ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to clear clerk token: %w", err)
	}
	return nil
}

// DeleteByShop deletes every session of a shop
func (r *MongoSessionRepository) DeleteByShop(ctx context.Context, shop string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"shop": shop})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return result.DeletedCount, nil
}

// Delete deletes a session by id
func (r *MongoSessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
