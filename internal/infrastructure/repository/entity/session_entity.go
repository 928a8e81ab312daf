package entity

import (
	"time"

	"target-onchain-shopify-app/internal/domain"
)

// MongoSessionDoc represents a Shopify session in MongoDB.
// The _id is the Shopify session id (e.g. offline_<shop>), not an ObjectID.
type MongoSessionDoc struct {
	ID          string     `bson:"_id"`
	Shop        string     `bson:"shop"`
	State       string     `bson:"state"`
	IsOnline    bool       `bson:"isOnline"`
	Scope       string     `bson:"scope,omitempty"`
	AccessToken string     `bson:"accessToken,omitempty"`
	ClerkDbJwt  string     `bson:"clerkDbJwt,omitempty"`
	Expires     *time.Time `bson:"expires,omitempty"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSessionDoc) ToDomain() *domain.Session {
	return &domain.Session{
		ID:          d.ID,
		Shop:        d.Shop,
		State:       d.State,
		IsOnline:    d.IsOnline,
		Scope:       d.Scope,
		AccessToken: d.AccessToken,
		ClerkDbJwt:  d.ClerkDbJwt,
		Expires:     d.Expires,
	}
}

// MongoSessionDocFromDomain converts a domain entity to a MongoDB document
func MongoSessionDocFromDomain(s *domain.Session) *MongoSessionDoc {
	return &MongoSessionDoc{
		ID:          s.ID,
		Shop:        s.Shop,
		State:       s.State,
		IsOnline:    s.IsOnline,
		Scope:       s.Scope,
		AccessToken: s.AccessToken,
		ClerkDbJwt:  s.ClerkDbJwt,
		Expires:     s.Expires,
	}
}
