package ports

import (
	"context"

	"target-onchain-shopify-app/internal/domain"
)

// FrameRepository defines the interface for frame persistence
type FrameRepository interface {
	// Create inserts a frame and sets its ID and CreatedAt
	Create(ctx context.Context, frame *domain.Frame) error

	// Update overwrites the editable fields of an existing frame of the same shop
	Update(ctx context.Context, frame *domain.Frame) error

	// GetByID returns nil, nil when no frame has the id
	GetByID(ctx context.Context, id int64) (*domain.Frame, error)

	// ListByShop returns the shop's frames, newest first
	ListByShop(ctx context.Context, shop string) ([]*domain.Frame, error)

	// Delete removes a frame of the shop; domain.ErrNotFound if nothing matched
	Delete(ctx context.Context, shop string, id int64) error

	// IncrementScans atomically adds one to the scan counter
	IncrementScans(ctx context.Context, id int64) error

	// UpdateProductHandle rewrites the handle on every frame of the shop that points at productID
	UpdateProductHandle(ctx context.Context, shop string, productID string, handle string) (int64, error)

	// DeleteByShop removes every frame of the shop
	DeleteByShop(ctx context.Context, shop string) (int64, error)
}
