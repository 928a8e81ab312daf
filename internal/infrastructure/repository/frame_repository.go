package repository

import (
	"context"
	"errors"
	"fmt"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/repository/entity"
	"target-onchain-shopify-app/internal/ports"

	"gorm.io/gorm"
)

// GormFrameRepository implements FrameRepository on a relational database
type GormFrameRepository struct {
	db *gorm.DB
}

// NewGormFrameRepository creates a new frame repository
func NewGormFrameRepository(db *gorm.DB) ports.FrameRepository {
	return &GormFrameRepository{db: db}
}

// Create inserts a new frame
func (r *GormFrameRepository) Create(ctx context.Context, frame *domain.Frame) error {
	model := entity.FrameModelFromDomain(frame)
	model.ID = 0
	model.Scans = 0

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create frame: %w", err)
	}

	frame.ID = model.ID
	frame.Scans = model.Scans
	frame.CreatedAt = model.CreatedAt
	return nil
}

// Update overwrites the editable fields of a frame
func (r *GormFrameRepository) Update(ctx context.Context, frame *domain.Frame) error {
	var existing entity.FrameModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND shop = ?", frame.ID, frame.Shop).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get frame: %w", err)
	}

	updates := map[string]interface{}{
		"title":              frame.Title,
		"image":              frame.Image,
		"button":             frame.Button,
		"destination":        string(frame.Destination),
		"product_id":         frame.ProductID,
		"product_variant_id": frame.ProductVariantID,
		"product_handle":     frame.ProductHandle,
	}
	if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update frame: %w", err)
	}

	frame.Scans = existing.Scans
	frame.CreatedAt = existing.CreatedAt
	return nil
}

// GetByID retrieves a frame by id
func (r *GormFrameRepository) GetByID(ctx context.Context, id int64) (*domain.Frame, error) {
	var model entity.FrameModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get frame: %w", err)
	}
	return model.ToDomain(), nil
}

// ListByShop lists a shop's frames, newest first
func (r *GormFrameRepository) ListByShop(ctx context.Context, shop string) ([]*domain.Frame, error) {
	var models []entity.FrameModel
	err := r.db.WithContext(ctx).
		Where("shop = ?", shop).
		Order("id DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}

	frames := make([]*domain.Frame, 0, len(models))
	for i := range models {
		frames = append(frames, models[i].ToDomain())
	}
	return frames, nil
}

// Delete deletes a frame of a shop
func (r *GormFrameRepository) Delete(ctx context.Context, shop string, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND shop = ?", id, shop).
		Delete(&entity.FrameModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete frame: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementScans atomically increments the scans column
func (r *GormFrameRepository) IncrementScans(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&entity.FrameModel{}).
		Where("id = ?", id).
		UpdateColumn("scans", gorm.Expr("scans + ?", 1))
	if result.Error != nil {
		return fmt.Errorf("failed to increment scans: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProductHandle refreshes the stored handle of every frame pointing at a product
func (r *GormFrameRepository) UpdateProductHandle(ctx context.Context, shop string, productID string, handle string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.FrameModel{}).
		Where("shop = ? AND product_id = ? AND product_handle <> ?", shop, productID, handle).
		UpdateColumn("product_handle", handle)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update product handle: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteByShop removes every frame of a shop
func (r *GormFrameRepository) DeleteByShop(ctx context.Context, shop string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("shop = ?", shop).
		Delete(&entity.FrameModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete shop frames: %w", result.Error)
	}
	return result.RowsAffected, nil
}
