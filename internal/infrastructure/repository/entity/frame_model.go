package entity

import (
	"time"

	"target-onchain-shopify-app/internal/domain"
)

// FrameModel is the relational row for a frame
type FrameModel struct {
	ID               int64     `gorm:"primaryKey;autoIncrement"`
	Shop             string    `gorm:"size:255;not null;index"`
	Title            string    `gorm:"type:text;not null"`
	Image            string    `gorm:"type:text"`
	Button           string    `gorm:"type:text"`
	Destination      string    `gorm:"size:16;not null"`
	ProductID        string    `gorm:"size:255;not null;index"`
	ProductVariantID string    `gorm:"size:255"`
	ProductHandle    string    `gorm:"size:255"`
	Scans            int64     `gorm:"not null;default:0"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// TableName pins the table name
func (FrameModel) TableName() string {
	return "frames"
}

// ToDomain converts the row to a domain entity
func (m *FrameModel) ToDomain() *domain.Frame {
	return &domain.Frame{
		ID:               m.ID,
		Shop:             m.Shop,
		Title:            m.Title,
		Image:            m.Image,
		Button:           m.Button,
		Destination:      domain.Destination(m.Destination),
		ProductID:        m.ProductID,
		ProductVariantID: m.ProductVariantID,
		ProductHandle:    m.ProductHandle,
		Scans:            m.Scans,
		CreatedAt:        m.CreatedAt,
	}
}

// FrameModelFromDomain converts a domain entity to a row
func FrameModelFromDomain(f *domain.Frame) *FrameModel {
	return &FrameModel{
		ID:               f.ID,
		Shop:             f.Shop,
		Title:            f.Title,
		Image:            f.Image,
		Button:           f.Button,
		Destination:      string(f.Destination),
		ProductID:        f.ProductID,
		ProductVariantID: f.ProductVariantID,
		ProductHandle:    f.ProductHandle,
		Scans:            f.Scans,
		CreatedAt:        f.CreatedAt,
	}
}
