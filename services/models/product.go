package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog item whose file is delivered after purchase.
type Product struct {
	ID                     uuid.UUID `gorm:"primaryKey"`
	Name                   string    `gorm:"not null"`
	Description            string    `gorm:"not null"`
	PriceInCents           int64     `gorm:"not null"`
	FilePath               string    `gorm:"not null"`
	ImagePath              string    `gorm:"not null"`
	IsAvailableForPurchase bool      `gorm:"not null"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
