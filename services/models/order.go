package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is one completed purchase. PricePaidInCents is what the customer was
// charged and never follows later product price changes.
type Order struct {
	ID               uuid.UUID `gorm:"primaryKey"`
	UserID           uuid.UUID `gorm:"not null;index"`
	ProductID        uuid.UUID `gorm:"not null;index"`
	PricePaidInCents int64     `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Product Product `gorm:"foreignKey:ProductID;references:ID"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
