// Package catalog exposes read access to products plus the registration path used by
// the admin tooling.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"storefront/services/models"
)

// ErrProductNotFound is returned when no product has the requested id.
var ErrProductNotFound = errors.New("product not found")

// Product is the catalog view of a sellable item.
type Product struct {
	ID                     uuid.UUID `json:"id" db:"id"`
	Name                   string    `json:"name" db:"name"`
	Description            string    `json:"description" db:"description"`
	PriceInCents           int64     `json:"price_in_cents" db:"price_in_cents"`
	FilePath               string    `json:"file_path" db:"file_path"`
	ImagePath              string    `json:"image_path" db:"image_path"`
	IsAvailableForPurchase bool      `json:"is_available_for_purchase" db:"is_available_for_purchase"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

// Repository looks products up by id.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Product, error)
}

func fromModel(m models.Product) Product {
	return Product{
		ID:                     m.ID,
		Name:                   m.Name,
		Description:            m.Description,
		PriceInCents:           m.PriceInCents,
		FilePath:               m.FilePath,
		ImagePath:              m.ImagePath,
		IsAvailableForPurchase: m.IsAvailableForPurchase,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func (p Product) toModel() models.Product {
	return models.Product{
		ID:                     p.ID,
		Name:                   p.Name,
		Description:            p.Description,
		PriceInCents:           p.PriceInCents,
		FilePath:               p.FilePath,
		ImagePath:              p.ImagePath,
		IsAvailableForPurchase: p.IsAvailableForPurchase,
	}
}
