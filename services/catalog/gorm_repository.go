package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/services/models"
)

// GormRepository reads and registers products through GORM.
type GormRepository struct {
	orm *gorm.DB
}

// NewGormRepository wraps orm.
func NewGormRepository(orm *gorm.DB) (*GormRepository, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &GormRepository{orm: orm}, nil
}

// Get loads the product with id.
func (r *GormRepository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	var m models.Product
	if err := r.orm.WithContext(ctx).Take(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return fromModel(m), nil
}

// Create inserts p, assigning an id when none is set.
func (r *GormRepository) Create(ctx context.Context, p Product) (Product, error) {
	m := p.toModel()
	if err := r.orm.WithContext(ctx).Create(&m).Error; err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return fromModel(m), nil
}

// FindByName loads the product registered under exactly name.
func (r *GormRepository) FindByName(ctx context.Context, name string) (Product, error) {
	var m models.Product
	if err := r.orm.WithContext(ctx).Take(&m, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return fromModel(m), nil
}
