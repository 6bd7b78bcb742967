package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/pkg/db"
)

const selectProductByID = `
SELECT id, name, description, price_in_cents, file_path, image_path,
       is_available_for_purchase, created_at, updated_at
FROM products
WHERE id = $1`

// PGRepository reads products straight from the pgx pool.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository wraps pool.
func NewPGRepository(pool *pgxpool.Pool) (*PGRepository, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &PGRepository{pool: pool}, nil
}

// Get loads the product with id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	if err := db.Get(ctx, r.pool, &p, selectProductByID, id); err != nil {
		if db.IsNoRows(err) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}
