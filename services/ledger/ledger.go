package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/services/models"
)

// ErrCustomerNotFound is returned when no user holds the requested email.
var ErrCustomerNotFound = errors.New("customer not found")

// Store records purchases against customers identified by email.
type Store struct {
	orm *gorm.DB
}

// NewStore returns a ledger persisting through orm.
func NewStore(orm *gorm.DB) (*Store, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &Store{orm: orm}, nil
}

// WithTx returns a copy of the store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{orm: tx}
}

// RecordPurchase upserts the user owning email and attaches a new order for productID
// charged at amountPaidCents. Callers wanting both rows committed together must run
// it on a store bound to a transaction.
func (s *Store) RecordPurchase(ctx context.Context, email string, productID uuid.UUID, amountPaidCents int64) (models.Order, error) {
	if strings.TrimSpace(email) == "" {
		return models.Order{}, errors.New("email is required")
	}
	if productID == uuid.Nil {
		return models.Order{}, errors.New("product id is required")
	}
	if amountPaidCents < 0 {
		return models.Order{}, fmt.Errorf("amount paid must not be negative, got %d", amountPaidCents)
	}

	orm := s.orm.WithContext(ctx)

	// RETURNING hands back the stored id whether the row was inserted or already existed.
	user := models.User{Email: email}
	err := orm.Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "id"}}},
	).Omit("Orders").Create(&user).Error
	if err != nil {
		return models.Order{}, fmt.Errorf("upsert user: %w", err)
	}

	order := models.Order{
		UserID:           user.ID,
		ProductID:        productID,
		PricePaidInCents: amountPaidCents,
	}
	if err := orm.Omit("Product").Create(&order).Error; err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

// FindCustomer loads the user with email, newest orders first, each with its product.
func (s *Store) FindCustomer(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.orm.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Order("orders.created_at DESC")
		}).
		Preload("Orders.Product").
		Where("email = ?", email).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrCustomerNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
