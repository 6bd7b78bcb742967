package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/services/models"
)

// DefaultTTL is how long a freshly issued download link stays valid.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned for credentials that never existed and for expired ones alike.
var ErrNotFound = errors.New("download credential not found or expired")

// Credential is an issued download capability.
type Credential struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	ExpiresAt time.Time
}

// Download is what a valid credential resolves to.
type Download struct {
	ProductID   uuid.UUID
	ProductName string
	FilePath    string
}

// Store issues and redeems download credentials.
type Store struct {
	orm *gorm.DB
	ttl time.Duration
}

// NewStore returns a Store persisting through orm. A non-positive ttl selects DefaultTTL.
func NewStore(orm *gorm.DB, ttl time.Duration) (*Store, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{orm: orm, ttl: ttl}, nil
}

// WithTx returns a copy of the store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{orm: tx, ttl: s.ttl}
}

// TTL reports the validity window applied to new credentials.
func (s *Store) TTL() time.Duration { return s.ttl }

// Issue mints a credential for productID that expires one TTL after now.
func (s *Store) Issue(ctx context.Context, productID uuid.UUID, now time.Time) (Credential, error) {
	if productID == uuid.Nil {
		return Credential{}, errors.New("product id is required")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return Credential{}, fmt.Errorf("generate credential id: %w", err)
	}

	model := models.DownloadVerification{
		ID:        id,
		ProductID: productID,
		ExpiresAt: now.UTC().Add(s.ttl),
		CreatedAt: now.UTC(),
	}
	if err := s.orm.WithContext(ctx).Omit("Product").Create(&model).Error; err != nil {
		return Credential{}, fmt.Errorf("store credential: %w", err)
	}

	return Credential{ID: model.ID, ProductID: model.ProductID, ExpiresAt: model.ExpiresAt}, nil
}

// Redeem resolves id to the product file it grants, provided it expires strictly after now.
// Redemption does not consume the credential.
func (s *Store) Redeem(ctx context.Context, id uuid.UUID, now time.Time) (Download, error) {
	var row struct {
		ProductID uuid.UUID
		Name      string
		FilePath  string
	}

	err := s.orm.WithContext(ctx).
		Table("download_verifications").
		Select("products.id AS product_id, products.name, products.file_path").
		Joins("JOIN products ON products.id = download_verifications.product_id").
		Where("download_verifications.id = ? AND download_verifications.expires_at > ?", id, now.UTC()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Download{}, ErrNotFound
		}
		return Download{}, err
	}

	return Download{ProductID: row.ProductID, ProductName: row.Name, FilePath: row.FilePath}, nil
}

// ParseID turns a path segment into a credential id. Malformed input maps to ErrNotFound
// so callers treat it like any other unknown credential.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}
