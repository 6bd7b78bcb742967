// Package fulfillment turns verified payments into orders and download links, serves
// those links, and re-sends them on request.
package fulfillment

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"storefront/pkg/blob"
	"storefront/services/catalog"
	"storefront/services/credentials"
	"storefront/services/ledger"
	"storefront/services/notify"
)

const (
	// DownloadPath prefixes every redemption link.
	DownloadPath = "/produtos/download/"
	// ExpiredPath is where stale or unknown links are sent.
	ExpiredPath = "/produtos/download/expirado"
	// OrderHistoryPath is the form that re-sends download links.
	OrderHistoryPath = "/pedidos"
)

// Publisher emits domain events. *bus.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Deps are the collaborators of a Service. Publisher is optional.
type Deps struct {
	ORM         *gorm.DB
	Products    catalog.Repository
	Credentials *credentials.Store
	Ledger      *ledger.Store
	Files       blob.Store
	Notifier    notify.Notifier
	Publisher   Publisher
	Logger      zerolog.Logger
}

// Config controls link generation and the clock.
type Config struct {
	PublicBaseURL string
	Now           func() time.Time
}

// Service runs the purchase to delivery pipeline.
type Service struct {
	orm         *gorm.DB
	products    catalog.Repository
	credentials *credentials.Store
	ledger      *ledger.Store
	files       blob.Store
	notifier    notify.Notifier
	publisher   Publisher
	logger      zerolog.Logger
	validate    *validator.Validate
	baseURL     *url.URL
	now         func() time.Time
}

// New validates deps and cfg.
func New(deps Deps, cfg Config) (*Service, error) {
	if deps.ORM == nil {
		return nil, errors.New("orm is required")
	}
	if deps.Products == nil {
		return nil, errors.New("product repository is required")
	}
	if deps.Credentials == nil {
		return nil, errors.New("credential store is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if deps.Files == nil {
		return nil, errors.New("blob store is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.PublicBaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.New("public base url must be absolute")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		orm:         deps.ORM,
		products:    deps.Products,
		credentials: deps.Credentials,
		ledger:      deps.Ledger,
		files:       deps.Files,
		notifier:    deps.Notifier,
		publisher:   deps.Publisher,
		logger:      deps.Logger.With().Str("component", "fulfillment").Logger(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		baseURL:     base,
		now:         func() time.Time { return now().UTC() },
	}, nil
}

// DownloadURL is the absolute redemption link for a credential id.
func (s *Service) DownloadURL(credentialID string) string {
	return s.absolute(DownloadPath + credentialID)
}

func (s *Service) absolute(path string) string {
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return s.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

func (s *Service) publish(ctx context.Context, subject string, v any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, subject, v); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}
