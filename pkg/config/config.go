package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"storefront/pkg/render"
)

// Database locates PostgreSQL.
type Database struct {
	DSN string `env:"DB_DSN,required"`
}

// Blob selects where product files live.
type Blob struct {
	Backend  string `env:"BLOB_BACKEND,default=fs"`
	Root     string `env:"BLOB_ROOT,default=./data"`
	S3Bucket string `env:"S3_BUCKET"`
}

// Logging controls the zerolog output.
type Logging struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// API holds runtime configuration for the storefront API service.
type API struct {
	Database
	Blob
	Logging

	Addr                  string        `env:"ADDR,default=:8080"`
	PublicBaseURL         string        `env:"PUBLIC_BASE_URL,default=http://localhost:8080"`
	StripeWebhookSecret   string        `env:"STRIPE_WEBHOOK_SECRET,required"`
	SMTPHost              string        `env:"SMTP_HOST"`
	SMTPPort              int           `env:"SMTP_PORT,default=587"`
	SMTPUser              string        `env:"SMTP_USER"`
	SMTPPassword          string        `env:"SMTP_PASS"`
	SenderEmail           string        `env:"SENDER_EMAIL"`
	SenderName            string        `env:"SENDER_NAME,default=Suporte"`
	NATSURL               string        `env:"NATS_URL"`
	OTLPEndpoint          string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins        []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`
	DownloadLinkTTL       time.Duration `env:"DOWNLOAD_LINK_TTL,default=24h"`
	OrderHistoryRateLimit int           `env:"ORDER_HISTORY_RATE_LIMIT,default=10"`
	Currency              string        `env:"CURRENCY,default=BRL"`
	Locale                string        `env:"LOCALE,default=pt-BR"`
}

// Admin holds configuration for storefrontctl.
type Admin struct {
	Database
	Blob
	Logging

	NATSURL string `env:"NATS_URL"`
}

// LoadAPI returns an API config populated from environment variables.
func LoadAPI(ctx context.Context) (API, error) {
	return LoadAPIFrom(ctx, envconfig.OsLookuper())
}

// LoadAPIFrom is LoadAPI reading from lookuper.
func LoadAPIFrom(ctx context.Context, lookuper envconfig.Lookuper) (API, error) {
	var cfg API
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return API{}, err
	}
	if err := cfg.validate(); err != nil {
		return API{}, err
	}
	return cfg, nil
}

// LoadAdmin returns an Admin config populated from environment variables.
func LoadAdmin(ctx context.Context) (Admin, error) {
	var cfg Admin
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Admin{}, err
	}
	if err := cfg.Blob.validate(); err != nil {
		return Admin{}, err
	}
	return cfg, nil
}

func (b Blob) validate() error {
	switch b.Backend {
	case "fs":
		if strings.TrimSpace(b.Root) == "" {
			return errors.New("BLOB_ROOT is required for the fs backend")
		}
	case "s3":
		if strings.TrimSpace(b.S3Bucket) == "" {
			return errors.New("S3_BUCKET is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", b.Backend)
	}
	return nil
}

func (c API) validate() error {
	if err := c.Blob.validate(); err != nil {
		return err
	}
	u, err := url.Parse(c.PublicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL %q must be an absolute URL", c.PublicBaseURL)
	}
	if c.DownloadLinkTTL <= 0 {
		return errors.New("DOWNLOAD_LINK_TTL must be positive")
	}
	if c.OrderHistoryRateLimit <= 0 {
		return errors.New("ORDER_HISTORY_RATE_LIMIT must be positive")
	}
	if c.SMTPHost != "" && c.SenderEmail == "" {
		return errors.New("SENDER_EMAIL is required when SMTP_HOST is set")
	}
	if _, err := c.RenderOptions(); err != nil {
		return err
	}
	return nil
}

// RenderOptions turns the locale settings into template options.
func (c API) RenderOptions() (render.Options, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return render.Options{}, fmt.Errorf("invalid LOCALE %q: %w", c.Locale, err)
	}
	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return render.Options{}, fmt.Errorf("invalid CURRENCY %q: %w", c.Currency, err)
	}
	opts := render.DefaultOptions()
	opts.Locale = tag
	opts.Currency = unit
	return opts, nil
}
