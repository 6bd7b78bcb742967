package api

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"storefront/pkg/render"
	"storefront/services/fulfillment"
	"storefront/services/payments"
)

const defaultOrderHistoryRateLimit = 10

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Config controls runtime behaviour for the API handlers.
type Config struct {
	AllowedOrigins []string
	// OrderHistoryRateLimit is the number of order history requests allowed per
	// client IP per minute.
	OrderHistoryRateLimit int
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Service  *fulfillment.Service
	Verifier *payments.Verifier
	Renderer *render.Engine
	Ready    []ReadinessCheck
	Logger   zerolog.Logger
}

// API wires dependencies, template renderer, and configuration for HTTP handlers.
type API struct {
	service  *fulfillment.Service
	verifier *payments.Verifier
	renderer *render.Engine
	ready    []ReadinessCheck
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics
	config   Config
}

// New initialises the API layer with sane defaults applied to the provided configuration.
func New(deps Deps, cfg Config) (*API, error) {
	if deps.Service == nil {
		return nil, errors.New("fulfillment service is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("webhook verifier is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("renderer is required")
	}

	if cfg.OrderHistoryRateLimit <= 0 {
		cfg.OrderHistoryRateLimit = defaultOrderHistoryRateLimit
	}

	registry := prometheus.NewRegistry()
	m, err := newMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &API{
		service:  deps.Service,
		verifier: deps.Verifier,
		renderer: deps.Renderer,
		ready:    deps.Ready,
		logger:   deps.Logger.With().Str("component", "api").Logger(),
		registry: registry,
		metrics:  m,
		config:   cfg,
	}, nil
}
