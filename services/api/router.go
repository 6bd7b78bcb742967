package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/services/fulfillment"
)

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	// Provider deliveries: no CORS and the raw body must reach the verifier untouched.
	r.Post("/webhooks/stripe", a.handleStripeWebhook)

	r.Group(func(r chi.Router) {
		allowed := a.config.AllowedOrigins
		if len(allowed) == 0 {
			allowed = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowed,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         int((10 * time.Minute).Seconds()),
		}))

		r.Get("/produtos/download/{downloadVerification}", a.handleDownload)

		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })
			r.Get(fulfillment.ExpiredPath, a.handleDownloadExpired)
			r.With(httprate.LimitByIP(a.config.OrderHistoryRateLimit, time.Minute)).
				Post(fulfillment.OrderHistoryPath, a.handleOrderHistory)
		})
	})

	return r, nil
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, check := range a.ready {
		if err := check(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("readiness check failed")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
