package api

import (
	"errors"
	"io"
	"net/http"

	"storefront/services/fulfillment"
	"storefront/services/payments"
)

func (a *API) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, payments.MaxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		a.metrics.webhookEvents.WithLabelValues("unreadable").Inc()
		respondError(w, http.StatusBadRequest, errors.New("failed to read request body"))
		return
	}

	event, err := a.verifier.ParseEvent(payload, r.Header.Get(payments.SignatureHeader))
	if err != nil {
		a.metrics.webhookEvents.WithLabelValues("invalid_signature").Inc()
		a.logger.Warn().Err(err).Msg("webhook rejected")
		respondError(w, http.StatusBadRequest, payments.ErrInvalidSignature)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	result, err := a.service.HandleEvent(ctx, event)
	switch {
	case errors.Is(err, fulfillment.ErrInvalidCharge):
		a.metrics.webhookEvents.WithLabelValues("invalid_charge").Inc()
		a.logger.Warn().Err(err).Str("event_id", event.ID).Msg("webhook payload rejected")
		respondError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		a.metrics.webhookEvents.WithLabelValues("error").Inc()
		a.logger.Error().Err(err).Str("event_id", event.ID).Msg("webhook processing failed")
		respondError(w, http.StatusInternalServerError, errors.New("failed to process webhook"))
		return
	}

	a.metrics.webhookEvents.WithLabelValues(string(result.Outcome)).Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"received": true,
		"status":   result.Outcome,
	})
}
