package api

import (
	"errors"
	"net/http"

	"storefront/services/fulfillment"
)

const maxFormBytes = 64 * 1024

func (a *API) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		a.metrics.historyRequests.WithLabelValues("invalid").Inc()
		respondError(w, http.StatusBadRequest, errors.New("invalid form"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	res, err := a.service.EmailOrderHistory(ctx, fulfillment.HistoryRequest{Email: r.PostForm.Get("email")})

	var verrs fulfillment.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		a.metrics.historyRequests.WithLabelValues("invalid").Inc()
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  fulfillment.MessageInvalidEmail,
			"fields": verrs,
		})
	case errors.Is(err, fulfillment.ErrEmailDeliveryFailed):
		a.metrics.historyRequests.WithLabelValues("delivery_failed").Inc()
		respondJSON(w, http.StatusBadGateway, map[string]any{"error": fulfillment.MessageEmailFailed})
	case err != nil:
		a.metrics.historyRequests.WithLabelValues("error").Inc()
		a.logger.Error().Err(err).Msg("order history failed")
		respondJSON(w, http.StatusInternalServerError, map[string]any{"error": fulfillment.MessageEmailFailed})
	default:
		a.metrics.historyRequests.WithLabelValues("accepted").Inc()
		respondJSON(w, http.StatusOK, map[string]any{"message": res.Message})
	}
}
