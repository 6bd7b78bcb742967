package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storefront/pkg/render"
	"storefront/services/credentials"
	"storefront/services/fulfillment"
)

func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	dl, err := a.service.OpenDownload(r.Context(), chi.URLParam(r, "downloadVerification"))
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			a.metrics.downloads.WithLabelValues("expired").Inc()
			http.Redirect(w, r, fulfillment.ExpiredPath, http.StatusTemporaryRedirect)
			return
		}
		a.metrics.downloads.WithLabelValues("unavailable").Inc()
		a.logger.Error().Err(err).Msg("download failed")
		respondError(w, http.StatusInternalServerError, errors.New("download unavailable"))
		return
	}
	defer dl.Body.Close()

	h := w.Header()
	h.Set("Content-Type", dl.ContentType)
	h.Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	h.Set("Content-Disposition", contentDisposition(dl.Filename))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	a.metrics.downloads.WithLabelValues("served").Inc()
	if _, err := io.Copy(w, dl.Body); err != nil {
		a.logger.Warn().Err(err).Msg("download interrupted")
	}
}

func (a *API) handleDownloadExpired(w http.ResponseWriter, _ *http.Request) {
	page, err := a.renderer.Render(render.DownloadExpired, struct{ OrderHistoryURL string }{
		OrderHistoryURL: fulfillment.OrderHistoryPath,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("render expired page")
		respondError(w, http.StatusInternalServerError, errors.New("render failed"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, page)
}
