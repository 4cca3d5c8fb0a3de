package handlers

import (
	"errors"
	"francoggm/merchant-status-relay/internal/app/merchants"
	"francoggm/merchant-status-relay/internal/models"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GetMerchants answers with the region envelope keyed by its label, or a
// single error object. Never with a partial envelope.
func (h *Handlers) GetMerchants(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	resp, err := h.merchants.GetMerchantStatuses(r.Context(), region, refresh)
	if err != nil {
		if errors.Is(err, merchants.ErrUnknownRegion) {
			h.writeError(w, http.StatusBadRequest, "Invalid region")
			return
		}

		h.logger.Error("error getting merchant statuses", zap.String("region", region), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Server error: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]*models.AggregationResponse{
		resp.Name: resp,
	})
}
