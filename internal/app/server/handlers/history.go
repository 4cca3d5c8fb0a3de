package handlers

import (
	"errors"
	"francoggm/merchant-status-relay/internal/app/history"
	"francoggm/merchant-status-relay/internal/app/merchants"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type historyResponse struct {
	Region  string          `json:"region"`
	Entries []history.Entry `json:"entries"`
}

func (h *Handlers) GetMerchantHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, "status history is disabled")
		return
	}

	region := chi.URLParam(r, "region")
	if _, err := h.roster.Resolve(region); err != nil {
		if errors.Is(err, merchants.ErrUnknownRegion) {
			h.writeError(w, http.StatusBadRequest, "Invalid region")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.history.List(r.Context(), region, limit)
	if err != nil {
		h.logger.Error("error listing status history", zap.String("region", region), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list status history")
		return
	}

	h.writeJSON(w, http.StatusOK, historyResponse{Region: region, Entries: entries})
}
