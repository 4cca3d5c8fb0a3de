package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

func (h *Handlers) PurgeCache(w http.ResponseWriter, r *http.Request) {
	if h.purger == nil {
		h.writeError(w, http.StatusNotFound, "response cache is disabled")
		return
	}

	if err := h.purger.PurgeResponses(r.Context(), h.roster.Keys()...); err != nil {
		h.logger.Error("error purging cached statuses", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "failed to purge cached statuses")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
