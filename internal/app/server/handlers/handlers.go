package handlers

import (
	"context"
	"francoggm/merchant-status-relay/internal/app/history"
	"francoggm/merchant-status-relay/internal/app/merchants"
	"francoggm/merchant-status-relay/internal/app/roster"
	"net/http"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

type Purger interface {
	PurgeResponses(ctx context.Context, regions ...string) error
}

type Handlers struct {
	roster    *roster.Roster
	merchants *merchants.CachedService
	history   *history.HistoryRepo
	purger    Purger
	logger    *zap.Logger
}

// NewHandlers wires the HTTP handlers. historyRepo and purger may be nil when
// the matching feature is disabled.
func NewHandlers(r *roster.Roster, merchantsService *merchants.CachedService, historyRepo *history.HistoryRepo, purger Purger, logger *zap.Logger) *Handlers {
	return &Handlers{
		roster:    r,
		merchants: merchantsService,
		history:   historyRepo,
		purger:    purger,
		logger:    logger.Named("handlers"),
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		h.logger.Error("error encoding response", zap.Error(err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
