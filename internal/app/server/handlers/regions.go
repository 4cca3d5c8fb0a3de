package handlers

import (
	"francoggm/merchant-status-relay/internal/models"
	"net/http"
)

type regionSummary struct {
	Region    string          `json:"region"`
	Name      string          `json:"name"`
	Topology  models.Topology `json:"topology"`
	Merchants []string        `json:"merchants"`
}

func (h *Handlers) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions := h.roster.Regions()

	summaries := make([]regionSummary, 0, len(regions))
	for _, region := range regions {
		summary := regionSummary{
			Region:   region.Key,
			Name:     region.Label,
			Topology: region.Topology,
		}
		for _, merchant := range region.Merchants {
			summary.Merchants = append(summary.Merchants, merchant.DisplayName)
		}
		summaries = append(summaries, summary)
	}

	h.writeJSON(w, http.StatusOK, summaries)
}
