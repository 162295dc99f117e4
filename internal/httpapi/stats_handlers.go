package httpapi

import (
	"net/http"

	"lotwatch-engine/internal/catalog"
	"lotwatch-engine/internal/rates"
)

type StatsHandler struct {
	Catalog      *catalog.Store
	Rates        *rates.Client
	ScrapeStatus *StatusHolder
}

type statsResponse struct {
	Total     int            `json:"total"`
	BySource  map[string]int `json:"by_source"`
	USDPLN    float64        `json:"usd_pln"`
	LastRunAt string         `json:"last_run_at,omitempty"`
	LastOkAt  string         `json:"last_ok_at,omitempty"`
}

func (h StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Catalog.Load()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "catalog_error", err.Error())
		return
	}

	resp := statsResponse{
		Total:    len(listings),
		BySource: map[string]int{},
		USDPLN:   h.Rates.USDPLN(),
	}
	for _, l := range listings {
		resp.BySource[string(l.Source)]++
	}

	st := h.ScrapeStatus.Get()
	resp.LastRunAt = st.LastRunAt
	resp.LastOkAt = st.LastOkAt
	writeJSON(w, resp)
}
