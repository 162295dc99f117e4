package httpapi

import (
	"net/http"
	"strings"

	"lotwatch-engine/internal/catalog"
	"lotwatch-engine/internal/domain"
	"lotwatch-engine/internal/rates"
)

type ListingsHandler struct {
	Catalog *catalog.Store
	Rates   *rates.Client
}

// ListingView is a catalog entry plus presentation fields. The catalog
// keeps source-native USD and miles; the API also serves the converted
// PLN and kilometer values so the dashboard never converts on its own.
type ListingView struct {
	domain.Listing
	PricePLN   string `json:"price_pln,omitempty"`
	BidPLN     string `json:"bid_pln,omitempty"`
	BuyNowPLN  string `json:"buy_now_pln,omitempty"`
	OdometerKM string `json:"odometer_km,omitempty"`
}

func (h ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Catalog.Load()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "catalog_error", err.Error())
		return
	}

	source := strings.TrimSpace(r.URL.Query().Get("source"))
	rate := h.Rates.USDPLN()

	views := make([]ListingView, 0, len(listings))
	for _, l := range listings {
		if source != "" && !strings.EqualFold(string(l.Source), source) {
			continue
		}
		views = append(views, present(l, rate))
	}
	writeJSON(w, views)
}

func present(l domain.Listing, rate float64) ListingView {
	v := ListingView{Listing: l}

	// ACV when the source reports one, estimated value otherwise.
	price := l.ACV
	if price == "" {
		price = l.EstValue
	}
	v.PricePLN = rates.USDToPLN(price, rate)
	v.BidPLN = rates.USDToPLN(l.Bid, rate)
	v.BuyNowPLN = rates.USDToPLN(l.BuyNow, rate)
	v.OdometerKM = rates.MilesToKm(l.Odometer)
	return v
}
