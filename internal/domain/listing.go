package domain

// Source identifies which auction house a listing was scraped from.
type Source string

const (
	SourceIAAI   Source = "IAAI"
	SourceCopart Source = "Copart"
)

// Listing is the unified representation of one auction vehicle, regardless
// of which source it came from. All descriptive fields are strings; an
// empty string means "unknown" (sources redact or omit fields freely).
//
// Field order matters: the catalog file is a JSON array of these and is
// meant to be diffable across runs.
type Listing struct {
	Source    Source `json:"source"`
	Name      string `json:"name"`
	Year      string `json:"year"`
	MakeModel string `json:"make_model"`
	VIN       string `json:"vin"`

	LotNumber string `json:"lot_number,omitempty"`

	Odometer        string `json:"odometer"`
	TitleDoc        string `json:"title_doc"`
	Damage          string `json:"damage"`
	SecondaryDamage string `json:"secondary_damage,omitempty"`

	// Prices stay in source currency ("$27,541"); the API layer converts
	// on read. Empty means the source reported no value (zero is never a
	// valid price and is rendered as empty, not "$0").
	ACV        string `json:"acv,omitempty"`
	EstValue   string `json:"est_value,omitempty"`
	RepairCost string `json:"repair_cost,omitempty"`
	Bid        string `json:"bid,omitempty"`
	BuyNow     string `json:"buy_now,omitempty"`

	AuctionDate string `json:"auction_date,omitempty"`
	Location    string `json:"location"`
	Engine      string `json:"engine,omitempty"`
	DriveStatus string `json:"drive_status"`
	Keys        string `json:"keys"`

	// Link is the canonical detail-page URL and the identity key: unique
	// across the whole catalog, required for a listing to be stored.
	Link     string `json:"link"`
	ImageURL string `json:"image_url"`

	// DateFound is stamped once, at first ingestion ("2006-01-02 15:04"
	// local time), and never changes afterwards.
	DateFound string `json:"date_found"`
}
