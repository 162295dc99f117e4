package normalize

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"lotwatch-engine/internal/domain"
	"lotwatch-engine/internal/scrape/util"
)

// CopartRecord carries one lot from the search API, already decoded from
// its abbreviated wire keys (ln, ld, orr, la, ...) into named fields.
// Numeric fields are zero when the API omitted them.
type CopartRecord struct {
	LotNumber       string
	Description     string  // "2025 VOLVO XC40 CORE"
	OdometerReading float64 // miles
	OdometerBrand   string  // "Actual", "Not Actual", ...
	ACV             float64 // estimated retail value, USD
	RepairCost      float64
	HighBid         float64
	BuyNowPrice     float64
	Damage          string
	SecondaryDamage string
	TitleDoc        string
	TitleGroup      string
	YardName        string
	AuctionDateMS   int64 // epoch millis, 0 = not scheduled
	VIN             string
	Engine          string
	Condition       string // "RUN AND DRIVE", "ENHANCED VEHICLES", ...
	HasKeys         string // "YES" / "NO" / ""
	ImageURL        string
	Link            string
}

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Copart maps one API lot into the unified schema. All derivations the
// coded schema needs happen here: year extraction, odometer qualifier,
// money formatting with zero suppression, epoch date conversion.
func Copart(r CopartRecord) domain.Listing {
	desc := util.CleanText(r.Description)

	year := yearRe.FindString(desc)
	makeModel := desc
	if year != "" {
		makeModel = util.CleanText(strings.Replace(desc, year, "", 1))
	}

	odometer := ""
	if r.OdometerReading > 0 {
		odometer = groupThousands(int64(r.OdometerReading + 0.5))
	}
	if brand := util.CleanText(r.OdometerBrand); brand != "" {
		odometer += " (" + brand + ")"
	}

	// Title group is more specific than the bare title doc when present.
	titleDoc := util.CleanText(r.TitleDoc)
	if tgd := util.CleanText(r.TitleGroup); tgd != "" && !strings.Contains(titleDoc, tgd) {
		titleDoc = tgd
	}

	auctionDate := ""
	if r.AuctionDateMS > 0 {
		auctionDate = time.UnixMilli(r.AuctionDateMS).Format("2006-01-02 15:04")
	}

	return domain.Listing{
		Source:          domain.SourceCopart,
		Name:            desc,
		Year:            year,
		MakeModel:       makeModel,
		VIN:             redactVIN(r.VIN),
		LotNumber:       strings.TrimSpace(r.LotNumber),
		Odometer:        strings.TrimSpace(odometer),
		TitleDoc:        titleDoc,
		Damage:          TranslateDamage(r.Damage),
		SecondaryDamage: TranslateDamage(r.SecondaryDamage),
		EstValue:        formatUSD(r.ACV),
		RepairCost:      formatUSD(r.RepairCost),
		Bid:             formatUSD(r.HighBid),
		BuyNow:          formatUSD(r.BuyNowPrice),
		AuctionDate:     auctionDate,
		Location:        util.CleanText(r.YardName),
		Engine:          util.CleanText(r.Engine),
		DriveStatus:     MapCopartCondition(r.Condition),
		Keys:            util.CleanText(r.HasKeys),
		Link:            strings.TrimSpace(r.Link),
		ImageURL:        strings.TrimSpace(r.ImageURL),
	}
}

// MapCopartCondition classifies a lot condition description. Independent
// from the IAAI mapper on purpose: Copart says "ENHANCED VEHICLES" and
// "ENGINE START PROGRAM", which IAAI never does.
func MapCopartCondition(raw string) string {
	if raw == "" {
		return ""
	}
	u := strings.ToUpper(raw)
	switch {
	case strings.Contains(u, "RUN") && strings.Contains(u, "DRIVE"):
		return "Run & Drive"
	case strings.Contains(u, "ENHANCED"):
		return "Enhanced"
	case strings.Contains(u, "ENGINE START") || strings.Contains(u, "STARTS"):
		return "Starts"
	case strings.Contains(u, "STATIONARY"):
		return "Stationary"
	}
	return titleCase(strings.TrimSpace(raw))
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
