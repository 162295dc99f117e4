package normalize

import (
	"strings"

	"lotwatch-engine/internal/domain"
	"lotwatch-engine/internal/scrape/util"
)

// IAAIRecord is the flat string bag the HTML scraper pulls out of one
// search-result card. Values are display text straight from the markup.
type IAAIRecord struct {
	Name      string
	Link      string
	Odometer  string
	TitleDoc  string
	ACV       string
	Location  string
	Damage    string
	VIN       string
	StartCode string
	Keys      string
	ImageURL  string
}

// IAAI maps an IAAI card into the unified schema. Missing fields become
// empty strings; free text is whitespace-trimmed.
func IAAI(r IAAIRecord) domain.Listing {
	name := util.CleanText(r.Name)
	year, makeModel := splitYear(name)

	return domain.Listing{
		Source:      domain.SourceIAAI,
		Name:        name,
		Year:        year,
		MakeModel:   makeModel,
		VIN:         redactVIN(r.VIN),
		Odometer:    util.CleanText(r.Odometer),
		TitleDoc:    util.CleanText(r.TitleDoc),
		Damage:      TranslateDamage(r.Damage),
		ACV:         util.CleanText(r.ACV),
		Location:    util.CleanText(r.Location),
		DriveStatus: MapIAAIStartCode(r.StartCode),
		Keys:        util.CleanText(r.Keys),
		Link:        strings.TrimSpace(r.Link),
		ImageURL:    strings.TrimSpace(r.ImageURL),
	}
}

// splitYear takes the leading numeric token of a display title as the
// model year ("2022 VOLVO XC40" -> "2022", "VOLVO XC40").
func splitYear(name string) (year, makeModel string) {
	parts := strings.Fields(name)
	if len(parts) > 0 && isDigits(parts[0]) {
		return parts[0], strings.Join(parts[1:], " ")
	}
	return "", name
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MapIAAIStartCode classifies an IAAI start code into a readable status.
// The rules are substring checks, best effort: unknown codes pass through
// trimmed. Copart has its own, separate mapper; the vocabularies differ.
func MapIAAIStartCode(raw string) string {
	if raw == "" {
		return ""
	}
	t := strings.ToLower(raw)
	switch {
	case strings.Contains(t, "run") && strings.Contains(t, "drive"):
		return "Run & Drive"
	case strings.Contains(t, "start") && !strings.Contains(t, "drive"):
		return "Starts"
	case strings.Contains(t, "stationary"):
		return "Stationary"
	}
	return strings.TrimSpace(raw)
}
