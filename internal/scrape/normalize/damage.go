package normalize

import "strings"

// damageLabels translates source damage codes into the display labels the
// dashboard shows. Read-only after init; unknown codes pass through
// unchanged, so growing this table never affects identity or dedup.
var damageLabels = map[string]string{
	"all over":              "Cały pojazd",
	"biohazard":             "Zagrożenie biologiczne",
	"burn":                  "Spalony",
	"burn - loss":           "Spalony",
	"electrical":            "Elektryczne",
	"front & rear":          "Przód i tył",
	"front end":             "Przód",
	"left & right side":     "Lewa i prawa strona",
	"left front":            "Lewy przód",
	"left rear":             "Lewy tył",
	"left side":             "Lewa strona",
	"mechanical":            "Mechaniczne",
	"minor dent/scratches":  "Drobne wgniecenia/rysy",
	"minor dents/scratches": "Drobne wgniecenia/rysy",
	"normal wear":           "Normalne zużycie",
	"none":                  "Brak",
	"rear":                  "Tył",
	"rear end":              "Tył",
	"right front":           "Prawy przód",
	"right rear":            "Prawy tył",
	"right side":            "Prawa strona",
	"rollover":              "Dachowanie",
	"side":                  "Bok",
	"suspension":            "Zawieszenie",
	"top/roof":              "Dach",
	"undercarriage":         "Podwozie",
	"vandalism":             "Wandalizm",
	"water/flood":           "Zalanie",
	"hail":                  "Grad",
	"replaced":              "Wymieniony",
	"unknown":               "Nieznane",
	"missing/altered vin":   "Brak/zmieniony VIN",
	"stripped":              "Ogołocony",
	"partial repair":        "Częściowa naprawa",
}

// TranslateDamage maps a raw damage code to its display label. Lookup is
// case-insensitive and whitespace-tolerant; unrecognized codes come back
// trimmed but otherwise verbatim.
func TranslateDamage(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if label, ok := damageLabels[strings.ToLower(trimmed)]; ok {
		return label
	}
	return trimmed
}
