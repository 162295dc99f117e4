// Package normalize converts each source's raw record shape into the
// unified Listing schema. Both sources keep their own record type and
// mapping function; the only shared pieces are small formatting helpers
// and the damage vocabulary.
package normalize

import (
	"strconv"
	"strings"
)

// redactVIN collapses the sources' long redaction runs so "1FM******1234"
// style values stay readable in the dashboard.
func redactVIN(vin string) string {
	return strings.ReplaceAll(strings.TrimSpace(vin), "******", "***")
}

// formatUSD renders a price as "$27,541". Zero or negative means the
// source reported no value, which must render as empty, never "$0".
func formatUSD(v float64) string {
	if v <= 0 {
		return ""
	}
	return "$" + groupThousands(int64(v+0.5))
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
