// Package rates converts the catalog's USD money strings and mile
// odometers into PLN and kilometers for the read API. The exchange rate
// comes from the public NBP table A feed and is cached for an hour;
// when the feed is down the last known rate (or a static fallback)
// keeps the API serving.
package rates

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultFeedURL = "https://api.nbp.pl/api/exchangerates/rates/a/usd/?format=json"
	fallbackRate   = 4.10
	cacheTTL       = time.Hour
	milesToKm      = 1.60934
)

type Client struct {
	url   string
	httpc *http.Client

	mu        sync.Mutex
	rate      float64
	fetchedAt time.Time
}

func New(feedURL string) *Client {
	if feedURL == "" {
		feedURL = defaultFeedURL
	}
	return &Client{
		url:   feedURL,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

type nbpResponse struct {
	Rates []struct {
		Mid float64 `json:"mid"`
	} `json:"rates"`
}

// USDPLN returns the current USD to PLN mid rate. Never fails: a dead
// feed degrades to the last fetched rate, then to the static fallback.
func (c *Client) USDPLN() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rate > 0 && time.Since(c.fetchedAt) < cacheTTL {
		return c.rate
	}

	if mid, err := c.fetch(); err == nil && mid > 0 {
		c.rate = mid
		c.fetchedAt = time.Now()
		return c.rate
	}

	if c.rate > 0 {
		return c.rate
	}
	return fallbackRate
}

func (c *Client) fetch() (float64, error) {
	resp, err := c.httpc.Get(c.url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate feed status %d", resp.StatusCode)
	}

	var nbp nbpResponse
	if err := json.NewDecoder(resp.Body).Decode(&nbp); err != nil {
		return 0, err
	}
	if len(nbp.Rates) == 0 {
		return 0, fmt.Errorf("rate feed returned no rates")
	}
	return nbp.Rates[0].Mid, nil
}

// USDToPLN converts a formatted dollar string like "$27,541" into a
// formatted złoty string like "112,918 zł". Empty or unparsable input
// stays empty, matching the catalog's zero-price suppression.
func USDToPLN(usd string, rate float64) string {
	n, ok := parseMoney(usd)
	if !ok || n <= 0 {
		return ""
	}
	pln := int64(float64(n)*rate + 0.5)
	return groupInt(pln) + " zł"
}

// MilesToKm rewrites an odometer string like "41,234 mi (Actual)" into
// "66,353 km (Actual)". Strings without a leading number pass through.
func MilesToKm(odometer string) string {
	s := strings.TrimSpace(odometer)
	if s == "" {
		return ""
	}

	numEnd := 0
	for numEnd < len(s) && (s[numEnd] >= '0' && s[numEnd] <= '9' || s[numEnd] == ',') {
		numEnd++
	}
	if numEnd == 0 {
		return s
	}

	miles, err := strconv.ParseInt(strings.ReplaceAll(s[:numEnd], ",", ""), 10, 64)
	if err != nil {
		return s
	}
	km := int64(float64(miles)*milesToKm + 0.5)

	rest := strings.TrimSpace(s[numEnd:])
	rest = strings.TrimPrefix(rest, "mi")
	rest = strings.TrimSpace(rest)

	out := groupInt(km) + " km"
	if rest != "" {
		out += " " + rest
	}
	return out
}

// parseMoney pulls the first digit run out of a display string. Sources
// decorate prices freely ("$28,900 USD", "$27,541"), so anything around
// the number is ignored rather than rejected.
func parseMoney(s string) (int64, bool) {
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == ',') {
		end++
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(s[start:end], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func groupInt(n int64) string {
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
