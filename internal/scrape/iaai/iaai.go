// Package iaai scrapes IAAI search results. The site renders everything
// server-side, so one GET with a big CountPerPage covers the whole query;
// there is no pagination on this source.
package iaai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"lotwatch-engine/internal/domain"
	"lotwatch-engine/internal/scrape/normalize"
	"lotwatch-engine/internal/scrape/types"
	"lotwatch-engine/internal/scrape/util"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

type Config struct {
	Query   string // "volvo xc40"
	BaseURL string // site origin, default https://www.iaai.com
	Timeout time.Duration
}

type Scraper struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, limiter *util.HostLimiter) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.iaai.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Scraper{
		cfg:     cfg,
		hc:      &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
	}
}

func (s *Scraper) Name() string { return "iaai" }

func (s *Scraper) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	result := types.ScrapeResult{Source: domain.SourceIAAI}

	q := url.Values{}
	q.Set("Keyword", s.cfg.Query)
	q.Set("CountPerPage", "200")
	searchURL := strings.TrimRight(s.cfg.BaseURL, "/") + "/Search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return result, err
	}
	req.Header.Set("User-Agent", browserUA)

	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, searchURL); err != nil {
			return result, err
		}
	}

	res, err := s.hc.Do(req)
	if err != nil {
		return result, fmt.Errorf("iaai get search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return result, fmt.Errorf("iaai search status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return result, fmt.Errorf("iaai parse search html: %w", err)
	}

	doc.Find(".table-row.table-row-border").Each(func(_ int, card *goquery.Selection) {
		rec, ok := s.parseCard(card)
		if !ok {
			return
		}
		result.Listings = append(result.Listings, normalize.IAAI(rec))
	})

	return result, nil
}

// parseCard extracts one raw record from a result card. A card without a
// title cannot be normalized and is skipped; every other field is best
// effort. Labeled fields are matched on the span's title attribute since
// the machine label is stable across locales and the display text is not.
func (s *Scraper) parseCard(card *goquery.Selection) (normalize.IAAIRecord, bool) {
	name := util.CleanText(card.Find("h4").First().Text())
	if name == "" {
		return normalize.IAAIRecord{}, false
	}

	rec := normalize.IAAIRecord{Name: name}

	if href, ok := card.Find("a[href*='VehicleDetail']").First().Attr("href"); ok {
		href = strings.TrimSpace(href)
		if strings.HasPrefix(href, "/") {
			href = strings.TrimRight(s.cfg.BaseURL, "/") + href
		}
		rec.Link = href
	}

	card.Find(".data-list__item span[title]").Each(func(_ int, span *goquery.Selection) {
		label, _ := span.Attr("title")
		text := util.CleanText(span.Text())
		switch {
		case strings.Contains(label, "Odometer"):
			rec.Odometer = text
		case strings.Contains(label, "Title/Sale Doc"):
			rec.TitleDoc = text
		case strings.Contains(label, "ACV") || strings.Contains(label, "Actual Cash"):
			rec.ACV = text
		case strings.Contains(label, "Branch"):
			rec.Location = text
		case strings.Contains(label, "Damage") || strings.Contains(label, "Primary"):
			rec.Damage = text
		case strings.Contains(label, "Please log in") && len(text) > 6:
			// redacted VIN hides behind a login prompt tooltip
			rec.VIN = text
		case strings.HasPrefix(label, "Start Code"):
			rec.StartCode = text
		case strings.HasPrefix(label, "Key"):
			rec.Keys = text
		}
	})

	if img := card.Find("img").First(); img.Length() > 0 {
		src, _ := img.Attr("src")
		if src == "" {
			src, _ = img.Attr("data-src") // lazy-loaded thumbnails
		}
		rec.ImageURL = src
	}

	return rec, true
}
