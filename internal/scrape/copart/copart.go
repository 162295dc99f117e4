// Package copart pulls lots from the Copart search API: one warm-up GET
// against the site root to pick up session cookies, then POSTs against
// /public/lots/search-results until the result set is exhausted.
package copart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"lotwatch-engine/internal/domain"
	"lotwatch-engine/internal/scrape/normalize"
	"lotwatch-engine/internal/scrape/types"
	"lotwatch-engine/internal/scrape/util"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

const (
	pageSize = 100
	// maxPages guards against an API that keeps handing back pages; 40
	// pages of 100 is far beyond any real single-model result set.
	maxPages = 40
)

type Config struct {
	Query   string // free-text query, "volvo xc40"
	Model   string // model token results must contain, "xc40"
	BaseURL string // site origin, default https://www.copart.com
	Timeout time.Duration
}

type Scraper struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, limiter *util.HostLimiter) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.copart.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	// cookie jar keeps the session cookies the API hands out on the
	// warm-up GET; without them the search endpoint rejects POSTs
	jar, _ := cookiejar.New(nil)
	return &Scraper{
		cfg:     cfg,
		hc:      &http.Client{Jar: jar, Timeout: cfg.Timeout},
		limiter: limiter,
	}
}

func (s *Scraper) Name() string { return "copart" }

type searchRequest struct {
	Query               []string       `json:"query"`
	Filter              map[string]any `json:"filter"`
	Sort                []string       `json:"sort"`
	Page                int            `json:"page"`
	Size                int            `json:"size"`
	Start               int            `json:"start"`
	WatchListOnly       bool           `json:"watchListOnly"`
	FreeFormSearch      bool           `json:"freeFormSearch"`
	HideImages          bool           `json:"hideImages"`
	DefaultSort         bool           `json:"defaultSort"`
	SpecificRowProvided bool           `json:"specificRowProvided"`
	DisplayName         string         `json:"displayName"`
	SearchName          string         `json:"searchName"`
	BackURL             string         `json:"backUrl"`
	IncludeTagByField   map[string]any `json:"includeTagByField"`
	RawParams           map[string]any `json:"rawParams"`
}

// lot is one result object in the API's abbreviated wire schema.
type lot struct {
	LotNumber       json.Number `json:"ln"`
	Description     string      `json:"ld"`
	MakeModel       string      `json:"mmod"`
	OdometerReading float64     `json:"orr"`
	OdometerBrand   string      `json:"ord"`
	ACV             float64     `json:"la"`
	RepairCost      float64     `json:"rc"`
	Damage          string      `json:"dd"`
	SecondaryDamage string      `json:"sdd"`
	TitleDoc        string      `json:"td"`
	TitleGroup      string      `json:"tgd"`
	YardName        string      `json:"yn"`
	HighBid         float64     `json:"hb"`
	AuctionDate     int64       `json:"ad"`
	VIN             string      `json:"fv"`
	ThumbURL        string      `json:"tims"`
	Engine          string      `json:"egn"`
	Condition       string      `json:"lcd"`
	HasKeys         string      `json:"hk"`
	BuyNowPrice     float64     `json:"bnp"`
}

type searchResponse struct {
	ReturnCode     int    `json:"returnCode"`
	ReturnCodeDesc string `json:"returnCodeDesc"`
	Data           struct {
		Results struct {
			Content       []lot `json:"content"`
			TotalElements int   `json:"totalElements"`
		} `json:"results"`
	} `json:"data"`
}

func (s *Scraper) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	result := types.ScrapeResult{Source: domain.SourceCopart}

	origin := strings.TrimRight(s.cfg.BaseURL, "/")
	if err := s.bootstrapSession(ctx, origin); err != nil {
		return result, fmt.Errorf("copart session bootstrap: %w", err)
	}

	endpoint := origin + "/public/lots/search-results"
	model := strings.ToUpper(strings.TrimSpace(s.cfg.Model))

	for page := 0; page < maxPages; page++ {
		sr, err := s.fetchPage(ctx, endpoint, origin, page)
		if err != nil {
			// a failed page truncates this source's output, nothing more
			log.Printf("[copart] page=%d err=%v (stopping, keeping %d listings)",
				page, err, len(result.Listings))
			return result, nil
		}
		if sr.ReturnCode != 1 {
			log.Printf("[copart] api returnCode=%d desc=%q", sr.ReturnCode, sr.ReturnCodeDesc)
			break
		}

		content := sr.Data.Results.Content
		if len(content) == 0 {
			break
		}

		for _, l := range content {
			if model != "" &&
				!strings.Contains(strings.ToUpper(l.MakeModel), model) &&
				!strings.Contains(strings.ToUpper(l.Description), model) {
				continue
			}
			if strings.TrimSpace(l.Description) == "" {
				continue
			}
			result.Listings = append(result.Listings, normalize.Copart(s.toRecord(origin, l)))
		}

		total := sr.Data.Results.TotalElements
		if len(content) < pageSize || (page+1)*pageSize >= total {
			break
		}
	}

	return result, nil
}

func (s *Scraper) bootstrapSession(ctx context.Context, origin string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", browserUA)

	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, origin); err != nil {
			return err
		}
	}

	res, err := s.hc.Do(req)
	if err != nil {
		return err
	}
	// body content is irrelevant, only the Set-Cookie headers matter
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	return res.Body.Close()
}

func (s *Scraper) fetchPage(ctx context.Context, endpoint, origin string, page int) (*searchResponse, error) {
	payload := searchRequest{
		Query:             []string{s.cfg.Query},
		Filter:            map[string]any{},
		Sort:              []string{"auction_date_type desc", "auction_date_utc asc"},
		Page:              page,
		Size:              pageSize,
		Start:             page * pageSize,
		FreeFormSearch:    true,
		IncludeTagByField: map[string]any{},
		RawParams:         map[string]any{},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/lotSearchResults")

	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, endpoint); err != nil {
			return nil, err
		}
	}

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post search page %d: %w", page, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("search page %d status %d", page, res.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search page %d: %w", page, err)
	}
	return &sr, nil
}

func (s *Scraper) toRecord(origin string, l lot) normalize.CopartRecord {
	link := ""
	if ln := l.LotNumber.String(); ln != "" {
		// the lot page URL is the listing's identity across the catalog
		link = origin + "/lot/" + ln
	}
	return normalize.CopartRecord{
		LotNumber:       l.LotNumber.String(),
		Description:     l.Description,
		OdometerReading: l.OdometerReading,
		OdometerBrand:   l.OdometerBrand,
		ACV:             l.ACV,
		RepairCost:      l.RepairCost,
		HighBid:         l.HighBid,
		BuyNowPrice:     l.BuyNowPrice,
		Damage:          l.Damage,
		SecondaryDamage: l.SecondaryDamage,
		TitleDoc:        l.TitleDoc,
		TitleGroup:      l.TitleGroup,
		YardName:        l.YardName,
		AuctionDateMS:   l.AuctionDate,
		VIN:             l.VIN,
		Engine:          l.Engine,
		Condition:       l.Condition,
		HasKeys:         l.HasKeys,
		ImageURL:        l.ThumbURL,
		Link:            link,
	}
}
