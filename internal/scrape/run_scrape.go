// Package scrape coordinates one ingestion run: both source adapters are
// fetched behind failure boundaries, results are deduplicated against the
// persisted catalog, and survivors are appended and saved.
package scrape

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"lotwatch-engine/internal/catalog"
	"lotwatch-engine/internal/config"
	"lotwatch-engine/internal/domain"
	"lotwatch-engine/internal/events"
	"lotwatch-engine/internal/scrape/copart"
	"lotwatch-engine/internal/scrape/iaai"
	"lotwatch-engine/internal/scrape/types"
	"lotwatch-engine/internal/scrape/util"
)

// SourceCount is the per-source slice of a run summary. Failed sources
// still appear with zero counts, so partial success is distinguishable
// from total failure.
type SourceCount struct {
	Fetched int    `json:"fetched"`
	Added   int    `json:"added"`
	Error   string `json:"error,omitempty"`
}

type NewListing struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	Link   string `json:"link"`
}

type Summary struct {
	StartedAt  string                 `json:"started_at"`
	FinishedAt string                 `json:"finished_at"`
	Added      int                    `json:"added"`
	Total      int                    `json:"total"`
	Sources    map[string]SourceCount `json:"sources"`
	New        []NewListing           `json:"new,omitempty"`
}

// RunOnce executes one full ingestion run. Adapter failures degrade to
// zero records from that source; a catalog load or save failure is fatal
// and propagates. publish may be nil.
func RunOnce(cat *catalog.Store, cfg config.Config, publish func(string)) (Summary, error) {
	started := time.Now()
	sum := Summary{
		StartedAt: started.Format(time.RFC3339),
		Sources:   map[string]SourceCount{},
	}

	lock, err := acquireRunLock(cfg.App.DataDir)
	if err != nil {
		return sum, err
	}
	defer func() { _ = lock.Unlock() }()

	existing, err := cat.Load()
	if err != nil {
		return sum, fmt.Errorf("load catalog: %w", err)
	}
	index := catalog.IdentityIndex(existing)
	log.Printf("[scrape] catalog loaded listings=%d", len(existing))

	if publish != nil {
		publish(events.MakeEvent("", "scan_started", 1, map[string]any{"known": len(existing)}))
	}

	fetchers := buildFetchers(cfg)

	type outcome struct {
		name string
		res  types.ScrapeResult
		err  error
	}

	var g errgroup.Group
	results := make(chan outcome, len(fetchers))

	for _, f := range fetchers {
		f := f
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.HTTP.SourceTimeoutSeconds)*time.Second)
			defer cancel()

			log.Printf("[%s] running query=%q", f.Name(), cfg.Search.Query())
			res, err := f.Fetch(fctx)
			if err != nil {
				// best effort: one broken source must not cancel its sibling
				log.Printf("[%s] error: %v", f.Name(), err)
			}
			results <- outcome{name: f.Name(), res: res, err: err}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	foundAt := time.Now().Format("2006-01-02 15:04")
	var accepted []domain.Listing

	for out := range results {
		fresh := Accept(index, out.res.Listings, foundAt)
		accepted = append(accepted, fresh...)

		sc := SourceCount{Fetched: len(out.res.Listings), Added: len(fresh)}
		if out.err != nil {
			sc.Error = out.err.Error()
		}
		sum.Sources[out.name] = sc
		log.Printf("[%s] fetched=%d new=%d", out.name, len(out.res.Listings), len(fresh))
	}

	sum.Added = len(accepted)
	sum.Total = len(existing) + len(accepted)

	if len(accepted) > 0 {
		merged := append(existing, accepted...)
		if err := cat.Save(merged); err != nil {
			return sum, fmt.Errorf("save catalog: %w", err)
		}
		for _, l := range accepted {
			sum.New = append(sum.New, NewListing{Source: string(l.Source), Name: l.Name, Link: l.Link})
			if publish != nil {
				publish(events.MakeEvent("", "listing_added", 1,
					map[string]any{"source": l.Source, "name": l.Name, "link": l.Link}))
			}
		}
		log.Printf("[scrape] catalog saved total=%d added=%d", sum.Total, sum.Added)
	} else {
		log.Printf("[scrape] no new listings, catalog untouched total=%d", sum.Total)
	}

	sum.FinishedAt = time.Now().Format(time.RFC3339)
	if publish != nil {
		publish(events.MakeEvent("", "scan_finished", 1,
			map[string]any{"added": sum.Added, "total": sum.Total}))
	}
	return sum, nil
}

func buildFetchers(cfg config.Config) []types.Fetcher {
	limiter := util.NewHostLimiter(cfg.HTTP.RatePerSec, cfg.HTTP.Burst)
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second

	var fetchers []types.Fetcher
	if cfg.Sources.IAAI.Enabled {
		fetchers = append(fetchers, iaai.New(iaai.Config{
			Query:   cfg.Search.Query(),
			BaseURL: cfg.Sources.IAAI.BaseURL,
			Timeout: timeout,
		}, limiter))
	}
	if cfg.Sources.Copart.Enabled {
		fetchers = append(fetchers, copart.New(copart.Config{
			Query:   cfg.Search.Query(),
			Model:   cfg.Search.Model,
			BaseURL: cfg.Sources.Copart.BaseURL,
			Timeout: timeout,
		}, limiter))
	}
	return fetchers
}
