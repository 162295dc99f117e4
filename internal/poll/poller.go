// Package poll drives scheduled ingestion runs. The HTTP trigger and the
// poller share one status value and one run entrypoint, so a scheduled
// run and a manual one never stack.
package poll

import (
	"context"
	"database/sql"
	"log"
	"sync/atomic"
	"time"

	"lotwatch-engine/internal/config"
	"lotwatch-engine/internal/events"
	"lotwatch-engine/internal/httpapi"
	"lotwatch-engine/internal/scrape"
	"lotwatch-engine/internal/store"
)

func StartPoller(db *sql.DB, cfgVal *atomic.Value, scrapeStatus *httpapi.StatusHolder, hub *events.Hub,
	runScrape func(cfg config.Config, publish func(string)) (scrape.Summary, error)) {
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()

		var lastRun time.Time
		for range t.C {
			cfgAny := cfgVal.Load()
			if cfgAny == nil {
				continue
			}
			cfg := cfgAny.(config.Config)

			if !cfg.Polling.Enabled || cfg.App.ReadOnly {
				continue
			}
			if time.Since(lastRun) < time.Duration(cfg.Polling.IntervalMinutes)*time.Minute {
				continue
			}

			// skip quietly if an HTTP-triggered run is still going
			started := false
			scrapeStatus.Update(func(st *httpapi.ScrapeStatus) {
				if st.Running {
					return
				}
				st.Running = true
				st.LastRunAt = time.Now().Format(time.RFC3339)
				started = true
			})
			if !started {
				continue
			}
			lastRun = time.Now()

			sum, err := runScrape(cfg, hub.Publish)

			scrapeStatus.Update(func(st *httpapi.ScrapeStatus) {
				st.Running = false
				st.LastAdded = sum.Added
				if err != nil {
					st.LastError = err.Error()
				} else {
					st.LastError = ""
					st.LastOkAt = time.Now().Format(time.RFC3339)
				}
			})

			if err != nil {
				log.Printf("[poll] error: %v", err)
			} else {
				log.Printf("[poll] ok added=%d total=%d", sum.Added, sum.Total)
			}

			if db != nil {
				run := store.Run{
					StartedAt:  sum.StartedAt,
					FinishedAt: sum.FinishedAt,
					Added:      sum.Added,
					Total:      sum.Total,
					Sources:    map[string]store.SourceStats{},
				}
				if err != nil {
					run.Error = err.Error()
				}
				for name, sc := range sum.Sources {
					run.Sources[name] = store.SourceStats{Fetched: sc.Fetched, Added: sc.Added, Error: sc.Error}
				}
				if _, rerr := store.RecordRun(context.Background(), db, run); rerr != nil {
					log.Printf("[poll] record run failed: %v", rerr)
				}
			}
		}
	}()
}
