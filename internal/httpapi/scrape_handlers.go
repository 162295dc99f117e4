package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"lotwatch-engine/internal/config"
	"lotwatch-engine/internal/events"
	"lotwatch-engine/internal/scrape"
	"lotwatch-engine/internal/store"
)

type ScrapeHandler struct {
	DB           *sql.DB
	CfgVal       *atomic.Value // config.Config
	ScrapeStatus *StatusHolder
	Hub          *events.Hub
	RunScrape    func(cfg config.Config, publish func(string)) (scrape.Summary, error)
}

func (h ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.ScrapeStatus.Get())
}

func (h ScrapeHandler) Run(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	if cfg.App.ReadOnly {
		// Serving-only deployment: the catalog is readable but this host
		// cannot run the scraper.
		writeJSON(w, map[string]any{"ok": false, "msg": "not available here"})
		return
	}

	// check-and-mark under one lock so two triggers can't both start
	started := false
	h.ScrapeStatus.Update(func(st *ScrapeStatus) {
		if st.Running {
			return
		}
		st.Running = true
		st.LastRunAt = time.Now().Format(time.RFC3339)
		st.LastError = ""
		st.LastAdded = 0
		started = true
	})
	if !started {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	go func() {
		sum, err := h.RunScrape(cfg, h.Hub.Publish)

		now := time.Now().Format(time.RFC3339)
		h.ScrapeStatus.Update(func(st *ScrapeStatus) {
			st.Running = false
			st.LastRunAt = now
			st.LastAdded = sum.Added
			if err != nil {
				st.LastError = err.Error()
			} else {
				st.LastError = ""
				st.LastOkAt = now
			}
		})

		if h.DB != nil && !errors.Is(err, scrape.ErrRunInProgress) {
			if _, rerr := store.RecordRun(context.Background(), h.DB, runRow(sum, err)); rerr != nil {
				log.Printf("[httpapi] record run failed: %v", rerr)
			}
		}
	}()

	writeJSON(w, map[string]any{"ok": true})
}

func runRow(sum scrape.Summary, err error) store.Run {
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
	return run
}
