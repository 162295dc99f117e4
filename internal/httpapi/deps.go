package httpapi

import (
	"database/sql"
	"sync/atomic"

	"lotwatch-engine/internal/catalog"
	"lotwatch-engine/internal/config"
	"lotwatch-engine/internal/events"
	"lotwatch-engine/internal/rates"
	"lotwatch-engine/internal/scrape"
)

type Deps struct {
	DB *sql.DB

	Catalog *catalog.Store
	Rates   *rates.Client
	Hub     *events.Hub

	// Atomic stores
	CfgVal       *atomic.Value // stores config.Config
	ScrapeStatus *StatusHolder

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Ingestion entrypoint (inject for testability)
	RunScrape func(cfg config.Config, publish func(string)) (scrape.Summary, error)
}
