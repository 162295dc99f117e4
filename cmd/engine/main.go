package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	"lotwatch-engine/internal/catalog"
	"lotwatch-engine/internal/config"
	"lotwatch-engine/internal/events"
	"lotwatch-engine/internal/httpapi"
	"lotwatch-engine/internal/poll"
	"lotwatch-engine/internal/rates"
	"lotwatch-engine/internal/scrape"
	"lotwatch-engine/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run one ingestion pass and exit")
	flag.Parse()

	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	dataDir := os.Getenv("LOTWATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config invalid (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	cat := catalog.NewStore(cfg.App.DataDir)
	hub := events.NewHub()
	fx := rates.New(os.Getenv("LOTWATCH_NBP_URL"))

	runScrape := func(cfg config.Config, publish func(string)) (scrape.Summary, error) {
		return scrape.RunOnce(cat, cfg, publish)
	}

	if *once {
		sum, err := runScrape(cfg, nil)
		if err != nil {
			log.Fatalf("ingestion failed: %v", err)
		}
		b, _ := json.MarshalIndent(sum, "", "  ")
		fmt.Println(string(b))
		return
	}

	db, err := store.Open(filepath.Join(cfg.App.DataDir, "lotwatch.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	var scrapeStatus httpapi.StatusHolder

	mux := httpapi.NewMux(httpapi.Deps{
		DB:           db.Pool,
		Catalog:      cat,
		Rates:        fx,
		Hub:          hub,
		CfgVal:       &cfgVal,
		ScrapeStatus: &scrapeStatus,
		UserCfgPath:  userCfgPath,
		LoadCfg:      loadCfg,
		RunScrape:    runScrape,
	})

	poll.StartPoller(db.Pool, &cfgVal, &scrapeStatus, hub, runScrape)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (catalog=%s read_only=%v)", addr, cat.Path, cfg.App.ReadOnly)

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.RequestID,
			httpapi.Recover,
			httpapi.AccessLog,
			httpapi.Cors,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Fatal(srv.Serve(ln))
}
