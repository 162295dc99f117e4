package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lotwatch-engine/internal/catalog"
	"lotwatch-engine/internal/config"
	"lotwatch-engine/internal/domain"
	"lotwatch-engine/internal/events"
	"lotwatch-engine/internal/rates"
	"lotwatch-engine/internal/scrape"
)

func stubRates(t *testing.T, mid float64) *rates.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rates": []map[string]any{{"mid": mid}},
		})
	}))
	t.Cleanup(srv.Close)
	return rates.New(srv.URL)
}

func TestListingsConvertedOnRead(t *testing.T) {
	cat := catalog.NewStore(t.TempDir())
	err := cat.Save([]domain.Listing{
		{
			Source:   domain.SourceIAAI,
			Name:     "2019 VOLVO XC60",
			ACV:      "$10,000 USD",
			Odometer: "100 mi (Actual)",
			Link:     "https://www.iaai.com/VehicleDetail/1",
		},
		{
			Source: domain.SourceCopart,
			Name:   "2020 VOLVO XC60",
			Bid:    "$2,000",
			Link:   "https://www.copart.com/lot/2",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	h := ListingsHandler{Catalog: cat, Rates: stubRates(t, 4.0)}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/listings", nil))

	var views []ListingView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len(views) = %d", len(views))
	}
	if views[0].PricePLN != "40,000 zł" {
		t.Errorf("PricePLN = %q", views[0].PricePLN)
	}
	if views[0].OdometerKM != "161 km (Actual)" {
		t.Errorf("OdometerKM = %q", views[0].OdometerKM)
	}
	if views[1].BidPLN != "8,000 zł" {
		t.Errorf("BidPLN = %q", views[1].BidPLN)
	}
	if views[1].PricePLN != "" {
		t.Errorf("PricePLN without a value = %q, want empty", views[1].PricePLN)
	}
}

func TestListingsSourceFilter(t *testing.T) {
	cat := catalog.NewStore(t.TempDir())
	err := cat.Save([]domain.Listing{
		{Source: domain.SourceIAAI, Name: "a", Link: "https://x/1"},
		{Source: domain.SourceCopart, Name: "b", Link: "https://x/2"},
	})
	if err != nil {
		t.Fatal(err)
	}

	h := ListingsHandler{Catalog: cat, Rates: stubRates(t, 4.0)}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/listings?source=copart", nil))

	var views []ListingView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].Source != domain.SourceCopart {
		t.Errorf("filter returned %+v", views)
	}
}

func scrapeHandler(cfg config.Config, run func(config.Config, func(string)) (scrape.Summary, error)) ScrapeHandler {
	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	return ScrapeHandler{
		CfgVal:       &cfgVal,
		ScrapeStatus: &StatusHolder{},
		Hub:          events.NewHub(),
		RunScrape:    run,
	}
}

func TestScrapeRunReadOnlyRefuses(t *testing.T) {
	var cfg config.Config
	cfg.App.ReadOnly = true

	h := scrapeHandler(cfg, func(config.Config, func(string)) (scrape.Summary, error) {
		t.Error("RunScrape must not be called in read-only mode")
		return scrape.Summary{}, nil
	})

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodPost, "/api/scrape/run", nil))

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["ok"] != false || resp["msg"] != "not available here" {
		t.Errorf("response = %v", resp)
	}
}

func TestScrapeRunAlreadyRunning(t *testing.T) {
	h := scrapeHandler(config.Config{}, func(config.Config, func(string)) (scrape.Summary, error) {
		return scrape.Summary{}, nil
	})
	h.ScrapeStatus.Set(ScrapeStatus{Running: true})

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodPost, "/api/scrape/run", nil))

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["ok"] != false || resp["msg"] != "already running" {
		t.Errorf("response = %v", resp)
	}
}

func TestScrapeRunUpdatesStatus(t *testing.T) {
	done := make(chan struct{})
	h := scrapeHandler(config.Config{}, func(config.Config, func(string)) (scrape.Summary, error) {
		defer close(done)
		return scrape.Summary{Added: 3}, nil
	})

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodPost, "/api/scrape/run", nil))

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["ok"] != true {
		t.Fatalf("trigger response = %v", resp)
	}

	<-done
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := h.ScrapeStatus.Get()
		if !st.Running {
			if st.LastAdded != 3 {
				t.Errorf("LastAdded = %d, want 3", st.LastAdded)
			}
			if st.LastOkAt == "" || st.LastError != "" {
				t.Errorf("status after ok run = %+v", st)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("status never left running state")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStatusHolderConcurrentUpdates(t *testing.T) {
	var holder StatusHolder
	var wg sync.WaitGroup

	// each update must land; a torn read-modify-write would drop some
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			holder.Update(func(st *ScrapeStatus) {
				st.LastAdded++
			})
		}()
	}
	wg.Wait()

	if got := holder.Get().LastAdded; got != 100 {
		t.Errorf("LastAdded = %d after 100 updates, want 100", got)
	}
}

func TestMethodMuxRejectsWrongMethod(t *testing.T) {
	mux := methodMux(map[string]http.HandlerFunc{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) {},
	})
	rec := httptest.NewRecorder()
	mux(rec, httptest.NewRequest(http.MethodPost, "/api/listings", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}
