package scrape

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"lotwatch-engine/internal/catalog"
	"lotwatch-engine/internal/config"
	"lotwatch-engine/internal/domain"
)

const iaaiPage = `<!DOCTYPE html>
<html><body>
<div class="table-row table-row-border">
  <a href="/VehicleDetail/41234567~US"><h4>2022 VOLVO XC40 T5</h4></a>
  <img src="https://cdn.example.com/1.jpg">
  <ul class="data-list">
    <li class="data-list__item"><span title="Odometer">31,544 mi</span></li>
    <li class="data-list__item"><span title="Primary Damage">Front End</span></li>
  </ul>
</div>
</body></html>`

func iaaiStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Search" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(iaaiPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// copartStub serves the same single page of lots on every search POST.
func copartStub(t *testing.T, lots []map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1"})
			w.Write([]byte("ok"))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"returnCode": 1,
			"data": map[string]any{
				"results": map[string]any{
					"content":       lots,
					"totalElements": len(lots),
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, iaaiURL, copartURL string) config.Config {
	t.Helper()
	var cfg config.Config
	cfg.App.DataDir = t.TempDir()
	cfg.Search = config.SearchSpec{Make: "Volvo", Model: "XC40"}
	cfg.Sources.IAAI.Enabled = iaaiURL != ""
	cfg.Sources.IAAI.BaseURL = iaaiURL
	cfg.Sources.Copart.Enabled = copartURL != ""
	cfg.Sources.Copart.BaseURL = copartURL
	cfg.HTTP.TimeoutSeconds = 5
	cfg.HTTP.SourceTimeoutSeconds = 10
	cfg.HTTP.RatePerSec = 1000
	cfg.HTTP.Burst = 100
	return cfg
}

func TestRunOnceIngestsBothSources(t *testing.T) {
	iaai := iaaiStub(t)
	copart := copartStub(t, []map[string]any{
		{"ln": 12345, "ld": "2021 VOLVO XC40 T4", "dd": "REAR END", "la": 15000.0},
		{"ln": 99999, "ld": "2020 BMW X3", "dd": "FRONT END", "la": 9000.0},
	})

	cfg := testConfig(t, iaai.URL, copart.URL)
	cat := catalog.NewStore(cfg.App.DataDir)

	var published []string
	sum, err := RunOnce(cat, cfg, func(evt string) { published = append(published, evt) })
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	// one IAAI card plus one model-matching Copart lot
	if sum.Added != 2 {
		t.Fatalf("added = %d, want 2", sum.Added)
	}
	if sum.Total != 2 {
		t.Errorf("total = %d", sum.Total)
	}
	if sum.Sources["iaai"].Added != 1 || sum.Sources["copart"].Added != 1 {
		t.Errorf("per-source counts = %+v", sum.Sources)
	}

	stored, err := cat.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("catalog has %d listings", len(stored))
	}
	for _, l := range stored {
		if l.DateFound == "" {
			t.Errorf("listing %q missing date_found", l.Link)
		}
		if l.Link == "" {
			t.Errorf("listing %q stored without link", l.Name)
		}
	}

	var sawStart, sawAdd, sawFinish bool
	for _, evt := range published {
		switch {
		case strings.Contains(evt, `"scan_started"`):
			sawStart = true
		case strings.Contains(evt, `"listing_added"`):
			sawAdd = true
		case strings.Contains(evt, `"scan_finished"`):
			sawFinish = true
		}
	}
	if !sawStart || !sawAdd || !sawFinish {
		t.Errorf("events missing: start=%v add=%v finish=%v", sawStart, sawAdd, sawFinish)
	}
}

func TestRunOnceIdempotent(t *testing.T) {
	iaai := iaaiStub(t)
	copart := copartStub(t, []map[string]any{
		{"ln": 12345, "ld": "2021 VOLVO XC40 T4", "dd": "REAR END"},
	})

	cfg := testConfig(t, iaai.URL, copart.URL)
	cat := catalog.NewStore(cfg.App.DataDir)

	if _, err := RunOnce(cat, cfg, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, err := os.ReadFile(cat.Path)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := RunOnce(cat, cfg, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.Added != 0 {
		t.Errorf("second run added = %d, want 0", sum.Added)
	}

	after, err := os.ReadFile(cat.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("catalog file changed on a run with no new listings")
	}
}

func TestRunOnceSurvivesDeadSource(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer dead.Close()
	copart := copartStub(t, []map[string]any{
		{"ln": 12345, "ld": "2021 VOLVO XC40 T4", "dd": "REAR END"},
	})

	cfg := testConfig(t, dead.URL, copart.URL)
	cat := catalog.NewStore(cfg.App.DataDir)

	sum, err := RunOnce(cat, cfg, nil)
	if err != nil {
		t.Fatalf("RunOnce must not fail on a single broken source: %v", err)
	}
	if sum.Added != 1 {
		t.Errorf("added = %d, want the healthy source's listing", sum.Added)
	}
	if sum.Sources["iaai"].Error == "" {
		t.Error("failed source should carry its error in the summary")
	}
}

func TestRunOnceRefusedWhileLocked(t *testing.T) {
	cfg := testConfig(t, "", "")
	lock := flock.New(filepath.Join(cfg.App.DataDir, "listings.json.lock"))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	cat := catalog.NewStore(cfg.App.DataDir)
	_, err = RunOnce(cat, cfg, nil)
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("err = %v, want ErrRunInProgress", err)
	}
}

func TestRunOnceFailsOnMalformedCatalog(t *testing.T) {
	cfg := testConfig(t, "", "")
	cat := catalog.NewStore(cfg.App.DataDir)
	if err := os.WriteFile(cat.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := RunOnce(cat, cfg, nil); err == nil {
		t.Fatal("expected fatal error on malformed catalog")
	}
}

func TestAcceptDedupsWithinRun(t *testing.T) {
	index := map[string]bool{"https://x/old": true}
	in := []domain.Listing{
		{Source: domain.SourceIAAI, Name: "old", Link: "https://x/old"},
		{Source: domain.SourceIAAI, Name: "new", Link: "https://x/new"},
		{Source: domain.SourceIAAI, Name: "dupe", Link: "https://x/new"},
		{Source: domain.SourceIAAI, Name: "nolink", Link: ""},
	}

	got := Accept(index, in, "2026-08-30 12:00")
	if len(got) != 1 {
		t.Fatalf("accepted %d, want 1", len(got))
	}
	if got[0].Name != "new" || got[0].DateFound != "2026-08-30 12:00" {
		t.Errorf("accepted = %+v", got[0])
	}
	if !index["https://x/new"] {
		t.Error("accepted link must join the index")
	}
}
