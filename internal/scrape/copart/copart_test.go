package copart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubPage struct {
	count int // lots on this page
}

// newStub serves a copart-shaped API: GET / hands out a session cookie,
// POST /public/lots/search-results pages through the given page sizes.
func newStub(t *testing.T, pages []stubPage, total int) (*httptest.Server, *int) {
	t.Helper()
	postCount := new(int)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "stub"})
	})
	mux.HandleFunc("/public/lots/search-results", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		if c, err := r.Cookie("session"); err != nil || c.Value != "stub" {
			http.Error(w, "no session", http.StatusForbidden)
			return
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*postCount++

		page := req.Page
		if page >= len(pages) {
			t.Errorf("unexpected request for page %d", page)
			fmt.Fprint(w, `{"returnCode":1,"data":{"results":{"content":[],"totalElements":0}}}`)
			return
		}

		content := make([]map[string]any, 0, pages[page].count)
		for i := 0; i < pages[page].count; i++ {
			content = append(content, map[string]any{
				"ln":   page*1000 + i,
				"ld":   "2023 VOLVO XC40 PLUS",
				"mmod": "XC40",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"returnCode": 1,
			"data": map[string]any{
				"results": map[string]any{
					"content":       content,
					"totalElements": total,
				},
			},
		})
	})

	return httptest.NewServer(mux), postCount
}

func TestPaginationStopsOnShortPage(t *testing.T) {
	srv, postCount := newStub(t, []stubPage{{100}, {100}, {37}}, 237)
	defer srv.Close()

	s := New(Config{Query: "volvo xc40", Model: "xc40", BaseURL: srv.URL}, nil)
	res, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if *postCount != 3 {
		t.Errorf("expected exactly 3 page requests, got %d", *postCount)
	}
	if len(res.Listings) != 237 {
		t.Errorf("expected 237 listings, got %d", len(res.Listings))
	}
}

func TestPaginationStopsAtTotalElements(t *testing.T) {
	// exactly 200 results: second page is full-size, but (1+1)*100 >= 200
	srv, postCount := newStub(t, []stubPage{{100}, {100}}, 200)
	defer srv.Close()

	s := New(Config{Query: "volvo xc40", Model: "xc40", BaseURL: srv.URL}, nil)
	if _, err := s.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if *postCount != 2 {
		t.Errorf("expected 2 page requests, got %d", *postCount)
	}
}

func TestModelFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/public/lots/search-results", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"returnCode":1,"data":{"results":{"content":[
			{"ln":1,"ld":"2023 VOLVO XC40 PLUS","mmod":"XC40"},
			{"ln":2,"ld":"2021 VOLVO XC60 INSCRIPTION","mmod":"XC60"},
			{"ln":3,"ld":"2020 volvo xc40 momentum","mmod":""}
		],"totalElements":3}}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(Config{Query: "volvo xc40", Model: "xc40", BaseURL: srv.URL}, nil)
	res, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(res.Listings) != 2 {
		t.Fatalf("expected 2 matching listings, got %d", len(res.Listings))
	}
	if res.Listings[0].Link != srv.URL+"/lot/1" || res.Listings[1].Link != srv.URL+"/lot/3" {
		t.Errorf("links = %q, %q", res.Listings[0].Link, res.Listings[1].Link)
	}
}

func TestAPIErrorTruncatesQuietly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/public/lots/search-results", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"returnCode":0,"returnCodeDesc":"maintenance"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(Config{Query: "volvo xc40", Model: "xc40", BaseURL: srv.URL}, nil)
	res, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch should not fail on api error: %v", err)
	}
	if len(res.Listings) != 0 {
		t.Errorf("expected no listings, got %d", len(res.Listings))
	}
}

func TestFullLotMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/public/lots/search-results", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"returnCode":1,"data":{"results":{"content":[{
			"ln":81234567,
			"ld":"2025 VOLVO XC40 CORE",
			"mmod":"XC40",
			"orr":12345,
			"ord":"Actual",
			"la":31200,
			"rc":0,
			"hb":8250,
			"bnp":0,
			"dd":"REAR END",
			"td":"CERT OF TITLE",
			"yn":"NJ - SOMERVILLE",
			"fv":"YV4******654321",
			"lcd":"ENHANCED VEHICLES",
			"hk":"YES",
			"tims":"https://cdn.example.com/81234567.jpg"
		}],"totalElements":1}}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(Config{Query: "volvo xc40", Model: "xc40", BaseURL: srv.URL}, nil)
	res, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(res.Listings))
	}

	l := res.Listings[0]
	if l.LotNumber != "81234567" {
		t.Errorf("lot_number = %q", l.LotNumber)
	}
	if l.Link != srv.URL+"/lot/81234567" {
		t.Errorf("link = %q", l.Link)
	}
	if l.EstValue != "$31,200" || l.Bid != "$8,250" {
		t.Errorf("est_value/bid = %q / %q", l.EstValue, l.Bid)
	}
	if l.RepairCost != "" || l.BuyNow != "" {
		t.Errorf("zero prices must stay empty: repair=%q buy_now=%q", l.RepairCost, l.BuyNow)
	}
	if l.Odometer != "12,345 (Actual)" {
		t.Errorf("odometer = %q", l.Odometer)
	}
	if l.DriveStatus != "Enhanced" {
		t.Errorf("drive_status = %q", l.DriveStatus)
	}
}
