package types

import (
	"context"

	"lotwatch-engine/internal/domain"
)

type ScrapeResult struct {
	Source   domain.Source
	Listings []domain.Listing
}

// Fetcher is one auction source. Fetch returns already-normalized listings;
// the coordinator only dedups, stamps and persists.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (ScrapeResult, error)
}
