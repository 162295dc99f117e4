package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"lotwatch-engine/internal/domain"
)

// Store persists the full listing catalog as one JSON array file. The file
// is the source of truth across runs: read once at the start of a run,
// overwritten at most once at the end.
type Store struct {
	Path string
}

func NewStore(dataDir string) *Store {
	return &Store{Path: filepath.Join(dataDir, "listings.json")}
}

// Load reads the catalog. A missing file is a normal first run and yields
// an empty catalog; a file that exists but does not parse is an error.
// Silently treating a corrupt catalog as empty would re-ingest everything
// and destroy date_found history on the next save.
func (s *Store) Load() ([]domain.Listing, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", s.Path, err)
	}

	var listings []domain.Listing
	if err := json.Unmarshal(b, &listings); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", s.Path, err)
	}
	return listings, nil
}

// Save writes the whole catalog atomically: marshal to a temp file in the
// same directory, then rename over the target. A crash mid-write leaves
// the previous file intact, never a truncated one.
func (s *Store) Save(listings []domain.Listing) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save catalog %s: %w", s.Path, err)
	}
	return nil
}

// IdentityIndex returns the set of links already in the catalog, for O(1)
// duplicate checks during a run.
func IdentityIndex(listings []domain.Listing) map[string]bool {
	idx := make(map[string]bool, len(listings))
	for _, l := range listings {
		if l.Link != "" {
			idx[l.Link] = true
		}
	}
	return idx
}
