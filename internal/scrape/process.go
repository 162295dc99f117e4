package scrape

import (
	"log"

	"lotwatch-engine/internal/domain"
)

// Accept runs the identity filter over normalized listings in emission
// order. A listing with no link cannot be identified and is dropped; a
// link already in the index is a duplicate (either from a prior run or
// from earlier in this one) and is dropped silently. Survivors get their
// date_found stamped and their link added to the index, so a second
// occurrence later in the same run is suppressed too.
func Accept(index map[string]bool, in []domain.Listing, foundAt string) []domain.Listing {
	var accepted []domain.Listing
	for _, l := range in {
		if l.Link == "" {
			log.Printf("[%s] dropped listing without link name=%q", l.Source, l.Name)
			continue
		}
		if index[l.Link] {
			continue
		}
		index[l.Link] = true
		l.DateFound = foundAt
		accepted = append(accepted, l)
	}
	return accepted
}
