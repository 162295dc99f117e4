package scrape

import (
	"errors"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrRunInProgress means another ingestion run holds the data-dir lock.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// acquireRunLock takes the cross-run exclusion lock. Two overlapping runs
// would both read the same starting catalog and the loser's appends would
// vanish, so the whole run is serialized through a lock file next to the
// catalog. This also covers a CLI run racing an HTTP-triggered one.
func acquireRunLock(dataDir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dataDir, "listings.json.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return lock, nil
}
