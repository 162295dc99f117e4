package httpapi

import "sync"

type ScrapeStatus struct {
	LastRunAt string `json:"last_run_at"`
	LastOkAt  string `json:"last_ok_at"`
	LastError string `json:"last_error"`
	LastAdded int    `json:"last_added"`
	Running   bool   `json:"running"`
}

// StatusHolder shares one ScrapeStatus between the HTTP trigger and the
// poller. Update runs its whole read-modify-write under the lock, so
// neither side can clobber the other's fields.
type StatusHolder struct {
	mu sync.Mutex
	st ScrapeStatus
}

func (h *StatusHolder) Get() ScrapeStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.st
}

func (h *StatusHolder) Set(st ScrapeStatus) {
	h.mu.Lock()
	h.st = st
	h.mu.Unlock()
}

func (h *StatusHolder) Update(fn func(*ScrapeStatus)) {
	h.mu.Lock()
	fn(&h.st)
	h.mu.Unlock()
}
