package archive

import (
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rjeczalik/notify"
)

// Watcher invalidates a Cache's fingerprints when their backing files
// change on disk outside of CLIFp's own extraction flow (an install
// tool reinstalling a pack, a user deleting a pack manually), so a
// stale "mounted" record can never be reused. Grounded on internal/ingest polling model (filesystem as source of
// truth, re-synced on change) but event-driven via rjeczalik/notify
// rather than a timer-based rescan.
type Watcher struct {
	cache  *Cache
	events chan notify.EventInfo
	byPath map[string]uuid.UUID
	stop  chan struct{}
}

// NewWatcher constructs a Watcher bound to cache. Call Track for each
// fingerprint that should be monitored, then Start.
func NewWatcher(cache *Cache) *Watcher {
	return &Watcher{
		cache: cache,
		events: make(chan notify.EventInfo, 16),
		byPath: make(map[string]uuid.UUID),
		stop:  make(chan struct{}),
	}
}

// Track registers path as the on-disk location backing gameDataID's
// fingerprint, so future filesystem events against it invalidate the
// cache entry.
func (w *Watcher) Track(gameDataID uuid.UUID, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.byPath[abs] = gameDataID
	return notify.Watch(abs, w.events, notify.Write, notify.Remove, notify.Rename)
}

// Start begins processing filesystem events on its own goroutine until
// Stop is called.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case ev := <-w.events:
				if id, ok := w.byPath[ev.Path()]; ok {
					w.cache.Invalidate(id)
				}
			case <-w.stop:
				return
			}
		}
	}()
}

// Stop halts event processing and releases all notify subscriptions.
func (w *Watcher) Stop() {
	notify.Stop(w.events)
	close(w.stop)
}
