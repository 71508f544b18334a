// Package archive is CLIFp's data-pack handling: ZIP extraction into a
// cache directory, sha256 fingerprinting of extracted packs against
// the archive's recorded hash, and invalidation of that fingerprint
// cache when the files move underneath CLIFp. Grounded on internal/ingest.recursivelyWalkFileSystem (filepath.WalkDir
// file-state scanning) generalized from "new file discovery" to
// "tracked pack integrity", spec.md §3's Fingerprints state and §4.3's
// enqueueDataPackTasks.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Fingerprint records a single tracked data pack: its identity in the
// archive database, the expected content hash, where it lives on disk,
// and whether CLIFp has verified it is present and mounted.
type Fingerprint struct {
	GameDataID uuid.UUID
	SHA256   string
	PathOnDisk string
	Mounted  bool
}

// SHA256File computes the sha256 digest of the file at path, streaming
// it rather than reading the whole pack into memory - data packs can
// run into the gigabytes, so this follows the preference
// (see pkg/docker.go's streamed log readers) for io.Copy-based
// streaming over full-buffer reads.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify reports whether the file at fp.PathOnDisk exists and matches
// fp.SHA256. A missing file is not an error; it simply fails
// verification, signaling the caller (Core's enqueueDataPackTasks)
// that the pack needs a fresh TDownload.
func Verify(fp Fingerprint) (bool, error) {
	if _, err := os.Stat(fp.PathOnDisk); os.IsNotExist(err) {
		return false, nil
	}

	sum, err := SHA256File(fp.PathOnDisk)
	if err != nil {
		return false, err
	}
	return sum == fp.SHA256, nil
}

// Cache is the in-memory fingerprint table Core consults before
// enqueuing a TDownload/TExtract pair, keyed by GameDataID. It is safe
// for concurrent use because the invalidation watcher (watch.go) runs
// on its own goroutine independent of the Kernel's single Driver
// thread.
type Cache struct {
	mu   sync.RWMutex
	entries map[uuid.UUID]Fingerprint
}

// NewCache constructs an empty fingerprint cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uuid.UUID]Fingerprint)}
}

// Put records or replaces a fingerprint.
func (c *Cache) Put(fp Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp.GameDataID] = fp
}

// Get returns the fingerprint for id, if tracked.
func (c *Cache) Get(id uuid.UUID) (Fingerprint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fp, ok := c.entries[id]
	return fp, ok
}

// Invalidate marks id's fingerprint unmounted, forcing the next
// enqueueDataPackTasks pass to re-verify it before reuse. This is what
// the filesystem watcher in watch.go calls when a tracked pack's file
// changes out from under CLIFp.
func (c *Cache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fp, ok := c.entries[id]; ok {
		fp.Mounted = false
		c.entries[id] = fp
	}
}

// SetMounted records that id's pack has been mounted successfully.
func (c *Cache) SetMounted(id uuid.UUID, mounted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fp, ok := c.entries[id]; ok {
		fp.Mounted = mounted
		c.entries[id] = fp
	}
}

// PathOf looks up the on-disk path for a tracked pack, returning an
// empty string if untracked.
func (c *Cache) PathOf(id uuid.UUID) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id].PathOnDisk
}
