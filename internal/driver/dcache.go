package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"mirlean/internal/emit"
	"mirlean/internal/mir"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores successful translations by definition key.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is one cached translation.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Name string
	Kind uint8 // mir.DefKind
	Text string

	// Local dependencies and their content hashes at translation time
	Deps      []string
	DepHashes []Digest
	CrateDeps []string
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt opens a cache rooted at dir, creating it when needed.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "defs", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload from the disk cache.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

func itemToDiskPayload(item emit.Item, h *crateHashes) *DiskPayload {
	return &DiskPayload{
		Schema:    diskCacheSchemaVersion,
		Name:      item.Name,
		Kind:      uint8(item.Kind),
		Text:      item.Text,
		Deps:      item.Deps,
		DepHashes: h.depHashes(item.Deps),
		CrateDeps: item.CrateDeps,
	}
}

// diskPayloadToItem restores a cached item, or reports false when the
// payload is stale: a different schema or a dependency whose content changed.
func diskPayloadToItem(payload *DiskPayload, h *crateHashes) (emit.Item, bool) {
	if payload == nil || payload.Schema != diskCacheSchemaVersion || len(payload.Deps) != len(payload.DepHashes) {
		return emit.Item{}, false
	}
	if !slices.Equal(payload.DepHashes, h.depHashes(payload.Deps)) {
		return emit.Item{}, false
	}
	return emit.Item{
		Name:      payload.Name,
		Kind:      mir.DefKind(payload.Kind),
		Text:      payload.Text,
		Deps:      payload.Deps,
		CrateDeps: payload.CrateDeps,
	}, true
}
