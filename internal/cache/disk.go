package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DiskCache keeps entries as JSON files in a directory so they survive restarts
type DiskCache struct {
	dir string
	ttl time.Duration
}

// NewDiskCache creates a new disk cache
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
	}
}

type diskEntry struct {
	Entry
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves an entry from the disk cache
func (c *DiskCache) Get(key string) (Entry, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, false
	}

	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false
	}

	if time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return Entry{}, false
	}

	return entry.Entry, true
}

// Set writes an entry, replacing the previous file atomically
func (c *DiskCache) Set(key string, entry Entry, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(diskEntry{Entry: entry, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	path := c.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename cache file: %w", err)
	}

	return nil
}

// Delete removes an entry from the disk cache
func (c *DiskCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path generates the file path for a cache key
func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, filepath.Base(key)+".cache")
}
