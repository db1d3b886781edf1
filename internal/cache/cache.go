// Package cache keeps the last response of every fetched location so that
// conditional requests can reuse it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Entry is a cached response body and its validators
type Entry struct {
	Body         []byte    `json:"body"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
}

// Validated reports whether the entry can back a conditional request.
func (e Entry) Validated() bool {
	return e.ETag != "" || e.LastModified != ""
}

// Cache defines the interface for caching
type Cache interface {
	Get(key string) (Entry, bool)
	Set(key string, entry Entry, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a location
func CacheKey(location string) string {
	hash := sha256.Sum256([]byte(location))
	return "harvester:v1:" + hex.EncodeToString(hash[:])
}
