// Package cache stores raw extraction payloads so that re-scanning the same
// screen text does not repeat the LLM call.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// keyPrefix is bumped whenever the extraction prompt or payload schema changes.
const keyPrefix = "sepcheck:v1:"

// Cache is the storage contract shared by the memory, disk and layered caches.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for an extraction of text by the given
// provider/model pair. Surrounding whitespace in text does not change the key.
func Key(provider, model, text string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(provider)))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(text)))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
