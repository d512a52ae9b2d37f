package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "fillahole:v1:"

// CacheKey builds a versioned key for an entry in a namespace (verdict, geocode)
func CacheKey(namespace, id string) string {
	return keyPrefix + namespace + ":" + id
}

// New builds the cache described by config. Without a directory only the
// memory layer is used; a disabled cache returns nil.
func New(config model.CacheConfig) Cache {
	if !config.Enabled {
		return nil
	}
	if config.Dir == "" {
		return NewMemoryCache(config.MemoryTTL)
	}
	return NewLayeredCache(config.MemoryTTL, config.Dir, config.DiskTTL)
}

// fileName maps an arbitrary key to a safe file name
func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
