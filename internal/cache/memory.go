package cache

import (
	"context"
	"sync"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

// MemoryCache keeps places for the lifetime of the process.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]models.Place
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]models.Place)}
}

// Get returns the place stored under key. A missing key is reported as (nil, false, nil).
func (mc *MemoryCache) Get(_ context.Context, key string) (*models.Place, bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	place, ok := mc.items[key]
	if !ok {
		return nil, false, nil
	}
	return &place, true, nil
}

// Set stores a copy of place under key. A nil place is ignored.
func (mc *MemoryCache) Set(_ context.Context, key string, place *models.Place) error {
	if place == nil {
		return nil
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.items[key] = *place

	return nil
}

// Len reports the number of cached places.
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.items)
}
