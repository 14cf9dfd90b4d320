package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Cache stores reverse geocoded places by key.
type Cache interface {
	Get(ctx context.Context, key string) (*models.Place, bool, error)
	Set(ctx context.Context, key string, place *models.Place) error
}

// CachedProvider serves repeated lookups of the same point from a cache.
type CachedProvider struct {
	next  Provider
	cache Cache
	log   *slog.Logger
	hits  prometheus.Counter
}

// NewCachedProvider wraps next with cache. hits may be nil.
func NewCachedProvider(next Provider, cache Cache, log *slog.Logger, hits prometheus.Counter) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, log: log, hits: hits}
}

// CacheKey rounds coordinates to five decimals, roughly one meter.
func CacheKey(coords models.Coordinates) string {
	return fmt.Sprintf("revgeo:%.5f:%.5f", coords.Latitude, coords.Longitude)
}

// ReverseGeocode returns the cached place when present, otherwise asks the wrapped provider
// and stores a successful answer. Cache failures are logged and never fail the lookup.
func (cp *CachedProvider) ReverseGeocode(ctx context.Context, coords models.Coordinates) (*models.Place, error) {
	key := CacheKey(coords)

	place, ok, err := cp.cache.Get(ctx, key)
	if err != nil {
		cp.log.WarnContext(ctx, "Failed to read reverse geocoding cache", "key", key, "error", err)
	}
	if ok {
		if cp.hits != nil {
			cp.hits.Inc()
		}
		cp.log.DebugContext(ctx, "Reverse geocoding cache hit", "key", key)
		return place, nil
	}

	place, err = cp.next.ReverseGeocode(ctx, coords)
	if err != nil {
		return nil, err
	}

	if err = cp.cache.Set(ctx, key, place); err != nil {
		cp.log.WarnContext(ctx, "Failed to write reverse geocoding cache", "key", key, "error", err)
	}

	return place, nil
}
