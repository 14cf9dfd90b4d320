package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/mapsurl"
	"github.com/UnknownOlympus/waypoint/internal/models"
)

const overpassProvider = "overpass"

// resolveName picks the place name for a resolved point.
//
// Order of preference:
//  1. the name carried by the URL, unless it looks like a road;
//  2. the reverse geocoded name, unless it looks like a road. When the geocoder
//     classifies the point as a highway a nearby POI is preferred;
//  3. the nearest POI;
//  4. the reverse geocoded name even if it looks like a road, else PlaceUnavailable.
func (ls *LinkService) resolveName(ctx context.Context, urlName string, coords models.Coordinates) string {
	if urlName != "" && !mapsurl.LooksLikeRoad(urlName) {
		return urlName
	}

	place := ls.reverseGeocode(ctx, coords)
	osmName := ""
	if place != nil {
		osmName = place.Name
	}

	if osmName != "" && !mapsurl.LooksLikeRoad(osmName) {
		if strings.HasPrefix(place.Category, "highway") {
			if poi := ls.nearestPOI(ctx, coords); poi != "" {
				return poi
			}
		}
		return osmName
	}

	if poi := ls.nearestPOI(ctx, coords); poi != "" {
		return poi
	}

	if osmName != "" {
		return osmName
	}
	return models.PlaceUnavailable
}

func (ls *LinkService) reverseGeocode(ctx context.Context, coords models.Coordinates) *models.Place {
	startTime := time.Now()
	place, err := ls.provider.ReverseGeocode(ctx, coords)
	if errors.Is(err, geocoding.ErrProviderDisabled) {
		return nil
	}
	ls.metrics.RequestSeconds.WithLabelValues(ls.providerName).Observe(time.Since(startTime).Seconds())

	if err != nil {
		ls.log.DebugContext(ctx, "Reverse geocoding failed", "provider", ls.providerName, "error", err)
		ls.metrics.ProviderErrors.WithLabelValues(ls.providerName).Inc()
		return nil
	}

	return place
}

func (ls *LinkService) nearestPOI(ctx context.Context, coords models.Coordinates) string {
	if ls.poi == nil {
		return ""
	}

	startTime := time.Now()
	name, err := ls.poi.NearestPOI(ctx, coords, ls.poiRadius)
	ls.metrics.RequestSeconds.WithLabelValues(overpassProvider).Observe(time.Since(startTime).Seconds())

	if err != nil {
		ls.log.DebugContext(ctx, "Nearby POI lookup failed", "error", err)
		ls.metrics.ProviderErrors.WithLabelValues(overpassProvider).Inc()
		return ""
	}

	return name
}
