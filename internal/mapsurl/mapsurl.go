// Package mapsurl extracts coordinates and place names from Google Maps URLs.
package mapsurl

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

// Common errors for URL parsing.
var (
	ErrNoCoordinates = errors.New("no coordinates found in URL")
	ErrOutOfRange    = errors.New("coordinates out of range")
)

var (
	atPattern    = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),\s*(-?\d+(?:\.\d+)?)`)
	latPattern   = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)`)
	lonPattern   = regexp.MustCompile(`!4d(-?\d+(?:\.\d+)?)`)
	pairPattern  = regexp.MustCompile(`(-?\d+(?:\.\d+)?),\s*(-?\d+(?:\.\d+)?)`)
	barePairName = regexp.MustCompile(`^-?\d+(\.\d+)?,\s*-?\d+(\.\d+)?`)
)

// ExtractCoordinates returns the coordinate pair carried by a Google Maps URL.
//
// Supported formats, in order of priority:
//   - .../@<lat>,<lon>,...
//   - ...!3d<lat>...!4d<lon>...
//   - query parameter q= or query= holding "<lat>,<lon>"
func ExtractCoordinates(rawURL string) (models.Coordinates, error) {
	if m := atPattern.FindStringSubmatch(rawURL); m != nil {
		return parsePair(m[1], m[2])
	}

	mLat := latPattern.FindStringSubmatch(rawURL)
	mLon := lonPattern.FindStringSubmatch(rawURL)
	if mLat != nil && mLon != nil {
		return parsePair(mLat[1], mLon[1])
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %w", ErrNoCoordinates, err)
	}

	params := parsed.Query()
	candidates := params["q"]
	if len(candidates) == 0 {
		candidates = params["query"]
	}
	for _, value := range candidates {
		if coords, errPair := ParsePair(value); !errors.Is(errPair, ErrNoCoordinates) {
			return coords, errPair
		}
	}

	return models.Coordinates{}, ErrNoCoordinates
}

// ParsePair reads the first "<lat>,<lon>" pair found in s.
func ParsePair(s string) (models.Coordinates, error) {
	m := pairPattern.FindStringSubmatch(s)
	if m == nil {
		return models.Coordinates{}, ErrNoCoordinates
	}

	return parsePair(m[1], m[2])
}

func parsePair(rawLat, rawLon string) (models.Coordinates, error) {
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid latitude %q: %w", rawLat, err)
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid longitude %q: %w", rawLon, err)
	}

	coords := models.Coordinates{Latitude: lat, Longitude: lon}
	if !coords.Valid() {
		return models.Coordinates{}, fmt.Errorf("%w: %s,%s", ErrOutOfRange, rawLat, rawLon)
	}

	return coords, nil
}

// PlaceName returns the name found after /place/ in the URL path.
// Names that are bare coordinate pairs or look like roads are skipped.
func PlaceName(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	var parts []string
	for _, p := range strings.Split(parsed.EscapedPath(), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	for i, part := range parts {
		if part != "place" || i+1 >= len(parts) {
			continue
		}

		name, errUnescape := url.PathUnescape(parts[i+1])
		if errUnescape != nil {
			name = parts[i+1]
		}
		name = CleanText(name)
		if name == "" || barePairName.MatchString(name) || LooksLikeRoad(name) {
			continue
		}

		return name, true
	}

	return "", false
}
