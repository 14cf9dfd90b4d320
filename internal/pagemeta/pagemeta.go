// Package pagemeta recovers coordinates from the HTML of a Google Maps page when the URL carries none.
package pagemeta

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/UnknownOlympus/waypoint/internal/fetch"
	"github.com/UnknownOlympus/waypoint/internal/mapsurl"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/internal/retry"
)

const (
	// imageSelectors point at static map previews which carry center=<lat>,<lon>.
	imageSelectors = "meta[property='og:image'], meta[itemprop='image'], meta[name='twitter:image']"
	// urlSelectors point at canonical page URLs which may carry @<lat>,<lon>.
	urlSelectors = "link[rel='canonical'], meta[property='og:url']"
)

// Reader downloads a page and looks for coordinates in its metadata.
type Reader struct {
	client   fetch.HTTPClient
	retryCfg retry.Config
	log      *slog.Logger
}

// NewReader creates a new page metadata reader.
func NewReader(client fetch.HTTPClient, retryCfg retry.Config, log *slog.Logger) *Reader {
	return &Reader{client: client, retryCfg: retryCfg, log: log}
}

// Coordinates fetches pageURL and extracts coordinates from its metadata.
// It returns mapsurl.ErrNoCoordinates when the page carries none.
func (r *Reader) Coordinates(ctx context.Context, pageURL string) (models.Coordinates, error) {
	body, err := fetch.GetPage(ctx, r.client, r.retryCfg, pageURL)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to fetch page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	coords, err := FromDocument(doc)
	if err != nil {
		return models.Coordinates{}, err
	}
	r.log.DebugContext(ctx, "Coordinates found in page metadata", "url", pageURL,
		"lat", coords.Latitude, "lon", coords.Longitude)

	return coords, nil
}

// FromDocument looks for coordinates in static map previews and canonical URLs of doc.
func FromDocument(doc *goquery.Document) (models.Coordinates, error) {
	var candidates []string

	doc.Find(imageSelectors).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			candidates = append(candidates, content)
		}
	})

	for _, candidate := range candidates {
		if coords, ok := fromStaticMap(candidate); ok {
			return coords, nil
		}
	}

	var found *models.Coordinates
	doc.Find(urlSelectors).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		value, ok := s.Attr("href")
		if !ok {
			value, ok = s.Attr("content")
		}
		if !ok {
			return true
		}
		coords, err := mapsurl.ExtractCoordinates(value)
		if err != nil {
			return true
		}
		found = &coords
		return false
	})
	if found != nil {
		return *found, nil
	}

	return models.Coordinates{}, mapsurl.ErrNoCoordinates
}

// fromStaticMap reads center= or the first markers= value of a static map URL.
func fromStaticMap(rawURL string) (models.Coordinates, bool) {
	parsed, err := url.Parse(strings.ReplaceAll(rawURL, "&amp;", "&"))
	if err != nil {
		return models.Coordinates{}, false
	}

	query := parsed.Query()
	for _, key := range []string{"center", "markers"} {
		for _, value := range query[key] {
			// markers may carry style prefixes separated by "|", the location is last.
			parts := strings.Split(value, "|")
			pair := parts[len(parts)-1]
			coords, errPair := mapsurl.ParsePair(pair)
			if errPair == nil {
				return coords, true
			}
		}
	}

	return models.Coordinates{}, false
}
