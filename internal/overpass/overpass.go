package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/fetch"
	"github.com/UnknownOlympus/waypoint/internal/mapsurl"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the public Overpass interpreter.
	DefaultURL = "https://overpass-api.de/api/interpreter"
	// DefaultRadius is the search radius around a point, in meters.
	DefaultRadius = 120

	earthRadiusMeters = 6371000.0
)

// ErrNoPOI is returned when no named, non-road element lies within the radius.
var ErrNoPOI = errors.New("no point of interest nearby")

type element struct {
	Type   string            `json:"type"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

type response struct {
	Elements []element `json:"elements"`
}

// Client queries Overpass for named points of interest.
type Client struct {
	client    fetch.HTTPClient
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	log       *slog.Logger
}

// NewClient creates an Overpass client limited to one request per second.
func NewClient(client fetch.HTTPClient, baseURL, userAgent string, log *slog.Logger) *Client {
	return NewClientWithLimiter(client, baseURL, userAgent, rate.NewLimiter(rate.Every(time.Second), 1), log)
}

// NewClientWithLimiter creates an Overpass client paced by limiter. An empty baseURL selects DefaultURL.
func NewClientWithLimiter(
	client fetch.HTTPClient,
	baseURL, userAgent string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{client: client, baseURL: baseURL, userAgent: userAgent, limiter: limiter, log: log}
}

// Query builds the Overpass QL query for named elements around a point.
func Query(coords models.Coordinates, radius float64) string {
	around := fmt.Sprintf("(around:%.0f,%.7f,%.7f)", radius, coords.Latitude, coords.Longitude)
	return fmt.Sprintf("[out:json][timeout:25];(node%[1]s[name];way%[1]s[name];relation%[1]s[name];);out center tags;",
		around)
}

// NearestPOI returns the cleaned name of the closest named element within radius meters.
// Elements tagged as highways or named like roads are skipped.
func (c *Client) NearestPOI(ctx context.Context, coords models.Coordinates, radius float64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit exceeded: %w", err)
	}

	form := url.Values{"data": {Query(coords, radius)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &fetch.StatusError{StatusCode: resp.StatusCode, URL: c.baseURL}
	}

	body, err := fetch.ReadLimited(resp)
	if err != nil {
		return "", err
	}

	var result response
	if err = json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode overpass response: %w", err)
	}

	name, ok := nearest(coords, result.Elements)
	if !ok {
		return "", ErrNoPOI
	}

	c.log.DebugContext(ctx, "Nearest point of interest found", "name", name, "candidates", len(result.Elements))
	return name, nil
}

func nearest(origin models.Coordinates, elements []element) (string, bool) {
	bestName := ""
	bestDist := math.Inf(1)

	for _, el := range elements {
		if _, isRoad := el.Tags["highway"]; isRoad {
			continue
		}
		name := mapsurl.CleanText(el.Tags["name"])
		if name == "" || mapsurl.LooksLikeRoad(name) {
			continue
		}

		var point models.Coordinates
		switch {
		case el.Lat != nil && el.Lon != nil:
			point = models.Coordinates{Latitude: *el.Lat, Longitude: *el.Lon}
		case el.Center != nil:
			point = models.Coordinates{Latitude: el.Center.Lat, Longitude: el.Center.Lon}
		default:
			continue
		}

		if dist := Haversine(origin, point); dist < bestDist {
			bestDist = dist
			bestName = name
		}
	}

	return bestName, bestName != ""
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
