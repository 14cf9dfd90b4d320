package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/mapsurl"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"golang.org/x/time/rate"
)

const (
	// NominatimBaseURL is the public Nominatim reverse geocoding endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org/reverse"
	// DefaultUserAgent identifies the tool to OpenStreetMap services.
	// Replace the contact with a real one through configuration.
	DefaultUserAgent = "Waypoint/1.0 (https://github.com/UnknownOlympus/waypoint)"
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim reverse API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// nominatimResponse represents the jsonv2 reverse response from Nominatim API.
type nominatimResponse struct {
	Error       string            `json:"error"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Category    string            `json:"category"`
	Class       string            `json:"class"`
	Type        string            `json:"type"`
	NameDetails map[string]string `json:"namedetails"`
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
)

// NewNominatimProvider creates a new Nominatim reverse geocoding provider limited to one request per second.
// Empty baseURL and userAgent fall back to the public endpoint and DefaultUserAgent.
func NewNominatimProvider(baseURL, userAgent string, timeout time.Duration, log *slog.Logger) *NominatimProvider {
	const defaultTimeout = 20 * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	provider := NewNominatimProviderWithClient(
		&http.Client{Timeout: timeout},
		rate.NewLimiter(rate.Every(time.Second), 1),
		log,
	)
	if baseURL != "" {
		provider.baseURL = baseURL
	}
	if userAgent != "" {
		provider.userAgent = userAgent
	}

	return provider
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client and limiter.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:    client,
		baseURL:   NominatimBaseURL,
		log:       log,
		limiter:   limiter,
		userAgent: DefaultUserAgent,
	}
}

// ReverseGeocode returns the place at the given coordinates using the Nominatim API.
// The name is taken from namedetails, then name, then display_name.
// The category is reported as "class:type".
func (np *NominatimProvider) ReverseGeocode(ctx context.Context, coords models.Coordinates) (*models.Place, error) {
	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	np.log.DebugContext(ctx, "Reverse geocoding using Nominatim", "lat", coords.Latitude, "lon", coords.Longitude)

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	query.Set("format", "jsonv2")
	query.Set("addressdetails", "1")
	query.Set("namedetails", "1")
	query.Set("accept-language", "pt-BR")
	query.Set("zoom", "18")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers per Nominatim usage policy
	req.Header.Set("User-Agent", np.userAgent)

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute reverse geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	np.log.DebugContext(ctx, "Nominatim raw response", "body", string(body))

	var result nominatimResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNominatimEmptyResponse, result.Error)
	}

	name := result.NameDetails["name"]
	if name == "" {
		name = result.Name
	}
	if name == "" {
		name = result.DisplayName
	}
	name = mapsurl.CleanText(name)
	if name == "" {
		return nil, ErrNominatimEmptyResponse
	}

	class := result.Category
	if class == "" {
		class = result.Class
	}

	return &models.Place{Name: name, Category: joinCategory(class, result.Type)}, nil
}

func joinCategory(class, kind string) string {
	switch {
	case class != "" && kind != "":
		return class + ":" + kind
	case class != "":
		return class
	default:
		return kind
	}
}
