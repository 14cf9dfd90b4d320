package geocoding

import (
	"context"
	"errors"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

// Provider is an interface that defines a method for reverse geocoding a point.
// The ReverseGeocode method takes a context and coordinates as input,
// and returns the place found at that point and an error if any occurs.
type Provider interface {
	ReverseGeocode(ctx context.Context, coords models.Coordinates) (*models.Place, error)
}

// ErrProviderDisabled is returned by the provider used when reverse geocoding is turned off.
var ErrProviderDisabled = errors.New("reverse geocoding is disabled")

// DisabledProvider never resolves a place.
type DisabledProvider struct{}

// ReverseGeocode always returns ErrProviderDisabled.
func (DisabledProvider) ReverseGeocode(_ context.Context, _ models.Coordinates) (*models.Place, error) {
	return nil, ErrProviderDisabled
}
