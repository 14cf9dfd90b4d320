package geocoding_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleProvider_ReverseGeocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()
	coords := models.Coordinates{Latitude: -23.5874, Longitude: -46.6576}
	req := &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: coords.Latitude, Lng: coords.Longitude},
		Language: "pt-BR",
	}

	t.Run("api returns error", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return(nil, assert.AnError).Once()

		place, err := provider.ReverseGeocode(ctx, coords)

		require.Nil(t, place)
		require.ErrorIs(t, err, assert.AnError)
		mockClient.AssertExpectations(t)
	})

	t.Run("api return empty response", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return(nil, nil).Once()

		place, err := provider.ReverseGeocode(ctx, coords)

		require.Nil(t, place)
		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
		mockClient.AssertExpectations(t)
	})

	t.Run("successful reverse geocoding", func(t *testing.T) {
		mockResponse := []maps.GeocodingResult{
			{FormattedAddress: "Parque Ibirapuera, São Paulo - SP", Types: []string{"park", "point_of_interest"}},
		}
		mockClient.On("ReverseGeocode", ctx, req).Return(mockResponse, nil).Once()

		place, err := provider.ReverseGeocode(ctx, coords)

		require.NoError(t, err)
		require.NotNil(t, place)
		assert.Equal(t, "Parque Ibirapuera, São Paulo - SP", place.Name)
		assert.Equal(t, "google:park", place.Category)
		mockClient.AssertExpectations(t)
	})

	t.Run("result without types", func(t *testing.T) {
		mockResponse := []maps.GeocodingResult{{FormattedAddress: "Somewhere"}}
		mockClient.On("ReverseGeocode", ctx, req).Return(mockResponse, nil).Once()

		place, err := provider.ReverseGeocode(ctx, coords)

		require.NoError(t, err)
		assert.Empty(t, place.Category)
		mockClient.AssertExpectations(t)
	})
}
