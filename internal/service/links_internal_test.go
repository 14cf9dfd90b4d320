package service

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	shortOK   = "https://maps.app.goo.gl/ok"
	longOK    = "https://www.google.com/maps/place/Parque+Ibirapuera/@-23.5874162,-46.6576336,17z"
	shortPage = "https://maps.app.goo.gl/page"
	longPage  = "https://www.google.com/maps/place/Museu+Afro"
	shortBad  = "https://maps.app.goo.gl/bad"
)

func TestDedupe(t *testing.T) {
	unique, index := dedupe([]string{"a", "b", "a", "c", "b"})

	assert.Equal(t, []string{"a", "b", "c"}, unique)
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2}, index)
}

func TestRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := t.Context()

	t.Run("ok and failed links keep input order", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		pages := mocks.NewPageReader(t)
		sink := mocks.NewResultSink(t)
		m := metrics.NewMetrics(prometheus.NewRegistry())

		resolver.On("Resolve", mock.Anything, shortOK).Return(longOK).Once()
		resolver.On("Resolve", mock.Anything, shortPage).Return(longPage).Once()
		resolver.On("Resolve", mock.Anything, shortBad).Return(shortBad).Once()
		resolver.On("Allowed", longPage).Return(true).Once()
		resolver.On("Allowed", shortBad).Return(true).Once()
		pages.On("Coordinates", mock.Anything, longPage).
			Return(models.Coordinates{Latitude: -23.58, Longitude: -46.66}, nil).Once()
		pages.On("Coordinates", mock.Anything, shortBad).Return(models.Coordinates{}, assert.AnError).Once()
		sink.On("SaveResult", mock.Anything, mock.AnythingOfType("models.Result")).Return(nil).Times(3)

		svc := NewLinkService(logger, resolver, pages, geocoding.DisabledProvider{}, nil, sink, m,
			Options{Workers: 3, ProviderName: "none"})

		report := svc.Run(ctx, []string{shortBad, shortOK, shortPage, shortOK})

		require.Len(t, report.Rows, 3)
		assert.Equal(t, shortOK, report.Rows[0].Link)
		assert.Equal(t, "Parque Ibirapuera", report.Rows[0].Place)
		assert.InDelta(t, -23.5874162, report.Rows[0].Coordinates.Latitude, 1e-9)
		assert.Equal(t, shortPage, report.Rows[1].Link)
		assert.Equal(t, "Museu Afro", report.Rows[1].Place)
		assert.Equal(t, shortOK, report.Rows[2].Link)
		assert.Equal(t, []string{shortBad}, report.Failed)

		assert.InDelta(t, 2, testutil.ToFloat64(m.LinksProcessed.WithLabelValues(metrics.StatusOK)), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.LinksProcessed.WithLabelValues(metrics.StatusFailed)), 0)
		assert.InDelta(t, 0, testutil.ToFloat64(m.ActiveWorkers), 0)
	})

	t.Run("every line yields exactly one entry", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", mock.Anything, mock.AnythingOfType("string")).
			Return(func(_ context.Context, link string) string { return link })
		m := metrics.NewMetrics(prometheus.NewRegistry())
		svc := NewLinkService(logger, resolver, nil, geocoding.DisabledProvider{}, nil, nil, m,
			Options{Workers: 4})

		input := []string{
			"https://www.google.com/maps/@1.111,2.222,15z",
			"https://goo.gl/nothing",
			"https://www.google.com/maps?q=3.5,4.5",
			"https://goo.gl/nothing",
			"https://www.google.com/maps/data=!3d5.1!4d6.2",
		}

		report := svc.Run(ctx, input)

		assert.Len(t, report.Rows, 3)
		assert.Equal(t, []string{"https://goo.gl/nothing", "https://goo.gl/nothing"}, report.Failed)
		assert.Equal(t, len(input), len(report.Rows)+len(report.Failed))
		for _, row := range report.Rows {
			assert.Equal(t, models.PlaceUnavailable, row.Place)
		}
	})

	t.Run("page metadata of untrusted hosts is ignored", func(t *testing.T) {
		untrusted := "https://evil.example/share"
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", mock.Anything, untrusted).Return(untrusted).Once()
		resolver.On("Allowed", untrusted).Return(false).Once()
		pages := mocks.NewPageReader(t)
		m := metrics.NewMetrics(prometheus.NewRegistry())
		svc := NewLinkService(logger, resolver, pages, geocoding.DisabledProvider{}, nil, nil, m, Options{})

		report := svc.Run(ctx, []string{untrusted})

		assert.Empty(t, report.Rows)
		assert.Equal(t, []string{untrusted}, report.Failed)
		pages.AssertNotCalled(t, "Coordinates", mock.Anything, mock.Anything)
	})

	t.Run("sink errors do not fail the link", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", mock.Anything, longOK).Return(longOK).Once()
		sink := mocks.NewResultSink(t)
		sink.On("SaveResult", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		m := metrics.NewMetrics(prometheus.NewRegistry())
		svc := NewLinkService(logger, resolver, nil, geocoding.DisabledProvider{}, nil, sink, m, Options{})

		report := svc.Run(ctx, []string{longOK})

		require.Len(t, report.Rows, 1)
		assert.Empty(t, report.Failed)
	})

	t.Run("cancelled context marks links as failed", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		resolver := mocks.NewResolver(t)
		m := metrics.NewMetrics(prometheus.NewRegistry())
		svc := NewLinkService(logger, resolver, nil, geocoding.DisabledProvider{}, nil, nil, m,
			Options{Workers: 2})

		report := svc.Run(cancelled, []string{shortOK, shortBad})

		assert.Empty(t, report.Rows)
		assert.Equal(t, []string{shortOK, shortBad}, report.Failed)
		resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	})

	t.Run("empty input", func(t *testing.T) {
		m := metrics.NewMetrics(prometheus.NewRegistry())
		svc := NewLinkService(logger, mocks.NewResolver(t), nil, geocoding.DisabledProvider{}, nil, nil, m, Options{})

		report := svc.Run(ctx, nil)

		assert.Empty(t, report.Rows)
		assert.Empty(t, report.Failed)
	})
}

func TestProcess(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := t.Context()

	t.Run("failure carries the reason", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", mock.Anything, shortBad).Return(shortBad).Once()
		m := metrics.NewMetrics(prometheus.NewRegistry())
		svc := NewLinkService(logger, resolver, nil, geocoding.DisabledProvider{}, nil, nil, m, Options{})

		res := svc.Process(ctx, shortBad)

		assert.False(t, res.OK())
		assert.Equal(t, models.PlaceUnavailable, res.Place)
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "failed to extract coordinates")
	})

	t.Run("geocoded name used when url has none", func(t *testing.T) {
		link := "https://www.google.com/maps/@-23.5874162,-46.6576336,17z"
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", mock.Anything, link).Return(link).Once()
		provider := mocks.NewProvider(t)
		provider.On("ReverseGeocode", mock.Anything, models.Coordinates{Latitude: -23.5874162, Longitude: -46.6576336}).
			Return(&models.Place{Name: "Parque Ibirapuera", Category: "leisure:park"}, nil).Once()
		m := metrics.NewMetrics(prometheus.NewRegistry())
		svc := NewLinkService(logger, resolver, nil, provider, nil, nil, m, Options{ProviderName: "nominatim"})

		res := svc.Process(ctx, link)

		require.True(t, res.OK())
		assert.Equal(t, "Parque Ibirapuera", res.Place)
	})
}
