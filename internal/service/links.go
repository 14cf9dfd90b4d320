package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/mapsurl"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Resolver turns a possibly shortened link into its final URL and tells
// whether a URL belongs to a trusted maps host.
type Resolver interface {
	Resolve(ctx context.Context, link string) string
	Allowed(rawURL string) bool
}

// PageReader extracts coordinates from the HTML of a maps page.
type PageReader interface {
	Coordinates(ctx context.Context, pageURL string) (models.Coordinates, error)
}

// POIFinder finds the nearest named point of interest around a point.
type POIFinder interface {
	NearestPOI(ctx context.Context, coords models.Coordinates, radius float64) (string, error)
}

// ResultSink persists processed links.
type ResultSink interface {
	SaveResult(ctx context.Context, result models.Result) error
}

// Options tunes the batch run.
type Options struct {
	Workers      int           // Number of concurrent workers
	LinkDelay    time.Duration // Minimum pause between two links, shared by all workers
	POIRadius    float64       // Search radius for nearby POIs, in meters
	ProviderName string        // Name of the reverse geocoder for metrics labeling
}

// LinkService resolves links into places and coordinates.
type LinkService struct {
	log          *slog.Logger
	resolver     Resolver
	pages        PageReader
	provider     geocoding.Provider
	poi          POIFinder
	sink         ResultSink
	metrics      *metrics.Metrics
	numWorkers   int
	pacer        *rate.Limiter
	poiRadius    float64
	providerName string
}

// NewLinkService creates a LinkService. pages, poi and sink are optional and may be nil.
func NewLinkService(
	log *slog.Logger,
	resolver Resolver,
	pages PageReader,
	provider geocoding.Provider,
	poi POIFinder,
	sink ResultSink,
	metrics *metrics.Metrics,
	opts Options,
) *LinkService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	pacer := rate.NewLimiter(rate.Inf, 1)
	if opts.LinkDelay > 0 {
		pacer = rate.NewLimiter(rate.Every(opts.LinkDelay), 1)
	}

	return &LinkService{
		log:          log,
		resolver:     resolver,
		pages:        pages,
		provider:     provider,
		poi:          poi,
		sink:         sink,
		metrics:      metrics,
		numWorkers:   opts.Workers,
		pacer:        pacer,
		poiRadius:    opts.POIRadius,
		providerName: opts.ProviderName,
	}
}

type job struct {
	idx  int
	link string
}

// Run processes links and returns the report in input order.
// Each distinct link is processed once, but every input line gets its own entry.
// Links left unprocessed when ctx is cancelled are reported as failures.
func (ls *LinkService) Run(ctx context.Context, links []string) models.Report {
	unique, index := dedupe(links)
	results := make([]models.Result, len(unique))

	ls.log.InfoContext(ctx, "Processing links", "links", len(links), "unique", len(unique), "num_workers", ls.numWorkers)

	jobs := make(chan job, len(unique))
	for i, link := range unique {
		jobs <- job{idx: i, link: link}
	}
	close(jobs)

	var grp errgroup.Group
	for i := 1; i <= ls.numWorkers; i++ {
		grp.Go(func() error {
			ls.worker(ctx, i, len(unique), jobs, results)
			return nil
		})
	}
	_ = grp.Wait()

	var report models.Report
	for _, link := range links {
		res := results[index[link]]
		if res.OK() {
			report.Rows = append(report.Rows, res)
		} else {
			report.Failed = append(report.Failed, link)
		}
	}

	ls.log.InfoContext(ctx, "Processing finished", "rows", len(report.Rows), "failed", len(report.Failed))
	return report
}

// worker drains jobs and writes each outcome into its own slot of results.
func (ls *LinkService) worker(ctx context.Context, idx, total int, jobs <-chan job, results []models.Result) {
	for jb := range jobs {
		var res models.Result
		if err := ls.pacer.Wait(ctx); err != nil {
			res = failed(jb.link, fmt.Errorf("link not processed: %w", err))
		} else {
			ls.metrics.ActiveWorkers.Inc()
			ls.log.DebugContext(ctx, "Processing link", "worker", idx, "link", jb.link)
			res = ls.Process(ctx, jb.link)
			ls.metrics.ActiveWorkers.Dec()
		}
		results[jb.idx] = res

		ls.record(ctx, jb.idx+1, total, res)
	}
}

// Process resolves a single link. It never returns an error: failures are carried in the result.
func (ls *LinkService) Process(ctx context.Context, link string) models.Result {
	finalURL := ls.resolver.Resolve(ctx, link)

	coords, err := mapsurl.ExtractCoordinates(finalURL)
	if err != nil && ls.pages != nil && ctx.Err() == nil {
		// Page metadata is only trusted on whitelisted maps hosts.
		if ls.resolver.Allowed(finalURL) {
			ls.log.DebugContext(ctx, "No coordinates in URL, reading page metadata", "url", finalURL)
			coords, err = ls.pages.Coordinates(ctx, finalURL)
		} else {
			ls.log.DebugContext(ctx, "Skipping page metadata of untrusted host", "url", finalURL)
		}
	}
	if err != nil {
		return failed(link, fmt.Errorf("failed to extract coordinates from %s: %w", finalURL, err))
	}

	urlName, _ := mapsurl.PlaceName(finalURL)

	return models.Result{
		Link:        link,
		Place:       ls.resolveName(ctx, urlName, coords),
		Coordinates: &coords,
	}
}

func (ls *LinkService) record(ctx context.Context, position, total int, res models.Result) {
	status := "OK"
	lat, lon := "", ""
	if res.OK() {
		ls.metrics.LinksProcessed.WithLabelValues(metrics.StatusOK).Inc()
		lat = fmt.Sprintf("%.2f", res.Coordinates.Latitude)
		lon = fmt.Sprintf("%.2f", res.Coordinates.Longitude)
	} else {
		status = "FALHA"
		ls.metrics.LinksProcessed.WithLabelValues(metrics.StatusFailed).Inc()
	}

	ls.log.InfoContext(ctx, "Link processed",
		"index", position, "total", total, "status", status,
		"place", res.Place, "lat", lat, "lon", lon, "link", res.Link)
	if res.Err != nil {
		ls.log.DebugContext(ctx, "Link failure reason", "link", res.Link, "error", res.Err)
	}

	if ls.sink == nil {
		return
	}
	// The sink outlives a cancelled batch so already processed links are still stored.
	if err := ls.sink.SaveResult(context.WithoutCancel(ctx), res); err != nil {
		ls.log.ErrorContext(ctx, "Failed to save link result", "link", res.Link, "error", err)
	}
}

func failed(link string, err error) models.Result {
	return models.Result{Link: link, Place: models.PlaceUnavailable, Err: err}
}

// dedupe returns the distinct links in first-seen order and the position of each one.
func dedupe(links []string) ([]string, map[string]int) {
	unique := make([]string, 0, len(links))
	index := make(map[string]int, len(links))
	for _, link := range links {
		if _, seen := index[link]; seen {
			continue
		}
		index[link] = len(unique)
		unique = append(unique, link)
	}
	return unique, index
}
