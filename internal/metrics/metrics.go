package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Link statuses used as the "status" label of LinksProcessed.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type Metrics struct {
	LinksProcessed *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
	ActiveWorkers  prometheus.Gauge
	CacheHits      prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		LinksProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_links_processed_total",
			Help: "Total number of processed links by outcome.",
		}, []string{"status"}),
		ProviderErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_provider_errors_total",
			Help: "Total number of errors received from external lookup providers.",
		}, []string{"provider"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoint_provider_request_duration_seconds",
			Help:    "Duration of requests to external lookup providers.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "waypoint_active_workers",
			Help: "Current number of workers processing a link.",
		}),
		CacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "waypoint_cache_hits_total",
			Help: "Total number of reverse geocoding lookups served from cache.",
		}),
	}
}
