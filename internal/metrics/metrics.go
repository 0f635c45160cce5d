package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Doudousmyle42/mangatracker/internal/util"
)

// Metrics bundles the Prometheus collectors for extraction and refresh.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry      *prometheus.Registry
	FetchTotal    *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	CoverStage    *prometheus.CounterVec
	RefreshTotal  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangatracker_fetch_total",
			Help: "Page fetches by outcome.",
		},
		[]string{"result"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mangatracker_fetch_duration_seconds",
			Help:    "Page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	covers := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangatracker_cover_stage_total",
			Help: "Extractions by the strategy stage that produced the cover.",
		},
		[]string{"stage"},
	)
	refreshes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangatracker_refresh_total",
			Help: "Library refreshes by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(fetches, duration, covers, refreshes)

	return &Metrics{
		Registry:      registry,
		FetchTotal:    fetches,
		FetchDuration: duration,
		CoverStage:    covers,
		RefreshTotal:  refreshes,
	}
}

// ObserveFetch records one page fetch.
func (m *Metrics) ObserveFetch(_ int, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
	m.FetchTotal.WithLabelValues(fetchResult(err)).Inc()
}

func fetchResult(err error) string {
	if err == nil {
		return "ok"
	}

	var fe *util.FetchError
	switch {
	case errors.As(err, &fe) && fe.Blocked():
		return "blocked"
	case errors.As(err, &fe) && fe.StatusCode != 0:
		return "http_error"
	default:
		return "network_error"
	}
}

// ObserveCover records which stage produced the cover image.
func (m *Metrics) ObserveCover(stage string) {
	if m == nil {
		return
	}
	m.CoverStage.WithLabelValues(stage).Inc()
}

// ObserveRefresh records a refresh outcome: "updated", "unchanged" or "failed".
func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
