// Package metrics exposes ingestion counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every dealio metric.
const Namespace = "dealio"

// Pair results.
const (
	ResultProcessed = "processed"
	ResultSkipped   = "skipped"
)

// Metrics holds the ingestion metrics. A nil *Metrics records nothing.
type Metrics struct {
	PairsTotal         *prometheus.CounterVec
	ListingsSaved      *prometheus.CounterVec
	ListingsFailed     *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec
	LastRunTimestamp   prometheus.Gauge
	LastRunDurationSec prometheus.Gauge
}

// New creates and registers the metrics on reg, or the default registerer
// when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "pairs_total",
			Help:      "Market and category pairs handled, by result",
		}, []string{"result"}),
		ListingsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "listings_saved_total",
			Help:      "Listings upserted successfully",
		}, []string{"category"}),
		ListingsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "listings_failed_total",
			Help:      "Listings whose upsert failed",
		}, []string{"category"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Time to fetch one search page, pacing included",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s to 32s
		}, []string{"market"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last ingestion run finished",
		}),
		LastRunDurationSec: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last ingestion run",
		}),
	}
}

func (m *Metrics) Pair(result string) {
	if m == nil {
		return
	}
	m.PairsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Saved(category string) {
	if m == nil {
		return
	}
	m.ListingsSaved.WithLabelValues(category).Inc()
}

func (m *Metrics) Failed(category string) {
	if m == nil {
		return
	}
	m.ListingsFailed.WithLabelValues(category).Inc()
}

func (m *Metrics) ObserveFetch(market string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(market).Observe(d.Seconds())
}

// RunFinished records the end of an ingestion run.
func (m *Metrics) RunFinished(at time.Time, d time.Duration) {
	if m == nil {
		return
	}
	m.LastRunTimestamp.Set(float64(at.Unix()))
	m.LastRunDurationSec.Set(d.Seconds())
}

// Handler serves the metrics gathered by g in the exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
