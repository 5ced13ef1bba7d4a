// Package metrics exposes Prometheus instrumentation for the crawler.
// Collectors are package-level and registered once; the autocrawl command
// optionally serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PagesFetched counts provider pages requested, per namespace.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ossignal_pages_fetched_total",
		Help: "Number of provider pages requested.",
	}, []string{"namespace"})

	// EventsIngested counts events committed to the store, per event type.
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ossignal_events_ingested_total",
		Help: "Number of events committed to the event store.",
	}, []string{"event_type"})

	// FetchErrors counts failed fetcher runs, per namespace.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ossignal_fetch_errors_total",
		Help: "Number of fetcher runs that ended in error.",
	}, []string{"namespace"})

	// RateLimitSleeps counts rate-limit backoff sleeps inside pagination.
	RateLimitSleeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ossignal_rate_limit_sleeps_total",
		Help: "Number of times pagination slept waiting for a quota reset.",
	})

	// CrawlOutcomes counts per-pointer crawl outcomes.
	CrawlOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ossignal_crawl_outcomes_total",
		Help: "Per-pointer autocrawl outcomes.",
	}, []string{"outcome"})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
