package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmax-ai/borrowd/pkg/graph"
)

const namespace = "borrowd"

// Search outcome labels.
const (
	outcomeFound    = "found"
	outcomeNotFound = "not_found"
	outcomeLimit    = "limit"
	outcomeError    = "error"
)

// Metrics holds the Prometheus collectors of one server. Each server owns its
// registry so tests can build many servers side by side.
type Metrics struct {
	registry *prometheus.Registry

	searches      *prometheus.CounterVec
	searchHops    prometheus.Histogram
	searchVisited prometheus.Histogram
	cache         *prometheus.CounterVec
}

// NewMetrics registers the graph gauges (read from stats on every scrape) and
// the search collectors.
func NewMetrics(stats func() graph.Stats) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_total",
				Help:      "Borrow path searches by outcome",
			},
			[]string{"outcome"},
		),
		searchHops: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_hops",
				Help:      "Hops on found borrow paths",
				Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 15},
			},
		),
		searchVisited: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_visited",
				Help:      "People visited per search",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_total",
				Help:      "Path cache lookups by result",
			},
			[]string{"result"},
		),
	}

	gauge := func(name, help string, value func(graph.Stats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
			func() float64 { return float64(value(stats())) },
		)
	}

	registry.MustRegister(
		gauge("people", "Registered people", func(s graph.Stats) int { return s.People }),
		gauge("friendships", "Distinct friendships", func(s graph.Stats) int { return s.Friendships }),
		gauge("possessions", "Distinct (person, item) possessions", func(s graph.Stats) int { return s.Possessions }),
		m.searches,
		m.searchHops,
		m.searchVisited,
		m.cache,
	)
	return m
}

// Registry exposes the collectors for scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeSearch(res *graph.PathResult) {
	m.searchVisited.Observe(float64(res.Visited))
	if res.Found {
		m.searches.WithLabelValues(outcomeFound).Inc()
		m.searchHops.Observe(float64(res.Path.Hops()))
		return
	}
	m.searches.WithLabelValues(outcomeNotFound).Inc()
}

func (m *Metrics) observeSearchFailure(outcome string) {
	m.searches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeCache(hit bool) {
	if hit {
		m.cache.WithLabelValues("hit").Inc()
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}
