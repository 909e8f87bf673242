// Package metrics holds the Prometheus collectors of the catalog service.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values used alongside the error kinds of the service layer.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// CatalogMetrics holds counters and histograms for catalog operations.
// A nil *CatalogMetrics is valid and records nothing.
type CatalogMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
	cacheHits  *prometheus.CounterVec
	rateLimits prometheus.Counter
}

// NewCatalogMetrics registers the collectors with the default registerer.
func NewCatalogMetrics() *CatalogMetrics {
	return NewCatalogMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCatalogMetricsWithRegisterer registers the collectors with registerer,
// reusing collectors that are already registered under the same name.
func NewCatalogMetricsWithRegisterer(registerer prometheus.Registerer) *CatalogMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CatalogMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "catalog_operations_total",
			Help: "Catalog service operations by entity, operation and outcome",
		}, []string{"entity", "operation", "outcome"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "catalog_operation_duration_seconds",
			Help:    "Duration of catalog service operations including the transaction",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
		events: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "catalog_events_published_total",
			Help: "Domain events handed to the broker by type and outcome",
		}, []string{"type", "outcome"}),
		cacheHits: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "catalog_http_cache_lookups_total",
			Help: "Response cache lookups by result (hit or miss)",
		}, []string{"result"}),
		rateLimits: registerCounter(registerer, prometheus.CounterOpts{
			Name: "catalog_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// RecordOperation counts one finished operation and observes its duration.
func (m *CatalogMetrics) RecordOperation(entity, operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(entity, operation, outcome).Inc()
	m.duration.WithLabelValues(entity, operation).Observe(d.Seconds())
}

// RecordEvent counts a publish attempt.
func (m *CatalogMetrics) RecordEvent(eventType string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

// RecordCacheLookup counts a response cache hit or miss.
func (m *CatalogMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(result).Inc()
}

// RecordRateLimited counts a request rejected with 429.
func (m *CatalogMetrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimits.Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
