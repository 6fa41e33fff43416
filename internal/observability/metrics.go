package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	enrichmentRunsTotal    *prometheus.CounterVec
	enrichmentRunDuration  prometheus.Histogram
	enrichmentContacts     prometheus.Counter
	enrichmentEmailsFound  prometheus.Counter
	enrichmentActiveRuns   prometheus.Gauge
	providerCallsTotal     *prometheus.CounterVec
	providerTokenRefreshes prometheus.Counter
}

// NewMetrics creates the collectors and registers them on registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prospector_http_request_duration_seconds",
				Help:    "Time taken for HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		enrichmentRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_enrichment_runs_total",
				Help: "Company analysis runs by outcome",
			},
			[]string{"outcome"}, // completed, empty, failed, rejected
		),
		enrichmentRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "prospector_enrichment_run_duration_seconds",
				Help:    "Wall time of company analysis runs",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~64s
			},
		),
		enrichmentContacts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prospector_enrichment_contacts_total",
			Help: "Contacts saved by analysis runs",
		}),
		enrichmentEmailsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prospector_enrichment_emails_found_total",
			Help: "Emails found by analysis runs",
		}),
		enrichmentActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prospector_enrichment_active_runs",
			Help: "Analysis runs currently in progress",
		}),
		providerCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_provider_calls_total",
				Help: "Relay calls to the contact provider",
			},
			[]string{"action", "success"},
		),
		providerTokenRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prospector_provider_token_refreshes_total",
			Help: "Fresh provider authentications",
		}),
	}

	collectors := []prometheus.Collector{
		m.httpRequestsTotal, m.httpRequestDuration,
		m.enrichmentRunsTotal, m.enrichmentRunDuration, m.enrichmentContacts,
		m.enrichmentEmailsFound, m.enrichmentActiveRuns,
		m.providerCallsTotal, m.providerTokenRefreshes,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry the metrics were registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RunStarted marks an analysis run as active.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.enrichmentActiveRuns.Inc()
}

// RunFinished records the outcome of an analysis run.
func (m *Metrics) RunFinished(outcome string, d time.Duration, contacts, emails int) {
	if m == nil {
		return
	}
	m.enrichmentActiveRuns.Dec()
	m.enrichmentRunsTotal.WithLabelValues(outcome).Inc()
	m.enrichmentRunDuration.Observe(d.Seconds())
	m.enrichmentContacts.Add(float64(contacts))
	m.enrichmentEmailsFound.Add(float64(emails))
}

// RunRejected counts a run refused by the in-progress guard.
func (m *Metrics) RunRejected() {
	if m == nil {
		return
	}
	m.enrichmentRunsTotal.WithLabelValues("rejected").Inc()
}

// RecordProviderCall counts one relay call.
func (m *Metrics) RecordProviderCall(action string, success bool) {
	if m == nil {
		return
	}
	m.providerCallsTotal.WithLabelValues(action, strconv.FormatBool(success)).Inc()
}

// RecordTokenRefresh counts a fresh provider authentication.
func (m *Metrics) RecordTokenRefresh() {
	if m == nil {
		return
	}
	m.providerTokenRefreshes.Inc()
}
