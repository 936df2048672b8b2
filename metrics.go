package staticpress

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "staticpress"

// Metrics records fetch, generation, cache and build metrics. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	once         sync.Once
	reg          *prom.Registry
	fetchLatency *prom.HistogramVec
	fetchErrors  *prom.CounterVec
	generations  *prom.CounterVec
	genLatency   *prom.HistogramVec
	cacheResults *prom.CounterVec
	revalidated  *prom.CounterVec
	cachedPages  prom.Gauge
	buildPages   *prom.CounterVec
	buildLatency prom.Histogram
}

// NewMetrics constructs and registers the metrics on reg (a fresh registry when nil).
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{reg: reg}
	m.once.Do(func() {
		m.fetchLatency = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of outbound API calls including retries",
			Buckets:   prom.DefBuckets,
		}, []string{"endpoint"})
		m.fetchErrors = prom.NewCounterVec(prom.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fetch_errors_total",
			Help:      "Outbound API calls that failed after all attempts",
		}, []string{"endpoint"})
		m.generations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "page_generations_total",
			Help:      "Page generations by kind and loader status",
		}, []string{"kind", "status"})
		m.genLatency = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "page_generation_duration_seconds",
			Help:      "Duration of a single page generation",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"})
		m.cacheResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_requests_total",
			Help:      "Page cache lookups by result (hit, stale, miss)",
		}, []string{"result"})
		m.revalidated = prom.NewCounterVec(prom.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "revalidations_total",
			Help:      "Background and on-demand revalidations by outcome",
		}, []string{"outcome"})
		m.cachedPages = prom.NewGauge(prom.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cached_pages",
			Help:      "Pages currently held by the page cache",
		})
		m.buildPages = prom.NewCounterVec(prom.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "build_pages_total",
			Help:      "Pages written by static builds by status code class",
		}, []string{"class"})
		m.buildLatency = prom.NewHistogram(prom.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "build_duration_seconds",
			Help:      "Total static build duration",
			Buckets:   prom.DefBuckets,
		})
		reg.MustRegister(m.fetchLatency, m.fetchErrors, m.generations, m.genLatency,
			m.cacheResults, m.revalidated, m.cachedPages, m.buildPages, m.buildLatency)
	})
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveFetch matches fetch.ObserveFunc.
func (m *Metrics) ObserveFetch(endpoint string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchLatency.WithLabelValues(endpoint).Observe(d.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(endpoint).Inc()
	}
}

func (m *Metrics) observeGeneration(k Kind, s Status, d time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(string(k), s.String()).Inc()
	m.genLatency.WithLabelValues(string(k)).Observe(d.Seconds())
}

func (m *Metrics) incCache(state CacheState) {
	if m == nil {
		return
	}
	m.cacheResults.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) incRevalidation(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	m.revalidated.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setCachedPages(n int) {
	if m == nil {
		return
	}
	m.cachedPages.Set(float64(n))
}

func (m *Metrics) observeBuild(r BuildReport) {
	if m == nil {
		return
	}
	m.buildLatency.Observe(r.Duration.Seconds())
	m.buildPages.WithLabelValues("2xx").Add(float64(max(r.Pages-r.NotFound-r.Failed, 0)))
	m.buildPages.WithLabelValues("404").Add(float64(r.NotFound))
	m.buildPages.WithLabelValues("failed").Add(float64(r.Failed))
}
