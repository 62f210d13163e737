package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики API.
var (
	// HTTPRequests — число HTTP запросов по методу, маршруту и статусу.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formflow_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPDuration — длительность обработки HTTP запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "formflow_http_request_duration_seconds",
		Help:    "HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Доменные метрики.
var (
	// ResponsesSubmitted — принятые ответы по flow.
	ResponsesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formflow_responses_submitted_total",
		Help: "Total form responses submitted",
	}, []string{"flow_id"})

	// FlowsPublished — число публикаций flow.
	FlowsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formflow_flows_published_total",
		Help: "Total flow versions published",
	})

	// CacheLookups — обращения к кешу опубликованных версий (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formflow_cache_lookups_total",
		Help: "Published flow cache lookups by result",
	}, []string{"result"})

	// EventsConsumed — события, обработанные analytics worker, по типу.
	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formflow_events_consumed_total",
		Help: "Events consumed by the analytics worker",
	}, []string{"type"})
)
