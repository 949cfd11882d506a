package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchRequestsTotal   *prometheus.CounterVec
	searchDuration        *prometheus.HistogramVec
	retrievedDocuments    *prometheus.HistogramVec
	rejectedQueriesTotal  *prometheus.CounterVec
	answersTotal          *prometheus.CounterVec
	answerSourcesReturned *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rdsb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rdsb",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rdsb",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rdsb",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total completed searches by topology.",
		},
		[]string{"service", "topology"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rdsb",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search execution duration in seconds by topology.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "topology"},
	)
	retrievedDocuments := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rdsb",
			Subsystem: "search",
			Name:      "retrieved_documents",
			Help:      "Distribution of documents returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "topology"},
	)
	rejectedQueriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rdsb",
			Subsystem: "search",
			Name:      "rejected_queries_total",
			Help:      "Total queries rejected by sanitation.",
		},
		[]string{"service"},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rdsb",
			Subsystem: "answer",
			Name:      "answers_total",
			Help:      "Total answer requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	answerSourcesReturned := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rdsb",
			Subsystem: "answer",
			Name:      "sources_returned",
			Help:      "Distribution of sources per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchRequestsTotal,
		searchDuration,
		retrievedDocuments,
		rejectedQueriesTotal,
		answersTotal,
		answerSourcesReturned,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		searchRequestsTotal:   searchRequestsTotal,
		searchDuration:        searchDuration,
		retrievedDocuments:    retrievedDocuments,
		rejectedQueriesTotal:  rejectedQueriesTotal,
		answersTotal:          answersTotal,
		answerSourcesReturned: answerSourcesReturned,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordSearch(service, topology string, resultCount int, duration time.Duration) {
	if topology == "" {
		topology = "unknown"
	}
	m.searchRequestsTotal.WithLabelValues(service, topology).Inc()
	m.searchDuration.WithLabelValues(service, topology).Observe(duration.Seconds())
	m.retrievedDocuments.WithLabelValues(service, topology).Observe(float64(resultCount))
}

func (m *HTTPServerMetrics) RecordRejectedQuery(service string) {
	m.rejectedQueriesTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordAnswer(service, outcome string, sourceCount int) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.answersTotal.WithLabelValues(service, outcome).Inc()
	m.answerSourcesReturned.WithLabelValues(service).Observe(float64(sourceCount))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
