package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chatRequestsTotal    *prometheus.CounterVec
	chatDuration         *prometheus.HistogramVec
	chatCandidates       *prometheus.HistogramVec
	chatUsedDocs         *prometheus.HistogramVec
	chatSelectionTotal   *prometheus.CounterVec
	chatOverflowRetries  *prometheus.CounterVec
	documentLookupsTotal *prometheus.CounterVec
}

// ChatObservation summarizes one finished chat request.
type ChatObservation struct {
	Mode            string
	Intent          string
	Status          string
	SelectionPath   string
	Candidates      int
	UsedDocs        int
	OverflowRetried bool
	Duration        time.Duration
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total chat requests by mode, intent and outcome.",
		},
		[]string{"service", "mode", "intent", "status"},
	)
	chatDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "End-to-end chat pipeline duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "mode"},
	)
	chatCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "candidates",
			Help:      "Distribution of merged candidates per chat request.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service", "mode"},
	)
	chatUsedDocs := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "used_docs",
			Help:      "Distribution of cited documents per answered request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service", "mode"},
	)
	chatSelectionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "selection_total",
			Help:      "Selection gate decisions by path.",
		},
		[]string{"service", "path"},
	)
	chatOverflowRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "overflow_retries_total",
			Help:      "Generations retried with a reduced token budget.",
		},
		[]string{"service", "mode"},
	)
	documentLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "lookups_total",
			Help:      "Document lookups by result.",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatRequestsTotal,
		chatDuration,
		chatCandidates,
		chatUsedDocs,
		chatSelectionTotal,
		chatOverflowRetries,
		documentLookupsTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		chatRequestsTotal:    chatRequestsTotal,
		chatDuration:         chatDuration,
		chatCandidates:       chatCandidates,
		chatUsedDocs:         chatUsedDocs,
		chatSelectionTotal:   chatSelectionTotal,
		chatOverflowRetries:  chatOverflowRetries,
		documentLookupsTotal: documentLookupsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
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
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordChat(service string, obs ChatObservation) {
	mode := orUnknown(obs.Mode)
	m.chatRequestsTotal.WithLabelValues(service, mode, orUnknown(obs.Intent), orUnknown(obs.Status)).Inc()
	m.chatDuration.WithLabelValues(service, mode).Observe(obs.Duration.Seconds())
	m.chatCandidates.WithLabelValues(service, mode).Observe(float64(obs.Candidates))
	if obs.Status == "answered" {
		m.chatUsedDocs.WithLabelValues(service, mode).Observe(float64(obs.UsedDocs))
	}
	if obs.SelectionPath != "" && obs.SelectionPath != "none" {
		m.chatSelectionTotal.WithLabelValues(service, obs.SelectionPath).Inc()
	}
	if obs.OverflowRetried {
		m.chatOverflowRetries.WithLabelValues(service, mode).Inc()
	}
}

func (m *HTTPServerMetrics) RecordDocumentLookup(service, result string) {
	m.documentLookupsTotal.WithLabelValues(service, orUnknown(result)).Inc()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
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

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
