package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/lexvn/legal-assistant/internal/config"
	"github.com/lexvn/legal-assistant/internal/core/ports"
	"github.com/lexvn/legal-assistant/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg     config.Config
	chat    ports.ChatService
	docs    ports.DocumentReader
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
}

func NewRouter(
	cfg config.Config,
	chat ports.ChatService,
	docs ports.DocumentReader,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:     cfg,
		chat:    chat,
		docs:    docs,
		metrics: httpMetrics,
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/chat", rt.chatHandler)
	mux.HandleFunc("GET /v1/documents/{id...}", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = corsMiddleware(handler, rt.cfg.CORSAllowedOrigins)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetDocument(r.Context(), id)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.recordLookup(lookupResult(status))
		if status >= http.StatusInternalServerError {
			rt.logger.Error("document_lookup_failed", "request_id", requestIDFromContext(r.Context()), "document_id", id, "error", err)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	rt.recordLookup("found")
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) recordLookup(result string) {
	if rt.metrics != nil {
		rt.metrics.RecordDocumentLookup(serviceName, result)
	}
}

func lookupResult(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "invalid"
	default:
		return "error"
	}
}

func corsMiddleware(next http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(next)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
