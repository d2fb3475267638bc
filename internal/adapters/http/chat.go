package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/observability/metrics"
)

const maxChatBodyBytes = 1 << 20

type chatRequestBody struct {
	Message string                    `json:"message"`
	History []domain.ConversationTurn `json:"history"`
	Mode    string                    `json:"mode"`
	Stream  *bool                     `json:"stream"`
}

func (rt *Router) chatHandler(w http.ResponseWriter, r *http.Request) {
	var body chatRequestBody
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	mode, err := domain.ParsePipelineMode(body.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx := r.Context()
	if rt.cfg.ChatRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.cfg.ChatRequestTimeout)
		defer cancel()
	}

	req := domain.ChatRequest{
		RequestID: requestIDFromContext(r.Context()),
		Message:   body.Message,
		History:   body.History,
		Mode:      mode,
	}

	started := time.Now()
	var (
		outcome domain.ChatOutcome
		runErr  error
	)
	if body.Stream == nil || *body.Stream {
		outcome, runErr = rt.streamChat(ctx, w, req)
	} else {
		outcome, runErr = rt.collectChat(ctx, w, req)
	}
	rt.recordChat(outcome, runErr, time.Since(started))
}

func (rt *Router) streamChat(ctx context.Context, w http.ResponseWriter, req domain.ChatRequest) (domain.ChatOutcome, error) {
	out := newNDJSONWriter(w)
	outcome, err := rt.chat.Stream(ctx, req, out.write)
	if err == nil {
		return outcome, nil
	}
	if !out.started {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return outcome, err
	}
	if !errors.Is(err, context.Canceled) {
		rt.logger.Warn("chat_stream_aborted", "request_id", req.RequestID, "error", err)
	}
	return outcome, err
}

func (rt *Router) collectChat(ctx context.Context, w http.ResponseWriter, req domain.ChatRequest) (domain.ChatOutcome, error) {
	collector := &answerCollector{}
	outcome, err := rt.chat.Stream(ctx, req, collector.collect)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return outcome, err
	}
	writeJSON(w, http.StatusOK, collector.result())
	return outcome, nil
}

func (rt *Router) recordChat(outcome domain.ChatOutcome, err error, elapsed time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordChat(serviceName, metrics.ChatObservation{
		Mode:            string(outcome.Mode),
		Intent:          string(outcome.Intent),
		Status:          errorStatusLabel(outcome, err),
		SelectionPath:   string(outcome.SelectionPath),
		Candidates:      outcome.CandidateCount,
		UsedDocs:        len(outcome.UsedDocIDs),
		OverflowRetried: outcome.OverflowRetried,
		Duration:        elapsed,
	})
}

// ndjsonWriter writes one event per line and flushes after each. Headers are
// sent with the first event so that early failures can still use a status code.
type ndjsonWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
	started bool
}

func newNDJSONWriter(w http.ResponseWriter) *ndjsonWriter {
	flusher, _ := w.(http.Flusher)
	return &ndjsonWriter{w: w, flusher: flusher, enc: json.NewEncoder(w)}
}

func (n *ndjsonWriter) write(event domain.Event) error {
	if !n.started {
		n.w.Header().Set("Content-Type", "application/x-ndjson")
		n.w.Header().Set("Cache-Control", "no-cache")
		n.w.Header().Set("X-Accel-Buffering", "no")
		n.w.WriteHeader(http.StatusOK)
		n.started = true
	}
	if err := n.enc.Encode(WireEvent(event)); err != nil {
		return err
	}
	if n.flusher != nil {
		n.flusher.Flush()
	}
	return nil
}

func errorStatusLabel(outcome domain.ChatOutcome, err error) string {
	if err != nil {
		return "aborted"
	}
	return outcome.Status
}
