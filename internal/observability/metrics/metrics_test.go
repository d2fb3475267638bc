package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestRecordChatExposesOutcome(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RecordChat("api", ChatObservation{
		Mode:            "LAW_DB",
		Intent:          "LEGAL",
		Status:          "answered",
		SelectionPath:   "high_confidence",
		Candidates:      12,
		UsedDocs:        2,
		OverflowRetried: true,
		Duration:        3 * time.Second,
	})

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`lexvn_chat_requests_total{intent="LEGAL",mode="LAW_DB",service="api",status="answered"} 1`,
		`lexvn_chat_selection_total{path="high_confidence",service="api"} 1`,
		`lexvn_chat_overflow_retries_total{mode="LAW_DB",service="api"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, out)
		}
	}
}

func TestMiddlewareNormalizesDocumentPath(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	h := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/documents/57-2020-QH14", nil))

	out := scrape(t, m.Handler())
	want := `lexvn_http_requests_total{method="GET",path="/v1/documents/{document_id}",service="api",status="404"} 1`
	if !strings.Contains(out, want) {
		t.Fatalf("expected %q in metrics output:\n%s", want, out)
	}
}

func TestWorkerMetricsCountsInteractions(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartInteraction()
	m.FinishInteraction("worker", time.Millisecond, errors.New("boom"))
	m.CountInteraction("worker", "HYBRID", "")
	m.ObserveQueueLag("worker", -time.Second)

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`lexvn_worker_interaction_process_total{service="worker",status="error"} 1`,
		`lexvn_worker_interactions_total{mode="HYBRID",service="worker",status="unknown"} 1`,
		`lexvn_worker_interaction_process_in_flight{service="worker"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, out)
		}
	}
}
