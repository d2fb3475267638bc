package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
)

func TestEmbedQuerySendsModelAndInput(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	vector, err := NewEmbedder(New(server.URL, "chat", "bge-m3")).EmbedQuery(context.Background(), "luật thanh niên")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("unexpected vector %v", vector)
	}
	if payload["model"] != "bge-m3" {
		t.Fatalf("unexpected model %v", payload["model"])
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "chat", "embed")).Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestChatCompleteSendsGenerationOptions(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":" LEGAL \n"},"done":true}`))
	}))
	defer server.Close()

	model := NewChatModel(New(server.URL, "qwen3", "embed"))
	out, err := model.Complete(context.Background(), domain.GenerationRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "router"},
			{Role: domain.RoleUser, Content: "Luật thanh niên là gì?"},
		},
		Temperature: 0,
		MaxTokens:   16,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "LEGAL" {
		t.Fatalf("unexpected completion %q", out)
	}
	if captured.Stream || captured.Model != "qwen3" || len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("unexpected request %+v", captured)
	}
	if captured.Options["num_predict"] != float64(16) {
		t.Fatalf("expected num_predict=16, got %v", captured.Options["num_predict"])
	}
}

func TestChatCompleteSingleAttemptDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"NON_LEGAL"},"done":true}`))
	}))
	defer server.Close()

	policy := resilience.DefaultConfig()
	policy.RetryMaxAttempts = 1
	client := NewWithOptions(server.URL, "qwen3", "embed", Options{ResilienceExecutor: resilience.NewExecutor(policy)})

	_, err := NewChatModel(client).Complete(context.Background(), domain.GenerationRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "Xin chào"}},
	})
	if err == nil {
		t.Fatalf("expected error from the single attempt")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestChatStreamDeliversFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, part := range []string{"Theo ", "Điều 5", ""} {
			done := part == ""
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":%t}`+"\n", part, done)
			w.(http.Flusher).Flush()
		}
	}))
	defer server.Close()

	var got []string
	err := NewChatModel(New(server.URL, "qwen3", "embed")).Stream(context.Background(), domain.GenerationRequest{MaxTokens: 512}, func(fragment string) error {
		got = append(got, fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if strings.Join(got, "|") != "Theo |Điều 5" {
		t.Fatalf("unexpected fragments %q", got)
	}
}

func TestChatStreamMapsContextOverflow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"the input length exceeds the context length"}`))
	}))
	defer server.Close()

	err := NewChatModel(New(server.URL, "qwen3", "embed")).Stream(context.Background(), domain.GenerationRequest{}, func(string) error { return nil })
	if !domain.IsKind(err, domain.ErrContextOverflow) {
		t.Fatalf("expected context overflow, got %v", err)
	}
}

func TestChatStreamReportsInlineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":"a"},"done":false}` + "\n" + `{"error":"model crashed"}` + "\n"))
	}))
	defer server.Close()

	err := NewChatModel(New(server.URL, "qwen3", "embed")).Stream(context.Background(), domain.GenerationRequest{}, func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "model crashed") {
		t.Fatalf("expected inline error, got %v", err)
	}
}
