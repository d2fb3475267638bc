// Package rerank scores (query, passage) pairs for the rerank stage.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
)

const serviceName = "reranker"

// Client calls a cross-encoder rerank service. It speaks the
// text-embeddings-inference /rerank API and the Jina/Cohere style
// /v1/rerank API, picked by the path in the base URL.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Model              string
	APIKey             string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

// NewClient accepts either a bare host, which gets /rerank appended, or a
// full endpoint URL.
func NewClient(baseURL string, options Options) *Client {
	endpoint := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(endpoint, "/rerank") {
		endpoint += "/rerank"
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		model:      strings.TrimSpace(options.Model),
		apiKey:     strings.TrimSpace(options.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type rankedIndex struct {
	Index          int      `json:"index"`
	Score          *float64 `json:"score"`
	RelevanceScore *float64 `json:"relevance_score"`
}

func (r rankedIndex) value() float64 {
	if r.Score != nil {
		return *r.Score
	}
	if r.RelevanceScore != nil {
		return *r.RelevanceScore
	}
	return 0
}

// Score returns one relevance score per passage, aligned with the input.
func (c *Client) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(c.buildRequest(query, passages))
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	var ranked []rankedIndex
	call := func(callCtx context.Context) error {
		out, err := c.post(callCtx, body)
		if err != nil {
			return err
		}
		ranked = out
		return nil
	}
	if c.executor != nil {
		err = c.executor.Execute(ctx, "reranker.score", call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, resilience.WrapTemporaryIfNeeded("reranker score", err, resilience.ClassifyHTTPError)
	}

	scores := make([]float64, len(passages))
	seen := 0
	for _, r := range ranked {
		if r.Index < 0 || r.Index >= len(passages) {
			return nil, fmt.Errorf("rerank response index %d out of range", r.Index)
		}
		scores[r.Index] = r.value()
		seen++
	}
	if seen != len(passages) {
		return nil, fmt.Errorf("rerank response scored %d of %d passages", seen, len(passages))
	}
	return scores, nil
}

func (c *Client) buildRequest(query string, passages []string) map[string]any {
	if strings.HasSuffix(c.endpoint, "/v1/rerank") {
		req := map[string]any{
			"query":     query,
			"documents": passages,
			"top_n":     len(passages),
		}
		if c.model != "" {
			req["model"] = c.model
		}
		return req
	}
	return map[string]any{
		"query":      query,
		"texts":      passages,
		"truncate":   true,
		"raw_scores": false,
	}
}

func (c *Client) post(ctx context.Context, body []byte) ([]rankedIndex, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, resilience.NewHTTPStatusError(serviceName, "score", resp)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var out []rankedIndex
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("decode rerank response: %w", err)
		}
		return out, nil
	}
	var wrapped struct {
		Results []rankedIndex `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return wrapped.Results, nil
}
