package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
)

const (
	serviceName = "qdrant"

	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor

	fields map[string]PayloadFields
}

type Options struct {
	APIKey             string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
	// Fields maps a collection name to its payload schema. Collections not
	// listed use DefaultPayloadFields.
	Fields map[string]PayloadFields
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fields := make(map[string]PayloadFields, len(options.Fields))
	for name, f := range options.Fields {
		fields[name] = f.withDefaults()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(options.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
		fields:     fields,
	}
}

// HybridSearch runs one server-side fused query: dense and sparse prefetch
// branches combined with reciprocal rank fusion.
func (c *Client) HybridSearch(ctx context.Context, collection string, query domain.HybridQuery) ([]domain.CandidateDocument, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "qdrant hybrid search", errors.New("collection is required"))
	}
	if len(query.Dense) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "qdrant hybrid search", errors.New("dense vector is required"))
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	prefetchLimit := query.PrefetchLimit
	if prefetchLimit < limit {
		prefetchLimit = limit
	}

	prefetch := []map[string]any{
		{"query": query.Dense, "using": denseVectorName, "limit": prefetchLimit},
	}
	if !query.Sparse.Empty() {
		prefetch = append(prefetch, map[string]any{
			"query": map[string]any{
				"indices": query.Sparse.Indices,
				"values":  query.Sparse.Values,
			},
			"using": sparseVectorName,
			"limit": prefetchLimit,
		})
	}

	reqBody := map[string]any{
		"prefetch":     prefetch,
		"query":        map[string]any{"fusion": "rrf"},
		"limit":        limit,
		"with_payload": true,
	}

	var resp struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/query", collection)
	if err := c.postJSON(ctx, path, reqBody, &resp, "hybrid_query"); err != nil {
		return nil, err
	}

	fields := c.fieldsFor(collection)
	out := make([]domain.CandidateDocument, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		out = append(out, toCandidate(p, collection, fields))
	}
	return out, nil
}

func (c *Client) fieldsFor(collection string) PayloadFields {
	if f, ok := c.fields[collection]; ok {
		return f
	}
	return DefaultPayloadFields()
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	call := func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return resilience.NewHTTPStatusError(serviceName, operation, resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant."+operation, call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	return resilience.WrapTemporaryIfNeeded("qdrant "+operation, err, resilience.ClassifyHTTPError)
}
