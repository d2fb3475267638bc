// Package tavily is a web search client for the Tavily search API.
package tavily

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
	serviceName    = "tavily"
	DefaultBaseURL = "https://api.tavily.com"
)

type Client struct {
	baseURL     string
	apiKey      string
	searchDepth string
	domains     []string
	httpClient  *http.Client
	executor    *resilience.Executor
}

type Options struct {
	BaseURL string
	// SearchDepth is "basic" or "advanced".
	SearchDepth        string
	IncludeDomains     []string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(apiKey string, options Options) *Client {
	baseURL := strings.TrimSpace(options.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	depth := strings.TrimSpace(options.SearchDepth)
	if depth == "" {
		depth = "basic"
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      strings.TrimSpace(apiKey),
		searchDepth: depth,
		domains:     append([]string(nil), options.IncludeDomains...),
		httpClient:  &http.Client{Timeout: timeout},
		executor:    options.ResilienceExecutor,
	}
}

type searchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Search returns at most limit results labelled as web documents. The URL
// doubles as the document id.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.CandidateDocument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "tavily search", errors.New("query is required"))
	}
	if c.apiKey == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "tavily search", errors.New("api key is not configured"))
	}
	if limit <= 0 {
		limit = 5
	}

	reqBody := map[string]any{
		"query":          query,
		"max_results":    limit,
		"search_depth":   c.searchDepth,
		"include_answer": false,
	}
	if len(c.domains) > 0 {
		reqBody["include_domains"] = c.domains
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	var resp struct {
		Results []searchResult `json:"results"`
	}
	call := func(callCtx context.Context) error {
		return c.post(callCtx, body, &resp)
	}
	if c.executor != nil {
		err = c.executor.Execute(ctx, "tavily.search", call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, resilience.WrapTemporaryIfNeeded("tavily search", err, resilience.ClassifyHTTPError)
	}

	out := make([]domain.CandidateDocument, 0, len(resp.Results))
	for _, r := range resp.Results {
		url := strings.TrimSpace(r.URL)
		if url == "" || strings.TrimSpace(r.Content) == "" {
			continue
		}
		out = append(out, domain.CandidateDocument{
			ID:             url,
			URL:            url,
			Title:          strings.TrimSpace(r.Title),
			Content:        strings.TrimSpace(r.Content),
			SourceType:     domain.SourceWeb,
			RetrievalScore: r.Score,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tavily search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.WrapError(domain.ErrUnauthorized, "tavily search", resilience.NewHTTPStatusError(serviceName, "search", resp))
	}
	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError(serviceName, "search", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tavily response: %w", err)
	}
	return nil
}
