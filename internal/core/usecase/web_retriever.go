package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

// WebRetriever runs web searches for several reflected queries at once.
type WebRetriever struct {
	searcher       ports.WebSearcher
	pool           *ants.Pool
	resultsPerCall int
	timeout        time.Duration
	logger         *slog.Logger
}

func NewWebRetriever(searcher ports.WebSearcher, pool *ants.Pool, resultsPerCall int, timeout time.Duration, logger *slog.Logger) *WebRetriever {
	if resultsPerCall <= 0 {
		resultsPerCall = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebRetriever{
		searcher:       searcher,
		pool:           pool,
		resultsPerCall: resultsPerCall,
		timeout:        timeout,
		logger:         logger,
	}
}

// SearchMany searches every query concurrently and deduplicates by URL.
// Individual failures count as empty results.
func (w *WebRetriever) SearchMany(ctx context.Context, queries []string) ([]domain.CandidateDocument, error) {
	if w == nil || w.searcher == nil {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "web search", errors.New("web search is not configured"))
	}
	if len(queries) == 0 {
		return nil, nil
	}

	results := make([][]domain.CandidateDocument, len(queries))
	errs := make([]error, len(queries))
	runLeafTasks(w.pool, len(queries), errs, func(i int) {
		callCtx, cancel := withTimeout(ctx, w.timeout)
		defer cancel()
		results[i], errs[i] = w.searcher.Search(callCtx, queries[i], w.resultsPerCall)
	})

	failed := 0
	merged := make([]domain.CandidateDocument, 0, len(queries)*w.resultsPerCall)
	for i, err := range errs {
		if err != nil {
			failed++
			w.logger.Warn("web_search_failed", "query_index", i, "error", err)
			continue
		}
		merged = append(merged, labelSource(results[i], domain.SourceWeb)...)
	}
	if failed == len(queries) {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "web search", errors.Join(errs...))
	}
	return dedupeByURL(merged), nil
}
