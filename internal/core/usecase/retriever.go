package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

type RetrieverConfig struct {
	// PrefetchFactor multiplies topK to size each prefetch branch.
	PrefetchFactor int
	EmbedTimeout   time.Duration
	SearchTimeout  time.Duration
}

// HybridRetriever fans reflected queries out to the vector store. Each query
// is a leaf task on the shared pool; tasks never submit further work.
type HybridRetriever struct {
	dense    ports.DenseEmbedder
	sparse   ports.SparseEncoder
	searcher ports.HybridSearcher
	pool     *ants.Pool
	cfg      RetrieverConfig
	logger   *slog.Logger
}

func NewHybridRetriever(
	dense ports.DenseEmbedder,
	sparse ports.SparseEncoder,
	searcher ports.HybridSearcher,
	pool *ants.Pool,
	cfg RetrieverConfig,
	logger *slog.Logger,
) *HybridRetriever {
	if cfg.PrefetchFactor <= 0 {
		cfg.PrefetchFactor = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridRetriever{
		dense:    dense,
		sparse:   sparse,
		searcher: searcher,
		pool:     pool,
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve runs one query against every collection. A failing collection
// contributes nothing; the query fails only when all collections failed.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, topK int, collections []string) ([]domain.CandidateDocument, error) {
	if topK <= 0 {
		topK = 5
	}
	if len(collections) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("no collections configured"))
	}

	embedCtx, cancel := withTimeout(ctx, r.cfg.EmbedTimeout)
	dense, err := r.dense.EmbedQuery(embedCtx, query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hq := domain.HybridQuery{
		Dense:         dense,
		Sparse:        r.sparse.EncodeQuery(query),
		PrefetchLimit: topK * r.cfg.PrefetchFactor,
		Limit:         2 * topK,
	}

	results := make([][]domain.CandidateDocument, len(collections))
	errs := make([]error, len(collections))
	var wg sync.WaitGroup
	for i, collection := range collections {
		wg.Add(1)
		go func(i int, collection string) {
			defer wg.Done()
			searchCtx, cancel := withTimeout(ctx, r.cfg.SearchTimeout)
			defer cancel()
			results[i], errs[i] = r.searcher.HybridSearch(searchCtx, collection, hq)
		}(i, collection)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			results[i] = nil
			r.logger.Warn("collection_search_failed", "collection", collections[i], "error", err)
		}
	}
	if failed == len(collections) {
		return nil, fmt.Errorf("search collections: %w", errors.Join(errs...))
	}

	out := make([]domain.CandidateDocument, 0, len(collections)*hq.Limit)
	for i, list := range results {
		for _, candidate := range list {
			if candidate.Collection == "" {
				candidate.Collection = collections[i]
			}
			candidate.SourceType = domain.SourceLawDB
			out = append(out, candidate)
		}
	}
	return out, nil
}

// RetrieveMany runs every query concurrently and merges the results first-wins
// in query order. It returns domain.ErrRetrievalFailed only if every query failed.
func (r *HybridRetriever) RetrieveMany(ctx context.Context, queries []string, topK int, collections []string) ([]domain.CandidateDocument, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	results := make([][]domain.CandidateDocument, len(queries))
	errs := make([]error, len(queries))
	runLeafTasks(r.pool, len(queries), errs, func(i int) {
		results[i], errs[i] = r.Retrieve(ctx, queries[i], topK, collections)
	})

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			r.logger.Warn("retrieval_query_failed", "query_index", i, "error", err)
		}
	}
	if failed == len(queries) {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "retrieve many", errors.Join(errs...))
	}
	return mergeFirstWins(results...), nil
}

// runLeafTasks runs n tasks on the pool and waits for all of them. A task
// that cannot be submitted is recorded in errs at its index.
func runLeafTasks(pool *ants.Pool, n int, errs []error, task func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		run := func() {
			defer wg.Done()
			task(i)
		}
		if pool == nil {
			go run()
			continue
		}
		if err := pool.Submit(run); err != nil {
			errs[i] = fmt.Errorf("submit retrieval task: %w", err)
			wg.Done()
		}
	}
	wg.Wait()
}
