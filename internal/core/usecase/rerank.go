package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

const rerankPassageRunes = 1500

// RerankAdapter orders candidates with the cross-encoder. When the reranker
// is unavailable candidates keep retrieval order.
type RerankAdapter struct {
	reranker ports.Reranker
	timeout  time.Duration
	logger   *slog.Logger
}

func NewRerankAdapter(reranker ports.Reranker, timeout time.Duration, logger *slog.Logger) *RerankAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RerankAdapter{reranker: reranker, timeout: timeout, logger: logger}
}

// Rerank returns at most topK candidates sorted by descending rerank score.
// Equal scores keep their input order.
func (a *RerankAdapter) Rerank(ctx context.Context, query string, candidates []domain.CandidateDocument, topK int) []domain.CandidateDocument {
	if len(candidates) == 0 {
		return nil
	}

	out := make([]domain.CandidateDocument, len(candidates))
	copy(out, candidates)

	scores, err := a.score(ctx, query, out)
	if err != nil {
		a.logger.Warn("rerank_fallback", "candidates", len(out), "error", err)
		return trimCandidates(out, topK)
	}

	for i := range out {
		out[i].RerankScore = scores[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankScore > out[j].RerankScore
	})
	return trimCandidates(out, topK)
}

func (a *RerankAdapter) score(ctx context.Context, query string, candidates []domain.CandidateDocument) ([]float64, error) {
	if a.reranker == nil {
		return nil, fmt.Errorf("reranker is not configured")
	}

	passages := make([]string, len(candidates))
	for i, candidate := range candidates {
		passages[i] = rerankPassage(candidate)
	}

	callCtx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	scores, err := a.reranker.Score(callCtx, query, passages)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("reranker returned %d scores for %d passages", len(scores), len(candidates))
	}
	return scores, nil
}

func rerankPassage(candidate domain.CandidateDocument) string {
	parts := make([]string, 0, 3)
	if title := strings.TrimSpace(candidate.Title); title != "" {
		parts = append(parts, title)
	}
	if path := strings.TrimSpace(candidate.HierarchyPath); path != "" {
		parts = append(parts, path)
	}
	parts = append(parts, truncateRunes(strings.TrimSpace(candidate.Content), rerankPassageRunes))
	return strings.Join(parts, "\n")
}
