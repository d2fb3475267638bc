package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

const (
	defaultSelectThreshold = 0.75
	defaultSelectCap       = 10
	defaultCurateTopK      = 5
	selectSnippetRunes     = 800
)

type SelectionConfig struct {
	// Threshold is exclusive: a score equal to it is not high confidence.
	Threshold float64
	// HighConfidenceCap bounds the high-confidence path.
	HighConfidenceCap int
	// CurateTopK bounds the candidates shown to the model and the fallback.
	CurateTopK int
	Timeout    time.Duration
}

// SelectionGate picks the documents that reach the answer prompt.
type SelectionGate struct {
	model  ports.ChatModel
	cfg    SelectionConfig
	logger *slog.Logger
}

func NewSelectionGate(model ports.ChatModel, cfg SelectionConfig, logger *slog.Logger) *SelectionGate {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultSelectThreshold
	}
	if cfg.HighConfidenceCap <= 0 {
		cfg.HighConfidenceCap = defaultSelectCap
	}
	if cfg.CurateTopK <= 0 {
		cfg.CurateTopK = defaultCurateTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SelectionGate{model: model, cfg: cfg, logger: logger}
}

// SelectRelevant expects candidates sorted by descending rerank score.
func (g *SelectionGate) SelectRelevant(ctx context.Context, query string, ranked []domain.CandidateDocument) ([]domain.CandidateDocument, domain.SelectionPath) {
	if len(ranked) == 0 {
		return nil, domain.SelectionNone
	}

	if ranked[0].RerankScore > g.cfg.Threshold {
		selected := make([]domain.CandidateDocument, 0, g.cfg.HighConfidenceCap)
		for _, candidate := range ranked {
			if candidate.RerankScore <= g.cfg.Threshold {
				continue
			}
			selected = append(selected, candidate)
			if len(selected) == g.cfg.HighConfidenceCap {
				break
			}
		}
		return selected, domain.SelectionHighConfidence
	}

	top := trimCandidates(ranked, g.cfg.CurateTopK)
	curated, err := g.curate(ctx, query, top)
	if err != nil {
		g.logger.Warn("selection_fallback", "candidates", len(top), "error", err)
		return top, domain.SelectionFallbackTopK
	}
	if len(curated) == 0 {
		return top, domain.SelectionFallbackTopK
	}
	return curated, domain.SelectionLLMCurated
}

func (g *SelectionGate) curate(ctx context.Context, query string, top []domain.CandidateDocument) ([]domain.CandidateDocument, error) {
	if g.model == nil {
		return nil, fmt.Errorf("selection model is not configured")
	}

	callCtx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	raw, err := g.model.Complete(callCtx, domain.GenerationRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: fmt.Sprintf(selectSystemPrompt, formatSelectionList(top))},
			{Role: domain.RoleUser, Content: fmt.Sprintf(selectUserPrompt, query)},
		},
		Temperature: 0,
		MaxTokens:   128,
	})
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}

	ids, ok := parseStringArray(stripReasoning(raw))
	if !ok {
		return nil, fmt.Errorf("selection response is not a JSON list")
	}
	return intersectSelection(top, ids), nil
}

func selectionLabel(i int) string {
	return fmt.Sprintf("doc_%d", i+1)
}

func formatSelectionList(candidates []domain.CandidateDocument) string {
	var b strings.Builder
	for i, candidate := range candidates {
		fmt.Fprintf(&b, "[ID: %s]\n", selectionLabel(i))
		if candidate.Title != "" {
			fmt.Fprintf(&b, "TÊN_VĂN_BẢN: %s\n", candidate.Title)
		}
		if candidate.HierarchyPath != "" {
			fmt.Fprintf(&b, "ĐƯỜNG_DẪN: %s\n", candidate.HierarchyPath)
		}
		fmt.Fprintf(&b, "NỘI_DUNG: %s\n\n", truncateRunes(strings.TrimSpace(candidate.Content), selectSnippetRunes))
	}
	return strings.TrimSpace(b.String())
}

// intersectSelection keeps candidates named by the model in rerank order.
// The model may answer with the list labels or with the real document ids.
func intersectSelection(top []domain.CandidateDocument, ids []string) []domain.CandidateDocument {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}

	out := make([]domain.CandidateDocument, 0, len(top))
	for i, candidate := range top {
		_, byLabel := wanted[selectionLabel(i)]
		_, byID := wanted[strings.ToLower(candidate.ID)]
		if byLabel || (candidate.ID != "" && byID) {
			out = append(out, candidate)
		}
	}
	return out
}
