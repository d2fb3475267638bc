package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

const (
	reflectHistoryTurns = 4
	reflectMaxQueries   = 5
	reflectMaxRawRunes  = 500
)

// QueryReflector rewrites a conversational message into standalone search
// queries. It never fails: every error path degrades to the original message.
type QueryReflector struct {
	model   ports.ChatModel
	timeout time.Duration
	logger  *slog.Logger
}

func NewQueryReflector(model ports.ChatModel, timeout time.Duration, logger *slog.Logger) *QueryReflector {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryReflector{model: model, timeout: timeout, logger: logger}
}

func (r *QueryReflector) Reflect(ctx context.Context, message string, history []domain.ConversationTurn) domain.ReflectedQuerySet {
	message = strings.TrimSpace(message)
	fallback := domain.ReflectedQuerySet{
		OriginalMessage: message,
		Queries:         []string{message},
		RerankQuery:     message,
	}

	messages := []domain.ChatMessage{{Role: domain.RoleSystem, Content: reflectSystemPrompt}}
	messages = append(messages, historyMessages(domain.RecentTurns(history, reflectHistoryTurns))...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: message})

	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.model.Complete(callCtx, domain.GenerationRequest{
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   256,
	})
	if err != nil {
		r.logger.Warn("query_reflection_failed", "error", err)
		return fallback
	}

	raw = stripReasoning(raw)
	if items, ok := parseStringArray(raw); ok {
		queries := normalizeQueries(items)
		if len(queries) == 0 {
			r.logger.Warn("query_reflection_empty")
			return fallback
		}
		return domain.ReflectedQuerySet{
			OriginalMessage: message,
			Queries:         queries,
			RerankQuery:     queries[0],
		}
	}

	r.logger.Warn("query_reflection_unparsable", "response_runes", utf8.RuneCountInString(raw))
	if raw != "" && utf8.RuneCountInString(raw) <= reflectMaxRawRunes {
		fallback.Queries = []string{raw}
	}
	return fallback
}

func normalizeQueries(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		query := strings.Join(strings.Fields(item), " ")
		if query == "" {
			continue
		}
		key := strings.ToLower(query)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, query)
		if len(out) == reflectMaxQueries {
			break
		}
	}
	return out
}
