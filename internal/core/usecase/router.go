package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

const (
	routerHistoryTurns = 2
	routerTurnRunes    = 100
)

// IntentRouter decides whether a message needs legal retrieval at all.
type IntentRouter struct {
	model   ports.ChatModel
	timeout time.Duration
}

func NewIntentRouter(model ports.ChatModel, timeout time.Duration) *IntentRouter {
	return &IntentRouter{model: model, timeout: timeout}
}

func (r *IntentRouter) Route(ctx context.Context, message string, history []domain.ConversationTurn) (domain.Intent, error) {
	messages := make([]domain.ChatMessage, 0, 2+2*len(routerFewShot))
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: routerSystemPrompt})
	for _, example := range routerFewShot {
		messages = append(messages,
			domain.ChatMessage{Role: domain.RoleUser, Content: example[0]},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: example[1]},
		)
	}
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: routerInput(message, history)})

	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.model.Complete(callCtx, domain.GenerationRequest{
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   16,
	})
	if err != nil {
		return "", fmt.Errorf("route intent: %w", err)
	}
	return parseIntent(raw), nil
}

func routerInput(message string, history []domain.ConversationTurn) string {
	recent := domain.RecentTurns(history, routerHistoryTurns)
	if len(recent) == 0 {
		return message
	}

	var b strings.Builder
	b.WriteString("Lịch sử gần đây:\n")
	for _, turn := range recent {
		content := strings.Join(strings.Fields(turn.Content), " ")
		fmt.Fprintf(&b, "- %s: %s\n", turn.Role, truncateRunes(content, routerTurnRunes))
	}
	b.WriteString("\nCâu hỏi hiện tại: ")
	b.WriteString(message)
	return b.String()
}

// parseIntent maps anything that is not explicitly NON_LEGAL to LEGAL.
func parseIntent(raw string) domain.Intent {
	normalized := strings.ToUpper(stripReasoning(raw))
	if strings.Contains(normalized, "NON_LEGAL") || strings.Contains(normalized, "NON LEGAL") {
		return domain.IntentNonLegal
	}
	return domain.IntentLegal
}
