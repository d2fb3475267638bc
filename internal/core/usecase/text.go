package usecase

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

var reasoningBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripReasoning removes <think> blocks emitted by reasoning models. An
// unclosed block swallows the rest of the text.
func stripReasoning(text string) string {
	text = reasoningBlockPattern.ReplaceAllString(text, "")
	if idx := strings.Index(text, "<think>"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// parseStringArray decodes the first JSON array of strings found in raw.
// Brackets inside the strings themselves are allowed.
func parseStringArray(raw string) ([]string, bool) {
	for offset := 0; offset < len(raw); {
		idx := strings.IndexByte(raw[offset:], '[')
		if idx < 0 {
			return nil, false
		}
		start := offset + idx
		var items []string
		if err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&items); err == nil {
			return items, true
		}
		offset = start + 1
	}
	return nil, false
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// historyMessages converts turns to chat messages. Anything that is not an
// assistant turn is replayed as a user turn so that history cannot inject
// system instructions.
func historyMessages(history []domain.ConversationTurn) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(history))
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		role := domain.RoleUser
		if turn.Role == domain.RoleAssistant {
			role = domain.RoleAssistant
		}
		out = append(out, domain.ChatMessage{Role: role, Content: content})
	}
	return out
}
