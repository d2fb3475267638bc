package usecase

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

func reflectWith(raw string, err error) domain.ReflectedQuerySet {
	model := &chatModelFake{complete: func(domain.GenerationRequest) (string, error) { return raw, err }}
	return NewQueryReflector(model, 0, nil).Reflect(context.Background(), "  thủ tục ly hôn  ", nil)
}

func TestReflectParsesQueries(t *testing.T) {
	got := reflectWith(`Đây là kết quả: ["thủ tục ly hôn đơn phương", "ly hôn thuận tình", " ", "thủ tục ly hôn đơn phương"] xong`, nil)

	want := []string{"thủ tục ly hôn đơn phương", "ly hôn thuận tình"}
	if !reflect.DeepEqual(got.Queries, want) {
		t.Fatalf("queries = %#v, want %#v", got.Queries, want)
	}
	if got.RerankQuery != want[0] {
		t.Fatalf("rerank query = %q", got.RerankQuery)
	}
	if got.OriginalMessage != "thủ tục ly hôn" {
		t.Fatalf("original message = %q", got.OriginalMessage)
	}
}

func TestReflectStripsReasoning(t *testing.T) {
	got := reflectWith(`<think>["nháp"]</think>["a", "b", "c"]`, nil)
	if !reflect.DeepEqual(got.Queries, []string{"a", "b", "c"}) {
		t.Fatalf("queries = %#v", got.Queries)
	}
}

func TestReflectKeepsBracketsInsideQueries(t *testing.T) {
	got := reflectWith(`Các truy vấn: ["Điều 5 [khoản 2] Luật Đất đai", "thời hạn sử dụng đất", "gia hạn quyền sử dụng đất"]`, nil)

	want := []string{"Điều 5 [khoản 2] Luật Đất đai", "thời hạn sử dụng đất", "gia hạn quyền sử dụng đất"}
	if !reflect.DeepEqual(got.Queries, want) {
		t.Fatalf("queries = %#v, want %#v", got.Queries, want)
	}
}

func TestReflectUnparsableUsesRawText(t *testing.T) {
	got := reflectWith("quy định về ly hôn", nil)
	if !reflect.DeepEqual(got.Queries, []string{"quy định về ly hôn"}) {
		t.Fatalf("queries = %#v", got.Queries)
	}
	if got.RerankQuery != "thủ tục ly hôn" {
		t.Fatalf("expected rerank query to fall back to the original message, got %q", got.RerankQuery)
	}
}

func TestReflectFallsBackToOriginalMessage(t *testing.T) {
	cases := map[string]domain.ReflectedQuerySet{
		"empty":       reflectWith("   ", nil),
		"error":       reflectWith("", errors.New("model down")),
		"too long":    reflectWith(strings.Repeat("x", reflectMaxRawRunes+1), nil),
		"empty array": reflectWith("[]", nil),
	}
	for name, got := range cases {
		if !reflect.DeepEqual(got.Queries, []string{"thủ tục ly hôn"}) || got.RerankQuery != "thủ tục ly hôn" {
			t.Fatalf("%s: unexpected fallback %#v", name, got)
		}
	}
}

func TestReflectUsesRecentHistory(t *testing.T) {
	model := &chatModelFake{complete: func(domain.GenerationRequest) (string, error) { return `["q"]`, nil }}
	history := make([]domain.ConversationTurn, 0, 6)
	for i := 0; i < 6; i++ {
		history = append(history, domain.ConversationTurn{Role: domain.RoleUser, Content: string(rune('a' + i))})
	}

	NewQueryReflector(model, 0, nil).Reflect(context.Background(), "hỏi", history)

	messages := model.completeCalls[0].Messages
	if len(messages) != 1+reflectHistoryTurns+1 {
		t.Fatalf("expected system, %d turns and question, got %d messages", reflectHistoryTurns, len(messages))
	}
	if messages[1].Content != "c" {
		t.Fatalf("expected history to start at the 4th most recent turn, got %q", messages[1].Content)
	}
}
