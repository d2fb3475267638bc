package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

func rankedDocs(scores ...float64) []domain.CandidateDocument {
	out := make([]domain.CandidateDocument, 0, len(scores))
	for i, score := range scores {
		doc := lawDoc(fmt.Sprintf("id_%d", i+1), "nội dung", 0)
		doc.RerankScore = score
		out = append(out, doc)
	}
	return out
}

func selectedIDs(docs []domain.CandidateDocument) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.ID)
	}
	return out
}

func TestSelectRelevantThresholdIsExclusive(t *testing.T) {
	model := &chatModelFake{complete: func(domain.GenerationRequest) (string, error) { return `["doc_2"]`, nil }}
	gate := NewSelectionGate(model, SelectionConfig{}, nil)

	selected, path := gate.SelectRelevant(context.Background(), "q", rankedDocs(0.75, 0.7, 0.1))
	assert.Equal(t, domain.SelectionLLMCurated, path)
	assert.Equal(t, []string{"id_2"}, selectedIDs(selected))
	assert.Len(t, model.completeCalls, 1)

	selected, path = gate.SelectRelevant(context.Background(), "q", rankedDocs(0.7500001, 0.75, 0.1))
	assert.Equal(t, domain.SelectionHighConfidence, path)
	assert.Equal(t, []string{"id_1"}, selectedIDs(selected))
	assert.Len(t, model.completeCalls, 1, "high confidence must not call the model")
}

func TestSelectRelevantCapsHighConfidence(t *testing.T) {
	scores := make([]float64, 12)
	for i := range scores {
		scores[i] = 0.99 - float64(i)*0.01
	}
	gate := NewSelectionGate(nil, SelectionConfig{}, nil)

	selected, path := gate.SelectRelevant(context.Background(), "q", rankedDocs(scores...))
	assert.Equal(t, domain.SelectionHighConfidence, path)
	assert.Len(t, selected, defaultSelectCap)
}

func TestSelectRelevantAcceptsRealIDs(t *testing.T) {
	model := &chatModelFake{complete: func(domain.GenerationRequest) (string, error) {
		return `<think>...</think>Kết quả: ["ID_3", "doc_1", "unknown"]`, nil
	}}
	gate := NewSelectionGate(model, SelectionConfig{}, nil)

	selected, path := gate.SelectRelevant(context.Background(), "q", rankedDocs(0.5, 0.4, 0.3, 0.2))
	assert.Equal(t, domain.SelectionLLMCurated, path)
	assert.Equal(t, []string{"id_1", "id_3"}, selectedIDs(selected))
}

func TestSelectRelevantSkipsBracketedProse(t *testing.T) {
	model := &chatModelFake{complete: func(domain.GenerationRequest) (string, error) {
		return `Theo [tiêu chí liên quan] đã nêu, chọn: ["doc_2", "doc_4"]`, nil
	}}
	gate := NewSelectionGate(model, SelectionConfig{}, nil)

	selected, path := gate.SelectRelevant(context.Background(), "q", rankedDocs(0.5, 0.4, 0.3, 0.2))
	assert.Equal(t, domain.SelectionLLMCurated, path)
	assert.Equal(t, []string{"id_2", "id_4"}, selectedIDs(selected))
}

func TestSelectRelevantFallsBackToTopK(t *testing.T) {
	cases := map[string]func(domain.GenerationRequest) (string, error){
		"error":      func(domain.GenerationRequest) (string, error) { return "", errors.New("down") },
		"unparsable": func(domain.GenerationRequest) (string, error) { return "doc_1 và doc_2", nil },
		"empty":      func(domain.GenerationRequest) (string, error) { return "[]", nil },
		"no match":   func(domain.GenerationRequest) (string, error) { return `["doc_99"]`, nil },
	}

	for name, complete := range cases {
		t.Run(name, func(t *testing.T) {
			gate := NewSelectionGate(&chatModelFake{complete: complete}, SelectionConfig{CurateTopK: 3}, nil)
			selected, path := gate.SelectRelevant(context.Background(), "q", rankedDocs(0.5, 0.4, 0.3, 0.2, 0.1))
			assert.Equal(t, domain.SelectionFallbackTopK, path)
			assert.Equal(t, []string{"id_1", "id_2", "id_3"}, selectedIDs(selected))
		})
	}
}

func TestSelectRelevantEmptyInput(t *testing.T) {
	selected, path := NewSelectionGate(nil, SelectionConfig{}, nil).SelectRelevant(context.Background(), "q", nil)
	assert.Empty(t, selected)
	assert.Equal(t, domain.SelectionNone, path)
}

func TestSelectionPromptListsStableLabels(t *testing.T) {
	model := &chatModelFake{complete: func(domain.GenerationRequest) (string, error) { return `["doc_1"]`, nil }}
	gate := NewSelectionGate(model, SelectionConfig{}, nil)
	gate.SelectRelevant(context.Background(), "thời gian làm việc", rankedDocs(0.2, 0.1))

	require.Len(t, model.completeCalls, 1)
	system := systemPromptOf(model.completeCalls[0])
	assert.Contains(t, system, "[ID: doc_1]")
	assert.Contains(t, system, "[ID: doc_2]")
	assert.Contains(t, model.completeCalls[0].Messages[1].Content, "thời gian làm việc")
}
