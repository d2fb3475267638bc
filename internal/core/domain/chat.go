package domain

import (
	"fmt"
	"strings"
	"time"
)

type PipelineMode string

const (
	ModeAuto   PipelineMode = "AUTO"
	ModeLawDB  PipelineMode = "LAW_DB"
	ModeWeb    PipelineMode = "WEB"
	ModeHybrid PipelineMode = "HYBRID"
)

// ParsePipelineMode accepts the mode case-insensitively; empty means AUTO.
func ParsePipelineMode(raw string) (PipelineMode, error) {
	switch mode := PipelineMode(strings.ToUpper(strings.TrimSpace(raw))); mode {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeLawDB, ModeWeb, ModeHybrid:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, raw)
	}
}

type Intent string

const (
	IntentLegal    Intent = "LEGAL"
	IntentNonLegal Intent = "NON_LEGAL"
)

type SelectionPath string

const (
	SelectionNone           SelectionPath = "none"
	SelectionHighConfidence SelectionPath = "high_confidence"
	SelectionLLMCurated     SelectionPath = "llm_curated"
	SelectionFallbackTopK   SelectionPath = "fallback_topk"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RecentTurns returns at most the last n turns.
func RecentTurns(history []ConversationTurn, n int) []ConversationTurn {
	if n <= 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

type ChatRequest struct {
	RequestID string
	Message   string
	History   []ConversationTurn
	Mode      PipelineMode
}

// ReflectedQuerySet is the outcome of query reflection. Queries is never
// empty and RerankQuery is never blank.
type ReflectedQuerySet struct {
	OriginalMessage string
	Queries         []string
	RerankQuery     string
}

type ChatMessage struct {
	Role    Role
	Content string
}

type GenerationRequest struct {
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

const (
	OutcomeAnswered  = "answered"
	OutcomeNoResults = "no_results"
	OutcomeFailed    = "failed"
)

// ChatOutcome summarizes a finished pipeline run for metrics and auditing.
type ChatOutcome struct {
	Mode            PipelineMode
	Intent          Intent
	Status          string
	QueryCount      int
	CandidateCount  int
	SelectionPath   SelectionPath
	UsedDocIDs      []string
	OverflowRetried bool
}

// InteractionRecord is published after every answered request.
type InteractionRecord struct {
	ID              string        `json:"id"`
	RequestID       string        `json:"request_id,omitempty"`
	Question        string        `json:"question"`
	Mode            PipelineMode  `json:"mode"`
	Intent          Intent        `json:"intent"`
	QueryCount      int           `json:"query_count"`
	CandidateCount  int           `json:"candidate_count"`
	SelectionPath   SelectionPath `json:"selection_path"`
	UsedDocIDs      []string      `json:"used_doc_ids"`
	OverflowRetried bool          `json:"overflow_retried"`
	Status          string        `json:"status"`
	DurationMS      int64         `json:"duration_ms"`
	CreatedAt       time.Time     `json:"created_at"`
}
