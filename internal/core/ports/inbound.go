package ports

import (
	"context"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

// EventSink receives answer stream events in order. A returned error aborts
// the pipeline, typically because the client went away.
type EventSink func(domain.Event) error

// ChatService is the inbound contract for the retrieval-and-answer pipeline.
type ChatService interface {
	Stream(ctx context.Context, req domain.ChatRequest, emit EventSink) (domain.ChatOutcome, error)
}

// DocumentReader is the inbound read model for single document lookup.
type DocumentReader interface {
	GetDocument(ctx context.Context, id string) (*domain.CandidateDocument, error)
}
