package ports

import (
	"context"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

// DenseEmbedder builds the dense query vector.
type DenseEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SparseEncoder builds the lexical query vector. It is local and cannot fail.
type SparseEncoder interface {
	EncodeQuery(text string) domain.SparseVector
}

// HybridSearcher runs one fused dense+sparse query against a collection.
type HybridSearcher interface {
	HybridSearch(ctx context.Context, collection string, query domain.HybridQuery) ([]domain.CandidateDocument, error)
}

// Reranker scores passages against a query. Scores are aligned with passages.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// ChatModel is the generative model. Stream delivers text fragments to
// onChunk in order; an error returned by onChunk stops the stream.
type ChatModel interface {
	Complete(ctx context.Context, req domain.GenerationRequest) (string, error)
	Stream(ctx context.Context, req domain.GenerationRequest, onChunk func(string) error) error
}

// WebSearcher queries an external web search service.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.CandidateDocument, error)
}

// DocumentStore resolves a document by identifier. Missing documents are
// reported with domain.ErrDocumentNotFound.
type DocumentStore interface {
	FindByID(ctx context.Context, id string) (*domain.CandidateDocument, error)
}

// ReferenceSource returns statute cross-references keyed by article id.
// Articles without references are absent from the map.
type ReferenceSource interface {
	FindReferences(ctx context.Context, ids []string) (map[string]domain.ArticleReferences, error)
}

// InteractionPublisher emits interaction records for offline analysis.
type InteractionPublisher interface {
	PublishInteraction(ctx context.Context, record domain.InteractionRecord) error
}
