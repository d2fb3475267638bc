package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder produces dense query vectors through an OpenAI-compatible
// /embeddings endpoint.
type Embedder struct {
	embedder embeddings.Embedder
	executor *resilience.Executor
}

func NewEmbedder(cfg Config, executor *resilience.Executor) (*Embedder, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "openai embedder", errors.New("model is required"))
	}
	client, err := openai.New(
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithToken(tokenOrNone(cfg.APIKey)),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &Embedder{embedder: embedder, executor: executor}, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	call := func(callCtx context.Context) error {
		v, err := e.embedder.EmbedQuery(callCtx, text)
		if err != nil {
			return err
		}
		vector = v
		return nil
	}

	var err error
	if e.executor != nil {
		err = e.executor.Execute(ctx, "openai.embed", call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapError("openai embed", err)
	}
	if len(vector) == 0 {
		return nil, errors.New("openai embed returned empty vector")
	}
	return vector, nil
}
