package bootstrap

import (
	"fmt"

	"github.com/lexvn/legal-assistant/internal/config"
	"github.com/lexvn/legal-assistant/internal/core/ports"
	"github.com/lexvn/legal-assistant/internal/infrastructure/llm/ollama"
	"github.com/lexvn/legal-assistant/internal/infrastructure/llm/openai"
	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
)

const (
	providerOllama = "ollama"
	providerOpenAI = "openai"
)

func newChatModel(cfg config.Config, executor *resilience.Executor) (ports.ChatModel, error) {
	switch cfg.LLMProvider {
	case providerOllama, "":
		return ollama.NewChatModel(ollamaClient(cfg, executor)), nil
	case providerOpenAI:
		model, err := openai.NewChatModel(openai.Config{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIChatModel,
		}, executor)
		if err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func newDenseEmbedder(cfg config.Config, executor *resilience.Executor) (ports.DenseEmbedder, error) {
	switch cfg.EmbedProvider {
	case providerOllama, "":
		return ollama.NewEmbedder(ollamaClient(cfg, executor)), nil
	case providerOpenAI:
		embedder, err := openai.NewEmbedder(openai.Config{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIEmbedModel,
		}, executor)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("unknown EMBED_PROVIDER %q", cfg.EmbedProvider)
	}
}

func ollamaClient(cfg config.Config, executor *resilience.Executor) *ollama.Client {
	return ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaChatModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout:            cfg.GenerateTimeout,
		ResilienceExecutor: executor,
	})
}
