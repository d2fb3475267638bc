// Package openai adapts OpenAI-compatible chat and embedding endpoints
// (vLLM, LiteLLM, hosted OpenAI) through langchaingo.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// ChatModel implements ports.ChatModel on top of a langchaingo model.
type ChatModel struct {
	model    llms.Model
	executor *resilience.Executor
}

func NewChatModel(cfg Config, executor *resilience.Executor) (*ChatModel, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "openai chat model", errors.New("model is required"))
	}
	client, err := openai.New(
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithToken(tokenOrNone(cfg.APIKey)),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai chat client: %w", err)
	}
	return &ChatModel{model: client, executor: executor}, nil
}

func (m *ChatModel) Complete(ctx context.Context, req domain.GenerationRequest) (string, error) {
	var text string
	call := func(callCtx context.Context) error {
		resp, err := m.model.GenerateContent(callCtx, toMessageContent(req.Messages), callOptions(req)...)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("openai chat returned no choices")
		}
		text = resp.Choices[0].Content
		return nil
	}

	if err := m.run(ctx, "openai.chat", call); err != nil {
		return "", wrapError("openai chat", err)
	}
	return strings.TrimSpace(text), nil
}

func (m *ChatModel) Stream(ctx context.Context, req domain.GenerationRequest, onChunk func(string) error) error {
	delivered := false
	call := func(callCtx context.Context) error {
		opts := append(callOptions(req), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			delivered = true
			return onChunk(string(chunk))
		}))
		_, err := m.model.GenerateContent(callCtx, toMessageContent(req.Messages), opts...)
		return err
	}

	classifier := func(err error) resilience.ErrorClassification {
		class := classifyOpenAIError(err)
		if delivered {
			class.Retryable = false
		}
		return class
	}
	if m.executor != nil {
		return wrapError("openai chat stream", m.executor.ExecuteUnbounded(ctx, "openai.chat_stream", call, classifier))
	}
	return wrapError("openai chat stream", call(ctx))
}

func (m *ChatModel) run(ctx context.Context, operation string, call func(context.Context) error) error {
	if m.executor == nil {
		return call(ctx)
	}
	return m.executor.Execute(ctx, operation, call, classifyOpenAIError)
}

func callOptions(req domain.GenerationRequest) []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	return opts
}

func toMessageContent(messages []domain.ChatMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case domain.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case domain.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, msg.Content))
	}
	return out
}

func tokenOrNone(key string) string {
	if strings.TrimSpace(key) == "" {
		return "none"
	}
	return key
}
