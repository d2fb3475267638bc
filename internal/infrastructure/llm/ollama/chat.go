package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/infrastructure/llm"
)

// ChatModel talks to the native /api/chat endpoint.
type ChatModel struct {
	client *Client
}

func NewChatModel(client *Client) *ChatModel {
	return &ChatModel{client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

func (m *ChatModel) Complete(ctx context.Context, req domain.GenerationRequest) (string, error) {
	var response chatResponse
	if err := m.client.postJSON(ctx, "/api/chat", m.buildRequest(req, false), &response, "chat"); err != nil {
		return "", llm.WrapOverflow("ollama chat", err)
	}
	if response.Error != "" {
		return "", llm.WrapOverflow("ollama chat", errors.New(response.Error))
	}
	return strings.TrimSpace(response.Message.Content), nil
}

func (m *ChatModel) Stream(ctx context.Context, req domain.GenerationRequest, onChunk func(string) error) error {
	resp, err := m.client.openStream(ctx, "/api/chat", m.buildRequest(req, true), "chat_stream")
	if err != nil {
		return llm.WrapOverflow("ollama chat stream", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("decode chat stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return llm.WrapOverflow("ollama chat stream", errors.New(chunk.Error))
		}
		if chunk.Message.Content != "" {
			if err := onChunk(chunk.Message.Content); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return wrapTemporaryIfNeeded("ollama chat stream", fmt.Errorf("read chat stream: %w", err))
	}
	return nil
}

func (m *ChatModel) buildRequest(req domain.GenerationRequest, stream bool) chatRequest {
	messages := make([]chatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	return chatRequest{
		Model:    m.client.chatModel,
		Messages: messages,
		Stream:   stream,
		Options:  options,
	}
}
