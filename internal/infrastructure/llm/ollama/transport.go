package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
)

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	call := func(callCtx context.Context) error {
		resp, err := c.do(callCtx, c.httpClient, path, body, operation)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded("ollama "+operation, err)
}

// openStream returns the live response of a streaming call. The caller owns
// the body. The client timeout is not applied so that long answers are not
// cut off; the caller context bounds the stream.
func (c *Client) openStream(ctx context.Context, path string, payload any, operation string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", operation, err)
	}

	streamClient := &http.Client{Transport: c.httpClient.Transport}
	var resp *http.Response
	call := func(callCtx context.Context) error {
		r, err := c.do(callCtx, streamClient, path, body, operation)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	if c.executor != nil {
		err = c.executor.ExecuteUnbounded(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama "+operation, err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, path string, body []byte, operation string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama %s request: %w", operation, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, resilience.NewHTTPStatusError(serviceName, operation, resp)
	}
	return resp, nil
}
