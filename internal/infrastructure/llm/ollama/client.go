package ollama

import (
	"net/http"
	"strings"
	"time"

	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	// Timeout bounds non-streaming calls. Streams rely on the caller context.
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, chatModel, embedModel string) *Client {
	return NewWithOptions(baseURL, chatModel, embedModel, Options{})
}

func NewWithOptions(baseURL, chatModel, embedModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}
