package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIPort   string
	LogLevel  string
	LogFormat string

	CORSAllowedOrigins  []string
	APIRateLimitRPS     float64
	APIRateLimitBurst   int
	APIMaxInFlight      int
	APIBackpressureWait time.Duration
	ChatRequestTimeout  time.Duration

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	WebCacheTTL   time.Duration

	LLMProvider   string
	EmbedProvider string

	OllamaURL        string
	OllamaChatModel  string
	OllamaEmbedModel string

	OpenAIBaseURL    string
	OpenAIAPIKey     string
	OpenAIChatModel  string
	OpenAIEmbedModel string

	QdrantURL       string
	QdrantAPIKey    string
	CollectionsFile string
	LawCollections  []string

	RerankURL    string
	RerankModel  string
	RerankAPIKey string

	TavilyAPIKey      string
	TavilyBaseURL     string
	TavilySearchDepth string
	WebIncludeDomains []string

	RetrievalTopK      int
	PrefetchFactor     int
	RerankTopK         int
	HybridRerankTopK   int
	SelectionThreshold float64
	SelectionCap       int
	CurateTopK         int
	WebQueries         int
	HybridWebQueries   int
	WebResultsPerQuery int
	ContextDocRunes    int
	MaxTokens          int
	ReducedMaxTokens   int
	Temperature        float64
	WorkerPoolSize     int

	RouterTimeout    time.Duration
	ReflectTimeout   time.Duration
	EmbedTimeout     time.Duration
	SearchTimeout    time.Duration
	RerankTimeout    time.Duration
	SelectTimeout    time.Duration
	WebSearchTimeout time.Duration
	GenerateTimeout  time.Duration
	LookupTimeout    time.Duration
	PublishTimeout   time.Duration

	UpstreamRetryMaxAttempts int
	UpstreamBreakerEnabled   bool
	UpstreamAttemptTimeout   time.Duration

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:   mustEnv("API_PORT", "8080"),
		LogLevel:  mustEnv("LOG_LEVEL", "info"),
		LogFormat: mustEnv("LOG_FORMAT", "json"),

		CORSAllowedOrigins:  mustEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		APIRateLimitRPS:     mustEnvFloat("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst:   mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:      mustEnvInt("API_MAX_IN_FLIGHT", 32),
		APIBackpressureWait: mustEnvDuration("API_BACKPRESSURE_WAIT", 250*time.Millisecond),
		ChatRequestTimeout:  mustEnvDuration("CHAT_REQUEST_TIMEOUT", 5*time.Minute),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "legal.interactions"),

		RedisAddr:     mustEnv("REDIS_ADDR", ""),
		RedisPassword: mustEnv("REDIS_PASSWORD", ""),
		RedisDB:       mustEnvInt("REDIS_DB", 0),
		WebCacheTTL:   mustEnvDuration("WEB_CACHE_TTL", time.Hour),

		LLMProvider:   strings.ToLower(mustEnv("LLM_PROVIDER", "ollama")),
		EmbedProvider: strings.ToLower(mustEnv("EMBED_PROVIDER", "ollama")),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaChatModel:  mustEnv("OLLAMA_CHAT_MODEL", "qwen3:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "bge-m3"),

		OpenAIBaseURL:    mustEnv("OPENAI_BASE_URL", "http://localhost:8000/v1"),
		OpenAIAPIKey:     mustEnv("OPENAI_API_KEY", ""),
		OpenAIChatModel:  mustEnv("OPENAI_CHAT_MODEL", "Qwen/Qwen3-8B"),
		OpenAIEmbedModel: mustEnv("OPENAI_EMBED_MODEL", "BAAI/bge-m3"),

		QdrantURL:       mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:    mustEnv("QDRANT_API_KEY", ""),
		CollectionsFile: mustEnv("COLLECTIONS_FILE", ""),
		LawCollections:  mustEnvList("LAW_COLLECTIONS", []string{"phapdien", "vbqppl"}),

		RerankURL:    mustEnv("RERANK_URL", ""),
		RerankModel:  mustEnv("RERANK_MODEL", ""),
		RerankAPIKey: mustEnv("RERANK_API_KEY", ""),

		TavilyAPIKey:      mustEnv("TAVILY_API_KEY", ""),
		TavilyBaseURL:     mustEnv("TAVILY_BASE_URL", ""),
		TavilySearchDepth: mustEnv("TAVILY_SEARCH_DEPTH", "basic"),
		WebIncludeDomains: mustEnvList("WEB_INCLUDE_DOMAINS", nil),

		RetrievalTopK:      mustEnvInt("RETRIEVAL_TOP_K", 5),
		PrefetchFactor:     mustEnvInt("RETRIEVAL_PREFETCH_FACTOR", 10),
		RerankTopK:         mustEnvInt("RERANK_TOP_K", 10),
		HybridRerankTopK:   mustEnvInt("HYBRID_RERANK_TOP_K", 10),
		SelectionThreshold: mustEnvFloat("SELECTION_THRESHOLD", 0.75),
		SelectionCap:       mustEnvInt("SELECTION_CAP", 10),
		CurateTopK:         mustEnvInt("SELECTION_CURATE_TOP_K", 5),
		WebQueries:         mustEnvInt("WEB_QUERIES", 3),
		HybridWebQueries:   mustEnvInt("HYBRID_WEB_QUERIES", 2),
		WebResultsPerQuery: mustEnvInt("WEB_RESULTS_PER_QUERY", 5),
		ContextDocRunes:    mustEnvInt("CONTEXT_DOC_RUNES", 3000),
		MaxTokens:          mustEnvInt("GENERATION_MAX_TOKENS", 2048),
		ReducedMaxTokens:   mustEnvInt("GENERATION_REDUCED_MAX_TOKENS", 512),
		Temperature:        mustEnvFloat("GENERATION_TEMPERATURE", 0.3),
		WorkerPoolSize:     mustEnvInt("WORKER_POOL_SIZE", 16),

		RouterTimeout:    mustEnvDuration("ROUTER_TIMEOUT", 10*time.Second),
		ReflectTimeout:   mustEnvDuration("REFLECT_TIMEOUT", 20*time.Second),
		EmbedTimeout:     mustEnvDuration("EMBED_TIMEOUT", 10*time.Second),
		SearchTimeout:    mustEnvDuration("SEARCH_TIMEOUT", 10*time.Second),
		RerankTimeout:    mustEnvDuration("RERANK_TIMEOUT", 15*time.Second),
		SelectTimeout:    mustEnvDuration("SELECT_TIMEOUT", 20*time.Second),
		WebSearchTimeout: mustEnvDuration("WEB_SEARCH_TIMEOUT", 15*time.Second),
		GenerateTimeout:  mustEnvDuration("GENERATE_TIMEOUT", 2*time.Minute),
		LookupTimeout:    mustEnvDuration("LOOKUP_TIMEOUT", 3*time.Second),
		PublishTimeout:   mustEnvDuration("PUBLISH_TIMEOUT", 2*time.Second),

		UpstreamRetryMaxAttempts: mustEnvInt("UPSTREAM_RETRY_MAX_ATTEMPTS", 3),
		UpstreamBreakerEnabled:   mustEnvBool("UPSTREAM_BREAKER_ENABLED", true),
		UpstreamAttemptTimeout:   mustEnvDuration("UPSTREAM_ATTEMPT_TIMEOUT", 0),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// mustEnvList splits a comma separated value, dropping blanks.
func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
