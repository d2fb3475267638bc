package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/lexvn/legal-assistant/internal/config"
	"github.com/lexvn/legal-assistant/internal/core/ports"
	"github.com/lexvn/legal-assistant/internal/core/usecase"
	rediscache "github.com/lexvn/legal-assistant/internal/infrastructure/cache/redis"
	"github.com/lexvn/legal-assistant/internal/infrastructure/docstore"
	"github.com/lexvn/legal-assistant/internal/infrastructure/queue/nats"
	"github.com/lexvn/legal-assistant/internal/infrastructure/repository/postgres"
	"github.com/lexvn/legal-assistant/internal/infrastructure/rerank"
	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
	"github.com/lexvn/legal-assistant/internal/infrastructure/vector/qdrant"
	"github.com/lexvn/legal-assistant/internal/infrastructure/websearch/tavily"
)

const redisConnectAttempts = 3

type App struct {
	Config config.Config

	Chat      ports.ChatService
	Documents ports.DocumentReader

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	executor := resilience.NewExecutor(resilienceConfig(cfg))

	collections, err := config.LoadCollections(cfg.CollectionsFile, cfg.LawCollections)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	collectionNames := config.CollectionNames(collections)

	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("init worker pool: %w", err)
	}
	app.onClose(pool.Release)

	// Generation calls run once per request; the breaker still applies.
	chatModel, err := newChatModel(cfg, resilience.NewExecutor(generationResilienceConfig(cfg)))
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	embedder, err := newDenseEmbedder(cfg, executor)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	vectorDB := qdrant.New(cfg.QdrantURL, qdrant.Options{
		APIKey:             cfg.QdrantAPIKey,
		ResilienceExecutor: executor,
		Fields:             payloadFields(collections),
	})

	var stores []ports.DocumentStore
	var references ports.ReferenceSource
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.onClose(func() { _ = db.Close() })
		repo := postgres.NewDocumentRepository(db)
		stores = append(stores, repo)
		references = repo
	}
	stores = append(stores, qdrant.NewPayloadLookup(vectorDB, collectionNames))
	documentStore := docstore.NewChain(stores...)

	var reranker ports.Reranker = rerank.NewLexical()
	if cfg.RerankURL != "" {
		reranker = rerank.NewClient(cfg.RerankURL, rerank.Options{
			Model:              cfg.RerankModel,
			APIKey:             cfg.RerankAPIKey,
			ResilienceExecutor: executor,
		})
	} else {
		logger.Info("rerank_lexical_fallback", "reason", "RERANK_URL is not set")
	}

	var webSearcher ports.WebSearcher = tavily.New(cfg.TavilyAPIKey, tavily.Options{
		BaseURL:            cfg.TavilyBaseURL,
		SearchDepth:        cfg.TavilySearchDepth,
		IncludeDomains:     cfg.WebIncludeDomains,
		ResilienceExecutor: executor,
	})
	if cfg.RedisAddr != "" {
		client, err := rediscache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisConnectAttempts, logger)
		if err != nil {
			logger.Warn("web_cache_disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			app.onClose(func() { _ = client.Close() })
			webSearcher = rediscache.NewWebSearchCache(webSearcher, client, cfg.WebCacheTTL, logger)
		}
	}

	var publisher ports.InteractionPublisher
	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.onClose(queue.Close)
		publisher = queue
	}

	router := usecase.NewIntentRouter(chatModel, cfg.RouterTimeout)
	reflector := usecase.NewQueryReflector(chatModel, cfg.ReflectTimeout, logger)
	retriever := usecase.NewHybridRetriever(embedder, qdrant.NewSparseEncoder(), vectorDB, pool, usecase.RetrieverConfig{
		PrefetchFactor: cfg.PrefetchFactor,
		EmbedTimeout:   cfg.EmbedTimeout,
		SearchTimeout:  cfg.SearchTimeout,
	}, logger)
	web := usecase.NewWebRetriever(webSearcher, pool, cfg.WebResultsPerQuery, cfg.WebSearchTimeout, logger)
	rerankAdapter := usecase.NewRerankAdapter(reranker, cfg.RerankTimeout, logger)
	gate := usecase.NewSelectionGate(chatModel, usecase.SelectionConfig{
		Threshold:         cfg.SelectionThreshold,
		HighConfidenceCap: cfg.SelectionCap,
		CurateTopK:        cfg.CurateTopK,
		Timeout:           cfg.SelectTimeout,
	}, logger)
	composer := usecase.NewAnswerComposer(chatModel, documentStore, usecase.ComposerConfig{
		MaxTokens:        cfg.MaxTokens,
		ReducedMaxTokens: cfg.ReducedMaxTokens,
		Temperature:      cfg.Temperature,
		GenerateTimeout:  cfg.GenerateTimeout,
		LookupTimeout:    cfg.LookupTimeout,
	}, logger)

	app.Chat = usecase.NewChatUseCase(router, reflector, retriever, web, rerankAdapter, gate, composer, references, publisher, usecase.ChatConfig{
		LawCollections:   collectionNames,
		RetrievalTopK:    cfg.RetrievalTopK,
		RerankTopK:       cfg.RerankTopK,
		HybridRerankTopK: cfg.HybridRerankTopK,
		WebQueries:       cfg.WebQueries,
		HybridWebQueries: cfg.HybridWebQueries,
		ContextDocRunes:  cfg.ContextDocRunes,
		ReferenceTimeout: cfg.LookupTimeout,
		PublishTimeout:   cfg.PublishTimeout,
	}, logger)
	app.Documents = usecase.NewDocumentUseCase(documentStore)

	logger.Info("bootstrap_ready",
		"llm_provider", cfg.LLMProvider,
		"embed_provider", cfg.EmbedProvider,
		"collections", collectionNames,
		"postgres", cfg.PostgresDSN != "",
		"nats", publisher != nil,
	)
	ok = true
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.AttemptTimeout = cfg.UpstreamAttemptTimeout
	out.RetryMaxAttempts = cfg.UpstreamRetryMaxAttempts
	out.BreakerEnabled = cfg.UpstreamBreakerEnabled
	return out
}

// generationResilienceConfig disables retries for chat model calls. Router,
// reflection and answer generation each get a single upstream attempt.
func generationResilienceConfig(cfg config.Config) resilience.Config {
	out := resilienceConfig(cfg)
	out.RetryMaxAttempts = 1
	return out
}

func payloadFields(collections []config.Collection) map[string]qdrant.PayloadFields {
	out := make(map[string]qdrant.PayloadFields, len(collections))
	for _, c := range collections {
		out[c.Name] = qdrant.PayloadFields{
			ID:            c.Fields.ID,
			Content:       c.Fields.Content,
			Title:         c.Fields.Title,
			HierarchyPath: c.Fields.HierarchyPath,
			URL:           c.Fields.URL,
			ParentID:      c.Fields.ParentID,
		}
	}
	return out
}
