package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

type ChatConfig struct {
	LawCollections []string
	// RetrievalTopK is the per-query, per-collection result budget.
	RetrievalTopK    int
	RerankTopK       int
	HybridRerankTopK int
	WebQueries       int
	HybridWebQueries int
	ContextDocRunes  int
	ReferenceTimeout time.Duration
	PublishTimeout   time.Duration
}

// ChatUseCase dispatches a chat request to the chit-chat, law database, web
// or hybrid pipeline and streams the answer as events.
type ChatUseCase struct {
	router    *IntentRouter
	reflector *QueryReflector
	retriever *HybridRetriever
	web       *WebRetriever
	reranker  *RerankAdapter
	gate      *SelectionGate
	composer   *AnswerComposer
	references ports.ReferenceSource
	publisher  ports.InteractionPublisher
	cfg        ChatConfig
	logger     *slog.Logger
}

func NewChatUseCase(
	router *IntentRouter,
	reflector *QueryReflector,
	retriever *HybridRetriever,
	web *WebRetriever,
	reranker *RerankAdapter,
	gate *SelectionGate,
	composer *AnswerComposer,
	references ports.ReferenceSource,
	publisher ports.InteractionPublisher,
	cfg ChatConfig,
	logger *slog.Logger,
) *ChatUseCase {
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = 5
	}
	if cfg.RerankTopK <= 0 {
		cfg.RerankTopK = 10
	}
	if cfg.HybridRerankTopK <= 0 {
		cfg.HybridRerankTopK = 10
	}
	if cfg.WebQueries <= 0 {
		cfg.WebQueries = 3
	}
	if cfg.HybridWebQueries <= 0 {
		cfg.HybridWebQueries = 2
	}
	if cfg.ContextDocRunes <= 0 {
		cfg.ContextDocRunes = 3000
	}
	if cfg.ReferenceTimeout <= 0 {
		cfg.ReferenceTimeout = 3 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		router:     router,
		reflector:  reflector,
		retriever:  retriever,
		web:        web,
		reranker:   reranker,
		gate:       gate,
		composer:   composer,
		references: references,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Stream runs the pipeline. Invalid requests are rejected before any event
// is emitted. Pipeline failures are reported as an error event and do not
// produce an error return; only a failing sink does.
func (uc *ChatUseCase) Stream(ctx context.Context, req domain.ChatRequest, emit ports.EventSink) (domain.ChatOutcome, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return domain.ChatOutcome{}, domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("message is required"))
	}
	if emit == nil {
		return domain.ChatOutcome{}, domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("event sink is required"))
	}
	mode, err := domain.ParsePipelineMode(string(req.Mode))
	if err != nil {
		return domain.ChatOutcome{}, domain.WrapError(domain.ErrInvalidInput, "chat", err)
	}

	started := time.Now()
	sink := &trackingSink{emit: emit}
	outcome := domain.ChatOutcome{Mode: mode, Status: domain.OutcomeAnswered, SelectionPath: domain.SelectionNone}
	req.Message = message

	runErr := uc.dispatch(ctx, req, mode, sink, &outcome)
	if sink.err != nil {
		return outcome, sink.err
	}
	if runErr != nil {
		outcome.Status = domain.OutcomeFailed
		uc.logger.Error("chat_pipeline_failed", "mode", mode, "request_id", req.RequestID, "error", runErr)
		if err := sink.send(domain.ErrorEvent(userFacingError(runErr))); err != nil {
			return outcome, err
		}
	}

	uc.publish(ctx, req, outcome, time.Since(started))
	return outcome, nil
}

func (uc *ChatUseCase) dispatch(ctx context.Context, req domain.ChatRequest, mode domain.PipelineMode, sink *trackingSink, outcome *domain.ChatOutcome) error {
	switch mode {
	case domain.ModeAuto:
		if err := sink.send(domain.StatusEvent(statusAnalyzing)); err != nil {
			return err
		}
		intent, err := uc.router.Route(ctx, req.Message, req.History)
		if err != nil {
			return err
		}
		outcome.Intent = intent
		uc.logger.Info("chat_intent_routed", "intent", intent, "request_id", req.RequestID)
		if intent == domain.IntentNonLegal {
			return uc.runChitChat(ctx, req, sink, outcome)
		}
		return uc.runLawDB(ctx, req, sink, outcome)
	case domain.ModeLawDB:
		outcome.Intent = domain.IntentLegal
		return uc.runLawDB(ctx, req, sink, outcome)
	case domain.ModeWeb:
		outcome.Intent = domain.IntentLegal
		return uc.runWeb(ctx, req, sink, outcome)
	case domain.ModeHybrid:
		outcome.Intent = domain.IntentLegal
		return uc.runHybrid(ctx, req, sink, outcome)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "dispatch", fmt.Errorf("unsupported mode %q", mode))
	}
}

func (uc *ChatUseCase) runChitChat(ctx context.Context, req domain.ChatRequest, sink *trackingSink, outcome *domain.ChatOutcome) error {
	if err := sink.send(domain.SourcesEvent(nil)); err != nil {
		return err
	}
	res, err := uc.composer.Compose(ctx, composeRequest{
		Messages: answerMessages(chitChatSystemPrompt, req.History, req.Message),
	}, sink.send)
	outcome.OverflowRetried = res.OverflowRetried
	return err
}

func (uc *ChatUseCase) runLawDB(ctx context.Context, req domain.ChatRequest, sink *trackingSink, outcome *domain.ChatOutcome) error {
	if err := sink.send(domain.StatusEvent(statusSearchingDB)); err != nil {
		return err
	}

	reflected := uc.reflector.Reflect(ctx, req.Message, req.History)
	outcome.QueryCount = len(reflected.Queries)

	candidates, err := uc.retriever.RetrieveMany(ctx, reflected.Queries, uc.cfg.RetrievalTopK, uc.cfg.LawCollections)
	if err != nil {
		return err
	}
	outcome.CandidateCount = len(candidates)
	if len(candidates) == 0 {
		return uc.noResults(sink, outcome, messageNoDocuments)
	}

	ranked := uc.reranker.Rerank(ctx, reflected.RerankQuery, candidates, uc.cfg.RerankTopK)
	selected, path := uc.gate.SelectRelevant(ctx, reflected.RerankQuery, ranked)
	outcome.SelectionPath = path
	selected = uc.attachReferences(ctx, req.RequestID, selected)

	return uc.answer(ctx, req, sink, outcome, selected,
		fmt.Sprintf(answerSystemPrompt, formatLawContext(selected, uc.cfg.ContextDocRunes)))
}

func (uc *ChatUseCase) runWeb(ctx context.Context, req domain.ChatRequest, sink *trackingSink, outcome *domain.ChatOutcome) error {
	if err := sink.send(domain.StatusEvent(statusSearchingWeb)); err != nil {
		return err
	}

	reflected := uc.reflector.Reflect(ctx, req.Message, req.History)
	outcome.QueryCount = len(reflected.Queries)

	results, err := uc.web.SearchMany(ctx, firstN(reflected.Queries, uc.cfg.WebQueries))
	if err != nil {
		return err
	}
	outcome.CandidateCount = len(results)
	if len(results) == 0 {
		return uc.noResults(sink, outcome, messageNoWebResult)
	}

	ranked := uc.reranker.Rerank(ctx, reflected.RerankQuery, results, uc.cfg.RerankTopK)
	selected, path := uc.gate.SelectRelevant(ctx, reflected.RerankQuery, ranked)
	outcome.SelectionPath = path

	return uc.answer(ctx, req, sink, outcome, selected,
		fmt.Sprintf(webSystemPrompt, formatWebContext(selected, uc.cfg.ContextDocRunes)))
}

func (uc *ChatUseCase) runHybrid(ctx context.Context, req domain.ChatRequest, sink *trackingSink, outcome *domain.ChatOutcome) error {
	if err := sink.send(domain.StatusEvent(statusSearchingAll)); err != nil {
		return err
	}

	reflected := uc.reflector.Reflect(ctx, req.Message, req.History)
	outcome.QueryCount = len(reflected.Queries)

	// The two branches run on plain goroutines: each one submits leaf
	// tasks to the pool and must not occupy a pool worker while waiting.
	var (
		wg               sync.WaitGroup
		lawDocs, webDocs []domain.CandidateDocument
		lawErr, webErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		lawDocs, lawErr = uc.retriever.RetrieveMany(ctx, reflected.Queries, uc.cfg.RetrievalTopK, uc.cfg.LawCollections)
	}()
	go func() {
		defer wg.Done()
		webDocs, webErr = uc.web.SearchMany(ctx, firstN(reflected.Queries, uc.cfg.HybridWebQueries))
	}()
	wg.Wait()

	if lawErr != nil && webErr != nil {
		return errors.Join(lawErr, webErr)
	}
	if lawErr != nil {
		uc.logger.Warn("hybrid_law_branch_failed", "request_id", req.RequestID, "error", lawErr)
	}
	if webErr != nil {
		uc.logger.Warn("hybrid_web_branch_failed", "request_id", req.RequestID, "error", webErr)
	}

	merged := mergeFirstWins(labelSource(lawDocs, domain.SourceLawDB), labelSource(webDocs, domain.SourceWeb))
	outcome.CandidateCount = len(merged)
	if len(merged) == 0 {
		return uc.noResults(sink, outcome, messageNoDocuments)
	}

	ranked := uc.reranker.Rerank(ctx, reflected.RerankQuery, merged, uc.cfg.HybridRerankTopK)
	ordered := uc.attachReferences(ctx, req.RequestID, orderHybrid(ranked))

	return uc.answer(ctx, req, sink, outcome, ordered,
		fmt.Sprintf(hybridSystemPrompt, formatHybridContext(ordered, uc.cfg.ContextDocRunes)))
}

func (uc *ChatUseCase) answer(
	ctx context.Context,
	req domain.ChatRequest,
	sink *trackingSink,
	outcome *domain.ChatOutcome,
	docs []domain.CandidateDocument,
	systemPrompt string,
) error {
	if err := sink.send(domain.SourcesEvent(docs)); err != nil {
		return err
	}

	res, err := uc.composer.Compose(ctx, composeRequest{
		Messages: answerMessages(systemPrompt, req.History, req.Message),
		Pool:     docs,
		Cite:     true,
	}, sink.send)
	outcome.OverflowRetried = res.OverflowRetried
	if err != nil {
		return err
	}

	outcome.UsedDocIDs = make([]string, 0, len(res.UsedDocs))
	for _, doc := range res.UsedDocs {
		outcome.UsedDocIDs = append(outcome.UsedDocIDs, doc.Key())
	}
	return nil
}

// attachReferences adds statute cross-references to law passages. A failed
// lookup leaves the passages unchanged.
func (uc *ChatUseCase) attachReferences(ctx context.Context, requestID string, docs []domain.CandidateDocument) []domain.CandidateDocument {
	if uc.references == nil {
		return docs
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.SourceType != domain.SourceWeb && doc.ID != "" {
			ids = append(ids, doc.ID)
		}
	}
	if len(ids) == 0 {
		return docs
	}

	refCtx, cancel := withTimeout(ctx, uc.cfg.ReferenceTimeout)
	defer cancel()
	found, err := uc.references.FindReferences(refCtx, ids)
	if err != nil {
		uc.logger.Warn("reference_lookup_failed", "request_id", requestID, "error", err)
		return docs
	}

	out := make([]domain.CandidateDocument, len(docs))
	copy(out, docs)
	for i := range out {
		if out[i].SourceType == domain.SourceWeb {
			continue
		}
		if refs, ok := found[out[i].ID]; ok {
			out[i].References = refs.References
			out[i].Related = refs.Related
		}
	}
	return out
}

func (uc *ChatUseCase) noResults(sink *trackingSink, outcome *domain.ChatOutcome, message string) error {
	outcome.Status = domain.OutcomeNoResults
	if err := sink.send(domain.SourcesEvent(nil)); err != nil {
		return err
	}
	return sink.send(domain.ContentEvent(message))
}

func (uc *ChatUseCase) publish(ctx context.Context, req domain.ChatRequest, outcome domain.ChatOutcome, elapsed time.Duration) {
	if uc.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.PublishTimeout)
	defer cancel()

	record := domain.InteractionRecord{
		ID:              uuid.NewString(),
		RequestID:       req.RequestID,
		Question:        req.Message,
		Mode:            outcome.Mode,
		Intent:          outcome.Intent,
		QueryCount:      outcome.QueryCount,
		CandidateCount:  outcome.CandidateCount,
		SelectionPath:   outcome.SelectionPath,
		UsedDocIDs:      outcome.UsedDocIDs,
		OverflowRetried: outcome.OverflowRetried,
		Status:          outcome.Status,
		DurationMS:      elapsed.Milliseconds(),
		CreatedAt:       time.Now().UTC(),
	}
	if err := uc.publisher.PublishInteraction(pubCtx, record); err != nil {
		uc.logger.Warn("interaction_publish_failed", "request_id", req.RequestID, "error", err)
	}
}

func userFacingError(err error) string {
	if domain.IsKind(err, domain.ErrRetrievalFailed) {
		return messageRetrieval
	}
	return messageGeneration
}

// trackingSink remembers the first sink failure so that it can be told apart
// from pipeline failures.
type trackingSink struct {
	emit ports.EventSink
	err  error
}

func (s *trackingSink) send(event domain.Event) error {
	if s.err != nil {
		return s.err
	}
	if err := s.emit(event); err != nil {
		s.err = err
		return err
	}
	return nil
}
