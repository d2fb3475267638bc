package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

type chatModelFake struct {
	mu sync.Mutex

	complete      func(req domain.GenerationRequest) (string, error)
	completeCalls []domain.GenerationRequest

	streams     [][]string
	streamErrs  []error
	streamCalls []domain.GenerationRequest
}

func (f *chatModelFake) Complete(_ context.Context, req domain.GenerationRequest) (string, error) {
	f.mu.Lock()
	f.completeCalls = append(f.completeCalls, req)
	complete := f.complete
	f.mu.Unlock()

	if complete == nil {
		return "", errors.New("completion not scripted")
	}
	return complete(req)
}

func (f *chatModelFake) Stream(ctx context.Context, req domain.GenerationRequest, onChunk func(string) error) error {
	f.mu.Lock()
	idx := len(f.streamCalls)
	f.streamCalls = append(f.streamCalls, req)
	var fragments []string
	if idx < len(f.streams) {
		fragments = f.streams[idx]
	}
	var streamErr error
	if idx < len(f.streamErrs) {
		streamErr = f.streamErrs[idx]
	}
	f.mu.Unlock()

	for _, fragment := range fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onChunk(fragment); err != nil {
			return err
		}
	}
	return streamErr
}

func (f *chatModelFake) streamCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streamCalls)
}

func systemPromptOf(req domain.GenerationRequest) string {
	if len(req.Messages) == 0 || req.Messages[0].Role != domain.RoleSystem {
		return ""
	}
	return req.Messages[0].Content
}

// scriptedCompletion answers router, reflection and selection prompts.
func scriptedCompletion(intent, reflection, selection string) func(domain.GenerationRequest) (string, error) {
	return func(req domain.GenerationRequest) (string, error) {
		system := systemPromptOf(req)
		switch {
		case system == routerSystemPrompt:
			return intent, nil
		case system == reflectSystemPrompt:
			return reflection, nil
		case strings.Contains(system, "<LIST_DOCS>"):
			return selection, nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}
}

type denseEmbedderFake struct {
	mu      sync.Mutex
	queries []string
	failOn  map[string]error
	vectors map[string][]float32
}

func (f *denseEmbedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	if err := f.failOn[text]; err != nil {
		return nil, err
	}
	if vector, ok := f.vectors[text]; ok {
		return vector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type sparseEncoderFake struct{}

func (sparseEncoderFake) EncodeQuery(string) domain.SparseVector {
	return domain.SparseVector{Indices: []uint32{7}, Values: []float32{1}}
}

type searchCall struct {
	collection string
	query      domain.HybridQuery
}

type hybridSearcherFake struct {
	mu      sync.Mutex
	calls   []searchCall
	results map[string][]domain.CandidateDocument
	errs    map[string]error
	// byDense, when set, takes precedence over results.
	byDense func(collection string, dense []float32) []domain.CandidateDocument
}

func (f *hybridSearcherFake) HybridSearch(_ context.Context, collection string, query domain.HybridQuery) ([]domain.CandidateDocument, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{collection: collection, query: query})
	f.mu.Unlock()

	if err := f.errs[collection]; err != nil {
		return nil, err
	}
	if f.byDense != nil {
		return f.byDense(collection, query.Dense), nil
	}
	out := make([]domain.CandidateDocument, len(f.results[collection]))
	copy(out, f.results[collection])
	return out, nil
}

func (f *hybridSearcherFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type rerankerFake struct {
	scores map[string]float64
	err    error
	calls  int
	query  string
}

func (f *rerankerFake) Score(_ context.Context, query string, passages []string) ([]float64, error) {
	f.calls++
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(passages))
	for i, passage := range passages {
		for marker, score := range f.scores {
			if strings.Contains(passage, marker) {
				out[i] = score
			}
		}
	}
	return out, nil
}

type webSearcherFake struct {
	mu      sync.Mutex
	queries []string
	results map[string][]domain.CandidateDocument
	err     error
}

func (f *webSearcherFake) Search(_ context.Context, query string, _ int) ([]domain.CandidateDocument, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.CandidateDocument, len(f.results[query]))
	copy(out, f.results[query])
	return out, nil
}

type documentStoreFake struct {
	docs    map[string]domain.CandidateDocument
	err     error
	lookups []string
}

func (f *documentStoreFake) FindByID(_ context.Context, id string) (*domain.CandidateDocument, error) {
	f.lookups = append(f.lookups, id)
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "find document", errors.New(id))
	}
	return &doc, nil
}

type publisherFake struct {
	records []domain.InteractionRecord
	err     error
}

func (f *publisherFake) PublishInteraction(_ context.Context, record domain.InteractionRecord) error {
	f.records = append(f.records, record)
	return f.err
}

type eventRecorder struct {
	events []domain.Event
	failAt int
}

func (r *eventRecorder) emit(event domain.Event) error {
	if r.failAt > 0 && len(r.events)+1 == r.failAt {
		return errors.New("client went away")
	}
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Type)
	}
	return out
}

func (r *eventRecorder) content() string {
	var b strings.Builder
	for _, event := range r.events {
		if event.Type == domain.EventContent {
			b.WriteString(event.Text)
		}
	}
	return b.String()
}

func (r *eventRecorder) count(eventType domain.EventType) int {
	n := 0
	for _, event := range r.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func (r *eventRecorder) first(eventType domain.EventType) (domain.Event, bool) {
	for _, event := range r.events {
		if event.Type == eventType {
			return event, true
		}
	}
	return domain.Event{}, false
}

type referenceSourceFake struct {
	mu    sync.Mutex
	calls [][]string
	found map[string]domain.ArticleReferences
	err   error
}

func (f *referenceSourceFake) FindReferences(_ context.Context, ids []string) (map[string]domain.ArticleReferences, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.found, nil
}

func lawDoc(id, content string, retrieval float64) domain.CandidateDocument {
	return domain.CandidateDocument{
		ID:             id,
		Title:          "Luật " + id,
		Content:        content,
		SourceType:     domain.SourceLawDB,
		RetrievalScore: retrieval,
	}
}

func webDoc(url, content string) domain.CandidateDocument {
	return domain.CandidateDocument{
		ID:         url,
		URL:        url,
		Title:      "Bài viết " + url,
		Content:    content,
		SourceType: domain.SourceWeb,
	}
}
