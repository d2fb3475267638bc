package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

type ComposerConfig struct {
	MaxTokens        int
	ReducedMaxTokens int
	Temperature      float64
	GenerateTimeout  time.Duration
	LookupTimeout    time.Duration
}

// AnswerComposer streams the final answer and turns the citation block into
// a used_docs event.
type AnswerComposer struct {
	model  ports.ChatModel
	store  ports.DocumentStore
	cfg    ComposerConfig
	logger *slog.Logger
}

func NewAnswerComposer(model ports.ChatModel, store ports.DocumentStore, cfg ComposerConfig, logger *slog.Logger) *AnswerComposer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.ReducedMaxTokens <= 0 || cfg.ReducedMaxTokens > cfg.MaxTokens {
		cfg.ReducedMaxTokens = min(512, cfg.MaxTokens)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerComposer{model: model, store: store, cfg: cfg, logger: logger}
}

type composeRequest struct {
	Messages []domain.ChatMessage
	Pool     []domain.CandidateDocument
	// Cite enables the used_docs event. Chit-chat answers have no sources.
	Cite bool
}

type composeResult struct {
	UsedDocs        []domain.CandidateDocument
	OverflowRetried bool
	Apologized      bool
}

// Compose generates the answer. A context overflow is retried once with the
// reduced token budget; a second failure ends the answer with an apology.
// Other generation errors and sink errors are returned to the caller.
func (c *AnswerComposer) Compose(ctx context.Context, req composeRequest, emit ports.EventSink) (composeResult, error) {
	var result composeResult
	out := &visibleWriter{emit: emit}

	ids, err := c.attempt(ctx, req.Messages, c.cfg.MaxTokens, out)
	if err != nil {
		if out.sinkErr != nil || !domain.IsKind(err, domain.ErrContextOverflow) {
			return result, err
		}

		result.OverflowRetried = true
		c.logger.Warn("generation_overflow_retry",
			"max_tokens", c.cfg.MaxTokens,
			"reduced_max_tokens", c.cfg.ReducedMaxTokens,
			"error", err,
		)
		if err := emit(domain.WarningEvent(warningContextOverflow)); err != nil {
			return result, err
		}

		out.beginReplay()
		ids, err = c.attempt(ctx, req.Messages, c.cfg.ReducedMaxTokens, out)
		if err != nil {
			if out.sinkErr != nil {
				return result, out.sinkErr
			}
			c.logger.Error("generation_overflow_retry_failed", "error", err)
			result.Apologized = true
			ids = nil
			if err := emit(domain.ContentEvent(apologyContextOverflow)); err != nil {
				return result, err
			}
		}
	}

	if !req.Cite {
		return result, nil
	}
	result.UsedDocs = c.resolveCitations(ctx, ids, req.Pool)
	if err := emit(domain.UsedDocsEvent(result.UsedDocs)); err != nil {
		return result, err
	}
	return result, nil
}

func (c *AnswerComposer) attempt(ctx context.Context, messages []domain.ChatMessage, maxTokens int, out *visibleWriter) ([]string, error) {
	scanner := newCitationScanner()

	callCtx, cancel := withTimeout(ctx, c.cfg.GenerateTimeout)
	defer cancel()

	err := c.model.Stream(callCtx, domain.GenerationRequest{
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   maxTokens,
	}, func(fragment string) error {
		visible, _ := scanner.advance(fragment)
		return out.write(visible)
	})
	if out.sinkErr != nil {
		return nil, out.sinkErr
	}
	if err != nil {
		return nil, err
	}

	rest, ids := scanner.finish()
	if err := out.write(rest); err != nil {
		return nil, err
	}
	return ids, nil
}

// resolveCitations maps raw identifiers to documents: first the candidate
// pool (by id, URL or parent document), then the document store. Unknown
// identifiers are skipped.
func (c *AnswerComposer) resolveCitations(ctx context.Context, ids []string, pool []domain.CandidateDocument) []domain.CandidateDocument {
	used := make([]domain.CandidateDocument, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	add := func(doc domain.CandidateDocument) {
		key := doc.Key()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		used = append(used, doc)
	}

	for _, id := range ids {
		matched := false
		for _, candidate := range pool {
			if candidate.Matches(id) {
				add(candidate)
				matched = true
			}
		}
		if matched {
			continue
		}
		if doc, ok := c.lookup(ctx, id); ok {
			add(doc)
		}
	}
	return used
}

func (c *AnswerComposer) lookup(ctx context.Context, id string) (domain.CandidateDocument, bool) {
	if c.store == nil {
		return domain.CandidateDocument{}, false
	}

	callCtx, cancel := withTimeout(ctx, c.cfg.LookupTimeout)
	defer cancel()

	doc, err := c.store.FindByID(callCtx, id)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			c.logger.Debug("citation_unresolved", "id", id)
		} else {
			c.logger.Warn("citation_lookup_failed", "id", id, "error", err)
		}
		return domain.CandidateDocument{}, false
	}
	if doc == nil {
		return domain.CandidateDocument{}, false
	}
	if doc.SourceType == "" {
		doc.SourceType = domain.SourceLawDB
	}
	return *doc, true
}

// visibleWriter emits content events. After beginReplay it swallows text
// that repeats what the failed attempt already delivered.
type visibleWriter struct {
	emit    ports.EventSink
	sent    strings.Builder
	replay  string
	sinkErr error
}

func (w *visibleWriter) beginReplay() {
	w.replay = w.sent.String()
}

func (w *visibleWriter) write(text string) error {
	if text == "" {
		return nil
	}
	if w.replay != "" {
		n := commonPrefixLen(w.replay, text)
		w.replay = w.replay[n:]
		text = text[n:]
		if text == "" {
			return nil
		}
		w.replay = ""
	}

	w.sent.WriteString(text)
	if err := w.emit(domain.ContentEvent(text)); err != nil {
		w.sinkErr = err
		return err
	}
	return nil
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) {
		ra, sa := utf8.DecodeRuneInString(a[n:])
		rb, sb := utf8.DecodeRuneInString(b[n:])
		if ra != rb || sa != sb {
			break
		}
		n += sa
	}
	return n
}
