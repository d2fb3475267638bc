// Package docstore combines document stores into one lookup.
package docstore

import (
	"context"
	"fmt"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

// Chain asks each store in order. A store answering "not found" passes the
// lookup on; other failures are remembered and reported if no store has
// the document.
type Chain struct {
	stores []ports.DocumentStore
}

func NewChain(stores ...ports.DocumentStore) *Chain {
	out := make([]ports.DocumentStore, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Chain{stores: out}
}

func (c *Chain) FindByID(ctx context.Context, id string) (*domain.CandidateDocument, error) {
	var lastErr error
	for _, store := range c.stores {
		doc, err := store.FindByID(ctx, id)
		if err == nil && doc != nil {
			return doc, nil
		}
		if err != nil && !domain.IsKind(err, domain.ErrDocumentNotFound) {
			if domain.IsKind(err, domain.ErrInvalidInput) {
				return nil, err
			}
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "find document", fmt.Errorf("document %q", id))
}
