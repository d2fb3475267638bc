package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

// DocumentUseCase serves single document lookups for the citation panel.
type DocumentUseCase struct {
	store ports.DocumentStore
}

func NewDocumentUseCase(store ports.DocumentStore) *DocumentUseCase {
	return &DocumentUseCase{store: store}
}

func (uc *DocumentUseCase) GetDocument(ctx context.Context, id string) (*domain.CandidateDocument, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("id is required"))
	}
	if uc.store == nil {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("document store is not configured"))
	}
	return uc.store.FindByID(ctx, id)
}
