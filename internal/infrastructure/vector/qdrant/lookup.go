package qdrant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

// PayloadLookup resolves a document id by scrolling the configured
// collections for a point whose id payload matches.
type PayloadLookup struct {
	client      *Client
	collections []string
}

func NewPayloadLookup(client *Client, collections []string) *PayloadLookup {
	return &PayloadLookup{client: client, collections: append([]string(nil), collections...)}
}

func (l *PayloadLookup) FindByID(ctx context.Context, id string) (*domain.CandidateDocument, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "qdrant lookup", errors.New("id is required"))
	}

	var lastErr error
	for _, collection := range l.collections {
		doc, err := l.findIn(ctx, collection, id)
		if err != nil {
			lastErr = err
			continue
		}
		if doc != nil {
			return doc, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "qdrant lookup", fmt.Errorf("document %q", id))
}

func (l *PayloadLookup) findIn(ctx context.Context, collection, id string) (*domain.CandidateDocument, error) {
	fields := l.client.fieldsFor(collection)
	reqBody := map[string]any{
		"filter":       buildIDFilter(fields.ID, id),
		"limit":        1,
		"with_payload": true,
		"with_vector":  false,
	}

	var resp struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/scroll", collection)
	if err := l.client.postJSON(ctx, path, reqBody, &resp, "scroll"); err != nil {
		return nil, err
	}
	if len(resp.Result.Points) == 0 {
		return nil, nil
	}
	doc := toCandidate(resp.Result.Points[0], collection, fields)
	return &doc, nil
}

func buildIDFilter(key, id string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key": key,
				"match": map[string]any{
					"value": id,
				},
			},
		},
	}
}
