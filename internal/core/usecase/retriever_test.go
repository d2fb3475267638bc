package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

func newTestPool(t *testing.T) *ants.Pool {
	t.Helper()
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return pool
}

func TestRetrieveSizesHybridQuery(t *testing.T) {
	searcher := &hybridSearcherFake{results: map[string][]domain.CandidateDocument{
		"phapdien": {lawDoc("pd_1", "a", 0.5)},
	}}
	retriever := NewHybridRetriever(&denseEmbedderFake{}, sparseEncoderFake{}, searcher, nil, RetrieverConfig{}, nil)

	docs, err := retriever.Retrieve(context.Background(), "q", 5, []string{"phapdien"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "phapdien", docs[0].Collection)
	assert.Equal(t, domain.SourceLawDB, docs[0].SourceType)

	require.Len(t, searcher.calls, 1)
	call := searcher.calls[0]
	assert.Equal(t, 50, call.query.PrefetchLimit)
	assert.Equal(t, 10, call.query.Limit)
	assert.False(t, call.query.Sparse.Empty())
}

func TestRetrieveToleratesCollectionFailure(t *testing.T) {
	searcher := &hybridSearcherFake{
		results: map[string][]domain.CandidateDocument{"vbqppl": {lawDoc("vb_1", "a", 0.4)}},
		errs:    map[string]error{"phapdien": errors.New("timeout")},
	}
	retriever := NewHybridRetriever(&denseEmbedderFake{}, sparseEncoderFake{}, searcher, nil, RetrieverConfig{}, nil)

	docs, err := retriever.Retrieve(context.Background(), "q", 5, []string{"phapdien", "vbqppl"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "vb_1", docs[0].ID)
}

func TestRetrieveFailsWhenAllCollectionsFail(t *testing.T) {
	searcher := &hybridSearcherFake{errs: map[string]error{
		"phapdien": errors.New("down"),
		"vbqppl":   errors.New("down"),
	}}
	retriever := NewHybridRetriever(&denseEmbedderFake{}, sparseEncoderFake{}, searcher, nil, RetrieverConfig{}, nil)

	_, err := retriever.Retrieve(context.Background(), "q", 5, []string{"phapdien", "vbqppl"})
	require.Error(t, err)
}

func TestRetrieveManyMergesFirstWinsInQueryOrder(t *testing.T) {
	embedder := &denseEmbedderFake{vectors: map[string][]float32{
		"q1": {1},
		"q2": {2},
		"q3": {3},
	}}
	searcher := &hybridSearcherFake{byDense: func(_ string, dense []float32) []domain.CandidateDocument {
		switch dense[0] {
		case 1:
			return []domain.CandidateDocument{lawDoc("a", "first", 0.1), lawDoc("b", "b", 0.2)}
		case 2:
			return []domain.CandidateDocument{lawDoc("a", "second", 0.9), lawDoc("c", "c", 0.3)}
		default:
			return []domain.CandidateDocument{lawDoc("d", "d", 0.1)}
		}
	}}
	retriever := NewHybridRetriever(embedder, sparseEncoderFake{}, searcher, newTestPool(t), RetrieverConfig{}, nil)

	docs, err := retriever.RetrieveMany(context.Background(), []string{"q1", "q2", "q3"}, 3, []string{"phapdien"})
	require.NoError(t, err)

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, "first", docs[0].Content)
}

func TestRetrieveManyToleratesPartialFailure(t *testing.T) {
	embedder := &denseEmbedderFake{failOn: map[string]error{"q1": errors.New("embed down")}}
	searcher := &hybridSearcherFake{results: map[string][]domain.CandidateDocument{
		"phapdien": {lawDoc("a", "a", 0.1)},
	}}
	retriever := NewHybridRetriever(embedder, sparseEncoderFake{}, searcher, newTestPool(t), RetrieverConfig{}, nil)

	docs, err := retriever.RetrieveMany(context.Background(), []string{"q1", "q2"}, 3, []string{"phapdien"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestRetrieveManyFailsWhenEveryQueryFails(t *testing.T) {
	embedder := &denseEmbedderFake{failOn: map[string]error{
		"q1": errors.New("embed down"),
		"q2": errors.New("embed down"),
	}}
	retriever := NewHybridRetriever(embedder, sparseEncoderFake{}, &hybridSearcherFake{}, newTestPool(t), RetrieverConfig{}, nil)

	_, err := retriever.RetrieveMany(context.Background(), []string{"q1", "q2"}, 3, []string{"phapdien"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrRetrievalFailed))
}

func TestWebRetrieverDeduplicatesByURL(t *testing.T) {
	web := &webSearcherFake{results: map[string][]domain.CandidateDocument{
		"q1": {webDoc("https://a.vn", "a"), webDoc("https://b.vn", "b")},
		"q2": {webDoc("https://b.vn", "b again"), webDoc("https://c.vn", "c")},
	}}
	retriever := NewWebRetriever(web, newTestPool(t), 5, 0, nil)

	docs, err := retriever.SearchMany(context.Background(), []string{"q1", "q2"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "b", docs[1].Content)
	for _, doc := range docs {
		assert.Equal(t, domain.SourceWeb, doc.SourceType)
	}
}

func TestWebRetrieverFailsWhenEverySearchFails(t *testing.T) {
	retriever := NewWebRetriever(&webSearcherFake{err: errors.New("quota")}, nil, 5, 0, nil)

	_, err := retriever.SearchMany(context.Background(), []string{"q1", "q2"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrRetrievalFailed))
}

func TestWebRetrieverNotConfigured(t *testing.T) {
	var retriever *WebRetriever
	_, err := retriever.SearchMany(context.Background(), []string{"q"})
	require.Error(t, err)
}
