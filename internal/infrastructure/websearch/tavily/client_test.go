package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

func TestSearchMapsResultsToWebDocuments(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"query":"q","results":[
			{"title":"Giá xăng hôm nay","url":"https://news.vn/xang","content":"Giá xăng RON95 giảm","score":0.9},
			{"title":"Trống","url":"https://news.vn/empty","content":"  ","score":0.5},
			{"title":"Thuế","url":"https://news.vn/thue","content":"Thuế TNCN","score":0.4}
		]}`))
	}))
	t.Cleanup(server.Close)

	client := New("tvly-key", Options{BaseURL: server.URL, IncludeDomains: []string{"news.vn"}})
	docs, err := client.Search(context.Background(), "giá xăng", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "https://news.vn/xang", docs[0].ID)
	assert.Equal(t, "https://news.vn/xang", docs[0].URL)
	assert.Equal(t, domain.SourceWeb, docs[0].SourceType)
	assert.Equal(t, "https://news.vn/thue", docs[1].URL)
	assert.Equal(t, float64(2), body["max_results"])
	assert.Equal(t, "basic", body["search_depth"])
	assert.Len(t, body["include_domains"], 1)
}

func TestSearchWithoutKeyIsUnauthorized(t *testing.T) {
	_, err := New("", Options{}).Search(context.Background(), "q", 3)
	assert.True(t, domain.IsKind(err, domain.ErrUnauthorized))
}

func TestSearchRejectedKeyIsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":{"error":"Unauthorized"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	_, err := New("bad", Options{BaseURL: server.URL}).Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrUnauthorized))
	assert.False(t, domain.IsKind(err, domain.ErrTemporary))
}

func TestSearchRateLimitIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	_, err := New("key", Options{BaseURL: server.URL}).Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrTemporary))
}
