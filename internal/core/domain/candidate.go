package domain

import "strings"

type SourceType string

const (
	SourceLawDB SourceType = "LAW_DB"
	SourceWeb   SourceType = "WEB"
)

// CandidateDocument is the single document shape shared by retrieval,
// reranking, selection and citation resolution. It lives for one request.
type CandidateDocument struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	Title          string     `json:"title,omitempty"`
	HierarchyPath  string     `json:"hierarchy_path,omitempty"`
	URL            string     `json:"url,omitempty"`
	ParentID       string     `json:"parent_id,omitempty"`
	Collection     string     `json:"collection,omitempty"`
	SourceType     SourceType `json:"source_type"`
	RetrievalScore float64    `json:"retrieval_score"`
	RerankScore    float64    `json:"rerank_score"`

	References []StatuteReference `json:"references,omitempty"`
	Related    []RelatedArticle   `json:"related,omitempty"`
}

// StatuteReference points from a Phap Dien article to the VBQPPL provision
// it was codified from.
type StatuteReference struct {
	Details string `json:"details,omitempty"`
	DocID   string `json:"doc_id,omitempty"`
	Anchor  string `json:"anchor,omitempty"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
}

type RelatedArticle struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// ArticleReferences groups the cross-references of one article.
type ArticleReferences struct {
	References []StatuteReference
	Related    []RelatedArticle
}

// Key is the identity used for deduplication: ID, then URL, then title and
// content for payloads that carry neither.
func (c CandidateDocument) Key() string {
	if id := strings.TrimSpace(c.ID); id != "" {
		return id
	}
	if url := strings.TrimSpace(c.URL); url != "" {
		return url
	}
	return c.Title + "\x00" + c.Content
}

// Matches reports whether a raw citation identifier refers to this document.
func (c CandidateDocument) Matches(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	return ref == c.ID || (c.URL != "" && ref == c.URL) || (c.ParentID != "" && ref == c.ParentID)
}

// SparseVector is a term-weight vector with hashed term indices.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

func (v SparseVector) Empty() bool {
	return len(v.Indices) == 0
}

// HybridQuery describes one fused dense+sparse lookup against a collection.
type HybridQuery struct {
	Dense         []float32
	Sparse        SparseVector
	PrefetchLimit int
	Limit         int
}
