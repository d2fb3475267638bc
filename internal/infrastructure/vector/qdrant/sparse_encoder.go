package qdrant

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

const (
	queryBM25K     = 1.2
	maxSparseTerms = 256
)

// SparseEncoder hashes lowercase word tokens into a BM25-saturated sparse
// vector. Vietnamese syllables with diacritics stay intact.
type SparseEncoder struct{}

func NewSparseEncoder() SparseEncoder {
	return SparseEncoder{}
}

func (SparseEncoder) EncodeQuery(text string) domain.SparseVector {
	termFreq := make(map[uint32]float64, 32)
	for _, token := range tokenizeWords(text) {
		termFreq[hashToken(token)]++
	}
	return termFreqToSparse(termFreq, queryBM25K)
}

func termFreqToSparse(tf map[uint32]float64, k float64) domain.SparseVector {
	if len(tf) == 0 {
		return domain.SparseVector{}
	}
	indices := make([]uint32, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	if len(indices) > maxSparseTerms {
		// Weight grows with term frequency, so the most frequent terms survive.
		sort.Slice(indices, func(i, j int) bool {
			if tf[indices[i]] != tf[indices[j]] {
				return tf[indices[i]] > tf[indices[j]]
			}
			return indices[i] < indices[j]
		})
		indices = indices[:maxSparseTerms]
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, 0, len(indices))
	for _, idx := range indices {
		tfValue := tf[idx]
		weight := (tfValue * (k + 1.0)) / (tfValue + k)
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			weight = 0
		}
		values = append(values, float32(weight))
	}

	return domain.SparseVector{Indices: indices, Values: values}
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum32()
	if sum == 0 {
		return 1
	}
	return sum
}

func tokenizeWords(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
