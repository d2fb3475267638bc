package rerank

import (
	"context"
	"strings"
	"unicode"
)

// Lexical scores passages by query token coverage. It stands in for the
// cross-encoder in local setups; scores fall in [0, 1].
type Lexical struct{}

func NewLexical() Lexical {
	return Lexical{}
}

func (Lexical) Score(_ context.Context, query string, passages []string) ([]float64, error) {
	queryTokens := toTokenSet(query)
	scores := make([]float64, len(passages))
	for i, passage := range passages {
		head, _, _ := strings.Cut(passage, "\n")
		overlap := tokenOverlap(queryTokens, toTokenSet(passage))
		headHit := tokenOverlap(queryTokens, toTokenSet(head))
		scores[i] = 0.80*overlap + 0.20*headHit
	}
	return scores, nil
}

func tokenOverlap(query, passage map[string]struct{}) float64 {
	if len(query) == 0 || len(passage) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := passage[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitWordsLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitWordsLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
