package usecase

import (
	"sort"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

// mergeFirstWins concatenates candidate lists keeping the first occurrence of
// every identity. Later duplicates are dropped even when they score higher.
func mergeFirstWins(lists ...[]domain.CandidateDocument) []domain.CandidateDocument {
	total := 0
	for _, list := range lists {
		total += len(list)
	}

	seen := make(map[string]struct{}, total)
	out := make([]domain.CandidateDocument, 0, total)
	for _, list := range lists {
		for _, candidate := range list {
			key := candidate.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, candidate)
		}
	}
	return out
}

// dedupeByURL keeps the first web result per URL. Results without a URL fall
// back to the generic identity.
func dedupeByURL(results []domain.CandidateDocument) []domain.CandidateDocument {
	seen := make(map[string]struct{}, len(results))
	out := make([]domain.CandidateDocument, 0, len(results))
	for _, result := range results {
		key := result.URL
		if key == "" {
			key = result.Key()
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, result)
	}
	return out
}

func trimCandidates(candidates []domain.CandidateDocument, limit int) []domain.CandidateDocument {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}

// orderHybrid puts statute passages before web results; within each source
// the higher rerank score wins and ties keep their input order.
func orderHybrid(candidates []domain.CandidateDocument) []domain.CandidateDocument {
	out := make([]domain.CandidateDocument, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := sourceRank(out[i].SourceType), sourceRank(out[j].SourceType)
		if ri != rj {
			return ri < rj
		}
		return out[i].RerankScore > out[j].RerankScore
	})
	return out
}

func sourceRank(source domain.SourceType) int {
	if source == domain.SourceLawDB {
		return 0
	}
	return 1
}

func labelSource(candidates []domain.CandidateDocument, source domain.SourceType) []domain.CandidateDocument {
	for i := range candidates {
		candidates[i].SourceType = source
	}
	return candidates
}
