package usecase

import (
	"fmt"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

const answerHistoryTurns = 2

func formatLawContext(docs []domain.CandidateDocument, contentRunes int) string {
	var b strings.Builder
	for _, doc := range docs {
		writeLawDoc(&b, doc, contentRunes)
	}
	return strings.TrimSpace(b.String())
}

func formatWebContext(docs []domain.CandidateDocument, contentRunes int) string {
	var b strings.Builder
	for _, doc := range docs {
		writeWebDoc(&b, doc, contentRunes)
	}
	return strings.TrimSpace(b.String())
}

// formatHybridContext expects statute passages first, as produced by orderHybrid.
func formatHybridContext(docs []domain.CandidateDocument, contentRunes int) string {
	var law, web strings.Builder
	for _, doc := range docs {
		if doc.SourceType == domain.SourceWeb {
			writeWebDoc(&web, doc, contentRunes)
			continue
		}
		writeLawDoc(&law, doc, contentRunes)
	}

	var b strings.Builder
	if law.Len() > 0 {
		b.WriteString("[KHO_LUAT]\n")
		b.WriteString(law.String())
	}
	if web.Len() > 0 {
		b.WriteString("[INTERNET]\n")
		b.WriteString(web.String())
	}
	return strings.TrimSpace(b.String())
}

func writeLawDoc(b *strings.Builder, doc domain.CandidateDocument, contentRunes int) {
	fmt.Fprintf(b, "[INTERNAL_ID: %s]\n", doc.ID)
	if doc.Title != "" {
		fmt.Fprintf(b, "TÊN_VĂN_BẢN: %s\n", doc.Title)
	}
	if doc.HierarchyPath != "" {
		fmt.Fprintf(b, "ĐƯỜNG_DẪN: %s\n", doc.HierarchyPath)
	}
	fmt.Fprintf(b, "NỘI_DUNG: %s\n", truncateRunes(strings.TrimSpace(doc.Content), contentRunes))
	writeReferences(b, doc)
	b.WriteByte('\n')
}

func writeReferences(b *strings.Builder, doc domain.CandidateDocument) {
	if len(doc.References) > 0 {
		b.WriteString("Nguồn dẫn chiếu:\n")
		for _, ref := range doc.References {
			label := ref.Details
			if label == "" {
				label = ref.Title
			}
			if ref.URL != "" {
				fmt.Fprintf(b, "- %s (Link: %s)\n", label, ref.URL)
			} else {
				fmt.Fprintf(b, "- %s\n", label)
			}
		}
	}
	if len(doc.Related) > 0 {
		b.WriteString("Điều liên quan:\n")
		for _, rel := range doc.Related {
			fmt.Fprintf(b, "- %s [%s]\n", rel.Title, rel.ID)
		}
	}
}

func writeWebDoc(b *strings.Builder, doc domain.CandidateDocument, contentRunes int) {
	id := doc.URL
	if id == "" {
		id = doc.ID
	}
	fmt.Fprintf(b, "[ID: %s]\n", id)
	if doc.Title != "" {
		fmt.Fprintf(b, "TIÊU_ĐỀ: %s\n", doc.Title)
	}
	fmt.Fprintf(b, "NỘI_DUNG: %s\n\n", truncateRunes(strings.TrimSpace(doc.Content), contentRunes))
}

func answerMessages(systemPrompt string, history []domain.ConversationTurn, message string) []domain.ChatMessage {
	messages := []domain.ChatMessage{{Role: domain.RoleSystem, Content: systemPrompt}}
	messages = append(messages, historyMessages(domain.RecentTurns(history, answerHistoryTurns))...)
	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: message})
}

func firstN(items []string, n int) []string {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}
