package httpadapter

import (
	"regexp"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

type messageEvent struct {
	Type    domain.EventType `json:"type"`
	Message string           `json:"message"`
}

type deltaEvent struct {
	Type  domain.EventType `json:"type"`
	Delta string           `json:"delta"`
}

type errorEvent struct {
	Type    domain.EventType `json:"type"`
	Content string           `json:"content"`
}

type documentsEvent struct {
	Type domain.EventType           `json:"type"`
	Data []domain.CandidateDocument `json:"data"`
}

// WireEvent returns the NDJSON shape of an answer stream event.
func WireEvent(event domain.Event) any {
	switch event.Type {
	case domain.EventContent:
		return deltaEvent{Type: event.Type, Delta: event.Text}
	case domain.EventError:
		return errorEvent{Type: event.Type, Content: event.Text}
	case domain.EventSources, domain.EventUsedDocs:
		docs := event.Documents
		if docs == nil {
			docs = []domain.CandidateDocument{}
		}
		return documentsEvent{Type: event.Type, Data: docs}
	default:
		return messageEvent{Type: event.Type, Message: event.Text}
	}
}

type chatResponse struct {
	Response string                     `json:"response"`
	UsedDocs []domain.CandidateDocument `json:"used_docs"`
}

// answerCollector folds the event stream into a single response.
type answerCollector struct {
	text     strings.Builder
	usedDocs []domain.CandidateDocument
	failure  string
}

func (c *answerCollector) collect(event domain.Event) error {
	switch event.Type {
	case domain.EventContent:
		c.text.WriteString(event.Text)
	case domain.EventUsedDocs:
		c.usedDocs = append(c.usedDocs, event.Documents...)
	case domain.EventError:
		c.failure = event.Text
	}
	return nil
}

func (c *answerCollector) result() chatResponse {
	text := strings.TrimSpace(stripCitationMarkers(c.text.String()))
	if text == "" {
		text = c.failure
	}
	docs := c.usedDocs
	if docs == nil {
		docs = []domain.CandidateDocument{}
	}
	return chatResponse{Response: text, UsedDocs: docs}
}

var (
	citationBlockPattern = regexp.MustCompile(`(?is)<USED_DOCS>.*?(?:</USED_DOCS>|$)`)
	citationTagPattern   = regexp.MustCompile(`(?i)</?USED_DOCS>`)
)

func stripCitationMarkers(text string) string {
	text = citationBlockPattern.ReplaceAllString(text, "")
	return citationTagPattern.ReplaceAllString(text, "")
}
