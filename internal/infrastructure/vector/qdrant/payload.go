package qdrant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

// PayloadFields names the payload keys a collection stores each document
// attribute under.
type PayloadFields struct {
	ID            string `yaml:"id"`
	Content       string `yaml:"content"`
	Title         string `yaml:"title"`
	HierarchyPath string `yaml:"hierarchy_path"`
	URL           string `yaml:"url"`
	ParentID      string `yaml:"parent_id"`
}

func DefaultPayloadFields() PayloadFields {
	return PayloadFields{
		ID:            "id",
		Content:       "content",
		Title:         "title",
		HierarchyPath: "hierarchy_path",
		URL:           "url",
		ParentID:      "parent_id",
	}
}

func (f PayloadFields) withDefaults() PayloadFields {
	def := DefaultPayloadFields()
	if strings.TrimSpace(f.ID) == "" {
		f.ID = def.ID
	}
	if strings.TrimSpace(f.Content) == "" {
		f.Content = def.Content
	}
	if strings.TrimSpace(f.Title) == "" {
		f.Title = def.Title
	}
	if strings.TrimSpace(f.HierarchyPath) == "" {
		f.HierarchyPath = def.HierarchyPath
	}
	if strings.TrimSpace(f.URL) == "" {
		f.URL = def.URL
	}
	if strings.TrimSpace(f.ParentID) == "" {
		f.ParentID = def.ParentID
	}
	return f
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

const maxDerivedTitleRunes = 100

// toCandidate maps a point payload onto a candidate. Collections without a
// title field get one derived from the first content line.
func toCandidate(p scoredPoint, collection string, fields PayloadFields) domain.CandidateDocument {
	content := getStringPayload(p.Payload, fields.Content)
	title := getStringPayload(p.Payload, fields.Title)
	if title == "" {
		title = deriveTitle(content)
	}
	id := getStringPayload(p.Payload, fields.ID)
	if id == "" {
		id = pointID(p.ID)
	}
	return domain.CandidateDocument{
		ID:             id,
		Content:        content,
		Title:          title,
		HierarchyPath:  getStringPayload(p.Payload, fields.HierarchyPath),
		URL:            getStringPayload(p.Payload, fields.URL),
		ParentID:       getStringPayload(p.Payload, fields.ParentID),
		Collection:     collection,
		SourceType:     domain.SourceLawDB,
		RetrievalScore: p.Score,
	}
}

func deriveTitle(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	runes := []rune(strings.TrimSpace(line))
	if len(runes) > maxDerivedTitleRunes {
		runes = runes[:maxDerivedTitleRunes]
	}
	return string(runes)
}

func pointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func getStringPayload(payload map[string]any, key string) string {
	if key == "" {
		return ""
	}
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%v", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
