package domain

type EventType string

const (
	EventStatus   EventType = "status"
	EventSources  EventType = "sources"
	EventContent  EventType = "content"
	EventWarning  EventType = "warning"
	EventUsedDocs EventType = "used_docs"
	EventError    EventType = "error"
)

// Event is one element of the answer stream. Text carries the payload of
// status, content, warning and error events; Documents carries sources and
// used_docs. Use the constructors so that each tag gets its fields.
type Event struct {
	Type      EventType
	Text      string
	Documents []CandidateDocument
}

func StatusEvent(message string) Event { return Event{Type: EventStatus, Text: message} }

func ContentEvent(delta string) Event { return Event{Type: EventContent, Text: delta} }

func WarningEvent(message string) Event { return Event{Type: EventWarning, Text: message} }

func ErrorEvent(message string) Event { return Event{Type: EventError, Text: message} }

func SourcesEvent(docs []CandidateDocument) Event {
	return Event{Type: EventSources, Documents: nonNilDocs(docs)}
}

func UsedDocsEvent(docs []CandidateDocument) Event {
	return Event{Type: EventUsedDocs, Documents: nonNilDocs(docs)}
}

func nonNilDocs(docs []CandidateDocument) []CandidateDocument {
	if docs == nil {
		return []CandidateDocument{}
	}
	return docs
}
