package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	citationOpenTag  = "<USED_DOCS>"
	citationCloseTag = "</USED_DOCS>"
)

type scanState int

const (
	stateStreamingText scanState = iota
	stateInsideCitations
	stateCitationsClosed
)

func (s scanState) String() string {
	switch s {
	case stateStreamingText:
		return "streaming_text"
	case stateInsideCitations:
		return "inside_citations"
	default:
		return "citations_closed"
	}
}

// citationScanner separates visible answer text from the trailing
// <USED_DOCS>...</USED_DOCS> block of a streamed generation. Visible text is
// released as soon as it cannot be the beginning of a marker.
type citationScanner struct {
	state   scanState
	pending string
	block   strings.Builder
	ids     []string
}

func newCitationScanner() *citationScanner {
	return &citationScanner{state: stateStreamingText}
}

// advance consumes one fragment and returns the text that is safe to show.
func (s *citationScanner) advance(fragment string) (string, scanState) {
	switch s.state {
	case stateStreamingText:
		return s.advanceText(fragment), s.state
	case stateInsideCitations:
		s.advanceBlock(fragment)
		return "", s.state
	default:
		return "", s.state
	}
}

// finish flushes withheld text and returns the parsed citation identifiers.
// An unterminated block is parsed as far as it got.
func (s *citationScanner) finish() (string, []string) {
	switch s.state {
	case stateStreamingText:
		rest := s.pending
		s.pending = ""
		return rest, nil
	case stateInsideCitations:
		s.ids = parseCitationIDs(s.block.String())
		s.state = stateCitationsClosed
	}
	return "", s.ids
}

func (s *citationScanner) advanceText(fragment string) string {
	buf := s.pending + fragment
	s.pending = ""

	var out strings.Builder
	for {
		openIdx := strings.Index(buf, citationOpenTag)
		closeIdx := strings.Index(buf, citationCloseTag)
		if openIdx < 0 && closeIdx < 0 {
			break
		}
		// A closing marker without an opening one is dropped.
		if closeIdx >= 0 && (openIdx < 0 || closeIdx < openIdx) {
			out.WriteString(buf[:closeIdx])
			buf = buf[closeIdx+len(citationCloseTag):]
			continue
		}
		out.WriteString(buf[:openIdx])
		s.state = stateInsideCitations
		s.advanceBlock(buf[openIdx+len(citationOpenTag):])
		return out.String()
	}

	keep := withheldSuffixLen(buf)
	out.WriteString(buf[:len(buf)-keep])
	s.pending = buf[len(buf)-keep:]
	return out.String()
}

func (s *citationScanner) advanceBlock(fragment string) {
	s.block.WriteString(fragment)
	text := s.block.String()
	idx := strings.Index(text, citationCloseTag)
	if idx < 0 {
		return
	}
	s.ids = parseCitationIDs(text[:idx])
	s.state = stateCitationsClosed
}

// withheldSuffixLen is the length of the tail of buf that could still turn
// into a marker or that ends in an incomplete UTF-8 sequence.
func withheldSuffixLen(buf string) int {
	keep := 0
	for _, tag := range [...]string{citationOpenTag, citationCloseTag} {
		for k := len(tag) - 1; k > keep; k-- {
			if strings.HasSuffix(buf, tag[:k]) {
				keep = k
				break
			}
		}
	}
	if keep > 0 {
		return keep
	}
	return incompleteRuneTail(buf)
}

func incompleteRuneTail(s string) int {
	for i := 1; i < utf8.UTFMax && i <= len(s); i++ {
		if utf8.RuneStart(s[len(s)-i]) {
			if utf8.FullRuneInString(s[len(s)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}

var citationLabelPattern = regexp.MustCompile(`(?i)^[\p{L}_][\p{L}\p{N}_ ]{0,24}[:=]\s*`)

// parseCitationIDs splits a citation block into identifiers, dropping
// brackets, quotes and "INTERNAL_ID:" style labels the model copies from
// the context.
func parseCitationIDs(block string) []string {
	fields := strings.FieldsFunc(block, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})

	seen := make(map[string]struct{}, len(fields))
	ids := make([]string, 0, len(fields))
	for _, field := range fields {
		id := cleanCitationID(field)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func cleanCitationID(raw string) string {
	const artifacts = " \t[]()\"'`*<>"
	id := strings.Trim(raw, artifacts)
	if loc := citationLabelPattern.FindStringIndex(id); loc != nil && !strings.HasPrefix(id[loc[1]:], "//") {
		id = id[loc[1]:]
	}
	return strings.Trim(id, artifacts)
}
