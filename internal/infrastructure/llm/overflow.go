// Package llm holds helpers shared by the generative model adapters.
package llm

import (
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

// IsContextOverflow recognizes the messages providers use when prompt plus
// completion budget does not fit the context window.
func IsContextOverflow(err error) bool {
	if err == nil {
		return false
	}
	if domain.IsKind(err, domain.ErrContextOverflow) {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "max_tokens") && strings.Contains(msg, "too large"):
		return true
	case strings.Contains(msg, "context length"),
		strings.Contains(msg, "context_length_exceeded"),
		strings.Contains(msg, "context window"),
		strings.Contains(msg, "maximum context"):
		return true
	default:
		return false
	}
}

// WrapOverflow tags overflow errors with domain.ErrContextOverflow and
// returns everything else unchanged.
func WrapOverflow(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrContextOverflow) || !IsContextOverflow(err) {
		return err
	}
	return domain.WrapError(domain.ErrContextOverflow, operation, err)
}
