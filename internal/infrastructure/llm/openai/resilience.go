package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/infrastructure/llm"
	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
)

// langchaingo reports upstream failures as formatted strings, so status
// codes are recovered from the message.
var retryableStatusMarkers = []string{
	"status code: 408",
	"status code: 429",
	"status code: 500",
	"status code: 502",
	"status code: 503",
	"status code: 504",
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if llm.IsContextOverflow(err) {
		return resilience.ErrorClassification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range retryableStatusMarkers {
		if strings.Contains(msg, marker) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}
	if strings.Contains(msg, "status code: 4") {
		return resilience.ErrorClassification{}
	}
	return resilience.ClassifyHTTPError(err)
}

func wrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if llm.IsContextOverflow(err) {
		return llm.WrapOverflow(operation, err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyOpenAIError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
