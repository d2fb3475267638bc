package ollama

import (
	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
)

const serviceName = "ollama"

func classifyOllamaError(err error) resilience.ErrorClassification {
	return resilience.ClassifyHTTPError(err)
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	return resilience.WrapTemporaryIfNeeded(operation, err, classifyOllamaError)
}
