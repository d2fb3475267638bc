package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")

	// ErrContextOverflow marks a generation rejected because prompt plus
	// completion budget exceeded the model context window.
	ErrContextOverflow = errors.New("context window exceeded")

	// ErrRetrievalFailed is returned when every retrieval task of a stage failed.
	ErrRetrievalFailed = errors.New("retrieval failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
