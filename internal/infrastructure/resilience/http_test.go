package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sony/gobreaker/v2"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

type timeoutNetError struct{}

func (timeoutNetError) Error() string {
	return "i/o timeout"
}

func (timeoutNetError) Timeout() bool {
	return true
}

func (timeoutNetError) Temporary() bool {
	return true
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "unavailable", err: &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, retryable: true, record: true},
		{name: "bad request", err: &HTTPStatusError{StatusCode: http.StatusBadRequest}, retryable: false, record: false},
		{name: "canceled", err: context.Canceled, retryable: false, record: false},
		{name: "network", err: fmt.Errorf("dial: %w", timeoutNetError{}), retryable: true, record: true},
		{name: "circuit open", err: gobreaker.ErrOpenState, retryable: true, record: true},
		{name: "decode", err: errors.New("decode response"), retryable: false, record: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyHTTPError(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
				t.Fatalf("ClassifyHTTPError(%v) = %+v", tc.err, got)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := WrapTemporaryIfNeeded("rerank", &HTTPStatusError{StatusCode: http.StatusBadGateway}, nil)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	err = WrapTemporaryIfNeeded("rerank", &HTTPStatusError{StatusCode: http.StatusNotFound}, nil)
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
