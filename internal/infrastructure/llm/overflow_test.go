package llm

import (
	"errors"
	"testing"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

func TestIsContextOverflow(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{msg: "max_tokens is too large: 2048. This model's maximum context length is 4096 tokens", want: true},
		{msg: "This model's maximum context length is 8192 tokens", want: true},
		{msg: "error code: context_length_exceeded", want: true},
		{msg: "input length exceeds the context length", want: true},
		{msg: "max_tokens must be positive", want: false},
		{msg: "connection refused", want: false},
	}

	for _, tc := range tests {
		if got := IsContextOverflow(errors.New(tc.msg)); got != tc.want {
			t.Fatalf("IsContextOverflow(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestWrapOverflow(t *testing.T) {
	err := WrapOverflow("chat", errors.New("maximum context length exceeded"))
	if !domain.IsKind(err, domain.ErrContextOverflow) {
		t.Fatalf("expected overflow kind, got %v", err)
	}

	plain := errors.New("bad gateway")
	if got := WrapOverflow("chat", plain); got != plain {
		t.Fatalf("expected error to pass through, got %v", got)
	}
}
