package llm

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestStatusError(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusTooManyRequests, func(err error) bool { var e *ErrRateLimit; return errors.As(err, &e) }},
		{http.StatusUnauthorized, func(err error) bool { var e *ErrRequestRejected; return errors.As(err, &e) }},
		{http.StatusBadRequest, func(err error) bool { var e *ErrRequestRejected; return errors.As(err, &e) }},
		{http.StatusRequestTimeout, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
		{http.StatusBadGateway, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
		{0, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
	}
	for _, tt := range tests {
		err := statusError(tt.status, 0, cause)
		if !tt.check(err) {
			t.Errorf("status %d: unexpected error type %T", tt.status, err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("status %d: cause not preserved", tt.status)
		}
	}
}

func TestStatusError_CarriesRetryAfter(t *testing.T) {
	var rl *ErrRateLimit
	if !errors.As(statusError(http.StatusTooManyRequests, 3*time.Second, errors.New("429")), &rl) {
		t.Fatal("expected ErrRateLimit")
	}
	if rl.RetryAfter != 3*time.Second {
		t.Fatalf("RetryAfter = %s, want 3s", rl.RetryAfter)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"12", 12 * time.Second},
		{"-1", 0},
		{"soon", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.header, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.header, got, tt.want)
		}
	}
}

func TestFinish(t *testing.T) {
	schema := &Schema{
		Name: "finish-test",
		Definition: map[string]any{
			"type":     "object",
			"required": []any{"questions"},
		},
	}

	if _, err := finish(Request{}, &Response{Content: []byte("not json"), StopReason: "end"}); err != nil {
		t.Fatalf("unstructured content should pass through, got %v", err)
	}

	_, err := finish(Request{Schema: schema}, &Response{Content: []byte(`{"other":1}`), StopReason: "end"})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}

	_, err = finish(Request{Schema: schema, MaxTokens: 10}, &Response{Content: []byte(`{"ques`), StopReason: "max_tokens"})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded before schema validation, got %T (%v)", err, err)
	}
}
