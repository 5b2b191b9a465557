package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseRetryAfterSeconds(t *testing.T) {
	if d := ParseRetryAfter("5"); d != 5*time.Second {
		t.Fatalf("expected 5s, got %v", d)
	}
}

func TestParseRetryAfterEmpty(t *testing.T) {
	if d := ParseRetryAfter(""); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestHTTPErrorRetryable(t *testing.T) {
	cases := map[int]bool{429: true, 500: true, 503: true, 400: false, 401: false, 404: false}
	for status, want := range cases {
		e := &HTTPError{Status: status}
		if e.Retryable() != want {
			t.Fatalf("status %d: expected retryable=%v", status, want)
		}
	}
}

func TestRetryDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	result, err := RetryDo(context.Background(), DefaultRetryConfig(), func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || result != "ok" || calls != 1 {
		t.Fatalf("expected single successful call, got result=%q err=%v calls=%d", result, err, calls)
	}
}

func TestRetryDoStopsOnNonRetryableHTTPError(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), DefaultRetryConfig(), func() (string, error) {
		calls++
		return "", &HTTPError{Status: 401, Body: "bad key"}
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected immediate failure on non-retryable error, calls=%d err=%v", calls, err)
	}
}

func TestRetryDoRetriesRetryableHTTPError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	calls := 0
	result, err := RetryDo(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &HTTPError{Status: 503, Body: "busy"}
		}
		return "ok", nil
	})
	if err != nil || result != "ok" || calls != 3 {
		t.Fatalf("expected success on third attempt, got result=%q err=%v calls=%d", result, err, calls)
	}
}

func TestRetryDoGivesUpAfterMaxAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	calls := 0
	_, err := RetryDo(context.Background(), cfg, func() (string, error) {
		calls++
		return "", &HTTPError{Status: 500, Body: "down"}
	})
	if err == nil || calls != 2 {
		t.Fatalf("expected exhaustion after 2 attempts, calls=%d err=%v", calls, err)
	}
}

func TestParseDescriptor(t *testing.T) {
	d := ParseDescriptor("gemini/gemini-3-flash-preview")
	if d.Provider != "gemini" || d.Model != "gemini-3-flash-preview" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	d2 := ParseDescriptor("ollama")
	if d2.Provider != "ollama" || d2.Model != "" {
		t.Fatalf("unexpected bare descriptor: %+v", d2)
	}
}

type fakeProvider struct {
	name   string
	model  string
	resp   *ClassifyResponse
	err    error
	called int
}

func (f *fakeProvider) Name() string         { return f.name }
func (f *fakeProvider) DefaultModel() string { return f.model }
func (f *fakeProvider) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	f.called++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestChainFallsThroughOnError(t *testing.T) {
	failing := &fakeProvider{name: "primary", err: errors.New("boom")}
	succeeding := &fakeProvider{name: "fallback", resp: &ClassifyResponse{Completion: "ok"}}

	chain := NewChain(
		[]Descriptor{{Provider: "primary"}, {Provider: "fallback"}},
		map[string]Provider{"primary": failing, "fallback": succeeding},
		func(string) bool { return true },
		0,
	)

	resp, d, err := chain.Classify(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("expected success via fallback, got %v", err)
	}
	if d.Provider != "fallback" || resp.Completion != "ok" {
		t.Fatalf("expected fallback to answer, got %+v %+v", d, resp)
	}
	if failing.called != 1 || succeeding.called != 1 {
		t.Fatalf("expected exactly one call to each provider, got %d %d", failing.called, succeeding.called)
	}
}

func TestChainSkipsDisallowedProvider(t *testing.T) {
	blocked := &fakeProvider{name: "sketchy", resp: &ClassifyResponse{Completion: "should not be used"}}
	allowedProvider := &fakeProvider{name: "trusted", resp: &ClassifyResponse{Completion: "trusted answer"}}

	chain := NewChain(
		[]Descriptor{{Provider: "sketchy"}, {Provider: "trusted"}},
		map[string]Provider{"sketchy": blocked, "trusted": allowedProvider},
		func(name string) bool { return name == "trusted" },
		0,
	)

	resp, d, err := chain.Classify(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Provider != "trusted" || blocked.called != 0 {
		t.Fatalf("expected disallowed provider to be skipped entirely, got descriptor=%+v calls=%d", d, blocked.called)
	}
	if resp.Completion != "trusted answer" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestChainReturnsErrorWhenExhausted(t *testing.T) {
	failing := &fakeProvider{name: "only", err: errors.New("down")}
	chain := NewChain(
		[]Descriptor{{Provider: "only"}},
		map[string]Provider{"only": failing},
		func(string) bool { return true },
		0,
	)

	_, _, err := chain.Classify(context.Background(), "sys", "user")
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %v", err)
	}
}
