package validator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aegish-sh/aegish/internal/providers"
)

var errProviderDown = errors.New("provider unavailable")

type stubProvider struct {
	name  string
	model string
	resp  *providers.ClassifyResponse
	err   error
}

func (s *stubProvider) Name() string         { return s.name }
func (s *stubProvider) DefaultModel() string { return s.model }
func (s *stubProvider) Classify(ctx context.Context, req providers.ClassifyRequest) (*providers.ClassifyResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func allowingChain(t *testing.T) *providers.Chain {
	t.Helper()
	stub := &stubProvider{name: "stub", model: "m", resp: &providers.ClassifyResponse{
		Completion: `{"action": "allow", "reason": "benign read", "confidence": 0.95}`,
		StopReason: "stop",
	}}
	return providers.NewChain(
		[]providers.Descriptor{{Provider: "stub"}},
		map[string]providers.Provider{"stub": stub},
		func(string) bool { return true },
		0,
	)
}

func noopExec(ctx context.Context, command string, timeout time.Duration) (string, error) {
	return "", nil
}

func baseConfig() Config {
	return Config{
		VarCmdAction:     "block",
		MaxCommandLength: 4096,
		ResolverMaxDepth: 2,
		ResolverTimeout:  3 * time.Second,
		FailMode:         "safe",
		ProviderTimeout:  5 * time.Second,
	}
}

func TestValidateBlocksEmptyCommand(t *testing.T) {
	v := New(baseConfig(), allowingChain(t), noopExec, nil)
	d := v.Validate(context.Background(), "   ")
	if d.Action != Block || d.Source != "empty" {
		t.Fatalf("expected empty-command block, got %+v", d)
	}
}

func TestValidateBlocksVariableCommandViaPrefilter(t *testing.T) {
	v := New(baseConfig(), allowingChain(t), noopExec, nil)
	d := v.Validate(context.Background(), "a=ba; b=sh; $a$b")
	if d.Action != Block || d.Source != "prefilter" {
		t.Fatalf("expected prefilter block, got %+v", d)
	}
}

func TestValidatePrefilterHonorsWarnConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.VarCmdAction = "warn"
	v := New(cfg, allowingChain(t), noopExec, nil)
	d := v.Validate(context.Background(), "$cmd")
	if d.Action != Warn || d.Source != "prefilter" {
		t.Fatalf("expected prefilter warn, got %+v", d)
	}
}

func TestValidateBlocksOverLengthCommand(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxCommandLength = 10
	v := New(cfg, allowingChain(t), noopExec, nil)
	d := v.Validate(context.Background(), "echo this-is-a-long-command")
	if d.Action != Block || d.Source != "length_limit" {
		t.Fatalf("expected length-limit block, got %+v", d)
	}
}

func TestValidateAllowsBenignCommandViaProvider(t *testing.T) {
	v := New(baseConfig(), allowingChain(t), noopExec, nil)
	d := v.Validate(context.Background(), "echo hello")
	if d.Action != Allow || d.Source != "provider:stub" {
		t.Fatalf("expected provider allow, got %+v", d)
	}
}

func TestValidateFailModeSafeBlocksWhenProvidersExhausted(t *testing.T) {
	stub := &stubProvider{name: "stub", err: errProviderDown}
	chain := providers.NewChain(
		[]providers.Descriptor{{Provider: "stub"}},
		map[string]providers.Provider{"stub": stub},
		func(string) bool { return true },
		0,
	)
	v := New(baseConfig(), chain, noopExec, nil)
	d := v.Validate(context.Background(), "echo hello")
	if d.Action != Block || d.Source != "fail_mode" {
		t.Fatalf("expected fail-mode block, got %+v", d)
	}
}

// TestValidateLeavesSingleQuotedSubstitutionLiteral is the end-to-end
// version of spec.md's seed test #3: $'$(whoami)' ANSI-C decodes to
// literal text containing "$", so canon re-wraps it in single quotes
// ("echo '$(whoami)'"), and the resolver must treat that "$(...)" as
// quoted literal text, never as a substitution to execute.
func TestValidateLeavesSingleQuotedSubstitutionLiteral(t *testing.T) {
	executed := false
	exec := func(ctx context.Context, command string, timeout time.Duration) (string, error) {
		executed = true
		return "root", nil
	}
	v := New(baseConfig(), allowingChain(t), exec, nil)
	d := v.Validate(context.Background(), `echo $'$(whoami)'`)
	if executed {
		t.Fatalf("expected quoted $(whoami) not to be executed")
	}
	if len(d.ResolveLog) != 0 {
		t.Fatalf("expected no substitution log entries for quoted $(...), got %v", d.ResolveLog)
	}
	if d.ResolvedText != "echo '$(whoami)'" {
		t.Fatalf("expected resolved text to keep $(whoami) literal and quoted, got %q", d.ResolvedText)
	}
	if d.Action != Allow {
		t.Fatalf("expected allow for the quoted-literal command, got %+v", d)
	}
}

func TestValidateFailModeOpenWarnsWhenProvidersExhausted(t *testing.T) {
	cfg := baseConfig()
	cfg.FailMode = "open"
	stub := &stubProvider{name: "stub", err: errProviderDown}
	chain := providers.NewChain(
		[]providers.Descriptor{{Provider: "stub"}},
		map[string]providers.Provider{"stub": stub},
		func(string) bool { return true },
		0,
	)
	v := New(cfg, chain, noopExec, nil)
	d := v.Validate(context.Background(), "echo hello")
	if d.Action != Warn || d.Source != "fail_mode" {
		t.Fatalf("expected fail-mode warn, got %+v", d)
	}
}

