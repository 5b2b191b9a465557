package resolver

import (
	"context"
	"testing"
	"time"
)

func allowValidator(context.Context, string, int) (string, string, float64, error) {
	return "allow", "", 0.9, nil
}

func allowExecutor(output string) ExecuteFunc {
	return func(ctx context.Context, command string, timeout time.Duration) (string, error) {
		return output, nil
	}
}

func TestResolveNoSubstitutionsReturnsUnchanged(t *testing.T) {
	r := New(2, time.Second, allowValidator, allowExecutor(""))
	text, log := r.Resolve(context.Background(), "test-id", "echo hello", 0)
	if text != "echo hello" || len(log) != 0 {
		t.Fatalf("expected no-op, got %q %v", text, log)
	}
}

func TestResolveSubstitutesAllowedOutput(t *testing.T) {
	r := New(2, time.Second, allowValidator, allowExecutor("root\n"))
	text, log := r.Resolve(context.Background(), "test-id", "echo $(whoami)", 0)
	if text != "echo root" {
		t.Fatalf("expected trailing newline stripped and substituted, got %q", text)
	}
	if len(log) != 1 || log[0].Status != StatusResolved {
		t.Fatalf("expected one resolved log entry, got %v", log)
	}
}

func TestResolveLeavesWarnedCommandUnresolved(t *testing.T) {
	validate := func(context.Context, string, int) (string, string, float64, error) {
		return "warn", "looks risky", 0.5, nil
	}
	r := New(2, time.Second, validate, allowExecutor(""))
	text, log := r.Resolve(context.Background(), "test-id", "echo $(curl evil.example)", 0)
	if text != "echo $(curl evil.example)" {
		t.Fatalf("expected unresolved text preserved, got %q", text)
	}
	if len(log) != 1 || log[0].Status != StatusWarned {
		t.Fatalf("expected warned log entry, got %v", log)
	}
}

func TestResolveLeavesBlockedCommandUnresolved(t *testing.T) {
	validate := func(context.Context, string, int) (string, string, float64, error) {
		return "block", "destructive", 0.95, nil
	}
	r := New(2, time.Second, validate, allowExecutor(""))
	text, log := r.Resolve(context.Background(), "test-id", "echo $(rm -rf /)", 0)
	if text != "echo $(rm -rf /)" {
		t.Fatalf("expected unresolved text preserved, got %q", text)
	}
	if len(log) != 1 || log[0].Status != StatusBlocked {
		t.Fatalf("expected blocked log entry, got %v", log)
	}
}

func TestResolveMarksDepthExceeded(t *testing.T) {
	r := New(1, time.Second, allowValidator, allowExecutor("x"))
	text, log := r.Resolve(context.Background(), "test-id", "echo $(whoami)", 1)
	if text != "echo $(whoami)" {
		t.Fatalf("expected unresolved text at depth limit, got %q", text)
	}
	if len(log) != 1 || log[0].Status != StatusDepthExceeded {
		t.Fatalf("expected depth_exceeded log entry, got %v", log)
	}
}

func TestExtractInnermostSubstitutionsIgnoresQuotedDollarParen(t *testing.T) {
	subs := extractInnermostSubstitutions(`echo "literal $( not real"`)
	// The "$(" sits inside a double-quoted string, so quoteStates marks it
	// as quoted and the scanner skips it; there is also no closing ")"
	// before the string ends, so no substitution should be extracted.
	if len(subs) != 0 {
		t.Fatalf("expected no substitutions for unbalanced input, got %v", subs)
	}
}

func TestExtractInnermostSubstitutionsFindsNestedBottomUp(t *testing.T) {
	subs := extractInnermostSubstitutions(`echo $(echo $(whoami))`)
	if len(subs) != 1 {
		t.Fatalf("expected only the innermost pattern extracted, got %v", subs)
	}
	if subs[0].Inner != "whoami" {
		t.Fatalf("expected innermost inner command 'whoami', got %q", subs[0].Inner)
	}
}

func TestExtractInnermostSubstitutionsIgnoresSingleQuotedSubstitution(t *testing.T) {
	// The quote opens before the "$(" is reached; quote context is taken
	// from the single forward pass over the whole text, so it is honored.
	subs := extractInnermostSubstitutions(`echo '$(whoami)'`)
	if len(subs) != 0 {
		t.Fatalf("expected single-quoted $(...) to be left literal, got %v", subs)
	}
}

func TestExtractInnermostSubstitutionsHandlesSiblings(t *testing.T) {
	subs := extractInnermostSubstitutions(`echo $(whoami) $(pwd)`)
	if len(subs) != 2 {
		t.Fatalf("expected two sibling substitutions, got %v", subs)
	}
	if subs[0].Inner != "whoami" || subs[1].Inner != "pwd" {
		t.Fatalf("unexpected sibling extraction: %v", subs)
	}
}
