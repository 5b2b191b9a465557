package sandbox

import "testing"

func TestPathRuleSetValidateRejectsBadPattern(t *testing.T) {
	r := PathRuleSet{Allow: []string{"[unterminated"}}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected validation error for malformed pattern")
	}
}

func TestPathRuleSetMatchesDenyRecursive(t *testing.T) {
	r := PathRuleSet{Deny: []string{"/home/*/.ssh/**"}}
	if !r.MatchesDeny("/home/alice/.ssh/id_rsa") {
		t.Fatalf("expected recursive deny pattern to match nested path")
	}
	if r.MatchesDeny("/home/alice/workspace/id_rsa") {
		t.Fatalf("did not expect deny pattern to match unrelated path")
	}
}

func TestPathRuleSetEmptyEncodesEmpty(t *testing.T) {
	r := PathRuleSet{}
	if got := r.encode(); got != "" {
		t.Fatalf("expected empty ruleset to encode empty, got %q", got)
	}
}
