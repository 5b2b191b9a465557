package canon

import (
	"strings"
	"testing"
)

func TestCanonicalizeEchoHello(t *testing.T) {
	r := Canonicalize("echo hello")
	if r.Text != "echo hello" {
		t.Fatalf("expected unchanged text, got %q", r.Text)
	}
}

func TestResolveANSICPreservesLiteralCommandSubstitution(t *testing.T) {
	r := Canonicalize(`echo $'$(whoami)'`)
	if !strings.Contains(r.Text, `'$(whoami)'`) {
		t.Fatalf("expected literal $(whoami) re-quoted, got %q", r.Text)
	}
}

func TestResolveANSICDecodesNamedEscapes(t *testing.T) {
	r := Canonicalize(`printf $'a\tb'`)
	if !strings.Contains(r.Text, "a\tb") {
		t.Fatalf("expected tab decoded, got %q", r.Text)
	}
}

func TestResolveANSICDecodesHexEscape(t *testing.T) {
	r := Canonicalize(`echo $'\x41'`)
	if !strings.Contains(r.Text, "A") {
		t.Fatalf("expected \\x41 decoded to 'A', got %q", r.Text)
	}
}

func TestQuoteNormalizationJoinsSplitQuotes(t *testing.T) {
	r := Canonicalize(`ba""sh`)
	if r.Text != "bash" {
		t.Fatalf("expected ba\"\"sh normalized to bash, got %q", r.Text)
	}
}

func TestQuoteNormalizationSkippedWithMetacharacters(t *testing.T) {
	cmd := `echo "$HOME"`
	r := Canonicalize(cmd)
	if r.Text != cmd {
		t.Fatalf("expected metacharacter command left untouched, got %q", r.Text)
	}
}

func TestBacktickConversion(t *testing.T) {
	r := Canonicalize("echo `whoami`")
	if r.Text != "echo $(whoami)" {
		t.Fatalf("expected backtick converted, got %q", r.Text)
	}
}

func TestBraceExpansionProducesVariants(t *testing.T) {
	r := Canonicalize("echo {a,b,c}")
	if r.Text != "echo a" {
		t.Fatalf("expected primary variant 'echo a', got %q", r.Text)
	}
	if len(r.Variants) != 2 {
		t.Fatalf("expected 2 additional variants, got %v", r.Variants)
	}
}

func TestBraceExpansionRange(t *testing.T) {
	variants := braceExpand("{1..3}")
	if len(variants) != 3 || variants[0] != "1" || variants[2] != "3" {
		t.Fatalf("unexpected range expansion: %v", variants)
	}
}

func TestBraceExpansionLimitAnnotatesButKeepsAll(t *testing.T) {
	r := Canonicalize("echo {1..100}")
	found := false
	for _, a := range r.Annotations {
		if strings.HasPrefix(a, AnnotationBraceLimitPrefix) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected BRACE_LIMIT_EXCEEDED annotation, got %v", r.Annotations)
	}
	if len(r.Variants) != 99 {
		t.Fatalf("expected all 99 remaining variants kept, got %d", len(r.Variants))
	}
}

func TestHereStringExtraction(t *testing.T) {
	r := Canonicalize(`cat <<< "hello world"`)
	if len(r.HereStrings) != 1 || r.HereStrings[0] != "hello world" {
		t.Fatalf("expected here-string extracted, got %v", r.HereStrings)
	}
	if !strings.Contains(r.Text, "<<<") {
		t.Fatalf("expected <<< retained in canonical text")
	}
}

func TestCanonicalizeIsIdempotentOnAlreadyCanonicalCommand(t *testing.T) {
	first := Canonicalize("echo hello world")
	second := Canonicalize(first.Text)
	if first.Text != second.Text {
		t.Fatalf("canonicalization is not a fixed point: %q -> %q", first.Text, second.Text)
	}
}
