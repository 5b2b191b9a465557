// Package canon implements the command canonicalizer (C3): a pipeline of
// pure text transforms that produce the form the target shell will
// actually execute. No execution occurs here — only syntactic
// normalization, so later stages see what bash will really run.
//
// Ported transform-for-transform from the historical Python
// canonicalizer module, in bash expansion order: ANSI-C quote
// resolution, quote normalization, backtick conversion, brace
// expansion, glob resolution, here-string extraction.
package canon

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Annotation tags recording lossy or partial transforms.
const (
	AnnotationANSICPartial     = "ANSI_C_PARTIAL"
	AnnotationQuoteNormFailed  = "QUOTE_NORM_FAILED"
	AnnotationBraceLimitPrefix = "BRACE_LIMIT_EXCEEDED"
	AnnotationGlobCapPrefix    = "GLOB_EXPANSION_CAPPED"
)

// braceVariantLimit caps the number of brace-expansion enumerations kept
// before annotating (all enumerations are still kept for C4's scan, per
// the safer "every variant" resolution of spec.md's Open Question).
const braceVariantLimit = 64

// globMatchLimit caps the number of filesystem matches a single glob token
// may expand to before truncating.
const globMatchLimit = 64

// Result is the immutable output of Canonicalize.
type Result struct {
	Original    string   // the raw operator input
	Text        string   // canonical form — what the shell will execute
	Variants    []string // alternative brace-expansion enumerations
	HereStrings []string // bodies of <<< redirections
	Annotations []string // ordered tags recording lossy transforms
}

// Canonicalize runs the six-stage transform pipeline over command.
func Canonicalize(command string) Result {
	r := Result{Original: command, Text: command}

	r.Text = resolveANSICQuotes(r.Text, &r.Annotations)
	r.Text = normalizeQuotes(r.Text, &r.Annotations)
	r.Text = convertBackticks(r.Text)
	r.Text, r.Variants = expandBraces(r.Text, &r.Annotations)
	r.Text = resolveGlobs(r.Text, &r.Annotations)
	r.HereStrings = extractHereStrings(r.Text)

	return r
}

// splitWords tokenizes text using the bash word-splitting rules of
// mvdan.cc/sh/v3's lexer, the Go-ecosystem equivalent of Python's shlex
// used by the original canonicalizer for quote normalization and glob
// tokenization.
func splitWords(text string) ([]string, error) {
	p := syntax.NewParser(syntax.Variant(syntax.LangBash))
	var words []string
	err := p.Words(strings.NewReader(text), func(w *syntax.Word) bool {
		if lit, ok := syntax.SimplestWord(w); ok {
			words = append(words, lit)
		} else {
			// Fall back to the literal source text for the word when it
			// contains expansions SimplestWord cannot flatten — the
			// canonicalizer only ever tokenizes text it has already
			// confirmed is metacharacter-free, so this path is for
			// resilience against parser edge cases, not normal input.
			words = append(words, wordLiteral(text, w))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return words, nil
}

func wordLiteral(src string, w *syntax.Word) string {
	start := int(w.Pos().Offset())
	end := int(w.End().Offset())
	if start > len(src) || end > len(src) || start > end {
		return ""
	}
	return src[start:end]
}
