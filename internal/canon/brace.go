package canon

import (
	"fmt"
	"strconv"
	"strings"
)

// expandBraces enumerates {a,b,c} and {1..N} brace expressions and returns
// (primary_text, other_variants). The first enumeration becomes the
// canonical text; the remainder are kept as variants so the static
// pre-filter can still inspect them (spec's "every variant" resolution of
// its brace-variant Open Question). If expansion would exceed
// braceVariantLimit, BRACE_LIMIT_EXCEEDED is annotated but every
// enumeration is still kept — nothing is silently dropped.
//
// Hand-rolled: no brace-expansion library appears anywhere in the
// retrieved example pack (the original Python implementation used the
// third-party "braceexpand" package, which has no Go-ecosystem
// counterpart among the examples), so this is the one canonicalizer stage
// built on the standard library alone.
func expandBraces(text string, annotations *[]string) (string, []string) {
	if !strings.Contains(text, "{") {
		return text, nil
	}

	variants := braceExpand(text)
	if len(variants) <= 1 {
		return text, nil
	}

	if len(variants) > braceVariantLimit {
		*annotations = append(*annotations, fmt.Sprintf("%s (%d variants)", AnnotationBraceLimitPrefix, len(variants)))
	}

	return variants[0], variants[1:]
}

// braceExpand expands every top-level brace expression in text, left to
// right, returning all resulting strings in bash enumeration order.
func braceExpand(text string) []string {
	start, end, ok := findBraceSpan(text)
	if !ok {
		return []string{text}
	}

	prefix := text[:start]
	body := text[start+1 : end]
	suffix := text[end+1:]

	alternatives := splitBraceBody(body)
	if alternatives == nil {
		// Not a valid {a,b} list or {x..y} range — treat the braces as
		// literal text and don't expand.
		return []string{text}
	}

	var out []string
	for _, alt := range alternatives {
		for _, suf := range braceExpand(suffix) {
			out = append(out, prefix+alt+suf)
		}
	}
	return out
}

// findBraceSpan locates the first top-level balanced {...} span in text.
func findBraceSpan(text string) (start, end int, ok bool) {
	depth := 0
	start = -1
	for i, ch := range text {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start != -1 {
				return start, i, true
			}
		}
	}
	return 0, 0, false
}

// splitBraceBody interprets a brace body as either a comma-separated list
// (split at top-level commas only) or a {start..end[..step]} range. Returns
// nil if neither form applies.
func splitBraceBody(body string) []string {
	if rng := expandRange(body); rng != nil {
		return rng
	}

	depth := 0
	var parts []string
	last := 0
	hasComma := false
	for i, ch := range body {
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[last:i])
				last = i + 1
				hasComma = true
			}
		}
	}
	parts = append(parts, body[last:])
	if !hasComma {
		return nil
	}
	return parts
}

// expandRange handles {start..end} and {start..end..step} for both integer
// and single-character ranges.
func expandRange(body string) []string {
	parts := strings.Split(body, "..")
	if len(parts) != 2 && len(parts) != 3 {
		return nil
	}

	step := 1
	if len(parts) == 3 {
		v, err := strconv.Atoi(parts[2])
		if err != nil || v == 0 {
			return nil
		}
		step = v
	}

	if lo, hi, ok := parseIntBound(parts[0], parts[1]); ok {
		return expandIntRange(lo, hi, step, len(parts[0]) > 1 && parts[0][0] == '0')
	}
	if len(parts[0]) == 1 && len(parts[1]) == 1 {
		return expandCharRange(rune(parts[0][0]), rune(parts[1][0]), step)
	}
	return nil
}

func parseIntBound(a, b string) (int, int, bool) {
	lo, err1 := strconv.Atoi(a)
	hi, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func expandIntRange(lo, hi, step int, zeroPad bool) []string {
	if step < 0 {
		step = -step
	}
	var out []string
	width := len(strconv.Itoa(maxInt(abs(lo), abs(hi))))
	if lo <= hi {
		for v := lo; v <= hi; v += step {
			out = append(out, formatIntMember(v, zeroPad, width))
		}
	} else {
		for v := lo; v >= hi; v -= step {
			out = append(out, formatIntMember(v, zeroPad, width))
		}
	}
	return out
}

func formatIntMember(v int, zeroPad bool, width int) string {
	if !zeroPad {
		return strconv.Itoa(v)
	}
	s := strconv.Itoa(abs(v))
	for len(s) < width {
		s = "0" + s
	}
	if v < 0 {
		return "-" + s
	}
	return s
}

func expandCharRange(lo, hi rune, step int) []string {
	if step < 0 {
		step = -step
	}
	var out []string
	if lo <= hi {
		for c := lo; c <= hi; c += rune(step) {
			out = append(out, string(c))
		}
	} else {
		for c := lo; c >= hi; c -= rune(step) {
			out = append(out, string(c))
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
