package canon

import "strings"

// metacharacters that disable quote normalization: if any are present,
// splitting and rejoining risks changing semantics (variable expansion,
// braces, redirections, globs), so the step is skipped entirely.
const metacharacters = "$`{|;&<>*?"

// normalizeQuotes rewrites ba""sh into bash and n\c into nc by splitting the
// command into words and rejoining with minimal quoting. Skipped whenever a
// shell metacharacter is present.
func normalizeQuotes(text string, annotations *[]string) string {
	if strings.ContainsAny(text, metacharacters) {
		return text
	}

	words, err := splitWords(text)
	if err != nil {
		*annotations = append(*annotations, AnnotationQuoteNormFailed)
		return text
	}
	return joinWords(words)
}

// joinWords rejoins tokens with the minimal quoting needed to round-trip
// through a POSIX shell — the Go-side equivalent of Python's shlex.join,
// hand-rolled because no example in the retrieved pack ships a shlex-join
// analogue (mvdan.cc/sh's syntax package parses and prints ASTs, not bare
// token lists, so it does not fit this narrower need).
func joinWords(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = quoteWord(w)
	}
	return strings.Join(quoted, " ")
}

func quoteWord(w string) string {
	if w == "" {
		return "''"
	}
	if !strings.ContainsAny(w, " \t\n'\"\\") {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}
