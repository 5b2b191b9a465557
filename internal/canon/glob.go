package canon

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
)

// globMetaRe matches glob metacharacters.
var globMetaRe = regexp.MustCompile(`[*?\[]`)

// resolveGlobs resolves tokens containing *, ?, or [ against the
// filesystem. Non-matching globs are left verbatim, matching bash
// behaviour. path/filepath.Glob already implements POSIX glob semantics
// equivalent to Python's glob.glob for this purpose, so no third-party
// glob library is needed here; doublestar is reserved for the sandbox's
// recursive **-pattern path rules (see internal/sandbox), which this
// plain shell globbing stage does not require.
func resolveGlobs(text string, annotations *[]string) string {
	if !globMetaRe.MatchString(text) {
		return text
	}

	tokens, err := splitWords(text)
	if err != nil {
		return text
	}

	changed := false
	resolved := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !globMetaRe.MatchString(token) {
			resolved = append(resolved, token)
			continue
		}
		matches, err := filepath.Glob(token)
		if err != nil || len(matches) == 0 {
			resolved = append(resolved, token)
			continue
		}
		sort.Strings(matches)
		if len(matches) > globMatchLimit {
			*annotations = append(*annotations, fmt.Sprintf(
				"%s: '%s' matched %d paths, showing first %d. The actual command will operate on ALL %d paths.",
				AnnotationGlobCapPrefix, token, len(matches), globMatchLimit, len(matches)))
			matches = matches[:globMatchLimit]
		}
		resolved = append(resolved, matches...)
		changed = true
	}

	if !changed {
		return text
	}
	return joinWords(resolved)
}
