package canon

import (
	"regexp"
	"strings"
)

// hereStringRe matches <<<'content', <<<"content", or <<<content (unquoted
// word).
var hereStringRe = regexp.MustCompile(`<<<\s*(?:'([^']*)'|"([^"]*)"|(\S+))`)

// extractHereStrings returns the content of each <<< here-string found in
// text. The canonical text retains the <<< structure so the shell still
// executes it correctly; this only copies the bodies out for inspection.
func extractHereStrings(text string) []string {
	if !strings.Contains(text, "<<<") {
		return nil
	}

	var bodies []string
	for _, m := range hereStringRe.FindAllStringSubmatch(text, -1) {
		body := firstNonEmpty(m[1], m[2], m[3])
		if body != "" {
			bodies = append(bodies, body)
		}
	}
	return bodies
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
