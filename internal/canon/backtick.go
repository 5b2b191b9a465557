package canon

import (
	"regexp"
	"strings"
)

// backtickRe matches `...` command substitution (non-nested; nested cases
// require escaped inner backticks, which is rare, and are left as is,
// matching the original's documented limitation).
var backtickRe = regexp.MustCompile("`([^`]*)`")

// convertBackticks rewrites backtick command substitutions to $() form.
func convertBackticks(text string) string {
	if !strings.Contains(text, "`") {
		return text
	}
	return backtickRe.ReplaceAllString(text, "$($1)")
}
