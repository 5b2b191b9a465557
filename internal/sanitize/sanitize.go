// Package sanitize builds the environment mapping handed to sandboxed
// child processes and the redacted projection shipped to LLM providers.
//
// Policy is allow-list, not block-list: only names matching an exact
// allow-listed entry or an allow-listed prefix survive. A prior
// block-list implementation was fuzzed and found to leak dozens of
// security-sensitive variables (library-preload, shell-option,
// interpreter-startup, VCS-transport, pager-pipe) because enumerating
// every dangerous name is brittle; enumerating the safe ones is not.
package sanitize

import "strings"

// allowedNames are environment variables the sandboxed shell may see
// verbatim.
var allowedNames = []string{
	"HOME", "USER", "LOGNAME", "SHELL", "PWD", "OLDPWD",
	"PATH", "LANG", "LC_ALL", "LC_CTYPE", "TZ",
	"TERM", "COLORTERM", "COLUMNS", "LINES",
	"TMPDIR", "TMP", "TEMP",
	"HOSTNAME", "DISPLAY",
}

// allowedPrefixes are name prefixes that remain safe regardless of suffix
// (e.g. LC_* locale category overrides).
var allowedPrefixes = []string{
	"LC_",
	"XDG_",
}

// sensitivePatterns are substrings (case-insensitive) that mark a variable
// name as carrying a credential; such variables are redacted from any text
// forwarded to an LLM provider even if they also happen to be allow-listed.
var sensitivePatterns = []string{
	"key", "secret", "token", "password", "passwd", "credential", "auth",
}

// Build derives the safe environment for a subprocess launch from the
// current process environment. The result is rebuilt fresh for every
// launch and never persisted or mutated afterward.
func Build(processEnv []string) []string {
	out := make([]string, 0, len(processEnv))
	for _, kv := range processEnv {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if IsAllowed(name) {
			out = append(out, kv)
		}
	}
	return out
}

// IsAllowed reports whether name may pass through to a sandboxed child.
func IsAllowed(name string) bool {
	for _, n := range allowedNames {
		if name == n {
			return true
		}
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// IsSensitive reports whether name looks like it carries a credential and
// must be redacted before being included in a prompt sent to a provider.
func IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range sensitivePatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// RedactForPrompt replaces every occurrence of a sensitive environment
// variable's value inside text with a "[REDACTED:NAME]" marker, so that
// secret values never reach a remote provider even when the text submitted
// for classification carries them verbatim. References such as $NAME or
// ${NAME} are left as written; only the values themselves are replaced.
func RedactForPrompt(text string, processEnv []string) string {
	redacted := text
	for _, kv := range processEnv {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !IsSensitive(name) {
			continue
		}
		redacted = strings.ReplaceAll(redacted, value, "[REDACTED:"+name+"]")
	}
	return redacted
}
