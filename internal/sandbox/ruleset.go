package sandbox

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathRuleSet describes the filesystem paths the Landlock-preload library
// should allow or deny, in addition to whatever baseline ruleset it ships
// with. Patterns use doublestar syntax so an operator can express
// recursive rules like "/home/*/.ssh/**" that plain shell globbing (C3)
// has no need for.
//
// The ruleset is advisory from this package's point of view: aegish never
// enforces it itself, it only validates patterns and serializes them into
// an environment variable the preload library reads at exec time. Actual
// enforcement is the Landlock LSM's, inside the launched shell.
type PathRuleSet struct {
	Allow []string
	Deny  []string
}

// pathRulesEnvVar is the variable the Landlock-preload constructor reads
// to build its ruleset, alongside LD_PRELOAD itself.
const pathRulesEnvVar = "AEGISH_LANDLOCK_PATH_RULES"

// Validate checks every pattern compiles as a doublestar glob, returning
// the first invalid pattern's error. Call this once at config load time so
// a typo in the operator's ruleset fails fast instead of silently never
// matching.
func (r PathRuleSet) Validate() error {
	for _, p := range r.Allow {
		if _, err := doublestar.Match(p, "probe"); err != nil {
			return err
		}
	}
	for _, p := range r.Deny {
		if _, err := doublestar.Match(p, "probe"); err != nil {
			return err
		}
	}
	return nil
}

// MatchesDeny reports whether path matches any deny pattern. Used by
// callers that want to pre-flight-reject an obviously disallowed target
// before even launching the shell (the preload library is still the
// authority at exec time; this is a cheap early rejection).
func (r PathRuleSet) MatchesDeny(path string) bool {
	for _, p := range r.Deny {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// MatchesAllow reports whether path matches any allow pattern. An empty
// allow list means "no additional allowance beyond the preload library's
// own baseline" rather than "allow everything".
func (r PathRuleSet) MatchesAllow(path string) bool {
	for _, p := range r.Allow {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// encode serializes the ruleset as "allow:<p1>,<p2>;deny:<p3>,<p4>" for
// the preload library's environment-variable ruleset format.
func (r PathRuleSet) encode() string {
	if len(r.Allow) == 0 && len(r.Deny) == 0 {
		return ""
	}
	var b strings.Builder
	if len(r.Allow) > 0 {
		b.WriteString("allow:")
		b.WriteString(strings.Join(r.Allow, ","))
	}
	if len(r.Deny) > 0 {
		if b.Len() > 0 {
			b.WriteString(";")
		}
		b.WriteString("deny:")
		b.WriteString(strings.Join(r.Deny, ","))
	}
	return b.String()
}
