// Package llmparse implements the response parser (C6): it extracts a
// classification decision from whatever text a model actually returned,
// which in practice is a mix of strict JSON, markdown-fenced JSON,
// double-braced JSON, prose with JSON embedded in it, and text wrapped
// in <think>...</think> reasoning blocks.
//
// The balanced-brace scan is ported from the historical Python
// find_balanced_json helper (itself lifted from a benchmark scorer into
// production use); the <think>-block and stop-reason handling are new,
// added to cover models this parser must additionally support.
package llmparse

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FailureReason classifies why no action could be extracted. These are
// not actions themselves — internal/validator turns them into a
// BLOCK/WARN decision according to the configured fail-mode policy.
type FailureReason string

const (
	ReasonNone          FailureReason = ""
	ReasonContentFilter FailureReason = "content_filter"
	ReasonTokenLimit    FailureReason = "token_limit"
	ReasonTimeout       FailureReason = "timeout_error"
	ReasonFormatError   FailureReason = "format_error"
)

// Result is the outcome of parsing one model completion.
type Result struct {
	Action     string // "allow", "warn", or "block", lower-cased; empty if unparsed
	Reason     string // the model's stated reason, when present
	Confidence float64
	Failure    FailureReason
}

var (
	fenceRe     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")
	thinkRe     = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	prefixRe    = regexp.MustCompile(`^\s*(?:Assistant|Response|Answer)\s*:\s*`)
	actionRegex = regexp.MustCompile(`(?i)"action"\s*:\s*"(allow|warn|block)"`)
	reasonRegex = regexp.MustCompile(`(?i)"reason"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

type rawDecision struct {
	Action     string  `json:"action"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Parse extracts a classification decision from a raw model completion.
// stopReason is the provider's own stop/finish reason string (e.g.
// "stop", "content_filter", "max_tokens", "model_length"), used only
// when completion is empty.
func Parse(completion, stopReason string) Result {
	trimmed := strings.TrimSpace(completion)
	if trimmed == "" {
		return Result{Failure: classifyEmptyStop(stopReason)}
	}

	trimmed = prefixRe.ReplaceAllString(trimmed, "")

	if m := thinkRe.FindStringSubmatchIndex(trimmed); m != nil {
		// A <think> block is present: look for the decision outside it
		// first (the common case — models reason, then answer), falling
		// back to inside it only if nothing usable is found outside.
		outside := trimmed[:m[0]] + trimmed[m[1]:]
		if candidate := findBalancedJSON(outside); candidate != "" {
			if r, ok := tryParse(candidate); ok {
				return r
			}
		}
		inside := trimmed[m[2]:m[3]]
		if candidate := findBalancedJSON(inside); candidate != "" {
			if r, ok := tryParse(candidate); ok {
				return r
			}
		}
	} else if candidate := findBalancedJSON(trimmed); candidate != "" {
		if r, ok := tryParse(candidate); ok {
			return r
		}
	}

	if m := actionRegex.FindStringSubmatch(trimmed); m != nil {
		reason := ""
		if rm := reasonRegex.FindStringSubmatch(trimmed); rm != nil {
			reason = rm[1]
		}
		return Result{Action: strings.ToLower(m[1]), Reason: reason}
	}

	return Result{Failure: ReasonFormatError}
}

func classifyEmptyStop(stopReason string) FailureReason {
	switch strings.ToLower(stopReason) {
	case "content_filter":
		return ReasonContentFilter
	case "max_tokens", "model_length", "length":
		return ReasonTokenLimit
	default:
		return ReasonTimeout
	}
}

func tryParse(candidate string) (Result, bool) {
	var raw rawDecision
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return Result{}, false
	}
	action := strings.ToLower(strings.TrimSpace(raw.Action))
	switch action {
	case "allow", "warn", "block":
	default:
		return Result{}, false
	}
	return Result{Action: action, Reason: raw.Reason, Confidence: raw.Confidence}, true
}

// findBalancedJSON locates the first balanced {...} object in text,
// stripping a surrounding markdown fence and normalizing doubled braces
// first. Returns "" if no balanced object is found.
func findBalancedJSON(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	normalized := strings.NewReplacer("{{", "{", "}}", "}").Replace(text)

	start := strings.IndexByte(normalized, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(normalized); i++ {
		ch := normalized[i]
		if escape {
			escape = false
			continue
		}
		switch ch {
		case '\\':
			escape = true
			continue
		case '"':
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return normalized[start : i+1]
			}
		}
	}
	return ""
}
