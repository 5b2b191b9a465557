// Package prefilter implements the static pre-filter (C4): a structural
// check over the shell AST that catches command names built dynamically
// from variables — a class of evasion no regex on raw text can reliably
// catch, because the evasion can be spread across a for/while/until/case/
// subshell/brace-group, or assembled by concatenating two variables
// (`a=ba; b=sh; $a$b`).
//
// Ported from the historical Python validator's bashlex AST walk
// (_find_var_in_command_position), re-expressed over mvdan.cc/sh/v3's
// syntax package. Unlike the original, parse failures are never folded
// into a bare except-and-continue: a syntax.ParseError, or any other error
// the parser returns, is reported as a Finding with Parsed=false and its
// message rather than swallowed, so the caller (internal/validator)
// decides fail-open vs. fail-closed instead of the pre-filter silently
// guessing.
package prefilter

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Finding is the structural result of scanning one canonicalized command
// variant for variable-built command names.
type Finding struct {
	Parsed     bool   // false if the shell AST could not be parsed at all
	Flagged    bool   // true if a variable-in-command-position pattern was found
	Detail     string // human-readable description of what matched, for logging
	ParseError string // populated when Parsed is false
}

// Scan parses command and walks every statement, including those nested
// inside control-flow and grouping constructs, looking for command names
// assembled entirely from variable expansions and for eval/source calls
// fed a variable argument.
func Scan(command string) Finding {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(false))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		var parseErr syntax.ParseError
		if errors.As(err, &parseErr) {
			return Finding{Parsed: false, ParseError: parseErr.Error()}
		}
		// Any other error (e.g. a reader failure) is not something this
		// scan can recover from locally; surface it as unparsed too, but
		// keep the distinct message so callers can tell the two apart.
		return Finding{Parsed: false, ParseError: err.Error()}
	}

	var finding Finding
	finding.Parsed = true

	syntax.Walk(file, func(node syntax.Node) bool {
		if finding.Flagged {
			return false
		}
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}

		if reason, hit := variableCommandName(call.Args[0]); hit {
			finding.Flagged = true
			finding.Detail = reason
			return false
		}

		if reason, hit := evalOfVariable(call); hit {
			finding.Flagged = true
			finding.Detail = reason
			return false
		}

		return true
	})

	return finding
}

// variableCommandName reports whether w — the word occupying command
// position in a CallExpr — is built entirely out of parameter or
// command-substitution expansions, with no literal command name
// anywhere in it (including inside double quotes). This matches a
// single dynamic command (`$cmd`), a quoted one (`"$cmd"`), and a
// concatenation of two or more variables (`$a$b`), since none of these
// ever carry a literal command name in the source text.
func variableCommandName(w *syntax.Word) (string, bool) {
	if len(w.Parts) == 0 {
		return "", false
	}
	hasLiteral, substCount := analyzeWordParts(w.Parts)
	if hasLiteral || substCount == 0 {
		return "", false
	}
	return fmt.Sprintf("command name built from %d variable expansion(s) with no literal component", substCount), true
}

// analyzeWordParts recurses into a word's parts, including the parts
// nested inside double-quoted segments, and reports whether any literal
// text is present alongside how many parameter or command substitutions
// appear.
func analyzeWordParts(parts []syntax.WordPart) (hasLiteral bool, substCount int) {
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.Lit:
			if p.Value != "" {
				hasLiteral = true
			}
		case *syntax.SglQuoted:
			if p.Value != "" {
				hasLiteral = true
			}
		case *syntax.ParamExp, *syntax.CmdSubst:
			substCount++
		case *syntax.DblQuoted:
			nestedLit, nestedSubst := analyzeWordParts(p.Parts)
			hasLiteral = hasLiteral || nestedLit
			substCount += nestedSubst
		default:
			// Arithmetic expansions, extended globs, process
			// substitution: none of these are a bare variable
			// reference, so treat them like a literal component.
			hasLiteral = true
		}
	}
	return
}

// containsSubstitution reports whether any parameter or command
// substitution appears anywhere in parts, including nested inside
// double quotes.
func containsSubstitution(parts []syntax.WordPart) bool {
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.ParamExp, *syntax.CmdSubst:
			return true
		case *syntax.DblQuoted:
			if containsSubstitution(p.Parts) {
				return true
			}
		}
	}
	return false
}

// evalOfVariable reports whether call invokes eval, source, or `.` with
// an argument that is, in whole or part, a variable or command
// substitution — the classic "hide the real command inside a variable,
// then eval it" evasion.
func evalOfVariable(call *syntax.CallExpr) (string, bool) {
	name, ok := syntax.SimplestWord(call.Args[0])
	if !ok {
		return "", false
	}
	switch name {
	case "eval", "source", ".":
	default:
		return "", false
	}
	for _, arg := range call.Args[1:] {
		if containsSubstitution(arg.Parts) {
			return fmt.Sprintf("%s invoked with a dynamically built argument", name), true
		}
	}
	return "", false
}
