package canon

import (
	"regexp"
	"strconv"
	"strings"
)

// ansiCRe matches $'...' ANSI-C quoted strings.
var ansiCRe = regexp.MustCompile(`\$'([^'\\]*(?:\\.[^'\\]*)*)'`)

// ansiEscapeRe matches a single escape sequence inside an ANSI-C string body:
// \xHH, octal \NNN, \uHHHH, \UHHHHHHHH, or a named escape.
var ansiEscapeRe = regexp.MustCompile(
	`\\(?:x([0-9a-fA-F]{1,2})|([0-7]{1,3})|u([0-9a-fA-F]{4})|U([0-9a-fA-F]{8})|([abeEfnrtv\\'"?]))`,
)

var namedEscapes = map[byte]byte{
	'a': '\a', 'b': '\b', 'e': 0x1b, 'E': 0x1b, 'f': '\f',
	'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
	'\\': '\\', '\'': '\'', '"': '"', '?': '?',
}

// resolveANSICQuotes decodes all $'...' strings in text to their literal
// characters. If a decoded body contains $ or a backtick, the result is
// re-wrapped in single quotes (escaping internal single quotes via the
// '\'' idiom) so a literal $'$(cmd)' cannot become an executable $(cmd).
func resolveANSICQuotes(text string, annotations *[]string) string {
	if !strings.Contains(text, "$'") {
		return text
	}

	resolved := ansiCRe.ReplaceAllStringFunc(text, func(match string) string {
		sub := ansiCRe.FindStringSubmatch(match)
		return resolveSingleANSIC(sub[1])
	})

	if strings.Contains(resolved, "$'") {
		*annotations = append(*annotations, AnnotationANSICPartial)
	}
	return resolved
}

func resolveSingleANSIC(body string) string {
	decoded := ansiEscapeRe.ReplaceAllStringFunc(body, decodeANSIEscape)
	if decoded == "" || strings.ContainsAny(decoded, "$`"+metacharacters+" \t\n\"\\") {
		escaped := strings.ReplaceAll(decoded, "'", `'\''`)
		return "'" + escaped + "'"
	}
	return decoded
}

func decodeANSIEscape(match string) string {
	sub := ansiEscapeRe.FindStringSubmatch(match)
	switch {
	case sub[1] != "": // \xHH
		v, err := strconv.ParseInt(sub[1], 16, 32)
		if err != nil {
			return match
		}
		return string(rune(v))
	case sub[2] != "": // \NNN octal
		v, err := strconv.ParseInt(sub[2], 8, 32)
		if err != nil {
			return match
		}
		return string(rune(v))
	case sub[3] != "": // \uHHHH
		v, err := strconv.ParseInt(sub[3], 16, 32)
		if err != nil {
			return match
		}
		return string(rune(v))
	case sub[4] != "": // \UHHHHHHHH
		v, err := strconv.ParseInt(sub[4], 16, 32)
		if err != nil {
			return match
		}
		return string(rune(v))
	case sub[5] != "":
		if r, ok := namedEscapes[sub[5][0]]; ok {
			return string(rune(r))
		}
		return match
	}
	return match
}
