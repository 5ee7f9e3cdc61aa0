package parser

import (
	"regexp"
	"strings"
	"unicode"

	"mvdan.cc/sh/v3/syntax"
)

var (
	// Body-introducing keywords left behind when a control structure is
	// split on ';' ("then rm -rf /" from "if x; then rm -rf /; fi").
	controlFlowKeywords = regexp.MustCompile(`(?i)^(then|else|elif|do)\s+`)

	// Block terminators, optionally with a redirection or pipe tail
	// ("done < file.txt"). Inert on their own.
	controlFlowTerminators = regexp.MustCompile(`(?i)^(done|fi|esac)(\s*[<>|&].*)?$`)

	varReference = regexp.MustCompile(`^\$[A-Za-z_][A-Za-z0-9_]*`)
)

// Normalize reduces a segment to its effective command: leading comment
// lines, one layer of grouping characters, leading environment-variable
// assignments, and control-flow framing are stripped in that order. The
// result may be empty; empty effective commands are inert and must not be
// matched against patterns.
func Normalize(segment string) string {
	s := strings.TrimSpace(segment)
	s = stripLeadingComments(s)
	s = stripGrouping(s)
	s = stripAssignments(s)
	return stripControlFlow(s)
}

func stripLeadingComments(s string) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "#") {
		lines = lines[1:]
	}
	return strings.TrimLeftFunc(strings.Join(lines, "\n"), unicode.IsSpace)
}

func stripGrouping(s string) string {
	for len(s) > 0 && (s[0] == '(' || s[0] == '{') {
		s = strings.TrimLeftFunc(s[1:], unicode.IsSpace)
	}
	for len(s) > 0 && (s[len(s)-1] == ')' || s[len(s)-1] == '}') {
		s = strings.TrimRightFunc(s[:len(s)-1], unicode.IsSpace)
	}
	return s
}

// stripAssignments removes every leading IDENTIFIER=value pair, so that
// "A=1 B=$(cmd) real-cmd" is matched as "real-cmd". The value form decides
// how much to consume.
func stripAssignments(s string) string {
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		rest, ok := splitAssignment(s)
		if !ok {
			break
		}
		s = consumeValue(rest)
	}
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}

// splitAssignment checks for a leading IDENTIFIER= and returns the text
// after the '='.
func splitAssignment(s string) (string, bool) {
	eq := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '=' {
			eq = i
			break
		}
		if !isIdentChar(c) {
			return "", false
		}
	}
	if eq <= 0 || !syntax.ValidName(s[:eq]) {
		return "", false
	}
	return s[eq+1:], true
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func consumeValue(rest string) string {
	switch {
	case strings.HasPrefix(rest, "$("):
		// Parenthesis-balanced command substitution.
		depth := 1
		i := 2
		for depth > 0 && i < len(rest) {
			switch rest[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			i++
		}
		return rest[i:]

	case strings.HasPrefix(rest, "`"):
		if end := strings.IndexByte(rest[1:], '`'); end >= 0 {
			return rest[end+2:]
		}
		return ""

	case strings.HasPrefix(rest, `"`):
		i := 1
		for i < len(rest) {
			if rest[i] == '\\' && i+1 < len(rest) {
				i += 2
				continue
			}
			if rest[i] == '"' {
				break
			}
			i++
		}
		if i >= len(rest) {
			return ""
		}
		return rest[i+1:]

	case strings.HasPrefix(rest, "'"):
		if end := strings.IndexByte(rest[1:], '\''); end >= 0 {
			return rest[end+2:]
		}
		return ""

	default:
		if m := varReference.FindString(rest); m != "" {
			return rest[len(m):]
		}
		// Unquoted literal: up to and through the next whitespace run.
		i := 0
		for i < len(rest) && !isSpaceByte(rest[i]) {
			i++
		}
		for i < len(rest) && isSpaceByte(rest[i]) {
			i++
		}
		return rest[i:]
	}
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func stripControlFlow(s string) string {
	if controlFlowTerminators.MatchString(s) {
		return ""
	}
	if m := controlFlowKeywords.FindString(s); m != "" {
		return strings.TrimLeftFunc(s[len(m):], unicode.IsSpace)
	}
	return s
}
