package parser

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Lint reports whether command parses as valid bash, with the parser's
// message when it does not. The result is purely informational: verdicts
// never depend on it, since the evaluator must handle commands a strict
// parser rejects.
func Lint(command string) (bool, string) {
	p := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := p.Parse(strings.NewReader(command), ""); err != nil {
		return false, err.Error()
	}
	return true, ""
}
