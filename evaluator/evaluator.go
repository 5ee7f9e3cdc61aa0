// Package evaluator applies a pattern set to a command line and produces a
// tri-state verdict: deny, ask, or allow.
package evaluator

import (
	"fmt"

	"github.com/jonchun/cmdgate/parser"
	"github.com/jonchun/cmdgate/policy"
)

// Decision is the evaluator's tri-state outcome. The host maps deny to
// "block", ask to "require confirmation", and allow to "proceed".
type Decision string

const (
	Deny  Decision = "deny"
	Ask   Decision = "ask"
	Allow Decision = "allow"
)

// Verdict carries the decision, a human-readable reason, and the dotted
// section label of the rule that decided (empty for default-to-ask and for
// the all-allow case).
type Verdict struct {
	Decision Decision
	Reason   string
	Section  string
}

// DefaultReasonMaxChars bounds the echo of the raw command inside the
// whole-command deny reason.
const DefaultReasonMaxChars = 100

type Option func(*Engine)

func WithReasonMaxChars(n int) Option {
	return func(e *Engine) { e.reasonMax = n }
}

// Engine evaluates commands against one immutable pattern set. It holds no
// per-call state; concurrent Decide calls are safe.
type Engine struct {
	set       *policy.PatternSet
	reasonMax int
}

func New(set *policy.PatternSet, opts ...Option) *Engine {
	e := &Engine{
		set:       set,
		reasonMax: DefaultReasonMaxChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide evaluates a raw command line.
//
// The deny tier is checked against the unmodified command first, so patterns
// anchored on chaining syntax ("; rm -rf /") fire before splitting. The
// command is then split into segments, each normalized to its effective
// command and checked deny, then ask, then allow. Any deny match
// short-circuits. An ask match, or a command matching neither ask nor allow,
// downgrades the running verdict to ask; the first such reason sticks.
func (e *Engine) Decide(command string) Verdict {
	if p, ok := policy.FirstMatch(e.set.Deny, command); ok {
		return Verdict{
			Decision: Deny,
			Reason:   fmt.Sprintf("Blocked: '%s' matches %s", truncate(command, e.reasonMax), p.Section),
			Section:  p.Section,
		}
	}

	verdict := Verdict{
		Decision: Allow,
		Reason:   "Command matches allow patterns",
	}

	for _, segment := range parser.Split(command) {
		effective := parser.Normalize(segment)
		if effective == "" {
			continue
		}

		if p, ok := policy.FirstMatch(e.set.Deny, effective); ok {
			return Verdict{
				Decision: Deny,
				Reason:   fmt.Sprintf("Blocked: '%s' matches %s", effective, p.Section),
				Section:  p.Section,
			}
		}

		if p, ok := policy.FirstMatch(e.set.Ask, effective); ok {
			if verdict.Decision != Ask {
				verdict = Verdict{
					Decision: Ask,
					Reason:   fmt.Sprintf("'%s' matches %s", effective, p.Section),
					Section:  p.Section,
				}
			}
			continue
		}

		if _, ok := policy.FirstMatch(e.set.Allow, effective); ok {
			continue
		}

		if verdict.Decision != Ask {
			verdict = Verdict{
				Decision: Ask,
				Reason:   fmt.Sprintf("'%s' not in auto-approve list", effective),
			}
		}
	}

	return verdict
}

// EffectiveCommands returns the non-empty effective commands the engine
// would match patterns against, in order. Used for diagnostics.
func EffectiveCommands(command string) []string {
	var out []string
	for _, segment := range parser.Split(command) {
		if effective := parser.Normalize(segment); effective != "" {
			out = append(out, effective)
		}
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
