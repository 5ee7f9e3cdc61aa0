// Package policy compiles tiered regex rules into an immutable pattern set.
package policy

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
)

// Tier names, in precedence order: deny > ask > allow > default-to-ask.
const (
	TierDeny  = "deny"
	TierAsk   = "ask"
	TierAllow = "allow"
)

type PolicyError struct {
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}

// Pattern is one compiled rule: the regex, the dotted label of its
// configuration section (e.g. "deny.destructive"), and the original
// pattern text for diagnostics.
type Pattern struct {
	Regex    *regexp.Regexp
	Section  string
	Original string
}

// Section is a named group of pattern strings within a tier. Sections keep
// their configuration order so that "first configured match is reported" is
// an explicit contract rather than a map-iteration accident.
type Section struct {
	Name     string
	Patterns []string
}

// RawRules is the uncompiled policy: three tiers of ordered sections.
type RawRules struct {
	Deny  []Section
	Ask   []Section
	Allow []Section
}

// PatternSet is the compiled policy. It is built once and only read
// afterward; concurrent evaluations against one set need no locking.
type PatternSet struct {
	Deny  []Pattern
	Ask   []Pattern
	Allow []Pattern
}

// Build compiles raw into a PatternSet. Patterns that fail to compile are
// skipped with a logged diagnostic; the rest of the set still builds.
// Missing tiers and empty sections are valid and yield empty tiers.
func Build(raw RawRules, logger *slog.Logger) *PatternSet {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PatternSet{
		Deny:  compileTier(TierDeny, raw.Deny, logger),
		Ask:   compileTier(TierAsk, raw.Ask, logger),
		Allow: compileTier(TierAllow, raw.Allow, logger),
	}
}

func compileTier(tier string, sections []Section, logger *slog.Logger) []Pattern {
	var compiled []Pattern
	for _, sec := range sections {
		label := fmt.Sprintf("%s.%s", tier, sec.Name)
		for _, raw := range sec.Patterns {
			re, err := regexp.Compile(raw)
			if err != nil {
				logger.Warn("skipping invalid pattern",
					"section", label,
					"pattern", raw,
					"error", err.Error(),
				)
				continue
			}
			compiled = append(compiled, Pattern{
				Regex:    re,
				Section:  label,
				Original: raw,
			})
		}
	}
	return compiled
}

// FirstMatch returns the first pattern in tier whose regex occurs anywhere
// in s. Patterns are responsible for their own anchoring.
func FirstMatch(tier []Pattern, s string) (Pattern, bool) {
	for _, p := range tier {
		if p.Regex.MatchString(s) {
			return p, true
		}
	}
	return Pattern{}, false
}

// Len returns the total number of compiled patterns across all tiers.
func (s *PatternSet) Len() int {
	return len(s.Deny) + len(s.Ask) + len(s.Allow)
}
