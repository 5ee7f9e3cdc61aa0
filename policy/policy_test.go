package policy

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestBuildCompilesAllTiers(t *testing.T) {
	set := Build(RawRules{
		Deny:  []Section{{Name: "destructive", Patterns: []string{`rm\s+-rf`}}},
		Ask:   []Section{{Name: "privilege", Patterns: []string{`^sudo\s`, `^su\s`}}},
		Allow: []Section{{Name: "read_only", Patterns: []string{`^ls(\s|$)`}}},
	}, nil)

	if got, want := len(set.Deny), 1; got != want {
		t.Fatalf("len(Deny) = %d, want %d", got, want)
	}
	if got, want := len(set.Ask), 2; got != want {
		t.Fatalf("len(Ask) = %d, want %d", got, want)
	}
	if got, want := set.Len(), 4; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	if got, want := set.Deny[0].Section, "deny.destructive"; got != want {
		t.Fatalf("Section = %q, want %q", got, want)
	}
	if got, want := set.Deny[0].Original, `rm\s+-rf`; got != want {
		t.Fatalf("Original = %q, want %q", got, want)
	}
}

func TestBuildSkipsInvalidPatterns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	set := Build(RawRules{
		Deny: []Section{{Name: "broken", Patterns: []string{`[unclosed`, `rm\s+-rf`}}},
	}, logger)

	if got, want := len(set.Deny), 1; got != want {
		t.Fatalf("len(Deny) = %d, want %d (invalid pattern skipped)", got, want)
	}
	if got, want := set.Deny[0].Original, `rm\s+-rf`; got != want {
		t.Fatalf("surviving pattern = %q, want %q", got, want)
	}
	if !bytes.Contains(buf.Bytes(), []byte("skipping invalid pattern")) {
		t.Fatalf("expected a diagnostic for the skipped pattern, log = %q", buf.String())
	}
}

func TestBuildEmptyRules(t *testing.T) {
	set := Build(RawRules{}, nil)
	if set.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", set.Len())
	}
}

func TestFirstMatchOrder(t *testing.T) {
	set := Build(RawRules{
		Ask: []Section{
			{Name: "first", Patterns: []string{`foo`}},
			{Name: "second", Patterns: []string{`foo`}},
		},
	}, nil)

	p, ok := FirstMatch(set.Ask, "foo bar")
	if !ok {
		t.Fatal("FirstMatch = no match, want match")
	}
	if got, want := p.Section, "ask.first"; got != want {
		t.Fatalf("Section = %q, want %q (configuration order wins)", got, want)
	}
}

func TestFirstMatchSubstringSemantics(t *testing.T) {
	set := Build(RawRules{
		Deny: []Section{{Name: "d", Patterns: []string{`rm\s+-rf\s+/`}}},
	}, nil)

	// Patterns match anywhere unless they anchor themselves.
	if _, ok := FirstMatch(set.Deny, "echo hi; rm -rf /"); !ok {
		t.Fatal("unanchored pattern should match mid-string")
	}
	if _, ok := FirstMatch(set.Deny, "rm -i /tmp/x"); ok {
		t.Fatal("pattern matched a command it should not")
	}
}
