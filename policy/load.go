package policy

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules/default.yaml
var defaultRules []byte

// LoadEmbedded builds the built-in default policy.
func LoadEmbedded(logger *slog.Logger) (*PatternSet, error) {
	raw, err := ParseRules(defaultRules, "embedded default policy")
	if err != nil {
		return nil, err
	}
	return Build(raw, logger), nil
}

// LoadFile builds a policy from a YAML rules file. Unlike individual bad
// patterns, a file that cannot be read or parsed is a fatal error: the
// caller must refuse to evaluate with unknown policy.
func LoadFile(path string, logger *slog.Logger) (*PatternSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	raw, err := ParseRules(data, path)
	if err != nil {
		return nil, err
	}
	return Build(raw, logger), nil
}

// ParseRules decodes rules YAML shaped
//
//	{deny|ask|allow}:
//	  <section>:
//	    patterns: [<regex>, ...]
//
// preserving the document order of sections and patterns. source names the
// input in error messages.
func ParseRules(data []byte, source string) (RawRules, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawRules{}, &PolicyError{Message: fmt.Sprintf("invalid YAML in %s: %v", source, err)}
	}
	if len(doc.Content) == 0 {
		return RawRules{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return RawRules{}, &PolicyError{Message: fmt.Sprintf("rules in %s are not a YAML mapping", source)}
	}

	var raw RawRules
	for i := 0; i+1 < len(root.Content); i += 2 {
		tier := root.Content[i].Value
		sections, err := parseTier(tier, root.Content[i+1], source)
		if err != nil {
			return RawRules{}, err
		}
		switch tier {
		case TierDeny:
			raw.Deny = sections
		case TierAsk:
			raw.Ask = sections
		case TierAllow:
			raw.Allow = sections
		default:
			return RawRules{}, &PolicyError{Message: fmt.Sprintf("unknown tier %q in %s (want deny, ask, or allow)", tier, source)}
		}
	}
	return raw, nil
}

func parseTier(tier string, node *yaml.Node, source string) ([]Section, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &PolicyError{Message: fmt.Sprintf("tier %q in %s must be a mapping of sections", tier, source)}
	}

	var sections []Section
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		patterns, ok, err := parseSectionPatterns(tier, name, node.Content[i+1], source)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Sections without a patterns list contribute nothing.
			continue
		}
		sections = append(sections, Section{Name: name, Patterns: patterns})
	}
	return sections, nil
}

func parseSectionPatterns(tier, name string, node *yaml.Node, source string) ([]string, bool, error) {
	if node.Kind != yaml.MappingNode {
		return nil, false, nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "patterns" {
			continue
		}
		list := node.Content[i+1]
		if list.Kind == yaml.ScalarNode && list.Tag == "!!null" {
			return nil, true, nil
		}
		if list.Kind != yaml.SequenceNode {
			return nil, false, &PolicyError{Message: fmt.Sprintf("%s.%s.patterns in %s must be a list of strings", tier, name, source)}
		}
		patterns := make([]string, 0, len(list.Content))
		for _, item := range list.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, false, &PolicyError{Message: fmt.Sprintf("%s.%s.patterns in %s must be a list of strings", tier, name, source)}
			}
			patterns = append(patterns, item.Value)
		}
		return patterns, true, nil
	}
	return nil, false, nil
}
