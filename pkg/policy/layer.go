package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// Predicate evaluates one layer's trigger condition against a text payload.
// Predicates must be pure: no I/O, no side effects, deterministic for the
// same text and context.
type Predicate func(text string, ectx *EvalContext) Verdict

// Layer is a single ordered rule in the gate. Layers are immutable after
// construction and owned by the Gate.
type Layer struct {
	ID        LayerID
	Priority  int
	Action    Action
	Predicate Predicate
}

// RuleSet holds the lexical rules backing a layer: literal keywords matched
// case-insensitively as substrings, and compiled regular expressions.
type RuleSet struct {
	keywords []string
	patterns []*regexp.Regexp
}

// CompileRuleSet builds a RuleSet from keyword and pattern lists. Patterns
// are compiled case-insensitively; an invalid pattern fails the whole set.
func CompileRuleSet(keywords, patterns []string) (*RuleSet, error) {
	rs := &RuleSet{
		keywords: make([]string, 0, len(keywords)),
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			rs.keywords = append(rs.keywords, kw)
		}
	}

	for _, pat := range patterns {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pat, err)
		}
		rs.patterns = append(rs.patterns, re)
	}

	return rs, nil
}

// MustCompileRuleSet is CompileRuleSet for the built-in rule data, which is
// validated by tests and cannot fail at runtime.
func MustCompileRuleSet(keywords, patterns []string) *RuleSet {
	rs, err := CompileRuleSet(keywords, patterns)
	if err != nil {
		panic(err)
	}
	return rs
}

// Match returns the keywords and pattern sources that matched the text.
// The text is lowercased once by the caller via MatchLower when evaluating
// several rule sets against the same payload.
func (rs *RuleSet) Match(text string) (keywords, patterns []string) {
	return rs.MatchLower(strings.ToLower(text))
}

// MatchLower is Match for text that is already lowercased.
func (rs *RuleSet) MatchLower(lower string) (keywords, patterns []string) {
	for _, kw := range rs.keywords {
		if strings.Contains(lower, kw) {
			keywords = append(keywords, kw)
		}
	}
	for _, re := range rs.patterns {
		if re.MatchString(lower) {
			patterns = append(patterns, re.String())
		}
	}
	return keywords, patterns
}

// Merge returns a new RuleSet containing the rules of rs plus other.
// Neither operand is modified.
func (rs *RuleSet) Merge(other *RuleSet) *RuleSet {
	if other == nil {
		return rs
	}
	merged := &RuleSet{
		keywords: make([]string, 0, len(rs.keywords)+len(other.keywords)),
		patterns: make([]*regexp.Regexp, 0, len(rs.patterns)+len(other.patterns)),
	}
	merged.keywords = append(merged.keywords, rs.keywords...)
	merged.patterns = append(merged.patterns, rs.patterns...)

	seen := make(map[string]bool, len(rs.keywords))
	for _, kw := range rs.keywords {
		seen[kw] = true
	}
	for _, kw := range other.keywords {
		if !seen[kw] {
			merged.keywords = append(merged.keywords, kw)
			seen[kw] = true
		}
	}

	seenPat := make(map[string]bool, len(rs.patterns))
	for _, re := range rs.patterns {
		seenPat[re.String()] = true
	}
	for _, re := range other.patterns {
		if !seenPat[re.String()] {
			merged.patterns = append(merged.patterns, re)
			seenPat[re.String()] = true
		}
	}

	return merged
}
