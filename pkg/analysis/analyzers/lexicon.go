package analyzers

import (
	"regexp"
	"strings"
)

// lexicon is a compiled keyword list with case-insensitive matching.
type lexicon struct {
	words []string
}

func newLexicon(words ...string) lexicon {
	return lexicon{words: words}
}

// count returns the total number of keyword occurrences and the distinct
// keywords matched.
func (l lexicon) count(lower string) (total int, matched []string) {
	for _, w := range l.words {
		n := strings.Count(lower, w)
		if n > 0 {
			total += n
			matched = append(matched, w)
		}
	}
	return total, matched
}

// contains reports whether any keyword occurs in the text.
func (l lexicon) contains(lower string) bool {
	for _, w := range l.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// compilePatterns compiles a case-insensitive pattern list. Patterns are
// authored in-package and must be valid.
func compilePatterns(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// matchPatterns returns the source of every pattern that matches.
func matchPatterns(text string, patterns []*regexp.Regexp) []string {
	var matched []string
	for _, re := range patterns {
		if re.MatchString(text) {
			matched = append(matched, re.String())
		}
	}
	return matched
}

// severity buckets a match count the way the rest of the pipeline reports
// it.
func severity(matches int) string {
	switch {
	case matches >= 5:
		return "critical"
	case matches >= 3:
		return "high"
	case matches >= 1:
		return "medium"
	default:
		return "low"
	}
}

// clamp bounds a score to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
