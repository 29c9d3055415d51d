package analyzers

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
)

// ContextValidator checks whether the text carries enough context to
// analyze meaningfully: length, structure, and ambiguity markers.
type ContextValidator struct {
	ambiguous lexicon
}

func NewContextValidator() (analysis.Analyzer, error) {
	return &ContextValidator{
		ambiguous: newLexicon(
			"it", "that thing", "this stuff", "you know", "whatever",
			"something like",
		),
	}, nil
}

func (v *ContextValidator) ID() string { return "context-validation" }

func (v *ContextValidator) Analyze(_ context.Context, text string, actx *analysis.Context) (analysis.Outcome, error) {
	trimmed := strings.TrimSpace(text)
	words := strings.Fields(trimmed)
	lower := strings.ToLower(trimmed)

	ambiguityHits, _ := v.ambiguous.count(lower)
	ambiguity := 0.0
	if len(words) > 0 {
		ambiguity = clamp(float64(ambiguityHits*3) / float64(len(words)))
	}

	var issues []string
	if len(words) < 3 {
		issues = append(issues, "too-short")
	}
	if !utf8.ValidString(text) {
		issues = append(issues, "invalid-encoding")
	}
	if ambiguity > 0.5 {
		issues = append(issues, "high-ambiguity")
	}

	outcome := analysis.Outcome{
		"valid":      len(issues) == 0,
		"word_count": len(words),
		"ambiguity":  ambiguity,
	}
	if len(issues) > 0 {
		outcome["issues"] = issues
	}
	if actx != nil && actx.Source == "post" && actx.OriginalInput != "" {
		// On post-generation runs, note whether the output engages the
		// input topic at all.
		outcome["relates_to_input"] = sharesTerms(lower, strings.ToLower(actx.OriginalInput))
	}
	return outcome, nil
}

// sharesTerms reports whether the two texts share any word longer than
// four characters.
func sharesTerms(a, b string) bool {
	seen := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		if len(w) > 4 {
			seen[w] = true
		}
	}
	for _, w := range strings.Fields(b) {
		if seen[w] {
			return true
		}
	}
	return false
}
