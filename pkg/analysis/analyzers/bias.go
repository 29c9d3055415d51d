package analyzers

import (
	"context"
	"regexp"
	"strings"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
)

// BiasDetector flags wording that suggests cognitive or structural bias:
// absolutist generalizations, loaded framing, and one-sided evidence
// language.
type BiasDetector struct {
	absolutist lexicon
	loaded     lexicon
	patterns   []*regexp.Regexp
}

func NewBiasDetector() (analysis.Analyzer, error) {
	return &BiasDetector{
		absolutist: newLexicon(
			"always", "never", "everyone knows", "nobody", "all of them",
			"obviously", "clearly", "undeniably",
		),
		loaded: newLexicon(
			"typical", "those people", "real men", "real women",
			"naturally better", "inherently",
		),
		patterns: compilePatterns(
			`all\s+\w+\s+are\s+`,
			`\w+\s+people\s+(always|never)`,
			`only\s+a\s+\w+\s+would`,
		),
	}, nil
}

func (d *BiasDetector) ID() string { return "bias-detection" }

func (d *BiasDetector) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	absHits, absTerms := d.absolutist.count(lower)
	loadedHits, loadedTerms := d.loaded.count(lower)
	patternHits := matchPatterns(text, d.patterns)

	total := absHits + loadedHits + len(patternHits)

	var indicators []string
	if absHits > 0 {
		indicators = append(indicators, "absolutist-language")
	}
	if loadedHits > 0 {
		indicators = append(indicators, "loaded-framing")
	}
	if len(patternHits) > 0 {
		indicators = append(indicators, "group-generalization")
	}

	return analysis.Outcome{
		"bias_detected":   total > 0,
		"bias_indicators": indicators,
		"absolutist":      absTerms,
		"loaded":          loadedTerms,
		"match_count":     total,
		"severity":        severity(total),
	}, nil
}
