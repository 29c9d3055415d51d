package analyzers

import (
	"context"
	"strings"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
)

// MetricsCalculator produces descriptive text statistics used by the
// other analyzers' consumers: length, sentence structure, and lexical
// variety.
type MetricsCalculator struct{}

func NewMetricsCalculator() (analysis.Analyzer, error) {
	return &MetricsCalculator{}, nil
}

func (m *MetricsCalculator) ID() string { return "metrics-calculation" }

func (m *MetricsCalculator) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	words := strings.Fields(text)
	sentences := countSentences(text)

	distinct := make(map[string]bool, len(words))
	for _, w := range words {
		distinct[strings.ToLower(strings.Trim(w, ".,!?;:\"'"))] = true
	}

	variety := 0.0
	avgWordLen := 0.0
	if len(words) > 0 {
		variety = float64(len(distinct)) / float64(len(words))
		avgWordLen = float64(len(text)) / float64(len(words))
	}

	return analysis.Outcome{
		"word_count":          len(words),
		"sentence_count":      sentences,
		"distinct_words":      len(distinct),
		"lexical_variety":     variety,
		"average_word_length": avgWordLen,
	}, nil
}

// countSentences counts sentence-ending punctuation, treating any
// non-empty text as at least one sentence.
func countSentences(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		count = 1
	}
	return count
}

// UncertaintyManager quantifies hedging and speculation in text, yielding
// a confidence estimate for downstream reporting.
type UncertaintyManager struct {
	hedges      lexicon
	speculation lexicon
}

func NewUncertaintyManager() (analysis.Analyzer, error) {
	return &UncertaintyManager{
		hedges: newLexicon(
			"maybe", "perhaps", "might", "possibly", "i think",
			"not sure", "probably", "it depends",
		),
		speculation: newLexicon(
			"what if", "imagine", "hypothetically", "suppose", "in theory",
		),
	}, nil
}

func (u *UncertaintyManager) ID() string { return "uncertainty-management" }

func (u *UncertaintyManager) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	hedgeHits, hedgeTerms := u.hedges.count(lower)
	specHits, _ := u.speculation.count(lower)

	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	uncertainty := clamp(float64((hedgeHits+specHits)*5) / float64(words))

	return analysis.Outcome{
		"uncertainty": uncertainty,
		"confidence":  1.0 - uncertainty,
		"hedges":      hedgeTerms,
		"speculative": specHits > 0,
	}, nil
}
