package analyzers

import (
	"context"
	"sort"
	"strings"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
)

// wellbeingDimensions are the impact dimensions scored by both the
// wellbeing and dimensional analyzers, in report order.
var wellbeingDimensions = []string{"physical", "psychological", "social"}

// WellbeingAnalyzer scores text impact across physical, psychological,
// and social dimensions, with a crude positive/negative valence per
// dimension.
type WellbeingAnalyzer struct {
	dimensions map[string]lexicon
	negative   lexicon
	positive   lexicon
}

func NewWellbeingAnalyzer() (analysis.Analyzer, error) {
	return &WellbeingAnalyzer{
		dimensions: map[string]lexicon{
			"physical":      newLexicon("health", "injury", "pain", "sleep", "exercise", "sick", "medication"),
			"psychological": newLexicon("stress", "anxiety", "depressed", "fear", "hope", "overwhelmed", "confidence"),
			"social":        newLexicon("friend", "family", "community", "lonely", "relationship", "isolated", "support"),
		},
		negative: newLexicon("hurt", "worse", "suffering", "lost", "afraid", "hopeless", "alone"),
		positive: newLexicon("better", "improve", "recover", "heal", "support", "together", "thriving"),
	}, nil
}

func (w *WellbeingAnalyzer) ID() string { return "wellbeing-analysis" }

func (w *WellbeingAnalyzer) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	scores := make(map[string]float64, len(wellbeingDimensions))
	var touched []string
	for _, dim := range wellbeingDimensions {
		hits, _ := w.dimensions[dim].count(lower)
		scores[dim] = clamp(float64(hits) / 3.0)
		if hits > 0 {
			touched = append(touched, dim)
		}
	}

	negHits, _ := w.negative.count(lower)
	posHits, _ := w.positive.count(lower)
	valence := 0.0
	if negHits+posHits > 0 {
		valence = float64(posHits-negHits) / float64(posHits+negHits)
	}

	return analysis.Outcome{
		"dimension_scores": scores,
		"dimensions":       touched,
		"valence":          valence,
		"concern":          valence < -0.2 && len(touched) > 0,
	}, nil
}

// DimensionalAnalyzer aggregates per-dimension relevance into a single
// weighted impact score with a dominant dimension.
type DimensionalAnalyzer struct {
	dimensions map[string]lexicon
	weights    map[string]float64
}

func NewDimensionalAnalyzer() (analysis.Analyzer, error) {
	return &DimensionalAnalyzer{
		dimensions: map[string]lexicon{
			"physical":      newLexicon("body", "health", "physical", "injury", "environment"),
			"psychological": newLexicon("mind", "mental", "emotion", "feel", "think"),
			"social":        newLexicon("people", "group", "social", "culture", "society"),
		},
		weights: map[string]float64{
			"physical":      0.4,
			"psychological": 0.35,
			"social":        0.25,
		},
	}, nil
}

func (d *DimensionalAnalyzer) ID() string { return "dimensional-analysis" }

func (d *DimensionalAnalyzer) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	overall := 0.0
	scores := make(map[string]float64, len(wellbeingDimensions))
	dominant := ""
	best := 0.0

	for _, dim := range wellbeingDimensions {
		hits, _ := d.dimensions[dim].count(lower)
		score := clamp(float64(hits) / 3.0)
		scores[dim] = score
		overall += score * d.weights[dim]
		if score > best {
			best = score
			dominant = dim
		}
	}

	outcome := analysis.Outcome{
		"overall_score":      clamp(overall),
		"dimensional_scores": scores,
	}
	if dominant != "" {
		outcome["dominant_dimension"] = dominant
	}
	return outcome, nil
}

// sortedKeys returns map keys in deterministic order for reporting.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
