package analyzers

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
)

// EthicalProcessor scores the ethical signal of text across the four law
// dimensions. It reports the same categories the policy gate enforces but
// as graded advisory scores rather than verdicts.
type EthicalProcessor struct {
	collective lexicon
	individual lexicon
	deception  []*regexp.Regexp
}

func NewEthicalProcessor() (analysis.Analyzer, error) {
	return &EthicalProcessor{
		collective: newLexicon(
			"humanity", "civilization", "population", "society",
			"all humans", "everyone", "mankind",
		),
		individual: newLexicon(
			"harm", "hurt", "injure", "suffer", "victim", "danger",
		),
		deception: compilePatterns(
			`pretend\s+(that\s+)?you`,
			`act\s+as\s+if`,
			`without\s+(anyone|them)\s+knowing`,
		),
	}, nil
}

func (p *EthicalProcessor) ID() string { return "ethical-processor" }

func (p *EthicalProcessor) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	collectiveHits, collectiveTerms := p.collective.count(lower)
	individualHits, individualTerms := p.individual.count(lower)
	deceptionHits := matchPatterns(text, p.deception)

	// Word-normalized scores keep long inputs from saturating.
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}

	return analysis.Outcome{
		"collective_score": clamp(float64(collectiveHits*4) / float64(words)),
		"individual_score": clamp(float64(individualHits*4) / float64(words)),
		"deception_score":  clamp(float64(len(deceptionHits)) / 3.0),
		"collective_terms": collectiveTerms,
		"individual_terms": individualTerms,
		"severity":         severity(collectiveHits + individualHits + len(deceptionHits)),
	}, nil
}

// ValueConflictResolver surfaces tension between competing values named in
// the text, such as individual autonomy against collective safety.
type ValueConflictResolver struct {
	axes map[string]lexicon
}

func NewValueConflictResolver() (analysis.Analyzer, error) {
	return &ValueConflictResolver{
		axes: map[string]lexicon{
			"autonomy": newLexicon("freedom", "choice", "consent", "my right", "liberty"),
			"safety":   newLexicon("safety", "protect", "secure", "risk", "danger"),
			"fairness": newLexicon("fair", "equal", "justice", "deserve", "unfair"),
			"privacy":  newLexicon("private", "privacy", "secret", "confidential", "surveillance"),
		},
	}, nil
}

func (r *ValueConflictResolver) ID() string { return "value-conflict" }

func (r *ValueConflictResolver) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	var present []string
	for axis, lex := range r.axes {
		if lex.contains(lower) {
			present = append(present, axis)
		}
	}
	// Map iteration order is unstable; outcomes must be deterministic.
	sort.Strings(present)

	outcome := analysis.Outcome{
		"value_axes":   present,
		"has_conflict": len(present) >= 2,
	}
	if len(present) >= 2 {
		outcome["conflict_pairs"] = pairNames(present)
		outcome["resolution_hint"] = "prioritize-harm-prevention"
	}
	return outcome, nil
}

func pairNames(axes []string) []string {
	var pairs []string
	for i := 0; i < len(axes); i++ {
		for j := i + 1; j < len(axes); j++ {
			pairs = append(pairs, axes[i]+"/"+axes[j])
		}
	}
	return pairs
}
