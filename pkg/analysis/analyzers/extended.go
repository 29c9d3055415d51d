package analyzers

import (
	"context"
	"regexp"
	"strings"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
)

// ObjectivePatternAnalyzer recognizes what the text is trying to achieve:
// acquisition, avoidance, persuasion, or information-seeking.
type ObjectivePatternAnalyzer struct {
	objectives map[string]lexicon
}

func NewObjectivePatternAnalyzer() (analysis.Analyzer, error) {
	return &ObjectivePatternAnalyzer{
		objectives: map[string]lexicon{
			"acquire":  newLexicon("get", "obtain", "buy", "acquire", "need a"),
			"avoid":    newLexicon("avoid", "prevent", "stop", "escape", "without getting"),
			"persuade": newLexicon("convince", "persuade", "make them", "get them to"),
			"inform":   newLexicon("what is", "how does", "explain", "why does", "tell me about"),
		},
	}, nil
}

func (a *ObjectivePatternAnalyzer) ID() string { return "objective-pattern" }

func (a *ObjectivePatternAnalyzer) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	var detected []string
	for _, objective := range sortedKeys(a.objectives) {
		if a.objectives[objective].contains(lower) {
			detected = append(detected, objective)
		}
	}

	outcome := analysis.Outcome{"objectives": detected}
	if len(detected) == 1 {
		outcome["primary_objective"] = detected[0]
	}
	return outcome, nil
}

// FeedbackLoopAnalyzer looks for self-reinforcing dynamics described in
// the text, such as escalation and retaliation cycles.
type FeedbackLoopAnalyzer struct {
	reinforcing []*regexp.Regexp
	balancing   lexicon
}

func NewFeedbackLoopAnalyzer() (analysis.Analyzer, error) {
	return &FeedbackLoopAnalyzer{
		reinforcing: compilePatterns(
			`the\s+more\s+.+\s+the\s+more`,
			`keeps?\s+getting\s+worse`,
			`every\s+time\s+.+\s+again`,
			`spiral`,
		),
		balancing: newLexicon("settle down", "stabilize", "calm", "balance out", "level off"),
	}, nil
}

func (a *FeedbackLoopAnalyzer) ID() string { return "feedback-loop" }

func (a *FeedbackLoopAnalyzer) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	reinforcingHits := matchPatterns(text, a.reinforcing)
	balancingHits, _ := a.balancing.count(lower)

	return analysis.Outcome{
		"reinforcing_loops": len(reinforcingHits),
		"balancing_signals": balancingHits,
		"escalation_risk":   len(reinforcingHits) > 0 && balancingHits == 0,
	}, nil
}

// ScenarioModeler sketches optimistic, expected, and pessimistic framings
// of the situation described by the text.
type ScenarioModeler struct {
	conditional []*regexp.Regexp
	negative    lexicon
	positive    lexicon
}

func NewScenarioModeler() (analysis.Analyzer, error) {
	return &ScenarioModeler{
		conditional: compilePatterns(
			`if\s+.+\s+then`,
			`what\s+happens\s+if`,
			`in\s+case\s+of`,
		),
		negative: newLexicon("fail", "lose", "worst", "collapse", "disaster"),
		positive: newLexicon("succeed", "win", "best", "improve", "gain"),
	}, nil
}

func (a *ScenarioModeler) ID() string { return "scenario-modeling" }

func (a *ScenarioModeler) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	lower := strings.ToLower(text)

	conditionals := matchPatterns(text, a.conditional)
	negHits, _ := a.negative.count(lower)
	posHits, _ := a.positive.count(lower)

	skew := "expected"
	if negHits > posHits {
		skew = "pessimistic"
	} else if posHits > negHits {
		skew = "optimistic"
	}

	return analysis.Outcome{
		"conditional_branches": len(conditionals),
		"scenario_skew":        skew,
		"models_outcomes":      len(conditionals) > 0,
	}, nil
}

// EthicalSecurityAnalyzer watches for attempts to probe or manipulate the
// analysis machinery itself, separate from the gate's integrity layer. It
// only reports; enforcement stays with the gate.
type EthicalSecurityAnalyzer struct {
	probing []*regexp.Regexp
}

func NewEthicalSecurityAnalyzer() (analysis.Analyzer, error) {
	return &EthicalSecurityAnalyzer{
		probing: compilePatterns(
			`what\s+(are\s+)?your\s+(rules|filters|instructions)`,
			`repeat\s+your\s+(system\s+)?prompt`,
			`how\s+do\s+i\s+(get\s+around|defeat)\s+`,
			`weakness(es)?\s+in\s+your`,
		),
	}, nil
}

func (a *EthicalSecurityAnalyzer) ID() string { return "ethical-security" }

func (a *EthicalSecurityAnalyzer) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	hits := matchPatterns(text, a.probing)
	return analysis.Outcome{
		"probing_detected": len(hits) > 0,
		"probe_count":      len(hits),
		"severity":         severity(len(hits)),
	}, nil
}

// ContinuousMonitor aggregates coarse health signals about the text for
// longitudinal dashboards: size class, signal density, and repetition.
type ContinuousMonitor struct{}

func NewContinuousMonitor() (analysis.Analyzer, error) {
	return &ContinuousMonitor{}, nil
}

func (a *ContinuousMonitor) ID() string { return "continuous-monitoring" }

func (a *ContinuousMonitor) Analyze(_ context.Context, text string, _ *analysis.Context) (analysis.Outcome, error) {
	words := strings.Fields(strings.ToLower(text))

	sizeClass := "short"
	switch {
	case len(words) > 300:
		sizeClass = "long"
	case len(words) > 50:
		sizeClass = "medium"
	}

	counts := make(map[string]int, len(words))
	maxRepeat := 0
	for _, w := range words {
		counts[w]++
		if counts[w] > maxRepeat {
			maxRepeat = counts[w]
		}
	}

	return analysis.Outcome{
		"size_class": sizeClass,
		"word_count": len(words),
		"max_repeat": maxRepeat,
		"repetitive": len(words) >= 10 && maxRepeat > len(words)/4,
	}, nil
}
